package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/poet-enclave/simulator/internal/poetenclave"
)

var certificateCmd = &cobra.Command{
	Use:   "certificate",
	Short: "Manage PoET wait certificates",
	Long:  `Create and verify wait certificates.`,
}

var (
	certTimerFile  string
	certBlockHash  string
	certFile       string
	certPoetPubKey string
)

var certificateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a wait certificate from an expired wait timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(certTimerFile)
		if err != nil {
			return fmt.Errorf("read wait timer file: %w", err)
		}
		var timer poetenclave.WaitTimer
		if err := json.Unmarshal(raw, &timer); err != nil {
			return fmt.Errorf("parse wait timer file: %w", err)
		}

		client := newAPIClient()
		req := map[string]interface{}{
			"wait_timer": &timer,
			"block_hash": certBlockHash,
		}

		var cert poetenclave.WaitCertificate
		if err := client.do(context.Background(), http.MethodPost, "/v1/certificates", req, &cert); err != nil {
			return err
		}
		return printJSON(cert)
	},
}

var certificateVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a wait certificate against a PoET public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(certFile)
		if err != nil {
			return fmt.Errorf("read wait certificate file: %w", err)
		}
		var cert poetenclave.WaitCertificate
		if err := json.Unmarshal(raw, &cert); err != nil {
			return fmt.Errorf("parse wait certificate file: %w", err)
		}

		client := newAPIClient()
		req := map[string]interface{}{
			"certificate":     &cert,
			"poet_public_key": certPoetPubKey,
		}

		var result map[string]bool
		if err := client.do(context.Background(), http.MethodPost, "/v1/certificates/verify", req, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	certificateCreateCmd.Flags().StringVar(&certTimerFile, "timer-file", "", "path to a wait timer JSON file")
	certificateCreateCmd.Flags().StringVar(&certBlockHash, "block-hash", "", "block hash to certify")
	certificateCreateCmd.MarkFlagRequired("timer-file")
	certificateCreateCmd.MarkFlagRequired("block-hash")

	certificateVerifyCmd.Flags().StringVar(&certFile, "file", "", "path to a wait certificate JSON file")
	certificateVerifyCmd.Flags().StringVar(&certPoetPubKey, "poet-public-key", "", "PoET public key to verify against")
	certificateVerifyCmd.MarkFlagRequired("file")
	certificateVerifyCmd.MarkFlagRequired("poet-public-key")

	certificateCmd.AddCommand(certificateCreateCmd)
	certificateCmd.AddCommand(certificateVerifyCmd)
}
