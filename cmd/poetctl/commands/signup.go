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

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Manage PoET signup information",
	Long:  `Create and verify PoET signup information.`,
}

var (
	signupOriginatorPKH string
	signupNonce         string
)

var signupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create new signup information",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		req := map[string]string{
			"originator_public_key_hash": signupOriginatorPKH,
			"nonce":                      signupNonce,
		}

		var info poetenclave.SignupInfo
		if err := client.do(context.Background(), http.MethodPost, "/v1/signup", req, &info); err != nil {
			return err
		}
		return printJSON(info)
	},
}

var (
	signupVerifyFile string
	signupVerifyOPKH string
)

var signupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify signup information against an originator public key hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(signupVerifyFile)
		if err != nil {
			return fmt.Errorf("read signup info file: %w", err)
		}
		var info poetenclave.SignupInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return fmt.Errorf("parse signup info file: %w", err)
		}

		client := newAPIClient()
		req := map[string]interface{}{
			"signup_info":                &info,
			"originator_public_key_hash": signupVerifyOPKH,
		}

		var result map[string]bool
		if err := client.do(context.Background(), http.MethodPost, "/v1/signup/verify", req, &result); err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	signupCreateCmd.Flags().StringVar(&signupOriginatorPKH, "originator-public-key-hash", "", "originator public key hash")
	signupCreateCmd.Flags().StringVar(&signupNonce, "nonce", "", "signup nonce")
	signupCreateCmd.MarkFlagRequired("originator-public-key-hash")

	signupVerifyCmd.Flags().StringVar(&signupVerifyFile, "file", "", "path to a signup info JSON file")
	signupVerifyCmd.Flags().StringVar(&signupVerifyOPKH, "originator-public-key-hash", "", "originator public key hash")
	signupVerifyCmd.MarkFlagRequired("file")
	signupVerifyCmd.MarkFlagRequired("originator-public-key-hash")

	signupCmd.AddCommand(signupCreateCmd)
	signupCmd.AddCommand(signupVerifyCmd)
}
