package commands

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/poet-enclave/simulator/internal/poetenclave"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage PoET wait timers",
	Long:  `Create wait timers.`,
}

var (
	timerValidatorAddress string
	timerPreviousCertID   string
	timerLocalMean        float64
	timerMinimumWait      float64
)

var timerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wait timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		req := map[string]interface{}{
			"validator_address":       timerValidatorAddress,
			"previous_certificate_id": timerPreviousCertID,
			"local_mean":              timerLocalMean,
		}
		if timerMinimumWait > 0 {
			req["minimum_wait_time"] = timerMinimumWait
		}

		var timer poetenclave.WaitTimer
		if err := client.do(context.Background(), http.MethodPost, "/v1/timers", req, &timer); err != nil {
			return err
		}
		return printJSON(timer)
	},
}

func init() {
	timerCreateCmd.Flags().StringVar(&timerValidatorAddress, "validator-address", "", "validator address")
	timerCreateCmd.Flags().StringVar(&timerPreviousCertID, "previous-certificate-id", poetenclave.NullBlockIdentifier, "previous certificate ID")
	timerCreateCmd.Flags().Float64Var(&timerLocalMean, "local-mean", 0, "local mean wait duration")
	timerCreateCmd.Flags().Float64Var(&timerMinimumWait, "minimum-wait-time", 0, "minimum wait time override")
	timerCreateCmd.MarkFlagRequired("validator-address")
	timerCreateCmd.MarkFlagRequired("local-mean")

	timerCmd.AddCommand(timerCreateCmd)
}
