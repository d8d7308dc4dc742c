package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show enclave status and identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		var info map[string]interface{}
		if err := client.do(context.Background(), http.MethodGet, "/v1/info", nil, &info); err != nil {
			return err
		}
		return printJSON(info)
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
