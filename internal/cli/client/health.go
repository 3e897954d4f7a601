package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/api/handlers"
)

// HealthCmd creates the health command
func HealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server readiness",
		Long:  "Query the server's readiness endpoint and list the status of each dependency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHealth(cmd.Context(), client, os.Stdout, outputJSON)
		},
	}

	return cmd
}

func runHealth(ctx context.Context, client *APIClient, w io.Writer, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	status, resp, err := client.GetWithStatus(ctx, "/health/ready")
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		return &APIError{StatusCode: status, Message: resp.Error, Details: resp.Details}
	}

	var ready handlers.ReadyResponse
	if err := json.Unmarshal(resp.Data, &ready); err != nil {
		return fmt.Errorf("failed to parse readiness response: %w", err)
	}

	if outputJSON {
		jsonBytes, _ := json.MarshalIndent(ready, "", "  ")
		fmt.Fprintln(w, string(jsonBytes))
	} else {
		fmt.Fprintf(w, "%s: %s\n", client.BaseURL(), ready.Status)
		for _, c := range ready.Checks {
			if c.OK {
				fmt.Fprintf(w, "  %-14s ok\n", c.Name)
			} else {
				fmt.Fprintf(w, "  %-14s failed: %s\n", c.Name, c.Error)
			}
		}
	}

	if status != http.StatusOK {
		return fmt.Errorf("server is not ready")
	}
	return nil
}
