package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/cli"
)

// NewRootCmd assembles the paddock command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paddock",
		Short: "Paddock CLI - ask questions about Formula 1",
		Long: `Paddock CLI sends questions to a running paddockd server and prints the
answers as they stream in.

Environment variables:
  PADDOCK_API_URL   API base URL (default: http://localhost:8080)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.BindEnv(rootCmd, "api-url", envAPIURL)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(AskCmd())
	rootCmd.AddCommand(HealthCmd())
	rootCmd.AddCommand(RemoteCmd())

	return rootCmd
}
