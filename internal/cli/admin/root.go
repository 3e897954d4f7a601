package admin

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/cli"
)

// NewRootCmd assembles the paddockd command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paddockd",
		Short: "Paddock daemon and CLI",
		Long:  "Paddock daemon for serving the F1 question answering API, ingesting sources and managing the vector collection",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(IngestCmd())
	rootCmd.AddCommand(CollectionCmd())
	rootCmd.AddCommand(ProbeCmd())

	return rootCmd
}
