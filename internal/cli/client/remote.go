package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// RemoteCmd creates the remote parent command
func RemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the server address",
		Long:  "Store, show and clear the paddock server URL kept in the global config",
	}

	cmd.AddCommand(RemoteSetCmd())
	cmd.AddCommand(RemoteShowCmd())
	cmd.AddCommand(RemoteClearCmd())

	return cmd
}

func RemoteSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <url>",
		Short: "Store the server URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoteSet(args[0])
		},
	}
}

func RemoteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the server URL in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			fmt.Println(client.BaseURL())
			return nil
		},
	}
}

func RemoteClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored server URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Println("Server URL cleared")
			return nil
		},
	}
}

func runRemoteSet(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", rawURL)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIURL: rawURL}); err != nil {
		return fmt.Errorf("failed to save server URL: %w", err)
	}

	fmt.Printf("Server URL set to %s\n", rawURL)
	return nil
}
