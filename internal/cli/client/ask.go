package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/paddock/internal/api/handlers"
	"github.com/cloo-solutions/paddock/internal/domain"
)

const chatPath = "/api/chat"

// AskCmd creates the ask command
func AskCmd() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long: `Ask a question and print the answer as it is generated.

Earlier turns can be supplied with --history, a JSON file holding an array
of {"role": "user"|"assistant", "content": "..."} messages.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			history, err := loadHistory(historyFile)
			if err != nil {
				return err
			}
			msgs := buildConversation(history, strings.Join(args, " "))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runAsk(ctx, client, msgs, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with the previous conversation turns")

	return cmd
}

func runAsk(ctx context.Context, client *APIClient, msgs []domain.Message, w io.Writer) error {
	err := client.PostStream(ctx, chatPath, handlers.ChatRequest{Messages: msgs}, handlers.StreamTerminator, w)
	fmt.Fprintln(w)

	if errors.Is(err, ErrIncompleteResponse) {
		return fmt.Errorf("%w: the answer was cut off before completion", ErrIncompleteResponse)
	}
	return err
}

func loadHistory(path string) ([]domain.Message, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", path, err)
	}
	for i, m := range msgs {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			return nil, fmt.Errorf("history message %d: role must be user or assistant, got %q", i, m.Role)
		}
	}
	return msgs, nil
}

func buildConversation(history []domain.Message, question string) []domain.Message {
	msgs := make([]domain.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: question})
}
