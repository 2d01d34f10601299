package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soyeahso/vchat/internal/session"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		name     string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			if endpoint != "" {
				cfg.Assistant.Endpoint = endpoint
			}
			if err := validate(&cfg); err != nil {
				return err
			}

			if name == "" {
				name = cfg.User.Name
			}
			if name == "" {
				name = "User"
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initTelemetry(ctx, cfg, "vchat-send")
			if err != nil {
				return err
			}
			defer flushTelemetry(shutdown)

			hookMgr, closePlugins, err := startPlugins(ctx)
			if err != nil {
				return err
			}
			defer closePlugins()

			manager := newSessionManager(cfg, hookMgr)
			s := manager.Open(ctx, name)

			outcome, err := manager.Submit(ctx, s, strings.Join(args, " "))
			if err != nil {
				return err
			}

			switch outcome.Kind {
			case session.OutcomeSkipped:
				return fmt.Errorf("message is empty")
			case session.OutcomeCancelled:
				return ctx.Err()
			}

			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message.Text)
			if outcome.Kind == session.OutcomeFailed {
				return fmt.Errorf("assistant request failed: %w", outcome.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name used in the greeting")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "assistant base URL (overrides assistant.endpoint)")

	return cmd
}
