package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/vchat/internal/assistant"
	"github.com/soyeahso/vchat/internal/config"
	"github.com/soyeahso/vchat/internal/hooks"
	"github.com/soyeahso/vchat/internal/login"
	"github.com/soyeahso/vchat/internal/plugin"
	"github.com/soyeahso/vchat/internal/session"
	"github.com/soyeahso/vchat/internal/telemetry"
	"github.com/soyeahso/vchat/internal/tui"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		name     string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat with the assistant",
		Long: "Open the terminal chat UI. When stdin is not a terminal, each input line\n" +
			"is sent as a message and replies are printed (commands: /clear, /attach <name>, /quit).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := tui.IsInteractive()

			cfg, closer, err := loadConfig(interactive)
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

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initTelemetry(ctx, cfg, "vchat-chat")
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
			defer manager.CancelAll()

			if !interactive {
				display := name
				if display == "" {
					display = cfg.User.Name
				}
				if display == "" {
					display = "User"
				}
				return tui.RunREPL(ctx, os.Stdin, cmd.OutOrStdout(), manager, display)
			}

			prefill := login.Identity{Name: cfg.User.Name, Email: cfg.User.Email}
			if name != "" {
				prefill.Name = name
			}
			model := tui.NewModel(ctx, manager, tui.Options{
				AssistantName: cfg.Assistant.Name,
				Prefill:       prefill,
			})
			return tui.Run(ctx, model)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (pre-fills the login form)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "assistant base URL (overrides assistant.endpoint)")

	return cmd
}

// startPlugins creates the hook manager and loads the built-in plugins onto it.
func startPlugins(ctx context.Context) (*hooks.Manager, func(), error) {
	hookMgr := hooks.NewManager(log)
	reg := plugin.NewRegistry(hookMgr, log)
	if err := reg.Register(plugin.NewAudit()); err != nil {
		return nil, nil, err
	}
	if err := reg.InitAll(ctx); err != nil {
		reg.CloseAll()
		return nil, nil, fmt.Errorf("initializing plugins: %w", err)
	}
	return hookMgr, reg.CloseAll, nil
}

// newSessionManager wires the assistant client and hooks into a session manager.
func newSessionManager(cfg config.Config, hookMgr *hooks.Manager) *session.Manager {
	client := assistant.NewHTTPClient(assistant.Config{
		BaseURL:       cfg.Assistant.Endpoint,
		Path:          cfg.Assistant.Path,
		Timeout:       time.Duration(cfg.Assistant.TimeoutSeconds) * time.Second,
		ResponseField: cfg.Assistant.ResponseField,
		FallbackField: cfg.Assistant.FallbackField,
	}, log)

	return session.NewManager(client, log,
		session.WithHooks(hookMgr),
		session.WithAssistantName(cfg.Assistant.Name),
	)
}

func initTelemetry(ctx context.Context, cfg config.Config, service string) (telemetry.Shutdown, error) {
	dir := cfg.Telemetry.Dir
	if dir == "" {
		dir = paths.Telemetry
	}
	return telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Dir:         dir,
		ServiceName: service,
	}, log)
}

func flushTelemetry(shutdown telemetry.Shutdown) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown")
	}
}
