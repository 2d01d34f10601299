package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/vchat/internal/server"
	"github.com/soyeahso/vchat/internal/store"
	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"
)

func newServerCmd() *cobra.Command {
	var (
		port    int
		bind    string
		delayMs int
		storeTo string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the development assistant endpoint",
		Long: "Run a local assistant endpoint that answers POST /message with a simulated\n" +
			"reply, records exchanges and streams them to operators on /ws.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				go autorestart.RestartOnChange()
			}

			cfg, closer, err := loadConfig(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("delay") {
				cfg.Server.DelayMs = delayMs
			}
			if storeTo != "" {
				cfg.Server.Store = storeTo
			}

			if err := validate(&cfg); err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initTelemetry(ctx, cfg, "vchat-server")
			if err != nil {
				return err
			}
			defer flushTelemetry(shutdown)

			exchanges, closeLog, err := store.OpenExchangeLog(ctx, cfg.Server.Store, paths.ExchangeDB(), log)
			if err != nil {
				return fmt.Errorf("opening exchange log: %w", err)
			}
			defer closeLog()
			log.Info().Str("store", cfg.Server.Store).Msg("exchange log ready")

			hookMgr, closePlugins, err := startPlugins(ctx)
			if err != nil {
				return err
			}
			defer closePlugins()

			srv := server.New(cfg, log,
				server.WithHooks(hookMgr),
				server.WithExchangeLog(exchanges),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	cmd.Flags().StringVar(&bind, "bind", "", "bind mode: loopback, lan or custom")
	cmd.Flags().IntVar(&delayMs, "delay", 0, "simulated reply delay in milliseconds")
	cmd.Flags().StringVar(&storeTo, "store", "", "exchange log: sqlite or memory")
	cmd.Flags().BoolVar(&watch, "watch", false, "restart when the vchat binary changes")

	return cmd
}
