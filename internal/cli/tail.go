package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/server"
	"github.com/spf13/cobra"
)

func newTailCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream exchanges handled by a running vchat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, closer, err := loadConfig(false)
				if err != nil {
					return err
				}
				defer closer.Close()
				url = cfg.Assistant.Endpoint
			}

			feed, err := server.FeedURL(url)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().Str("url", feed).Msg("tailing exchange feed")
			out := cmd.OutOrStdout()
			return server.Tail(ctx, feed, func(f server.Frame) error {
				return printFrame(out, f)
			})
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "server base URL (default assistant.endpoint)")

	return cmd
}

// printFrame writes one feed frame as a human-readable line.
func printFrame(w io.Writer, f server.Frame) error {
	switch f.Event {
	case server.EventHello:
		var hello server.HelloPayload
		if err := f.Decode(&hello); err != nil {
			return err
		}
		fmt.Fprintf(w, "connected to %s %s (assistant %s)\n", hello.Server, hello.Version, hello.Assistant)
	case server.EventExchange:
		var ex domain.Exchange
		if err := f.Decode(&ex); err != nil {
			return err
		}
		fmt.Fprintf(w, "[%s] #%d %d %dms\n  > %s\n  < %s\n",
			ex.CreatedAt.Local().Format(time.TimeOnly), f.Seq, ex.Status, ex.DurationMs, ex.Message, ex.Response)
	default:
		fmt.Fprintf(w, "event %s (%d bytes)\n", f.Event, len(f.Payload))
	}
	return nil
}
