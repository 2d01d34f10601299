package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/vchat/internal/config"
	"github.com/soyeahso/vchat/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vchat status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			build := version.Current()
			fmt.Fprintf(out, "vchat %s (commit %s, %s)\n\n", build.Version, build.Commit, build.Platform)

			// Show paths
			fmt.Fprintf(out, "Config:    %s\n", paths.Config)
			fmt.Fprintf(out, "Data:      %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:      %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:    not found (using defaults)")
			}

			a := cfg.Assistant
			fmt.Fprintf(out, "Assistant: name=%s url=%s%s timeout=%ds fields=%s,%s\n",
				a.Name, a.Endpoint, a.Path, a.TimeoutSeconds, a.ResponseField, a.FallbackField)

			user := cfg.User.Name
			if user == "" {
				user = "(not set)"
			}
			fmt.Fprintf(out, "User:      %s\n", user)

			srv := cfg.Server
			fmt.Fprintf(out, "Server:    port=%d bind=%s delay=%dms store=%s\n",
				srv.Port, srv.Bind, srv.DelayMs, srv.Store)
			if len(srv.AllowedOrigins) > 0 {
				fmt.Fprintf(out, "Origins:   %s\n", strings.Join(srv.AllowedOrigins, ", "))
			}

			if cfg.Telemetry.Enabled {
				dir := cfg.Telemetry.Dir
				if dir == "" {
					dir = paths.Telemetry
				}
				fmt.Fprintf(out, "Telemetry: %s\n", dir)
			}

			if check {
				fmt.Fprintf(out, "Endpoint:  %s\n", checkEndpoint(cmd.Context(), a.Endpoint))
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check that the assistant endpoint answers")

	return cmd
}

// checkEndpoint describes whether GET <base>/ answers.
func checkEndpoint(ctx context.Context, base string) string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/", nil)
	if err != nil {
		return "invalid url: " + err.Error()
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "unreachable: " + err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode/100 != 2 {
		return fmt.Sprintf("responded %d", resp.StatusCode)
	}
	return "ok"
}
