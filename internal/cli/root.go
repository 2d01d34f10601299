package cli

import (
	"fmt"
	"io"

	"github.com/soyeahso/vchat/internal/config"
	"github.com/soyeahso/vchat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vchat",
		Short: "vchat: terminal chat client for the V assistant",
		Long:  "vchat is a terminal chat client that talks to a remote V assistant endpoint, plus a development server that simulates one.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.vchat/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newServerCmd())
	cmd.AddCommand(newTailCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file and rebuilds the logger from its
// logging section. toFile forces file output, which the terminal UI needs
// because stderr shares the screen. The returned closer releases the log
// file, if any.
func loadConfig(toFile bool) (config.Config, io.Closer, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, nopCloser{}, err
	}

	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}

	file := cfg.Logging.File
	if file == "" && toFile {
		file = paths.LogFile()
	}
	if file == "" {
		log = logging.New(logging.Console(cfg.Logging.ConsoleStyle), level)
		return cfg, nopCloser{}, nil
	}

	fl, closer, err := logging.NewFile(logging.FileOptions{Path: file}, level)
	if err != nil {
		return cfg, nopCloser{}, err
	}
	log = fl
	return cfg, closer, nil
}

// validate logs every issue and fails when there are any.
func validate(cfg *config.Config) error {
	issues := config.Validate(cfg)
	if len(issues) == 0 {
		return nil
	}
	for _, issue := range issues {
		log.Error().Str("path", issue.Path).Msg(issue.Message)
	}
	return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
