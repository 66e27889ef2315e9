package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
)

var (
	configFile string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "wayseat",
		Short: "wayseat - seat and input grab core for Wayland compositors",
		Long: `wayseat routes pointer, keyboard and touch input from a backend to the
clients of a Wayland compositor. It tracks input focus per device, keeps a
priority-ordered stack of input grabs per device, and announces seat
capabilities as devices come and go.

The replay command drives a seat from a YAML event script and prints the
resulting wire traffic. The serve command does the same for SSH clients.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default searches /etc/wayseat, ~/.config/wayseat, .)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config and LOG_LEVEL)")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads the configuration and applies the log level. The flag
// wins over the config file, which wins over LOG_LEVEL.
func initConfig(cmd *cobra.Command, args []string) error {
	config.SetConfigPath(configFile)
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := config.Get().Logging.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if level != "" {
		logger.SetLevel(level)
	}
	return nil
}
