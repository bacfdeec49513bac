package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pilab-dev/betwiz-oauth/config"
	"github.com/pilab-dev/betwiz-oauth/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const appName = "betwizctl"

var (
	cfgFile   string
	verbose   bool
	appLogger log.Logger = log.NewNopLogger()
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "betwizctl provisions clients and sessions for the betwiz OAuth server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapterWithWriter(zerolog.ConsoleWriter{Out: os.Stderr}, level)
		appLogger.Debug(cmd.Context(), "betwizctl starting up", log.Fields{"command": cmd.CommandPath()})

		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		appLogger.Error(ctx, "command failed", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the server configuration the same way the server does.
func loadConfig() (*config.ServerConfig, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./betwiz_oauth.yaml, /etc/betwiz/ or $HOME/.betwiz/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
