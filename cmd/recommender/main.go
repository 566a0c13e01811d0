// Package main is the recommender service entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/config"
	logpkg "github.com/kailas-cloud/recommender/internal/logger"
	"github.com/kailas-cloud/recommender/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	serveCmd := newServeCmd(&configPath)

	rootCmd := &cobra.Command{
		Use:          "recommender",
		Short:        "Cached semantic product recommendations over HTTP",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (default: config/<ENV>.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newQueryCmd(&configPath))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "recommender %s\n", version.String())
			return err //nolint:wrapcheck // terminal output
		},
	})

	return rootCmd
}

// loadConfig reads an explicit config file when given, otherwise config/<ENV>.yaml.
func loadConfig(configPath string) (config.Config, string, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

func setup(configPath string) (config.Config, *zap.Logger, error) {
	cfg, env, err := loadConfig(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger.With(zap.String("env", env)), nil
}
