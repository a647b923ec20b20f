package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rcourtman/cpe-console/internal/api"
	"github.com/rcourtman/cpe-console/internal/config"
	"github.com/rcourtman/cpe-console/internal/logging"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "cpe-console",
	Short:   "CPE management console backend for GenieACS",
	Long:    `cpe-console exposes device inventory and WAN/WiFi provisioning for TR-069 CPEs managed by a GenieACS server.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(rebootCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cpe-console %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", GitCommit)
		}
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	// Baseline logger for early startup messages
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "cpe-console",
	})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "cpe-console",
	})
	log.Info().Str("version", Version).Msg("Starting CPE console")

	client, err := newACSClient(cfg)
	if err != nil {
		return err
	}

	if addr := cfg.MetricsAddr(); addr != "" {
		startMetricsServer(ctx, addr)
	}

	return api.Run(ctx, &api.Deps{
		Config:    cfg,
		ACS:       client,
		Sequencer: newSequencer(cfg, client),
		Version:   Version,
		StartTime: time.Now(),
	})
}
