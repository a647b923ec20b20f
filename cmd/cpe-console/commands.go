package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcourtman/cpe-console/internal/config"
	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/logging"
	"github.com/rcourtman/cpe-console/internal/provisioning"
	"github.com/rcourtman/cpe-console/pkg/tlsutil"
)

const fingerprintTimeout = 10 * time.Second

var refreshType string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Load configuration from the environment (and .env) and print it with secrets masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return printConfig(cmd.OutOrStdout(), cfg.Redacted())
	},
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <host[:port]>",
	Short: "Print the SHA256 fingerprint of a GenieACS TLS certificate",
	Long:  `Connect to the host and print the certificate fingerprint for use as GENIEACS_TLS_FINGERPRINT.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), fingerprintTimeout)
		defer cancel()

		fp, err := tlsutil.FetchFingerprint(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), fp)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <device-id>",
	Short: "Queue a refresh task for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := cliSequencer()
		if err != nil {
			return err
		}
		res, err := seq.Refresh(cmd.Context(), args[0], refreshType)
		return reportResult(cmd.OutOrStdout(), res, err)
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot <device-id>",
	Short: "Queue a reboot task for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := cliSequencer()
		if err != nil {
			return err
		}
		res, err := seq.Reboot(cmd.Context(), args[0])
		return reportResult(cmd.OutOrStdout(), res, err)
	},
}

func init() {
	refreshCmd.Flags().StringVarP(&refreshType, "type", "t", provisioning.RefreshDevice, "what to refresh: device, wan or wifi")
}

// cliSequencer builds a sequencer for one-shot commands. Logs go to stderr only above info.
func cliSequencer() (*provisioning.Sequencer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "cpe-console-cli"})

	client, err := newACSClient(cfg)
	if err != nil {
		return nil, err
	}
	return newSequencer(cfg, client), nil
}

func reportResult(w io.Writer, res *provisioning.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", internalerrors.Message(err), err)
	}
	fmt.Fprintf(w, "operation %s\n", res.OperationID)
	if res.Response == nil {
		return nil
	}
	fmt.Fprintf(w, "status %d\n", res.Response.StatusCode)
	if len(res.Response.Body) > 0 {
		fmt.Fprintf(w, "%s\n", res.Response.Body)
	}
	if !res.Response.OK() {
		return fmt.Errorf("ACS rejected task with status %d", res.Response.StatusCode)
	}
	return nil
}

func printConfig(w io.Writer, cfg config.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"GENIEACS_BASE_URL", cfg.GenieACSBaseURL},
		{"GENIEACS_USERNAME", cfg.GenieACSUsername},
		{"GENIEACS_PASSWORD", cfg.GenieACSPassword},
		{"GENIEACS_VERIFY_SSL", fmt.Sprint(cfg.VerifySSL)},
		{"GENIEACS_TLS_FINGERPRINT", cfg.TLSFingerprint},
		{"GENIEACS_CONNECTION_REQUEST", fmt.Sprint(cfg.ConnectionRequest)},
		{"query timeout", cfg.QueryTimeout.String()},
		{"mutation timeout", cfg.MutationTimeout.String()},
		{"listen", cfg.Addr()},
		{"metrics", cfg.MetricsAddr()},
		{"LOG_LEVEL", cfg.LogLevel},
		{"LOG_FORMAT", cfg.LogFormat},
		{"MUTATION_RATE_LIMIT", fmt.Sprintf("%d/min", cfg.MutationRateLimit)},
		{"BULK_REBOOT_CONCURRENCY", fmt.Sprint(cfg.BulkRebootConcurrency)},
		{"DNS_CACHE_TTL", cfg.DNSCacheTTL.String()},
	}
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", row[0], value)
	}
	return tw.Flush()
}
