package main

import (
	"fmt"

	"github.com/rcourtman/cpe-console/internal/config"
	"github.com/rcourtman/cpe-console/internal/metrics"
	"github.com/rcourtman/cpe-console/internal/provisioning"
	"github.com/rcourtman/cpe-console/pkg/genieacs"
	"github.com/rcourtman/cpe-console/pkg/tlsutil"
)

func newACSClient(cfg *config.Config) (*genieacs.Client, error) {
	tlsutil.SetDNSCacheTTL(cfg.DNSCacheTTL)

	client, err := genieacs.NewClient(genieacs.ClientConfig{
		BaseURL:     cfg.GenieACSBaseURL,
		Username:    cfg.GenieACSUsername,
		Password:    cfg.GenieACSPassword,
		Timeout:     cfg.ClientTimeout(),
		VerifySSL:   cfg.VerifySSL,
		Fingerprint: cfg.TLSFingerprint,
		Observer:    metrics.ObserveACSCall,
	})
	if err != nil {
		return nil, fmt.Errorf("create genieacs client: %w", err)
	}
	return client, nil
}

func newSequencer(cfg *config.Config, gw provisioning.Gateway) *provisioning.Sequencer {
	return provisioning.New(gw, provisioning.Config{
		Timeout:           cfg.MutationTimeout,
		ConnectionRequest: cfg.ConnectionRequest,
		BulkConcurrency:   cfg.BulkRebootConcurrency,
	})
}
