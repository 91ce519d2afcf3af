// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

const probeTimeout = 3 * time.Second

// ProbeStatus is the result of one health probe against a running server.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the health endpoints of a running server",
		Long: `Query /healthz/liveness and /healthz/readiness on the configured
metrics address and report the results.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "metrics.addr").
			Errorf("status needs metrics.addr; the health endpoints are disabled")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	base := baseURL(conf.Metrics.Addr)
	client := &http.Client{Timeout: probeTimeout}
	statuses := []ProbeStatus{
		queryProbe(ctx, client, base, "liveness"),
		queryProbe(ctx, client, base, "readiness"),
	}

	if cfg.jsonOutput {
		out, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		cmd.Println(string(out))
	} else if err := formatStatusTable(cmd.OutOrStdout(), statuses); err != nil {
		return err
	}

	for _, s := range statuses {
		if !s.OK {
			return oops.Code("NOT_HEALTHY").With("probe", s.Probe).Errorf("%s probe failed", s.Probe)
		}
	}
	return nil
}

// baseURL turns a listen address into a URL a client can dial. Wildcard
// hosts are probed on loopback.
func baseURL(addr string) string {
	switch {
	case strings.HasPrefix(addr, ":"):
		addr = "127.0.0.1" + addr
	case strings.HasPrefix(addr, "0.0.0.0:"):
		addr = "127.0.0.1" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}

func queryProbe(ctx context.Context, client *http.Client, base, probe string) ProbeStatus {
	status := ProbeStatus{Probe: probe}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz/"+probe, http.NoBody)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := client.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.Status = resp.StatusCode
	status.OK = resp.StatusCode == http.StatusOK
	if !status.OK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256)) //nolint:errcheck // best effort detail
		status.Error = strings.TrimSpace(string(body))
	}
	return status
}

func formatStatusTable(out io.Writer, statuses []ProbeStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROBE\tSTATUS\tDETAIL") //nolint:errcheck // flushed below
	for _, s := range statuses {
		state := "ok"
		if !s.OK {
			state = "failing"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Probe, state, s.Error) //nolint:errcheck // flushed below
	}
	return w.Flush()
}
