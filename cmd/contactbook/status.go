// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/contactbook/contactbook/internal/config"
)

// EndpointStatus is the result of probing one running server.
type EndpointStatus struct {
	Component string `json:"component"`
	URL       string `json:"url"`
	Healthy   bool   `json:"healthy"`
	Code      int    `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

const statusProbeTimeout = 2 * time.Second

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe a running Contactbook server",
		Long: `Query the API health check and the readiness endpoint of a running
server, using the same address configuration as serve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), opts.sources())
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: statusProbeTimeout}
			statuses := probeAll(cmd.Context(), client, cfg.HTTP.Addr, cfg.Metrics.Addr)

			if jsonOutput {
				out, err := formatStatusJSON(statuses)
				if err != nil {
					return err
				}
				cmd.Println(out)
				return nil
			}
			cmd.Print(formatStatusTable(statuses))
			return nil
		},
	}

	cmd.Flags().String("addr", "0.0.0.0:8000", "API address of the running server")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health address of the running server (empty = skip)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func probeAll(ctx context.Context, client *http.Client, apiAddr, metricsAddr string) []EndpointStatus {
	statuses := []EndpointStatus{
		probe(ctx, client, "api", "http://"+dialAddr(apiAddr)+"/api/healthchecker"),
	}
	if metricsAddr != "" {
		statuses = append(statuses, probe(ctx, client, "readiness", "http://"+dialAddr(metricsAddr)+"/healthz/readiness"))
	}
	return statuses
}

// dialAddr turns a listen address into one a client can reach: wildcard and
// empty hosts become loopback.
func dialAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func probe(ctx context.Context, client *http.Client, component, url string) EndpointStatus {
	status := EndpointStatus{Component: component, URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		status.Error = fmt.Sprintf("failed to read response: %v", err)
		return status
	}

	status.Code = resp.StatusCode
	status.Healthy = resp.StatusCode == http.StatusOK
	status.Detail = responseDetail(body)
	return status
}

// responseDetail extracts the message of a JSON API response, falling back
// to the raw body.
func responseDetail(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(body))
}

func formatStatusTable(statuses []EndpointStatus) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tCODE\tDETAIL")
	_, _ = fmt.Fprintln(w, "---------\t------\t----\t------")
	for _, st := range statuses {
		switch {
		case st.Error != "":
			_, _ = fmt.Fprintf(w, "%s\tunreachable\t-\t%s\n", st.Component, st.Error)
		case st.Healthy:
			_, _ = fmt.Fprintf(w, "%s\thealthy\t%d\t%s\n", st.Component, st.Code, st.Detail)
		default:
			_, _ = fmt.Fprintf(w, "%s\tunhealthy\t%d\t%s\n", st.Component, st.Code, st.Detail)
		}
	}

	_ = w.Flush()
	return b.String()
}

func formatStatusJSON(statuses []EndpointStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(data), nil
}
