package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"watchingcat/internal/backend"
	"watchingcat/internal/config"
)

// CheckResult is the outcome of one backend probe.
type CheckResult struct {
	Backend  string            `json:"backend"`
	Health   string            `json:"health,omitempty"`
	Error    string            `json:"error,omitempty"`
	Services []backend.Service `json:"services,omitempty"`
	Healthy  int               `json:"healthy"`
	Total    int               `json:"total"`
}

// OK reports whether the backend answered and every service is healthy.
func (r CheckResult) OK() bool {
	return r.Error == "" && r.Healthy == r.Total
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the backend once and report service health",
		Long: `Calls the backend health endpoint and the services endpoint once and
prints the result. Exits non-zero when the backend is unreachable or any
service is unhealthy.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if cmd.Flags().Changed("backend") {
				cfg.BackendURL = backendURL
			}
			if err := cfg.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid config", err)
			}

			client := backend.New(cfg.BackendURL, cfg.RequestTimeout, nil)
			res := runCheck(cmd.Context(), client)

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if err := formatter.Output(res, res.writeText); err != nil {
				return err
			}
			if !res.OK() {
				return &ExitError{Code: ExitFailure, Message: "backend check failed"}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL (overrides BACKEND_URL)")

	return cmd
}

func runCheck(ctx context.Context, client *backend.Client) CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	res := CheckResult{Backend: client.BaseURL()}

	health, err := client.Health(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Health = health

	services, err := client.Services(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Services = services
	res.Total = len(services)
	for _, s := range services {
		if s.Healthy {
			res.Healthy++
		}
	}
	return res
}

func (r CheckResult) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Backend: %s\n", r.Backend)
	if r.Error != "" {
		_, err := fmt.Fprintf(w, "Error:   %s\n", r.Error)
		return err
	}
	fmt.Fprintf(w, "Health:  %s\n", r.Health)
	for _, s := range r.Services {
		mark := "OK  "
		if !s.Healthy {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  [%s] %-20s %s (%s)\n", mark, s.Name, s.URL, s.Status)
	}
	_, err := fmt.Fprintf(w, "%d/%d services healthy\n", r.Healthy, r.Total)
	return err
}
