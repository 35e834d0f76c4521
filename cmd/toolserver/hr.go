package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/domain/hr"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
)

func buildHRCmd() *cobra.Command {
	var (
		addr           string
		backend        string
		dsn            string
		maxLimit       int
		metricsEnabled bool
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "hr",
		Short: "Run the HR Tool Server (list_employees, get_employee, delete_employee)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debug)

			store, err := newHRStore(backend, dsn)
			if err != nil {
				return fmt.Errorf("build hr store: %w", err)
			}

			server := toolserver.New("hr", logger)
			hr.RegisterAll(server, store, maxLimit)

			return serve(cmd.Context(), server, addr, metricsEnabled, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8081", "HTTP listen address")
	cmd.Flags().StringVar(&backend, "backend", "memory", "Backend store: memory|postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (required when --backend=postgres)")
	cmd.Flags().IntVar(&maxLimit, "max-limit", 50, "Pagination max page size (pagination.maxLimit)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Expose /metrics")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newHRStore(backend, dsn string) (hr.Store, error) {
	switch backend {
	case "", "memory":
		return hr.NewMemoryStore(), nil
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("--dsn is required for --backend=postgres")
		}
		return hr.NewPostgresStore(dsn, hr.DefaultPostgresConfig())
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
