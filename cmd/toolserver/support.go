package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/domain/support"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
)

func buildSupportCmd() *cobra.Command {
	var (
		addr           string
		backend        string
		dsn            string
		maxLimit       int
		metricsEnabled bool
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "support",
		Short: "Run the Support Tool Server (search_tickets, list_tickets, get_ticket, close_ticket, delete_ticket)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debug)

			store, err := newSupportStore(backend, dsn)
			if err != nil {
				return fmt.Errorf("build support store: %w", err)
			}

			server := toolserver.New("support", logger)
			support.RegisterAll(server, store, maxLimit)

			return serve(cmd.Context(), server, addr, metricsEnabled, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8084", "HTTP listen address")
	cmd.Flags().StringVar(&backend, "backend", "memory", "Backend store: memory|sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "file:support.db?cache=shared", "SQLite DSN (used when --backend=sqlite)")
	cmd.Flags().IntVar(&maxLimit, "max-limit", 50, "Pagination max page size (pagination.maxLimit)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Expose /metrics")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newSupportStore(backend, dsn string) (support.Store, error) {
	switch backend {
	case "", "memory":
		return support.NewMemoryStore(), nil
	case "sqlite":
		return support.NewSQLiteStore(dsn, support.DefaultSQLiteConfig())
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
