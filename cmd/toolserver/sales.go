package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/domain/sales"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
)

func buildSalesCmd() *cobra.Command {
	var (
		addr           string
		backend        string
		mongoURI       string
		mongoDatabase  string
		maxLimit       int
		metricsEnabled bool
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Run the Sales Tool Server (list_deals, get_deal, close_deal, delete_deal)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debug)

			store, err := newSalesStore(backend, mongoURI, mongoDatabase)
			if err != nil {
				return fmt.Errorf("build sales store: %w", err)
			}

			server := toolserver.New("sales", logger)
			sales.RegisterAll(server, store, maxLimit)

			return serve(cmd.Context(), server, addr, metricsEnabled, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8083", "HTTP listen address")
	cmd.Flags().StringVar(&backend, "backend", "memory", "Backend store: memory|mongo")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (required when --backend=mongo)")
	cmd.Flags().StringVar(&mongoDatabase, "mongo-database", "sales", "MongoDB database name")
	cmd.Flags().IntVar(&maxLimit, "max-limit", 50, "Pagination max page size (pagination.maxLimit)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Expose /metrics")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newSalesStore(backend, mongoURI, mongoDatabase string) (sales.Store, error) {
	switch backend {
	case "", "memory":
		return sales.NewMemoryStore(), nil
	case "mongo":
		if mongoURI == "" {
			return nil, fmt.Errorf("--mongo-uri is required for --backend=mongo")
		}
		return sales.NewMongoStore(mongoURI, mongoDatabase, sales.DefaultMongoConfig())
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
