// Command gateway runs the system's single front door: it
// authenticates callers, computes their tool allow-list, proxies the
// LLM tool-calling loop over SSE, and manages the pending-confirmation
// store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Run the orchestration gateway",
		Long: `gateway is the single front door mediating natural-language queries
to a hosted LLM while enforcing role-based data access across the
HR, Finance, Sales, and Support tool servers.`,
	}
	root.AddCommand(buildServeCmd(), buildSchemaCmd(), buildVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("gateway %s (%s)\n", version, commit)
			return nil
		},
	}
}
