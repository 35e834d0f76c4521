// Command toolserver runs one domain's Tool Server: HR,
// Finance, Sales, or Support, selected as a subcommand. Each instance
// exposes /tools/discover, /tools/{name}, /execute, and /health,
// backed by its domain's storage family (relational, document store,
// or embedded search index).
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
		Use:   "toolserver",
		Short: "Run a domain Tool Server",
		Long: `toolserver hosts one domain's tools and translates tool invocations
into backend queries, applying PII redaction and keyset pagination
before returning the uniform response envelope.`,
	}
	root.AddCommand(
		buildHRCmd(),
		buildFinanceCmd(),
		buildSalesCmd(),
		buildSupportCmd(),
		buildVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolserver version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("toolserver %s (%s)\n", version, commit)
			return nil
		},
	}
}
