// Command glofctl is the operator CLI for the GLOF risk service. It seeds
// demonstration readings and assesses reading files offline with the same
// classifier the service runs.
//
// Usage:
//
//	glofctl seed --days 7 --kafka
//	glofctl seed --days 30 --db data/glof.db --seed 42
//	glofctl assess readings.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "glofctl",
		Short:         "Operator tooling for the GLOF risk service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newAssessCmd())
	return root
}
