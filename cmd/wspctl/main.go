// Command wspctl is a small operator CLI for talking to a running wspd's
// admin HTTP surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "wspctl",
		Short: "Inspect a running wiresprite bot daemon",
	}
	root.AddCommand(healthCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(sharesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
