// Package cli implements the balancer command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	currencyFlag string
	idModeFlag   string
	verboseFlag  bool
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	if err := NewRootCmd(version, commit, date).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "balancer",
		Short:         "Shared-expense settlement engine",
		Long:          "balancer runs settlement scenarios: sessions are created, joined by every invited participant and settled with an even split.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&currencyFlag, "currency", "", "override settlement currency (default from scenario or usdc)")
	rootCmd.PersistentFlags().StringVar(&idModeFlag, "id-mode", "", "override id mode: auto or explicit")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log engine activity to stderr")

	// Subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
