// Package main provides the entry point for the graft CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version         = "0.1.0-dev"
	globalNamespace string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "graft",
		Short:   "An entity-graph store of nouns, verbs, things and actions",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalNamespace, "namespace", "n", "", "Namespace to operate on (defaults to config)")

	rootCmd.AddCommand(
		newInitCmd(),
		newNounCmd(),
		newVerbCmd(),
		newCreateCmd(),
		newGetCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newListCmd(),
		newPerformCmd(),
		newActionsCmd(),
		newRelatedCmd(),
		newEdgesCmd(),
		newSnapshotCmd(),
		newWALCmd(),
		newExportCmd(),
		newImportCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
