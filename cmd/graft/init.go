package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/infrastructure/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a graft workspace in the current directory",
		Long:  "Create the .graft directory with a default configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if err := config.WriteDefault(cwd); err != nil {
		return err
	}

	fmt.Printf("Initialized graft workspace in %s/%s\n", cwd, config.DefaultConfigDir)
	fmt.Println("Edit .graft/config.yaml to choose a provider, then define nouns and verbs.")
	return nil
}
