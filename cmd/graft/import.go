package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/services"
)

func newImportCmd() *cobra.Command {
	var blobKey string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSONL export into the namespace",
		Long:  "Apply tagged JSONL records in file order. Malformed or inapplicable lines are reported and skipped. Reads stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runImport(cmd, path, blobKey)
		},
	}

	cmd.Flags().StringVar(&blobKey, "blob", "", "Read from the blob store under this key instead of a file")

	return cmd
}

func runImport(cmd *cobra.Command, path, blobKey string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		if blobKey != "" {
			result, err := d.Durability.ImportFromBlob(ctx, blobKey)
			if err != nil {
				return fmt.Errorf("importing from blob: %w", err)
			}
			reportImport(result)
			return nil
		}

		in := os.Stdin
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()
			in = f
		}

		result, err := d.Durability.ImportJSONL(ctx, in)
		if err != nil {
			return fmt.Errorf("importing: %w", err)
		}
		reportImport(result)
		return nil
	})
}

func reportImport(result *services.ImportResult) {
	fmt.Printf("Imported %d records", result.Applied)
	if len(result.Skipped) > 0 {
		fmt.Printf(" (%d skipped)", len(result.Skipped))
	}
	fmt.Println()
	for _, skip := range result.Skipped {
		fmt.Printf("  skipped %s: %s\n", skip.Key, skip.Err)
	}
}
