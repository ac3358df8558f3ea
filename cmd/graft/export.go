package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outPath, blobKey string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the namespace as JSONL",
		Long:  "Write the namespace as one tagged JSON object per line, nouns and verbs before things and actions so the file re-imports in order. Defaults to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, outPath, blobKey)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVar(&blobKey, "blob", "", "Write to the blob store under this key instead of a file")

	return cmd
}

func runExport(cmd *cobra.Command, outPath, blobKey string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		if blobKey != "" {
			info, err := d.Durability.ExportToBlob(ctx, blobKey)
			if err != nil {
				return fmt.Errorf("exporting to blob: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d nouns, %d verbs, %d things, %d actions to %s (%d bytes)\n",
				info.Nouns, info.Verbs, info.Things, info.Actions, blobKey, info.Bytes)
			return nil
		}

		out := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		info, err := d.Durability.ExportJSONL(ctx, out)
		if err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d nouns, %d verbs, %d things, %d actions (%d bytes)\n",
			info.Nouns, info.Verbs, info.Things, info.Actions, info.Bytes)
		return nil
	})
}
