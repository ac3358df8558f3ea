package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWALCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wal",
		Short: "Replay and compact the write-ahead log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newWALReplayCmd())
	cmd.AddCommand(newWALCompactCmd())

	return cmd
}

func newWALReplayCmd() *cobra.Command {
	var after int64

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply WAL entries to the store",
		Long:  "Apply the namespace's WAL entries in timestamp order. Corrupt or inapplicable entries are reported and skipped so recovery never blocks on one bad entry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWALReplay(cmd, after)
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "Only apply entries with timestamps after this millisecond epoch")

	return cmd
}

func runWALReplay(cmd *cobra.Command, after int64) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		result, err := d.Durability.ReplayWAL(ctx, after)
		if err != nil {
			return fmt.Errorf("replaying wal: %w", err)
		}

		fmt.Printf("Applied %d entries\n", result.Applied)
		for _, skip := range result.Skipped {
			fmt.Printf("  skipped %s: %s\n", skip.Key, skip.Err)
		}
		return nil
	})
}

func newWALCompactCmd() *cobra.Command {
	var before int64

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Delete WAL entries older than a cutoff",
		Long:  "Remove WAL entries with timestamps strictly before the cutoff, typically the latest snapshot's timestamp. Entries at or after the cutoff are never touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWALCompact(cmd, before)
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "Millisecond epoch cutoff (required)")
	cmd.MarkFlagRequired("before")

	return cmd
}

func runWALCompact(cmd *cobra.Command, before int64) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		deleted, err := d.Durability.CompactWAL(ctx, before)
		if err != nil {
			return fmt.Errorf("compacting wal: %w", err)
		}

		fmt.Printf("Deleted %d entries\n", deleted)
		return nil
	})
}
