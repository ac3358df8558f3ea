package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/ports"
)

func newRelatedCmd() *cobra.Command {
	var verb, direction string

	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "List things related to a thing",
		Long:  "Resolve the things connected to the given thing through actions. Direction out follows actions where it is the subject, in where it is the object, both merges the two.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(cmd, args[0], verb, direction)
		},
	}

	cmd.Flags().StringVar(&verb, "verb", "", "Restrict to one verb (default all)")
	cmd.Flags().StringVar(&direction, "direction", string(ports.DirectionBoth), "Traversal direction: out, in or both")

	return cmd
}

func runRelated(cmd *cobra.Command, id, verb, direction string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		things, err := d.Store.Related(ctx, id, verb, ports.Direction(direction))
		if err != nil {
			return fmt.Errorf("resolving related things: %w", err)
		}

		if len(things) == 0 {
			fmt.Println("No related things.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNOUN\tDATA")
		for _, thing := range things {
			fmt.Fprintf(w, "%s\t%s\t%s\n", thing.ID, thing.Noun, truncate(compactJSON(thing.Data), 60))
		}
		w.Flush()

		return nil
	})
}

func newEdgesCmd() *cobra.Command {
	var verb, direction string

	cmd := &cobra.Command{
		Use:   "edges <id>",
		Short: "List the actions touching a thing",
		Long:  "Show the raw action records connecting the given thing, rather than the resolved neighbors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdges(cmd, args[0], verb, direction)
		},
	}

	cmd.Flags().StringVar(&verb, "verb", "", "Restrict to one verb (default all)")
	cmd.Flags().StringVar(&direction, "direction", string(ports.DirectionBoth), "Traversal direction: out, in or both")

	return cmd
}

func runEdges(cmd *cobra.Command, id, verb, direction string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		edges, err := d.Store.Edges(ctx, id, verb, ports.Direction(direction))
		if err != nil {
			return fmt.Errorf("listing edges: %w", err)
		}

		if len(edges) == 0 {
			fmt.Println("No edges.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERB\tSUBJECT\tOBJECT\tSTATUS")
		for i := range edges {
			e := &edges[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Verb, e.Subject, e.Object, e.Status)
		}
		w.Flush()

		return nil
	})
}
