package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/ports"
)

func newVerbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verb",
		Short: "Manage verbs (relationship and event types)",
		Long:  "Define and list the verbs of this namespace. Conjugations are derived automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerbList(cmd)
		},
	}

	cmd.AddCommand(newVerbDefineCmd())
	cmd.AddCommand(newVerbListCmd())
	cmd.AddCommand(newVerbDescribeCmd())

	return cmd
}

func newVerbDefineCmd() *cobra.Command {
	var description, inverse string

	cmd := &cobra.Command{
		Use:   "define <name>",
		Short: "Define or update a verb",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerbDefine(cmd, args[0], description, inverse)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Human description of the verb")
	cmd.Flags().StringVar(&inverse, "inverse", "", "Name of the inverse verb, e.g. 'follow' vs 'followedBy'")

	return cmd
}

func runVerbDefine(cmd *cobra.Command, name, description, inverse string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		verb, err := d.Store.DefineVerb(ctx, ports.VerbSpec{
			Name:        name,
			Description: description,
			Inverse:     inverse,
		})
		if err != nil {
			return fmt.Errorf("defining verb: %w", err)
		}

		fmt.Printf("Defined verb: %s (%s / %s / %s)\n", verb.Action, verb.Act, verb.Activity, verb.Event)
		return nil
	})
}

func newVerbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all verbs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerbList(cmd)
		},
	}
}

func runVerbList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		verbs, err := d.Store.ListVerbs(ctx)
		if err != nil {
			return fmt.Errorf("listing verbs: %w", err)
		}

		if len(verbs) == 0 {
			fmt.Println("No verbs defined.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tACT\tACTIVITY\tEVENT\tREVERSE")
		for i := range verbs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				verbs[i].Name, verbs[i].Act, verbs[i].Activity, verbs[i].Event, verbs[i].ReverseBy)
		}
		w.Flush()

		return nil
	})
}

func newVerbDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Show a verb's full definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerbDescribe(cmd, args[0])
		},
	}
}

func runVerbDescribe(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		verb, err := d.Store.GetVerb(ctx, name)
		if err != nil {
			return fmt.Errorf("getting verb: %w", err)
		}
		if verb == nil {
			return fmt.Errorf("verb %q is not defined", name)
		}
		return printJSON(verb)
	})
}
