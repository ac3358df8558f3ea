package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

func newPerformCmd() *cobra.Command {
	var subject, object, dataJSON, status string

	cmd := &cobra.Command{
		Use:   "perform <verb>",
		Short: "Perform a verb, recording an action",
		Long:  "Record an action of the given verb. With --subject and --object the action is a graph edge; without them it is a metadata-only event.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPerform(cmd, args[0], subject, object, dataJSON, status)
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "Subject thing id")
	cmd.Flags().StringVarP(&object, "object", "o", "", "Object thing id")
	cmd.Flags().StringVar(&dataJSON, "data", "", "Action payload as a JSON object")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default completed; use pending for workflows)")

	return cmd
}

func runPerform(cmd *cobra.Command, verb, subject, object, dataJSON, status string) error {
	ctx := cmd.Context()

	data, err := parseData(dataJSON)
	if err != nil {
		return err
	}

	return withStore(func(d *Deps) error {
		action, err := d.Store.Perform(ctx, verb, subject, object, data, ports.PerformOptions{
			Status: entities.ActionStatus(status),
		})
		if err != nil {
			return fmt.Errorf("performing %s: %w", verb, err)
		}
		return printJSON(action)
	})
}

func newActionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Inspect and manage recorded actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newActionsListCmd())
	cmd.AddCommand(newActionsGetCmd())
	cmd.AddCommand(newActionsTransitionCmd())
	cmd.AddCommand(newActionsPurgeCmd())

	return cmd
}

func newActionsListCmd() *cobra.Command {
	var verb, status, subject, object string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List actions matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsList(cmd, ports.ActionFilter{
				Verb:    verb,
				Status:  entities.ActionStatus(status),
				Subject: subject,
				Object:  object,
				Limit:   limit,
				Offset:  offset,
			})
		},
	}

	cmd.Flags().StringVar(&verb, "verb", "", "Filter by verb")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&subject, "subject", "", "Filter by subject thing id")
	cmd.Flags().StringVar(&object, "object", "", "Filter by object thing id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum actions to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset into the result")

	return cmd
}

func runActionsList(cmd *cobra.Command, filter ports.ActionFilter) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		actions, err := d.Store.ListActions(ctx, filter)
		if err != nil {
			return fmt.Errorf("listing actions: %w", err)
		}

		if len(actions) == 0 {
			fmt.Println("No matching actions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tVERB\tSUBJECT\tOBJECT\tSTATUS\tCREATED")
		for i := range actions {
			a := &actions[i]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				a.ID, a.Verb, a.Subject, a.Object, a.Status, a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()

		return nil
	})
}

func newActionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch an action by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsGet(cmd, args[0])
		},
	}
}

func runActionsGet(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		action, err := d.Store.GetAction(ctx, id)
		if err != nil {
			return fmt.Errorf("getting action: %w", err)
		}
		if action == nil {
			return fmt.Errorf("action %q does not exist", id)
		}
		return printJSON(action)
	})
}

func newActionsTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move an action to a new status",
		Long:  "Advance an action through its lifecycle: pending to active, pending or active to completed, failed or cancelled. Terminal actions never transition.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsTransition(cmd, args[0], args[1])
		},
	}
}

func runActionsTransition(cmd *cobra.Command, id, status string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		action, err := d.Store.Transition(ctx, id, entities.ActionStatus(status))
		if err != nil {
			return fmt.Errorf("transitioning action: %w", err)
		}
		return printJSON(action)
	})
}

func newActionsPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <id>",
		Short: "Remove an action record entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionsPurge(cmd, args[0])
		},
	}
}

func runActionsPurge(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		purged, err := d.Store.Purge(ctx, id)
		if err != nil {
			return fmt.Errorf("purging action: %w", err)
		}
		if purged {
			fmt.Printf("Purged %s\n", id)
		} else {
			fmt.Printf("Nothing to purge: %s\n", id)
		}
		return nil
	})
}
