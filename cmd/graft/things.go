package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

func newCreateCmd() *cobra.Command {
	var dataJSON, id string
	var validate bool

	cmd := &cobra.Command{
		Use:   "create <noun>",
		Short: "Create a thing of the given noun",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args[0], dataJSON, id, validate)
		},
	}

	cmd.Flags().StringVar(&dataJSON, "data", "", "Thing payload as a JSON object")
	cmd.Flags().StringVar(&id, "id", "", "Explicit id (defaults to a generated UUID)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the payload against the noun's schema")

	return cmd
}

func runCreate(cmd *cobra.Command, noun, dataJSON, id string, validate bool) error {
	ctx := cmd.Context()

	data, err := parseData(dataJSON)
	if err != nil {
		return err
	}

	return withStore(func(d *Deps) error {
		thing, err := d.Store.Create(ctx, noun, data, ports.CreateOptions{ID: id, Validate: validate})
		if err != nil {
			return describeFailure("creating thing", err)
		}
		return printJSON(thing)
	})
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a thing by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0])
		},
	}
}

func runGet(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		thing, err := d.Store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("getting thing: %w", err)
		}
		if thing == nil {
			return fmt.Errorf("thing %q does not exist", id)
		}
		return printJSON(thing)
	})
}

func newUpdateCmd() *cobra.Command {
	var dataJSON string
	var validate bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a thing with a partial payload",
		Long:  "Shallow-merge the given JSON object into the thing's payload. Supplied keys replace; omitted keys survive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, args[0], dataJSON, validate)
		},
	}

	cmd.Flags().StringVar(&dataJSON, "data", "", "Partial payload as a JSON object")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the merged result against the noun's schema")

	return cmd
}

func runUpdate(cmd *cobra.Command, id, dataJSON string, validate bool) error {
	ctx := cmd.Context()

	data, err := parseData(dataJSON)
	if err != nil {
		return err
	}

	return withStore(func(d *Deps) error {
		thing, err := d.Store.Update(ctx, id, data, ports.UpdateOptions{Validate: validate})
		if err != nil {
			return describeFailure("updating thing", err)
		}
		return printJSON(thing)
	})
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a thing by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		deleted, err := d.Store.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("deleting thing: %w", err)
		}
		if deleted {
			fmt.Printf("Deleted %s\n", id)
		} else {
			fmt.Printf("Nothing to delete: %s\n", id)
		}
		return nil
	})
}

func newListCmd() *cobra.Command {
	var whereJSON, orderBy string
	var descending bool
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list <noun>",
		Short: "List things of the given noun",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], whereJSON, orderBy, descending, limit, offset)
		},
	}

	cmd.Flags().StringVar(&whereJSON, "where", "", "Top-level equality filters as a JSON object")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "Field to order by (id, created_at, updated_at, or a schema field)")
	cmd.Flags().BoolVar(&descending, "desc", false, "Order descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default 100, max 1000)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func runList(cmd *cobra.Command, noun, whereJSON, orderBy string, descending bool, limit, offset int) error {
	ctx := cmd.Context()

	where, err := parseData(whereJSON)
	if err != nil {
		return err
	}

	return withStore(func(d *Deps) error {
		page, err := d.Store.List(ctx, noun, ports.ListOptions{
			Where:      where,
			OrderBy:    orderBy,
			Descending: descending,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return fmt.Errorf("listing %s: %w", noun, err)
		}

		if len(page.Items) == 0 {
			fmt.Printf("No matching things (total %d).\n", page.Total)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tDATA")
		for _, thing := range page.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				thing.ID, thing.CreatedAt.Format("2006-01-02 15:04:05"), truncate(compactJSON(thing.Data), 60))
		}
		w.Flush()

		fmt.Printf("\n%d-%d of %d", page.Offset+1, page.Offset+len(page.Items), page.Total)
		if page.HasMore {
			fmt.Printf(" (more: --offset %d)", page.Offset+len(page.Items))
		}
		fmt.Println()
		return nil
	})
}

// compactJSON renders a payload on one line for table output.
func compactJSON(data map[string]any) string {
	if len(data) == 0 {
		return "{}"
	}
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}

// describeFailure unwraps a validation failure into per-field lines; other
// errors pass through wrapped.
func describeFailure(op string, err error) error {
	var verr *entities.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, "validation failed:")
		for _, fe := range verr.Errors {
			fmt.Fprintf(os.Stderr, "  %s [%s]: %s\n", fe.Field, fe.Code, fe.Message)
			if fe.Suggestion != "" {
				fmt.Fprintf(os.Stderr, "    suggestion: %s\n", fe.Suggestion)
			}
		}
		return fmt.Errorf("%s: %d field error(s)", op, len(verr.Errors))
	}
	return fmt.Errorf("%s: %w", op, err)
}
