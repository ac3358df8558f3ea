package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

func newNounCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noun",
		Short: "Manage nouns (entity types)",
		Long:  "Define, list, and describe the nouns of this namespace.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNounList(cmd)
		},
	}

	cmd.AddCommand(newNounDefineCmd())
	cmd.AddCommand(newNounListCmd())
	cmd.AddCommand(newNounDescribeCmd())

	return cmd
}

func newNounDefineCmd() *cobra.Command {
	var description, schemaJSON string

	cmd := &cobra.Command{
		Use:   "define <name>",
		Short: "Define or update a noun",
		Long:  "Define a noun by name. Plural, slug and other forms are derived automatically; redefining merges the schema.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNounDefine(cmd, args[0], description, schemaJSON)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Human description of the noun")
	cmd.Flags().StringVar(&schemaJSON, "schema", "", "Field schema as JSON, e.g. '{\"title\":{\"type\":\"string\",\"required\":true}}'")

	return cmd
}

func runNounDefine(cmd *cobra.Command, name, description, schemaJSON string) error {
	ctx := cmd.Context()

	var schema map[string]entities.FieldDef
	if schemaJSON != "" {
		if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
			return fmt.Errorf("parsing --schema: %w", err)
		}
	}

	return withStore(func(d *Deps) error {
		noun, err := d.Store.DefineNoun(ctx, ports.NounSpec{
			Name:        name,
			Description: description,
			Schema:      schema,
		})
		if err != nil {
			return fmt.Errorf("defining noun: %w", err)
		}

		fmt.Printf("Defined noun: %s (plural %s, slug %s)\n", noun.Name, noun.Plural, noun.Slug)
		return nil
	})
}

func newNounListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all nouns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNounList(cmd)
		},
	}
}

func runNounList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		nouns, err := d.Store.ListNouns(ctx)
		if err != nil {
			return fmt.Errorf("listing nouns: %w", err)
		}

		if len(nouns) == 0 {
			fmt.Println("No nouns defined.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPLURAL\tSLUG\tFIELDS\tDESCRIPTION")
		for i := range nouns {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				nouns[i].Name, nouns[i].Plural, nouns[i].Slug, len(nouns[i].Schema), truncate(nouns[i].Description, 50))
		}
		w.Flush()

		return nil
	})
}

func newNounDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Show a noun's full definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNounDescribe(cmd, args[0])
		},
	}
}

func runNounDescribe(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()

	return withStore(func(d *Deps) error {
		noun, err := d.Store.GetNoun(ctx, name)
		if err != nil {
			return fmt.Errorf("getting noun: %w", err)
		}
		if noun == nil {
			return fmt.Errorf("noun %q is not defined", name)
		}
		return printJSON(noun)
	})
}
