package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/types"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	GroupID: "catalogue",
	Short:   "Manage catalogue categories",
	Long: `Catalogue categories form a tree. Leaf categories declare the property
schema their catalogue items must satisfy; non-leaves only group.`,
}

// propertyDef is the JSON shape accepted by --properties and by
// `category property add --from-json`.
type propertyDef struct {
	Name          string               `json:"name"`
	Type          types.PropertyType   `json:"type"`
	UnitID        *string              `json:"unit_id"`
	Mandatory     bool                 `json:"mandatory"`
	AllowedValues *types.AllowedValues `json:"allowed_values"`
	Default       interface{}          `json:"default"`
}

func (d propertyDef) toIn() catalogue.PropertyIn {
	return catalogue.PropertyIn{
		Name:          d.Name,
		Type:          d.Type,
		UnitID:        d.UnitID,
		Mandatory:     d.Mandatory,
		AllowedValues: d.AllowedValues,
		Default:       d.Default,
	}
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a catalogue category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leaf, _ := cmd.Flags().GetBool("leaf")
		propsJSON, _ := cmd.Flags().GetString("properties")

		in := catalogue.CategoryIn{
			Name:     args[0],
			ParentID: changedString(cmd, "parent"),
			IsLeaf:   leaf,
		}
		if propsJSON != "" {
			var defs []propertyDef
			if err := json.Unmarshal([]byte(propsJSON), &defs); err != nil {
				return fmt.Errorf("invalid --properties: %w", err)
			}
			for _, d := range defs {
				in.Properties = append(in.Properties, d.toIn())
			}
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			cat, err := s.catalogue.CreateCategory(ctx, in)
			if err != nil {
				return err
			}
			return outputCategories([]*types.CatalogueCategory{cat})
		})
	},
}

var categoryGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a catalogue category and its schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			cat, err := s.catalogue.GetCategory(ctx, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(cat, nil, nil)
			}
			if err := outputCategories([]*types.CatalogueCategory{cat}); err != nil {
				return err
			}
			if len(cat.Properties) > 0 {
				fmt.Println(renderSchema(cat.Properties))
			}
			return nil
		})
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogue categories",
	Long: `List catalogue categories, optionally filtered by parent.
Pass --parent null to list only root categories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			cats, err := s.catalogue.ListCategories(ctx, changedString(cmd, "parent"))
			if err != nil {
				return err
			}
			return outputCategories(cats)
		})
	},
}

var categoryUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a catalogue category",
	Long: `Update a catalogue category. Renaming regenerates the code. Moving is
done with --parent (pass null to move to the root); converting between
leaf and non-leaf requires the category to be empty.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := catalogue.CategoryPatch{
			Name:   changedString(cmd, "name"),
			IsLeaf: changedBool(cmd, "leaf"),
		}
		if p := changedString(cmd, "parent"); p != nil {
			patch.MoveParent = true
			if *p != "null" {
				patch.ParentID = p
			}
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			cat, err := s.catalogue.UpdateCategory(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return outputCategories([]*types.CatalogueCategory{cat})
		})
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an empty catalogue category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.catalogue.DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted catalogue category %s\n", args[0])
			return nil
		})
	},
}

var categoryBreadcrumbsCmd = &cobra.Command{
	Use:   "breadcrumbs ID",
	Short: "Show a category's ancestry trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			bc, err := s.catalogue.CategoryBreadcrumbs(ctx, args[0])
			if err != nil {
				return err
			}
			return outputBreadcrumbs(bc)
		})
	},
}

var categoryPropertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Manage a leaf category's property schema",
}

var categoryPropertyAddCmd = &cobra.Command{
	Use:   "add CATEGORY_ID NAME",
	Short: "Declare a new property on a leaf category",
	Long: `Declare a new property. The declaration propagates to every catalogue
item and item under the category in one transaction: a mandatory
property therefore requires --default so existing records stay valid.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		propType, _ := cmd.Flags().GetString("type")
		mandatory, _ := cmd.Flags().GetBool("mandatory")

		in := catalogue.PropertyIn{
			Name:      args[1],
			Type:      types.PropertyType(propType),
			UnitID:    changedString(cmd, "unit"),
			Mandatory: mandatory,
		}
		if raw := changedString(cmd, "default"); raw != nil {
			in.Default = parseScalar(*raw)
		}
		if raw := changedString(cmd, "allowed"); raw != nil {
			av, err := parseAllowedValues(*raw)
			if err != nil {
				return err
			}
			in.AllowedValues = av
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			prop, err := s.catalogue.AddProperty(ctx, args[0], in)
			if err != nil {
				return err
			}
			return output(prop, schemaHeaders, [][]string{schemaRow(*prop)})
		})
	},
}

var categoryPropertyUpdateCmd = &cobra.Command{
	Use:   "update CATEGORY_ID PROPERTY_ID",
	Short: "Rename a property or extend its allowed values",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := catalogue.PropertyPatch{
			Name: changedString(cmd, "name"),
		}
		if raw := changedString(cmd, "allowed"); raw != nil {
			av, err := parseAllowedValues(*raw)
			if err != nil {
				return err
			}
			patch.AllowedValues = av
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			prop, err := s.catalogue.UpdateProperty(ctx, args[0], args[1], patch)
			if err != nil {
				return err
			}
			return output(prop, schemaHeaders, [][]string{schemaRow(*prop)})
		})
	},
}

func outputCategories(cats []*types.CatalogueCategory) error {
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{
			c.ID, c.Name, c.Code, strOrDash(c.ParentID),
			yesNo(c.IsLeaf), strconv.Itoa(len(c.Properties)),
		})
	}
	return output(cats, []string{"ID", "NAME", "CODE", "PARENT", "LEAF", "PROPERTIES"}, rows)
}

var schemaHeaders = []string{"ID", "NAME", "TYPE", "UNIT", "MANDATORY", "ALLOWED"}

func schemaRow(p types.CategoryProperty) []string {
	allowed := "-"
	if p.AllowedValues != nil {
		parts := make([]string, 0, len(p.AllowedValues.Values))
		for _, v := range p.AllowedValues.Values {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		allowed = strings.Join(parts, ", ")
	}
	return []string{p.ID, p.Name, string(p.Type), strOrDash(p.Unit), yesNo(p.Mandatory), allowed}
}

func renderSchema(props []types.CategoryProperty) string {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, schemaRow(p))
	}
	return renderTableString(schemaHeaders, rows)
}

func outputBreadcrumbs(bc *types.Breadcrumbs) error {
	if outputFormat == "json" || outputFormat == "yaml" {
		return output(bc, nil, nil)
	}
	names := make([]string, 0, len(bc.Trail))
	for _, e := range bc.Trail {
		names = append(names, e.Name)
	}
	trail := strings.Join(names, " / ")
	if !bc.FullTrail {
		trail = "... / " + trail
	}
	fmt.Println(trail)
	return nil
}

func init() {
	categoryCreateCmd.Flags().String("parent", "", "parent category id")
	categoryCreateCmd.Flags().Bool("leaf", false, "create as a leaf category")
	categoryCreateCmd.Flags().String("properties", "", "property schema as a JSON array (leaf only)")

	categoryListCmd.Flags().String("parent", "", "filter by parent id, or null for roots")

	categoryUpdateCmd.Flags().String("name", "", "new name (regenerates the code)")
	categoryUpdateCmd.Flags().Bool("leaf", false, "set leafness")
	categoryUpdateCmd.Flags().String("parent", "", "new parent id, or null for the root")

	categoryPropertyAddCmd.Flags().String("type", "string", "property type: string, number or boolean")
	categoryPropertyAddCmd.Flags().String("unit", "", "unit id")
	categoryPropertyAddCmd.Flags().Bool("mandatory", false, "require a value on every record")
	categoryPropertyAddCmd.Flags().String("default", "", "value given to existing records (JSON scalar)")
	categoryPropertyAddCmd.Flags().String("allowed", "", "allowed values as a JSON array")

	categoryPropertyUpdateCmd.Flags().String("name", "", "new property name")
	categoryPropertyUpdateCmd.Flags().String("allowed", "", "extended allowed values as a JSON array")

	categoryPropertyCmd.AddCommand(categoryPropertyAddCmd, categoryPropertyUpdateCmd)
	categoryCmd.AddCommand(categoryCreateCmd, categoryGetCmd, categoryListCmd,
		categoryUpdateCmd, categoryDeleteCmd, categoryBreadcrumbsCmd, categoryPropertyCmd)
	rootCmd.AddCommand(categoryCmd)
}
