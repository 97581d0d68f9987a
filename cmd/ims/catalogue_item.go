package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/types"
)

var catalogueItemCmd = &cobra.Command{
	Use:     "catalogue-item",
	GroupID: "catalogue",
	Short:   "Manage catalogue items (part designs)",
	Long: `Catalogue items describe part designs: the manufacturer, cost, and the
property values satisfying their leaf category's schema. Physical units
of a design are items.`,
}

var catalogueItemCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a catalogue item in a leaf category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		manufacturer, _ := cmd.Flags().GetString("manufacturer")
		cost, _ := cmd.Flags().GetFloat64("cost")
		days, _ := cmd.Flags().GetFloat64("days-to-replace")
		obsolete, _ := cmd.Flags().GetBool("obsolete")
		propPairs, _ := cmd.Flags().GetStringArray("property")

		props, err := parsePropertyFlags(propPairs)
		if err != nil {
			return err
		}
		in := catalogue.ItemIn{
			CatalogueCategoryID:                category,
			ManufacturerID:                     manufacturer,
			Name:                               args[0],
			Description:                        changedString(cmd, "description"),
			CostGBP:                            cost,
			DaysToReplace:                      days,
			DrawingLink:                        changedString(cmd, "drawing-link"),
			DrawingNumber:                      changedString(cmd, "drawing-number"),
			ModelNumber:                        changedString(cmd, "model-number"),
			IsObsolete:                         obsolete,
			ObsoleteReason:                     changedString(cmd, "obsolete-reason"),
			ObsoleteReplacementCatalogueItemID: changedString(cmd, "obsolete-replacement"),
			Notes:                              changedString(cmd, "notes"),
			Properties:                         props,
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			ci, err := s.catalogue.CreateItem(ctx, in)
			if err != nil {
				return err
			}
			return outputCatalogueItems([]*types.CatalogueItem{ci})
		})
	},
}

var catalogueItemGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a catalogue item and its properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			ci, err := s.catalogue.GetItem(ctx, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(ci, nil, nil)
			}
			if err := outputCatalogueItems([]*types.CatalogueItem{ci}); err != nil {
				return err
			}
			if len(ci.Properties) > 0 {
				fmt.Println(renderProperties(ci.Properties))
			}
			return nil
		})
	},
}

var catalogueItemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogue items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			items, err := s.catalogue.ListItems(ctx, changedString(cmd, "category"))
			if err != nil {
				return err
			}
			return outputCatalogueItems(items)
		})
	},
}

var catalogueItemUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a catalogue item",
	Long: `Update a catalogue item. Changing the category or the properties is
refused while physical items of the design exist; moving to a category
with a different schema requires supplying a full new property set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		propPairs, _ := cmd.Flags().GetStringArray("property")
		props, err := parsePropertyFlags(propPairs)
		if err != nil {
			return err
		}
		patch := catalogue.ItemPatch{
			CatalogueCategoryID:                changedString(cmd, "category"),
			ManufacturerID:                     changedString(cmd, "manufacturer"),
			Name:                               changedString(cmd, "name"),
			Description:                        changedString(cmd, "description"),
			CostGBP:                            changedFloat64(cmd, "cost"),
			DaysToReplace:                      changedFloat64(cmd, "days-to-replace"),
			DrawingLink:                        changedString(cmd, "drawing-link"),
			DrawingNumber:                      changedString(cmd, "drawing-number"),
			ModelNumber:                        changedString(cmd, "model-number"),
			IsObsolete:                         changedBool(cmd, "obsolete"),
			ObsoleteReason:                     changedString(cmd, "obsolete-reason"),
			ObsoleteReplacementCatalogueItemID: changedString(cmd, "obsolete-replacement"),
			Notes:                              changedString(cmd, "notes"),
			Properties:                         props,
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			ci, err := s.catalogue.UpdateItem(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return outputCatalogueItems([]*types.CatalogueItem{ci})
		})
	},
}

var catalogueItemDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a catalogue item without physical items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.catalogue.DeleteItem(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted catalogue item %s\n", args[0])
			return nil
		})
	},
}

func outputCatalogueItems(items []*types.CatalogueItem) error {
	rows := make([][]string, 0, len(items))
	for _, ci := range items {
		spares := "-"
		if ci.NumberOfSpares != nil {
			spares = strconv.Itoa(*ci.NumberOfSpares)
		}
		rows = append(rows, []string{
			ci.ID, ci.Name, ci.CatalogueCategoryID,
			fmt.Sprintf("%.2f", ci.CostGBP), yesNo(ci.IsObsolete), spares,
		})
	}
	return output(items, []string{"ID", "NAME", "CATEGORY", "COST (GBP)", "OBSOLETE", "SPARES"}, rows)
}

func renderProperties(props []types.PropertyValue) string {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		value := "-"
		if p.Value != nil {
			value = fmt.Sprintf("%v", p.Value)
		}
		rows = append(rows, []string{p.Name, value, strOrDash(p.Unit)})
	}
	return renderTableString([]string{"PROPERTY", "VALUE", "UNIT"}, rows)
}

func init() {
	for _, c := range []*cobra.Command{catalogueItemCreateCmd, catalogueItemUpdateCmd} {
		c.Flags().String("category", "", "leaf catalogue category id")
		c.Flags().String("manufacturer", "", "manufacturer id")
		c.Flags().String("description", "", "free-text description")
		c.Flags().Float64("cost", 0, "cost in GBP")
		c.Flags().Float64("days-to-replace", 0, "estimated replacement lead time in days")
		c.Flags().String("drawing-link", "", "link to the technical drawing")
		c.Flags().String("drawing-number", "", "drawing number")
		c.Flags().String("model-number", "", "manufacturer model number")
		c.Flags().Bool("obsolete", false, "mark the design obsolete")
		c.Flags().String("obsolete-reason", "", "why the design is obsolete")
		c.Flags().String("obsolete-replacement", "", "catalogue item id of the replacement design")
		c.Flags().String("notes", "", "free-text notes")
		c.Flags().StringArray("property", nil, "property value as name=value (repeatable)")
	}
	catalogueItemUpdateCmd.Flags().String("name", "", "new name")

	catalogueItemListCmd.Flags().String("category", "", "filter by catalogue category id")

	catalogueItemCmd.AddCommand(catalogueItemCreateCmd, catalogueItemGetCmd,
		catalogueItemListCmd, catalogueItemUpdateCmd, catalogueItemDeleteCmd)
	rootCmd.AddCommand(catalogueItemCmd)
}
