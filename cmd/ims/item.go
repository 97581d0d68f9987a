package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/item"
	"github.com/beamtime/ims/internal/types"
)

var itemCmd = &cobra.Command{
	Use:     "item",
	GroupID: "inventory",
	Short:   "Manage physical items",
	Long: `Items are physical units of a catalogue item design. Every item lives
in a system under a usage status; creating, moving and deleting items
is permitted only where a transition rule allows it.`,
}

var itemCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an item in a system",
	Long: `Create an item. A creation rule for the destination system's type and
the chosen usage status must exist. Unsupplied properties inherit the
catalogue item's values.

With --interactive the destination and status are picked from a form.
Date flags accept ISO dates or casual English ("next friday").`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogueItemID, _ := cmd.Flags().GetString("catalogue-item")
		systemID, _ := cmd.Flags().GetString("system")
		statusID, _ := cmd.Flags().GetString("status")
		defective, _ := cmd.Flags().GetBool("defective")
		interactive, _ := cmd.Flags().GetBool("interactive")
		propPairs, _ := cmd.Flags().GetStringArray("property")

		props, err := parsePropertyFlags(propPairs)
		if err != nil {
			return err
		}
		warranty, err := changedDate(cmd, "warranty-end")
		if err != nil {
			return err
		}
		delivered, err := changedDate(cmd, "delivered")
		if err != nil {
			return err
		}

		in := item.In{
			CatalogueItemID:     catalogueItemID,
			SystemID:            systemID,
			UsageStatusID:       statusID,
			IsDefective:         defective,
			SerialNumber:        changedString(cmd, "serial"),
			AssetNumber:         changedString(cmd, "asset"),
			PurchaseOrderNumber: changedString(cmd, "purchase-order"),
			WarrantyEndDate:     warranty,
			DeliveredDate:       delivered,
			Notes:               changedString(cmd, "notes"),
			Properties:          props,
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			if interactive {
				if err := runItemForm(ctx, s, &in); err != nil {
					return err
				}
			}
			it, err := s.items.Create(ctx, in)
			if err != nil {
				return err
			}
			return outputItems([]*types.Item{it})
		})
	},
}

// runItemForm fills in the destination, status and identifying numbers
// through a terminal form, pre-seeded with any flag values.
func runItemForm(ctx context.Context, s *services, in *item.In) error {
	systems, err := s.systems.List(ctx, nil)
	if err != nil {
		return err
	}
	statuses, err := s.lookups.ListUsageStatuses(ctx)
	if err != nil {
		return err
	}
	if len(systems) == 0 || len(statuses) == 0 {
		return errors.New("interactive creation needs at least one system and one usage status")
	}

	systemOptions := make([]huh.Option[string], 0, len(systems))
	for _, sys := range systems {
		systemOptions = append(systemOptions, huh.NewOption(sys.Name, sys.ID))
	}
	statusOptions := make([]huh.Option[string], 0, len(statuses))
	for _, st := range statuses {
		statusOptions = append(statusOptions, huh.NewOption(st.Value, st.ID))
	}

	var serial, asset, po string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Destination system").
				Options(systemOptions...).
				Value(&in.SystemID),
			huh.NewSelect[string]().
				Title("Usage status").
				Options(statusOptions...).
				Value(&in.UsageStatusID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Serial number").
				Value(&serial),
			huh.NewInput().
				Title("Asset number").
				Value(&asset),
			huh.NewInput().
				Title("Purchase order number").
				Value(&po),
			huh.NewConfirm().
				Title("Defective?").
				Value(&in.IsDefective),
		),
	)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return errors.New("cancelled")
		}
		return err
	}

	if serial != "" {
		in.SerialNumber = &serial
	}
	if asset != "" {
		in.AssetNumber = &asset
	}
	if po != "" {
		in.PurchaseOrderNumber = &po
	}
	return nil
}

var itemGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show an item and its properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			it, err := s.items.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(it, nil, nil)
			}
			if err := outputItems([]*types.Item{it}); err != nil {
				return err
			}
			if len(it.Properties) > 0 {
				fmt.Println(renderProperties(it.Properties))
			}
			return nil
		})
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			items, err := s.items.List(ctx,
				changedString(cmd, "system"), changedString(cmd, "catalogue-item"))
			if err != nil {
				return err
			}
			return outputItems(items)
		})
	},
}

var itemUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update an item",
	Long: `Update an item. Moving to a system of a different type requires a move
rule for the item's (possibly changed) usage status; a status change
within the same system needs no rule. The catalogue item reference is
immutable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		propPairs, _ := cmd.Flags().GetStringArray("property")
		props, err := parsePropertyFlags(propPairs)
		if err != nil {
			return err
		}
		warranty, err := changedDate(cmd, "warranty-end")
		if err != nil {
			return err
		}
		delivered, err := changedDate(cmd, "delivered")
		if err != nil {
			return err
		}

		patch := item.Patch{
			SystemID:            changedString(cmd, "system"),
			UsageStatusID:       changedString(cmd, "status"),
			IsDefective:         changedBool(cmd, "defective"),
			SerialNumber:        changedString(cmd, "serial"),
			AssetNumber:         changedString(cmd, "asset"),
			PurchaseOrderNumber: changedString(cmd, "purchase-order"),
			WarrantyEndDate:     warranty,
			DeliveredDate:       delivered,
			Notes:               changedString(cmd, "notes"),
			Properties:          props,
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			it, err := s.items.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return outputItems([]*types.Item{it})
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an item",
	Long:  `Delete an item. A deletion rule for its system's type must exist.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.items.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted item %s\n", args[0])
			return nil
		})
	},
}

func outputItems(items []*types.Item) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID, it.CatalogueItemID, it.SystemID, it.UsageStatusID,
			strOrDash(it.SerialNumber), yesNo(it.IsDefective), dateOrDash(it.WarrantyEndDate),
		})
	}
	return output(items, []string{"ID", "CATALOGUE ITEM", "SYSTEM", "STATUS", "SERIAL", "DEFECTIVE", "WARRANTY END"}, rows)
}

func init() {
	itemCreateCmd.Flags().String("catalogue-item", "", "catalogue item (design) id")
	itemCreateCmd.Flags().Bool("interactive", false, "pick destination and status from a form")

	for _, c := range []*cobra.Command{itemCreateCmd, itemUpdateCmd} {
		c.Flags().String("system", "", "destination system id")
		c.Flags().String("status", "", "usage status id")
		c.Flags().Bool("defective", false, "mark the item defective")
		c.Flags().String("serial", "", "serial number")
		c.Flags().String("asset", "", "asset number")
		c.Flags().String("purchase-order", "", "purchase order number")
		c.Flags().String("warranty-end", "", "warranty end date")
		c.Flags().String("delivered", "", "delivery date")
		c.Flags().String("notes", "", "free-text notes")
		c.Flags().StringArray("property", nil, "property value as name=value (repeatable)")
	}

	itemListCmd.Flags().String("system", "", "filter by system id")
	itemListCmd.Flags().String("catalogue-item", "", "filter by catalogue item id")

	itemCmd.AddCommand(itemCreateCmd, itemGetCmd, itemListCmd, itemUpdateCmd, itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}
