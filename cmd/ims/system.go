package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/system"
	"github.com/beamtime/ims/internal/types"
)

var systemCmd = &cobra.Command{
	Use:     "system",
	GroupID: "inventory",
	Short:   "Manage systems",
	Long: `Systems are the places items live: store rooms, beamlines, instruments.
They form a tree; every system in a tree shares its parent's type, and
item movement between types is governed by transition rules.`,
}

var systemCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeID, _ := cmd.Flags().GetString("type")
		importance, _ := cmd.Flags().GetString("importance")

		in := system.In{
			Name:        args[0],
			ParentID:    changedString(cmd, "parent"),
			TypeID:      typeID,
			Description: changedString(cmd, "description"),
			Location:    changedString(cmd, "location"),
			Owner:       changedString(cmd, "owner"),
			Importance:  types.Importance(importance),
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			sys, err := s.systems.Create(ctx, in)
			if err != nil {
				return err
			}
			return outputSystems([]*types.System{sys})
		})
	},
}

var systemGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			sys, err := s.systems.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return outputSystems([]*types.System{sys})
		})
	},
}

var systemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List systems",
	Long: `List systems, optionally filtered by parent.
Pass --parent null to list only root systems.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			systems, err := s.systems.List(ctx, changedString(cmd, "parent"))
			if err != nil {
				return err
			}
			return outputSystems(systems)
		})
	},
}

var systemUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a system",
	Long: `Update a system. Moving is done with --parent (pass null to move to the
root); changing the type requires the system to have no children and no
items, and must keep parent and children type-consistent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := system.Patch{
			Name:        changedString(cmd, "name"),
			TypeID:      changedString(cmd, "type"),
			Description: changedString(cmd, "description"),
			Location:    changedString(cmd, "location"),
			Owner:       changedString(cmd, "owner"),
		}
		if imp := changedString(cmd, "importance"); imp != nil {
			i := types.Importance(*imp)
			patch.Importance = &i
		}
		if p := changedString(cmd, "parent"); p != nil {
			patch.MoveParent = true
			if *p != "null" {
				patch.ParentID = p
			}
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			sys, err := s.systems.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return outputSystems([]*types.System{sys})
		})
	},
}

var systemDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an empty system",
	Long: `Delete a system with no child systems and no items. When an object
storage collaborator is configured its attachments and images are
removed afterwards; a cleanup failure is reported but the deletion
stands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.systems.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted system %s\n", args[0])
			return nil
		})
	},
}

var systemBreadcrumbsCmd = &cobra.Command{
	Use:   "breadcrumbs ID",
	Short: "Show a system's ancestry trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			bc, err := s.systems.Breadcrumbs(ctx, args[0])
			if err != nil {
				return err
			}
			return outputBreadcrumbs(bc)
		})
	},
}

func outputSystems(systems []*types.System) error {
	rows := make([][]string, 0, len(systems))
	for _, sys := range systems {
		rows = append(rows, []string{
			sys.ID, sys.Name, sys.TypeID, strOrDash(sys.ParentID),
			string(sys.Importance), strOrDash(sys.Location), strOrDash(sys.Owner),
		})
	}
	return output(systems, []string{"ID", "NAME", "TYPE", "PARENT", "IMPORTANCE", "LOCATION", "OWNER"}, rows)
}

func init() {
	systemCreateCmd.Flags().String("parent", "", "parent system id")
	systemCreateCmd.Flags().String("type", "", "system type id (must match the parent's)")
	systemCreateCmd.Flags().String("importance", "medium", "importance: low, medium or high")

	systemUpdateCmd.Flags().String("name", "", "new name (regenerates the code)")
	systemUpdateCmd.Flags().String("parent", "", "new parent id, or null for the root")
	systemUpdateCmd.Flags().String("type", "", "new system type id")
	systemUpdateCmd.Flags().String("importance", "", "importance: low, medium or high")

	for _, c := range []*cobra.Command{systemCreateCmd, systemUpdateCmd} {
		c.Flags().String("description", "", "free-text description")
		c.Flags().String("location", "", "physical location")
		c.Flags().String("owner", "", "responsible person or group")
	}

	systemListCmd.Flags().String("parent", "", "filter by parent id, or null for roots")

	systemCmd.AddCommand(systemCreateCmd, systemGetCmd, systemListCmd,
		systemUpdateCmd, systemDeleteCmd, systemBreadcrumbsCmd)
	rootCmd.AddCommand(systemCmd)
}
