package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/types"
)

var sparesCmd = &cobra.Command{
	Use:     "spares",
	GroupID: "reference",
	Short:   "Manage the spares definition",
	Long: `The spares definition declares which usage statuses count an item as a
spare, optionally restricted to items inside systems of the listed
types. Setting it recalculates the spares count of every catalogue
item.`,
}

var sparesGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the spares definition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			def, err := s.lookups.GetSparesDefinition(ctx)
			if err != nil {
				return err
			}
			if def == nil {
				fmt.Println("No spares definition configured")
				return nil
			}
			return outputSparesDefinition(def)
		})
	},
}

var sparesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the spares definition and recalculate all counts",
	Long: `Set the spares definition. Every catalogue item's spares count is
recalculated in the same operation, so this can take a while on large
inventories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, _ := cmd.Flags().GetStringSlice("status")
		systemTypes, _ := cmd.Flags().GetStringSlice("system-type")

		in := types.SparesDefinition{
			UsageStatusIDs: statuses,
			SystemTypeIDs:  systemTypes,
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			def, err := s.lookups.SetSparesDefinition(ctx, in)
			if err != nil {
				return err
			}
			return outputSparesDefinition(def)
		})
	},
}

func outputSparesDefinition(def *types.SparesDefinition) error {
	systemTypes := "-"
	if len(def.SystemTypeIDs) > 0 {
		systemTypes = strings.Join(def.SystemTypeIDs, ", ")
	}
	rows := [][]string{{strings.Join(def.UsageStatusIDs, ", "), systemTypes}}
	return output(def, []string{"SPARE STATUSES", "SYSTEM TYPE SCOPE"}, rows)
}

func init() {
	sparesSetCmd.Flags().StringSlice("status", nil, "usage status ids counting as spare (repeatable)")
	sparesSetCmd.Flags().StringSlice("system-type", nil, "system type ids limiting the count (repeatable)")

	sparesCmd.AddCommand(sparesGetCmd, sparesSetCmd)
	rootCmd.AddCommand(sparesCmd)
}
