package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/types"
)

var unitCmd = &cobra.Command{
	Use:     "unit",
	GroupID: "reference",
	Short:   "Manage measurement units",
}

var unitCreateCmd = &cobra.Command{
	Use:   "create VALUE",
	Short: "Create a unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			u, err := s.lookups.CreateUnit(ctx, args[0])
			if err != nil {
				return err
			}
			return outputValueRows([]valueRow{{u.ID, u.Value, u.Code}})
		})
	},
}

var unitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			units, err := s.lookups.ListUnits(ctx)
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(units, nil, nil)
			}
			rows := make([]valueRow, 0, len(units))
			for _, u := range units {
				rows = append(rows, valueRow{u.ID, u.Value, u.Code})
			}
			return outputValueRows(rows)
		})
	},
}

var unitDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a unit not referenced by any property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.lookups.DeleteUnit(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted unit %s\n", args[0])
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "reference",
	Short:   "Manage usage statuses",
}

var statusCreateCmd = &cobra.Command{
	Use:   "create VALUE",
	Short: "Create a usage status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			st, err := s.lookups.CreateUsageStatus(ctx, args[0])
			if err != nil {
				return err
			}
			return outputValueRows([]valueRow{{st.ID, st.Value, st.Code}})
		})
	},
}

var statusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List usage statuses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			statuses, err := s.lookups.ListUsageStatuses(ctx)
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(statuses, nil, nil)
			}
			rows := make([]valueRow, 0, len(statuses))
			for _, st := range statuses {
				rows = append(rows, valueRow{st.ID, st.Value, st.Code})
			}
			return outputValueRows(rows)
		})
	},
}

var statusDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a usage status not referenced anywhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.lookups.DeleteUsageStatus(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted usage status %s\n", args[0])
			return nil
		})
	},
}

var systemTypeCmd = &cobra.Command{
	Use:     "system-type",
	GroupID: "reference",
	Short:   "Manage system types",
}

var systemTypeCreateCmd = &cobra.Command{
	Use:   "create VALUE",
	Short: "Create a system type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			st, err := s.lookups.CreateSystemType(ctx, args[0])
			if err != nil {
				return err
			}
			return outputValueRows([]valueRow{{st.ID, st.Value, ""}})
		})
	},
}

var systemTypeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List system types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			typesList, err := s.lookups.ListSystemTypes(ctx)
			if err != nil {
				return err
			}
			if outputFormat != "table" && outputFormat != "" {
				return output(typesList, nil, nil)
			}
			rows := make([]valueRow, 0, len(typesList))
			for _, st := range typesList {
				rows = append(rows, valueRow{st.ID, st.Value, ""})
			}
			return outputValueRows(rows)
		})
	},
}

var systemTypeDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a system type not referenced anywhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.lookups.DeleteSystemType(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted system type %s\n", args[0])
			return nil
		})
	},
}

var manufacturerCmd = &cobra.Command{
	Use:     "manufacturer",
	GroupID: "reference",
	Short:   "Manage manufacturers",
}

var manufacturerCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a manufacturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addressLine, _ := cmd.Flags().GetString("address-line")
		country, _ := cmd.Flags().GetString("country")
		postcode, _ := cmd.Flags().GetString("postcode")

		in := lookup.ManufacturerIn{
			Name:      args[0],
			URL:       changedString(cmd, "url"),
			Telephone: changedString(cmd, "telephone"),
			Address: types.Address{
				AddressLine: addressLine,
				Town:        changedString(cmd, "town"),
				County:      changedString(cmd, "county"),
				Country:     country,
				Postcode:    postcode,
			},
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			m, err := s.lookups.CreateManufacturer(ctx, in)
			if err != nil {
				return err
			}
			return outputManufacturers([]*types.Manufacturer{m})
		})
	},
}

var manufacturerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List manufacturers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			ms, err := s.lookups.ListManufacturers(ctx)
			if err != nil {
				return err
			}
			return outputManufacturers(ms)
		})
	},
}

var manufacturerUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a manufacturer",
	Long: `Update a manufacturer. When any address flag is given the whole address
is replaced, so the mandatory parts must be supplied again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := lookup.ManufacturerPatch{
			Name:      changedString(cmd, "name"),
			URL:       changedString(cmd, "url"),
			Telephone: changedString(cmd, "telephone"),
		}
		addressFlags := []string{"address-line", "town", "county", "country", "postcode"}
		for _, f := range addressFlags {
			if cmd.Flags().Changed(f) {
				addressLine, _ := cmd.Flags().GetString("address-line")
				country, _ := cmd.Flags().GetString("country")
				postcode, _ := cmd.Flags().GetString("postcode")
				patch.Address = &types.Address{
					AddressLine: addressLine,
					Town:        changedString(cmd, "town"),
					County:      changedString(cmd, "county"),
					Country:     country,
					Postcode:    postcode,
				}
				break
			}
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			m, err := s.lookups.UpdateManufacturer(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return outputManufacturers([]*types.Manufacturer{m})
		})
	},
}

var manufacturerDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a manufacturer without catalogue items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.lookups.DeleteManufacturer(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted manufacturer %s\n", args[0])
			return nil
		})
	},
}

// valueRow is the table form shared by units, statuses and system types.
type valueRow struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Code  string `json:"code,omitempty"`
}

func outputValueRows(rows []valueRow) error {
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		code := r.Code
		if code == "" {
			code = "-"
		}
		table = append(table, []string{r.ID, r.Value, code})
	}
	return output(rows, []string{"ID", "VALUE", "CODE"}, table)
}

func outputManufacturers(ms []*types.Manufacturer) error {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{
			m.ID, m.Name, m.Code, m.Address.Country, m.Address.Postcode, strOrDash(m.URL),
		})
	}
	return output(ms, []string{"ID", "NAME", "CODE", "COUNTRY", "POSTCODE", "URL"}, rows)
}

func init() {
	for _, c := range []*cobra.Command{manufacturerCreateCmd, manufacturerUpdateCmd} {
		c.Flags().String("url", "", "manufacturer website")
		c.Flags().String("telephone", "", "contact telephone number")
		c.Flags().String("address-line", "", "street address")
		c.Flags().String("town", "", "town")
		c.Flags().String("county", "", "county")
		c.Flags().String("country", "", "country")
		c.Flags().String("postcode", "", "postcode")
	}
	manufacturerUpdateCmd.Flags().String("name", "", "new name (regenerates the code)")

	unitCmd.AddCommand(unitCreateCmd, unitListCmd, unitDeleteCmd)
	statusCmd.AddCommand(statusCreateCmd, statusListCmd, statusDeleteCmd)
	systemTypeCmd.AddCommand(systemTypeCreateCmd, systemTypeListCmd, systemTypeDeleteCmd)
	manufacturerCmd.AddCommand(manufacturerCreateCmd, manufacturerListCmd,
		manufacturerUpdateCmd, manufacturerDeleteCmd)
	rootCmd.AddCommand(unitCmd, statusCmd, systemTypeCmd, manufacturerCmd)
}
