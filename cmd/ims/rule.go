package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/lookup"
	"github.com/beamtime/ims/internal/types"
)

var ruleCmd = &cobra.Command{
	Use:     "rule",
	GroupID: "reference",
	Short:   "Manage transition rules",
	Long: `Transition rules govern item lifecycle actions. A creation rule has no
source type; a deletion rule has no destination; a move rule carries
distinct source and destination types. Creation and move rules also fix
the usage status the moved item must carry.`,
}

var ruleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a transition rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := lookup.RuleIn{
			SrcSystemTypeID:  changedString(cmd, "src"),
			DstSystemTypeID:  changedString(cmd, "dst"),
			DstUsageStatusID: changedString(cmd, "status"),
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			r, err := s.lookups.CreateRule(ctx, in)
			if err != nil {
				return err
			}
			return outputRules([]*types.Rule{r})
		})
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transition rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			rules, err := s.lookups.ListRules(ctx)
			if err != nil {
				return err
			}
			return outputRules(rules)
		})
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a transition rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *services) error {
			if err := s.lookups.DeleteRule(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted rule %s\n", args[0])
			return nil
		})
	},
}

// ruleFile is the TOML shape accepted by `rule load`. Types and statuses
// are referenced by value, not id, so rule sets stay portable between
// databases.
type ruleFile struct {
	Rules []ruleSpec `toml:"rules"`
}

type ruleSpec struct {
	Src    string `toml:"src"`
	Dst    string `toml:"dst"`
	Status string `toml:"status"`
}

var ruleLoadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Load transition rules from a TOML file",
	Long: `Load transition rules from a TOML file. System types and usage statuses
are referenced by value; with --create-missing, unknown ones are created
on the fly. Rules that already exist are skipped.

  [[rules]]
  dst = "Storage"
  status = "New"

  [[rules]]
  src = "Storage"
  dst = "Operational"
  status = "In Use"

  [[rules]]
  src = "Operational"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		createMissing, _ := cmd.Flags().GetBool("create-missing")

		var file ruleFile
		if _, err := toml.DecodeFile(args[0], &file); err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if len(file.Rules) == 0 {
			return fmt.Errorf("%s declares no rules", args[0])
		}

		return withServices(cmd, func(ctx context.Context, s *services) error {
			loaded, skipped := 0, 0
			for i, spec := range file.Rules {
				in, err := resolveRuleSpec(ctx, s.lookups, spec, createMissing)
				if err != nil {
					return fmt.Errorf("rule %d: %w", i+1, err)
				}
				_, err = s.lookups.CreateRule(ctx, in)
				switch {
				case err == nil:
					loaded++
				case errs.Is(err, errs.DuplicateRecord):
					skipped++
				default:
					return fmt.Errorf("rule %d: %w", i+1, err)
				}
			}
			fmt.Printf("Loaded %d rules (%d already present)\n", loaded, skipped)
			return nil
		})
	},
}

// resolveRuleSpec turns value references into ids, creating missing
// lookups when asked to.
func resolveRuleSpec(ctx context.Context, lookups *lookup.Service, spec ruleSpec, createMissing bool) (lookup.RuleIn, error) {
	var in lookup.RuleIn
	var err error
	if in.SrcSystemTypeID, err = resolveSystemType(ctx, lookups, spec.Src, createMissing); err != nil {
		return in, err
	}
	if in.DstSystemTypeID, err = resolveSystemType(ctx, lookups, spec.Dst, createMissing); err != nil {
		return in, err
	}
	if in.DstUsageStatusID, err = resolveUsageStatus(ctx, lookups, spec.Status, createMissing); err != nil {
		return in, err
	}
	return in, nil
}

func resolveSystemType(ctx context.Context, lookups *lookup.Service, value string, createMissing bool) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	existing, err := lookups.ListSystemTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range existing {
		if st.Value == value {
			return &st.ID, nil
		}
	}
	if !createMissing {
		return nil, fmt.Errorf("unknown system type %q (use --create-missing)", value)
	}
	st, err := lookups.CreateSystemType(ctx, value)
	if err != nil {
		return nil, err
	}
	return &st.ID, nil
}

func resolveUsageStatus(ctx context.Context, lookups *lookup.Service, value string, createMissing bool) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	existing, err := lookups.ListUsageStatuses(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range existing {
		if st.Value == value {
			return &st.ID, nil
		}
	}
	if !createMissing {
		return nil, fmt.Errorf("unknown usage status %q (use --create-missing)", value)
	}
	st, err := lookups.CreateUsageStatus(ctx, value)
	if err != nil {
		return nil, err
	}
	return &st.ID, nil
}

func outputRules(rules []*types.Rule) error {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		kind := "move"
		switch {
		case r.SrcSystemTypeID == nil:
			kind = "creation"
		case r.DstSystemTypeID == nil:
			kind = "deletion"
		}
		rows = append(rows, []string{
			r.ID, kind, strOrDash(r.SrcSystemTypeID),
			strOrDash(r.DstSystemTypeID), strOrDash(r.DstUsageStatusID),
		})
	}
	return output(rules, []string{"ID", "KIND", "SRC TYPE", "DST TYPE", "DST STATUS"}, rows)
}

func init() {
	ruleCreateCmd.Flags().String("src", "", "source system type id (omit for creation rules)")
	ruleCreateCmd.Flags().String("dst", "", "destination system type id (omit for deletion rules)")
	ruleCreateCmd.Flags().String("status", "", "destination usage status id")

	ruleLoadCmd.Flags().Bool("create-missing", false, "create unknown system types and usage statuses")

	ruleCmd.AddCommand(ruleCreateCmd, ruleListCmd, ruleDeleteCmd, ruleLoadCmd)
	rootCmd.AddCommand(ruleCmd)
}
