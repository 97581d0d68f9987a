package lookup

import (
	"context"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// GetSparesDefinition returns the configured spares definition, or nil
// when none has been set.
func (s *Service) GetSparesDefinition(ctx context.Context) (*types.SparesDefinition, error) {
	return s.store.GetSparesDefinition(ctx)
}

// SetSparesDefinition stores the spares definition and recomputes
// number_of_spares for every catalogue item in the same transaction.
// When a definition already exists its settings row is write-locked
// first, so item-driven recomputes running concurrently serialise
// against the definition change.
func (s *Service) SetSparesDefinition(ctx context.Context, in types.SparesDefinition) (*types.SparesDefinition, error) {
	if len(in.UsageStatusIDs) == 0 {
		return nil, errs.New(errs.InvalidAction, "a spares definition needs at least one usage status")
	}
	statusIDs, err := dedupeIDs(in.UsageStatusIDs)
	if err != nil {
		return nil, err
	}
	typeIDs, err := dedupeIDs(in.SystemTypeIDs)
	if err != nil {
		return nil, err
	}
	def := &types.SparesDefinition{UsageStatusIDs: statusIDs, SystemTypeIDs: typeIDs}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cur, err := tx.GetSparesDefinition(ctx)
		if err != nil {
			return err
		}
		if cur != nil {
			if err := tx.WriteLockSetting(ctx, types.SettingSparesDefinition); err != nil {
				return err
			}
		}

		for _, id := range def.UsageStatusIDs {
			if _, err := tx.GetUsageStatus(ctx, id); err != nil {
				return err
			}
		}
		for _, id := range def.SystemTypeIDs {
			if _, err := tx.GetSystemType(ctx, id); err != nil {
				return err
			}
		}

		if err := tx.SetSparesDefinition(ctx, def); err != nil {
			return err
		}

		ids, err := tx.ListCatalogueItemIDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.WriteLockCatalogueItem(ctx, id); err != nil {
				return err
			}
			if _, err := tx.RecomputeNumberOfSpares(ctx, id, def); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// dedupeIDs parses and deduplicates an id list, preserving order.
func dedupeIDs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
