// Package item implements the physical item population: creation,
// movement and deletion validated against the transition rules, with the
// spares recompute kept consistent under catalogue-item write-locks.
package item

import (
	"context"
	"time"

	"github.com/beamtime/ims/internal/catalogue"
	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// Service owns item operations.
type Service struct {
	store storage.Storage
	clock func() time.Time

	// recompute gates the spares recompute on item lifecycle changes.
	// When false, number_of_spares goes stale until the next definition
	// update.
	recompute bool
}

// NewService returns an item service over the given storage.
func NewService(store storage.Storage, sparesRecompute bool) *Service {
	return &Service{store: store, clock: time.Now, recompute: sparesRecompute}
}

func parseID(raw string) (string, error) {
	id, err := idgen.Parse(raw)
	if err != nil {
		return "", errs.Wrap(errs.InvalidID, "invalid id", err)
	}
	return id, nil
}

// In is the input for creating an item.
type In struct {
	CatalogueItemID     string
	SystemID            string
	UsageStatusID       string
	IsDefective         bool
	SerialNumber        *string
	AssetNumber         *string
	PurchaseOrderNumber *string
	WarrantyEndDate     *time.Time
	DeliveredDate       *time.Time
	Notes               *string
	Properties          []catalogue.ValueIn
}

// Patch is a partial item update. The catalogue item reference is
// immutable; everything else follows the nil-is-unchanged convention. A
// non-nil Properties slice replaces the stored values after revalidation.
type Patch struct {
	SystemID            *string
	UsageStatusID       *string
	IsDefective         *bool
	SerialNumber        *string
	AssetNumber         *string
	PurchaseOrderNumber *string
	WarrantyEndDate     *time.Time
	DeliveredDate       *time.Time
	Notes               *string
	Properties          []catalogue.ValueIn
}

// sparesDefinition returns the active definition, or nil when spares
// recomputing is off or unconfigured.
func (s *Service) sparesDefinition(ctx context.Context, tx storage.Transaction) (*types.SparesDefinition, error) {
	if !s.recompute {
		return nil, nil
	}
	def, err := tx.GetSparesDefinition(ctx)
	if err != nil {
		return nil, err
	}
	if def == nil || len(def.UsageStatusIDs) == 0 {
		return nil, nil
	}
	return def, nil
}

// Create creates an item. Admissible only when a creation rule exists
// for the destination system's type and the requested usage status.
// Unsupplied non-mandatory properties default to the owning catalogue
// item's values.
func (s *Service) Create(ctx context.Context, in In) (*types.Item, error) {
	catalogueItemID, err := parseID(in.CatalogueItemID)
	if err != nil {
		return nil, err
	}
	systemID, err := parseID(in.SystemID)
	if err != nil {
		return nil, err
	}
	usageStatusID, err := parseID(in.UsageStatusID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	it := &types.Item{
		ID:                  idgen.New(),
		CatalogueItemID:     catalogueItemID,
		SystemID:            systemID,
		UsageStatusID:       usageStatusID,
		IsDefective:         in.IsDefective,
		SerialNumber:        in.SerialNumber,
		AssetNumber:         in.AssetNumber,
		PurchaseOrderNumber: in.PurchaseOrderNumber,
		WarrantyEndDate:     in.WarrantyEndDate,
		DeliveredDate:       in.DeliveredDate,
		Notes:               in.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		ci, err := tx.GetCatalogueItem(ctx, catalogueItemID)
		if err != nil {
			return err
		}
		sys, err := tx.GetSystem(ctx, systemID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUsageStatus(ctx, usageStatusID); err != nil {
			return err
		}

		ok, err := tx.RuleExists(ctx, nil, &sys.TypeID, &usageStatusID)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.InvalidAction, "no transition rule permits creating this item in the destination system")
		}

		cat, err := tx.GetCategory(ctx, ci.CatalogueCategoryID)
		if err != nil {
			return err
		}
		props, err := catalogue.ResolveValues(cat.Properties, in.Properties, defaultsFrom(ci))
		if err != nil {
			return err
		}
		it.Properties = props

		def, err := s.sparesDefinition(ctx, tx)
		if err != nil {
			return err
		}
		if def != nil {
			// Lock before the insert so the recompute input is stable.
			if err := tx.WriteLockCatalogueItem(ctx, catalogueItemID); err != nil {
				return err
			}
		}

		if err := tx.CreateItem(ctx, it); err != nil {
			return err
		}

		if def != nil {
			if _, err := tx.RecomputeNumberOfSpares(ctx, catalogueItemID, def); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Get fetches an item by id.
func (s *Service) Get(ctx context.Context, rawID string) (*types.Item, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetItem(ctx, id)
}

// List lists items, optionally filtered by system and/or catalogue item.
// An unparseable filter id yields an empty list.
func (s *Service) List(ctx context.Context, systemID, catalogueItemID *string) ([]*types.Item, error) {
	var filter storage.ItemFilter
	if systemID != nil {
		id, err := idgen.Parse(*systemID)
		if err != nil {
			return []*types.Item{}, nil
		}
		filter.SystemID = &id
	}
	if catalogueItemID != nil {
		id, err := idgen.Parse(*catalogueItemID)
		if err != nil {
			return []*types.Item{}, nil
		}
		filter.CatalogueItemID = &id
	}
	return s.store.ListItems(ctx, filter)
}

// Update applies a partial update. A move between systems of different
// types needs a matching move rule for the item's (possibly updated)
// usage status. Status changes and cross-type moves recompute the owning
// catalogue item's spares count in the same transaction.
func (s *Service) Update(ctx context.Context, rawID string, patch Patch) (*types.Item, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var out *types.Item
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		it, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}

		newStatusID := it.UsageStatusID
		statusChanged := false
		if patch.UsageStatusID != nil {
			sid, err := parseID(*patch.UsageStatusID)
			if err != nil {
				return err
			}
			if sid != it.UsageStatusID {
				if _, err := tx.GetUsageStatus(ctx, sid); err != nil {
					return err
				}
				newStatusID = sid
				statusChanged = true
			}
		}

		crossTypeMove := false
		if patch.SystemID != nil {
			newSystemID, err := parseID(*patch.SystemID)
			if err != nil {
				return err
			}
			if newSystemID != it.SystemID {
				oldSys, err := tx.GetSystem(ctx, it.SystemID)
				if err != nil {
					return err
				}
				newSys, err := tx.GetSystem(ctx, newSystemID)
				if err != nil {
					return err
				}
				if oldSys.TypeID != newSys.TypeID {
					ok, err := tx.RuleExists(ctx, &oldSys.TypeID, &newSys.TypeID, &newStatusID)
					if err != nil {
						return err
					}
					if !ok {
						return errs.New(errs.InvalidAction, "no transition rule permits moving this item to the destination system")
					}
					crossTypeMove = true
				}
				it.SystemID = newSystemID
			}
		}
		it.UsageStatusID = newStatusID

		if patch.Properties != nil {
			ci, err := tx.GetCatalogueItem(ctx, it.CatalogueItemID)
			if err != nil {
				return err
			}
			cat, err := tx.GetCategory(ctx, ci.CatalogueCategoryID)
			if err != nil {
				return err
			}
			props, err := catalogue.ResolveValues(cat.Properties, patch.Properties, defaultsFrom(ci))
			if err != nil {
				return err
			}
			it.Properties = props
		}

		if patch.IsDefective != nil {
			it.IsDefective = *patch.IsDefective
		}
		if patch.SerialNumber != nil {
			it.SerialNumber = patch.SerialNumber
		}
		if patch.AssetNumber != nil {
			it.AssetNumber = patch.AssetNumber
		}
		if patch.PurchaseOrderNumber != nil {
			it.PurchaseOrderNumber = patch.PurchaseOrderNumber
		}
		if patch.WarrantyEndDate != nil {
			it.WarrantyEndDate = patch.WarrantyEndDate
		}
		if patch.DeliveredDate != nil {
			it.DeliveredDate = patch.DeliveredDate
		}
		if patch.Notes != nil {
			it.Notes = patch.Notes
		}

		var def *types.SparesDefinition
		if statusChanged || crossTypeMove {
			def, err = s.sparesDefinition(ctx, tx)
			if err != nil {
				return err
			}
			if def != nil {
				if err := tx.WriteLockCatalogueItem(ctx, it.CatalogueItemID); err != nil {
					return err
				}
			}
		}

		it.UpdatedAt = s.clock().UTC()
		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}

		if def != nil {
			if _, err := tx.RecomputeNumberOfSpares(ctx, it.CatalogueItemID, def); err != nil {
				return err
			}
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes an item. Admissible only when a deletion rule exists
// for the containing system's type.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		it, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		sys, err := tx.GetSystem(ctx, it.SystemID)
		if err != nil {
			return err
		}
		ok, err := tx.RuleExists(ctx, &sys.TypeID, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.InvalidAction, "no transition rule permits deleting an item from this system")
		}

		def, err := s.sparesDefinition(ctx, tx)
		if err != nil {
			return err
		}
		if def != nil {
			if err := tx.WriteLockCatalogueItem(ctx, it.CatalogueItemID); err != nil {
				return err
			}
		}

		if err := tx.DeleteItem(ctx, id); err != nil {
			return err
		}

		if def != nil {
			if _, err := tx.RecomputeNumberOfSpares(ctx, it.CatalogueItemID, def); err != nil {
				return err
			}
		}
		return nil
	})
}

// defaultsFrom maps a catalogue item's stored values by property id for
// use as creation-time defaults.
func defaultsFrom(ci *types.CatalogueItem) map[string]interface{} {
	if len(ci.Properties) == 0 {
		return nil
	}
	defaults := make(map[string]interface{}, len(ci.Properties))
	for _, p := range ci.Properties {
		defaults[p.ID] = p.Value
	}
	return defaults
}
