package catalogue

import (
	"context"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// ItemIn is the input for creating a catalogue item.
type ItemIn struct {
	CatalogueCategoryID                string
	ManufacturerID                     string
	Name                               string
	Description                        *string
	CostGBP                            float64
	DaysToReplace                      float64
	DrawingLink                        *string
	DrawingNumber                      *string
	ModelNumber                        *string
	IsObsolete                         bool
	ObsoleteReason                     *string
	ObsoleteReplacementCatalogueItemID *string
	Notes                              *string
	Properties                         []ValueIn
}

// ItemPatch is a partial catalogue item update. Nil fields are
// unchanged; a non-nil Properties slice replaces the stored values after
// revalidation against the (possibly new) category schema.
type ItemPatch struct {
	CatalogueCategoryID                *string
	ManufacturerID                     *string
	Name                               *string
	Description                        *string
	CostGBP                            *float64
	DaysToReplace                      *float64
	DrawingLink                        *string
	DrawingNumber                      *string
	ModelNumber                        *string
	IsObsolete                         *bool
	ObsoleteReason                     *string
	ObsoleteReplacementCatalogueItemID *string
	Notes                              *string
	Properties                         []ValueIn
}

// CreateItem creates a catalogue item under a leaf category. Supplied
// properties are resolved against the category schema; when a spares
// definition is configured the fresh item starts at zero spares rather
// than the "never computed" null.
func (s *Service) CreateItem(ctx context.Context, in ItemIn) (*types.CatalogueItem, error) {
	if err := checkItemNumbers(in.CostGBP, in.DaysToReplace); err != nil {
		return nil, err
	}
	if !in.IsObsolete && (in.ObsoleteReason != nil || in.ObsoleteReplacementCatalogueItemID != nil) {
		return nil, errs.New(errs.InvalidAction, "obsolete fields are only allowed on an obsolete catalogue item")
	}

	categoryID, err := parseID(in.CatalogueCategoryID)
	if err != nil {
		return nil, err
	}
	manufacturerID, err := parseID(in.ManufacturerID)
	if err != nil {
		return nil, err
	}
	var replacementID *string
	if in.ObsoleteReplacementCatalogueItemID != nil {
		id, err := parseID(*in.ObsoleteReplacementCatalogueItemID)
		if err != nil {
			return nil, err
		}
		replacementID = &id
	}

	now := s.clock().UTC()
	ci := &types.CatalogueItem{
		ID:                                 idgen.New(),
		CatalogueCategoryID:                categoryID,
		ManufacturerID:                     manufacturerID,
		Name:                               in.Name,
		Description:                        in.Description,
		CostGBP:                            in.CostGBP,
		DaysToReplace:                      in.DaysToReplace,
		DrawingLink:                        in.DrawingLink,
		DrawingNumber:                      in.DrawingNumber,
		ModelNumber:                        in.ModelNumber,
		IsObsolete:                         in.IsObsolete,
		ObsoleteReason:                     in.ObsoleteReason,
		ObsoleteReplacementCatalogueItemID: replacementID,
		Notes:                              in.Notes,
		CreatedAt:                          now,
		UpdatedAt:                          now,
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cat, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if !cat.IsLeaf {
			return errs.New(errs.InvalidAction, "catalogue items must belong to a leaf catalogue category")
		}
		if _, err := tx.GetManufacturer(ctx, manufacturerID); err != nil {
			return err
		}
		if replacementID != nil {
			if _, err := tx.GetCatalogueItem(ctx, *replacementID); err != nil {
				return err
			}
		}
		props, err := ResolveValues(cat.Properties, in.Properties, nil)
		if err != nil {
			return err
		}
		ci.Properties = props
		if err := tx.CreateCatalogueItem(ctx, ci); err != nil {
			return err
		}

		def, err := tx.GetSparesDefinition(ctx)
		if err != nil {
			return err
		}
		if def != nil && len(def.UsageStatusIDs) > 0 {
			n, err := tx.RecomputeNumberOfSpares(ctx, ci.ID, def)
			if err != nil {
				return err
			}
			ci.NumberOfSpares = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ci, nil
}

// GetItem fetches a catalogue item by id.
func (s *Service) GetItem(ctx context.Context, rawID string) (*types.CatalogueItem, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetCatalogueItem(ctx, id)
}

// ListItems lists catalogue items, optionally filtered to one category.
// An unparseable category id yields an empty list.
func (s *Service) ListItems(ctx context.Context, categoryID *string) ([]*types.CatalogueItem, error) {
	var filter *string
	if categoryID != nil {
		id, err := idgen.Parse(*categoryID)
		if err != nil {
			return []*types.CatalogueItem{}, nil
		}
		filter = &id
	}
	return s.store.ListCatalogueItems(ctx, filter)
}

// UpdateItem applies a partial update. Category and property changes are
// refused while items exist under the catalogue item. A category move
// without supplied properties is only allowed when the new category
// declares the identical schema.
func (s *Service) UpdateItem(ctx context.Context, rawID string, patch ItemPatch) (*types.CatalogueItem, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var out *types.CatalogueItem
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		ci, err := tx.GetCatalogueItem(ctx, id)
		if err != nil {
			return err
		}

		categoryChanged := patch.CatalogueCategoryID != nil
		if categoryChanged {
			newID, err := parseID(*patch.CatalogueCategoryID)
			if err != nil {
				return err
			}
			categoryChanged = newID != ci.CatalogueCategoryID
			if categoryChanged {
				ci.CatalogueCategoryID = newID
			}
		}
		propsChanged := patch.Properties != nil

		if categoryChanged || propsChanged {
			has, err := tx.CatalogueItemHasItems(ctx, id)
			if err != nil {
				return err
			}
			if has {
				return errs.New(errs.ChildElementsExist, "catalogue item has child elements and cannot be updated")
			}

			cat, err := tx.GetCategory(ctx, ci.CatalogueCategoryID)
			if err != nil {
				return err
			}
			if !cat.IsLeaf {
				return errs.New(errs.InvalidAction, "catalogue items must belong to a leaf catalogue category")
			}
			switch {
			case propsChanged:
				props, err := ResolveValues(cat.Properties, patch.Properties, nil)
				if err != nil {
					return err
				}
				ci.Properties = props
			case !sameSchema(cat.Properties, ci.Properties):
				return errs.New(errs.InvalidAction, "properties must be supplied when moving to a category with a different schema")
			}
		}

		if patch.ManufacturerID != nil {
			mid, err := parseID(*patch.ManufacturerID)
			if err != nil {
				return err
			}
			if mid != ci.ManufacturerID {
				if _, err := tx.GetManufacturer(ctx, mid); err != nil {
					return err
				}
				ci.ManufacturerID = mid
			}
		}
		if patch.Name != nil {
			ci.Name = *patch.Name
		}
		if patch.Description != nil {
			ci.Description = patch.Description
		}
		if patch.CostGBP != nil {
			ci.CostGBP = *patch.CostGBP
		}
		if patch.DaysToReplace != nil {
			ci.DaysToReplace = *patch.DaysToReplace
		}
		if err := checkItemNumbers(ci.CostGBP, ci.DaysToReplace); err != nil {
			return err
		}
		if patch.DrawingLink != nil {
			ci.DrawingLink = patch.DrawingLink
		}
		if patch.DrawingNumber != nil {
			ci.DrawingNumber = patch.DrawingNumber
		}
		if patch.ModelNumber != nil {
			ci.ModelNumber = patch.ModelNumber
		}
		if patch.Notes != nil {
			ci.Notes = patch.Notes
		}

		if patch.IsObsolete != nil {
			ci.IsObsolete = *patch.IsObsolete
		}
		if patch.ObsoleteReason != nil {
			ci.ObsoleteReason = patch.ObsoleteReason
		}
		if patch.ObsoleteReplacementCatalogueItemID != nil {
			rid, err := parseID(*patch.ObsoleteReplacementCatalogueItemID)
			if err != nil {
				return err
			}
			if rid == id {
				return errs.New(errs.InvalidAction, "a catalogue item cannot be its own obsolete replacement")
			}
			if _, err := tx.GetCatalogueItem(ctx, rid); err != nil {
				return err
			}
			ci.ObsoleteReplacementCatalogueItemID = &rid
		}
		if !ci.IsObsolete {
			ci.ObsoleteReason = nil
			ci.ObsoleteReplacementCatalogueItemID = nil
		}

		ci.UpdatedAt = s.clock().UTC()
		if err := tx.UpdateCatalogueItem(ctx, ci); err != nil {
			return err
		}
		out = ci
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteItem deletes a catalogue item with no items and no incoming
// obsolete-replacement references.
func (s *Service) DeleteItem(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.GetCatalogueItem(ctx, id); err != nil {
			return err
		}
		has, err := tx.CatalogueItemHasChildElements(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return errs.New(errs.ChildElementsExist, "catalogue item has child elements and cannot be deleted")
		}
		return tx.DeleteCatalogueItem(ctx, id)
	})
}

func checkItemNumbers(cost, daysToReplace float64) error {
	if cost < 0 {
		return errs.New(errs.InvalidAction, "cost must not be negative")
	}
	if daysToReplace < 0 {
		return errs.New(errs.InvalidAction, "days to replace must not be negative")
	}
	return nil
}

// sameSchema reports whether stored values line up one-to-one, by
// descriptor id and order, with a category's declarations.
func sameSchema(defined []types.CategoryProperty, stored []types.PropertyValue) bool {
	if len(defined) != len(stored) {
		return false
	}
	for i := range defined {
		if defined[i].ID != stored[i].ID {
			return false
		}
	}
	return true
}
