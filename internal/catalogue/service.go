// Package catalogue implements the catalogue side of the inventory: the
// category tree with its property schemas, and the catalogue items
// defined under leaf categories.
package catalogue

import (
	"context"
	"strings"
	"time"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// Service owns catalogue category and catalogue item operations.
type Service struct {
	store storage.Storage
	clock func() time.Time
}

// NewService returns a catalogue service over the given storage.
func NewService(store storage.Storage) *Service {
	return &Service{store: store, clock: time.Now}
}

func parseID(raw string) (string, error) {
	id, err := idgen.Parse(raw)
	if err != nil {
		return "", errs.Wrap(errs.InvalidID, "invalid id", err)
	}
	return id, nil
}

// CategoryIn is the input for creating a catalogue category.
type CategoryIn struct {
	Name       string
	ParentID   *string
	IsLeaf     bool
	Properties []PropertyIn
}

// CategoryPatch is a partial category update. Nil fields are unchanged.
// MoveParent distinguishes "leave the parent alone" from "move to the
// root": when it is set, ParentID (possibly nil) is the new parent.
type CategoryPatch struct {
	Name       *string
	IsLeaf     *bool
	MoveParent bool
	ParentID   *string
}

// CreateCategory creates a category. The code is derived from the name;
// sibling code collisions surface as duplicate-record. Properties are
// only accepted on leaves.
func (s *Service) CreateCategory(ctx context.Context, in CategoryIn) (*types.CatalogueCategory, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.InvalidAction, "catalogue category name must not be empty")
	}
	if !in.IsLeaf && len(in.Properties) > 0 {
		return nil, errs.New(errs.InvalidAction, "properties are not allowed on a non-leaf catalogue category")
	}

	var parentID *string
	if in.ParentID != nil {
		id, err := parseID(*in.ParentID)
		if err != nil {
			return nil, err
		}
		parentID = &id
	}

	now := s.clock().UTC()
	cat := &types.CatalogueCategory{
		ID:        idgen.New(),
		Name:      in.Name,
		Code:      idgen.Slugify(in.Name),
		ParentID:  parentID,
		IsLeaf:    in.IsLeaf,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if parentID != nil {
			parent, err := tx.GetCategory(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent.IsLeaf {
				return errs.New(errs.LeafParent, "cannot add a catalogue category under a leaf")
			}
		}
		props, err := buildProperties(ctx, tx, in.Properties)
		if err != nil {
			return err
		}
		cat.Properties = props
		return tx.CreateCategory(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// GetCategory fetches a category by id. Leaf categories come back with
// their full property schema.
func (s *Service) GetCategory(ctx context.Context, rawID string) (*types.CatalogueCategory, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetCategory(ctx, id)
}

// ListCategories lists categories, optionally filtered by parent. A nil
// filter lists everything; the literal "null" selects root categories;
// an unparseable id yields an empty list rather than an error.
func (s *Service) ListCategories(ctx context.Context, parent *string) ([]*types.CatalogueCategory, error) {
	filter, ok := parentFilter(parent)
	if !ok {
		return []*types.CatalogueCategory{}, nil
	}
	return s.store.ListCategories(ctx, filter)
}

func parentFilter(parent *string) (storage.ParentFilter, bool) {
	if parent == nil {
		return storage.ParentFilter{}, true
	}
	if *parent == "null" {
		return storage.Roots(), true
	}
	id, err := idgen.Parse(*parent)
	if err != nil {
		return storage.ParentFilter{}, false
	}
	return storage.ChildrenOf(id), true
}

// UpdateCategory applies a partial update. Renames regenerate the code.
// Leafness changes and moves are refused while child elements exist or
// when they would break the tree shape.
func (s *Service) UpdateCategory(ctx context.Context, rawID string, patch CategoryPatch) (*types.CatalogueCategory, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var out *types.CatalogueCategory
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cat, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil && *patch.Name != cat.Name {
			if strings.TrimSpace(*patch.Name) == "" {
				return errs.New(errs.InvalidAction, "catalogue category name must not be empty")
			}
			cat.Name = *patch.Name
			cat.Code = idgen.Slugify(*patch.Name)
		}

		if patch.IsLeaf != nil && *patch.IsLeaf != cat.IsLeaf {
			has, err := tx.CategoryHasChildElements(ctx, id)
			if err != nil {
				return err
			}
			if has {
				return errs.New(errs.ChildElementsExist, "catalogue category has child elements and cannot be updated")
			}
			if !*patch.IsLeaf && len(cat.Properties) > 0 {
				if err := tx.DeleteCategoryProperties(ctx, id); err != nil {
					return err
				}
				cat.Properties = nil
			}
			cat.IsLeaf = *patch.IsLeaf
		}

		if patch.MoveParent {
			var newParent *string
			if patch.ParentID != nil {
				pid, err := parseID(*patch.ParentID)
				if err != nil {
					return err
				}
				if pid == id {
					return errs.New(errs.InvalidAction, "cannot move a catalogue category into itself")
				}
				parent, err := tx.GetCategory(ctx, pid)
				if err != nil {
					return err
				}
				if parent.IsLeaf {
					return errs.New(errs.LeafParent, "cannot add a catalogue category under a leaf")
				}
				cycle, err := tx.CategoryMoveCreatesCycle(ctx, id, pid)
				if err != nil {
					return err
				}
				if cycle {
					return errs.New(errs.InvalidAction, "cannot move a catalogue category into its own subtree")
				}
				newParent = &pid
			}
			cat.ParentID = newParent
		}

		cat.UpdatedAt = s.clock().UTC()
		if err := tx.UpdateCategory(ctx, cat); err != nil {
			return err
		}
		out = cat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory deletes a category with no child categories and no
// catalogue items.
func (s *Service) DeleteCategory(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return err
		}
		has, err := tx.CategoryHasChildElements(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return errs.New(errs.ChildElementsExist, "catalogue category has child elements and cannot be deleted")
		}
		return tx.DeleteCategory(ctx, id)
	})
}

// CategoryBreadcrumbs returns the root-to-category trail, truncated to
// the configured maximum length.
func (s *Service) CategoryBreadcrumbs(ctx context.Context, rawID string) (*types.Breadcrumbs, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.CategoryBreadcrumbs(ctx, id)
}
