// Package system implements the deployment tree: systems classified by
// system type, with parent/child type agreement and cycle-free moves.
package system

import (
	"context"
	"strings"
	"time"

	"github.com/beamtime/ims/internal/debug"
	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// ObjectRemover deletes externally stored attachments and images held
// against an entity id. A nil remover disables the cleanup.
type ObjectRemover interface {
	DeleteAllForEntity(ctx context.Context, entityID string) error
}

// Service owns system tree operations.
type Service struct {
	store   storage.Storage
	objects ObjectRemover
	clock   func() time.Time
}

// NewService returns a system service over the given storage. objects
// may be nil when no object-storage collaborator is configured.
func NewService(store storage.Storage, objects ObjectRemover) *Service {
	return &Service{store: store, objects: objects, clock: time.Now}
}

func parseID(raw string) (string, error) {
	id, err := idgen.Parse(raw)
	if err != nil {
		return "", errs.Wrap(errs.InvalidID, "invalid id", err)
	}
	return id, nil
}

// In is the input for creating a system.
type In struct {
	Name        string
	ParentID    *string
	TypeID      string
	Description *string
	Location    *string
	Owner       *string
	Importance  types.Importance
}

// Patch is a partial system update. Nil fields are unchanged; when
// MoveParent is set, ParentID (possibly nil) is the new parent.
type Patch struct {
	Name        *string
	TypeID      *string
	Description *string
	Location    *string
	Owner       *string
	Importance  *types.Importance
	MoveParent  bool
	ParentID    *string
}

// Create creates a system. A child system must carry the same type as
// its parent.
func (s *Service) Create(ctx context.Context, in In) (*types.System, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.InvalidAction, "system name must not be empty")
	}
	if !in.Importance.IsValid() {
		return nil, errs.Newf(errs.InvalidAction, "invalid importance: %s", in.Importance)
	}
	typeID, err := parseID(in.TypeID)
	if err != nil {
		return nil, err
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
	sys := &types.System{
		ID:          idgen.New(),
		Name:        in.Name,
		Code:        idgen.Slugify(in.Name),
		ParentID:    parentID,
		TypeID:      typeID,
		Description: in.Description,
		Location:    in.Location,
		Owner:       in.Owner,
		Importance:  in.Importance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.GetSystemType(ctx, typeID); err != nil {
			return err
		}
		if parentID != nil {
			parent, err := tx.GetSystem(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent.TypeID != typeID {
				return errs.New(errs.InvalidAction, "system type must match its parent's type")
			}
		}
		return tx.CreateSystem(ctx, sys)
	})
	if err != nil {
		return nil, err
	}
	return sys, nil
}

// Get fetches a system by id.
func (s *Service) Get(ctx context.Context, rawID string) (*types.System, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetSystem(ctx, id)
}

// List lists systems, optionally filtered by parent. The literal "null"
// selects roots; an unparseable id yields an empty list.
func (s *Service) List(ctx context.Context, parent *string) ([]*types.System, error) {
	if parent == nil {
		return s.store.ListSystems(ctx, storage.ParentFilter{})
	}
	if *parent == "null" {
		return s.store.ListSystems(ctx, storage.Roots())
	}
	id, err := idgen.Parse(*parent)
	if err != nil {
		return []*types.System{}, nil
	}
	return s.store.ListSystems(ctx, storage.ChildrenOf(id))
}

// Update applies a partial update. Type changes require an empty system
// and keep parent/child type agreement intact. When a spares definition
// is configured and a type change touches the root level, the system row
// is write-locked first so concurrent spares recomputes serialise
// against the change.
func (s *Service) Update(ctx context.Context, rawID string, patch Patch) (*types.System, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var out *types.System
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		sys, err := tx.GetSystem(ctx, id)
		if err != nil {
			return err
		}

		var newTypeID *string
		if patch.TypeID != nil {
			tid, err := parseID(*patch.TypeID)
			if err != nil {
				return err
			}
			if tid != sys.TypeID {
				newTypeID = &tid
			}
		}
		var newParentID *string
		if patch.MoveParent && patch.ParentID != nil {
			pid, err := parseID(*patch.ParentID)
			if err != nil {
				return err
			}
			if pid == id {
				return errs.New(errs.InvalidAction, "moving a system below itself would create a cycle")
			}
			newParentID = &pid
		}

		if newTypeID != nil {
			rootLevel := sys.ParentID == nil || (patch.MoveParent && newParentID == nil)
			if rootLevel {
				def, err := tx.GetSparesDefinition(ctx)
				if err != nil {
					return err
				}
				if def != nil && len(def.UsageStatusIDs) > 0 {
					if err := tx.WriteLockSystem(ctx, id); err != nil {
						return err
					}
				}
			}

			if _, err := tx.GetSystemType(ctx, *newTypeID); err != nil {
				return err
			}
			has, err := tx.SystemHasChildElements(ctx, id)
			if err != nil {
				return err
			}
			if has {
				return errs.New(errs.ChildElementsExist, "system has child elements and cannot change type")
			}
			sys.TypeID = *newTypeID
		}

		if patch.MoveParent {
			if newParentID != nil {
				parent, err := tx.GetSystem(ctx, *newParentID)
				if err != nil {
					return err
				}
				if parent.TypeID != sys.TypeID {
					return errs.New(errs.InvalidAction, "system type must match its parent's type")
				}
				cycle, err := tx.SystemMoveCreatesCycle(ctx, id, *newParentID)
				if err != nil {
					return err
				}
				if cycle {
					return errs.New(errs.InvalidAction, "moving a system below itself would create a cycle")
				}
			}
			sys.ParentID = newParentID
		} else if newTypeID != nil && sys.ParentID != nil {
			parent, err := tx.GetSystem(ctx, *sys.ParentID)
			if err != nil {
				return err
			}
			if parent.TypeID != sys.TypeID {
				return errs.New(errs.InvalidAction, "system type must match its parent's type")
			}
		}

		if patch.Name != nil && *patch.Name != sys.Name {
			if strings.TrimSpace(*patch.Name) == "" {
				return errs.New(errs.InvalidAction, "system name must not be empty")
			}
			sys.Name = *patch.Name
			sys.Code = idgen.Slugify(*patch.Name)
		}
		if patch.Description != nil {
			sys.Description = patch.Description
		}
		if patch.Location != nil {
			sys.Location = patch.Location
		}
		if patch.Owner != nil {
			sys.Owner = patch.Owner
		}
		if patch.Importance != nil {
			if !patch.Importance.IsValid() {
				return errs.Newf(errs.InvalidAction, "invalid importance: %s", *patch.Importance)
			}
			sys.Importance = *patch.Importance
		}

		sys.UpdatedAt = s.clock().UTC()
		if err := tx.UpdateSystem(ctx, sys); err != nil {
			return err
		}
		out = sys
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete deletes a system with no child systems and no items, then
// best-effort deletes its attachments and images from object storage.
// The cleanup runs after commit: a failure there is surfaced to the
// caller but the local deletion stands.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.GetSystem(ctx, id); err != nil {
			return err
		}
		has, err := tx.SystemHasChildElements(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return errs.New(errs.ChildElementsExist, "system has child elements and cannot be deleted")
		}
		return tx.DeleteSystem(ctx, id)
	})
	if err != nil {
		return err
	}

	if s.objects != nil {
		if err := s.objects.DeleteAllForEntity(ctx, id); err != nil {
			debug.Logf("object storage cleanup failed for system %s: %v", id, err)
			return err
		}
	}
	return nil
}

// Breadcrumbs returns the root-to-system trail, truncated to the
// configured maximum length.
func (s *Service) Breadcrumbs(ctx context.Context, rawID string) (*types.Breadcrumbs, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.SystemBreadcrumbs(ctx, id)
}
