// Package lookup implements the flat reference entities: units, usage
// statuses, system types, manufacturers, transition rules and the spares
// definition setting. Deletions are guarded so nothing referenced ever
// disappears.
package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// Service owns the flat lookup entities.
type Service struct {
	store storage.Storage
	clock func() time.Time
}

// NewService returns a lookup service over the given storage.
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

func requireValue(value, entity string) error {
	if strings.TrimSpace(value) == "" {
		return errs.Newf(errs.InvalidAction, "%s value must not be empty", entity)
	}
	return nil
}

// --- Units ---

// CreateUnit creates a unit. Codes are slugified values, unique across
// all units.
func (s *Service) CreateUnit(ctx context.Context, value string) (*types.Unit, error) {
	if err := requireValue(value, "unit"); err != nil {
		return nil, err
	}
	u := &types.Unit{ID: idgen.New(), Value: value, Code: idgen.Slugify(value)}
	if err := s.store.CreateUnit(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUnit fetches a unit by id.
func (s *Service) GetUnit(ctx context.Context, rawID string) (*types.Unit, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetUnit(ctx, id)
}

// ListUnits lists all units.
func (s *Service) ListUnits(ctx context.Context) ([]*types.Unit, error) {
	return s.store.ListUnits(ctx)
}

// DeleteUnit deletes a unit no category property references.
func (s *Service) DeleteUnit(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		used, err := tx.UnitInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return errs.New(errs.ChildElementsExist, "unit is referenced by catalogue category properties and cannot be deleted")
		}
		return tx.DeleteUnit(ctx, id)
	})
}

// --- Usage statuses ---

// CreateUsageStatus creates a usage status.
func (s *Service) CreateUsageStatus(ctx context.Context, value string) (*types.UsageStatus, error) {
	if err := requireValue(value, "usage status"); err != nil {
		return nil, err
	}
	u := &types.UsageStatus{ID: idgen.New(), Value: value, Code: idgen.Slugify(value)}
	if err := s.store.CreateUsageStatus(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUsageStatus fetches a usage status by id.
func (s *Service) GetUsageStatus(ctx context.Context, rawID string) (*types.UsageStatus, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetUsageStatus(ctx, id)
}

// ListUsageStatuses lists all usage statuses.
func (s *Service) ListUsageStatuses(ctx context.Context) ([]*types.UsageStatus, error) {
	return s.store.ListUsageStatuses(ctx)
}

// DeleteUsageStatus deletes a usage status not referenced by items,
// rules or the spares definition.
func (s *Service) DeleteUsageStatus(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		used, err := tx.UsageStatusInUse(ctx, id)
		if err != nil {
			return err
		}
		if !used {
			def, err := tx.GetSparesDefinition(ctx)
			if err != nil {
				return err
			}
			if def != nil {
				for _, sid := range def.UsageStatusIDs {
					if sid == id {
						used = true
						break
					}
				}
			}
		}
		if used {
			return errs.New(errs.ChildElementsExist, "usage status is referenced and cannot be deleted")
		}
		return tx.DeleteUsageStatus(ctx, id)
	})
}

// --- System types ---

// CreateSystemType creates a system type.
func (s *Service) CreateSystemType(ctx context.Context, value string) (*types.SystemType, error) {
	if err := requireValue(value, "system type"); err != nil {
		return nil, err
	}
	st := &types.SystemType{ID: idgen.New(), Value: value}
	if err := s.store.CreateSystemType(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// GetSystemType fetches a system type by id.
func (s *Service) GetSystemType(ctx context.Context, rawID string) (*types.SystemType, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetSystemType(ctx, id)
}

// ListSystemTypes lists all system types.
func (s *Service) ListSystemTypes(ctx context.Context) ([]*types.SystemType, error) {
	return s.store.ListSystemTypes(ctx)
}

// DeleteSystemType deletes a system type not referenced by systems or
// rules. The spares definition's type scope also counts as a reference.
func (s *Service) DeleteSystemType(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		used, err := tx.SystemTypeInUse(ctx, id)
		if err != nil {
			return err
		}
		if !used {
			def, err := tx.GetSparesDefinition(ctx)
			if err != nil {
				return err
			}
			if def != nil {
				for _, tid := range def.SystemTypeIDs {
					if tid == id {
						used = true
						break
					}
				}
			}
		}
		if used {
			return errs.New(errs.ChildElementsExist, "system type is referenced and cannot be deleted")
		}
		return tx.DeleteSystemType(ctx, id)
	})
}
