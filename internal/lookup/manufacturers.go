package lookup

import (
	"context"
	"strings"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// ManufacturerIn is the input for creating a manufacturer.
type ManufacturerIn struct {
	Name      string
	URL       *string
	Address   types.Address
	Telephone *string
}

// ManufacturerPatch is a partial manufacturer update. Nil fields are
// unchanged; a non-nil Address replaces the whole address.
type ManufacturerPatch struct {
	Name      *string
	URL       *string
	Address   *types.Address
	Telephone *string
}

func checkAddress(a types.Address) error {
	if strings.TrimSpace(a.AddressLine) == "" || strings.TrimSpace(a.Country) == "" || strings.TrimSpace(a.Postcode) == "" {
		return errs.New(errs.InvalidAction, "manufacturer address needs an address line, country and postcode")
	}
	return nil
}

// CreateManufacturer creates a manufacturer. Codes are slugified names,
// unique across all manufacturers.
func (s *Service) CreateManufacturer(ctx context.Context, in ManufacturerIn) (*types.Manufacturer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.InvalidAction, "manufacturer name must not be empty")
	}
	if err := checkAddress(in.Address); err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	m := &types.Manufacturer{
		ID:        idgen.New(),
		Name:      in.Name,
		Code:      idgen.Slugify(in.Name),
		URL:       in.URL,
		Address:   in.Address,
		Telephone: in.Telephone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateManufacturer(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetManufacturer fetches a manufacturer by id.
func (s *Service) GetManufacturer(ctx context.Context, rawID string) (*types.Manufacturer, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetManufacturer(ctx, id)
}

// ListManufacturers lists all manufacturers.
func (s *Service) ListManufacturers(ctx context.Context) ([]*types.Manufacturer, error) {
	return s.store.ListManufacturers(ctx)
}

// UpdateManufacturer applies a partial update. Renames regenerate the
// code, which may collide with another manufacturer's.
func (s *Service) UpdateManufacturer(ctx context.Context, rawID string, patch ManufacturerPatch) (*types.Manufacturer, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	var out *types.Manufacturer
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		m, err := tx.GetManufacturer(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil && *patch.Name != m.Name {
			if strings.TrimSpace(*patch.Name) == "" {
				return errs.New(errs.InvalidAction, "manufacturer name must not be empty")
			}
			m.Name = *patch.Name
			m.Code = idgen.Slugify(*patch.Name)
		}
		if patch.URL != nil {
			m.URL = patch.URL
		}
		if patch.Address != nil {
			if err := checkAddress(*patch.Address); err != nil {
				return err
			}
			m.Address = *patch.Address
		}
		if patch.Telephone != nil {
			m.Telephone = patch.Telephone
		}
		m.UpdatedAt = s.clock().UTC()
		if err := tx.UpdateManufacturer(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteManufacturer deletes a manufacturer no catalogue item references.
func (s *Service) DeleteManufacturer(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		used, err := tx.ManufacturerInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return errs.New(errs.ChildElementsExist, "manufacturer is referenced by catalogue items and cannot be deleted")
		}
		return tx.DeleteManufacturer(ctx, id)
	})
}
