package lookup

import (
	"context"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/idgen"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// RuleIn is the input for creating a transition rule. The three legal
// shapes are:
//
//   - creation: Src nil, Dst and UsageStatus set
//   - move:     Src and Dst set and distinct, UsageStatus set
//   - deletion: Src set, Dst and UsageStatus nil
type RuleIn struct {
	SrcSystemTypeID  *string
	DstSystemTypeID  *string
	DstUsageStatusID *string
}

// CreateRule creates a transition rule after validating its shape and
// resolving its references. Duplicates collide on the unique triple
// index.
func (s *Service) CreateRule(ctx context.Context, in RuleIn) (*types.Rule, error) {
	r := &types.Rule{ID: idgen.New()}

	if in.SrcSystemTypeID == nil && in.DstSystemTypeID == nil {
		return nil, errs.New(errs.InvalidAction, "a rule needs at least a source or a destination system type")
	}
	if in.DstSystemTypeID == nil && in.DstUsageStatusID != nil {
		return nil, errs.New(errs.InvalidAction, "a deletion rule cannot carry a usage status")
	}
	if in.DstSystemTypeID != nil && in.DstUsageStatusID == nil {
		return nil, errs.New(errs.InvalidAction, "creation and move rules need a destination usage status")
	}

	if in.SrcSystemTypeID != nil {
		id, err := parseID(*in.SrcSystemTypeID)
		if err != nil {
			return nil, err
		}
		r.SrcSystemTypeID = &id
	}
	if in.DstSystemTypeID != nil {
		id, err := parseID(*in.DstSystemTypeID)
		if err != nil {
			return nil, err
		}
		r.DstSystemTypeID = &id
	}
	if r.SrcSystemTypeID != nil && r.DstSystemTypeID != nil && *r.SrcSystemTypeID == *r.DstSystemTypeID {
		return nil, errs.New(errs.InvalidAction, "a move rule needs distinct source and destination system types")
	}
	if in.DstUsageStatusID != nil {
		id, err := parseID(*in.DstUsageStatusID)
		if err != nil {
			return nil, err
		}
		r.DstUsageStatusID = &id
	}

	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if r.SrcSystemTypeID != nil {
			if _, err := tx.GetSystemType(ctx, *r.SrcSystemTypeID); err != nil {
				return err
			}
		}
		if r.DstSystemTypeID != nil {
			if _, err := tx.GetSystemType(ctx, *r.DstSystemTypeID); err != nil {
				return err
			}
		}
		if r.DstUsageStatusID != nil {
			if _, err := tx.GetUsageStatus(ctx, *r.DstUsageStatusID); err != nil {
				return err
			}
		}
		return tx.CreateRule(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRule fetches a rule by id.
func (s *Service) GetRule(ctx context.Context, rawID string) (*types.Rule, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetRule(ctx, id)
}

// ListRules lists all rules.
func (s *Service) ListRules(ctx context.Context) ([]*types.Rule, error) {
	return s.store.ListRules(ctx)
}

// DeleteRule deletes a rule by id.
func (s *Service) DeleteRule(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.store.DeleteRule(ctx, id)
}
