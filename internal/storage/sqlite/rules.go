package sqlite

import (
	"context"
	"database/sql"

	"github.com/beamtime/ims/internal/types"
)

// Transition rules. The unique triple index makes duplicate rules surface
// as duplicate-record errors on insert.

func (o ops) CreateRule(ctx context.Context, r *types.Rule) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO rules (id, src_system_type_id, dst_system_type_id, dst_usage_status_id)
		VALUES (?, ?, ?, ?)
	`, r.ID, nullStr(r.SrcSystemTypeID), nullStr(r.DstSystemTypeID), nullStr(r.DstUsageStatusID))
	return translateErr("failed to insert rule", err)
}

func (o ops) GetRule(ctx context.Context, id string) (*types.Rule, error) {
	r := &types.Rule{}
	var src, dst, status sql.NullString
	err := o.q.QueryRowContext(ctx, `
		SELECT id, src_system_type_id, dst_system_type_id, dst_usage_status_id FROM rules WHERE id = ?
	`, id).Scan(&r.ID, &src, &dst, &status)
	if err != nil {
		return nil, requireRow(err, "rule", id)
	}
	r.SrcSystemTypeID = strPtr(src)
	r.DstSystemTypeID = strPtr(dst)
	r.DstUsageStatusID = strPtr(status)
	return r, nil
}

func (o ops) ListRules(ctx context.Context) ([]*types.Rule, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, src_system_type_id, dst_system_type_id, dst_usage_status_id FROM rules
	`)
	if err != nil {
		return nil, translateErr("failed to list rules", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Rule
	for rows.Next() {
		r := &types.Rule{}
		var src, dst, status sql.NullString
		if err := rows.Scan(&r.ID, &src, &dst, &status); err != nil {
			return nil, translateErr("failed to scan rule", err)
		}
		r.SrcSystemTypeID = strPtr(src)
		r.DstSystemTypeID = strPtr(dst)
		r.DstUsageStatusID = strPtr(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (o ops) DeleteRule(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "rules", "rule", id)
}

// RuleExists matches the exact triple; nil endpoints match stored NULLs.
// SQLite's "IS ?" comparison is NULL-safe.
func (o ops) RuleExists(ctx context.Context, src, dst, usageStatus *string) (bool, error) {
	return o.exists(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM rules
			WHERE src_system_type_id IS ? AND dst_system_type_id IS ? AND dst_usage_status_id IS ?
		)
	`, nullStr(src), nullStr(dst), nullStr(usageStatus))
}
