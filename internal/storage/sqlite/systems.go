package sqlite

import (
	"context"
	"database/sql"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

func (o ops) CreateSystem(ctx context.Context, s *types.System) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO systems (id, name, code, parent_id, type_id, description, location, owner, importance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.Name, s.Code, nullStr(s.ParentID), s.TypeID,
		nullStr(s.Description), nullStr(s.Location), nullStr(s.Owner),
		string(s.Importance), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return translateErr("failed to insert system", err)
	}
	return nil
}

const systemColumns = `id, name, code, parent_id, type_id, description, location, owner, importance, created_at, updated_at`

func scanSystem(scan func(dest ...interface{}) error) (*types.System, error) {
	s := &types.System{}
	var (
		parentID, description, location, owner sql.NullString
		importance                             string
	)
	err := scan(&s.ID, &s.Name, &s.Code, &parentID, &s.TypeID, &description, &location, &owner, &importance, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.ParentID = strPtr(parentID)
	s.Description = strPtr(description)
	s.Location = strPtr(location)
	s.Owner = strPtr(owner)
	s.Importance = types.Importance(importance)
	return s, nil
}

func (o ops) GetSystem(ctx context.Context, id string) (*types.System, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+systemColumns+` FROM systems WHERE id = ?`, id)
	s, err := scanSystem(row.Scan)
	if err != nil {
		return nil, requireRow(err, "system", id)
	}
	return s, nil
}

func (o ops) ListSystems(ctx context.Context, parent storage.ParentFilter) ([]*types.System, error) {
	query := `SELECT ` + systemColumns + ` FROM systems`
	var args []interface{}
	if set, id := parent.Match(); set {
		if id == nil {
			query += ` WHERE parent_id IS NULL`
		} else {
			query += ` WHERE parent_id = ?`
			args = append(args, *id)
		}
	}
	query += ` ORDER BY name`

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr("failed to list systems", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.System
	for rows.Next() {
		s, err := scanSystem(rows.Scan)
		if err != nil {
			return nil, translateErr("failed to scan system", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (o ops) UpdateSystem(ctx context.Context, s *types.System) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE systems
		SET name = ?, code = ?, parent_id = ?, type_id = ?, description = ?, location = ?, owner = ?, importance = ?, updated_at = ?
		WHERE id = ?
	`,
		s.Name, s.Code, nullStr(s.ParentID), s.TypeID,
		nullStr(s.Description), nullStr(s.Location), nullStr(s.Owner),
		string(s.Importance), s.UpdatedAt, s.ID,
	)
	if err != nil {
		return translateErr("failed to update system", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update system", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "system not found: %s", s.ID)
	}
	return nil
}

func (o ops) DeleteSystem(ctx context.Context, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM systems WHERE id = ?`, id)
	if err != nil {
		return translateErr("failed to delete system", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to delete system", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "system not found: %s", id)
	}
	return nil
}

func (o ops) SystemBreadcrumbs(ctx context.Context, id string) (*types.Breadcrumbs, error) {
	return o.breadcrumbs(ctx, systemTree, id)
}

// SystemHasChildElements reports whether the system has child systems or
// items beneath it.
func (o ops) SystemHasChildElements(ctx context.Context, id string) (bool, error) {
	if has, err := o.hasChildNodes(ctx, systemTree, id); err != nil || has {
		return has, err
	}
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE system_id = ?)`, id)
}

func (o ops) SystemMoveCreatesCycle(ctx context.Context, id, newParentID string) (bool, error) {
	return o.moveCreatesCycle(ctx, systemTree, id, newParentID)
}

// WriteLockSystem acquires the document-level write lock on the system,
// serialising root-level spares-eligibility changes.
func (o ops) WriteLockSystem(ctx context.Context, id string) error {
	return o.writeLock(ctx, "systems", "system", id)
}
