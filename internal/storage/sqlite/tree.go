package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/types"
)

// treeTable parameterises the shared tree operations over the two forest
// tables. Both expose the same capabilities: id, name, parent_id, code.
type treeTable struct {
	table  string
	entity string
}

var (
	categoryTree = treeTable{table: "catalogue_categories", entity: "catalogue category"}
	systemTree   = treeTable{table: "systems", entity: "system"}
)

// maxMoveWalkDepth bounds the ancestor walk of the move-validity check.
// Any real tree is far shallower; the bound only guards against walking a
// corrupted cyclic graph forever.
const maxMoveWalkDepth = 100

// breadcrumbs walks ancestors from the node upwards, bounded by the
// configured maximum trail length, and returns the trail oldest-first.
//
// A parent link that points at a missing row terminates the walk early;
// that state is unreachable through the public operations, so it
// surfaces as a database-integrity error rather than a not-found.
func (o ops) breadcrumbs(ctx context.Context, t treeTable, id string) (*types.Breadcrumbs, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE trail(id, name, parent_id, depth) AS (
			SELECT id, name, parent_id, 0 FROM %[1]s WHERE id = ?
			UNION ALL
			SELECT p.id, p.name, p.parent_id, t.depth + 1
			FROM %[1]s p JOIN trail t ON p.id = t.parent_id
			WHERE t.depth < ?
		)
		SELECT id, name, parent_id, depth FROM trail ORDER BY depth DESC
	`, t.table)

	rows, err := o.q.QueryContext(ctx, query, id, o.maxTrail-1)
	if err != nil {
		return nil, translateErr("breadcrumbs query", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		trail       []types.BreadcrumbEntry
		topParentID sql.NullString
		topDepth    int
		first       = true
	)
	for rows.Next() {
		var (
			entry    types.BreadcrumbEntry
			parentID sql.NullString
			depth    int
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &parentID, &depth); err != nil {
			return nil, translateErr("breadcrumbs scan", err)
		}
		if first {
			// Rows come oldest-first, so the first row is the top of
			// the (possibly truncated) trail.
			topParentID = parentID
			topDepth = depth
			first = false
		}
		trail = append(trail, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("breadcrumbs rows", err)
	}
	if len(trail) == 0 {
		return nil, errs.Newf(errs.MissingRecord, "%s not found: %s", t.entity, id)
	}

	if topParentID.Valid && topDepth < o.maxTrail-1 {
		// The walk stopped before the bound with a parent link still
		// pointing somewhere: the ancestor row is gone.
		msg := fmt.Sprintf("%s %s has parent link to missing %s %s", t.entity, trail[0].ID, t.entity, topParentID.String)
		logIntegrity(msg)
		return nil, errs.New(errs.DatabaseIntegrity, msg)
	}

	return &types.Breadcrumbs{
		Trail:     trail,
		FullTrail: !topParentID.Valid,
	}, nil
}

// moveCreatesCycle reports whether re-parenting id under newParentID
// would create a cycle: it walks ancestors from the prospective parent
// and checks whether id is encountered (including newParentID == id).
// Must run inside the same transaction as the update it protects.
func (o ops) moveCreatesCycle(ctx context.Context, t treeTable, id, newParentID string) (bool, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE ancestors(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM %[1]s WHERE id = ?
			UNION ALL
			SELECT p.id, p.parent_id, a.depth + 1
			FROM %[1]s p JOIN ancestors a ON p.id = a.parent_id
			WHERE a.depth < %[2]d
		)
		SELECT COUNT(*) FROM ancestors WHERE id = ?
	`, t.table, maxMoveWalkDepth)

	var n int
	if err := o.q.QueryRowContext(ctx, query, newParentID, id).Scan(&n); err != nil {
		return false, translateErr("move validity query", err)
	}
	return n > 0, nil
}

// hasChildNodes reports whether any node references id as its parent.
func (o ops) hasChildNodes(ctx context.Context, t treeTable, id string) (bool, error) {
	return o.exists(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE parent_id = ?)`, t.table), id)
}

// writeLock performs a no-op self-update on a row, forcing concurrent
// transactions touching the same row to serialise or abort. Callers must
// hold an open transaction and must lock before reading the data a
// derived-state recompute depends on.
func (o ops) writeLock(ctx context.Context, table, entity, id string) error {
	res, err := o.q.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET id = id WHERE id = ?`, table), id)
	if err != nil {
		return translateErr("write lock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("write lock", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "%s not found: %s", entity, id)
	}
	return nil
}
