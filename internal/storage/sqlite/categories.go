package sqlite

import (
	"context"
	"database/sql"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

// CreateCategory inserts a category and its property descriptors. A
// sibling-code collision surfaces from the unique index as a
// duplicate-record error.
func (o ops) CreateCategory(ctx context.Context, c *types.CatalogueCategory) error {
	isLeaf := 0
	if c.IsLeaf {
		isLeaf = 1
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO catalogue_categories (id, name, code, parent_id, is_leaf, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Code, nullStr(c.ParentID), isLeaf, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return translateErr("failed to insert catalogue category", err)
	}
	for i, p := range c.Properties {
		if err := o.insertCategoryProperty(ctx, c.ID, p, i); err != nil {
			return err
		}
	}
	return nil
}

func (o ops) insertCategoryProperty(ctx context.Context, categoryID string, p types.CategoryProperty, position int) error {
	mandatory := 0
	if p.Mandatory {
		mandatory = 1
	}
	av, err := encodeAllowedValues(p.AllowedValues)
	if err != nil {
		return err
	}
	_, err = o.q.ExecContext(ctx, `
		INSERT INTO catalogue_category_properties (id, category_id, name, type, unit_id, unit, mandatory, allowed_values, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, categoryID, p.Name, string(p.Type), nullStr(p.UnitID), nullStr(p.Unit), mandatory, av, position)
	if err != nil {
		return translateErr("failed to insert category property", err)
	}
	return nil
}

func (o ops) scanCategory(row *sql.Row) (*types.CatalogueCategory, error) {
	c := &types.CatalogueCategory{}
	var (
		parentID sql.NullString
		isLeaf   int
	)
	err := row.Scan(&c.ID, &c.Name, &c.Code, &parentID, &isLeaf, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ParentID = strPtr(parentID)
	c.IsLeaf = isLeaf != 0
	return c, nil
}

// GetCategory returns the category with its property schema. The schema
// is loaded only for leaves; non-leaves never carry properties.
func (o ops) GetCategory(ctx context.Context, id string) (*types.CatalogueCategory, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, name, code, parent_id, is_leaf, created_at, updated_at
		FROM catalogue_categories WHERE id = ?
	`, id)
	c, err := o.scanCategory(row)
	if err != nil {
		return nil, requireRow(err, "catalogue category", id)
	}
	if c.IsLeaf {
		c.Properties, err = o.loadCategoryProperties(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (o ops) loadCategoryProperties(ctx context.Context, categoryID string) ([]types.CategoryProperty, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, name, type, unit_id, unit, mandatory, allowed_values
		FROM catalogue_category_properties
		WHERE category_id = ?
		ORDER BY position
	`, categoryID)
	if err != nil {
		return nil, translateErr("failed to load category properties", err)
	}
	defer func() { _ = rows.Close() }()

	var props []types.CategoryProperty
	for rows.Next() {
		var (
			p         types.CategoryProperty
			ptype     string
			unitID    sql.NullString
			unit      sql.NullString
			mandatory int
			av        sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &ptype, &unitID, &unit, &mandatory, &av); err != nil {
			return nil, translateErr("failed to scan category property", err)
		}
		p.Type = types.PropertyType(ptype)
		p.UnitID = strPtr(unitID)
		p.Unit = strPtr(unit)
		p.Mandatory = mandatory != 0
		if p.AllowedValues, err = decodeAllowedValues(av); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// ListCategories lists categories under the parent filter. Properties are
// not loaded for listings.
func (o ops) ListCategories(ctx context.Context, parent storage.ParentFilter) ([]*types.CatalogueCategory, error) {
	query := `SELECT id, name, code, parent_id, is_leaf, created_at, updated_at FROM catalogue_categories`
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
		return nil, translateErr("failed to list catalogue categories", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.CatalogueCategory
	for rows.Next() {
		c := &types.CatalogueCategory{}
		var (
			parentID sql.NullString
			isLeaf   int
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &parentID, &isLeaf, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, translateErr("failed to scan catalogue category", err)
		}
		c.ParentID = strPtr(parentID)
		c.IsLeaf = isLeaf != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCategory updates the node fields (name, code, parent, leafness).
// Property-schema changes go through the propagation operations instead.
func (o ops) UpdateCategory(ctx context.Context, c *types.CatalogueCategory) error {
	isLeaf := 0
	if c.IsLeaf {
		isLeaf = 1
	}
	res, err := o.q.ExecContext(ctx, `
		UPDATE catalogue_categories
		SET name = ?, code = ?, parent_id = ?, is_leaf = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Code, nullStr(c.ParentID), isLeaf, c.UpdatedAt, c.ID)
	if err != nil {
		return translateErr("failed to update catalogue category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update catalogue category", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "catalogue category not found: %s", c.ID)
	}
	return nil
}

// DeleteCategory removes a category. Child guards run in the service; the
// property descriptors cascade with the row.
func (o ops) DeleteCategory(ctx context.Context, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM catalogue_categories WHERE id = ?`, id)
	if err != nil {
		return translateErr("failed to delete catalogue category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to delete catalogue category", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "catalogue category not found: %s", id)
	}
	return nil
}

func (o ops) CategoryBreadcrumbs(ctx context.Context, id string) (*types.Breadcrumbs, error) {
	return o.breadcrumbs(ctx, categoryTree, id)
}

// CategoryHasChildElements reports whether the category has child
// categories or catalogue items beneath it.
func (o ops) CategoryHasChildElements(ctx context.Context, id string) (bool, error) {
	if has, err := o.hasChildNodes(ctx, categoryTree, id); err != nil || has {
		return has, err
	}
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM catalogue_items WHERE catalogue_category_id = ?)`, id)
}

func (o ops) CategoryMoveCreatesCycle(ctx context.Context, id, newParentID string) (bool, error) {
	return o.moveCreatesCycle(ctx, categoryTree, id, newParentID)
}
