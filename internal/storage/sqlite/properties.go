package sqlite

import (
	"context"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/types"
)

// Property propagation. Every operation here cascades a schema change on
// a category to the denormalised copies on catalogue items and items.
// The property id is the only join key; names are never used for
// correlation after the property is born. Callers run these inside a
// transaction so a failed cascade aborts the descriptor change too.

// AddCategoryProperty inserts the descriptor and appends the new entry to
// every catalogue item and item under the category. Both cascades are
// single bulk statements.
func (o ops) AddCategoryProperty(ctx context.Context, categoryID string, p types.CategoryProperty, defaultValue interface{}) error {
	var position int
	err := o.q.QueryRowContext(ctx, `
		SELECT IFNULL(MAX(position) + 1, 0) FROM catalogue_category_properties WHERE category_id = ?
	`, categoryID).Scan(&position)
	if err != nil {
		return translateErr("failed to compute property position", err)
	}

	if err := o.insertCategoryProperty(ctx, categoryID, p, position); err != nil {
		return err
	}

	value, err := encodeValue(defaultValue)
	if err != nil {
		return err
	}

	_, err = o.q.ExecContext(ctx, `
		INSERT INTO catalogue_item_properties (catalogue_item_id, property_id, name, unit, value, position)
		SELECT ci.id, ?, ?, ?, ?, ?
		FROM catalogue_items ci
		WHERE ci.catalogue_category_id = ?
	`, p.ID, p.Name, nullStr(p.Unit), value, position, categoryID)
	if err != nil {
		return translateErr("failed to propagate property to catalogue items", err)
	}

	_, err = o.q.ExecContext(ctx, `
		INSERT INTO item_properties (item_id, property_id, name, unit, value, position)
		SELECT i.id, ?, ?, ?, ?, ?
		FROM items i
		JOIN catalogue_items ci ON i.catalogue_item_id = ci.id
		WHERE ci.catalogue_category_id = ?
	`, p.ID, p.Name, nullStr(p.Unit), value, position, categoryID)
	if err != nil {
		return translateErr("failed to propagate property to items", err)
	}
	return nil
}

// RenameCategoryProperty renames the descriptor and overwrites the
// denormalised name everywhere, matched on the property id.
func (o ops) RenameCategoryProperty(ctx context.Context, categoryID, propertyID, newName string) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE catalogue_category_properties SET name = ?
		WHERE id = ? AND category_id = ?
	`, newName, propertyID, categoryID)
	if err != nil {
		return translateErr("failed to rename category property", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to rename category property", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "category property not found: %s", propertyID)
	}

	if _, err := o.q.ExecContext(ctx, `
		UPDATE catalogue_item_properties SET name = ? WHERE property_id = ?
	`, newName, propertyID); err != nil {
		return translateErr("failed to cascade rename to catalogue items", err)
	}
	if _, err := o.q.ExecContext(ctx, `
		UPDATE item_properties SET name = ? WHERE property_id = ?
	`, newName, propertyID); err != nil {
		return translateErr("failed to cascade rename to items", err)
	}
	return nil
}

// SetCategoryPropertyAllowedValues replaces the stored allowed-values
// document. The legality of the transition (list extension only) is the
// service's concern; no cascade is needed because existing stored values
// remain valid by construction.
func (o ops) SetCategoryPropertyAllowedValues(ctx context.Context, categoryID, propertyID string, av *types.AllowedValues) error {
	encoded, err := encodeAllowedValues(av)
	if err != nil {
		return err
	}
	res, err := o.q.ExecContext(ctx, `
		UPDATE catalogue_category_properties SET allowed_values = ?
		WHERE id = ? AND category_id = ?
	`, encoded, propertyID, categoryID)
	if err != nil {
		return translateErr("failed to update allowed values", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update allowed values", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "category property not found: %s", propertyID)
	}
	return nil
}

// DeleteCategoryProperties drops every descriptor of a category. Callers
// must have verified that no catalogue items exist under it, otherwise
// the denormalised copies would be orphaned.
func (o ops) DeleteCategoryProperties(ctx context.Context, categoryID string) error {
	_, err := o.q.ExecContext(ctx, `DELETE FROM catalogue_category_properties WHERE category_id = ?`, categoryID)
	return translateErr("failed to delete category properties", err)
}
