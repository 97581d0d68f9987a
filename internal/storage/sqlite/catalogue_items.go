package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/types"
)

// CreateCatalogueItem inserts a catalogue item and its property copies.
// The copies must already mirror the owning category's schema; the
// catalogue service validates that before calling.
func (o ops) CreateCatalogueItem(ctx context.Context, ci *types.CatalogueItem) error {
	isObsolete := 0
	if ci.IsObsolete {
		isObsolete = 1
	}
	var spares sql.NullInt64
	if ci.NumberOfSpares != nil {
		spares = sql.NullInt64{Int64: int64(*ci.NumberOfSpares), Valid: true}
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO catalogue_items (
			id, catalogue_category_id, manufacturer_id, name, description,
			cost_gbp, days_to_replace, drawing_link, drawing_number, model_number,
			is_obsolete, obsolete_reason, obsolete_replacement_catalogue_item_id,
			notes, number_of_spares, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ci.ID, ci.CatalogueCategoryID, ci.ManufacturerID, ci.Name, nullStr(ci.Description),
		ci.CostGBP, ci.DaysToReplace, nullStr(ci.DrawingLink), nullStr(ci.DrawingNumber), nullStr(ci.ModelNumber),
		isObsolete, nullStr(ci.ObsoleteReason), nullStr(ci.ObsoleteReplacementCatalogueItemID),
		nullStr(ci.Notes), spares, ci.CreatedAt, ci.UpdatedAt,
	)
	if err != nil {
		return translateErr("failed to insert catalogue item", err)
	}
	return o.insertPropertyCopies(ctx, "catalogue_item_properties", "catalogue_item_id", ci.ID, ci.Properties)
}

// insertPropertyCopies writes the denormalised property rows for a
// catalogue item or item via one prepared multi-row insert.
func (o ops) insertPropertyCopies(ctx context.Context, table, ownerCol, ownerID string, props []types.PropertyValue) error {
	for i, p := range props {
		value, err := encodeValue(p.Value)
		if err != nil {
			return err
		}
		_, err = o.q.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, property_id, name, unit, value, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, table, ownerCol), ownerID, p.ID, p.Name, nullStr(p.Unit), value, i)
		if err != nil {
			return translateErr("failed to insert property copy", err)
		}
	}
	return nil
}

func (o ops) loadPropertyCopies(ctx context.Context, table, ownerCol, ownerID string) ([]types.PropertyValue, error) {
	rows, err := o.q.QueryContext(ctx, fmt.Sprintf(`
		SELECT property_id, name, unit, value FROM %s WHERE %s = ? ORDER BY position
	`, table, ownerCol), ownerID)
	if err != nil {
		return nil, translateErr("failed to load property copies", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.PropertyValue
	for rows.Next() {
		var (
			p     types.PropertyValue
			unit  sql.NullString
			value sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &unit, &value); err != nil {
			return nil, translateErr("failed to scan property copy", err)
		}
		p.Unit = strPtr(unit)
		if p.Value, err = decodeValue(value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const catalogueItemColumns = `
	id, catalogue_category_id, manufacturer_id, name, description,
	cost_gbp, days_to_replace, drawing_link, drawing_number, model_number,
	is_obsolete, obsolete_reason, obsolete_replacement_catalogue_item_id,
	notes, number_of_spares, created_at, updated_at
`

func scanCatalogueItem(scan func(dest ...interface{}) error) (*types.CatalogueItem, error) {
	ci := &types.CatalogueItem{}
	var (
		description, drawingLink, drawingNumber, modelNumber sql.NullString
		obsoleteReason, replacement, notes                   sql.NullString
		isObsolete                                           int
		spares                                               sql.NullInt64
	)
	err := scan(
		&ci.ID, &ci.CatalogueCategoryID, &ci.ManufacturerID, &ci.Name, &description,
		&ci.CostGBP, &ci.DaysToReplace, &drawingLink, &drawingNumber, &modelNumber,
		&isObsolete, &obsoleteReason, &replacement,
		&notes, &spares, &ci.CreatedAt, &ci.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ci.Description = strPtr(description)
	ci.DrawingLink = strPtr(drawingLink)
	ci.DrawingNumber = strPtr(drawingNumber)
	ci.ModelNumber = strPtr(modelNumber)
	ci.IsObsolete = isObsolete != 0
	ci.ObsoleteReason = strPtr(obsoleteReason)
	ci.ObsoleteReplacementCatalogueItemID = strPtr(replacement)
	ci.Notes = strPtr(notes)
	if spares.Valid {
		n := int(spares.Int64)
		ci.NumberOfSpares = &n
	}
	return ci, nil
}

func (o ops) GetCatalogueItem(ctx context.Context, id string) (*types.CatalogueItem, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+catalogueItemColumns+` FROM catalogue_items WHERE id = ?`, id)
	ci, err := scanCatalogueItem(row.Scan)
	if err != nil {
		return nil, requireRow(err, "catalogue item", id)
	}
	if ci.Properties, err = o.loadPropertyCopies(ctx, "catalogue_item_properties", "catalogue_item_id", id); err != nil {
		return nil, err
	}
	return ci, nil
}

func (o ops) ListCatalogueItems(ctx context.Context, categoryID *string) ([]*types.CatalogueItem, error) {
	query := `SELECT ` + catalogueItemColumns + ` FROM catalogue_items`
	var args []interface{}
	if categoryID != nil {
		query += ` WHERE catalogue_category_id = ?`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY name`

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr("failed to list catalogue items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.CatalogueItem
	for rows.Next() {
		ci, err := scanCatalogueItem(rows.Scan)
		if err != nil {
			return nil, translateErr("failed to scan catalogue item", err)
		}
		out = append(out, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ci := range out {
		if ci.Properties, err = o.loadPropertyCopies(ctx, "catalogue_item_properties", "catalogue_item_id", ci.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o ops) ListCatalogueItemIDs(ctx context.Context) ([]string, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT id FROM catalogue_items ORDER BY id`)
	if err != nil {
		return nil, translateErr("failed to list catalogue item ids", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translateErr("failed to scan catalogue item id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateCatalogueItem updates the base record and overwrites stored
// property values, matched on the property id. Names and units on the
// copies stay owned by the propagation engine.
func (o ops) UpdateCatalogueItem(ctx context.Context, ci *types.CatalogueItem) error {
	isObsolete := 0
	if ci.IsObsolete {
		isObsolete = 1
	}
	var spares sql.NullInt64
	if ci.NumberOfSpares != nil {
		spares = sql.NullInt64{Int64: int64(*ci.NumberOfSpares), Valid: true}
	}
	res, err := o.q.ExecContext(ctx, `
		UPDATE catalogue_items SET
			catalogue_category_id = ?, manufacturer_id = ?, name = ?, description = ?,
			cost_gbp = ?, days_to_replace = ?, drawing_link = ?, drawing_number = ?, model_number = ?,
			is_obsolete = ?, obsolete_reason = ?, obsolete_replacement_catalogue_item_id = ?,
			notes = ?, number_of_spares = ?, updated_at = ?
		WHERE id = ?
	`,
		ci.CatalogueCategoryID, ci.ManufacturerID, ci.Name, nullStr(ci.Description),
		ci.CostGBP, ci.DaysToReplace, nullStr(ci.DrawingLink), nullStr(ci.DrawingNumber), nullStr(ci.ModelNumber),
		isObsolete, nullStr(ci.ObsoleteReason), nullStr(ci.ObsoleteReplacementCatalogueItemID),
		nullStr(ci.Notes), spares, ci.UpdatedAt, ci.ID,
	)
	if err != nil {
		return translateErr("failed to update catalogue item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update catalogue item", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "catalogue item not found: %s", ci.ID)
	}

	// Replace the property rows wholesale: the item may have moved to a
	// category with a different schema.
	if _, err := o.q.ExecContext(ctx, `DELETE FROM catalogue_item_properties WHERE catalogue_item_id = ?`, ci.ID); err != nil {
		return translateErr("failed to clear catalogue item properties", err)
	}
	return o.insertPropertyCopies(ctx, "catalogue_item_properties", "catalogue_item_id", ci.ID, ci.Properties)
}

func (o ops) DeleteCatalogueItem(ctx context.Context, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM catalogue_items WHERE id = ?`, id)
	if err != nil {
		return translateErr("failed to delete catalogue item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to delete catalogue item", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "catalogue item not found: %s", id)
	}
	return nil
}

// CatalogueItemHasChildElements reports whether any items exist under the
// catalogue item, or whether another catalogue item names it as its
// obsolete replacement.
func (o ops) CatalogueItemHasChildElements(ctx context.Context, id string) (bool, error) {
	if has, err := o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE catalogue_item_id = ?)`, id); err != nil || has {
		return has, err
	}
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM catalogue_items WHERE obsolete_replacement_catalogue_item_id = ?)`, id)
}

// CatalogueItemHasItems checks only for items beneath the catalogue
// item.
func (o ops) CatalogueItemHasItems(ctx context.Context, id string) (bool, error) {
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE catalogue_item_id = ?)`, id)
}

// WriteLockCatalogueItem acquires the document-level write lock on the
// catalogue item, serialising concurrent spares recomputes.
func (o ops) WriteLockCatalogueItem(ctx context.Context, id string) error {
	return o.writeLock(ctx, "catalogue_items", "catalogue item", id)
}

// RecomputeNumberOfSpares recounts the catalogue item's spares as one
// statement: items of this catalogue item whose usage status is in the
// definition, joined against their system's type when the definition
// scopes by type. Callers hold the write lock (issued before reading any
// recompute input) so concurrent recomputes serialise.
func (o ops) RecomputeNumberOfSpares(ctx context.Context, catalogueItemID string, def *types.SparesDefinition) (int, error) {
	if def == nil || len(def.UsageStatusIDs) == 0 {
		return 0, errs.New(errs.InvalidAction, "no spares definition configured")
	}

	var (
		args   []interface{}
		filter strings.Builder
	)
	filter.WriteString(`i.usage_status_id IN (` + placeholders(len(def.UsageStatusIDs)) + `)`)
	for _, id := range def.UsageStatusIDs {
		args = append(args, id)
	}
	if len(def.SystemTypeIDs) > 0 {
		filter.WriteString(` AND s.type_id IN (` + placeholders(len(def.SystemTypeIDs)) + `)`)
		for _, id := range def.SystemTypeIDs {
			args = append(args, id)
		}
	}
	args = append(args, catalogueItemID)

	var count int
	err := o.q.QueryRowContext(ctx, `
		UPDATE catalogue_items SET number_of_spares = (
			SELECT COUNT(*)
			FROM items i
			JOIN systems s ON s.id = i.system_id
			WHERE i.catalogue_item_id = catalogue_items.id
			  AND `+filter.String()+`
		)
		WHERE id = ?
		RETURNING number_of_spares
	`, args...).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, errs.Newf(errs.MissingRecord, "catalogue item not found: %s", catalogueItemID)
	}
	if err != nil {
		return 0, translateErr("failed to recompute number of spares", err)
	}
	return count, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
