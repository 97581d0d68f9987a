package sqlite

import (
	"context"
	"database/sql"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"
	"github.com/beamtime/ims/internal/types"
)

func (o ops) CreateItem(ctx context.Context, it *types.Item) error {
	isDefective := 0
	if it.IsDefective {
		isDefective = 1
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO items (
			id, catalogue_item_id, system_id, usage_status_id, is_defective,
			serial_number, asset_number, purchase_order_number,
			warranty_end_date, delivered_date, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID, it.CatalogueItemID, it.SystemID, it.UsageStatusID, isDefective,
		nullStr(it.SerialNumber), nullStr(it.AssetNumber), nullStr(it.PurchaseOrderNumber),
		it.WarrantyEndDate, it.DeliveredDate, nullStr(it.Notes), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return translateErr("failed to insert item", err)
	}
	return o.insertPropertyCopies(ctx, "item_properties", "item_id", it.ID, it.Properties)
}

const itemColumns = `
	id, catalogue_item_id, system_id, usage_status_id, is_defective,
	serial_number, asset_number, purchase_order_number,
	warranty_end_date, delivered_date, notes, created_at, updated_at
`

func scanItem(scan func(dest ...interface{}) error) (*types.Item, error) {
	it := &types.Item{}
	var (
		isDefective                      int
		serial, asset, po, notes         sql.NullString
		warrantyEnd, delivered           sql.NullTime
	)
	err := scan(
		&it.ID, &it.CatalogueItemID, &it.SystemID, &it.UsageStatusID, &isDefective,
		&serial, &asset, &po,
		&warrantyEnd, &delivered, &notes, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.IsDefective = isDefective != 0
	it.SerialNumber = strPtr(serial)
	it.AssetNumber = strPtr(asset)
	it.PurchaseOrderNumber = strPtr(po)
	it.Notes = strPtr(notes)
	if warrantyEnd.Valid {
		t := warrantyEnd.Time
		it.WarrantyEndDate = &t
	}
	if delivered.Valid {
		t := delivered.Time
		it.DeliveredDate = &t
	}
	return it, nil
}

func (o ops) GetItem(ctx context.Context, id string) (*types.Item, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row.Scan)
	if err != nil {
		return nil, requireRow(err, "item", id)
	}
	if it.Properties, err = o.loadPropertyCopies(ctx, "item_properties", "item_id", id); err != nil {
		return nil, err
	}
	return it, nil
}

func (o ops) ListItems(ctx context.Context, filter storage.ItemFilter) ([]*types.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var (
		conds []string
		args  []interface{}
	)
	if filter.SystemID != nil {
		conds = append(conds, `system_id = ?`)
		args = append(args, *filter.SystemID)
	}
	if filter.CatalogueItemID != nil {
		conds = append(conds, `catalogue_item_id = ?`)
		args = append(args, *filter.CatalogueItemID)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY created_at`

	rows, err := o.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr("failed to list items", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Item
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, translateErr("failed to scan item", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, it := range out {
		if it.Properties, err = o.loadPropertyCopies(ctx, "item_properties", "item_id", it.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateItem updates the base record and overwrites stored property
// values by property id.
func (o ops) UpdateItem(ctx context.Context, it *types.Item) error {
	isDefective := 0
	if it.IsDefective {
		isDefective = 1
	}
	res, err := o.q.ExecContext(ctx, `
		UPDATE items SET
			catalogue_item_id = ?, system_id = ?, usage_status_id = ?, is_defective = ?,
			serial_number = ?, asset_number = ?, purchase_order_number = ?,
			warranty_end_date = ?, delivered_date = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		it.CatalogueItemID, it.SystemID, it.UsageStatusID, isDefective,
		nullStr(it.SerialNumber), nullStr(it.AssetNumber), nullStr(it.PurchaseOrderNumber),
		it.WarrantyEndDate, it.DeliveredDate, nullStr(it.Notes), it.UpdatedAt, it.ID,
	)
	if err != nil {
		return translateErr("failed to update item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update item", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "item not found: %s", it.ID)
	}

	if _, err := o.q.ExecContext(ctx, `DELETE FROM item_properties WHERE item_id = ?`, it.ID); err != nil {
		return translateErr("failed to clear item properties", err)
	}
	return o.insertPropertyCopies(ctx, "item_properties", "item_id", it.ID, it.Properties)
}

func (o ops) DeleteItem(ctx context.Context, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return translateErr("failed to delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to delete item", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "item not found: %s", id)
	}
	return nil
}
