package sqlite

import (
	"context"
	"database/sql"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/types"
)

// Flat lookup entities. Deletion guards (the *InUse checks) belong to the
// lookup service; the queries live here so they run against the same
// snapshot as the delete when wrapped in a transaction.

// --- Units ---

func (o ops) CreateUnit(ctx context.Context, u *types.Unit) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO units (id, value, code) VALUES (?, ?, ?)`, u.ID, u.Value, u.Code)
	return translateErr("failed to insert unit", err)
}

func (o ops) GetUnit(ctx context.Context, id string) (*types.Unit, error) {
	u := &types.Unit{}
	err := o.q.QueryRowContext(ctx, `SELECT id, value, code FROM units WHERE id = ?`, id).
		Scan(&u.ID, &u.Value, &u.Code)
	if err != nil {
		return nil, requireRow(err, "unit", id)
	}
	return u, nil
}

func (o ops) ListUnits(ctx context.Context) ([]*types.Unit, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT id, value, code FROM units ORDER BY value`)
	if err != nil {
		return nil, translateErr("failed to list units", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Unit
	for rows.Next() {
		u := &types.Unit{}
		if err := rows.Scan(&u.ID, &u.Value, &u.Code); err != nil {
			return nil, translateErr("failed to scan unit", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (o ops) DeleteUnit(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "units", "unit", id)
}

func (o ops) UnitInUse(ctx context.Context, id string) (bool, error) {
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM catalogue_category_properties WHERE unit_id = ?)`, id)
}

// --- Usage statuses ---

func (o ops) CreateUsageStatus(ctx context.Context, u *types.UsageStatus) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO usage_statuses (id, value, code) VALUES (?, ?, ?)`, u.ID, u.Value, u.Code)
	return translateErr("failed to insert usage status", err)
}

func (o ops) GetUsageStatus(ctx context.Context, id string) (*types.UsageStatus, error) {
	u := &types.UsageStatus{}
	err := o.q.QueryRowContext(ctx, `SELECT id, value, code FROM usage_statuses WHERE id = ?`, id).
		Scan(&u.ID, &u.Value, &u.Code)
	if err != nil {
		return nil, requireRow(err, "usage status", id)
	}
	return u, nil
}

func (o ops) ListUsageStatuses(ctx context.Context) ([]*types.UsageStatus, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT id, value, code FROM usage_statuses ORDER BY value`)
	if err != nil {
		return nil, translateErr("failed to list usage statuses", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.UsageStatus
	for rows.Next() {
		u := &types.UsageStatus{}
		if err := rows.Scan(&u.ID, &u.Value, &u.Code); err != nil {
			return nil, translateErr("failed to scan usage status", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (o ops) DeleteUsageStatus(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "usage_statuses", "usage status", id)
}

// UsageStatusInUse checks items and rules. The spares-definition
// membership check happens in the service, which owns the settings
// decoding.
func (o ops) UsageStatusInUse(ctx context.Context, id string) (bool, error) {
	if has, err := o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE usage_status_id = ?)`, id); err != nil || has {
		return has, err
	}
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM rules WHERE dst_usage_status_id = ?)`, id)
}

// --- System types ---

func (o ops) CreateSystemType(ctx context.Context, st *types.SystemType) error {
	_, err := o.q.ExecContext(ctx, `INSERT INTO system_types (id, value) VALUES (?, ?)`, st.ID, st.Value)
	return translateErr("failed to insert system type", err)
}

func (o ops) GetSystemType(ctx context.Context, id string) (*types.SystemType, error) {
	st := &types.SystemType{}
	err := o.q.QueryRowContext(ctx, `SELECT id, value FROM system_types WHERE id = ?`, id).
		Scan(&st.ID, &st.Value)
	if err != nil {
		return nil, requireRow(err, "system type", id)
	}
	return st, nil
}

func (o ops) ListSystemTypes(ctx context.Context) ([]*types.SystemType, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT id, value FROM system_types ORDER BY value`)
	if err != nil {
		return nil, translateErr("failed to list system types", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.SystemType
	for rows.Next() {
		st := &types.SystemType{}
		if err := rows.Scan(&st.ID, &st.Value); err != nil {
			return nil, translateErr("failed to scan system type", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (o ops) DeleteSystemType(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "system_types", "system type", id)
}

func (o ops) SystemTypeInUse(ctx context.Context, id string) (bool, error) {
	if has, err := o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM systems WHERE type_id = ?)`, id); err != nil || has {
		return has, err
	}
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM rules WHERE src_system_type_id = ? OR dst_system_type_id = ?)`, id, id)
}

// --- Manufacturers ---

func (o ops) CreateManufacturer(ctx context.Context, m *types.Manufacturer) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO manufacturers (id, name, code, url, address_line, town, county, country, postcode, telephone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.Name, m.Code, nullStr(m.URL),
		m.Address.AddressLine, nullStr(m.Address.Town), nullStr(m.Address.County),
		m.Address.Country, m.Address.Postcode, nullStr(m.Telephone),
		m.CreatedAt, m.UpdatedAt,
	)
	return translateErr("failed to insert manufacturer", err)
}

func scanManufacturer(scan func(dest ...interface{}) error) (*types.Manufacturer, error) {
	m := &types.Manufacturer{}
	var url, town, county, telephone sql.NullString
	err := scan(
		&m.ID, &m.Name, &m.Code, &url,
		&m.Address.AddressLine, &town, &county, &m.Address.Country, &m.Address.Postcode,
		&telephone, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.URL = strPtr(url)
	m.Address.Town = strPtr(town)
	m.Address.County = strPtr(county)
	m.Telephone = strPtr(telephone)
	return m, nil
}

const manufacturerColumns = `id, name, code, url, address_line, town, county, country, postcode, telephone, created_at, updated_at`

func (o ops) GetManufacturer(ctx context.Context, id string) (*types.Manufacturer, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+manufacturerColumns+` FROM manufacturers WHERE id = ?`, id)
	m, err := scanManufacturer(row.Scan)
	if err != nil {
		return nil, requireRow(err, "manufacturer", id)
	}
	return m, nil
}

func (o ops) ListManufacturers(ctx context.Context) ([]*types.Manufacturer, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT `+manufacturerColumns+` FROM manufacturers ORDER BY name`)
	if err != nil {
		return nil, translateErr("failed to list manufacturers", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Manufacturer
	for rows.Next() {
		m, err := scanManufacturer(rows.Scan)
		if err != nil {
			return nil, translateErr("failed to scan manufacturer", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (o ops) UpdateManufacturer(ctx context.Context, m *types.Manufacturer) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE manufacturers
		SET name = ?, code = ?, url = ?, address_line = ?, town = ?, county = ?, country = ?, postcode = ?, telephone = ?, updated_at = ?
		WHERE id = ?
	`,
		m.Name, m.Code, nullStr(m.URL),
		m.Address.AddressLine, nullStr(m.Address.Town), nullStr(m.Address.County),
		m.Address.Country, m.Address.Postcode, nullStr(m.Telephone),
		m.UpdatedAt, m.ID,
	)
	if err != nil {
		return translateErr("failed to update manufacturer", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to update manufacturer", err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "manufacturer not found: %s", m.ID)
	}
	return nil
}

func (o ops) DeleteManufacturer(ctx context.Context, id string) error {
	return o.deleteByID(ctx, "manufacturers", "manufacturer", id)
}

func (o ops) ManufacturerInUse(ctx context.Context, id string) (bool, error) {
	return o.exists(ctx, `SELECT EXISTS(SELECT 1 FROM catalogue_items WHERE manufacturer_id = ?)`, id)
}

// deleteByID deletes a row by primary key, mapping zero rows affected to
// missing-record.
func (o ops) deleteByID(ctx context.Context, table, entity, id string) error {
	res, err := o.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return translateErr("failed to delete "+entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to delete "+entity, err)
	}
	if n == 0 {
		return errs.Newf(errs.MissingRecord, "%s not found: %s", entity, id)
	}
	return nil
}
