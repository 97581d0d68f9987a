// Package sqlite - database migrations
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beamtime/ims/internal/debug"
)

// migration is a single additive schema change. Migrations must be
// idempotent: they probe the live schema before altering it, so fresh
// databases (already on the current schema) pass straight through.
type migration struct {
	name string
	fn   func(ctx context.Context, db *sql.DB) error
}

// migrationsList is the ordered list of migrations run during database
// initialisation, after the base schema is applied.
var migrationsList = []migration{
	{"item_purchase_order_column", migratePurchaseOrderColumn},
	{"catalogue_item_drawing_columns", migrateDrawingColumns},
	{"rules_triple_unique_index", migrateRulesTripleIndex},
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, m := range migrationsList {
		if err := m.fn(ctx, db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		debug.Logf("migration %s ok", m.name)
	}
	return nil
}

// columnExists probes table_info for a named column.
func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, decl string) error {
	ok, err := columnExists(ctx, db, table, column)
	if err != nil || ok {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}

func migratePurchaseOrderColumn(ctx context.Context, db *sql.DB) error {
	return addColumnIfMissing(ctx, db, "items", "purchase_order_number", "TEXT")
}

func migrateDrawingColumns(ctx context.Context, db *sql.DB) error {
	if err := addColumnIfMissing(ctx, db, "catalogue_items", "drawing_link", "TEXT"); err != nil {
		return err
	}
	if err := addColumnIfMissing(ctx, db, "catalogue_items", "drawing_number", "TEXT"); err != nil {
		return err
	}
	return addColumnIfMissing(ctx, db, "catalogue_items", "model_number", "TEXT")
}

func migrateRulesTripleIndex(ctx context.Context, db *sql.DB) error {
	// Databases created before the rules table carried its unique triple
	// index allowed duplicate rules; the index is in the base schema now
	// but older files still need it added.
	_, err := db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_triple
		ON rules(IFNULL(src_system_type_id, ''), IFNULL(dst_system_type_id, ''), IFNULL(dst_usage_status_id, ''))
	`)
	return err
}
