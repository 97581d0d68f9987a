package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/types"
)

// Settings are JSON documents keyed by a fixed string id per setting.

func (o ops) getSetting(ctx context.Context, key string, out interface{}) (bool, error) {
	var raw string
	err := o.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translateErr("failed to read setting "+key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

func (o ops) setSetting(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	_, err = o.q.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(raw))
	return translateErr("failed to write setting "+key, err)
}

// GetSparesDefinition returns the configured spares definition, or nil
// when none has been set.
func (o ops) GetSparesDefinition(ctx context.Context) (*types.SparesDefinition, error) {
	def := &types.SparesDefinition{}
	ok, err := o.getSetting(ctx, types.SettingSparesDefinition, def)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return def, nil
}

func (o ops) SetSparesDefinition(ctx context.Context, def *types.SparesDefinition) error {
	return o.setSetting(ctx, types.SettingSparesDefinition, def)
}

// WriteLockSetting acquires the document-level write lock on a settings
// row. Missing rows are invalid-action: the setting must exist before
// anything can serialise on it.
func (o ops) WriteLockSetting(ctx context.Context, key string) error {
	res, err := o.q.ExecContext(ctx, `UPDATE settings SET key = key WHERE key = ?`, key)
	if err != nil {
		return translateErr("failed to lock setting", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateErr("failed to lock setting", err)
	}
	if n == 0 {
		return errs.Newf(errs.InvalidAction, "setting not configured: %s", key)
	}
	return nil
}
