package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/beamtime/ims/internal/types"
)

// Property values are stored as JSON-encoded TEXT; SQL NULL means the
// value null. JSON keeps the closed type set (string, number, boolean)
// round-trippable without a per-type column.

func encodeValue(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(types.NormalizeValue(v))
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode property value: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeValue(ns sql.NullString) (interface{}, error) {
	if !ns.Valid {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return nil, fmt.Errorf("failed to decode property value %q: %w", ns.String, err)
	}
	return v, nil
}

func encodeAllowedValues(av *types.AllowedValues) (sql.NullString, error) {
	if av == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(av)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode allowed values: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeAllowedValues(ns sql.NullString) (*types.AllowedValues, error) {
	if !ns.Valid {
		return nil, nil
	}
	av := &types.AllowedValues{}
	if err := json.Unmarshal([]byte(ns.String), av); err != nil {
		return nil, fmt.Errorf("failed to decode allowed values %q: %w", ns.String, err)
	}
	return av, nil
}

// nullStr converts an optional string to its SQL form.
func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
