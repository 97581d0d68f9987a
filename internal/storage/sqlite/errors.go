package sqlite

import (
	"fmt"
	"strings"

	"github.com/beamtime/ims/internal/errs"
)

// isUniqueConstraintError checks if err is a UNIQUE constraint violation.
// Sibling-code and rule-triple duplicates rely on unique indexes, so this
// is how duplicate-record conditions are detected.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// isBusyError checks if err is a transient lock conflict (SQLITE_BUSY or
// SQLITE_LOCKED). These surface as retriable write-conflicts.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// isForeignKeyError checks if err is a foreign key violation. The
// services pre-check references, so hitting one of these means a race or
// a bug; it is surfaced as missing-record since the referent is gone.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// translateErr maps driver errors onto the error taxonomy. op names the
// failing operation for the wrapped message.
func translateErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return errs.Wrap(errs.DuplicateRecord, op, err)
	case isBusyError(err):
		return errs.Wrap(errs.WriteConflict, op, err)
	case isForeignKeyError(err):
		return errs.Wrap(errs.MissingRecord, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
