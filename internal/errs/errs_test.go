package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(MissingRecord, "no such unit")
	if KindOf(err) != MissingRecord {
		t.Errorf("KindOf = %q, want %q", KindOf(err), MissingRecord)
	}
	if KindOf(nil) != "" {
		t.Errorf("KindOf(nil) = %q, want empty", KindOf(nil))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Errorf("unclassified error should have empty kind")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(WriteConflict, "database is locked")
	outer := fmt.Errorf("updating item: %w", inner)
	if !Is(outer, WriteConflict) {
		t.Errorf("kind lost through fmt.Errorf wrapping")
	}
	if !Retriable(outer) {
		t.Errorf("write conflict should be retriable")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(DuplicateRecord, "insert", nil) != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
	cause := errors.New("UNIQUE constraint failed: systems.code")
	err := Wrap(DuplicateRecord, "creating system", cause)
	if !Is(err, DuplicateRecord) {
		t.Errorf("wrong kind: %q", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}
}

func TestRetriable(t *testing.T) {
	if Retriable(New(InvalidAction, "cycle")) {
		t.Errorf("invalid-action must not be retriable")
	}
	if !Retriable(New(WriteConflict, "busy")) {
		t.Errorf("write-conflict must be retriable")
	}
}
