package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestNewShape(t *testing.T) {
	id := New()
	if len(id) != IDLength {
		t.Fatalf("expected %d chars, got %d (%s)", IDLength, len(id), id)
	}
	if !IsValid(id) {
		t.Fatalf("generated id failed validation: %s", id)
	}
}

func TestNewAtEmbedsTimeSeed(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	// First 8 hex chars encode the Unix seconds
	want := "665b0990"
	if !strings.HasPrefix(id, want) {
		t.Errorf("expected prefix %s, got %s", want, id)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"665b0990aabbccddeeff0011", false},
		{"665B0990AABBCCDDEEFF0011", false},
		{"", true},
		{"665b0990aabbccddeeff001", true},   // 23 chars
		{"665b0990aabbccddeeff00112", true}, // 25 chars
		{"665b0990aabbccddeeff00zz", true},  // non-hex
		{"not-an-id", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != strings.ToLower(tt.in) {
			t.Errorf("Parse(%q) = %q, want lowercase form", tt.in, got)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Motion Sensors", "motion-sensors"},
		{"  Motion   Sensors  ", "motion-sensors"},
		{"motion-sensors", "motion-sensors"},
		{"Vacuum\tPumps\nUnit", "vacuum-pumps-unit"},
		{"UPPER", "upper"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	names := []string{"Motion Sensors", "  a  b  c ", "already-a-code", "Mixed CASE  Name"}
	for _, n := range names {
		once := Slugify(n)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q != %q", n, once, twice)
		}
	}
}
