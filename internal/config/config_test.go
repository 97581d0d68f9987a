package config

import "testing"

func TestEnvOverride(t *testing.T) {
	t.Setenv("IMS_DATABASE_PATH", "/tmp/override.db")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("database.path"); got != "/tmp/override.db" {
		t.Errorf("database.path = %q, want env override", got)
	}
}

func TestDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !GetBool("spares.recompute-enabled") {
		t.Error("spares recompute should default to on")
	}
	if GetBool("object-storage.enabled") {
		t.Error("object storage should default to off")
	}
	if got := GetDuration("object-storage.request-timeout").Seconds(); got != 30 {
		t.Errorf("request timeout default = %vs, want 30s", got)
	}
}

func TestMaxTrailLengthClamp(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := MaxTrailLength(); got != 5 {
		t.Errorf("MaxTrailLength default = %d, want 5", got)
	}
	Set("breadcrumbs.max-trail-length", 1)
	if got := MaxTrailLength(); got != 2 {
		t.Errorf("MaxTrailLength clamped = %d, want 2", got)
	}
}
