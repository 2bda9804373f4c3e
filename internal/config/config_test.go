package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_VisionWithoutAPIKeyStarts(t *testing.T) {
	// No key means the backend runs unavailable and shows up degraded in
	// detection metadata; it must not block startup.
	cfg := validConfig()
	cfg.Detection.Vision.Enabled = true
	cfg.Detection.Vision.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for vision backend without api key: %v", err)
	}
}

func TestValidate_CLIPNeedsModelDir(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.CLIP.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled clip backend without model dir")
	}
}

func TestValidate_BackupNeedsToken(t *testing.T) {
	cfg := validConfig()
	cfg.Backup.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled backup without access token")
	}
}

func TestValidate_ThresholdAboveOne(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Detection.ConfidenceThreshold != 0.3 {
		t.Errorf("ConfidenceThreshold = %v, want 0.3", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want 30", cfg.Detection.TimeoutSec)
	}
	if cfg.Storage.MaxFileSize != 10<<20 {
		t.Errorf("MaxFileSize = %d, want 10MB", cfg.Storage.MaxFileSize)
	}
	if len(cfg.Storage.AllowedTypes) != 3 {
		t.Errorf("AllowedTypes = %v, want jpg/jpeg/png", cfg.Storage.AllowedTypes)
	}
	if cfg.Storage.KeyPrefix != "toolscout:" {
		t.Errorf("KeyPrefix = %q", cfg.Storage.KeyPrefix)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("ShutdownSec = %d, want 10", cfg.HTTP.ShutdownSec)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Detection: DetectionConfig{ConfidenceThreshold: 0.55, TimeoutSec: 5},
		Storage:   StorageConfig{MaxFileSize: 1 << 20},
	}
	cfg.ApplyDefaults()

	if cfg.Detection.ConfidenceThreshold != 0.55 {
		t.Errorf("ConfidenceThreshold = %v, want 0.55", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.TimeoutSec != 5 {
		t.Errorf("TimeoutSec = %d, want 5", cfg.Detection.TimeoutSec)
	}
	if cfg.Storage.MaxFileSize != 1<<20 {
		t.Errorf("MaxFileSize = %d, want explicit 1MB", cfg.Storage.MaxFileSize)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TS_TEST_KEY", "secret")

	in := []byte("api_key: ${TS_TEST_KEY}\nmodel: ${TS_TEST_MODEL:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "api_key: secret") {
		t.Errorf("expanded = %q, want env value substituted", out)
	}
	if !strings.Contains(out, "model: gpt-4o-mini") {
		t.Errorf("expanded = %q, want default applied", out)
	}
}
