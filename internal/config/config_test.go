package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/technosupport/surveillance-core/internal/config"
)

const sampleYAML = `
database:
  host: db.internal
  port: 5432
  user: argus
  name: surveillance
queue:
  capacity: 500
  worker_count: 4
ai:
  provider_order: [openai, claude]
flags:
  face_recognition_enabled: true
`

func writeConfig(t *testing.T, dir, body string) string {
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleYAML)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Queue.Capacity != 500 {
		t.Errorf("Capacity = %d, want 500", cfg.Queue.Capacity)
	}
	if cfg.AI.SingleFrameBudget != 5*time.Second {
		t.Errorf("SingleFrameBudget = %v, want 5s default", cfg.AI.SingleFrameBudget)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Backend = %q, want local default", cfg.Storage.Backend)
	}
	if !cfg.Flags.FaceRecognitionEnabled {
		t.Error("FaceRecognitionEnabled should be true from file")
	}
}

func TestLoadEnvOverridesPassword(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleYAML)

	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "override.internal")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Password != "secret" {
		t.Errorf("Password = %q, want env override", cfg.Database.Password)
	}
	if cfg.Database.Host != "override.internal" {
		t.Errorf("Host = %q, want env override", cfg.Database.Host)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := config.Load("/nonexistent/path.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManagerReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleYAML)

	m, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Current().Queue.Capacity != 500 {
		t.Fatalf("initial Capacity = %d, want 500", m.Current().Queue.Capacity)
	}

	writeConfig(t, dir, `
queue:
  capacity: 999
`)
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if m.Current().Queue.Capacity != 999 {
		t.Errorf("Capacity after reload = %d, want 999", m.Current().Queue.Capacity)
	}
}

func TestManagerReloadKeepsPreviousConfigOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleYAML)

	m, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	writeConfig(t, dir, "not: [valid: yaml")
	if err := m.Reload(); err == nil {
		t.Fatal("expected Reload to fail on invalid yaml")
	}
	if m.Current().Queue.Capacity != 500 {
		t.Errorf("Current Capacity = %d, want unchanged 500 after failed reload", m.Current().Queue.Capacity)
	}
}
