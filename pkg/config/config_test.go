package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("NOTAS_TEST_NAME", "from-env")
	path := writeFile(t, "name: ${NOTAS_TEST_NAME}\n")

	cfg := testConfig{Port: 8080}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("name = %q, want %q", cfg.Name, "from-env")
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	cfg := testConfig{Port: 1}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("missing file should fail")
	}
	if err := Load(writeFile(t, "port: [\n"), &cfg); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("bad yaml = %v", err)
	}
	if err := Load(writeFile(t, "port: 0\n"), &cfg); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("invalid config = %v", err)
	}
}

func TestLoadIfExists(t *testing.T) {
	cfg := testConfig{Port: 8080}
	loaded, err := LoadIfExists(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	if err != nil || loaded {
		t.Fatalf("missing file: loaded = %v, err = %v", loaded, err)
	}
	if cfg.Port != 8080 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	bad := testConfig{}
	if _, err := LoadIfExists(filepath.Join(t.TempDir(), "missing.yaml"), &bad); err == nil {
		t.Error("invalid defaults should still be rejected")
	}

	loaded, err = LoadIfExists(writeFile(t, "port: 9090\n"), &cfg)
	if err != nil || !loaded || cfg.Port != 9090 {
		t.Errorf("existing file: loaded = %v, err = %v, cfg = %+v", loaded, err, cfg)
	}
}
