package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proxy.yaml")
	contents := "port: 9999\nadminPort: 9111\nauditLogPath: /tmp/audit.db\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Port != 9999 || c.AdminPort != 9111 || c.AuditLogPath != "/tmp/audit.db" {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestResolvePrecedenceFlagsOverFile(t *testing.T) {
	fileConfig := Config{Port: 8080, AdminPort: 8081}
	resolved := Resolve(fileConfig, 9090, 0, "")
	if resolved.Port != 9090 {
		t.Fatalf("expected flag port to win, got %d", resolved.Port)
	}
	if resolved.AdminPort != 8081 {
		t.Fatalf("expected file admin port preserved, got %d", resolved.AdminPort)
	}
}

func TestResolveFillsDefaults(t *testing.T) {
	resolved := Resolve(Config{Port: 8080}, 0, 0, "")
	if resolved.AdminPort != DefaultAdminPort {
		t.Fatalf("expected default admin port, got %d", resolved.AdminPort)
	}
	if resolved.MaxObjectSize != DefaultMaxObjectSize {
		t.Fatalf("expected default max object size, got %d", resolved.MaxObjectSize)
	}
	if resolved.MaxCacheSize != DefaultMaxCacheSize {
		t.Fatalf("expected default max cache size, got %d", resolved.MaxCacheSize)
	}
}
