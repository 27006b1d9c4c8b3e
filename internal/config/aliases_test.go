package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeAliases(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "aliases"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadAliases_FileNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() returned error for missing file: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadAliases() returned nil config")
	}
	if len(cfg.Aliases) != 0 {
		t.Errorf("expected empty Aliases map, got %v", cfg.Aliases)
	}
}

func TestLoadAliases_CommentsAndBlankLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeAliases(t, dir, `# session driver name = support table name
# another comment


Go=GO
`)

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}
	if len(cfg.Aliases) != 1 {
		t.Errorf("expected 1 alias, got %d: %v", len(cfg.Aliases), cfg.Aliases)
	}
	if got := cfg.Aliases["Go"]; got != "GO" {
		t.Errorf("Aliases[\"Go\"] = %q, want %q", got, "GO")
	}
}

func TestLoadAliases_ValidLines(t *testing.T) {
	dir := t.TempDir()
	writeAliases(t, dir, "Snowflake.Data = .NET\nJDBC-Snowpark=JDBC\n")

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}

	tests := []struct {
		from string
		to   string
	}{
		{"Snowflake.Data", ".NET"},
		{"JDBC-Snowpark", "JDBC"},
	}
	for _, tt := range tests {
		if got := cfg.Aliases[tt.from]; got != tt.to {
			t.Errorf("Aliases[%q] = %q, want %q", tt.from, got, tt.to)
		}
	}
}

func TestLoadAliases_InvalidLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeAliases(t, dir, `noequalssign
=missingdriver
Go=GO
 =
Python=
ODBC=ODBC
`)

	cfg, err := LoadAliases(dir)
	if err != nil {
		t.Fatalf("LoadAliases() error: %v", err)
	}
	if len(cfg.Aliases) != 2 {
		t.Errorf("expected 2 aliases (only valid lines), got %d: %v", len(cfg.Aliases), cfg.Aliases)
	}
	if got := cfg.Aliases["ODBC"]; got != "ODBC" {
		t.Errorf("Aliases[\"ODBC\"] = %q, want %q", got, "ODBC")
	}
	if want := []int{1, 2, 4, 5}; !reflect.DeepEqual(cfg.Skipped, want) {
		t.Errorf("Skipped = %v, want %v", cfg.Skipped, want)
	}
}

func TestAliasConfig_WithDefaults(t *testing.T) {
	cfg := &AliasConfig{Aliases: map[string]string{
		"python": "Snowpark",
		"Go":     "GO",
	}}

	got := cfg.WithDefaults()

	if got["Go"] != "GO" {
		t.Errorf("user alias missing: %v", got)
	}
	if got["python"] != "Snowpark" {
		t.Errorf("user alias should override default, got %v", got)
	}
	if _, ok := got["Python"]; ok {
		t.Error("default differing only in case should be replaced by the user entry")
	}
	if got["NodeJS"] != "JavaScript" {
		t.Errorf("defaults should be kept, got %v", got)
	}
	if DefaultAliases["Python"] != "PythonConnector" {
		t.Error("WithDefaults() must not modify DefaultAliases")
	}
}

func TestDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "drivercheck") {
		t.Errorf("Dir() = %q", dir)
	}
}
