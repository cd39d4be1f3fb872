package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	path := writeFile(t, "config.yaml", "log_level: debug\n")
	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}

	if cfg.InputDir != "./input" || cfg.OutputDir != "./output" {
		t.Fatalf("directory defaults = %q %q", cfg.InputDir, cfg.OutputDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.OutputNameFormat != "payload_{timestamp}_{uuid}.json" {
		t.Fatalf("OutputNameFormat = %q", cfg.OutputNameFormat)
	}
	if cfg.Server.TimeoutSeconds != 30 {
		t.Fatalf("TimeoutSeconds = %d", cfg.Server.TimeoutSeconds)
	}

	// Validation creates the configured directories.
	if _, err := os.Stat(filepath.Join(dir, "input")); err != nil {
		t.Fatalf("input dir not created: %v", err)
	}
}

func TestLoadMainConfigRejectsBadLogLevel(t *testing.T) {
	path := writeFile(t, "config.yaml", "log_level: loud\n")
	if _, err := LoadMainConfig(path); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestLoadMappingConfig(t *testing.T) {
	path := writeFile(t, "mapping.yaml", `
establishment_patterns:
  HGR: "Hopital General"
data_elements:
  "Consultations externes":
    section: "Section A"
    data_element: "Cases"
value_remaps:
  SEXE:
    Masculin: "M"
collision_policy: reject
`)
	cfg, err := LoadMappingConfig(path)
	if err != nil {
		t.Fatalf("LoadMappingConfig: %v", err)
	}

	if cfg.EstablishmentPatterns["HGR"] != "Hopital General" {
		t.Fatalf("patterns = %v", cfg.EstablishmentPatterns)
	}
	m := cfg.DataElements["Consultations externes"]
	if m.Section != "Section A" || m.DataElement != "Cases" {
		t.Fatalf("data element mapping = %+v", m)
	}
	if cfg.ValueRemaps["SEXE"]["Masculin"] != "M" {
		t.Fatalf("remaps = %v", cfg.ValueRemaps)
	}

	// Defaults cover everything the file left out.
	if cfg.TemplateHeaderRow == nil || *cfg.TemplateHeaderRow != 5 || cfg.SheetHeaderRow != 0 {
		t.Fatalf("header rows = %v %d", cfg.TemplateHeaderRow, cfg.SheetHeaderRow)
	}
	if cfg.EstablishmentColumn != "NOM_ETAB" || cfg.EstablishmentCodeColumn != "CODE_ETAB" {
		t.Fatalf("columns = %q %q", cfg.EstablishmentColumn, cfg.EstablishmentCodeColumn)
	}
	if len(cfg.CategoryColumns) != 2 || cfg.CategoryColumns[0] != "GROUP_AGE" {
		t.Fatalf("category columns = %v", cfg.CategoryColumns)
	}
	if cfg.CollisionPolicy != "reject" || cfg.EmitZeroValues {
		t.Fatalf("policies = %q %v", cfg.CollisionPolicy, cfg.EmitZeroValues)
	}
}

func TestLoadMappingConfigKeepsExplicitZeroHeaderRow(t *testing.T) {
	path := writeFile(t, "mapping.yaml", "template_header_row: 0\n")
	cfg, err := LoadMappingConfig(path)
	if err != nil {
		t.Fatalf("LoadMappingConfig: %v", err)
	}
	// An explicit 0 is a real setting, not an unset field to default away.
	if cfg.TemplateHeaderRow == nil || *cfg.TemplateHeaderRow != 0 {
		t.Fatalf("TemplateHeaderRow = %v, want 0", cfg.TemplateHeaderRow)
	}
}

func TestLoadMainConfigArchiveSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	path := writeFile(t, "config.yaml", "archive_retention_days: 90\narchive_timestamp_subdirs: true\n")
	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if cfg.ArchiveRetentionDays != 90 || !cfg.ArchiveTimestampSubdirs {
		t.Fatalf("archive settings = %d %v", cfg.ArchiveRetentionDays, cfg.ArchiveTimestampSubdirs)
	}

	bad := writeFile(t, "bad.yaml", "archive_retention_days: -1\n")
	if _, err := LoadMainConfig(bad); err == nil {
		t.Fatal("expected error for negative retention")
	}
}

func TestLoadMappingConfigRejectsIncompleteMapping(t *testing.T) {
	path := writeFile(t, "mapping.yaml", `
data_elements:
  "Broken":
    section: "Section A"
`)
	if _, err := LoadMappingConfig(path); err == nil {
		t.Fatal("expected error for mapping without data_element")
	}
}

func TestLoadMappingConfigRejectsBadPolicy(t *testing.T) {
	path := writeFile(t, "mapping.yaml", "collision_policy: maybe\n")
	if _, err := LoadMappingConfig(path); err == nil {
		t.Fatal("expected error for unknown collision policy")
	}
}
