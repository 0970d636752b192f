package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"hjkls.dev/hjkls/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, warnings := config.Load(t.TempDir())
	if len(warnings) != 0 {
		t.Fatalf("want no warnings for a missing config file, got %v", warnings)
	}
	if cfg.Format.IndentWidth != 2 {
		t.Errorf("want default indent width 2, got %d", cfg.Format.IndentWidth)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "[format]\nindent_width = 4\nuse_tabs = true\nunknown_key = \"ignored\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".hjkls.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, warnings := config.Load(dir)
	if len(warnings) != 0 {
		t.Fatalf("want unknown keys ignored without warning, got %v", warnings)
	}
	if cfg.Format.IndentWidth != 4 || !cfg.Format.UseTabs {
		t.Fatalf("want overridden format options, got %+v", cfg.Format)
	}
}

func TestLoadInvalidTypeWarnsInsteadOfFailing(t *testing.T) {
	dir := t.TempDir()
	content := "[format]\nindent_width = \"four\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".hjkls.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, warnings := config.Load(dir)
	if len(warnings) == 0 {
		t.Fatal("want a warning for an invalid type")
	}
	if cfg.Format.IndentWidth != 2 {
		t.Errorf("want defaults restored after an invalid config, got %+v", cfg.Format)
	}
}
