// Package config loads the optional .hjkls.toml project configuration
// file spec.md §6 describes, decoded with github.com/pelletier/go-toml/v2
// the same way the rest of the pack's project-config loaders use that
// library for their own TOML-shaped settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FormatOptions mirrors the [format] table of .hjkls.toml and gates each
// pass of the formatter (spec.md §4.G, §6).
type FormatOptions struct {
	IndentWidth            int  `toml:"indent_width"`
	UseTabs                bool `toml:"use_tabs"`
	LineContinuationIndent int  `toml:"line_continuation_indent"`
	TrimTrailingWhitespace bool `toml:"trim_trailing_whitespace"`
	InsertFinalNewline     bool `toml:"insert_final_newline"`
	NormalizeSpaces        bool `toml:"normalize_spaces"`
	SpaceAroundOperators   bool `toml:"space_around_operators"`
	SpaceAfterComma        bool `toml:"space_after_comma"`
	SpaceAfterColon        bool `toml:"space_after_colon"`
}

// Config is the decoded .hjkls.toml, or the defaults when no file exists.
type Config struct {
	Format FormatOptions `toml:"format"`
}

// Default returns the configuration used when no .hjkls.toml is present.
func Default() Config {
	return Config{Format: FormatOptions{
		IndentWidth:            2,
		LineContinuationIndent: 6,
		TrimTrailingWhitespace: true,
		InsertFinalNewline:     true,
		NormalizeSpaces:        true,
		SpaceAroundOperators:   true,
		SpaceAfterComma:        true,
		SpaceAfterColon:        true,
	}}
}

// Load reads .hjkls.toml from root, if present. A missing file is not an
// error: Default() is returned. Unknown keys are ignored; a decode error
// for a key with the wrong type produces a warning string rather than a
// fatal error (spec.md §6 "invalid types are a startup warning, not fatal").
func Load(root string) (Config, []string) {
	cfg := Default()
	path := filepath.Join(root, ".hjkls.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, []string{fmt.Sprintf("hjkls: could not read %s: %v", path, err)}
	}

	// go-toml/v2's Unmarshal ignores keys with no matching struct field by
	// default, which is exactly "unknown keys are ignored" (spec.md §6).
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), []string{fmt.Sprintf("hjkls: %s: %v (using defaults)", path, err)}
	}
	return cfg, nil
}
