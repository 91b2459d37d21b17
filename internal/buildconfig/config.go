package buildconfig

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// EntryName is the symbolic name of the single entry point.
	EntryName = "app"
	// EntryModule is the module the bundler starts traversal from.
	EntryModule = "./src/App.bs.js"
	// OutputDirName is joined with the working directory to form OutputDir.
	OutputDirName = "dist"
	// NamePlaceholder is substituted with each entry's symbolic name.
	NamePlaceholder = "[name]"
	// OutputFilenamePattern names every emitted entry bundle.
	OutputFilenamePattern = NamePlaceholder + ".js"
)

// BuildConfig is the fully resolved configuration handed to the bundler.
type BuildConfig struct {
	EntryPoints           map[string]string `json:"entryPoints" yaml:"entryPoints"`
	Mode                  Mode              `json:"mode" yaml:"mode"`
	OutputDir             string            `json:"outputDir" yaml:"outputDir"`
	OutputFilenamePattern string            `json:"outputFilenamePattern" yaml:"outputFilenamePattern"`
	Rules                 []Rule            `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Rule routes files whose path ends with Test through Style.
type Rule struct {
	Test  string         `json:"test" yaml:"test"`
	Style *StylePipeline `json:"style,omitempty" yaml:"style,omitempty"`
}

// Matches reports whether the rule applies to path.
func (r Rule) Matches(path string) bool {
	return r.Test != "" && strings.HasSuffix(path, r.Test)
}

// RuleFor returns the first rule matching path. Files without a rule pass
// through the bundler unmodified.
func (c BuildConfig) RuleFor(path string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}

// EntryNames returns the symbolic entry names in sorted order.
func (c BuildConfig) EntryNames() []string {
	return slices.Sorted(maps.Keys(c.EntryPoints))
}

// OutputFilename substitutes name into the filename pattern.
func (c BuildConfig) OutputFilename(name string) string {
	return strings.ReplaceAll(c.OutputFilenamePattern, NamePlaceholder, name)
}

// OutputPath is OutputFilename joined with OutputDir.
func (c BuildConfig) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, c.OutputFilename(name))
}

// Validate checks the invariants every resolved config satisfies.
func (c BuildConfig) Validate() error {
	if len(c.EntryPoints) == 0 {
		return fmt.Errorf("%w: no entry points", ErrInvalidConfig)
	}
	for name, module := range c.EntryPoints {
		if name == "" || module == "" {
			return fmt.Errorf("%w: empty entry point %q=%q", ErrInvalidConfig, name, module)
		}
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrInvalidMode, c.Mode)
	}
	if !filepath.IsAbs(c.OutputDir) {
		return fmt.Errorf("%w: output dir %q is not absolute", ErrInvalidConfig, c.OutputDir)
	}
	if !strings.Contains(c.OutputFilenamePattern, NamePlaceholder) {
		return fmt.Errorf("%w: filename pattern %q has no %s placeholder", ErrInvalidConfig, c.OutputFilenamePattern, NamePlaceholder)
	}
	for _, r := range c.Rules {
		if r.Test == "" {
			return fmt.Errorf("%w: rule without a test suffix", ErrInvalidConfig)
		}
	}
	return nil
}
