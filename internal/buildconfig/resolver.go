package buildconfig

import (
	"fmt"
	"path/filepath"
)

// Variant selects one of the two known configurations. They differ only in
// whether the style pipeline is attached.
type Variant string

const (
	VariantPlain  Variant = "plain"
	VariantStyled Variant = "styled"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantPlain, VariantStyled:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Resolver produces BuildConfigs relative to a fixed working directory.
type Resolver struct {
	WorkDir string
	Variant Variant
}

// NewResolver makes workDir absolute. This is the only step that can fail;
// Resolve itself is total.
func NewResolver(workDir string, variant Variant) (*Resolver, error) {
	if _, err := ParseVariant(string(variant)); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	return &Resolver{WorkDir: abs, Variant: variant}, nil
}

// Resolve builds the configuration for the given environment snapshot. Only
// NODE_ENV is consulted.
func (r *Resolver) Resolve(env Env) BuildConfig {
	cfg := BuildConfig{
		EntryPoints: map[string]string{
			EntryName: EntryModule,
		},
		Mode:                  ModeFromEnv(env),
		OutputDir:             filepath.Join(r.WorkDir, OutputDirName),
		OutputFilenamePattern: OutputFilenamePattern,
	}

	if r.Variant == VariantStyled {
		style := BuildStylePipeline()
		cfg.Rules = []Rule{{Test: style.Test, Style: &style}}
	}

	return cfg
}
