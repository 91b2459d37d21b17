package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ConfigCmd prints the resolved configuration without building.
type ConfigCmd struct {
	ResolveFlags `embed:""`

	Format string `help:"output format" default:"json" enum:"json,yaml" short:"f"`

	out io.Writer
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	_, log, shutdown := setup(ctx, globals)
	defer shutdown()

	cfg, resolver, err := c.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve build config: %w", err)
	}

	log.Debug().
		Str("mode", cfg.Mode.String()).
		Str("variant", string(resolver.Variant)).
		Int("rules", len(cfg.Rules)).
		Msg("Resolved build config")

	w := stdout(c.out)
	switch c.Format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
}
