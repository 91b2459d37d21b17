package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/clientbuild/internal/assets"
)

// BuildCmd bundles the client.
type BuildCmd struct {
	ResolveFlags `embed:""`

	Precompress bool   `help:"write zstd compressed copies of js and css outputs" default:"false" env:"CLIENTBUILD_PRECOMPRESS"`
	Metafile    string `help:"metafile name inside the output directory" default:"meta.json" env:"CLIENTBUILD_METAFILE"`

	out io.Writer
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, log, shutdown := setup(ctx, globals)
	defer shutdown()

	cfg, resolver, err := c.Resolve()
	if err != nil {
		return fmt.Errorf("failed to resolve build config: %w", err)
	}

	log.Info().
		Str("version", globals.Version).
		Str("mode", cfg.Mode.String()).
		Str("variant", string(resolver.Variant)).
		Msg("Starting build")

	pipeline := assets.New(cfg, assets.Config{
		WorkDir:      resolver.WorkDir,
		MetafileName: c.Metafile,
		Precompress:  c.Precompress,
	})

	report, err := pipeline.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build assets: %w", err)
	}

	w := tabwriter.NewWriter(stdout(c.out), 0, 4, 2, ' ', 0)
	for _, out := range report.Outputs {
		fmt.Fprintf(w, "%s\t%d\t%s\n", out.Path, out.Bytes, out.Compressed)
	}
	fmt.Fprintf(w, "%s build %s finished in %s\n", report.Mode, report.BuildID, report.Duration.Round(time.Millisecond))

	return w.Flush()
}
