package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clientbuild/internal/buildconfig"
	"github.com/wolfeidau/clientbuild/internal/logger"
	"github.com/wolfeidau/clientbuild/internal/telemetry"
)

const serviceName = "clientbuild"

type Globals struct {
	Debug   bool
	Tracing bool
	Version string

	// logOut overrides stderr for log output
	logOut io.Writer
}

// ResolveFlags selects the configuration to resolve.
type ResolveFlags struct {
	WorkDir string `help:"project directory the entry module and output directory are relative to" default:"." env:"CLIENTBUILD_WORKDIR"`
	Variant string `help:"configuration variant (plain has no style pipeline)" default:"styled" enum:"plain,styled" env:"CLIENTBUILD_VARIANT"`
}

// Resolve reads the process environment once and resolves the build config.
func (f ResolveFlags) Resolve() (buildconfig.BuildConfig, *buildconfig.Resolver, error) {
	variant, err := buildconfig.ParseVariant(f.Variant)
	if err != nil {
		return buildconfig.BuildConfig{}, nil, err
	}

	resolver, err := buildconfig.NewResolver(f.WorkDir, variant)
	if err != nil {
		return buildconfig.BuildConfig{}, nil, err
	}

	return resolver.Resolve(buildconfig.EnvFromOS()), resolver, nil
}

// setup configures logging and, when enabled, telemetry. The returned func
// flushes telemetry and must be deferred.
func setup(ctx context.Context, globals *Globals) (context.Context, zerolog.Logger, func()) {
	log := logger.Setup(globals.Debug)
	if globals.logOut != nil {
		log = logger.New(globals.logOut, globals.Debug)
	}
	ctx = log.WithContext(ctx)

	if !globals.Tracing {
		return ctx, log, func() {}
	}

	log.Debug().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, serviceName, globals.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return ctx, log, func() {}
	}

	return ctx, log, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
