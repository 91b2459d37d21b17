package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/clientbuild/internal/logger"
	"github.com/wolfeidau/clientbuild/internal/stylepipeline"
	"github.com/wolfeidau/clientbuild/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/clientbuild/internal/assets"

// Build runs esbuild with the configured settings and loads metadata
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.build.EntryPoints) == 0 {
		return nil, ErrNoEntryPoints
	}
	if err := p.build.Validate(); err != nil {
		return nil, err
	}

	workDir, err := filepath.Abs(p.config.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	buildID := uuid.New().String()
	log := zerolog.Ctx(ctx).With().Str("build_id", buildID).Str("mode", p.build.Mode.String()).Logger()
	ctx = log.WithContext(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "assets.Build", trace.WithAttributes(
		attribute.String("build.id", buildID),
		attribute.String("build.mode", p.build.Mode.String()),
	))
	defer span.End()

	options, err := p.buildOptions(ctx, workDir)
	if err != nil {
		return nil, err
	}

	log.Info().Strs("entrypoints", p.build.EntryNames()).Str("outdir", p.build.OutputDir).Msg("Building assets")

	metrics := telemetry.GetMetrics()
	modeAttr := metric.WithAttributes(attribute.String("mode", p.build.Mode.String()))
	started := time.Now()

	result := api.Build(options)

	duration := time.Since(started)
	metrics.BuildsTotal.Add(ctx, 1, modeAttr)
	metrics.BuildDuration.Record(ctx, float64(duration.Milliseconds()), modeAttr)

	logger.Messages(&log, zerolog.WarnLevel, result.Warnings)

	if len(result.Errors) > 0 {
		logger.Messages(&log, zerolog.ErrorLevel, result.Errors)
		metrics.BuildErrorsTotal.Add(ctx, 1, modeAttr)
		err := &BuildError{Messages: result.Errors}
		span.RecordError(err)
		return nil, err
	}

	report := &Report{
		BuildID:   buildID,
		Mode:      p.build.Mode,
		OutputDir: p.build.OutputDir,
		Warnings:  len(result.Warnings),
		Duration:  duration,
	}

	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(p.build.OutputDir, file.Path)
		if err != nil {
			rel = file.Path
		}

		out := OutputFile{Path: filepath.ToSlash(rel), Bytes: len(file.Contents)}
		if p.config.Precompress && compressible(file.Path) {
			compressed, err := compressFile(file.Path)
			if err != nil {
				return nil, err
			}
			out.Compressed = filepath.ToSlash(filepath.Base(compressed))
			metrics.CompressedOutputs.Add(ctx, 1)
		}

		metrics.OutputBytes.Add(ctx, int64(len(file.Contents)))
		log.Info().Str("file", out.Path).Int("bytes", out.Bytes).Msg("Built file")
		report.Outputs = append(report.Outputs, out)
	}

	// Write metafile
	if err := os.MkdirAll(p.build.OutputDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.build.OutputDir, p.config.MetafileName), []byte(result.Metafile), 0600); err != nil {
		return nil, err
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, err
	}

	p.metadata = &metadata
	report.Duration = time.Since(started)

	log.Info().Dur("duration", report.Duration).Int("outputs", len(report.Outputs)).Msg("Build complete")

	return report, nil
}

func (p *Pipeline) buildOptions(ctx context.Context, workDir string) (api.BuildOptions, error) {
	entries := make([]api.EntryPoint, 0, len(p.build.EntryPoints))
	for _, name := range p.build.EntryNames() {
		entries = append(entries, api.EntryPoint{
			InputPath:  p.build.EntryPoints[name],
			OutputPath: name,
		})
	}

	var plugins []api.Plugin
	for _, rule := range p.build.Rules {
		if rule.Style == nil {
			continue
		}
		runner, err := stylepipeline.New(*rule.Style, stylepipeline.WithRoot(workDir))
		if err != nil {
			return api.BuildOptions{}, fmt.Errorf("failed to create style pipeline for %s: %w", rule.Test, err)
		}
		plugins = append(plugins, runner.Plugin(ctx))
	}

	pattern := p.build.OutputFilenamePattern
	ext := path.Ext(pattern)
	var outExtension map[string]string
	if ext != "" && ext != ".js" {
		outExtension = map[string]string{".js": ext}
	}

	prod := p.build.Mode.IsProduction()

	return api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       workDir,
		Bundle:              true,
		Write:               true,
		Outdir:              p.build.OutputDir,
		EntryNames:          strings.TrimSuffix(pattern, ext),
		OutExtension:        outExtension,
		Format:              api.FormatIIFE,
		Platform:            api.PlatformBrowser,
		MinifyWhitespace:    prod,
		MinifyIdentifiers:   prod,
		MinifySyntax:        prod,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(prod, api.SourceMapNone, api.SourceMapLinked),
		Define: map[string]string{
			"process.env.NODE_ENV": fmt.Sprintf("%q", p.build.Mode),
		},
		Metafile: true,
		Plugins:  plugins,
		LogLevel: api.LogLevelSilent,
	}, nil
}

// EntryOutputs returns the output path for the named entry followed by the
// chunks it imports, in dependency order. Paths are relative to the working
// directory, as recorded in the metafile.
func (p *Pipeline) EntryOutputs(name string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	module, ok := p.build.EntryPoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	module = path.Clean(filepath.ToSlash(module))

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint != module {
			continue
		}
		outputs := []string{outputPath}
		visited := map[string]bool{outputPath: true}
		p.addDependencies(info, &outputs, visited)
		return outputs, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

func (p *Pipeline) addDependencies(output OutputInfo, outputs *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if !visited[imp.Path] {
			visited[imp.Path] = true
			*outputs = append(*outputs, imp.Path)

			if chunkInfo, exists := p.metadata.Outputs[imp.Path]; exists {
				p.addDependencies(chunkInfo, outputs, visited)
			}
		}
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
