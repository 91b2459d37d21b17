// Package stylepipeline executes the style pipeline declared in a
// BuildConfig rule: scope, resolve imports, post process, inject.
package stylepipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/clientbuild/internal/buildconfig"
	"github.com/wolfeidau/clientbuild/internal/cssmodules"
	"github.com/wolfeidau/clientbuild/internal/postcss"
	"github.com/wolfeidau/clientbuild/internal/styleinject"
	"github.com/wolfeidau/clientbuild/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/clientbuild/internal/stylepipeline"

var (
	// ErrImportCycle indicates a stylesheet that imports itself, directly or not
	ErrImportCycle = errors.New("css import cycle")
	// ErrUnsupportedImport indicates an @import target that is not a relative or absolute file path
	ErrUnsupportedImport = errors.New("unsupported css import")
)

type Option func(*Runner)

// WithRoot sets the directory scoped names and style ids are relative to.
func WithRoot(dir string) Option {
	return func(r *Runner) {
		r.root = dir
	}
}

// WithRegistry replaces the default postcss plugin registry.
func WithRegistry(reg *postcss.Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

// Runner executes a StylePipeline. It holds no per file state and is safe for
// concurrent use by esbuild.
type Runner struct {
	pipeline  buildconfig.StylePipeline
	root      string
	registry  *postcss.Registry
	scoper    *cssmodules.Scoper
	processor *postcss.Processor
	tracer    trace.Tracer
}

func New(p buildconfig.StylePipeline, opts ...Option) (*Runner, error) {
	r := &Runner{
		pipeline: p,
		registry: postcss.NewRegistry(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	scoper, err := cssmodules.New(cssmodules.Config{
		LocalIdentName: p.Scoper.LocalIdentName,
		Context:        r.root,
		Modules:        p.Scoper.Modules,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create module scoper: %w", err)
	}
	r.scoper = scoper

	plugins, err := r.registry.Lookup(p.PostProcess.Plugins...)
	if err != nil {
		return nil, fmt.Errorf("failed to create post processor: %w", err)
	}
	r.processor = postcss.NewProcessor(plugins...)

	return r, nil
}

// Output is the result of running the pipeline on one stylesheet.
type Output struct {
	Path    string
	CSS     []byte
	Exports map[string]string
	// JS is the injector module, empty when injection is disabled
	JS string
	// Trace lists the stages applied to Path in execution order
	Trace []buildconfig.Stage
	// Files lists every stylesheet read, Path first
	Files []string
}

// unit is one stylesheet in flight. head holds hoisted remote imports and
// inlined children, css the sheet's own rules.
type unit struct {
	head    []byte
	css     []byte
	exports map[string]string
	imports []cssmodules.Import
}

func (u *unit) sheet() []byte {
	return append(slices.Clip(u.head), u.css...)
}

type runState struct {
	out      *Output
	visiting map[string]bool
	// inlined maps stylesheets already inlined in this run to their exports
	inlined map[string]map[string]string
	remote  []cssmodules.Import
}

// Run reads the stylesheet at path and applies every stage in order.
func (r *Runner) Run(ctx context.Context, path string) (*Output, error) {
	ctx, span := r.tracer.Start(ctx, "stylepipeline.Run", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stylesheet: %w", err)
	}

	st := &runState{
		out:      &Output{Path: path, Files: []string{path}},
		visiting: map[string]bool{filepath.Clean(path): true},
		inlined:  map[string]map[string]string{},
	}

	u, err := r.process(ctx, path, src, r.pipeline.Stages(), 0, st)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	st.out.CSS = u.sheet()
	st.out.Exports = u.exports

	telemetry.GetMetrics().CSSModulesTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Int("exports", len(u.exports)).
		Int("files", len(st.out.Files)).
		Msg("Processed stylesheet")

	return st.out, nil
}

func (r *Runner) process(ctx context.Context, path string, src []byte, stages []buildconfig.Stage, depth int, st *runState) (*unit, error) {
	u := &unit{css: src, exports: map[string]string{}}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if depth == 0 {
			st.out.Trace = append(st.out.Trace, stage)
		}

		if err := r.apply(ctx, stage, path, u, depth, st); err != nil {
			return nil, fmt.Errorf("%s: %w", stage, err)
		}
	}

	return u, nil
}

func (r *Runner) apply(ctx context.Context, stage buildconfig.Stage, path string, u *unit, depth int, st *runState) error {
	ctx, span := r.tracer.Start(ctx, "stylepipeline."+string(stage))
	defer span.End()

	switch stage {
	case buildconfig.StageModuleScoper:
		res, err := r.scoper.Scope(path, u.css)
		if err != nil {
			return err
		}
		u.css, u.exports, u.imports = res.CSS, res.Exports, res.Imports

	case buildconfig.StageImportResolver:
		return r.resolveImports(ctx, path, u, depth, st)

	case buildconfig.StagePostProcessor:
		out, err := r.processor.Process(ctx, path, u.css)
		if err != nil {
			return err
		}
		u.css = out

	case buildconfig.StageInjector:
		if !r.pipeline.Inject {
			return nil
		}
		js, err := styleinject.Module(r.styleID(path), u.sheet(), u.exports)
		if err != nil {
			return err
		}
		st.out.JS = js

	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	return nil
}

// importStages are applied to imported stylesheets: scoping, their own
// imports, then ImportLoaders stages following the import resolver. The
// injector only ever runs on the top level stylesheet.
func (r *Runner) importStages() []buildconfig.Stage {
	stages := []buildconfig.Stage{buildconfig.StageModuleScoper, buildconfig.StageImportResolver}
	for _, s := range r.pipeline.StagesAfter(buildconfig.StageImportResolver, r.pipeline.ImportLoaders) {
		if s != buildconfig.StageInjector {
			stages = append(stages, s)
		}
	}
	return stages
}

func (r *Runner) resolveImports(ctx context.Context, path string, u *unit, depth int, st *runState) error {
	var inlined strings.Builder
	exports := map[string]string{}

	for _, imp := range u.imports {
		if imp.Remote {
			st.remote = append(st.remote, imp)
			continue
		}

		target, err := resolveImportPath(path, imp.URL)
		if err != nil {
			return err
		}
		if st.visiting[target] {
			return fmt.Errorf("%w: %s imports %s", ErrImportCycle, path, target)
		}
		if done, ok := st.inlined[target]; ok {
			maps.Copy(exports, done)
			continue
		}

		src, err := os.ReadFile(target)
		if err != nil {
			return fmt.Errorf("failed to read import %q: %w", imp.URL, err)
		}

		st.visiting[target] = true
		if !slices.Contains(st.out.Files, target) {
			st.out.Files = append(st.out.Files, target)
		}

		child, err := r.process(ctx, target, src, r.importStages(), depth+1, st)
		if err != nil {
			return err
		}
		delete(st.visiting, target)
		st.inlined[target] = child.exports

		if imp.Media != "" {
			fmt.Fprintf(&inlined, "@media %s {\n%s\n}\n", imp.Media, child.sheet())
		} else {
			inlined.Write(child.sheet())
			inlined.WriteByte('\n')
		}
		maps.Copy(exports, child.exports)
	}

	maps.Copy(exports, u.exports)
	u.exports = exports

	var b strings.Builder
	if depth == 0 {
		for _, imp := range st.remote {
			fmt.Fprintf(&b, "@import url(%q)", imp.URL)
			if imp.Media != "" {
				b.WriteString(" " + imp.Media)
			}
			b.WriteString(";\n")
		}
	}
	b.WriteString(inlined.String())
	u.head = []byte(b.String())

	return nil
}

func resolveImportPath(from, url string) (string, error) {
	clean, _, _ := strings.Cut(url, "?")
	clean, _, _ = strings.Cut(clean, "#")

	switch {
	case clean == "":
		return "", fmt.Errorf("%w: empty url", ErrUnsupportedImport)
	case strings.Contains(clean, ":"):
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImport, url)
	case filepath.IsAbs(clean):
		return filepath.Clean(clean), nil
	case strings.HasPrefix(clean, "~"):
		return "", fmt.Errorf("%w: package imports are not resolved: %s", ErrUnsupportedImport, url)
	default:
		return filepath.Join(filepath.Dir(from), filepath.FromSlash(clean)), nil
	}
}

func (r *Runner) styleID(path string) string {
	if r.root != "" {
		if rel, err := filepath.Rel(r.root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
