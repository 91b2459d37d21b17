package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/clientbuild/internal/buildconfig"
)

const appSource = `import styles from "./App.css";

export function render() {
  if (process.env.NODE_ENV !== "production") {
    console.log("debug build");
  }
  return '<div class="' + styles.root + '">wallet</div>';
}

render();
`

func setupProject(t *testing.T) string {
	t.Helper()
	return setupProjectWith(t, appSource)
}

func setupProjectWith(t *testing.T, source string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "App.bs.js"), []byte(source), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "App.css"), []byte(".root { color: red; }\n"), 0o600))
	return dir
}

func resolve(t *testing.T, dir string, variant buildconfig.Variant, env buildconfig.Env) buildconfig.BuildConfig {
	t.Helper()

	r, err := buildconfig.NewResolver(dir, variant)
	require.NoError(t, err)
	return r.Resolve(env)
}

func newPipeline(dir string, cfg buildconfig.BuildConfig) *Pipeline {
	config := DefaultConfig()
	config.WorkDir = dir
	return New(cfg, config)
}

func TestBuild_Development(t *testing.T) {
	dir := setupProject(t)
	cfg := resolve(t, dir, buildconfig.VariantStyled, buildconfig.Env{})
	p := newPipeline(dir, cfg)

	report, err := p.Build(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.BuildID)
	require.Equal(t, buildconfig.ModeDevelopment, report.Mode)
	require.Equal(t, filepath.Join(dir, "dist"), report.OutputDir)

	paths := make([]string, 0, len(report.Outputs))
	for _, out := range report.Outputs {
		paths = append(paths, out.Path)
	}
	assert.Contains(t, paths, "app.js")
	assert.Contains(t, paths, "app.js.map")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "src-__root__")
	assert.Contains(t, string(js), "document.head.appendChild")
	assert.Contains(t, string(js), "debug build")

	_, err = os.Stat(filepath.Join(dir, "dist", "meta.json"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "dist", "app.css"))
	require.ErrorIs(t, err, os.ErrNotExist, "styles are injected, not emitted")
}

func TestBuild_Production(t *testing.T) {
	dir := setupProject(t)
	cfg := resolve(t, dir, buildconfig.VariantStyled, buildconfig.Env{"NODE_ENV": "production"})
	p := newPipeline(dir, cfg)

	report, err := p.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, buildconfig.ModeProduction, report.Mode)

	js, err := os.ReadFile(filepath.Join(dir, "dist", "app.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "debug build", "dead development branch is removed")
	assert.Contains(t, string(js), "src-__root__")

	_, err = os.Stat(filepath.Join(dir, "dist", "app.js.map"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild_PlainVariantEmitsCSS(t *testing.T) {
	dir := setupProjectWith(t, "import \"./App.css\";\nconsole.log(\"wallet\");\n")
	cfg := resolve(t, dir, buildconfig.VariantPlain, buildconfig.Env{})
	p := newPipeline(dir, cfg)

	_, err := p.Build(context.Background())
	require.NoError(t, err)

	css, err := os.ReadFile(filepath.Join(dir, "dist", "app.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), ".root")

	js, err := os.ReadFile(filepath.Join(dir, "dist", "app.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(js), "src-__root__")
}

func TestBuild_Precompress(t *testing.T) {
	dir := setupProject(t)
	cfg := resolve(t, dir, buildconfig.VariantStyled, buildconfig.Env{"NODE_ENV": "production"})

	config := DefaultConfig()
	config.WorkDir = dir
	config.Precompress = true

	report, err := New(cfg, config).Build(context.Background())
	require.NoError(t, err)

	var app OutputFile
	for _, out := range report.Outputs {
		if out.Path == "app.js" {
			app = out
		}
	}
	require.Equal(t, "app.js.zst", app.Compressed)

	raw, err := os.ReadFile(filepath.Join(dir, "dist", "app.js"))
	require.NoError(t, err)

	compressed, err := os.ReadFile(filepath.Join(dir, "dist", "app.js.zst"))
	require.NoError(t, err)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	decoded, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestBuild_MissingEntry(t *testing.T) {
	dir := t.TempDir()
	cfg := resolve(t, dir, buildconfig.VariantStyled, buildconfig.Env{})

	_, err := newPipeline(dir, cfg).Build(context.Background())

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.NotEmpty(t, buildErr.Messages)
	require.Contains(t, err.Error(), "App.bs.js")
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := New(buildconfig.BuildConfig{}, DefaultConfig()).Build(context.Background())
	require.ErrorIs(t, err, ErrNoEntryPoints)

	cfg := resolve(t, t.TempDir(), buildconfig.VariantPlain, nil)
	cfg.OutputDir = "dist"
	_, err = New(cfg, DefaultConfig()).Build(context.Background())
	require.ErrorIs(t, err, buildconfig.ErrInvalidConfig)
}

func TestEntryOutputs(t *testing.T) {
	dir := setupProject(t)
	p := newPipeline(dir, resolve(t, dir, buildconfig.VariantStyled, buildconfig.Env{}))

	_, err := p.EntryOutputs("app")
	require.ErrorIs(t, err, ErrNotBuilt)

	_, err = p.Build(context.Background())
	require.NoError(t, err)

	outputs, err := p.EntryOutputs("app")
	require.NoError(t, err)
	require.Equal(t, []string{"dist/app.js"}, outputs)

	_, err = p.EntryOutputs("admin")
	require.ErrorIs(t, err, ErrEntryNotFound)

	meta, err := p.Metadata()
	require.NoError(t, err)
	require.Contains(t, meta.Inputs, "src/App.bs.js")
}

func TestAddDependencies(t *testing.T) {
	p := &Pipeline{
		metadata: &BuildMetadata{
			Outputs: map[string]OutputInfo{
				"dist/app.js":     {EntryPoint: "src/App.bs.js", Imports: []ImportInfo{{Path: "dist/chunk-a.js"}, {Path: "dist/chunk-b.js"}}},
				"dist/chunk-a.js": {Imports: []ImportInfo{{Path: "dist/chunk-b.js"}, {Path: "dist/chunk-c.js"}}},
				"dist/chunk-b.js": {},
				"dist/chunk-c.js": {Imports: []ImportInfo{{Path: "dist/chunk-a.js"}}},
			},
		},
		build: buildconfig.BuildConfig{EntryPoints: map[string]string{"app": "./src/App.bs.js"}},
	}

	outputs, err := p.EntryOutputs("app")
	require.NoError(t, err)
	require.Equal(t, []string{"dist/app.js", "dist/chunk-a.js", "dist/chunk-b.js", "dist/chunk-c.js"}, outputs)
}

func TestBuildError(t *testing.T) {
	err := &BuildError{Messages: []api.Message{
		{Text: "Could not resolve \"./missing\"", Location: &api.Location{File: "src/App.bs.js", Line: 1, Column: 7}},
		{Text: "second"},
	}}
	require.Equal(t, `esbuild failed with 2 error(s): src/App.bs.js:1:7: Could not resolve "./missing"; second`, err.Error())
}
