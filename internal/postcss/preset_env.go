package postcss

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

// PresetEnvName is the registry name of the preset bundle.
const PresetEnvName = "postcss-preset-env"

// DefaultEngines is the browser set modern CSS is lowered for.
func DefaultEngines() []api.Engine {
	return []api.Engine{
		{Name: api.EngineChrome, Version: "58"},
		{Name: api.EngineFirefox, Version: "57"},
		{Name: api.EngineSafari, Version: "11"},
		{Name: api.EngineEdge, Version: "16"},
	}
}

// PresetEnv lowers modern CSS syntax (nesting, colour functions, logical
// properties and friends) to what the target engines understand.
type PresetEnv struct {
	engines []api.Engine
}

func NewPresetEnv(engines []api.Engine) *PresetEnv {
	return &PresetEnv{engines: engines}
}

func (p *PresetEnv) Name() string {
	return PresetEnvName
}

func (p *PresetEnv) Process(ctx context.Context, path string, css []byte) ([]byte, error) {
	result := api.Transform(string(css), api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    p.engines,
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, &TransformError{Path: path, Messages: result.Errors}
	}

	for _, msg := range result.Warnings {
		zerolog.Ctx(ctx).Warn().Str("path", path).Str("warning", msg.Text).Msg("postcss preset-env warning")
	}

	return result.Code, nil
}
