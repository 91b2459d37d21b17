package buildconfig

// Stage identifies one step of the style pipeline.
type Stage string

const (
	StageModuleScoper   Stage = "module-scoper"
	StageImportResolver Stage = "import-resolver"
	StagePostProcessor  Stage = "post-processor"
	StageInjector       Stage = "injector"
)

const (
	// StyleTest is the file suffix routed through the style pipeline.
	StyleTest = ".css"
	// DefaultLocalIdentName combines source path, local name and a short hash.
	DefaultLocalIdentName = "[path]__[local]__[hash:base64:5]"
	// PresetEnvPlugin is the preset bundle applied by the post processor.
	PresetEnvPlugin = "postcss-preset-env"
)

// StylePipeline is the declarative description of how style assets are
// transformed. It is built once and never mutated.
type StylePipeline struct {
	Test          string             `json:"test" yaml:"test"`
	Scoper        ScoperOptions      `json:"scoper" yaml:"scoper"`
	ImportLoaders int                `json:"importLoaders" yaml:"importLoaders"`
	PostProcess   PostProcessOptions `json:"postProcess" yaml:"postProcess"`
	Inject        bool               `json:"inject" yaml:"inject"`
}

type ScoperOptions struct {
	Modules        bool   `json:"modules" yaml:"modules"`
	LocalIdentName string `json:"localIdentName" yaml:"localIdentName"`
}

type PostProcessOptions struct {
	Plugins []string `json:"plugins" yaml:"plugins"`
}

// BuildStylePipeline returns the static four stage CSS pipeline.
func BuildStylePipeline() StylePipeline {
	return StylePipeline{
		Test: StyleTest,
		Scoper: ScoperOptions{
			Modules:        true,
			LocalIdentName: DefaultLocalIdentName,
		},
		ImportLoaders: 1,
		PostProcess: PostProcessOptions{
			Plugins: []string{PresetEnvPlugin},
		},
		Inject: true,
	}
}

// Stages returns the stages in application order. The order does not depend
// on the build mode.
func (p StylePipeline) Stages() []Stage {
	return []Stage{
		StageModuleScoper,
		StageImportResolver,
		StagePostProcessor,
		StageInjector,
	}
}

// StagesAfter returns up to n stages that follow stage.
func (p StylePipeline) StagesAfter(stage Stage, n int) []Stage {
	stages := p.Stages()
	for i, s := range stages {
		if s != stage {
			continue
		}
		rest := stages[i+1:]
		if n < len(rest) {
			rest = rest[:max(n, 0)]
		}
		return rest
	}
	return nil
}
