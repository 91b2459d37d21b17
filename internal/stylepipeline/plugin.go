package stylepipeline

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
)

// Plugin routes files matching the pipeline test through Run. With injection
// enabled the file becomes a JS module, otherwise plain CSS.
func (r *Runner) Plugin(ctx context.Context) api.Plugin {
	return api.Plugin{
		Name: "style-pipeline",
		Setup: func(build api.PluginBuild) {
			filter := regexp.QuoteMeta(r.pipeline.Test) + "$"

			build.OnLoad(api.OnLoadOptions{Filter: filter, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				out, err := r.Run(ctx, args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				contents := string(out.CSS)
				loader := api.LoaderCSS
				if r.pipeline.Inject {
					contents = out.JS
					loader = api.LoaderJS
				}

				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     loader,
					ResolveDir: filepath.Dir(args.Path),
					WatchFiles: out.Files,
					PluginName: "style-pipeline",
				}, nil
			})
		},
	}
}
