package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wolfeidau/clientbuild/internal/buildconfig"
	"github.com/wolfeidau/clientbuild/internal/stylepipeline"
)

// CSSCmd runs the style pipeline on one stylesheet and prints the result.
type CSSCmd struct {
	File    string `arg:"" help:"stylesheet to process" type:"existingfile"`
	WorkDir string `help:"directory scoped names are relative to" default:"." env:"CLIENTBUILD_WORKDIR"`
	Output  string `help:"what to print" default:"js" enum:"js,css,exports,stages"`

	out io.Writer
}

func (c *CSSCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, _, shutdown := setup(ctx, globals)
	defer shutdown()

	root, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	file, err := filepath.Abs(c.File)
	if err != nil {
		return fmt.Errorf("failed to resolve stylesheet path: %w", err)
	}

	runner, err := stylepipeline.New(buildconfig.BuildStylePipeline(), stylepipeline.WithRoot(root))
	if err != nil {
		return err
	}

	out, err := runner.Run(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to process %s: %w", c.File, err)
	}

	w := stdout(c.out)
	switch c.Output {
	case "css":
		_, err = w.Write(out.CSS)
	case "exports":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(out.Exports)
	case "stages":
		stages := make([]string, len(out.Trace))
		for i, s := range out.Trace {
			stages[i] = string(s)
		}
		_, err = fmt.Fprintln(w, strings.Join(stages, " -> "))
	default:
		_, err = io.WriteString(w, out.JS)
	}
	return err
}
