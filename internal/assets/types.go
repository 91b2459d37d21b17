package assets

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/clientbuild/internal/buildconfig"
)

var (
	// ErrNoEntryPoints indicates a build config without entry points
	ErrNoEntryPoints = errors.New("no entry points found")
	// ErrNotBuilt indicates metadata was requested before Build completed
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
	// ErrEntryNotFound indicates an entry name missing from the build metadata
	ErrEntryNotFound = errors.New("entrypoint not found in metadata")
)

// BuildError wraps the errors esbuild reported for a failed build.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	texts := make([]string, 0, len(e.Messages))
	for _, msg := range e.Messages {
		if loc := msg.Location; loc != nil {
			texts = append(texts, fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text))
			continue
		}
		texts = append(texts, msg.Text)
	}
	return fmt.Sprintf("esbuild failed with %d error(s): %s", len(e.Messages), strings.Join(texts, "; "))
}

type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// OutputFile is one file written to the output directory.
type OutputFile struct {
	Path       string `json:"path"`
	Bytes      int    `json:"bytes"`
	Compressed string `json:"compressed,omitempty"`
}

// Report summarises a completed build.
type Report struct {
	BuildID   string           `json:"buildId"`
	Mode      buildconfig.Mode `json:"mode"`
	OutputDir string           `json:"outputDir"`
	Outputs   []OutputFile     `json:"outputs"`
	Warnings  int              `json:"warnings"`
	Duration  time.Duration    `json:"duration"`
}

// Pipeline runs a resolved BuildConfig through esbuild and keeps the
// resulting metadata for output lookups.
type Pipeline struct {
	build    buildconfig.BuildConfig
	config   Config
	metadata *BuildMetadata
	mu       sync.RWMutex
}

// New creates a new asset pipeline for the given build configuration
func New(build buildconfig.BuildConfig, config Config) *Pipeline {
	return &Pipeline{
		build:  build,
		config: config,
	}
}

// Metadata returns the parsed metafile of the last successful build.
func (p *Pipeline) Metadata() (*BuildMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}
	return p.metadata, nil
}
