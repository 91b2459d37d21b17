// Package postcss runs a configurable chain of CSS to CSS transform plugins.
package postcss

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	// ErrUnknownPlugin indicates a plugin name with no registered factory
	ErrUnknownPlugin = errors.New("unknown postcss plugin")
)

// Plugin transforms a stylesheet.
type Plugin interface {
	Name() string
	Process(ctx context.Context, path string, css []byte) ([]byte, error)
}

// Factory constructs a fresh plugin instance.
type Factory func() Plugin

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built in plugins registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register(PresetEnvName, func() Plugin { return NewPresetEnv(DefaultEngines()) })
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered plugin names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Lookup instantiates the named plugins in order.
func (r *Registry) Lookup(names ...string) ([]Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPlugin, name, strings.Join(slices.Sorted(maps.Keys(r.factories)), ", "))
		}
		plugins = append(plugins, f())
	}
	return plugins, nil
}

// Processor applies plugins in configuration order.
type Processor struct {
	plugins []Plugin
}

func NewProcessor(plugins ...Plugin) *Processor {
	return &Processor{plugins: plugins}
}

// Plugins returns the plugin names in application order.
func (p *Processor) Plugins() []string {
	names := make([]string, len(p.plugins))
	for i, plugin := range p.plugins {
		names[i] = plugin.Name()
	}
	return names
}

func (p *Processor) Process(ctx context.Context, path string, css []byte) ([]byte, error) {
	out := css
	for _, plugin := range p.plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		out, err = plugin.Process(ctx, path, out)
		if err != nil {
			return nil, fmt.Errorf("postcss plugin %s: %w", plugin.Name(), err)
		}
	}
	return out, nil
}

// TransformError carries the messages reported by esbuild.
type TransformError struct {
	Path     string
	Messages []api.Message
}

func (e *TransformError) Error() string {
	texts := make([]string, 0, len(e.Messages))
	for _, msg := range e.Messages {
		texts = append(texts, msg.Text)
	}
	return fmt.Sprintf("failed to transform %s: %s", e.Path, strings.Join(texts, "; "))
}
