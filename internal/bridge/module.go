package bridge

import (
	"fmt"
	"path/filepath"
	"plugin"
	"strings"

	"modelshim/internal/common/fsutil"
)

// Module is a loaded user inference module.
type Module interface {
	// Lookup returns the exported symbol with the given name.
	Lookup(symbol string) (any, error)
}

// ModuleLoader loads the user's module named name from dir.
type ModuleLoader interface {
	Load(dir, name string) (Module, error)
}

// Symbols is an in-process Module backed by a map.
type Symbols map[string]any

func (s Symbols) Lookup(symbol string) (any, error) {
	v, ok := s[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return v, nil
}

// StaticLoader resolves module names against modules linked into the binary.
type StaticLoader map[string]Module

func (l StaticLoader) Load(dir, name string) (Module, error) {
	m, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("module %q not registered", name)
	}
	return m, nil
}

// PluginLoader opens <dir>/<name>.so with the Go plugin runtime.
type PluginLoader struct{}

type pluginModule struct{ p *plugin.Plugin }

func (m pluginModule) Lookup(symbol string) (any, error) {
	s, err := m.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (PluginLoader) Load(dir, name string) (Module, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("module name is empty")
	}
	dir, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".so") {
		name += ".so"
	}
	path := filepath.Join(dir, name)
	if !fsutil.PathExists(path) {
		return nil, fmt.Errorf("module not found: %s", path)
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module %s: %w", path, err)
	}
	return pluginModule{p: p}, nil
}
