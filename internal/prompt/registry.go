package prompt

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 256

// Registry resolves prompt paths against a base directory and caches parsed
// templates by absolute path. Safe for concurrent use; the cache is only
// invalidated on an explicit hook-set reload.
type Registry struct {
	dir   string
	cache *lru.Cache[string, *Template]
}

func NewRegistry(dir string) (*Registry, error) {
	cache, err := lru.New[string, *Template](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create template cache: %w", err)
	}
	return &Registry{dir: dir, cache: cache}, nil
}

// Resolve returns the absolute path for a prompt file reference, joining
// relative paths onto the registry's base directory.
func (r *Registry) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.dir, path)
}

// Load returns the template at path, reading the file on first use.
func (r *Registry) Load(path string) (*Template, error) {
	abs := r.Resolve(path)
	if t, ok := r.cache.Get(abs); ok {
		return t, nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", abs, err)
	}
	t := Parse(abs, string(data))
	r.cache.Add(abs, t)
	return t, nil
}

// Render loads the template at path and substitutes vars.
func (r *Registry) Render(path string, vars map[string]string) (string, error) {
	t, err := r.Load(path)
	if err != nil {
		return "", err
	}
	return t.Render(vars), nil
}

// Invalidate drops every cached template. Called when the hook set is
// reloaded so edited prompt files are re-read.
func (r *Registry) Invalidate() {
	r.cache.Purge()
}
