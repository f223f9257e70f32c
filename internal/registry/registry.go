// Package registry provides a global registry of arena layouts.
// Layouts register themselves in init() functions, allowing the CLI and the
// match setup to look them up by name without hardcoded dependencies.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/kurve/internal/core"
)

// Layout builds the static obstacles of an arena of the given size.
// Layouts must be pure: the same size always yields the same obstacles,
// so host and clients derive identical arenas from the layout name.
type Layout func(width, height int) []core.Rect

// LayoutInfo contains metadata about a registered layout.
type LayoutInfo struct {
	Name  string
	Title string
}

type entry struct {
	title  string
	layout Layout
}

var (
	layouts = make(map[string]entry)
	mu      sync.RWMutex
)

// Register adds a layout to the registry.
// Panics if a layout with the same name is already registered.
func Register(name, title string, l Layout) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := layouts[name]; exists {
		panic(fmt.Sprintf("registry: layout %q already registered", name))
	}
	layouts[name] = entry{title: title, layout: l}
}

// List returns information about all registered layouts, sorted by name.
func List() []LayoutInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]LayoutInfo, 0, len(layouts))
	for name, e := range layouts {
		result = append(result, LayoutInfo{Name: name, Title: e.title})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Obstacles builds the obstacles of a registered layout.
// Returns an error if the layout name is not registered.
func Obstacles(name string, width, height int) ([]core.Rect, error) {
	mu.RLock()
	e, ok := layouts[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: unknown layout %q", name)
	}
	return e.layout(width, height), nil
}

// Exists checks if a layout with the given name is registered.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := layouts[name]
	return ok
}
