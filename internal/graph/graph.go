// Package graph groups work packages into dependency waves.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dante-alpha-assistant/swarm-code/pkg/models"
)

// ErrCycleDetected indicates a circular dependency between work packages.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrUnknownDependency indicates a dependency on an ID that is not in the run.
var ErrUnknownDependency = errors.New("unknown dependency")

// DependencyGraph holds the "depends on" edges between work packages.
type DependencyGraph struct {
	mu sync.RWMutex
	// order preserves input order for deterministic wave contents.
	order []string
	// edges maps a package ID to the IDs it depends on.
	edges map[string][]string
	// waves caches the computed wave per package once Build succeeds.
	waves map[string]int
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		edges:    make(map[string][]string),
		waves:    make(map[string]int),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the graph and assigns waves. It fails on a dependency
// that names no package in the list and on cycles.
func (g *DependencyGraph) Build(wps []*models.WorkPackage) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.order = g.order[:0]
	g.edges = make(map[string][]string, len(wps))
	g.waves = make(map[string]int, len(wps))

	for _, wp := range wps {
		g.order = append(g.order, wp.ID)
		g.edges[wp.ID] = nil
	}
	for _, wp := range wps {
		for _, depID := range wp.Dependencies {
			if _, exists := g.edges[depID]; !exists {
				return fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, wp.ID, depID)
			}
			g.edges[wp.ID] = append(g.edges[wp.ID], depID)
		}
	}

	waves, err := g.assignLocked()
	if err != nil {
		return err
	}
	g.waves = waves
	g.debugLog("[graph.Build] %d packages in %d waves", len(g.order), maxWave(waves))
	return nil
}

// assignLocked computes wave = 1 + max(dependency waves), memoizing results
// and tracking the in-progress path to detect cycles.
func (g *DependencyGraph) assignLocked() (map[string]int, error) {
	waves := make(map[string]int, len(g.order))
	inProgress := make(map[string]bool)
	var path []string

	var visit func(id string) (int, error)
	visit = func(id string) (int, error) {
		if w, ok := waves[id]; ok {
			return w, nil
		}
		if inProgress[id] {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), id)
			return 0, fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(cycle, " -> "))
		}

		inProgress[id] = true
		path = append(path, id)

		wave := 1
		for _, depID := range g.edges[id] {
			dw, err := visit(depID)
			if err != nil {
				return 0, err
			}
			if dw+1 > wave {
				wave = dw + 1
			}
		}

		path = path[:len(path)-1]
		delete(inProgress, id)
		waves[id] = wave
		return wave, nil
	}

	for _, id := range g.order {
		if _, err := visit(id); err != nil {
			return nil, err
		}
	}
	return waves, nil
}

// Waves returns a copy of the wave assignment for every package.
func (g *DependencyGraph) Waves() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]int, len(g.waves))
	for id, w := range g.waves {
		out[id] = w
	}
	return out
}

// Wave returns the wave of a package, or 0 if it is unknown.
func (g *DependencyGraph) Wave(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.waves[id]
}

// Levels returns package IDs grouped by wave. Index 0 holds wave 1. IDs keep
// their input order within a wave.
func (g *DependencyGraph) Levels() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	levels := make([][]string, maxWave(g.waves))
	for _, id := range g.order {
		w := g.waves[id]
		levels[w-1] = append(levels[w-1], id)
	}
	return levels
}

// Size returns the number of packages in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// GetDependencies returns the IDs the given package depends on.
func (g *DependencyGraph) GetDependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[id]...)
}

// GetDependents returns the IDs of packages that depend on the given one.
func (g *DependencyGraph) GetDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, candidate := range g.order {
		for _, depID := range g.edges[candidate] {
			if depID == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}

// AssignWaves builds a graph for the packages and returns the wave map.
func AssignWaves(wps []*models.WorkPackage) (map[string]int, error) {
	g := New()
	if err := g.Build(wps); err != nil {
		return nil, err
	}
	return g.Waves(), nil
}

func maxWave(waves map[string]int) int {
	m := 0
	for _, w := range waves {
		if w > m {
			m = w
		}
	}
	return m
}
