package dependencies

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Reference is one dependency edge: the id of the required plugin plus the
// version range the dependent declared for it.
type Reference struct {
	ID string `json:"id"`
	// Range is the declared semver constraint, empty means any version.
	Range string `json:"range,omitempty"`
}

// Node records one tracked plugin and its declared dependencies.
type Node struct {
	ID           string      `json:"id"`
	Version      string      `json:"version"`
	Dependencies []Reference `json:"dependencies,omitempty"`
}

// Impact summarizes which plugins stop working if a plugin goes away.
type Impact struct {
	ID                   string   `json:"id"`
	DirectDependents     []string `json:"direct_dependents"`
	TransitiveDependents []string `json:"transitive_dependents"`
	Total                int      `json:"total"`
}

// Graph tracks dependency edges between loaded plugins. One live version per
// id. Safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string][]string // id -> dependency ids
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// Add records a plugin and its dependency edges, replacing any previous
// entry for the same id.
func (g *Graph) Add(id, version string, deps []Reference) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes[id] = &Node{
		ID:           id,
		Version:      version,
		Dependencies: append([]Reference(nil), deps...),
	}
	edges := make([]string, 0, len(deps))
	for _, dep := range deps {
		edges = append(edges, dep.ID)
	}
	g.edges[id] = edges
}

// Remove drops a plugin and its outgoing edges.
func (g *Graph) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, id)
	delete(g.edges, id)
}

// Get returns a snapshot of the node for an id.
func (g *Graph) Get(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	snap := *node
	snap.Dependencies = append([]Reference(nil), node.Dependencies...)
	return snap, true
}

// Len returns the number of tracked plugins.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependents returns the ids of tracked plugins that directly depend on id,
// sorted.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(id)
}

func (g *Graph) dependentsLocked(id string) []string {
	var out []string
	for nodeID, edges := range g.edges {
		for _, dep := range edges {
			if dep == id {
				out = append(out, nodeID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// TransitiveDependents returns every tracked plugin that reaches id through
// dependency edges, sorted.
func (g *Graph) TransitiveDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	var traverse func(string)
	traverse = func(target string) {
		for _, dep := range g.dependentsLocked(target) {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			traverse(dep)
		}
	}
	traverse(id)

	out := make([]string, 0, len(visited))
	for dep := range visited {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// ImpactOf reports who breaks, directly and transitively, if id goes away.
func (g *Graph) ImpactOf(id string) Impact {
	direct := g.Dependents(id)
	all := g.TransitiveDependents(id)
	return Impact{
		ID:                   id,
		DirectDependents:     direct,
		TransitiveDependents: all,
		Total:                len(all),
	}
}

// UnloadOrder returns every tracked id ordered so dependents come before the
// plugins they depend on. Returns an error naming the cycle if the edges do
// not form a DAG.
func (g *Graph) UnloadOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var order []string

	var visit func(string) error
	visit = func(id string) error {
		if onStack[id] {
			return fmt.Errorf("dependency cycle: %s -> %s", strings.Join(path, " -> "), id)
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range g.edges[id] {
			// Edges to plugins no longer tracked are skipped.
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	// visit appends dependencies first; unloading wants dependents first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
