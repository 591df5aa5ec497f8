// Package graph holds the static dependency graph of registered services:
// which constructor parameters each service needs. Factories that resolve
// through a Resolver have no static edges.
package graph

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
)

// Node is one registered service.
type Node struct {
	Type  reflect.Type
	Group string

	// Dependencies are the constructor parameter types in parameter order.
	Dependencies []reflect.Type
}

// Graph is a directed graph from a service to its dependencies. It is built
// once and is not safe for concurrent mutation.
type Graph struct {
	nodes map[reflect.Type]*Node
	order []reflect.Type
	name  func(reflect.Type) string
}

// New creates an empty graph. name renders a type in errors and output; nil
// uses reflect.Type.String.
func New(name func(reflect.Type) string) *Graph {
	if name == nil {
		name = func(t reflect.Type) string { return t.String() }
	}
	return &Graph{
		nodes: make(map[reflect.Type]*Node),
		name:  name,
	}
}

// Add registers t. Adding a type twice replaces its node but keeps its
// original position.
func (g *Graph) Add(t reflect.Type, group string, deps []reflect.Type) {
	if _, ok := g.nodes[t]; !ok {
		g.order = append(g.order, t)
	}
	g.nodes[t] = &Node{Type: t, Group: group, Dependencies: deps}
}

// Len returns the number of registered services.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node registered for t.
func (g *Graph) Node(t reflect.Type) (*Node, bool) {
	n, ok := g.nodes[t]
	return n, ok
}

// Missing returns the dependencies that are not registered, excluding those
// for which known reports true, in first-seen order.
func (g *Graph) Missing(known func(reflect.Type) bool) []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var missing []reflect.Type
	for _, t := range g.order {
		for _, dep := range g.nodes[t].Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true

			if _, ok := g.nodes[dep]; ok || (known != nil && known(dep)) {
				continue
			}
			missing = append(missing, dep)
		}
	}
	return missing
}

// Dependents returns the registered services that depend directly on t.
func (g *Graph) Dependents(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, from := range g.order {
		for _, dep := range g.nodes[from].Dependencies {
			if dep == t {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// CycleError reports a dependency cycle. Each entry of Path depends on the
// next, and the last entry depends on Path[0].
type CycleError struct {
	Path []reflect.Type
	name func(reflect.Type) string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path)+1)
	for _, t := range e.Path {
		parts = append(parts, e.name(t))
	}
	parts = append(parts, e.name(e.Path[0]))
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// FindCycle returns the first cycle reachable from the services in
// registration order, or nil.
func (g *Graph) FindCycle() *CycleError {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[reflect.Type]int, len(g.nodes))
	var stack []reflect.Type

	var visit func(t reflect.Type) []reflect.Type
	visit = func(t reflect.Type) []reflect.Type {
		state[t] = visiting
		stack = append(stack, t)

		for _, dep := range g.nodes[t].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}

			switch state[dep] {
			case visiting:
				for i, s := range stack {
					if s == dep {
						return append([]reflect.Type(nil), stack[i:]...)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[t] = done
		return nil
	}

	for _, t := range g.order {
		if state[t] != unvisited {
			continue
		}
		if cycle := visit(t); cycle != nil {
			return &CycleError{Path: cycle, name: g.name}
		}
	}

	return nil
}

// Sort returns the services with every dependency before its dependents.
// Ties keep registration order.
func (g *Graph) Sort() ([]reflect.Type, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, cycle
	}

	sorted := make([]reflect.Type, 0, len(g.nodes))
	placed := make(map[reflect.Type]bool, len(g.nodes))

	var place func(t reflect.Type)
	place = func(t reflect.Type) {
		if placed[t] {
			return
		}
		placed[t] = true
		for _, dep := range g.nodes[t].Dependencies {
			if _, ok := g.nodes[dep]; ok {
				place(dep)
			}
		}
		sorted = append(sorted, t)
	}

	for _, t := range g.order {
		place(t)
	}
	return sorted, nil
}

// Depths returns, per service, the length of its longest dependency chain.
// Services without registered dependencies have depth 0. The graph must be
// acyclic.
func (g *Graph) Depths() (map[reflect.Type]int, error) {
	sorted, err := g.Sort()
	if err != nil {
		return nil, err
	}

	depths := make(map[reflect.Type]int, len(sorted))
	for _, t := range sorted {
		d := 0
		for _, dep := range g.nodes[t].Dependencies {
			if dd, ok := depths[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depths[t] = d
	}
	return depths, nil
}

var groupColors = map[string]string{
	"Singleton": "lightblue",
	"Scoped":    "lightgreen",
	"Transient": "lightyellow",
}

// WriteDOT writes the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph services {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled];\n")

	ids := make(map[reflect.Type]string, len(g.order))
	for i, t := range g.order {
		ids[t] = fmt.Sprintf("n%d", i)
	}

	for _, t := range g.order {
		n := g.nodes[t]
		color, ok := groupColors[n.Group]
		if !ok {
			color = "white"
		}
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q];\n", ids[t], g.name(t)+"\n"+n.Group, color)
	}

	missing := 0
	for _, t := range g.order {
		for _, dep := range g.nodes[t].Dependencies {
			id, ok := ids[dep]
			if !ok {
				id = fmt.Sprintf("m%d", missing)
				missing++
				ids[dep] = id
				fmt.Fprintf(&b, "  %s [label=%q, fillcolor=\"lightgray\"];\n", id, g.name(dep))
			}
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[t], id)
		}
	}

	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the services grouped by dependency depth, leaves first.
// A cyclic graph is written as a flat list followed by the cycle.
func (g *Graph) WriteText(w io.Writer) error {
	var b strings.Builder

	depths, err := g.Depths()
	if err != nil {
		for _, t := range g.order {
			g.writeNode(&b, t, "  ")
		}
		fmt.Fprintf(&b, "\n%v\n", err)
		_, werr := io.WriteString(w, b.String())
		return werr
	}

	levels := make(map[int][]reflect.Type)
	maxDepth := 0
	for _, t := range g.order {
		d := depths[t]
		levels[d] = append(levels[d], t)
		if d > maxDepth {
			maxDepth = d
		}
	}

	for d := 0; d <= maxDepth && len(g.order) > 0; d++ {
		fmt.Fprintf(&b, "level %d:\n", d)
		for _, t := range levels[d] {
			g.writeNode(&b, t, "  ")
		}
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func (g *Graph) writeNode(b *strings.Builder, t reflect.Type, indent string) {
	n := g.nodes[t]
	fmt.Fprintf(b, "%s%s [%s]", indent, g.name(t), n.Group)

	if len(n.Dependencies) > 0 {
		deps := make([]string, len(n.Dependencies))
		for i, dep := range n.Dependencies {
			deps[i] = g.name(dep)
		}
		sort.Strings(deps)
		fmt.Fprintf(b, " -> %s", strings.Join(deps, ", "))
	}
	b.WriteString("\n")
}
