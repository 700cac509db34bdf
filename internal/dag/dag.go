package dag

import (
	"fmt"
	"strings"
)

// CycleError reports a cycle. Path starts and ends with the same node.
type CycleError[K comparable] struct {
	Path []K
}

func (e *CycleError[K]) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = fmt.Sprint(k)
	}
	return "cycle detected: " + strings.Join(parts, " -> ")
}

// New returns an empty Graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{index: make(map[K]int)}
}

// Chain returns a Graph holding the edges k[0] -> k[1] -> ... -> k[n-1].
func Chain[K comparable](keys ...K) *Graph[K] {
	g := New[K]()
	for i, k := range keys {
		g.Add(k)
		if i > 0 {
			g.AddEdge(keys[i-1], k)
		}
	}
	return g
}

// Add inserts k when it is not already present.
func (g *Graph[K]) Add(k K) {
	g.node(k)
}

func (g *Graph[K]) node(k K) int {
	if i, ok := g.index[k]; ok {
		return i
	}
	i := len(g.keys)
	g.index[k] = i
	g.keys = append(g.keys, k)
	g.out = append(g.out, nil)
	return i
}

// AddEdge adds from -> to, creating either node as needed. Self edges form a
// cycle of length one; repeated edges are ignored.
func (g *Graph[K]) AddEdge(from, to K) {
	f, t := g.node(from), g.node(to)
	for _, e := range g.out[f] {
		if e == t {
			return
		}
	}
	g.out[f] = append(g.out[f], t)
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.keys) }

// Successors returns the targets of the edges leaving k, in insertion order.
func (g *Graph[K]) Successors(k K) []K {
	i, ok := g.index[k]
	if !ok {
		return nil
	}
	out := make([]K, len(g.out[i]))
	for j, t := range g.out[i] {
		out[j] = g.keys[t]
	}
	return out
}

// FindCycle searches the graph depth first, starting from nodes in insertion
// order, and returns a *CycleError for the first cycle it reaches.
func (g *Graph[K]) FindCycle() error {
	states := make([]state, len(g.keys))
	var path []int

	var visit func(n int) []int
	visit = func(n int) []int {
		switch states[n] {
		case done:
			return nil
		case onPath:
			for i, p := range path {
				if p == n {
					return append(append([]int(nil), path[i:]...), n)
				}
			}
		}
		states[n] = onPath
		path = append(path, n)
		for _, t := range g.out[n] {
			if c := visit(t); c != nil {
				return c
			}
		}
		path = path[:len(path)-1]
		states[n] = done
		return nil
	}

	for n := range g.keys {
		if c := visit(n); c != nil {
			keys := make([]K, len(c))
			for i, idx := range c {
				keys[i] = g.keys[idx]
			}
			return &CycleError[K]{Path: keys}
		}
	}
	return nil
}
