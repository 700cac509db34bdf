package dag

// Graph is a directed graph over comparable keys. Nodes are created by the
// edges that mention them and remember their insertion order, so every
// traversal is deterministic. A Graph is not safe for concurrent use.
type Graph[K comparable] struct {
	index map[K]int
	keys  []K
	out   [][]int
}

// state of a node during FindCycle.
type state uint8

const (
	unvisited state = iota
	onPath
	done
)
