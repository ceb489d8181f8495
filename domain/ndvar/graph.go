package ndvar

import (
	"fmt"
	"sort"
)

// Graph is an undirected adjacency relation over discrete positions that do
// not form a regular grid (sensors, cortical sources). Immutable once built.
type Graph struct {
	n   int
	adj [][]int
}

// NewGraph builds a graph over n positions from an undirected edge list.
// Self loops are ignored; duplicate edges are collapsed.
func NewGraph(n int, edges [][2]int) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("graph needs at least one position, got %d", n)
	}
	seen := make(map[[2]int]bool, len(edges))
	adj := make([][]int, n)
	for _, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= n || b < 0 || b >= n {
			return nil, fmt.Errorf("edge (%d, %d) out of range for %d positions", a, b, n)
		}
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if seen[[2]int{a, b}] {
			continue
		}
		seen[[2]int{a, b}] = true
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for i := range adj {
		sort.Ints(adj[i])
	}
	return &Graph{n: n, adj: adj}, nil
}

// Chain returns a graph where consecutive indices are neighbors, equivalent
// to grid adjacency. Mostly useful for tests.
func Chain(n int) *Graph {
	edges := make([][2]int, 0, n-1)
	for i := 0; i+1 < n; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	g, err := NewGraph(n, edges)
	if err != nil {
		panic(err)
	}
	return g
}

// Len returns the number of positions.
func (g *Graph) Len() int { return g.n }

// Neighbors returns the sorted neighbor indices of position i. The returned
// slice is owned by the graph and must not be mutated.
func (g *Graph) Neighbors(i int) []int { return g.adj[i] }

// Edges returns all undirected edges with a < b.
func (g *Graph) Edges() [][2]int {
	var edges [][2]int
	for a, nbs := range g.adj {
		for _, b := range nbs {
			if a < b {
				edges = append(edges, [2]int{a, b})
			}
		}
	}
	return edges
}

// ComponentsAmong returns the connected components of the subgraph induced by
// the given vertex set. Paths through vertices outside the set do not connect.
// Each input vertex appears in exactly one returned component.
func (g *Graph) ComponentsAmong(vertices []int) [][]int {
	inSet := make(map[int]bool, len(vertices))
	for _, v := range vertices {
		inSet[v] = true
	}
	visited := make(map[int]bool, len(vertices))
	var comps [][]int
	for _, v := range vertices {
		if visited[v] {
			continue
		}
		queue := []int{v}
		visited[v] = true
		var comp []int
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			comp = append(comp, u)
			for _, w := range g.adj[u] {
				if inSet[w] && !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	return comps
}
