// Package depgraph models the finish-to-start edges of one trip as a directed graph.
//
// Edges point from prerequisite to dependent. The graph holds no storage handles;
// callers build it from a consistent snapshot of the trip's edges.
package depgraph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// ErrCycle is returned by Validate and TopologicalOrder when the edge set is not acyclic.
var ErrCycle = errors.New("dependency graph contains a cycle")

type Graph struct {
	// next maps a prerequisite to the items that depend on it.
	next  map[domain.ItemID][]domain.ItemID
	nodes map[domain.ItemID]struct{}
}

func New(edges []domain.ItemDependency) *Graph {
	g := &Graph{
		next:  make(map[domain.ItemID][]domain.ItemID),
		nodes: make(map[domain.ItemID]struct{}),
	}
	for _, e := range edges {
		g.Add(e.DependentID, e.PrerequisiteID)
	}
	return g
}

// Add records that dependent starts after prerequisite finishes. It does not check for cycles.
func (g *Graph) Add(dependent, prerequisite domain.ItemID) {
	g.nodes[dependent] = struct{}{}
	g.nodes[prerequisite] = struct{}{}
	g.next[prerequisite] = append(g.next[prerequisite], dependent)
}

func (g *Graph) Len() int { return len(g.nodes) }

// Reachable reports whether to can be reached from from by following prerequisite -> dependent edges.
// The walk is iterative and visits each node at most once.
func (g *Graph) Reachable(from, to domain.ItemID) bool {
	if from == to {
		return true
	}
	seen := make(map[domain.ItemID]struct{}, len(g.nodes))
	stack := []domain.ItemID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		for _, m := range g.next[n] {
			if m == to {
				return true
			}
			stack = append(stack, m)
		}
	}
	return false
}

// WouldCycle reports whether adding the edge prerequisite -> dependent closes a cycle,
// that is whether prerequisite is already reachable from dependent. A self-loop always would.
func (g *Graph) WouldCycle(dependent, prerequisite domain.ItemID) bool {
	return g.Reachable(dependent, prerequisite)
}

// Validate checks the whole edge set with three-color DFS and names one node on a cycle.
func (g *Graph) Validate() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[domain.ItemID]int, len(g.nodes))

	type frame struct {
		id  domain.ItemID
		pos int
	}
	for _, root := range g.sortedNodes() {
		if color[root] != white {
			continue
		}
		color[root] = grey
		stack := []frame{{id: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := g.next[top.id]
			if top.pos == len(succ) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			m := succ[top.pos]
			top.pos++
			switch color[m] {
			case grey:
				return fmt.Errorf("%w: item %s", ErrCycle, m)
			case white:
				color[m] = grey
				stack = append(stack, frame{id: m})
			}
		}
	}
	return nil
}

// TopologicalOrder returns the items with every prerequisite before its dependents.
// Ties are broken by item id so the order is stable.
func (g *Graph) TopologicalOrder() ([]domain.ItemID, error) {
	inDegree := make(map[domain.ItemID]int, len(g.nodes))
	for n := range g.nodes {
		for _, m := range g.next[n] {
			inDegree[m]++
		}
	}

	var ready []domain.ItemID
	for _, n := range g.sortedNodes() {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]domain.ItemID, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)

		var freed []domain.ItemID
		for _, m := range g.next[n] {
			inDegree[m]--
			if inDegree[m] == 0 {
				freed = append(freed, m)
			}
		}
		sortIDs(freed)
		ready = append(ready, freed...)
	}

	if len(out) != len(g.nodes) {
		return nil, fmt.Errorf("%w: ordered %d of %d items", ErrCycle, len(out), len(g.nodes))
	}
	return out, nil
}

func (g *Graph) sortedNodes() []domain.ItemID {
	out := make([]domain.ItemID, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []domain.ItemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
