package arrange

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Graph is the dependency forest of one user's participations.
type Graph struct {
	// nodes maps task id to its participation.
	nodes map[uuid.UUID]domain.Participation
	// successors maps a predecessor id to the ids that name it as prev.
	successors map[uuid.UUID][]uuid.UUID
	// inDegree counts predecessors present in the input: 0 or 1.
	inDegree map[uuid.UUID]int
	// position is the input index of each task, used to break exact ties.
	position map[uuid.UUID]int
	// order lists task ids in input order.
	order []uuid.UUID
}

// Build constructs the dependency graph for items. Edges are created only
// when both ends are present; a prev that points outside the input leaves the
// task at in-degree 0. When an id appears more than once the first occurrence
// wins.
func Build(items []domain.Participation) *Graph {
	g := &Graph{
		nodes:      make(map[uuid.UUID]domain.Participation, len(items)),
		successors: make(map[uuid.UUID][]uuid.UUID),
		inDegree:   make(map[uuid.UUID]int, len(items)),
		position:   make(map[uuid.UUID]int, len(items)),
		order:      make([]uuid.UUID, 0, len(items)),
	}

	for _, item := range items {
		id := item.Task.ID
		if _, dup := g.nodes[id]; dup {
			continue
		}
		g.position[id] = len(g.order)
		g.nodes[id] = item
		g.inDegree[id] = 0
		g.order = append(g.order, id)
	}

	for _, id := range g.order {
		prev := g.nodes[id].Task.Prev
		if prev == nil {
			continue
		}
		if _, ok := g.nodes[*prev]; !ok {
			continue
		}
		g.successors[*prev] = append(g.successors[*prev], id)
		g.inDegree[id]++
	}

	return g
}

// Len returns the number of distinct tasks in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// InDegree returns the number of in-set predecessors of id.
func (g *Graph) InDegree(id uuid.UUID) int {
	return g.inDegree[id]
}

// Successors returns the ids that directly depend on id.
func (g *Graph) Successors(id uuid.UUID) []uuid.UUID {
	return g.successors[id]
}

// Roots returns the ids with in-degree 0, in input order.
func (g *Graph) Roots() []uuid.UUID {
	roots := make([]uuid.UUID, 0, len(g.order))
	for _, id := range g.order {
		if g.inDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}
