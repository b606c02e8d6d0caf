package arrange

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Arrange returns items reordered so that every task follows its in-set
// predecessor and, at each step, the ready task with the earliest deadline
// (then smallest weight) comes first.
//
// Tasks whose predecessor is not part of items are treated as roots. Cycles
// are not detected: tasks on a cycle never become ready and are left out of
// the result, so the output can be shorter than the input.
func Arrange(items []domain.Participation) []domain.Participation {
	g := Build(items)
	result := make([]domain.Participation, 0, g.Len())

	inDegree := make(map[uuid.UUID]int, g.Len())
	for id, d := range g.inDegree {
		inDegree[id] = d
	}

	q := make(readyQueue, 0, g.Len())
	for _, id := range g.Roots() {
		q.push(g.nodes[id], g.position[id])
	}

	for q.Len() > 0 {
		next := q.pop()
		result = append(result, next)

		for _, succ := range g.successors[next.Task.ID] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				q.push(g.nodes[succ], g.position[succ])
			}
		}
	}

	return result
}

// Omitted returns the ids present in items but missing from arranged, in
// input order. A non-empty result means items contained a cycle.
func Omitted(items, arranged []domain.Participation) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(arranged))
	for _, p := range arranged {
		seen[p.Task.ID] = struct{}{}
	}

	var missing []uuid.UUID
	for _, p := range items {
		if _, ok := seen[p.Task.ID]; ok {
			continue
		}
		seen[p.Task.ID] = struct{}{}
		missing = append(missing, p.Task.ID)
	}
	return missing
}
