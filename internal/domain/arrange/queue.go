package arrange

import (
	"container/heap"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// key is the readiness priority of a task. Smaller keys are emitted first.
type key struct {
	deadline int64
	weight   int64
	position int
}

// readinessKey extracts the ordering key of a ready task: earlier deadline
// first, then smaller weight, then earlier input position.
func readinessKey(t *domain.Task, position int) key {
	return key{deadline: t.Deadline, weight: t.Weight(), position: position}
}

func (a key) less(b key) bool {
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.position < b.position
}

type entry struct {
	item domain.Participation
	key  key
}

// readyQueue is a min-heap of ready tasks ordered by key.
type readyQueue []entry

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].key.less(q[j].key) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(entry))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func (q *readyQueue) push(item domain.Participation, position int) {
	heap.Push(q, entry{item: item, key: readinessKey(&item.Task, position)})
}

func (q *readyQueue) pop() domain.Participation {
	return heap.Pop(q).(entry).item
}
