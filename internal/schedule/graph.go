package schedule

import (
	"fmt"
	"sort"
)

// taskGraph holds the adjacency structures derived from one snapshot.
// Dependency lists are carried verbatim apart from de-duplication; ids that
// reference nothing in the snapshot stay in the predecessor lists and keep
// the dependent's in-degree from ever reaching zero, so such tasks fall out
// of the topological order the same way cycle members do.
type taskGraph struct {
	order        []string            // topological order over the computable subset
	predecessors map[string][]string // task -> tasks it waits on
	successors   map[string][]string // task -> tasks waiting on it
	excluded     []string            // tasks left unplaced (cycle or dangling reference)
}

// buildGraph inverts dependency edges and runs Kahn's algorithm. The FIFO
// queue is seeded in original input order, which makes the order
// deterministic for identical input.
func buildGraph(tasks []TaskInput) taskGraph {
	g := taskGraph{
		predecessors: make(map[string][]string, len(tasks)),
		successors:   make(map[string][]string, len(tasks)),
	}

	inDegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		deps := dedupe(t.Dependencies)
		g.predecessors[t.ID] = deps
		inDegree[t.ID] = len(deps)
		for _, d := range deps {
			g.successors[d] = append(g.successors[d], t.ID)
		}
	}

	queue := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	g.order = make([]string, 0, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		g.order = append(g.order, id)

		for _, succ := range g.successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(g.order) < len(tasks) {
		placed := make(map[string]bool, len(g.order))
		for _, id := range g.order {
			placed[id] = true
		}
		for _, t := range tasks {
			if !placed[t.ID] {
				g.excluded = append(g.excluded, t.ID)
			}
		}
	}

	return g
}

// diagnostic summarizes the excluded tasks, or returns nil when the whole
// snapshot was placed.
func (g taskGraph) diagnostic() []Diagnostic {
	if len(g.excluded) == 0 {
		return nil
	}
	ids := append([]string(nil), g.excluded...)
	sort.Strings(ids)
	return []Diagnostic{{
		Code:    "cycle_or_dangling",
		Message: fmt.Sprintf("%d task(s) excluded from the schedule: dependency cycle or reference to an unknown task", len(ids)),
		TaskIDs: ids,
	}}
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return append([]string(nil), ids...)
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
