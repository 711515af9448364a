// Package schedule implements critical path method analysis over a project
// task snapshot: topological ordering, forward/backward pass timing, float
// and criticality, plus a resource contention analysis over assignees.
//
// Everything here is a pure computation. Each call builds its own structures
// from the input and returns a fresh result, so independent snapshots can be
// scheduled concurrently without coordination.
package schedule

import "sort"

// Schedule computes the CPM schedule for one task snapshot.
//
// Tasks caught in a dependency cycle, or waiting on an id that is not part
// of the snapshot, are excluded from the schedule and reported through
// ScheduleResult.Diagnostics; the computation proceeds over the remaining
// subgraph. An empty computable set yields an empty result with
// ProjectDuration 0.
func Schedule(tasks []TaskInput) ScheduleResult {
	g := buildGraph(tasks)

	byID := make(map[string]TaskInput, len(tasks))
	inputIndex := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		inputIndex[t.ID] = i
	}

	scheduled := make(map[string]bool, len(g.order))
	for _, id := range g.order {
		scheduled[id] = true
	}

	type timing struct {
		es, ef, ls, lf int
	}
	times := make(map[string]*timing, len(g.order))

	// Forward pass: ES is the latest finish among scheduled predecessors.
	for _, id := range g.order {
		tm := &timing{}
		for _, pred := range g.predecessors[id] {
			if !scheduled[pred] {
				continue
			}
			if pt := times[pred]; pt.ef > tm.es {
				tm.es = pt.ef
			}
		}
		tm.ef = tm.es + byID[id].EffectiveDuration()
		times[id] = tm
	}

	projectDuration := 0
	for _, tm := range times {
		if tm.ef > projectDuration {
			projectDuration = tm.ef
		}
	}

	// Backward pass: LF is the earliest start among scheduled successors,
	// or the project duration for tasks nothing waits on.
	for i := len(g.order) - 1; i >= 0; i-- {
		id := g.order[i]
		tm := times[id]
		tm.lf = projectDuration
		first := true
		for _, succ := range g.successors[id] {
			if !scheduled[succ] {
				continue
			}
			st := times[succ]
			if first || st.ls < tm.lf {
				tm.lf = st.ls
			}
			first = false
		}
		tm.ls = tm.lf - byID[id].EffectiveDuration()
	}

	result := ScheduleResult{
		Nodes:           make([]ScheduleNode, 0, len(g.order)),
		CriticalPath:    []string{},
		ProjectDuration: projectDuration,
		Diagnostics:     g.diagnostic(),
	}

	for _, id := range g.order {
		tm := times[id]
		n := ScheduleNode{
			TaskInput:      byID[id],
			EarliestStart:  tm.es,
			EarliestFinish: tm.ef,
			LatestStart:    tm.ls,
			LatestFinish:   tm.lf,
			Float:          tm.ls - tm.es,
		}
		n.IsCritical = n.Float == 0
		result.Nodes = append(result.Nodes, n)
	}

	// Critical path: zero-float tasks ascending by ES, ties broken by
	// original input order.
	critical := make([]ScheduleNode, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		if n.IsCritical {
			critical = append(critical, n)
		}
	}
	sort.SliceStable(critical, func(a, b int) bool {
		if critical[a].EarliestStart != critical[b].EarliestStart {
			return critical[a].EarliestStart < critical[b].EarliestStart
		}
		return inputIndex[critical[a].ID] < inputIndex[critical[b].ID]
	})
	for _, n := range critical {
		result.CriticalPath = append(result.CriticalPath, n.ID)
	}

	return result
}
