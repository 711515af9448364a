package schedule

import "fmt"

// Thresholds controls when the resource analyzer emits recommendations.
type Thresholds struct {
	// CriticalTasks is the critical-task count at which an assignee is
	// flagged as a concentration risk.
	CriticalTasks int
	// Utilization is the fraction of the project duration above which an
	// assignee's total planned effort is flagged.
	Utilization float64
}

// DefaultThresholds returns the standard advisory thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{CriticalTasks: 3, Utilization: 0.7}
}

// AnalyzeResources groups the scheduled nodes by assignee and reports each
// assignee's load along with advisory recommendations. Unassigned tasks are
// skipped. Both rules are evaluated independently per assignee and may both
// fire. Loads appear in order of first assignment in the schedule.
func AnalyzeResources(result ScheduleResult, th Thresholds) ResourceAnalysis {
	loads := make(map[string]*ResourceLoad)
	var order []string

	for _, n := range result.Nodes {
		if n.AssigneeID == "" {
			continue
		}
		l, ok := loads[n.AssigneeID]
		if !ok {
			l = &ResourceLoad{AssigneeID: n.AssigneeID, AssigneeName: n.AssigneeName}
			loads[n.AssigneeID] = l
			order = append(order, n.AssigneeID)
		}
		l.TaskCount++
		if n.IsCritical {
			l.CriticalTaskCount++
		}
		l.TotalNominalDuration += n.Duration
	}

	analysis := ResourceAnalysis{
		Loads:           make([]ResourceLoad, 0, len(order)),
		Recommendations: []string{},
	}

	for _, id := range order {
		l := loads[id]
		analysis.Loads = append(analysis.Loads, *l)

		if l.CriticalTaskCount >= th.CriticalTasks {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("%s has %d critical tasks. Consider redistributing to reduce risk.",
					l.AssigneeName, l.CriticalTaskCount))
		}
		if float64(l.TotalNominalDuration) > th.Utilization*float64(result.ProjectDuration) {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("%s is assigned %d days of work across %d tasks. This exceeds %d%% of the project timeline.",
					l.AssigneeName, l.TotalNominalDuration, l.TaskCount, int(th.Utilization*100)))
		}
	}

	return analysis
}
