package schedule

// Status is the workflow state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// KnownStatus reports whether s is one of the recognized task statuses.
func KnownStatus(s Status) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// TaskInput is one task in a project snapshot. The engine never mutates it.
type TaskInput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Duration     int      `json:"duration"` // nominal effort, days
	Dependencies []string `json:"dependencies,omitempty"`
	Status       Status   `json:"status"`
	Progress     int      `json:"progress"` // percent complete, 0-100
	AssigneeID   string   `json:"assignee_id,omitempty"`
	AssigneeName string   `json:"assignee_name,omitempty"`
}

// EffectiveDuration is the remaining scheduling weight of the task.
// A completed task weighs nothing even when its progress field is stale;
// otherwise the nominal duration shrinks by reported progress, rounded up.
func (t TaskInput) EffectiveDuration() int {
	if t.Status == StatusCompleted {
		return 0
	}
	p := t.Progress
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	return (t.Duration*(100-p) + 99) / 100
}

// ScheduleNode is a task with its computed CPM timing.
type ScheduleNode struct {
	TaskInput
	EarliestStart  int  `json:"earliest_start"`
	EarliestFinish int  `json:"earliest_finish"`
	LatestStart    int  `json:"latest_start"`
	LatestFinish   int  `json:"latest_finish"`
	Float          int  `json:"float"`
	IsCritical     bool `json:"is_critical"`
}

// Diagnostic describes a non-fatal structural anomaly found while building
// the task graph. The engine reports it and schedules the computable subset.
type Diagnostic struct {
	Code    string   `json:"code"` // cycle_or_dangling
	Message string   `json:"message"`
	TaskIDs []string `json:"task_ids"`
}

// ScheduleResult is the engine's output for one snapshot.
type ScheduleResult struct {
	Nodes           []ScheduleNode `json:"nodes"` // topological order
	CriticalPath    []string       `json:"critical_path"`
	ProjectDuration int            `json:"project_duration"`
	Diagnostics     []Diagnostic   `json:"diagnostics,omitempty"`
}

// Node returns the scheduled node with the given id, if present.
func (r *ScheduleResult) Node(id string) (ScheduleNode, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ScheduleNode{}, false
}

// ResourceLoad aggregates one assignee's share of the schedule.
// TotalNominalDuration sums raw input durations: it measures total planned
// effort, not remaining effort.
type ResourceLoad struct {
	AssigneeID           string `json:"assignee_id"`
	AssigneeName         string `json:"assignee_name"`
	TaskCount            int    `json:"task_count"`
	CriticalTaskCount    int    `json:"critical_task_count"`
	TotalNominalDuration int    `json:"total_nominal_duration"`
}

// ResourceAnalysis is the advisory output of the resource analyzer.
type ResourceAnalysis struct {
	Loads           []ResourceLoad `json:"loads"`
	Recommendations []string       `json:"recommendations"`
}
