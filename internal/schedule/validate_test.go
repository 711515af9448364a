package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTasks_CleanSnapshot(t *testing.T) {
	tasks := []TaskInput{
		task("a", 2),
		task("b", 3, "a"),
	}
	tasks[1].Status = StatusInProgress
	tasks[1].Progress = 40

	assert.NoError(t, ValidateTasks(tasks))
	assert.NoError(t, ValidateTasks(nil))
}

func TestValidateTasks_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TaskInput)
		field  string
	}{
		{"negative duration", func(ti *TaskInput) { ti.Duration = -1 }, "duration"},
		{"progress below range", func(ti *TaskInput) { ti.Progress = -5 }, "progress"},
		{"progress above range", func(ti *TaskInput) { ti.Progress = 101 }, "progress"},
		{"unknown status", func(ti *TaskInput) { ti.Status = "paused" }, "status"},
		{"self dependency", func(ti *TaskInput) { ti.Dependencies = []string{"a"} }, "dependencies"},
		{"empty id", func(ti *TaskInput) { ti.ID = "" }, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := task("a", 2)
			tt.mutate(&in)

			err := ValidateTasks([]TaskInput{in})
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Errors)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestValidateTasks_DuplicateIDs(t *testing.T) {
	err := ValidateTasks([]TaskInput{task("a", 1), task("a", 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated")
}

func TestValidateTasks_CollectsAllProblems(t *testing.T) {
	bad := task("a", -2)
	bad.Progress = 400
	err := ValidateTasks([]TaskInput{bad})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 2)
}
