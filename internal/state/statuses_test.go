package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_String(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{name: "Pending status", status: StatusPending, expected: "pending"},
		{name: "Running status", status: StatusRunning, expected: "running"},
		{name: "Completed status", status: StatusCompleted, expected: "completed"},
		{name: "Failed status", status: StatusFailed, expected: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestParseJobStatus(t *testing.T) {
	status, err := ParseJobStatus("running")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)

	_, err = ParseJobStatus("dead")
	assert.Error(t, err)
}

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		valid    bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusRunning, StatusRunning, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusRunning, false},
		{StatusCompleted, StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTransition(tt.from, tt.to))
		})
	}
}
