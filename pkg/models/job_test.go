package models_test

import (
	"math/rand"
	"testing"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	models.JobStatusQueued,
	models.JobStatusProcessing,
	models.JobStatusSucceeded,
	models.JobStatusFailed,
}

func TestCanTransition_Table(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.JobStatusQueued, models.JobStatusProcessing, true},
		{models.JobStatusProcessing, models.JobStatusSucceeded, true},
		{models.JobStatusProcessing, models.JobStatusFailed, true},
		{models.JobStatusQueued, models.JobStatusSucceeded, false},
		{models.JobStatusQueued, models.JobStatusFailed, false},
		{models.JobStatusQueued, models.JobStatusQueued, false},
		{models.JobStatusProcessing, models.JobStatusQueued, false},
		{models.JobStatusProcessing, models.JobStatusProcessing, false},
		{models.JobStatusSucceeded, models.JobStatusFailed, false},
		{models.JobStatusFailed, models.JobStatusQueued, false},
		{models.JobStatusFailed, models.JobStatusProcessing, false},
		{"bogus", models.JobStatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, models.CanTransition(tt.from, tt.to))
		})
	}
}

// A random walk of transition attempts never leaves a terminal state and
// never moves backwards.
func TestCanTransition_RandomWalkNeverLeavesTerminal(t *testing.T) {
	rank := map[string]int{
		models.JobStatusQueued:     0,
		models.JobStatusProcessing: 1,
		models.JobStatusSucceeded:  2,
		models.JobStatusFailed:     2,
	}
	rng := rand.New(rand.NewSource(42))

	for walk := 0; walk < 500; walk++ {
		status := models.JobStatusQueued
		for step := 0; step < 20; step++ {
			next := allStatuses[rng.Intn(len(allStatuses))]
			if !models.CanTransition(status, next) {
				continue
			}
			assert.False(t, models.IsTerminal(status), "left terminal state %s", status)
			assert.Greater(t, rank[next], rank[status], "moved backwards %s -> %s", status, next)
			status = next
		}
	}
}

func TestPredecessors(t *testing.T) {
	assert.Empty(t, models.Predecessors(models.JobStatusQueued))
	assert.Equal(t, []string{models.JobStatusQueued}, models.Predecessors(models.JobStatusProcessing))
	assert.Equal(t, []string{models.JobStatusProcessing}, models.Predecessors(models.JobStatusSucceeded))
	assert.Equal(t, []string{models.JobStatusProcessing}, models.Predecessors(models.JobStatusFailed))
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, models.IsValidStatus(s))
	}
	assert.False(t, models.IsValidStatus("completed"))
	assert.False(t, models.IsValidStatus(""))
}

func TestSummarize(t *testing.T) {
	got := models.Summarize([]models.Detection{
		{Label: "valve", Confidence: 0.9},
		{Label: "pipe", Confidence: 0.5},
		{Label: "valve", Confidence: 0.7},
	})
	assert.Equal(t, []string{"valve", "pipe"}, got.Labels)
	assert.Equal(t, 3, got.Count)
}

func TestSummarize_Empty(t *testing.T) {
	got := models.Summarize(nil)
	assert.NotNil(t, got.Labels)
	assert.Empty(t, got.Labels)
	assert.Equal(t, 0, got.Count)
}
