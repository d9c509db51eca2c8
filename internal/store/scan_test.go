package store

import (
	"reflect"
	"testing"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow hands fixed column values to Scan in order.
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func jobRow(status string, result []byte) fakeRow {
	now := time.Now().UTC()
	return fakeRow{values: []any{
		uuid.New(), models.DefaultOwnerID, status, "yolov8n", "v1", "image/png",
		result, (*time.Time)(nil), (*time.Time)(nil), now, now,
	}}
}

func TestScanJob_DecodesResult(t *testing.T) {
	job, err := scanJob(jobRow(models.JobStatusSucceeded, []byte(`{"labels":["valve"],"count":2}`)))
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, job.Status)
	assert.Equal(t, &models.JobResult{Labels: []string{"valve"}, Count: 2}, job.Result)
}

func TestScanJob_RejectsUnknownStatus(t *testing.T) {
	for _, status := range []string{"completed", ""} {
		_, err := scanJob(jobRow(status, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown status")
	}
}
