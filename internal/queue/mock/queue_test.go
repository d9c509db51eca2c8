package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/queue/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_FIFO(t *testing.T) {
	q := mock.NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, []byte("1")))
	require.NoError(t, q.Push(ctx, []byte("2")))

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
	got, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestMemoryQueue_Timeout(t *testing.T) {
	got, err := mock.NewMemoryQueue().Pop(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryQueue_WakesOnPush(t *testing.T) {
	q := mock.NewMemoryQueue()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Push(context.Background(), []byte("late"))
	}()
	got, err := q.Pop(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", string(got))
}

func TestMemoryQueue_InjectedErrors(t *testing.T) {
	q := mock.NewMemoryQueue()
	boom := errors.New("connection reset")
	q.PopErrs = []error{boom}

	_, err := q.Pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, boom)
	got, err := q.Pop(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}
