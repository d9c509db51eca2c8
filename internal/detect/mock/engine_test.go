package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NethraK15/Giza-Global-Eval-Task/internal/detect"
	"github.com/NethraK15/Giza-Global-Eval-Task/internal/detect/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEngine_Defaults(t *testing.T) {
	e := mock.NewMockEngine()
	dets, err := e.Detect(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "valve", dets[0].Label)
	assert.Equal(t, "pipe", dets[1].Label)
	assert.Equal(t, 1, e.Calls)
}

func TestFailingEngine(t *testing.T) {
	boom := errors.New("boom")
	_, err := mock.NewFailingEngine(boom).Detect(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestTimeoutEngine(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := mock.NewTimeoutEngine().Detect(ctx, nil)
	assert.ErrorIs(t, err, detect.ErrEngineTimeout)
}

func TestPanickingEngine(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = mock.NewPanickingEngine().Detect(context.Background(), nil)
	})
}
