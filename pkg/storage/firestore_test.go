package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevolt/homevolt/pkg/types"
)

func TestDecodeEstimatorDoc(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		state, ok := decodeEstimatorDoc(ctx, "total", map[string]any{
			"json": `{"lastSample":9.5,"wasFull":true,"baselineStrategy":"auto","autoBaseline":10}`,
		})
		require.True(t, ok)
		require.NotNil(t, state.LastSample)
		assert.Equal(t, 9.5, *state.LastSample)
		assert.True(t, state.WasFull)
		assert.Equal(t, types.BaselineStrategyAuto, state.BaselineStrategy)
		require.NotNil(t, state.AutoBaseline)
		assert.Equal(t, 10.0, *state.AutoBaseline)
	})

	t.Run("json field not a string", func(t *testing.T) {
		state, ok := decodeEstimatorDoc(ctx, "total", map[string]any{"json": 42})
		assert.False(t, ok)
		assert.Equal(t, types.EstimatorState{}, state)
	})

	t.Run("corrupt json", func(t *testing.T) {
		state, ok := decodeEstimatorDoc(ctx, "total", map[string]any{"json": "{not json"})
		assert.False(t, ok)
		assert.Equal(t, types.EstimatorState{}, state)
	})
}

func TestFirestoreValidate(t *testing.T) {
	// an empty project ID is allowed, it gets inferred at Init
	f := &FirestoreProvider{}
	assert.NoError(t, f.Validate())
}
