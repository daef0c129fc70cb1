package paramspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ListDropsNulls(t *testing.T) {
	space := map[string]any{"x": []any{1.0, nil, 2.0, 3.0}}
	n, estimate, err := Normalize(space, []string{"x"}, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, estimate)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, n.Values["x"])
}

func TestNormalize_AllNullRejected(t *testing.T) {
	space := map[string]any{"x": []any{nil, nil}}
	_, _, err := Normalize(space, []string{"x"}, 500)
	require.Error(t, err)
	var invalidErr *InvalidError
	require.True(t, errors.As(err, &invalidErr))
}

func TestNormalize_ScalarIsOneValueList(t *testing.T) {
	space := map[string]any{"x": 7.0}
	n, estimate, err := Normalize(space, []string{"x"}, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, estimate)
	assert.Equal(t, []any{7.0}, n.Values["x"])
}

func TestNormalize_RangeAscendingInclusive(t *testing.T) {
	space := map[string]any{
		"x": map[string]any{"start": 1.0, "end": 2.0, "step": 0.5},
	}
	n, estimate, err := Normalize(space, []string{"x"}, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, estimate)
	assert.Equal(t, []any{1.0, 1.5, 2.0}, n.Values["x"])
}

func TestNormalize_RangeDescending(t *testing.T) {
	space := map[string]any{
		"x": map[string]any{"start": 2.0, "end": 1.0, "step": 0.5},
	}
	n, _, err := Normalize(space, []string{"x"}, 500)
	require.NoError(t, err)
	assert.Equal(t, []any{2.0, 1.5, 1.0}, n.Values["x"])
}

func TestNormalize_RangeStepMustBePositive(t *testing.T) {
	space := map[string]any{
		"x": map[string]any{"start": 1.0, "end": 2.0, "step": 0.0},
	}
	_, _, err := Normalize(space, []string{"x"}, 500)
	require.Error(t, err)
}

func TestNormalize_ProductAtLimitSucceeds(t *testing.T) {
	space := map[string]any{
		"x": []any{1.0, 2.0, 3.0, 4.0, 5.0},
	}
	_, estimate, err := Normalize(space, []string{"x"}, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, estimate)
}

func TestNormalize_ProductOverLimitRejected(t *testing.T) {
	space := map[string]any{
		"x": []any{1.0, 2.0, 3.0, 4.0, 5.0, 6.0},
	}
	_, _, err := Normalize(space, []string{"x"}, 5)
	require.Error(t, err)
}

func TestNormalize_EmptyParamSpaceRejected(t *testing.T) {
	_, _, err := Normalize(map[string]any{}, nil, 500)
	require.Error(t, err)
}

func TestGenerate_LexicographicOrderAndThrottle(t *testing.T) {
	space := map[string]any{"x": []any{1.0, 2.0, 3.0, 4.0}}
	n, _, err := Normalize(space, []string{"x"}, 500)
	require.NoError(t, err)

	tasks := Generate(n, 2)
	require.Len(t, tasks, 4)
	assert.False(t, tasks[0].Throttled)
	assert.False(t, tasks[1].Throttled)
	assert.True(t, tasks[2].Throttled)
	assert.True(t, tasks[3].Throttled)
	assert.Equal(t, 1.0, tasks[0].Params["x"])
	assert.Equal(t, 4.0, tasks[3].Params["x"])
}

func TestGenerate_CapsAtMaxTaskCap(t *testing.T) {
	space := map[string]any{
		"x": map[string]any{"start": 1.0, "end": 1500.0, "step": 1.0},
	}
	n, estimate, err := Normalize(space, []string{"x"}, 2000)
	require.NoError(t, err)
	assert.Equal(t, 1500, estimate)

	tasks := Generate(n, 16)
	assert.Len(t, tasks, MaxTaskCap)
}

func TestGenerate_MultiDimensionLexicographic(t *testing.T) {
	space := map[string]any{
		"a": []any{1.0, 2.0},
		"b": []any{"x", "y"},
	}
	n, _, err := Normalize(space, []string{"a", "b"}, 500)
	require.NoError(t, err)

	tasks := Generate(n, 10)
	require.Len(t, tasks, 4)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "x"}, tasks[0].Params)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "y"}, tasks[1].Params)
	assert.Equal(t, map[string]any{"a": 2.0, "b": "x"}, tasks[2].Params)
	assert.Equal(t, map[string]any{"a": 2.0, "b": "y"}, tasks[3].Params)
}
