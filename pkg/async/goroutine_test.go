package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("returns error", func(t *testing.T) {
		want := errors.New("boom")
		err := Recover("task", func() error { return want })
		assert.ErrorIs(t, err, want)
	})

	t.Run("converts panic", func(t *testing.T) {
		err := Recover("exploding task", func() error { panic("kaboom") })
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPanic)

		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "exploding task", pe.Task)
		assert.Equal(t, "kaboom", pe.Value)
		assert.NotEmpty(t, pe.Stack)
		assert.Contains(t, err.Error(), "exploding task")
	})

	t.Run("nil on success", func(t *testing.T) {
		assert.NoError(t, Recover("ok", func() error { return nil }))
	})
}

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	results, errs := Map(context.Background(), items, 3, "square", func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * n, nil
	})

	assert.Equal(t, []int{25, 16, 9, 4, 1}, results)
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestMap_IsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3}
	results, errs := Map(context.Background(), items, 2, "mixed", func(ctx context.Context, n int) (int, error) {
		switch n {
		case 2:
			panic("two")
		case 3:
			return 0, errors.New("three")
		}
		return n, nil
	})

	assert.Equal(t, 1, results[0])
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrPanic)
	assert.EqualError(t, errs[2], "three")
}

func TestMap_RespectsWorkerLimit(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	items := make([]int, 20)

	Map(context.Background(), items, 4, "limited", func(ctx context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			old := maxSeen.Load()
			if n <= old || maxSeen.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, maxSeen.Load(), int32(4))
}

func TestMap_Empty(t *testing.T) {
	results, errs := Map(context.Background(), []string{}, 2, "empty", func(ctx context.Context, s string) (string, error) {
		return s, nil
	})
	assert.Empty(t, results)
	assert.Empty(t, errs)
}

func TestBatch(t *testing.T) {
	errs := Batch(context.Background(), []string{"a", "b", "c"}, 0, "letters", func(ctx context.Context, s string) error {
		if s == "b" {
			return errors.New("bad letter")
		}
		return nil
	})

	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "bad letter")
}
