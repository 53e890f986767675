package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/retry"
)

var errBoom = errors.New("boom")

func fastPolicy(retries uint64) retry.Policy {
	return retry.Policy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestTransient(t *testing.T) {
	t.Parallel()

	assert.NoError(t, retry.Transient("save", nil))

	err := retry.Transient("save", errBoom)
	assert.ErrorIs(t, err, retry.ErrTransient)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "transient failure in save: boom", err.Error())

	var te *retry.TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "save", te.Op)

	assert.Same(t, err, retry.Transient("again", err), "already transient errors are not re-wrapped")
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, retry.IsTransient(nil))
	assert.False(t, retry.IsTransient(errBoom))
	assert.True(t, retry.IsTransient(retry.Transient("op", errBoom)))
	assert.True(t, retry.IsTransient(context.DeadlineExceeded))
	assert.False(t, retry.IsTransient(context.Canceled))
}

func TestDo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("retries transient errors until success", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := retry.Do(ctx, fastPolicy(5), func(context.Context) error {
			calls++
			if calls < 3 {
				return retry.Transient("op", errBoom)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns permanent errors immediately", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := retry.Do(ctx, fastPolicy(5), func(context.Context) error {
			calls++
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := retry.Do(ctx, fastPolicy(2), func(context.Context) error {
			calls++
			return retry.Transient("op", errBoom)
		})
		assert.ErrorIs(t, err, retry.ErrTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when context is canceled", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := retry.Do(cctx, fastPolicy(5), func(context.Context) error {
			return retry.Transient("op", errBoom)
		})
		assert.Error(t, err)
	})
}

func TestDoValue(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := retry.DoValue(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, retry.Transient("op", errBoom)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
