package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Policy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	err := Policy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 3, calls)
}

func TestZeroValuePolicyRunsOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func() error {
		calls++
		return errors.New("nope")
	})
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Policy{Attempts: 5, Delay: time.Second}.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
