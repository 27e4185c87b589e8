package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitKeysAreIndependent(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "a", 2, 0.001))
	require.NoError(t, l.Wait(ctx, "a", 2, 0.001))
	assert.Error(t, l.Wait(ctx, "a", 2, 0.001), "burst exhausted")
	assert.NoError(t, l.Wait(ctx, "b", 2, 0.001))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New()
	require.NoError(t, l.Wait(context.Background(), "k", 1, 0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "k", 1, 0.001))
}
