package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	err := c.AcquireMemory(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c.MemoryUsage())

	err = c.AcquireMemory(context.Background(), 40)
	require.NoError(t, err)
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = c.AcquireMemory(ctx, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	err = c.AcquireMemory(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	err := c.AcquireMemory(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_NilIsUnlimited(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<40))
	require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestController_AcquireIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Within the burst: immediate.
	require.NoError(t, c.AcquireIO(context.Background(), 64<<10))

	// Far beyond what the deadline allows: the limiter refuses quickly
	// instead of blocking for seconds.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireIO(ctx, 8<<20)
	assert.Error(t, err)
}
