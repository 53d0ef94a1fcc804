package sessions

import (
	"context"
	"errors"
	"testing"

	"fuse-query-go/config"

	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryCreateContext(t *testing.T) {
	config.Reset()
	q, err := TryCreateContext()
	require.NoError(t, err)

	_, err = uuid.Parse(q.ID)
	assert.NoError(t, err)
	assert.Equal(t, 8, q.Settings.MaxThreads)
	assert.Equal(t, 8192, q.Settings.MaxBlockSize)
	assert.Same(t, q.Allocator, compute.GetAllocator(q.Context()))

	other, err := TryCreateContext()
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, other.ID)
}

func TestQueryContextFollowsConfig(t *testing.T) {
	config.Reset()
	defer config.Reset()
	config.GetConfig().Query.MaxThreads = 2

	q, err := TryCreateContext()
	require.NoError(t, err)
	assert.Equal(t, 2, q.Settings.MaxThreads)

	assert.Error(t, q.SetMaxThreads(0))
	require.NoError(t, q.SetMaxThreads(4))
	assert.Equal(t, 4, q.Settings.MaxThreads)
	assert.Error(t, q.SetMaxBlockSize(-1))

	config.GetConfig().Query.MaxThreads = 0
	_, err = TryCreateContext()
	assert.Error(t, err)
}

func TestQueryContextCancel(t *testing.T) {
	config.Reset()
	parent, cancelParent := context.WithCancel(context.Background())
	defer cancelParent()

	q, err := TryCreateContextWithParent(parent)
	require.NoError(t, err)
	require.NoError(t, q.Context().Err())

	stop := errors.New("user abort")
	q.Cancel(stop)
	<-q.Context().Done()
	assert.Equal(t, stop, context.Cause(q.Context()))
}
