package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("ws-%d", i)
		require.NoError(t, mgr.Create(ctx, id))
		require.NoError(t, mgr.View(ctx, id, func(context.Context, *topoedit.Workspace) error { return nil }))
		require.NoError(t, mgr.Delete(ctx, id))
	}

	assert.Empty(t, mgr.locks, "lock entries leaked")
	assert.Empty(t, mgr.spaces, "deleted workspaces still cached")
}
