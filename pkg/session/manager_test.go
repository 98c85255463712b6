package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/pkg/adapters/memory"
	"github.com/aretw0/topoedit/pkg/adapters/redis"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/session"
	"github.com/aretw0/topoedit/pkg/topo"
)

// SlowStore simulates I/O latency to provoke lost updates if locking is missing.
type SlowStore struct {
	*memory.Store
}

func newSlowStore() SlowStore {
	return SlowStore{memory.NewStore()}
}

func (s SlowStore) Save(ctx context.Context, key string, snap *topo.Snapshot) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, key, snap)
}

func (s SlowStore) Load(ctx context.Context, key string) (*topo.Snapshot, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, key)
}

func addBlock(x float64) func(context.Context, *topoedit.Workspace) error {
	return func(ctx context.Context, ws *topoedit.Workspace) error {
		_, err := ws.Apply(ctx, topoedit.NewBlock(domain.Point{X: x}, domain.Point{X: x + 1, Y: 1, Z: 1}, 2))
		return err
	}
}

func storedBlocks(t *testing.T, store ports.SnapshotStore, id string) int {
	t.Helper()
	s, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	n := 0
	for _, r := range s.Entities {
		if r.Kind == domain.KindBlock {
			n++
		}
	}
	return n
}

func TestManager_SerializesUpdates(t *testing.T) {
	store := newSlowStore()
	mgr := session.NewManager(store)
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "race"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, mgr.Update(ctx, "race", addBlock(float64(2*i))))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, storedBlocks(t, store, "race"))
	require.NoError(t, mgr.View(ctx, "race", func(_ context.Context, ws *topoedit.Workspace) error {
		assert.Len(t, ws.History(), 8)
		return ws.Check()
	}))
}

func TestManager_Create(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.Create(ctx, "a"))
	assert.ErrorIs(t, mgr.Create(ctx, "a"), domain.ErrState)

	err := mgr.View(ctx, "missing", func(context.Context, *topoedit.Workspace) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	keys, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func TestManager_FailedUpdateIsForgotten(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(store)
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, "ws"))
	require.NoError(t, mgr.Update(ctx, "ws", addBlock(0)))

	boom := errors.New("boom")
	err := mgr.Update(ctx, "ws", func(ctx context.Context, ws *topoedit.Workspace) error {
		if err := addBlock(5)(ctx, ws); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, storedBlocks(t, store, "ws"))
	require.NoError(t, mgr.View(ctx, "ws", func(_ context.Context, ws *topoedit.Workspace) error {
		assert.Equal(t, 1, ws.Sizes()[domain.KindBlock])
		return nil
	}))
}

func TestManager_DistributedLocking(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newSlowStore()
	ctx := context.Background()
	replicas := []*session.Manager{
		session.NewManager(store, session.WithLocker(redis.NewLocker(client, "test:")), session.WithLockTTL(5*time.Second)),
		session.NewManager(store, session.WithLocker(redis.NewLocker(client, "test:")), session.WithLockTTL(5*time.Second)),
	}
	require.NoError(t, replicas[0].Create(ctx, "shared"))

	var wg sync.WaitGroup
	for r, mgr := range replicas {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(x float64) {
				defer wg.Done()
				assert.NoError(t, mgr.Update(ctx, "shared", addBlock(x)))
			}(float64(10*r + 2*i))
		}
	}
	wg.Wait()

	assert.Equal(t, 8, storedBlocks(t, store, "shared"))
}
