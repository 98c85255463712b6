package ports

import (
	"context"

	"github.com/aretw0/topoedit/pkg/topo"
)

// SnapshotStore persists topology snapshots by key.
type SnapshotStore interface {
	// Save persists the snapshot under key, replacing any previous one.
	Save(ctx context.Context, key string, s *topo.Snapshot) error

	// Load retrieves the snapshot stored under key.
	// Returns domain.ErrSnapshotNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*topo.Snapshot, error)

	// Delete removes the snapshot stored under key.
	Delete(ctx context.Context, key string) error

	// List returns every stored key.
	List(ctx context.Context) ([]string, error)
}
