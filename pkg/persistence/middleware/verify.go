package middleware

import (
	"context"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
	"github.com/aretw0/topoedit/pkg/topo"
)

type verifyMiddleware struct {
	next ports.SnapshotStore
}

// NewVerifyMiddleware creates a middleware that rebuilds every snapshot it
// saves or loads and runs the graph checks on it, so that a broken topology
// never reaches the store nor a workspace.
func NewVerifyMiddleware() Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &verifyMiddleware{next: next}
	}
}

func verify(key string, s *topo.Snapshot) error {
	g, _, err := topo.Deserialize(s)
	if err == nil {
		err = g.Check()
	}
	if err != nil {
		return domain.Wrap(domain.CodeInvariant, "snapshot "+key+" is inconsistent", err)
	}
	return nil
}

func (m *verifyMiddleware) Save(ctx context.Context, key string, s *topo.Snapshot) error {
	if err := verify(key, s); err != nil {
		return err
	}
	return m.next.Save(ctx, key, s)
}

func (m *verifyMiddleware) Load(ctx context.Context, key string) (*topo.Snapshot, error) {
	s, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := verify(key, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *verifyMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *verifyMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
