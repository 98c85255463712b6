package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/internal/config"
	"github.com/aretw0/topoedit/internal/presentation/tui"
	"github.com/aretw0/topoedit/internal/script"
	"github.com/aretw0/topoedit/pkg/adapters/memory"
	"github.com/aretw0/topoedit/pkg/adapters/redis"
	"github.com/aretw0/topoedit/pkg/adapters/sqlite"
	"github.com/aretw0/topoedit/pkg/adapters/transfinite"
	"github.com/aretw0/topoedit/pkg/persistence/middleware"
	"github.com/aretw0/topoedit/pkg/ports"
)

// backend is an opened snapshot store with its optional lock service.
type backend struct {
	store  ports.SnapshotStore
	locker ports.DistributedLocker
	close  func() error
}

// openStore opens the configured driver and wraps it with the verification
// and encryption middlewares when enabled.
func openStore(c config.Store) (*backend, error) {
	b, err := openDriver(c)
	if err != nil {
		return nil, err
	}
	active, fallback, err := c.Keys()
	if err != nil {
		b.close()
		return nil, err
	}
	var mws []middleware.Middleware
	if c.Verify {
		mws = append(mws, middleware.NewVerifyMiddleware())
	}
	if active != nil {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			b.close()
			return nil, err
		}
		mws = append(mws, seal)
	}
	b.store = middleware.Chain(b.store, mws...)
	return b, nil
}

func openDriver(c config.Store) (*backend, error) {
	switch c.Driver {
	case config.DriverRedis:
		opts := []redis.Option{redis.WithPrefix(c.Prefix + "snapshot:")}
		if c.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.TTL))
		}
		s := redis.New(c.RedisAddr, c.RedisPassword, c.RedisDB, opts...)
		b := &backend{store: s, close: s.Close}
		if c.Lock {
			b.locker = redis.NewLocker(s.Client(), c.Prefix)
		}
		return b, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(c.DSN)
		if err != nil {
			return nil, err
		}
		return &backend{store: s, close: s.Close}, nil
	case config.DriverMemory:
		return &backend{store: memory.NewStore(), close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", c.Driver)
}

// workspaceOptions turns the configuration into workspace options. Meshing
// uses the transfinite mesher and Laplacian smoother.
func workspaceOptions(extra ...topoedit.Option) []topoedit.Option {
	opts := []topoedit.Option{
		topoedit.WithLogger(logger),
		topoedit.WithTolerance(cfg.Tolerance),
		topoedit.WithSnapTolerance(cfg.SnapTolerance),
		topoedit.WithMeshWorkers(cfg.MeshWorkers),
		topoedit.WithInvariantChecks(cfg.CheckInvariants),
		topoedit.WithMesher(transfinite.New()),
		topoedit.WithSmoother(transfinite.NewSmoother()),
	}
	return append(opts, extra...)
}

// replay runs the script at path on a new workspace, or on base when given.
// Step lines go to progress when it is not nil.
func replay(ctx context.Context, path string, base *topoedit.Workspace, progress io.Writer) (*topoedit.Workspace, *script.Script, *topoedit.Result, error) {
	sc, err := script.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	ws := base
	if ws == nil {
		ws = topoedit.New(workspaceOptions(sc.Options()...)...)
	} else if len(sc.Geometry) > 0 {
		return nil, nil, nil, fmt.Errorf("%s: geometry cannot be added to a loaded workspace", path)
	}

	var status *tui.StatusWriter
	if progress != nil {
		status = tui.NewStatusWriter(progress)
	}
	var last *topoedit.Result
	err = sc.Run(ctx, ws, func(e script.Event) {
		if e.Result != nil {
			last = e.Result
		}
		if status != nil {
			status.Step(e.Index, e.Step.Op, e.Result, e.Err)
		}
	})
	return ws, sc, last, err
}
