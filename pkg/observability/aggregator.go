package observability

import (
	"context"

	"github.com/aretw0/topoedit/pkg/domain"
)

type hook = func(context.Context, *domain.CommandEvent)

// Combine merges several hook sets into one that calls each of them in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var start, finish, undo, redo []hook
	for _, s := range sets {
		start = appendHook(start, s.OnCommandStart)
		finish = appendHook(finish, s.OnCommandFinish)
		undo = appendHook(undo, s.OnUndo)
		redo = appendHook(redo, s.OnRedo)
	}
	return domain.LifecycleHooks{
		OnCommandStart:  fanOut(start),
		OnCommandFinish: fanOut(finish),
		OnUndo:          fanOut(undo),
		OnRedo:          fanOut(redo),
	}
}

func appendHook(hs []hook, h hook) []hook {
	if h == nil {
		return hs
	}
	return append(hs, h)
}

func fanOut(hs []hook) hook {
	switch len(hs) {
	case 0:
		return nil
	case 1:
		return hs[0]
	}
	return func(ctx context.Context, e *domain.CommandEvent) {
		for _, h := range hs {
			h(ctx, e)
		}
	}
}
