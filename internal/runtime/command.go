package runtime

import (
	"context"

	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/naming"
	"github.com/aretw0/topoedit/pkg/topo"
)

// Command is one atomic edit of the topology. Run must perform every change
// through tx and return an error instead of leaving the graph half-edited;
// the engine compensates whatever tx recorded.
type Command interface {
	Name() string
	Run(ctx context.Context, tx *topo.Tx) error
}

type commandFunc struct {
	name string
	fn   func(context.Context, *topo.Tx) error
}

func (c commandFunc) Name() string                               { return c.name }
func (c commandFunc) Run(ctx context.Context, tx *topo.Tx) error { return c.fn(ctx, tx) }

// NewCommand adapts a function to the Command interface.
func NewCommand(name string, fn func(context.Context, *topo.Tx) error) Command {
	return commandFunc{name: name, fn: fn}
}

// Status is the lifecycle state of a command record.
type Status string

const (
	StatusExecuting Status = "executing"
	StatusCommitted Status = "committed"
	StatusCancelled Status = "cancelled"
	StatusUndone    Status = "undone"
)

// Record is the history entry of an executed command.
type Record struct {
	ID      string
	Command string
	Status  Status
	Preview bool

	before  naming.Stats
	changes *topo.Changes
}

// Changes returns the undo payload, nil unless the command committed.
func (r *Record) Changes() *topo.Changes { return r.changes }

// Summary is the read-only view of a record.
type Summary struct {
	ID      string                    `json:"id"`
	Command string                    `json:"command"`
	Status  Status                    `json:"status"`
	Preview bool                      `json:"preview,omitempty"`
	Changes map[domain.Transition]int `json:"changes,omitempty"`
}

// Summary describes the record.
func (r *Record) Summary() Summary {
	s := Summary{ID: r.ID, Command: r.Command, Status: r.Status, Preview: r.Preview}
	if r.changes != nil {
		s.Changes = r.changes.Journal.Counts()
	}
	return s
}

// Touched lists the entities recorded with transition t, in first-touch order.
func (r *Record) Touched(t domain.Transition) []topo.Entity {
	if r.changes == nil {
		return nil
	}
	var out []topo.Entity
	for _, e := range r.changes.Journal.Select(t) {
		out = append(out, e.Entity)
	}
	return out
}
