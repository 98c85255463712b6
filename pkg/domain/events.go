package domain

import (
	"context"
	"time"
)

// EventType defines the category of a command event.
type EventType string

const (
	EventCommandStart  EventType = "command_start"
	EventCommandFinish EventType = "command_finish"
	EventUndo          EventType = "undo"
	EventRedo          EventType = "redo"
)

// CommandEvent describes one step of the command lifecycle.
type CommandEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	CommandID string        `json:"command_id"`
	Command   string        `json:"command"`
	Preview   bool          `json:"preview,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	// Changes counts journal entries per transition once the command finished.
	Changes map[Transition]int `json:"changes,omitempty"`
	Err     error              `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnCommandStart  func(context.Context, *CommandEvent)
	OnCommandFinish func(context.Context, *CommandEvent)
	OnUndo          func(context.Context, *CommandEvent)
	OnRedo          func(context.Context, *CommandEvent)
}
