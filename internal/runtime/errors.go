package runtime

import "fmt"

// CommandError reports a command that failed during forward execution.
// RolledBack is false when the command refused to run before touching the
// graph, true when it ran and its changes were compensated.
type CommandError struct {
	Command    string
	ID         string
	Message    string
	RolledBack bool
	Err        error
}

func (e *CommandError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s: %s (rolled back)", e.Command, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
