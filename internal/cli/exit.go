package cli

import "fmt"

// Exit codes beyond the generic failure code 1.
const (
	ExitUnhealthy = 2
	ExitThreshold = 3
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	ExitCode int
	Reason   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s (exit code %d)", e.Reason, e.ExitCode)
}
