package agent

import "fmt"

// ModelCallError wraps a failure from the model endpoint. The
// conversation up to the failed call is preserved and persisted, so a
// retry resumes from the same state.
type ModelCallError struct {
	Err error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure while executing a requested tool.
// Tool execution is all-or-nothing within a turn: the first failure
// aborts the query rather than feeding a partial set of results back
// to the model.
type ToolExecutionError struct {
	Tool      string
	ToolUseID string
	Err       error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (%s) failed: %v", e.Tool, e.ToolUseID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ConnectionError wraps a failure to reach or initialize the tool
// server session.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
