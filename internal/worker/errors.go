package worker

import (
	"errors"
	"fmt"

	"github.com/danmuck/renderd/internal/handles"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

var (
	// ErrFinalized ends the command loop successfully.
	ErrFinalized = errors.New("worker: finalized")
	// ErrUnsupported marks opcodes and value types this worker does not serve.
	ErrUnsupported = errors.New("worker: unsupported")
	// ErrCreateFailed reports a factory that returned an error rather than nothing.
	ErrCreateFailed = errors.New("worker: object creation failed")
)

// UnboundHandleError is raised when a command names a handle that was never
// bound on this rank.
type UnboundHandleError = handles.UnboundHandleError

// UnknownTypeError is raised when no factory is registered for a type name.
type UnknownTypeError struct {
	Kind scene.Kind
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("worker: unknown %s type %q", e.Kind, e.Type)
}

// ProtocolError means this rank can no longer trust its position in the
// command stream or its agreement with the rest of the group.
type ProtocolError struct {
	Opcode protocol.Opcode
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("worker: protocol error at %s: %v", e.Opcode, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// CommandError attaches the opcode to a handler failure.
type CommandError struct {
	Opcode protocol.Opcode
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("worker: %s: %v", e.Opcode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
