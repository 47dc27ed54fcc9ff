package worker

import (
	"context"
	"fmt"

	logs "github.com/danmuck/renderd/internal/logging"
)

func handleLoadModule(_ context.Context, in *Interpreter) error {
	name, err := in.in.String()
	if err != nil {
		return err
	}
	if err := in.registry.LoadModule(name); err != nil {
		return err
	}
	if in.isRoot() {
		logs.Infof("worker.Interpreter.loadModule rank=0 module=%q", name)
	}
	return nil
}

// handleApiMode consumes its field, then refuses: only mastered mode is
// served.
func handleApiMode(_ context.Context, in *Interpreter) error {
	mode, err := in.in.Int32()
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: api mode %d", ErrUnsupported, mode)
}

func handleUnsupported(_ context.Context, _ *Interpreter) error {
	return ErrUnsupported
}

func handleFinalize(_ context.Context, in *Interpreter) error {
	if in.isRoot() {
		logs.Infof("worker.Interpreter.finalize rank=0 handles=%d", in.handles.Len())
	}
	return ErrFinalized
}
