package worker

import (
	"fmt"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/scene"
)

// lookupAs resolves h and asserts its concrete kind. Both an unbound handle
// and a kind mismatch mean the rank has diverged from the master.
func lookupAs[T scene.Object](in *Interpreter, h api.Handle) (T, error) {
	var zero T
	obj, err := in.handles.Lookup(h)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", scene.ErrKindMismatch, h, obj.Kind())
	}
	return typed, nil
}

// lookupOptional is lookupAs that maps the null handle to the zero value.
func lookupOptional[T scene.Object](in *Interpreter, h api.Handle) (T, error) {
	if h.IsNull() {
		var zero T
		return zero, nil
	}
	return lookupAs[T](in, h)
}
