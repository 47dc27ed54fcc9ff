// Package handles maps master-assigned handle values to the objects this
// rank created for them.
package handles

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/scene"
)

var (
	ErrNullHandle   = errors.New("handles: null handle")
	ErrAlreadyBound = errors.New("handles: handle already bound")
	ErrNilObject    = errors.New("handles: nil object")
)

// UnboundHandleError reports a lookup of a handle that names nothing on
// this rank.
type UnboundHandleError struct {
	Handle api.Handle
}

func (e *UnboundHandleError) Error() string {
	return fmt.Sprintf("handles: unbound handle %s", e.Handle)
}

// Table owns one counted reference per bound handle. It is used by a single
// interpreter goroutine and is not safe for concurrent use.
type Table struct {
	objects map[api.Handle]scene.Object
}

func NewTable() *Table {
	return &Table{objects: make(map[api.Handle]scene.Object)}
}

// Bind associates h with obj and takes the handle's reference on obj.
func (t *Table) Bind(h api.Handle, obj scene.Object) error {
	if h.IsNull() {
		return ErrNullHandle
	}
	if obj == nil {
		return fmt.Errorf("%w: bind %s", ErrNilObject, h)
	}
	if _, ok := t.objects[h]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, h)
	}
	obj.RefInc()
	t.objects[h] = obj
	return nil
}

// Lookup returns the object bound to h.
func (t *Table) Lookup(h api.Handle) (scene.Object, error) {
	obj, ok := t.objects[h]
	if !ok {
		return nil, &UnboundHandleError{Handle: h}
	}
	return obj, nil
}

// LookupOrNull resolves h, mapping the null handle to a nil object.
func (t *Table) LookupOrNull(h api.Handle) (scene.Object, error) {
	if h.IsNull() {
		return nil, nil
	}
	return t.Lookup(h)
}

// Release unbinds h and drops the handle's reference. destroyed reports
// whether that was the last reference.
func (t *Table) Release(h api.Handle) (destroyed bool, err error) {
	obj, ok := t.objects[h]
	if !ok {
		return false, &UnboundHandleError{Handle: h}
	}
	delete(t.objects, h)
	return obj.RefDec()
}

// Bound reports whether h currently names an object.
func (t *Table) Bound(h api.Handle) bool {
	_, ok := t.objects[h]
	return ok
}

func (t *Table) Len() int {
	return len(t.objects)
}

// Handles returns every bound handle in ascending order.
func (t *Table) Handles() []api.Handle {
	out := make([]api.Handle, 0, len(t.objects))
	for h := range t.objects {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CountByKind summarizes bound objects for status reporting.
func (t *Table) CountByKind() map[string]int {
	out := make(map[string]int)
	for _, obj := range t.objects {
		out[obj.Kind().String()]++
	}
	return out
}

// ReleaseAll drops every handle reference, in ascending handle order.
func (t *Table) ReleaseAll() error {
	var firstErr error
	for _, h := range t.Handles() {
		if _, err := t.Release(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
