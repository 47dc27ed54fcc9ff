package scene

import (
	"errors"
	"fmt"
)

var (
	ErrRefUnderflow = errors.New("scene: reference count underflow")
	ErrNotCommitted = errors.New("scene: object not committed")
	ErrInvalidParam = errors.New("scene: invalid parameter")
	ErrKindMismatch = errors.New("scene: object kind mismatch")
	ErrTooLarge     = errors.New("scene: allocation too large")
)

// MaxAllocBytes bounds any single buffer an object sizes from command fields.
const MaxAllocBytes int64 = 4 << 30

// allocBytes returns elem times the product of dims, checking every step
// against MaxAllocBytes.
func allocBytes(elem int64, dims ...int64) (int64, error) {
	n := elem
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative extent %d", ErrInvalidParam, d)
		}
		if d != 0 && n > MaxAllocBytes/d {
			return 0, fmt.Errorf("%w: %d elements of %d bytes", ErrTooLarge, dims, elem)
		}
		n *= d
	}
	if n > MaxAllocBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	return n, nil
}

// Object is a managed, reference-counted scene object.
type Object interface {
	Kind() Kind
	TypeName() string
	Params() *Params
	// Commit rebuilds derived state from the current parameters.
	Commit() error
	Commits() int
	RefCount() int
	RefInc()
	// RefDec drops one reference and reports whether the object was destroyed.
	RefDec() (bool, error)
}

// Base carries the state every managed object shares. Concrete objects
// embed it and install an onDestroy hook to release what they reference.
type Base struct {
	kind      Kind
	typeName  string
	params    Params
	refs      int
	commits   int
	destroyed bool
	onDestroy func() error
}

func newBase(kind Kind, typeName string) Base {
	return Base{kind: kind, typeName: typeName}
}

func (b *Base) Kind() Kind { return b.kind }
func (b *Base) TypeName() string { return b.typeName }
func (b *Base) Params() *Params { return &b.params }
func (b *Base) Commits() int { return b.commits }
func (b *Base) RefCount() int { return b.refs }
func (b *Base) Destroyed() bool { return b.destroyed }
func (b *Base) markCommitted() { b.commits++ }
func (b *Base) committed() bool { return b.commits > 0 }

func (b *Base) RefInc() {
	b.refs++
}

func (b *Base) RefDec() (bool, error) {
	if b.refs <= 0 {
		return false, fmt.Errorf("%w: %s %q", ErrRefUnderflow, b.kind, b.typeName)
	}
	b.refs--
	if b.refs > 0 {
		return false, nil
	}
	b.destroyed = true
	err := b.params.releaseAll()
	if b.onDestroy != nil {
		if hookErr := b.onDestroy(); hookErr != nil && err == nil {
			err = hookErr
		}
	}
	return true, err
}

// String renders a short diagnostic form.
func (b *Base) String() string {
	return fmt.Sprintf("%s(%q refs=%d commits=%d)", b.kind, b.typeName, b.refs, b.commits)
}

// releaseRef drops a reference held on behalf of another object.
func releaseRef(o Object) error {
	if o == nil {
		return nil
	}
	_, err := o.RefDec()
	return err
}
