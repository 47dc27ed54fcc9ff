package scene

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// Data is a typed array. Object-typed arrays hold counted references to
// their elements; every other type holds the raw element bytes.
type Data struct {
	Base
	elemType api.DataType
	count    uint64
	flags    int32
	raw      []byte
	objects  []Object
}

// NewData allocates a zeroed array of count elements of elemType.
func NewData(count uint64, elemType api.DataType, flags int32) (*Data, error) {
	size := elemType.SizeOf()
	if size == 0 {
		return nil, fmt.Errorf("%w: data element type %s", ErrInvalidParam, elemType)
	}
	if count > uint64(MaxAllocBytes) {
		return nil, fmt.Errorf("%w: data count %d", ErrTooLarge, count)
	}
	n, err := allocBytes(int64(size), int64(count))
	if err != nil {
		return nil, fmt.Errorf("data of %d %s: %w", count, elemType, err)
	}
	d := &Data{
		Base:     newBase(KindData, "data"),
		elemType: elemType,
		count:    count,
		flags:    flags &^ api.DataSharedBuffer,
	}
	if elemType == api.TypeObject {
		d.objects = make([]Object, count)
	} else {
		d.raw = make([]byte, n)
	}
	d.onDestroy = d.releaseObjects
	return d, nil
}

// ByteLen is the wire size of the initial payload.
func (d *Data) ByteLen() uint64 {
	return d.count * uint64(d.elemType.SizeOf())
}

// Load copies raw element bytes into the array.
func (d *Data) Load(payload []byte) error {
	if d.elemType == api.TypeObject {
		return fmt.Errorf("%w: object data must be loaded with LoadObjects", ErrInvalidParam)
	}
	if uint64(len(payload)) != d.ByteLen() {
		return fmt.Errorf("%w: data payload %d bytes, want %d", ErrInvalidParam, len(payload), d.ByteLen())
	}
	copy(d.raw, payload)
	return nil
}

// LoadObjects translates wire handles into local objects once, at ingestion,
// taking a reference on each non-null element.
func (d *Data) LoadObjects(handles []api.Handle, resolve func(api.Handle) (Object, error)) error {
	if d.elemType != api.TypeObject {
		return fmt.Errorf("%w: data type %s holds no objects", ErrInvalidParam, d.elemType)
	}
	if uint64(len(handles)) != d.count {
		return fmt.Errorf("%w: %d handles for %d elements", ErrInvalidParam, len(handles), d.count)
	}
	resolved := make([]Object, len(handles))
	for i, h := range handles {
		if h.IsNull() {
			continue
		}
		obj, err := resolve(h)
		if err != nil {
			return err
		}
		resolved[i] = obj
	}
	for i, obj := range resolved {
		if obj == nil {
			continue
		}
		obj.RefInc()
		d.objects[i] = obj
	}
	return nil
}

func (d *Data) releaseObjects() error {
	var firstErr error
	for i, obj := range d.objects {
		if obj == nil {
			continue
		}
		d.objects[i] = nil
		if err := releaseRef(obj); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Data) Commit() error {
	d.markCommitted()
	return nil
}

func (d *Data) ElementType() api.DataType { return d.elemType }
func (d *Data) Len() uint64 { return d.count }
func (d *Data) Flags() int32 { return d.flags }
func (d *Data) Bytes() []byte { return d.raw }

// Objects returns the element objects of an object-typed array.
func (d *Data) Objects() []Object {
	return d.objects
}

// Vec3fs decodes a float3 array.
func (d *Data) Vec3fs() []api.Vec3f {
	if d.elemType != api.TypeFloat3 {
		return nil
	}
	out := make([]api.Vec3f, d.count)
	for i := range out {
		for j := 0; j < 3; j++ {
			out[i][j] = math.Float32frombits(binary.BigEndian.Uint32(d.raw[12*i+4*j:]))
		}
	}
	return out
}

// Floats decodes a float array.
func (d *Data) Floats() []float32 {
	if d.elemType != api.TypeFloat {
		return nil
	}
	out := make([]float32, d.count)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(d.raw[4*i:]))
	}
	return out
}

// Vec3is decodes an int3 array.
func (d *Data) Vec3is() []api.Vec3i {
	if d.elemType != api.TypeInt3 {
		return nil
	}
	out := make([]api.Vec3i, d.count)
	for i := range out {
		for j := 0; j < 3; j++ {
			out[i][j] = int32(binary.BigEndian.Uint32(d.raw[12*i+4*j:]))
		}
	}
	return out
}
