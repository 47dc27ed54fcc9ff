package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// Limits constrains reader memory use for variable-length fields.
type Limits struct {
	MaxStringBytes uint32
	MaxBlobBytes   uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes: 1 << 20,
		MaxBlobBytes:   4 << 30,
	}
}

// Reader decodes frame fields from a command stream. It never reads ahead,
// so the number of consumed bytes always equals the fields requested.
type Reader struct {
	r        io.Reader
	limits   Limits
	scratch  [16]byte
	consumed int64
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxStringBytes == 0 {
		limits.MaxStringBytes = DefaultLimits().MaxStringBytes
	}
	if limits.MaxBlobBytes == 0 {
		limits.MaxBlobBytes = DefaultLimits().MaxBlobBytes
	}
	return &Reader{r: r, limits: limits}
}

// Limits returns the limits in effect, defaults filled in.
func (r *Reader) Limits() Limits { return r.limits }

// Consumed returns the total bytes read from the stream so far.
func (r *Reader) Consumed() int64 {
	return r.consumed
}

// Opcode reads the next frame tag. A clean end of stream before the first
// byte yields ErrStreamClosed.
func (r *Reader) Opcode() (Opcode, error) {
	n, err := io.ReadFull(r.r, r.scratch[:4])
	r.consumed += int64(n)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return 0, ErrStreamClosed
		}
		return 0, fmt.Errorf("%w: opcode: %v", ErrTruncated, err)
	}
	return Opcode(binary.BigEndian.Uint32(r.scratch[:4])), nil
}

func (r *Reader) fill(n int) ([]byte, error) {
	got, err := io.ReadFull(r.r, r.scratch[:n])
	r.consumed += int64(got)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return r.scratch[:n], nil
}

func (r *Reader) Int32() (int32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) Size() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) Handle() (api.Handle, error) {
	v, err := r.Size()
	return api.Handle(v), err
}

func (r *Reader) Float() (float32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) floats(out []float32) error {
	b, err := r.fill(4 * len(out))
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
	return nil
}

func (r *Reader) ints(out []int32) error {
	b, err := r.fill(4 * len(out))
	if err != nil {
		return err
	}
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
	return nil
}

func (r *Reader) Vec2f() (api.Vec2f, error) {
	var v api.Vec2f
	err := r.floats(v[:])
	return v, err
}

func (r *Reader) Vec3f() (api.Vec3f, error) {
	var v api.Vec3f
	err := r.floats(v[:])
	return v, err
}

func (r *Reader) Vec4f() (api.Vec4f, error) {
	var v api.Vec4f
	err := r.floats(v[:])
	return v, err
}

func (r *Reader) Vec2i() (api.Vec2i, error) {
	var v api.Vec2i
	err := r.ints(v[:])
	return v, err
}

func (r *Reader) Vec3i() (api.Vec3i, error) {
	var v api.Vec3i
	err := r.ints(v[:])
	return v, err
}

// String reads a u32 length followed by that many bytes. The returned string
// owns its memory; nothing has to be freed by the caller.
func (r *Reader) String() (string, error) {
	b, err := r.fill(4)
	if err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(b)
	if n > r.limits.MaxStringBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrStringTooLarge, n)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := r.ReadInto(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Blob reads n raw bytes into a fresh buffer.
func (r *Reader) Blob(n uint64) ([]byte, error) {
	if n > r.limits.MaxBlobBytes || n > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, n)
	}
	buf := make([]byte, n)
	if err := r.ReadInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills dst completely from the stream.
func (r *Reader) ReadInto(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if uint64(len(dst)) > r.limits.MaxBlobBytes {
		return fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, len(dst))
	}
	n, err := io.ReadFull(r.r, dst)
	r.consumed += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return nil
}

// Skip discards n bytes.
func (r *Reader) Skip(n uint64) error {
	if n > r.limits.MaxBlobBytes {
		return fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, n)
	}
	got, err := io.CopyN(io.Discard, r.r, int64(n))
	r.consumed += got
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return nil
}
