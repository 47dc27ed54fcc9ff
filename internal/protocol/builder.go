package protocol

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// FrameBuilder encodes command frames the way the master emits them.
// Fields are appended in call order; the caller owns schema agreement.
type FrameBuilder struct {
	buf bytes.Buffer
}

// NewFrame starts a frame with op.
func NewFrame(op Opcode) *FrameBuilder {
	b := &FrameBuilder{}
	return b.Int32(int32(op))
}

func (b *FrameBuilder) put32(v uint32) *FrameBuilder {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *FrameBuilder) put64(v uint64) *FrameBuilder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *FrameBuilder) Int32(v int32) *FrameBuilder {
	return b.put32(uint32(v))
}

func (b *FrameBuilder) Size(v uint64) *FrameBuilder {
	return b.put64(v)
}

func (b *FrameBuilder) Handle(h api.Handle) *FrameBuilder {
	return b.put64(uint64(h))
}

func (b *FrameBuilder) Float(v float32) *FrameBuilder {
	return b.put32(math.Float32bits(v))
}

func (b *FrameBuilder) Vec2f(v api.Vec2f) *FrameBuilder {
	return b.Float(v[0]).Float(v[1])
}

func (b *FrameBuilder) Vec3f(v api.Vec3f) *FrameBuilder {
	return b.Float(v[0]).Float(v[1]).Float(v[2])
}

func (b *FrameBuilder) Vec4f(v api.Vec4f) *FrameBuilder {
	return b.Float(v[0]).Float(v[1]).Float(v[2]).Float(v[3])
}

func (b *FrameBuilder) Vec2i(v api.Vec2i) *FrameBuilder {
	return b.Int32(v[0]).Int32(v[1])
}

func (b *FrameBuilder) Vec3i(v api.Vec3i) *FrameBuilder {
	return b.Int32(v[0]).Int32(v[1]).Int32(v[2])
}

func (b *FrameBuilder) String(s string) *FrameBuilder {
	b.put32(uint32(len(s)))
	b.buf.WriteString(s)
	return b
}

// Blob appends raw bytes without a length prefix.
func (b *FrameBuilder) Blob(p []byte) *FrameBuilder {
	b.buf.Write(p)
	return b
}

// Bytes returns a copy of the encoded frame.
func (b *FrameBuilder) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *FrameBuilder) Len() int {
	return b.buf.Len()
}

// Concat joins frames into one stream chunk.
func Concat(frames ...*FrameBuilder) []byte {
	var out bytes.Buffer
	for _, f := range frames {
		out.Write(f.buf.Bytes())
	}
	return out.Bytes()
}

// EncodeHandles packs handles as an object-typed data payload.
func EncodeHandles(hs ...api.Handle) []byte {
	out := make([]byte, 8*len(hs))
	for i, h := range hs {
		binary.BigEndian.PutUint64(out[8*i:], uint64(h))
	}
	return out
}

// EncodeVec3fs packs world coordinates for a sample request.
func EncodeVec3fs(vs ...api.Vec3f) []byte {
	out := make([]byte, 12*len(vs))
	for i, v := range vs {
		for j := 0; j < 3; j++ {
			binary.BigEndian.PutUint32(out[12*i+4*j:], math.Float32bits(v[j]))
		}
	}
	return out
}

// DecodeHandles is the inverse of EncodeHandles.
func DecodeHandles(p []byte) ([]api.Handle, error) {
	if len(p)%8 != 0 {
		return nil, ErrInvalidLength
	}
	out := make([]api.Handle, len(p)/8)
	for i := range out {
		out[i] = api.Handle(binary.BigEndian.Uint64(p[8*i:]))
	}
	return out, nil
}

// DecodeVec3fs is the inverse of EncodeVec3fs.
func DecodeVec3fs(p []byte) ([]api.Vec3f, error) {
	if len(p)%12 != 0 {
		return nil, ErrInvalidLength
	}
	out := make([]api.Vec3f, len(p)/12)
	for i := range out {
		for j := 0; j < 3; j++ {
			out[i][j] = math.Float32frombits(binary.BigEndian.Uint32(p[12*i+4*j:]))
		}
	}
	return out, nil
}
