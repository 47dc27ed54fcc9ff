package worker

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/collective"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/transport"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RegionScratchBytes = 1 << 10
	return cfg
}

func newSolo(t *testing.T, cfg Config, frames ...*protocol.FrameBuilder) (*Interpreter, *transport.MemResponder) {
	t.Helper()
	resp := &transport.MemResponder{}
	in, err := New(cfg, bytes.NewReader(protocol.Concat(frames...)), collective.Solo{}, resp)
	require.NoError(t, err)
	t.Cleanup(func() { _ = in.Close() })
	return in, resp
}

// stepFrames applies each frame and checks that exactly its bytes were
// consumed.
func stepFrames(t *testing.T, in *Interpreter, frames ...*protocol.FrameBuilder) {
	t.Helper()
	want := in.Consumed()
	for i, f := range frames {
		err := in.Step(context.Background())
		want += int64(f.Len())
		if i == len(frames)-1 && frameOpcode(f) == protocol.CmdFinalize {
			require.ErrorIs(t, err, ErrFinalized)
		} else {
			require.NoError(t, err, "frame %d", i)
		}
		require.Equal(t, want, in.Consumed(), "frame %d consumed", i)
	}
}

func frameOpcode(f *protocol.FrameBuilder) protocol.Opcode {
	r := protocol.NewReader(bytes.NewReader(f.Bytes()), protocol.Limits{})
	op, _ := r.Opcode()
	return op
}

func newModel(h api.Handle) *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdNewModel).Handle(h)
}

func newNamed(op protocol.Opcode, h api.Handle, typeName string) *protocol.FrameBuilder {
	return protocol.NewFrame(op).Handle(h).String(typeName)
}

func newScoped(op protocol.Opcode, renderer, h api.Handle, typeName string) *protocol.FrameBuilder {
	return protocol.NewFrame(op).Handle(renderer).Handle(h).String(typeName)
}

func newData(h api.Handle, count uint64, t api.DataType, payload []byte) *protocol.FrameBuilder {
	f := protocol.NewFrame(protocol.CmdNewData).Handle(h).Size(count).Int32(int32(t)).Int32(0)
	if payload == nil {
		return f.Size(0)
	}
	return f.Size(1).Blob(payload)
}

func pair(op protocol.Opcode, a, b api.Handle) *protocol.FrameBuilder {
	return protocol.NewFrame(op).Handle(a).Handle(b)
}

func single(op protocol.Opcode, h api.Handle) *protocol.FrameBuilder {
	return protocol.NewFrame(op).Handle(h)
}

func setParam(op protocol.Opcode, h api.Handle, name string) *protocol.FrameBuilder {
	return protocol.NewFrame(op).Handle(h).String(name)
}

func frameBuffer(h api.Handle, size api.Vec2i, channels api.Channel) *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdFrameBufferCreate).
		Handle(h).Vec2i(size).Int32(int32(api.FormatRGBA8)).Int32(int32(channels))
}

func region(h api.Handle, index, count api.Vec3i, voxels []byte) *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdSetRegion).
		Handle(h).Vec3i(index).Vec3i(count).Size(uint64(len(voxels))).Blob(voxels)
}

func sample(h api.Handle, coords ...api.Vec3f) *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdSampleVolume).
		Handle(h).Size(uint64(len(coords))).Blob(protocol.EncodeVec3fs(coords...))
}

func getValue(h api.Handle, name string, t api.DataType) *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdGetValue).Handle(h).String(name).Int32(int32(t))
}

func finalize() *protocol.FrameBuilder {
	return protocol.NewFrame(protocol.CmdFinalize)
}

func float3s(vs ...api.Vec3f) []byte {
	return protocol.EncodeVec3fs(vs...)
}

func opcodes(resps []protocol.Response) []protocol.Opcode {
	out := make([]protocol.Opcode, len(resps))
	for i, r := range resps {
		out[i] = r.Opcode
	}
	return out
}

type countingAllocator struct {
	allocs atomic.Int64
	frees  atomic.Int64
	bytes  atomic.Int64
}

func (a *countingAllocator) Alloc(n int) []byte {
	a.allocs.Add(1)
	a.bytes.Add(int64(n))
	return make([]byte, n)
}

func (a *countingAllocator) Free([]byte) {
	a.frees.Add(1)
}

type traceLog struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (l *traceLog) record(ev TraceEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *traceLog) snapshot() []TraceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TraceEvent(nil), l.events...)
}
