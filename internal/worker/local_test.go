package worker

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
	"github.com/danmuck/renderd/internal/testutil/testlog"
	"github.com/danmuck/renderd/internal/transport"
)

func runLocal(t *testing.T, cfg LocalConfig, frames ...*protocol.FrameBuilder) (LocalResult, *transport.MemResponder, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.Interpreter.RegionScratchBytes == 0 {
		cfg.Interpreter.RegionScratchBytes = 1 << 10
	}
	resp := &transport.MemResponder{}
	res, err := RunLocal(ctx, cfg, bytes.NewReader(protocol.Concat(frames...)), resp)
	return res, resp, err
}

func TestRunLocalFinalizeExitsZeroOnEveryRank(t *testing.T) {
	testlog.Start(t)

	res, resp, err := runLocal(t, LocalConfig{Ranks: 3},
		newModel(1),
		single(protocol.CmdNewTriangleMesh, 2),
		pair(protocol.CmdAddGeometry, 1, 2),
		single(protocol.CmdCommit, 1),
		finalize(),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, res.Status)
	assert.Empty(t, resp.Responses())

	for rank, in := range res.Interpreters {
		obj, err := in.Handles().Lookup(1)
		require.NoError(t, err, "rank %d", rank)
		state, ok := obj.(*scene.Model).Finalized()
		require.True(t, ok, "rank %d", rank)
		assert.Len(t, state.Geometry, 1, "rank %d", rank)
		assert.True(t, in.Status().Finalized, "rank %d", rank)
	}
}

func TestRunLocalRejectsCreationWhenOneRankFails(t *testing.T) {
	testlog.Start(t)

	res, resp, err := runLocal(t, LocalConfig{
		Ranks: 3,
		RegistryFor: func(rank int) *scene.Registry {
			if rank == 1 {
				return scene.NewRegistry()
			}
			return scene.DefaultRegistry()
		},
	},
		newScoped(protocol.CmdNewMaterial, api.NullHandle, 7, "OBJMaterial"),
		finalize(),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, res.Status)

	got := resp.Responses()
	require.Len(t, got, 1)
	assert.Equal(t, protocol.CmdNewMaterial, got[0].Opcode)
	assert.False(t, got[0].Success)
	assert.Equal(t, int32(1), got[0].Int)
	for rank, in := range res.Interpreters {
		assert.False(t, in.Handles().Bound(7), "rank %d", rank)
		assert.Zero(t, in.Handles().Len(), "rank %d", rank)
	}
}

func TestRunLocalRanksConverge(t *testing.T) {
	testlog.Start(t)

	frames := []*protocol.FrameBuilder{
		newNamed(protocol.CmdNewRenderer, 1, "scivis"),
		newModel(2),
		newNamed(protocol.CmdNewGeometry, 3, "triangles"),
		newData(4, 3, api.TypeFloat3, float3s(api.Vec3f{0, 0, 0}, api.Vec3f{2, 0, 0}, api.Vec3f{0, 2, 0})),
		setParam(protocol.CmdSetObject, 3, "vertex").Handle(4),
		single(protocol.CmdCommit, 3),
		pair(protocol.CmdAddGeometry, 2, 3),
		single(protocol.CmdCommit, 2),
		setParam(protocol.CmdSetObject, 1, "model").Handle(2),
		newScoped(protocol.CmdNewMaterial, 1, 5, "OBJMaterial"),
		setParam(protocol.CmdSetVec3f, 5, "Kd").Vec3f(api.Vec3f{1, 0, 0}),
		single(protocol.CmdCommit, 5),
		pair(protocol.CmdSetMaterial, 3, 5),
		frameBuffer(6, api.Vec2i{2, 2}, api.ChannelColor|api.ChannelDepth),
		pair(protocol.CmdRenderFrame, 6, 1).Int32(int32(api.ChannelColor | api.ChannelDepth)),
		single(protocol.CmdRelease, 4),
		finalize(),
	}
	res, resp, err := runLocal(t, LocalConfig{Ranks: 4}, frames...)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, res.Status)
	assert.Equal(t, []protocol.Opcode{protocol.CmdNewMaterial}, opcodes(resp.Responses()))

	root := res.Interpreters[0]
	rootFB, err := root.Handles().Lookup(6)
	require.NoError(t, err)
	for rank, in := range res.Interpreters {
		assert.Equal(t, root.Handles().Handles(), in.Handles().Handles(), "rank %d handles", rank)
		assert.Equal(t, root.Consumed(), in.Consumed(), "rank %d consumed", rank)
		fb, err := in.Handles().Lookup(6)
		require.NoError(t, err)
		assert.Equal(t, rootFB.(*scene.FrameBuffer).Color(), fb.(*scene.FrameBuffer).Color(), "rank %d color", rank)
	}
}

func TestRunLocalCommitBarrierPrecedesRender(t *testing.T) {
	testlog.Start(t)

	trace := &traceLog{}
	cfg := LocalConfig{Ranks: 3}
	cfg.Interpreter.Trace = trace.record

	_, _, err := runLocal(t, cfg,
		newModel(1),
		newNamed(protocol.CmdNewRenderer, 2, "raycast"),
		setParam(protocol.CmdSetObject, 2, "model").Handle(1),
		frameBuffer(3, api.Vec2i{1, 1}, api.ChannelColor),
		single(protocol.CmdCommit, 1),
		pair(protocol.CmdRenderFrame, 3, 2).Int32(int32(api.ChannelColor)),
		finalize(),
	)
	require.NoError(t, err)

	lastBarrier, firstRender := -1, -1
	barriers := 0
	for i, ev := range trace.snapshot() {
		if ev.Opcode == protocol.CmdCommit && ev.Phase == PhaseBarrier {
			lastBarrier = i
			barriers++
		}
		if ev.Opcode == protocol.CmdRenderFrame && ev.Phase == PhaseBegin && firstRender < 0 {
			firstRender = i
		}
	}
	assert.Equal(t, 3, barriers)
	require.GreaterOrEqual(t, firstRender, 0)
	assert.Less(t, lastBarrier, firstRender)
}

func TestRunLocalProtocolErrorFailsEveryRank(t *testing.T) {
	testlog.Start(t)

	res, _, err := runLocal(t, LocalConfig{Ranks: 3},
		newModel(1),
		protocol.NewFrame(999),
		finalize(),
	)
	require.Error(t, err)
	assert.Equal(t, []int{1, 1, 1}, res.Status)
}

func TestRunLocalUnfinishedStreamFails(t *testing.T) {
	testlog.Start(t)

	res, _, err := runLocal(t, LocalConfig{Ranks: 2}, newModel(1))
	require.Error(t, err)
	assert.Equal(t, []int{1, 1}, res.Status)
}

func TestRunLocalPreloadsModules(t *testing.T) {
	testlog.Start(t)

	res, _, err := runLocal(t, LocalConfig{Ranks: 2, Modules: []string{scene.ModulePathTracer}},
		newNamed(protocol.CmdNewRenderer, 1, "pathtracer"),
		finalize(),
	)
	require.NoError(t, err)
	for _, in := range res.Interpreters {
		assert.Equal(t, []string{scene.ModulePathTracer}, in.Registry().Loaded())
		assert.True(t, in.Handles().Bound(1))
	}
}

func TestRunLocalRequiresRanks(t *testing.T) {
	testlog.Start(t)

	_, _, err := runLocal(t, LocalConfig{})
	require.Error(t, err)
}

func TestRunLocalSetRegionVotes(t *testing.T) {
	testlog.Start(t)

	alloc := &countingAllocator{}
	cfg := LocalConfig{Ranks: 2}
	cfg.Interpreter.RegionScratchBytes = 4
	cfg.Interpreter.Allocator = alloc

	res, resp, err := runLocal(t, cfg,
		newNamed(protocol.CmdNewVolume, 1, "shared_structured_volume"),
		setParam(protocol.CmdSetVec3i, 1, "dimensions").Vec3i(api.Vec3i{2, 2, 2}),
		region(1, api.Vec3i{0, 0, 0}, api.Vec3i{2, 2, 2}, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
		sample(1, api.Vec3f{1, 1, 1}),
		finalize(),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, res.Status)
	assert.Equal(t, int64(2), alloc.allocs.Load())
	assert.Equal(t, int64(2), alloc.frees.Load())

	got := resp.Responses()
	require.Len(t, got, 2)
	assert.Equal(t, protocol.Vote(protocol.CmdSetRegion, 0), got[0])
	assert.Equal(t, []float32{8}, got[1].Floats)
}
