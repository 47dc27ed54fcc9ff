package scene

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/danmuck/renderd/internal/api"
)

func TestParamsObjectReferencesMove(t *testing.T) {
	owner := NewModel()
	a := newMaterial("OBJMaterial", deriveOBJMaterial)
	b := newMaterial("OBJMaterial", deriveOBJMaterial)
	a.RefInc()
	b.RefInc()

	if err := owner.Params().Set("m", ObjectValue(a)); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if a.RefCount() != 2 {
		t.Fatalf("expected a refs=2, got %d", a.RefCount())
	}
	if err := owner.Params().Set("m", ObjectValue(b)); err != nil {
		t.Fatalf("set b: %v", err)
	}
	if a.RefCount() != 1 || b.RefCount() != 2 {
		t.Fatalf("unexpected refs a=%d b=%d", a.RefCount(), b.RefCount())
	}
	if err := owner.Params().Set("m", ObjectValue(b)); err != nil {
		t.Fatalf("reassign b: %v", err)
	}
	if b.RefCount() != 2 {
		t.Fatalf("reassigning the same object changed refs: %d", b.RefCount())
	}
}

func TestRefDecUnderflow(t *testing.T) {
	m := NewModel()
	if _, err := m.RefDec(); !errors.Is(err, ErrRefUnderflow) {
		t.Fatalf("expected ErrRefUnderflow, got %v", err)
	}
	m.RefInc()
	destroyed, err := m.RefDec()
	if err != nil || !destroyed {
		t.Fatalf("expected destroy, got destroyed=%v err=%v", destroyed, err)
	}
	if m.RefCount() != 0 {
		t.Fatalf("refs went negative: %d", m.RefCount())
	}
}

func TestModelRemoveByIdentity(t *testing.T) {
	m := NewModel()
	g1 := NewTriangleMesh()
	g2 := NewTriangleMesh()
	g1.RefInc()
	g2.RefInc()
	m.AddGeometry(g1)
	m.AddGeometry(g2)
	m.AddGeometry(g1)

	removed, err := m.RemoveGeometry(g1)
	if err != nil || !removed {
		t.Fatalf("remove g1: removed=%v err=%v", removed, err)
	}
	if got := m.Geometry(); len(got) != 2 || got[0] != g2 || got[1] != g1 {
		t.Fatalf("unexpected membership after remove: %v", got)
	}
	if g1.RefCount() != 2 {
		t.Fatalf("unexpected g1 refs: %d", g1.RefCount())
	}

	stranger := NewTriangleMesh()
	removed, err = m.RemoveGeometry(stranger)
	if err != nil || removed {
		t.Fatalf("removing a non-member: removed=%v err=%v", removed, err)
	}
}

func TestModelFinalizedOnlyAfterCommit(t *testing.T) {
	m := NewModel()
	if _, ok := m.Finalized(); ok {
		t.Fatalf("model finalized before commit")
	}
	g := NewTriangleMesh()
	g.RefInc()
	m.AddGeometry(g)
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	first, ok := m.Finalized()
	if !ok || len(first.Geometry) != 1 || first.Geometry[0] != g {
		t.Fatalf("unexpected finalized state: %+v", first)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	second, _ := m.Finalized()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("commit not idempotent: %+v vs %+v", first, second)
	}
	if m.Commits() != 2 {
		t.Fatalf("unexpected commit count: %d", m.Commits())
	}
}

func TestModelDestroyReleasesMembers(t *testing.T) {
	m := NewModel()
	g := NewTriangleMesh()
	v := newVolume("shared_structured_volume")
	g.RefInc()
	v.RefInc()
	m.RefInc()
	m.AddGeometry(g)
	m.AddVolume(v)

	if destroyed, err := m.RefDec(); err != nil || !destroyed {
		t.Fatalf("destroy model: destroyed=%v err=%v", destroyed, err)
	}
	if g.RefCount() != 1 || v.RefCount() != 1 {
		t.Fatalf("members still referenced: g=%d v=%d", g.RefCount(), v.RefCount())
	}
}

func TestDataLoadObjectsTakesReferences(t *testing.T) {
	g := NewTriangleMesh()
	g.RefInc()
	d, err := NewData(3, api.TypeObject, api.DataSharedBuffer|4)
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	if d.Flags() != 4 {
		t.Fatalf("shared buffer flag not masked: %d", d.Flags())
	}
	resolve := func(h api.Handle) (Object, error) {
		if h == 5 {
			return g, nil
		}
		return nil, errors.New("unbound")
	}
	if err := d.LoadObjects([]api.Handle{5, api.NullHandle, 5}, resolve); err != nil {
		t.Fatalf("load objects: %v", err)
	}
	if g.RefCount() != 3 {
		t.Fatalf("expected one ref per element, got %d", g.RefCount())
	}
	d.RefInc()
	if _, err := d.RefDec(); err != nil {
		t.Fatalf("release data: %v", err)
	}
	if g.RefCount() != 1 {
		t.Fatalf("element refs not dropped: %d", g.RefCount())
	}
}

func TestDataLoadObjectsUnresolvedTakesNothing(t *testing.T) {
	g := NewTriangleMesh()
	g.RefInc()
	d, err := NewData(2, api.TypeObject, 0)
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	resolve := func(h api.Handle) (Object, error) {
		if h == 1 {
			return g, nil
		}
		return nil, errors.New("unbound")
	}
	if err := d.LoadObjects([]api.Handle{1, 2}, resolve); err == nil {
		t.Fatalf("expected resolve error")
	}
	if g.RefCount() != 1 {
		t.Fatalf("partial load leaked a reference: %d", g.RefCount())
	}
}

func TestTriangleMeshCommitDerivesBounds(t *testing.T) {
	vertex, _ := NewData(3, api.TypeFloat3, 0)
	if err := vertex.Load(float3Bytes(api.Vec3f{0, 0, 0}, api.Vec3f{1, 0, 0}, api.Vec3f{0, 2, -1})); err != nil {
		t.Fatalf("load vertex: %v", err)
	}
	index, _ := NewData(1, api.TypeInt3, 0)
	if err := index.Load(int3Bytes(api.Vec3i{0, 1, 2})); err != nil {
		t.Fatalf("load index: %v", err)
	}
	mesh := NewTriangleMesh()
	if err := mesh.Params().Set("vertex", ObjectValue(vertex)); err != nil {
		t.Fatalf("set vertex: %v", err)
	}
	if err := mesh.Params().Set("index", ObjectValue(index)); err != nil {
		t.Fatalf("set index: %v", err)
	}
	if err := mesh.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	state := mesh.State()
	if state.Primitives != 1 {
		t.Fatalf("unexpected primitive count: %d", state.Primitives)
	}
	want := Box{Lower: api.Vec3f{0, 0, -1}, Upper: api.Vec3f{1, 2, 0}}
	if state.Bounds != want {
		t.Fatalf("unexpected bounds: %+v", state.Bounds)
	}
}

func TestVolumeSetRegionAndSample(t *testing.T) {
	v := newVolume("shared_structured_volume")
	p := v.Params()
	_ = p.Set("dimensions", Vec3iValue(api.Vec3i{4, 4, 4}))
	_ = p.Set("voxelType", StringValue("uchar"))

	region := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !v.SetRegion(region, api.Vec3i{1, 1, 1}, api.Vec3i{2, 2, 2}) {
		t.Fatalf("set region rejected")
	}
	if got := v.Sample(api.Vec3f{1, 1, 1}); got != 1 {
		t.Fatalf("unexpected sample at origin of region: %v", got)
	}
	if got := v.Sample(api.Vec3f{2, 2, 2}); got != 8 {
		t.Fatalf("unexpected sample at far corner: %v", got)
	}
	if got := v.Sample(api.Vec3f{-1, 0, 0}); got != 0 {
		t.Fatalf("outside sample should be 0, got %v", got)
	}
	if v.SetRegion(region, api.Vec3i{3, 3, 3}, api.Vec3i{2, 2, 2}) {
		t.Fatalf("out of bounds region accepted")
	}
	if v.SetRegion(region[:3], api.Vec3i{0, 0, 0}, api.Vec3i{2, 2, 2}) {
		t.Fatalf("short payload accepted")
	}
}

func TestVolumeSetRegionWithoutDimensionsFails(t *testing.T) {
	v := newVolume("shared_structured_volume")
	if v.SetRegion([]byte{1}, api.Vec3i{}, api.Vec3i{1, 1, 1}) {
		t.Fatalf("region accepted without dimensions")
	}
}

func TestVolumeSetRegionRejectsOverflowingIndex(t *testing.T) {
	v := newVolume("shared_structured_volume")
	_ = v.Params().Set("dimensions", Vec3iValue(api.Vec3i{2, 2, 2}))
	if v.SetRegion([]byte{1}, api.Vec3i{math.MaxInt32, 0, 0}, api.Vec3i{1, 1, 1}) {
		t.Fatalf("region past the grid accepted")
	}
}

func TestVolumeRejectsOversizedDimensions(t *testing.T) {
	v := newVolume("shared_structured_volume")
	_ = v.Params().Set("dimensions", Vec3iValue(api.Vec3i{math.MaxInt32, math.MaxInt32, math.MaxInt32}))
	if err := v.Commit(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if v.SetRegion([]byte{1}, api.Vec3i{}, api.Vec3i{1, 1, 1}) {
		t.Fatalf("region accepted without storage")
	}
}

func TestModelFinalizedStateKeepsRemovedMembersAlive(t *testing.T) {
	m := NewModel()
	g := NewTriangleMesh()
	g.RefInc()
	m.AddGeometry(g)
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if g.RefCount() != 3 {
		t.Fatalf("expected handle, member and finalized refs, got %d", g.RefCount())
	}
	if _, err := m.RemoveGeometry(g); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if destroyed, err := g.RefDec(); err != nil || destroyed {
		t.Fatalf("geometry destroyed while finalized: destroyed=%v err=%v", destroyed, err)
	}
	state, _ := m.Finalized()
	if len(state.Geometry) != 1 || state.Geometry[0] != g {
		t.Fatalf("finalized state lost the geometry: %+v", state)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	if g.RefCount() != 0 {
		t.Fatalf("recommit kept a stale reference: %d", g.RefCount())
	}
}

func TestModelDestroyReleasesFinalizedState(t *testing.T) {
	m := NewModel()
	g := NewTriangleMesh()
	g.RefInc()
	m.RefInc()
	m.AddGeometry(g)
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := m.RefDec(); err != nil {
		t.Fatalf("destroy model: %v", err)
	}
	if g.RefCount() != 1 {
		t.Fatalf("finalized refs not dropped: %d", g.RefCount())
	}
}

func TestOversizedAllocationsAreRejected(t *testing.T) {
	if _, err := NewData(1<<60, api.TypeInt, 0); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("data: expected ErrTooLarge, got %v", err)
	}
	if _, err := NewData(math.MaxUint64, api.TypeUChar, 0); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("data count: expected ErrTooLarge, got %v", err)
	}
	huge := api.Vec2i{math.MaxInt32, math.MaxInt32}
	if _, err := NewFrameBuffer(huge, api.FormatRGBA32F, api.ChannelAccum); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("framebuffer: expected ErrTooLarge, got %v", err)
	}
	if _, err := NewTexture2D(huge, api.TextureRGBA8, 0, nil); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("texture: expected ErrTooLarge, got %v", err)
	}
	if _, err := NewTexture2D(api.Vec2i{-1, 4}, api.TextureRGBA8, 0, nil); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("texture: expected ErrInvalidParam, got %v", err)
	}
}

func TestRegistryModules(t *testing.T) {
	r := DefaultRegistry()
	if _, ok := r.Create(KindRenderer, "pathtracer"); ok {
		t.Fatalf("pathtracer available before module load")
	}
	if err := r.LoadModule(ModulePathTracer); err != nil {
		t.Fatalf("load module: %v", err)
	}
	if err := r.LoadModule(ModulePathTracer); err != nil {
		t.Fatalf("reload module: %v", err)
	}
	obj, ok := r.Create(KindRenderer, "pathtracer")
	if !ok {
		t.Fatalf("pathtracer missing after module load")
	}
	pt := obj.(*Renderer)
	if pt.CreateMaterial("Velvet") == nil {
		t.Fatalf("pathtracer should intercept Velvet")
	}
	if pt.CreateMaterial("Glass") != nil {
		t.Fatalf("pathtracer should not intercept Glass")
	}
	if err := r.LoadModule("nope"); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	if got := r.Loaded(); len(got) != 1 || got[0] != ModulePathTracer {
		t.Fatalf("unexpected loaded modules: %v", got)
	}
}

func TestRegistryRejectsDuplicatesAndBadNames(t *testing.T) {
	r := NewRegistry()
	ctor := func() Object { return NewModel() }
	if err := r.Register(KindModel, "model", ctor); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(KindModel, "model", ctor); !errors.Is(err, ErrTypeExists) {
		t.Fatalf("expected ErrTypeExists, got %v", err)
	}
	if err := r.Register(KindModel, "bad name", ctor); !errors.Is(err, ErrInvalidTypeName) {
		t.Fatalf("expected ErrInvalidTypeName, got %v", err)
	}
	if err := r.Register(KindModel, "other", nil); !errors.Is(err, ErrConstructorNil) {
		t.Fatalf("expected ErrConstructorNil, got %v", err)
	}
}

func TestVelvetDefaults(t *testing.T) {
	m := newPathTracer().CreateMaterial("Velvet")
	if err := m.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	s := m.State()
	if s.Reflectance != (api.Vec3f{0.4, 0, 0}) || s.BackScattering != 0.5 {
		t.Fatalf("unexpected velvet defaults: %+v", s)
	}
	if s.HorizonScatteringColor != (api.Vec3f{0.75, 0.1, 0.1}) || s.HorizonScatteringFallOff != 10 {
		t.Fatalf("unexpected velvet horizon defaults: %+v", s)
	}
}

func TestRenderFrameChannels(t *testing.T) {
	fb, err := NewFrameBuffer(api.Vec2i{2, 2}, api.FormatRGBA8, api.ChannelDepth|api.ChannelAccum)
	if err != nil {
		t.Fatalf("new framebuffer: %v", err)
	}
	r := newRenderer("raycast")
	_ = r.Params().Set("bgColor", Vec3fValue(api.Vec3f{1, 0, 0}))

	if err := r.RenderFrame(fb, api.ChannelColor|api.ChannelAccum); err != nil {
		t.Fatalf("render: %v", err)
	}
	if fb.Color()[0] != 255 || fb.Color()[1] != 0 || fb.Color()[3] != 255 {
		t.Fatalf("unexpected color: %v", fb.Color()[:4])
	}
	if fb.AccumID() != 1 || fb.Accum()[0] != 1 {
		t.Fatalf("accumulation not written: id=%d v=%v", fb.AccumID(), fb.Accum()[0])
	}
	if fb.Depth()[0] != 0 {
		t.Fatalf("depth written without being selected: %v", fb.Depth()[0])
	}
	fb.Clear(api.ChannelAccum | api.ChannelDepth)
	if fb.AccumID() != 0 || fb.Accum()[0] != 0 {
		t.Fatalf("accumulation not cleared")
	}
	if !math.IsInf(float64(fb.Depth()[0]), 1) {
		t.Fatalf("depth not reset: %v", fb.Depth()[0])
	}
}

func TestPixelOpChain(t *testing.T) {
	fb, err := NewFrameBuffer(api.Vec2i{1, 1}, api.FormatRGBA32F, api.ChannelAccum)
	if err != nil {
		t.Fatalf("new framebuffer: %v", err)
	}
	op := newPixelOp("exposure")
	_ = op.Params().Set("exposure", FloatValue(2))
	if err := op.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	first := op.CreateInstance(fb, nil)
	second := op.CreateInstance(fb, first)
	fb.SetPixelOp(second)

	r := newRenderer("raycast")
	_ = r.Params().Set("bgColor", Vec4fValue(api.Vec4f{1, 1, 1, 1}))
	if err := r.RenderFrame(fb, api.ChannelAccum); err != nil {
		t.Fatalf("render: %v", err)
	}
	if first.Frames() != 1 || second.Frames() != 1 || second.Prev() != first {
		t.Fatalf("chain not run once each")
	}
	if fb.Accum()[0] != 4 {
		t.Fatalf("expected exposure applied twice, got %v", fb.Accum()[0])
	}
}

func TestNewFrameBufferRejectsBadSize(t *testing.T) {
	if _, err := NewFrameBuffer(api.Vec2i{0, 4}, api.FormatRGBA8, 0); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestCameraCommitIsDeterministic(t *testing.T) {
	c := newCamera("perspective", false)
	_ = c.Params().Set("dir", Vec3fValue(api.Vec3f{0, 0, -2}))
	_ = c.Params().Set("fovy", FloatValue(90))
	if err := c.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	first := c.State()
	if err := c.Commit(); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	if first != c.State() {
		t.Fatalf("camera commit not idempotent")
	}
	if first.Forward != (api.Vec3f{0, 0, -1}) {
		t.Fatalf("forward not normalized: %v", first.Forward)
	}
	if math.Abs(float64(first.Extent)-1) > 1e-6 {
		t.Fatalf("unexpected extent: %v", first.Extent)
	}
}
