package scene

import (
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// Renderer runs one frame of compute into a frame buffer. Shading kernels
// are not part of this package; the built-in renderers write a uniform
// frame derived from parameters so results are deterministic per rank.
type Renderer struct {
	Base
	materials map[string]func() *Material
	lights    map[string]func() *Light
	frames    int
}

func newRenderer(typeName string) *Renderer {
	return &Renderer{
		Base:      newBase(KindRenderer, typeName),
		materials: map[string]func() *Material{},
		lights:    map[string]func() *Light{},
	}
}

func (r *Renderer) Commit() error {
	r.markCommitted()
	return nil
}

// CreateMaterial returns a renderer-specific material, or nil when the
// renderer does not intercept typeName.
func (r *Renderer) CreateMaterial(typeName string) *Material {
	if ctor, ok := r.materials[typeName]; ok {
		return ctor()
	}
	return nil
}

// CreateLight returns a renderer-specific light, or nil.
func (r *Renderer) CreateLight(typeName string) *Light {
	if ctor, ok := r.lights[typeName]; ok {
		return ctor()
	}
	return nil
}

func (r *Renderer) Frames() int {
	return r.frames
}

// RenderFrame writes one frame into the channels selected by mask.
func (r *Renderer) RenderFrame(fb *FrameBuffer, mask api.Channel) error {
	if fb == nil {
		return fmt.Errorf("%w: renderer %q has no frame buffer", ErrInvalidParam, r.TypeName())
	}
	p := r.Params()
	bg := p.Vec4f("bgColor", api.Vec4f{0, 0, 0, 0})
	if c, ok := p.Find("bgColor"); ok && c.Value.Type == api.TypeFloat3 {
		bg = api.Vec4f{c.Value.Floats[0], c.Value.Floats[1], c.Value.Floats[2], 1}
	}
	rgba := bg
	depth := float32(math.Inf(1))
	if model, ok := p.Object("model").(*Model); ok {
		if state, ok := model.Finalized(); ok && len(state.Geometry) > 0 {
			rgba = averageDiffuse(state.Geometry)
			depth = 1
		}
	}
	fb.writeFrame(rgba, depth, mask)
	r.frames++
	return nil
}

func averageDiffuse(geoms []*Geometry) api.Vec4f {
	var sum api.Vec3f
	n := 0
	for _, g := range geoms {
		m := g.Material()
		if m == nil {
			continue
		}
		d := m.State().Diffuse
		sum = api.Vec3f{sum[0] + d[0], sum[1] + d[1], sum[2] + d[2]}
		n++
	}
	if n == 0 {
		return api.Vec4f{0.5, 0.5, 0.5, 1}
	}
	f := float32(n)
	return api.Vec4f{sum[0] / f, sum[1] / f, sum[2] / f, 1}
}
