package scene

import (
	"fmt"

	"github.com/danmuck/renderd/internal/api"
)

// GeometryState is the derived form of a geometry after commit.
type GeometryState struct {
	Primitives int
	Bounds     Box
}

type geometryDeriver func(p *Params) (GeometryState, error)

// Geometry is a renderable surface. Its shape is selected by type name.
type Geometry struct {
	Base
	material *Material
	derive   geometryDeriver
	state    GeometryState
}

func newGeometry(typeName string, derive geometryDeriver) *Geometry {
	g := &Geometry{Base: newBase(KindGeometry, typeName), derive: derive}
	g.onDestroy = g.dropMaterial
	return g
}

// NewTriangleMesh returns a triangle mesh geometry.
func NewTriangleMesh() *Geometry {
	return newGeometry("triangles", deriveTriangles)
}

func (g *Geometry) Commit() error {
	state, err := g.derive(g.Params())
	if err != nil {
		return fmt.Errorf("geometry %q commit: %w", g.TypeName(), err)
	}
	g.state = state
	g.markCommitted()
	return nil
}

// SetMaterial replaces the geometry's material reference.
func (g *Geometry) SetMaterial(m *Material) error {
	if m != nil {
		m.RefInc()
	}
	old := g.material
	g.material = m
	if old != nil {
		return releaseRef(old)
	}
	return nil
}

func (g *Geometry) Material() *Material {
	return g.material
}

func (g *Geometry) State() GeometryState {
	return g.state
}

func (g *Geometry) dropMaterial() error {
	old := g.material
	g.material = nil
	if old == nil {
		return nil
	}
	return releaseRef(old)
}

func deriveTriangles(p *Params) (GeometryState, error) {
	state := GeometryState{Bounds: EmptyBox()}
	vertex := p.Data("vertex")
	if vertex == nil {
		vertex = p.Data("position")
	}
	if vertex == nil {
		return state, nil
	}
	verts := vertex.Vec3fs()
	if verts == nil {
		return state, fmt.Errorf("%w: vertex array must be float3", ErrInvalidParam)
	}
	for _, v := range verts {
		state.Bounds = state.Bounds.ExtendPoint(v)
	}
	if index := p.Data("index"); index != nil {
		tris := index.Vec3is()
		if tris == nil {
			return state, fmt.Errorf("%w: index array must be int3", ErrInvalidParam)
		}
		for i, tri := range tris {
			for _, idx := range tri {
				if idx < 0 || int(idx) >= len(verts) {
					return state, fmt.Errorf("%w: triangle %d index %d out of range", ErrInvalidParam, i, idx)
				}
			}
		}
		state.Primitives = len(tris)
	} else {
		state.Primitives = len(verts) / 3
	}
	return state, nil
}

func deriveSpheres(p *Params) (GeometryState, error) {
	state := GeometryState{Bounds: EmptyBox()}
	centers := p.Data("spheres")
	if centers == nil {
		return state, nil
	}
	points := centers.Vec3fs()
	if points == nil {
		return state, fmt.Errorf("%w: spheres array must be float3", ErrInvalidParam)
	}
	r := p.Float("radius", 0.01)
	for _, c := range points {
		state.Bounds = state.Bounds.ExtendPoint(api.Vec3f{c[0] - r, c[1] - r, c[2] - r})
		state.Bounds = state.Bounds.ExtendPoint(api.Vec3f{c[0] + r, c[1] + r, c[2] + r})
	}
	state.Primitives = len(points)
	return state, nil
}
