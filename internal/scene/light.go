package scene

import "github.com/danmuck/renderd/internal/api"

// LightState is the derived emission description after commit.
type LightState struct {
	Radiance  api.Vec3f
	Position  api.Vec3f
	Direction api.Vec3f
	Edges     [2]api.Vec3f
}

type lightDeriver func(p *Params) LightState

// Light is an emitter.
type Light struct {
	Base
	derive lightDeriver
	state  LightState
}

func newLight(typeName string, derive lightDeriver) *Light {
	return &Light{Base: newBase(KindLight, typeName), derive: derive}
}

func (l *Light) Commit() error {
	l.state = l.derive(l.Params())
	l.markCommitted()
	return nil
}

func (l *Light) State() LightState {
	return l.state
}

func radiance(p *Params) api.Vec3f {
	c := p.Vec3f("color", api.Vec3f{1, 1, 1})
	i := p.Float("intensity", 1)
	return api.Vec3f{c[0] * i, c[1] * i, c[2] * i}
}

func derivePointLight(p *Params) LightState {
	return LightState{
		Radiance: radiance(p),
		Position: p.Vec3f("position", api.Vec3f{0, 0, 0}),
	}
}

func deriveDirectionalLight(p *Params) LightState {
	return LightState{
		Radiance:  radiance(p),
		Direction: normalize(p.Vec3f("direction", api.Vec3f{0, 0, 1})),
	}
}

func deriveAmbientLight(p *Params) LightState {
	return LightState{Radiance: radiance(p)}
}

func deriveQuadLight(p *Params) LightState {
	e1 := p.Vec3f("edge1", api.Vec3f{1, 0, 0})
	e2 := p.Vec3f("edge2", api.Vec3f{0, 1, 0})
	return LightState{
		Radiance:  radiance(p),
		Position:  p.Vec3f("position", api.Vec3f{0, 0, 0}),
		Direction: normalize(cross(e1, e2)),
		Edges:     [2]api.Vec3f{e1, e2},
	}
}
