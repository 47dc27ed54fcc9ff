package scene

import "github.com/danmuck/renderd/internal/api"

// MaterialState is the derived shading description after commit.
type MaterialState struct {
	Diffuse   api.Vec3f
	Specular  api.Vec3f
	Shininess float32
	Opacity   float32

	// Velvet lobe, set only for velvet materials.
	Reflectance              api.Vec3f
	BackScattering           float32
	HorizonScatteringColor   api.Vec3f
	HorizonScatteringFallOff float32
}

type materialDeriver func(p *Params) MaterialState

// Material is a surface shading description.
type Material struct {
	Base
	derive materialDeriver
	state  MaterialState
}

func newMaterial(typeName string, derive materialDeriver) *Material {
	return &Material{Base: newBase(KindMaterial, typeName), derive: derive}
}

func (m *Material) Commit() error {
	m.state = m.derive(m.Params())
	m.markCommitted()
	return nil
}

func (m *Material) State() MaterialState {
	return m.state
}

func deriveOBJMaterial(p *Params) MaterialState {
	return MaterialState{
		Diffuse:   p.Vec3f("Kd", api.Vec3f{0.8, 0.8, 0.8}),
		Specular:  p.Vec3f("Ks", api.Vec3f{0, 0, 0}),
		Shininess: p.Float("Ns", 10),
		Opacity:   p.Float("d", 1),
	}
}

func deriveMetal(p *Params) MaterialState {
	return MaterialState{
		Specular:  p.Vec3f("reflectance", api.Vec3f{0.9, 0.9, 0.9}),
		Shininess: 1 / max(p.Float("roughness", 0.1), 1e-4),
		Opacity:   1,
	}
}

func deriveVelvet(p *Params) MaterialState {
	return MaterialState{
		Opacity:                  1,
		Reflectance:              p.Vec3f("reflectance", api.Vec3f{0.4, 0, 0}),
		BackScattering:           p.Float("backScattering", 0.5),
		HorizonScatteringColor:   p.Vec3f("horizonScatteringColor", api.Vec3f{0.75, 0.1, 0.1}),
		HorizonScatteringFallOff: p.Float("horizonScatteringFallOff", 10),
	}
}
