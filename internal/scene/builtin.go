package scene

// ModulePathTracer registers the path tracer renderer and its material and
// light overrides.
const ModulePathTracer = "pathtracer"

// DefaultRegistry returns a registry holding the built-in types and the
// built-in module table. Modules are not loaded.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	mustRegisterAll(r, builtinTypes())
	if err := r.AddModule(ModulePathTracer, loadPathTracer); err != nil {
		panic(err)
	}
	return r
}

type typeEntry struct {
	kind Kind
	name string
	ctor Constructor
}

func builtinTypes() []typeEntry {
	return []typeEntry{
		{KindRenderer, "raycast", func() Object { return newRenderer("raycast") }},
		{KindRenderer, "scivis", func() Object { return newRenderer("scivis") }},

		{KindCamera, "perspective", func() Object { return newCamera("perspective", false) }},
		{KindCamera, "orthographic", func() Object { return newCamera("orthographic", true) }},

		{KindVolume, "shared_structured_volume", func() Object { return newVolume("shared_structured_volume") }},
		{KindVolume, "block_bricked_volume", func() Object { return newVolume("block_bricked_volume") }},

		{KindGeometry, "triangles", func() Object { return NewTriangleMesh() }},
		{KindGeometry, "trianglemesh", func() Object { return NewTriangleMesh() }},
		{KindGeometry, "spheres", func() Object { return newGeometry("spheres", deriveSpheres) }},

		{KindMaterial, "OBJMaterial", func() Object { return newMaterial("OBJMaterial", deriveOBJMaterial) }},

		{KindLight, "point", func() Object { return newLight("point", derivePointLight) }},
		{KindLight, "directional", func() Object { return newLight("directional", deriveDirectionalLight) }},
		{KindLight, "ambient", func() Object { return newLight("ambient", deriveAmbientLight) }},

		{KindTransferFunction, "piecewise_linear", func() Object { return newTransferFunction("piecewise_linear") }},

		{KindPixelOp, "exposure", func() Object { return newPixelOp("exposure") }},
	}
}

func mustRegisterAll(r *Registry, entries []typeEntry) {
	for _, e := range entries {
		if err := r.Register(e.kind, e.name, e.ctor); err != nil {
			panic(err)
		}
	}
}

func loadPathTracer(r *Registry) error {
	return r.Register(KindRenderer, "pathtracer", func() Object { return newPathTracer() })
}

func newPathTracer() *Renderer {
	pt := newRenderer("pathtracer")
	pt.materials["Velvet"] = func() *Material { return newMaterial("Velvet", deriveVelvet) }
	pt.materials["Metal"] = func() *Material { return newMaterial("Metal", deriveMetal) }
	pt.materials["OBJMaterial"] = func() *Material { return newMaterial("OBJMaterial", deriveOBJMaterial) }
	pt.lights["quad"] = func() *Light { return newLight("quad", deriveQuadLight) }
	return pt
}
