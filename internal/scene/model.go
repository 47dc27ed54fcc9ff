package scene

// ModelState is the finalized form of a model, available after commit. It
// holds its own counted references, so members removed after a commit stay
// alive until the next commit or the model's destruction.
type ModelState struct {
	Geometry []*Geometry
	Volumes  []*Volume
	Bounds   Box
}

// Model aggregates geometries and volumes. Membership holds a counted
// reference; removal matches by identity.
type Model struct {
	Base
	geometry  []*Geometry
	volumes   []*Volume
	finalized *ModelState
}

func NewModel() *Model {
	m := &Model{Base: newBase(KindModel, "model")}
	m.onDestroy = m.releaseMembers
	return m
}

func (m *Model) AddGeometry(g *Geometry) {
	g.RefInc()
	m.geometry = append(m.geometry, g)
}

// RemoveGeometry drops the first occurrence of g. It reports whether g was
// a member.
func (m *Model) RemoveGeometry(g *Geometry) (bool, error) {
	for i, member := range m.geometry {
		if member != g {
			continue
		}
		m.geometry = append(m.geometry[:i], m.geometry[i+1:]...)
		return true, releaseRef(g)
	}
	return false, nil
}

func (m *Model) AddVolume(v *Volume) {
	v.RefInc()
	m.volumes = append(m.volumes, v)
}

func (m *Model) RemoveVolume(v *Volume) (bool, error) {
	for i, member := range m.volumes {
		if member != v {
			continue
		}
		m.volumes = append(m.volumes[:i], m.volumes[i+1:]...)
		return true, releaseRef(v)
	}
	return false, nil
}

// Geometry returns the live membership list, finalized or not.
func (m *Model) Geometry() []*Geometry {
	return m.geometry
}

func (m *Model) Volumes() []*Volume {
	return m.volumes
}

// Commit finalizes the model from its current membership.
func (m *Model) Commit() error {
	state := &ModelState{
		Geometry: append([]*Geometry(nil), m.geometry...),
		Volumes:  append([]*Volume(nil), m.volumes...),
		Bounds:   EmptyBox(),
	}
	for _, g := range state.Geometry {
		if g.committed() {
			state.Bounds = state.Bounds.Extend(g.State().Bounds)
		}
	}
	for _, v := range state.Volumes {
		if v.committed() {
			state.Bounds = state.Bounds.Extend(v.State().Bounds)
		}
	}
	for _, g := range state.Geometry {
		g.RefInc()
	}
	for _, v := range state.Volumes {
		v.RefInc()
	}
	err := m.releaseFinalized()
	m.finalized = state
	m.markCommitted()
	return err
}

// Finalized returns the derived form, or false before the first commit.
func (m *Model) Finalized() (ModelState, bool) {
	if m.finalized == nil {
		return ModelState{}, false
	}
	return *m.finalized, true
}

func (m *Model) releaseMembers() error {
	var firstErr error
	for _, g := range m.geometry {
		if err := releaseRef(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, v := range m.volumes {
		if err := releaseRef(v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.releaseFinalized(); err != nil && firstErr == nil {
		firstErr = err
	}
	m.geometry = nil
	m.volumes = nil
	return firstErr
}

// releaseFinalized drops the references held by the last committed state.
func (m *Model) releaseFinalized() error {
	if m.finalized == nil {
		return nil
	}
	var firstErr error
	for _, g := range m.finalized.Geometry {
		if err := releaseRef(g); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, v := range m.finalized.Volumes {
		if err := releaseRef(v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.finalized = nil
	return firstErr
}
