package scene

import (
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// CameraState is the derived view basis after commit.
type CameraState struct {
	Position api.Vec3f
	Forward  api.Vec3f
	Right    api.Vec3f
	Up       api.Vec3f
	// Extent is the half height of the image plane at unit distance for
	// perspective cameras, and the half height in world units for
	// orthographic ones.
	Extent float32
	Aspect float32
}

type Camera struct {
	Base
	orthographic bool
	state        CameraState
}

func newCamera(typeName string, orthographic bool) *Camera {
	return &Camera{Base: newBase(KindCamera, typeName), orthographic: orthographic}
}

func (c *Camera) Commit() error {
	p := c.Params()
	dir := normalize(p.Vec3f("dir", api.Vec3f{0, 0, 1}))
	up := p.Vec3f("up", api.Vec3f{0, 1, 0})
	right := normalize(cross(dir, up))
	state := CameraState{
		Position: p.Vec3f("pos", api.Vec3f{0, 0, 0}),
		Forward:  dir,
		Right:    right,
		Up:       cross(right, dir),
		Aspect:   p.Float("aspect", 1),
	}
	if c.orthographic {
		state.Extent = p.Float("height", 1) / 2
	} else {
		fovy := float64(p.Float("fovy", 60))
		state.Extent = float32(math.Tan(fovy * math.Pi / 360))
	}
	c.state = state
	c.markCommitted()
	return nil
}

func (c *Camera) State() CameraState {
	return c.state
}
