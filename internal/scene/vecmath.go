package scene

import (
	"math"

	"github.com/danmuck/renderd/internal/api"
)

func dot(a, b api.Vec3f) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b api.Vec3f) api.Vec3f {
	return api.Vec3f{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v api.Vec3f) api.Vec3f {
	l := float32(math.Sqrt(float64(dot(v, v))))
	if l == 0 {
		return v
	}
	return api.Vec3f{v[0] / l, v[1] / l, v[2] / l}
}
