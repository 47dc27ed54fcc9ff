package scene

import (
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// Box is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox for accumulation.
type Box struct {
	Lower api.Vec3f
	Upper api.Vec3f
}

func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Lower: api.Vec3f{inf, inf, inf},
		Upper: api.Vec3f{-inf, -inf, -inf},
	}
}

func (b Box) Empty() bool {
	return b.Lower[0] > b.Upper[0] || b.Lower[1] > b.Upper[1] || b.Lower[2] > b.Upper[2]
}

func (b Box) ExtendPoint(p api.Vec3f) Box {
	for i := 0; i < 3; i++ {
		b.Lower[i] = min(b.Lower[i], p[i])
		b.Upper[i] = max(b.Upper[i], p[i])
	}
	return b
}

func (b Box) Extend(o Box) Box {
	if o.Empty() {
		return b
	}
	return b.ExtendPoint(o.Lower).ExtendPoint(o.Upper)
}
