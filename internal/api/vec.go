package api

type Vec2f [2]float32
type Vec3f [3]float32
type Vec4f [4]float32
type Vec2i [2]int32
type Vec3i [3]int32

// Product returns x*y, or 0 when either component is negative.
func (v Vec2i) Product() int64 {
	if v[0] < 0 || v[1] < 0 {
		return 0
	}
	return int64(v[0]) * int64(v[1])
}

// Product returns x*y*z, or 0 when any component is negative.
func (v Vec3i) Product() int64 {
	if v[0] < 0 || v[1] < 0 || v[2] < 0 {
		return 0
	}
	return int64(v[0]) * int64(v[1]) * int64(v[2])
}
