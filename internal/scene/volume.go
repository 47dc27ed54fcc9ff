package scene

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// VoxelType names the voxel storage of a structured volume.
type VoxelType string

const (
	VoxelUChar VoxelType = "uchar"
	VoxelFloat VoxelType = "float"
)

func (t VoxelType) size() int {
	switch t {
	case VoxelUChar:
		return 1
	case VoxelFloat:
		return 4
	default:
		return 0
	}
}

// VolumeState is the derived sampling description after commit.
type VolumeState struct {
	Dimensions       api.Vec3i
	Voxel            VoxelType
	Bounds           Box
	TransferFunction *TransferFunction
}

// Volume is a structured grid of voxels. Storage is allocated from the
// dimensions and voxelType parameters on first region update or commit.
type Volume struct {
	Base
	dims   api.Vec3i
	voxel  VoxelType
	voxels []byte
	state  VolumeState
}

func newVolume(typeName string) *Volume {
	return &Volume{Base: newBase(KindVolume, typeName)}
}

func (v *Volume) ensureStorage() error {
	p := v.Params()
	dims := p.Vec3i("dimensions", api.Vec3i{})
	voxel := VoxelType(p.String("voxelType", string(VoxelUChar)))
	if voxel.size() == 0 {
		return fmt.Errorf("%w: voxelType %q", ErrInvalidParam, voxel)
	}
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return fmt.Errorf("%w: dimensions %v", ErrInvalidParam, dims)
	}
	if dims == v.dims && voxel == v.voxel && v.voxels != nil {
		return nil
	}
	n, err := allocBytes(int64(voxel.size()), int64(dims[0]), int64(dims[1]), int64(dims[2]))
	if err != nil {
		return fmt.Errorf("volume dimensions %v: %w", dims, err)
	}
	v.dims = dims
	v.voxel = voxel
	v.voxels = make([]byte, n)
	return nil
}

func (v *Volume) Commit() error {
	if err := v.ensureStorage(); err != nil {
		return fmt.Errorf("volume %q commit: %w", v.TypeName(), err)
	}
	tf, _ := v.Params().Object("transferFunction").(*TransferFunction)
	v.state = VolumeState{
		Dimensions:       v.dims,
		Voxel:            v.voxel,
		Bounds:           Box{Upper: api.Vec3f{float32(v.dims[0] - 1), float32(v.dims[1] - 1), float32(v.dims[2] - 1)}},
		TransferFunction: tf,
	}
	v.markCommitted()
	return nil
}

func (v *Volume) State() VolumeState {
	return v.state
}

// SetRegion copies count voxels starting at index from src. src is only
// borrowed for the duration of the call. It reports false when the region
// cannot be applied on this rank.
func (v *Volume) SetRegion(src []byte, index, count api.Vec3i) bool {
	if err := v.ensureStorage(); err != nil {
		return false
	}
	for i := 0; i < 3; i++ {
		if index[i] < 0 || count[i] < 0 || int64(index[i])+int64(count[i]) > int64(v.dims[i]) {
			return false
		}
	}
	vs := int64(v.voxel.size())
	if int64(len(src)) != count.Product()*vs {
		return false
	}
	row := int64(count[0]) * vs
	if row == 0 {
		return true
	}
	nx, ny := int64(v.dims[0]), int64(v.dims[1])
	off := int64(0)
	for z := int64(0); z < int64(count[2]); z++ {
		for y := int64(0); y < int64(count[1]); y++ {
			dz := int64(index[2]) + z
			dy := int64(index[1]) + y
			dst := ((dz*ny+dy)*nx + int64(index[0])) * vs
			copy(v.voxels[dst:dst+row], src[off:off+row])
			off += row
		}
	}
	return true
}

// Sample returns the nearest voxel value at a world coordinate, or 0 when
// outside the grid.
func (v *Volume) Sample(p api.Vec3f) float32 {
	if v.voxels == nil {
		return 0
	}
	var idx [3]int64
	for i := 0; i < 3; i++ {
		c := int64(math.Round(float64(p[i])))
		if c < 0 || c >= int64(v.dims[i]) {
			return 0
		}
		idx[i] = c
	}
	nx, ny := int64(v.dims[0]), int64(v.dims[1])
	at := (idx[2]*ny+idx[1])*nx + idx[0]
	switch v.voxel {
	case VoxelFloat:
		return math.Float32frombits(binary.BigEndian.Uint32(v.voxels[at*4:]))
	default:
		return float32(v.voxels[at])
	}
}

// ComputeSamples samples every coordinate.
func (v *Volume) ComputeSamples(coords []api.Vec3f) []float32 {
	out := make([]float32, len(coords))
	for i, c := range coords {
		out[i] = v.Sample(c)
	}
	return out
}
