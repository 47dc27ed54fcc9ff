package scene

import (
	"encoding/binary"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

func float3Bytes(vs ...api.Vec3f) []byte {
	out := make([]byte, 12*len(vs))
	for i, v := range vs {
		for j := 0; j < 3; j++ {
			binary.BigEndian.PutUint32(out[12*i+4*j:], math.Float32bits(v[j]))
		}
	}
	return out
}

func int3Bytes(vs ...api.Vec3i) []byte {
	out := make([]byte, 12*len(vs))
	for i, v := range vs {
		for j := 0; j < 3; j++ {
			binary.BigEndian.PutUint32(out[12*i+4*j:], uint32(v[j]))
		}
	}
	return out
}
