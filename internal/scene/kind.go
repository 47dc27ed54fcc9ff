package scene

import "fmt"

// Kind is a creatable object category.
type Kind uint8

const (
	KindRenderer Kind = iota + 1
	KindCamera
	KindVolume
	KindGeometry
	KindMaterial
	KindLight
	KindModel
	KindFrameBuffer
	KindData
	KindTexture
	KindTransferFunction
	KindPixelOp
)

var kindNames = map[Kind]string{
	KindRenderer:         "renderer",
	KindCamera:           "camera",
	KindVolume:           "volume",
	KindGeometry:         "geometry",
	KindMaterial:         "material",
	KindLight:            "light",
	KindModel:            "model",
	KindFrameBuffer:      "framebuffer",
	KindData:             "data",
	KindTexture:          "texture",
	KindTransferFunction: "transferfunction",
	KindPixelOp:          "pixelop",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}
