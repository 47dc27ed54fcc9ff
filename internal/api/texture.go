package api

// TextureFormat is the texel layout of a 2D texture.
type TextureFormat int32

const (
	TextureRGBA8 TextureFormat = iota
	TextureSRGBA
	TextureRGBA32F
	TextureRGB8
	TextureSRGB
	TextureRGB32F
	TextureR8
)

// BytesPerTexel returns 0 for unknown formats.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case TextureRGBA8, TextureSRGBA:
		return 4
	case TextureRGBA32F:
		return 16
	case TextureRGB8, TextureSRGB:
		return 3
	case TextureRGB32F:
		return 12
	case TextureR8:
		return 1
	default:
		return 0
	}
}

// ApiMode selects how the master drives the worker group.
type ApiMode int32

const (
	ModeMastered ApiMode = iota
	ModeCollaborative
)

func (m ApiMode) String() string {
	switch m {
	case ModeMastered:
		return "mastered"
	case ModeCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}
