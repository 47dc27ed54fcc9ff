package api

import "fmt"

// FrameBufferFormat is the color storage format of a frame buffer.
type FrameBufferFormat int32

const (
	FormatNone FrameBufferFormat = iota
	FormatRGBA8
	FormatSRGBA
	FormatRGBA32F
)

func (f FrameBufferFormat) Valid() bool {
	return f >= FormatNone && f <= FormatRGBA32F
}

// BytesPerPixel returns the color storage size of one pixel.
func (f FrameBufferFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatSRGBA:
		return 4
	case FormatRGBA32F:
		return 16
	default:
		return 0
	}
}

func (f FrameBufferFormat) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatRGBA8:
		return "rgba8"
	case FormatSRGBA:
		return "srgba"
	case FormatRGBA32F:
		return "rgba32f"
	default:
		return fmt.Sprintf("format(%d)", int32(f))
	}
}

// Channel is a bitmask selecting frame buffer channels.
type Channel uint32

const (
	ChannelColor    Channel = 1 << 0
	ChannelDepth    Channel = 1 << 1
	ChannelAccum    Channel = 1 << 2
	ChannelVariance Channel = 1 << 3
)

func (c Channel) Has(flag Channel) bool {
	return c&flag != 0
}
