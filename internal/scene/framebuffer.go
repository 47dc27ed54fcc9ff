package scene

import (
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
)

// FrameBuffer is this rank's local part of the distributed frame buffer.
// Tile exchange and accumulation across ranks are outside this package.
type FrameBuffer struct {
	Base
	size     api.Vec2i
	format   api.FrameBufferFormat
	channels api.Channel

	color    []byte
	depth    []float32
	accum    []float32
	variance []float32
	accumID  int
	frameID  int

	pixelOp PixelOpInstance
}

// NewFrameBuffer allocates the channels selected by channels. Color storage
// is present for every format except FormatNone.
func NewFrameBuffer(size api.Vec2i, format api.FrameBufferFormat, channels api.Channel) (*FrameBuffer, error) {
	if size[0] <= 0 || size[1] <= 0 {
		return nil, fmt.Errorf("%w: framebuffer size %v", ErrInvalidParam, size)
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: framebuffer format %d", ErrInvalidParam, format)
	}
	// accumulation is the widest channel at four floats per pixel
	if _, err := allocBytes(16, int64(size[0]), int64(size[1])); err != nil {
		return nil, fmt.Errorf("framebuffer size %v: %w", size, err)
	}
	n := size.Product()
	fb := &FrameBuffer{
		Base:     newBase(KindFrameBuffer, "framebuffer"),
		size:     size,
		format:   format,
		channels: channels,
	}
	if bpp := format.BytesPerPixel(); bpp > 0 {
		fb.color = make([]byte, n*int64(bpp))
	}
	if channels.Has(api.ChannelDepth) {
		fb.depth = make([]float32, n)
	}
	if channels.Has(api.ChannelAccum) {
		fb.accum = make([]float32, 4*n)
	}
	if channels.Has(api.ChannelVariance) {
		fb.variance = make([]float32, n)
	}
	fb.onDestroy = func() error {
		fb.pixelOp = nil
		return nil
	}
	return fb, nil
}

func (fb *FrameBuffer) Commit() error {
	fb.markCommitted()
	return nil
}

// Clear resets the selected channels. Clearing accumulation restarts
// progressive refinement.
func (fb *FrameBuffer) Clear(channels api.Channel) {
	if channels.Has(api.ChannelColor) {
		clear(fb.color)
	}
	if channels.Has(api.ChannelDepth) {
		for i := range fb.depth {
			fb.depth[i] = float32(math.Inf(1))
		}
	}
	if channels.Has(api.ChannelAccum) {
		clear(fb.accum)
		fb.accumID = 0
	}
	if channels.Has(api.ChannelVariance) {
		clear(fb.variance)
	}
}

// SetPixelOp replaces the post-processing chain head.
func (fb *FrameBuffer) SetPixelOp(inst PixelOpInstance) {
	fb.pixelOp = inst
}

func (fb *FrameBuffer) PixelOp() PixelOpInstance { return fb.pixelOp }
func (fb *FrameBuffer) Size() api.Vec2i { return fb.size }
func (fb *FrameBuffer) Format() api.FrameBufferFormat { return fb.format }
func (fb *FrameBuffer) Channels() api.Channel { return fb.channels }
func (fb *FrameBuffer) AccumID() int { return fb.accumID }
func (fb *FrameBuffer) FrameID() int { return fb.frameID }
func (fb *FrameBuffer) Color() []byte { return fb.color }
func (fb *FrameBuffer) Depth() []float32 { return fb.depth }
func (fb *FrameBuffer) Accum() []float32 { return fb.accum }

// writeFrame stores one uniformly shaded frame into the channels selected by
// mask that this buffer owns.
func (fb *FrameBuffer) writeFrame(rgba api.Vec4f, depth float32, mask api.Channel) {
	if mask.Has(api.ChannelColor) && fb.color != nil {
		fb.writeColor(rgba)
	}
	if mask.Has(api.ChannelDepth) && fb.depth != nil {
		for i := range fb.depth {
			fb.depth[i] = depth
		}
	}
	if mask.Has(api.ChannelAccum) && fb.accum != nil {
		for i := 0; i < len(fb.accum); i += 4 {
			for c := 0; c < 4; c++ {
				fb.accum[i+c] += rgba[c]
			}
		}
		fb.accumID++
	}
	if mask.Has(api.ChannelVariance) && fb.variance != nil && fb.accumID > 1 {
		for i := range fb.variance {
			fb.variance[i] = 0
		}
	}
	fb.frameID++
	if fb.pixelOp != nil {
		fb.pixelOp.PostFrame(fb)
	}
}

func (fb *FrameBuffer) writeColor(rgba api.Vec4f) {
	switch fb.format {
	case api.FormatRGBA32F:
		for i := 0; i < len(fb.color); i += 16 {
			for c := 0; c < 4; c++ {
				bits := math.Float32bits(rgba[c])
				fb.color[i+4*c] = byte(bits >> 24)
				fb.color[i+4*c+1] = byte(bits >> 16)
				fb.color[i+4*c+2] = byte(bits >> 8)
				fb.color[i+4*c+3] = byte(bits)
			}
		}
	default:
		var px [4]byte
		for c := 0; c < 4; c++ {
			px[c] = byte(math.Round(float64(clamp01(rgba[c]) * 255)))
		}
		for i := 0; i < len(fb.color); i += 4 {
			copy(fb.color[i:i+4], px[:])
		}
	}
}

func (fb *FrameBuffer) scaleAccum(s float32) {
	if s == 1 {
		return
	}
	for i := range fb.accum {
		fb.accum[i] *= s
	}
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
