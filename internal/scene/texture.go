package scene

import (
	"fmt"

	"github.com/danmuck/renderd/internal/api"
)

type Texture2D struct {
	Base
	size   api.Vec2i
	format api.TextureFormat
	flags  int32
	texels []byte
}

// NewTexture2D copies texels into a new texture. The payload size must match
// size and format exactly.
func NewTexture2D(size api.Vec2i, format api.TextureFormat, flags int32, texels []byte) (*Texture2D, error) {
	bpt := format.BytesPerTexel()
	if bpt == 0 {
		return nil, fmt.Errorf("%w: texture format %d", ErrInvalidParam, format)
	}
	want, err := allocBytes(int64(bpt), int64(size[0]), int64(size[1]))
	if err != nil {
		return nil, fmt.Errorf("texture size %v: %w", size, err)
	}
	if int64(len(texels)) != want {
		return nil, fmt.Errorf("%w: texture payload %d bytes, want %d", ErrInvalidParam, len(texels), want)
	}
	t := &Texture2D{
		Base:   newBase(KindTexture, "texture2d"),
		size:   size,
		format: format,
		flags:  flags,
		texels: make([]byte, len(texels)),
	}
	copy(t.texels, texels)
	return t, nil
}

func (t *Texture2D) Commit() error {
	t.markCommitted()
	return nil
}

func (t *Texture2D) Size() api.Vec2i { return t.size }
func (t *Texture2D) Format() api.TextureFormat { return t.format }
func (t *Texture2D) Texels() []byte { return t.texels }
