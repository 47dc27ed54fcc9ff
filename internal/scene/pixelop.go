package scene

// PixelOpInstance post-processes one frame buffer after each rendered frame.
type PixelOpInstance interface {
	PostFrame(fb *FrameBuffer)
	Frames() int
	Prev() PixelOpInstance
}

// PixelOp is a factory for per-frame-buffer post-processing instances.
type PixelOp struct {
	Base
	exposure float32
}

func newPixelOp(typeName string) *PixelOp {
	return &PixelOp{Base: newBase(KindPixelOp, typeName), exposure: 1}
}

func (p *PixelOp) Commit() error {
	p.exposure = p.Params().Float("exposure", 1)
	p.markCommitted()
	return nil
}

// CreateInstance chains a new instance in front of prev.
func (p *PixelOp) CreateInstance(fb *FrameBuffer, prev PixelOpInstance) PixelOpInstance {
	if fb == nil {
		return nil
	}
	return &exposureInstance{exposure: p.exposure, prev: prev}
}

type exposureInstance struct {
	exposure float32
	prev     PixelOpInstance
	frames   int
}

func (e *exposureInstance) PostFrame(fb *FrameBuffer) {
	if e.prev != nil {
		e.prev.PostFrame(fb)
	}
	fb.scaleAccum(e.exposure)
	e.frames++
}

func (e *exposureInstance) Frames() int { return e.frames }
func (e *exposureInstance) Prev() PixelOpInstance { return e.prev }
