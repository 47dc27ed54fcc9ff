package scene

import "github.com/danmuck/renderd/internal/api"

// TransferFunctionState is the derived lookup table after commit.
type TransferFunctionState struct {
	Colors     []api.Vec3f
	Opacities  []float32
	ValueRange api.Vec2f
}

type TransferFunction struct {
	Base
	state TransferFunctionState
}

func newTransferFunction(typeName string) *TransferFunction {
	return &TransferFunction{Base: newBase(KindTransferFunction, typeName)}
}

func (t *TransferFunction) Commit() error {
	p := t.Params()
	state := TransferFunctionState{ValueRange: p.Vec2f("valueRange", api.Vec2f{0, 1})}
	if colors := p.Data("colors"); colors != nil {
		state.Colors = colors.Vec3fs()
	}
	if opacities := p.Data("opacities"); opacities != nil {
		state.Opacities = opacities.Floats()
	}
	t.state = state
	t.markCommitted()
	return nil
}

func (t *TransferFunction) State() TransferFunctionState {
	return t.state
}
