package worker

import (
	"context"
	"fmt"
	"math"

	"github.com/danmuck/renderd/internal/api"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

// bindNew hands a freshly created object to the handle table.
func (in *Interpreter) bindNew(h api.Handle, obj scene.Object) error {
	if err := in.handles.Bind(h, obj); err != nil {
		discard(obj)
		return err
	}
	if in.isRoot() {
		logs.Debugf("worker.Interpreter.create rank=0 handle=%s kind=%s type=%q", h, obj.Kind(), obj.TypeName())
	}
	return nil
}

// discard destroys an object nothing has bound yet, releasing whatever it
// already references.
func discard(obj scene.Object) {
	obj.RefInc()
	_, _ = obj.RefDec()
}

func (in *Interpreter) create(kind scene.Kind, typeName string) (scene.Object, error) {
	obj, ok := in.registry.Create(kind, typeName)
	if !ok {
		return nil, &UnknownTypeError{Kind: kind, Type: typeName}
	}
	return obj, nil
}

// constructNamed serves the handle + type name construction opcodes.
func (in *Interpreter) constructNamed(kind scene.Kind) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	typeName, err := in.in.String()
	if err != nil {
		return err
	}
	obj, err := in.create(kind, typeName)
	if err != nil {
		return err
	}
	return in.bindNew(h, obj)
}

func handleNewGeometry(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindGeometry)
}

func handleNewCamera(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindCamera)
}

func handleNewVolume(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindVolume)
}

func handleNewTransferFunction(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindTransferFunction)
}

func handleNewRenderer(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindRenderer)
}

func handleNewPixelOp(_ context.Context, in *Interpreter) error {
	return in.constructNamed(scene.KindPixelOp)
}

func handleNewModel(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	return in.bindNew(h, scene.NewModel())
}

func handleNewTriangleMesh(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	return in.bindNew(h, scene.NewTriangleMesh())
}

// handleNewData reads a typed array. Object elements arrive as handles and
// are resolved to local objects here, once.
func handleNewData(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	count, err := in.in.Size()
	if err != nil {
		return err
	}
	rawType, err := in.in.Int32()
	if err != nil {
		return err
	}
	flags, err := in.in.Int32()
	if err != nil {
		return err
	}
	hasInit, err := in.in.Size()
	if err != nil {
		return err
	}

	elemType := api.DataType(rawType)
	elemSize := uint64(elemType.SizeOf())
	if elemSize == 0 {
		return &ProtocolError{
			Opcode: protocol.CmdNewData,
			Err:    fmt.Errorf("%w: element type %d has no wire size", protocol.ErrInvalidLength, rawType),
		}
	}
	if count > math.MaxUint64/elemSize {
		return &ProtocolError{
			Opcode: protocol.CmdNewData,
			Err:    fmt.Errorf("%w: %d elements of %s", protocol.ErrInvalidLength, count, elemType),
		}
	}

	var payload []byte
	if hasInit != 0 {
		if payload, err = in.in.Blob(count * elemSize); err != nil {
			return err
		}
	}

	data, err := scene.NewData(count, elemType, flags)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	if payload != nil {
		if elemType == api.TypeObject {
			refs, err := protocol.DecodeHandles(payload)
			if err != nil {
				return err
			}
			if err := data.LoadObjects(refs, in.handles.Lookup); err != nil {
				return err
			}
		} else if err := data.Load(payload); err != nil {
			return err
		}
	}
	return in.bindNew(h, data)
}

func handleNewTexture2D(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	size, err := in.in.Vec2i()
	if err != nil {
		return err
	}
	format, err := in.in.Int32()
	if err != nil {
		return err
	}
	flags, err := in.in.Int32()
	if err != nil {
		return err
	}
	n, err := in.in.Size()
	if err != nil {
		return err
	}
	texels, err := in.in.Blob(n)
	if err != nil {
		return err
	}
	tex, err := scene.NewTexture2D(size, api.TextureFormat(format), flags, texels)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	return in.bindNew(h, tex)
}

func handleFrameBufferCreate(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	size, err := in.in.Vec2i()
	if err != nil {
		return err
	}
	format, err := in.in.Int32()
	if err != nil {
		return err
	}
	channels, err := in.in.Int32()
	if err != nil {
		return err
	}
	fb, err := scene.NewFrameBuffer(size, api.FrameBufferFormat(format), api.Channel(channels))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	return in.bindNew(h, fb)
}
