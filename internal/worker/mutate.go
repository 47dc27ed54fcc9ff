package worker

import (
	"context"

	"github.com/danmuck/renderd/internal/api"
	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/scene"
)

// setParam reads handle, name and a typed value, then assigns it.
func (in *Interpreter) setParam(read func(r *protocol.Reader) (scene.Value, error)) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	name, err := in.in.String()
	if err != nil {
		return err
	}
	v, err := read(in.in)
	if err != nil {
		return err
	}
	obj, err := in.handles.Lookup(h)
	if err != nil {
		return err
	}
	return obj.Params().Set(name, v)
}

func handleSetObject(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		target, err := r.Handle()
		if err != nil {
			return scene.Value{}, err
		}
		obj, err := in.handles.LookupOrNull(target)
		if err != nil {
			return scene.Value{}, err
		}
		return scene.ObjectValue(obj), nil
	})
}

func handleSetString(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.String()
		return scene.StringValue(v), err
	})
}

func handleSetInt(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Int32()
		return scene.IntValue(v), err
	})
}

func handleSetFloat(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Float()
		return scene.FloatValue(v), err
	})
}

func handleSetVec2f(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Vec2f()
		return scene.Vec2fValue(v), err
	})
}

func handleSetVec3f(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Vec3f()
		return scene.Vec3fValue(v), err
	})
}

func handleSetVec4f(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Vec4f()
		return scene.Vec4fValue(v), err
	})
}

func handleSetVec2i(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Vec2i()
		return scene.Vec2iValue(v), err
	})
}

func handleSetVec3i(_ context.Context, in *Interpreter) error {
	return in.setParam(func(r *protocol.Reader) (scene.Value, error) {
		v, err := r.Vec3i()
		return scene.Vec3iValue(v), err
	})
}

// readPair reads the two handles of a container/member command.
func (in *Interpreter) readPair() (api.Handle, api.Handle, error) {
	a, err := in.in.Handle()
	if err != nil {
		return 0, 0, err
	}
	b, err := in.in.Handle()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func handleAddGeometry(_ context.Context, in *Interpreter) error {
	mh, gh, err := in.readPair()
	if err != nil {
		return err
	}
	model, err := lookupAs[*scene.Model](in, mh)
	if err != nil {
		return err
	}
	geom, err := lookupAs[*scene.Geometry](in, gh)
	if err != nil {
		return err
	}
	model.AddGeometry(geom)
	return nil
}

func handleRemoveGeometry(_ context.Context, in *Interpreter) error {
	mh, gh, err := in.readPair()
	if err != nil {
		return err
	}
	model, err := lookupAs[*scene.Model](in, mh)
	if err != nil {
		return err
	}
	geom, err := lookupAs[*scene.Geometry](in, gh)
	if err != nil {
		return err
	}
	removed, err := model.RemoveGeometry(geom)
	if !removed {
		logs.Debugf("worker.Interpreter.removeGeometry rank=%d model=%s geometry=%s not a member", in.Rank(), mh, gh)
	}
	return err
}

func handleAddVolume(_ context.Context, in *Interpreter) error {
	mh, vh, err := in.readPair()
	if err != nil {
		return err
	}
	model, err := lookupAs[*scene.Model](in, mh)
	if err != nil {
		return err
	}
	vol, err := lookupAs[*scene.Volume](in, vh)
	if err != nil {
		return err
	}
	model.AddVolume(vol)
	return nil
}

func handleRemoveVolume(_ context.Context, in *Interpreter) error {
	mh, vh, err := in.readPair()
	if err != nil {
		return err
	}
	model, err := lookupAs[*scene.Model](in, mh)
	if err != nil {
		return err
	}
	vol, err := lookupAs[*scene.Volume](in, vh)
	if err != nil {
		return err
	}
	removed, err := model.RemoveVolume(vol)
	if !removed {
		logs.Debugf("worker.Interpreter.removeVolume rank=%d model=%s volume=%s not a member", in.Rank(), mh, vh)
	}
	return err
}

func handleSetMaterial(_ context.Context, in *Interpreter) error {
	gh, mh, err := in.readPair()
	if err != nil {
		return err
	}
	geom, err := lookupAs[*scene.Geometry](in, gh)
	if err != nil {
		return err
	}
	mat, err := lookupOptional[*scene.Material](in, mh)
	if err != nil {
		return err
	}
	return geom.SetMaterial(mat)
}

// handleSetPixelOp chains a new instance in front of the frame buffer's
// current one.
func handleSetPixelOp(_ context.Context, in *Interpreter) error {
	fh, ph, err := in.readPair()
	if err != nil {
		return err
	}
	fb, err := lookupAs[*scene.FrameBuffer](in, fh)
	if err != nil {
		return err
	}
	op, err := lookupAs[*scene.PixelOp](in, ph)
	if err != nil {
		return err
	}
	fb.SetPixelOp(op.CreateInstance(fb, fb.PixelOp()))
	return nil
}

func handleFrameBufferClear(_ context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	channels, err := in.in.Int32()
	if err != nil {
		return err
	}
	fb, err := lookupAs[*scene.FrameBuffer](in, h)
	if err != nil {
		return err
	}
	fb.Clear(api.Channel(channels))
	return nil
}
