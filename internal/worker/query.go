package worker

import (
	"context"
	"fmt"

	"github.com/danmuck/renderd/internal/api"
	"github.com/danmuck/renderd/internal/protocol"
)

// handleGetType reports a parameter's type, or the object's kind when name
// is empty. Every rank decodes the frame; only rank 0 looks anything up.
func handleGetType(ctx context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	name, err := in.in.String()
	if err != nil {
		return err
	}
	if !in.isRoot() {
		return nil
	}
	obj, err := in.handles.Lookup(h)
	if err != nil {
		return err
	}
	if name == "" {
		return in.reply(ctx, protocol.Response{
			Opcode:  protocol.CmdGetType,
			Success: true,
			Type:    api.TypeObject,
			String:  obj.Kind().String(),
		})
	}
	param, ok := obj.Params().Find(name)
	if !ok {
		return in.reply(ctx, protocol.NotFound(protocol.CmdGetType))
	}
	return in.reply(ctx, protocol.Response{
		Opcode:  protocol.CmdGetType,
		Success: true,
		Type:    param.Value.Type,
	})
}

// handleGetValue returns a parameter's value when it exists with the
// requested type. Object and raw values cannot be returned by value.
func handleGetValue(ctx context.Context, in *Interpreter) error {
	h, err := in.in.Handle()
	if err != nil {
		return err
	}
	name, err := in.in.String()
	if err != nil {
		return err
	}
	rawType, err := in.in.Int32()
	if err != nil {
		return err
	}
	want := api.DataType(rawType)
	if !valueQueryable(want) {
		return fmt.Errorf("%w: get_value of %s parameter %q", ErrUnsupported, want, name)
	}
	if !in.isRoot() {
		return nil
	}
	obj, err := in.handles.Lookup(h)
	if err != nil {
		return err
	}
	param, ok := obj.Params().Find(name)
	if !ok || param.Value.Type != want {
		return in.reply(ctx, protocol.NotFound(protocol.CmdGetValue))
	}

	v := param.Value
	resp := protocol.Response{Opcode: protocol.CmdGetValue, Success: true, Type: want}
	switch want {
	case api.TypeString:
		resp.String = v.Str
	case api.TypeInt:
		resp.Int = v.Ints[0]
	case api.TypeInt2:
		resp.Ints = append([]int32(nil), v.Ints[:2]...)
	case api.TypeInt3:
		resp.Ints = append([]int32(nil), v.Ints[:3]...)
	case api.TypeFloat:
		resp.Float = v.Floats[0]
	case api.TypeFloat2:
		resp.Floats = append([]float32(nil), v.Floats[:2]...)
	case api.TypeFloat3:
		resp.Floats = append([]float32(nil), v.Floats[:3]...)
	case api.TypeFloat4:
		resp.Floats = append([]float32(nil), v.Floats[:4]...)
	}
	return in.reply(ctx, resp)
}

// valueQueryable reports whether a parameter type can be returned by value.
// It depends only on the frame, so every rank rejects the same queries.
func valueQueryable(t api.DataType) bool {
	switch t {
	case api.TypeString, api.TypeInt, api.TypeInt2, api.TypeInt3,
		api.TypeFloat, api.TypeFloat2, api.TypeFloat3, api.TypeFloat4:
		return true
	default:
		return false
	}
}
