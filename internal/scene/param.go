package scene

import "github.com/danmuck/renderd/internal/api"

// Value is one typed parameter value. Only the slot matching Type is used.
type Value struct {
	Type   api.DataType
	Str    string
	Ints   [3]int32
	Floats [4]float32
	Object Object
}

func StringValue(s string) Value { return Value{Type: api.TypeString, Str: s} }
func IntValue(v int32) Value { return Value{Type: api.TypeInt, Ints: [3]int32{v}} }
func FloatValue(v float32) Value { return Value{Type: api.TypeFloat, Floats: [4]float32{v}} }

func Vec2fValue(v api.Vec2f) Value {
	return Value{Type: api.TypeFloat2, Floats: [4]float32{v[0], v[1]}}
}

func Vec3fValue(v api.Vec3f) Value {
	return Value{Type: api.TypeFloat3, Floats: [4]float32{v[0], v[1], v[2]}}
}

func Vec4fValue(v api.Vec4f) Value {
	return Value{Type: api.TypeFloat4, Floats: [4]float32(v)}
}

func Vec2iValue(v api.Vec2i) Value {
	return Value{Type: api.TypeInt2, Ints: [3]int32{v[0], v[1]}}
}

func Vec3iValue(v api.Vec3i) Value {
	return Value{Type: api.TypeInt3, Ints: [3]int32(v)}
}

// ObjectValue wraps an object reference. A nil object clears the reference.
func ObjectValue(o Object) Value {
	return Value{Type: api.TypeObject, Object: o}
}

// Param is one named slot in an object's parameter store.
type Param struct {
	Name  string
	Value Value
}

// Params is an insertion-ordered parameter store. Object-typed values hold a
// counted reference to their target.
type Params struct {
	items []*Param
	index map[string]int
}

// Find returns the named parameter.
func (p *Params) Find(name string) (*Param, bool) {
	if p.index == nil {
		return nil, false
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.items[i], true
}

// FindOrCreate returns the named parameter, creating an untyped slot when
// missing.
func (p *Params) FindOrCreate(name string) *Param {
	if param, ok := p.Find(name); ok {
		return param
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	param := &Param{Name: name, Value: Value{Type: api.TypeVoid}}
	p.index[name] = len(p.items)
	p.items = append(p.items, param)
	return param
}

// Set assigns v to name, moving object references as needed.
func (p *Params) Set(name string, v Value) error {
	param := p.FindOrCreate(name)
	if v.Object != nil {
		v.Object.RefInc()
	}
	old := param.Value
	param.Value = v
	if old.Object != nil {
		if _, err := old.Object.RefDec(); err != nil {
			return err
		}
	}
	return nil
}

// Names returns parameter names in insertion order.
func (p *Params) Names() []string {
	out := make([]string, 0, len(p.items))
	for _, param := range p.items {
		out = append(out, param.Name)
	}
	return out
}

func (p *Params) Len() int {
	return len(p.items)
}

// releaseAll drops every object reference held by the store.
func (p *Params) releaseAll() error {
	var firstErr error
	for _, param := range p.items {
		if param.Value.Object == nil {
			continue
		}
		obj := param.Value.Object
		param.Value.Object = nil
		if _, err := obj.RefDec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Params) typed(name string, t api.DataType) (Value, bool) {
	param, ok := p.Find(name)
	if !ok || param.Value.Type != t {
		return Value{}, false
	}
	return param.Value, true
}

func (p *Params) String(name, def string) string {
	if v, ok := p.typed(name, api.TypeString); ok {
		return v.Str
	}
	return def
}

func (p *Params) Int(name string, def int32) int32 {
	if v, ok := p.typed(name, api.TypeInt); ok {
		return v.Ints[0]
	}
	return def
}

func (p *Params) Float(name string, def float32) float32 {
	if v, ok := p.typed(name, api.TypeFloat); ok {
		return v.Floats[0]
	}
	return def
}

func (p *Params) Vec2f(name string, def api.Vec2f) api.Vec2f {
	if v, ok := p.typed(name, api.TypeFloat2); ok {
		return api.Vec2f{v.Floats[0], v.Floats[1]}
	}
	return def
}

func (p *Params) Vec3f(name string, def api.Vec3f) api.Vec3f {
	if v, ok := p.typed(name, api.TypeFloat3); ok {
		return api.Vec3f{v.Floats[0], v.Floats[1], v.Floats[2]}
	}
	return def
}

func (p *Params) Vec4f(name string, def api.Vec4f) api.Vec4f {
	if v, ok := p.typed(name, api.TypeFloat4); ok {
		return api.Vec4f(v.Floats)
	}
	return def
}

func (p *Params) Vec2i(name string, def api.Vec2i) api.Vec2i {
	if v, ok := p.typed(name, api.TypeInt2); ok {
		return api.Vec2i{v.Ints[0], v.Ints[1]}
	}
	return def
}

func (p *Params) Vec3i(name string, def api.Vec3i) api.Vec3i {
	if v, ok := p.typed(name, api.TypeInt3); ok {
		return api.Vec3i(v.Ints)
	}
	return def
}

// Object returns the referenced object, or nil.
func (p *Params) Object(name string) Object {
	if v, ok := p.typed(name, api.TypeObject); ok {
		return v.Object
	}
	return nil
}

// Data returns the referenced data array, or nil.
func (p *Params) Data(name string) *Data {
	d, _ := p.Object(name).(*Data)
	return d
}
