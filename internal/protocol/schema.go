package protocol

import "sort"

// FieldKind is one wire field type.
type FieldKind uint8

const (
	FieldInt32 FieldKind = iota + 1
	FieldSize
	FieldHandle
	FieldString
	FieldFloat
	FieldVec2f
	FieldVec3f
	FieldVec4f
	FieldVec2i
	FieldVec3i
	// FieldBlob is a raw byte run whose length is derived from earlier fields.
	FieldBlob
)

// Category groups opcodes by handler contract.
type Category string

const (
	CategoryConstruct  Category = "construct"
	CategoryCollective Category = "collective"
	CategoryMutate     Category = "mutate"
	CategoryCommit     Category = "commit"
	CategoryRelease    Category = "release"
	CategoryQuery      Category = "query"
	CategoryRender     Category = "render"
	CategoryControl    Category = "control"
)

// OpcodeInfo is the static contract of one opcode.
type OpcodeInfo struct {
	Opcode   Opcode
	Name     string
	Category Category
	Fields   []FieldKind
}

var schemas = map[Opcode]OpcodeInfo{
	CmdNewModel:            {CmdNewModel, "new_model", CategoryConstruct, []FieldKind{FieldHandle}},
	CmdNewGeometry:         {CmdNewGeometry, "new_geometry", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},
	CmdNewMaterial:         {CmdNewMaterial, "new_material", CategoryCollective, []FieldKind{FieldHandle, FieldHandle, FieldString}},
	CmdNewLight:            {CmdNewLight, "new_light", CategoryCollective, []FieldKind{FieldHandle, FieldHandle, FieldString}},
	CmdNewTriangleMesh:     {CmdNewTriangleMesh, "new_trianglemesh", CategoryConstruct, []FieldKind{FieldHandle}},
	CmdNewCamera:           {CmdNewCamera, "new_camera", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},
	CmdNewVolume:           {CmdNewVolume, "new_volume", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},
	CmdNewTransferFunction: {CmdNewTransferFunction, "new_transferfunction", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},
	CmdNewData:             {CmdNewData, "new_data", CategoryConstruct, []FieldKind{FieldHandle, FieldSize, FieldInt32, FieldInt32, FieldSize, FieldBlob}},
	CmdNewTexture2D:        {CmdNewTexture2D, "new_texture2d", CategoryConstruct, []FieldKind{FieldHandle, FieldVec2i, FieldInt32, FieldInt32, FieldSize, FieldBlob}},
	CmdNewRenderer:         {CmdNewRenderer, "new_renderer", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},
	CmdNewPixelOp:          {CmdNewPixelOp, "new_pixelop", CategoryConstruct, []FieldKind{FieldHandle, FieldString}},

	CmdAddGeometry:    {CmdAddGeometry, "add_geometry", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdRemoveGeometry: {CmdRemoveGeometry, "remove_geometry", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdAddVolume:      {CmdAddVolume, "add_volume", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdRemoveVolume:   {CmdRemoveVolume, "remove_volume", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdCommit:         {CmdCommit, "commit", CategoryCommit, []FieldKind{FieldHandle}},
	CmdRelease:        {CmdRelease, "release", CategoryRelease, []FieldKind{FieldHandle}},
	CmdSetMaterial:    {CmdSetMaterial, "set_material", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdSetRegion:      {CmdSetRegion, "set_region", CategoryCollective, []FieldKind{FieldHandle, FieldVec3i, FieldVec3i, FieldSize, FieldBlob}},
	CmdSetPixelOp:     {CmdSetPixelOp, "set_pixelop", CategoryMutate, []FieldKind{FieldHandle, FieldHandle}},
	CmdSampleVolume:   {CmdSampleVolume, "sample_volume", CategoryQuery, []FieldKind{FieldHandle, FieldSize, FieldBlob}},

	CmdFrameBufferCreate: {CmdFrameBufferCreate, "framebuffer_create", CategoryConstruct, []FieldKind{FieldHandle, FieldVec2i, FieldInt32, FieldInt32}},
	CmdFrameBufferMap:    {CmdFrameBufferMap, "framebuffer_map", CategoryControl, nil},
	CmdFrameBufferClear:  {CmdFrameBufferClear, "framebuffer_clear", CategoryMutate, []FieldKind{FieldHandle, FieldInt32}},
	CmdRenderFrame:       {CmdRenderFrame, "render_frame", CategoryRender, []FieldKind{FieldHandle, FieldHandle, FieldInt32}},

	CmdSetObject: {CmdSetObject, "set_object", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldHandle}},
	CmdSetString: {CmdSetString, "set_string", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldString}},
	CmdSetInt:    {CmdSetInt, "set_int", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldInt32}},
	CmdSetFloat:  {CmdSetFloat, "set_float", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldFloat}},
	CmdSetVec2f:  {CmdSetVec2f, "set_vec2f", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldVec2f}},
	CmdSetVec3f:  {CmdSetVec3f, "set_vec3f", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldVec3f}},
	CmdSetVec4f:  {CmdSetVec4f, "set_vec4f", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldVec4f}},
	CmdSetVec2i:  {CmdSetVec2i, "set_vec2i", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldVec2i}},
	CmdSetVec3i:  {CmdSetVec3i, "set_vec3i", CategoryMutate, []FieldKind{FieldHandle, FieldString, FieldVec3i}},

	CmdGetType:  {CmdGetType, "get_type", CategoryQuery, []FieldKind{FieldHandle, FieldString}},
	CmdGetValue: {CmdGetValue, "get_value", CategoryQuery, []FieldKind{FieldHandle, FieldString, FieldInt32}},

	CmdLoadModule: {CmdLoadModule, "load_module", CategoryControl, []FieldKind{FieldString}},
	CmdApiMode:    {CmdApiMode, "api_mode", CategoryControl, []FieldKind{FieldInt32}},
	CmdFinalize:   {CmdFinalize, "finalize", CategoryControl, nil},
}

// Lookup returns the static contract of op.
func Lookup(op Opcode) (OpcodeInfo, bool) {
	info, ok := schemas[op]
	return info, ok
}

// Opcodes returns every known opcode in ascending wire order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(schemas))
	for op := range schemas {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FixedSize returns the byte size of a fixed-width field kind, or 0 for
// strings and blobs.
func (k FieldKind) FixedSize() int {
	switch k {
	case FieldInt32, FieldFloat:
		return 4
	case FieldSize, FieldHandle, FieldVec2f, FieldVec2i:
		return 8
	case FieldVec3f, FieldVec3i:
		return 12
	case FieldVec4f:
		return 16
	default:
		return 0
	}
}
