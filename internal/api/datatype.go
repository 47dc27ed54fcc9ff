package api

import "fmt"

// DataType tags parameter values and data array elements.
type DataType uint32

const (
	TypeVoid DataType = iota
	TypeString
	TypeInt
	TypeInt2
	TypeInt3
	TypeFloat
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeObject
	TypeUChar
	TypeRaw
)

var dataTypeNames = map[DataType]string{
	TypeVoid:   "void",
	TypeString: "string",
	TypeInt:    "int",
	TypeInt2:   "int2",
	TypeInt3:   "int3",
	TypeFloat:  "float",
	TypeFloat2: "float2",
	TypeFloat3: "float3",
	TypeFloat4: "float4",
	TypeObject: "object",
	TypeUChar:  "uchar",
	TypeRaw:    "raw",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", uint32(t))
}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// SizeOf returns the wire size in bytes of one array element of type t.
// Object elements travel as handles. String and void have no element size.
func (t DataType) SizeOf() int {
	switch t {
	case TypeUChar, TypeRaw:
		return 1
	case TypeInt, TypeFloat:
		return 4
	case TypeInt2, TypeFloat2, TypeObject:
		return 8
	case TypeInt3, TypeFloat3:
		return 12
	case TypeFloat4:
		return 16
	default:
		return 0
	}
}

// DataSharedBuffer is a host-side flag that workers always mask off.
const DataSharedBuffer int32 = 1
