package scene

import "fmt"

// AttrType enumerates the value types an attribute can hold.
type AttrType int

const (
	TypeBool AttrType = iota
	TypeFloat
	TypeString
	TypeVector
)

// String returns the lowercase name used in persisted scenes and error text.
func (t AttrType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeVector:
		return "vector"
	default:
		return fmt.Sprintf("attrtype(%d)", int(t))
	}
}

// ParseAttrType maps a persisted type name back to its AttrType.
func ParseAttrType(name string) (AttrType, error) {
	switch name {
	case "bool":
		return TypeBool, nil
	case "float":
		return TypeFloat, nil
	case "string":
		return TypeString, nil
	case "vector":
		return TypeVector, nil
	default:
		return 0, fmt.Errorf("unknown attribute type %q", name)
	}
}

// Vector3 is a three-component attribute value (translate, rotate, scale,
// color triples).
type Vector3 [3]float64

// Value is a typed attribute value. Only the field matching Type is
// meaningful.
type Value struct {
	Type  AttrType
	Bool  bool
	Float float64
	Str   string
	Vec   Vector3
}

// BoolValue wraps a bool as an attribute value.
func BoolValue(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// FloatValue wraps a float64 as an attribute value.
func FloatValue(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// StringValue wraps a string as an attribute value.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// VectorValue wraps three components as an attribute value.
func VectorValue(x, y, z float64) Value {
	return Value{Type: TypeVector, Vec: Vector3{x, y, z}}
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeBool:
		return v.Bool == other.Bool
	case TypeFloat:
		return v.Float == other.Float
	case TypeString:
		return v.Str == other.Str
	case TypeVector:
		return v.Vec == other.Vec
	default:
		return false
	}
}
