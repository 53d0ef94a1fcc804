package datavalues

import (
	"fmt"

	"fuse-query-go/errors"

	"github.com/apache/arrow/go/v17/arrow"
)

// DataType is the element type tag of a column or scalar.
type DataType int

const (
	Null DataType = iota
	Boolean
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Utf8
)

var dataTypeNames = [...]string{
	Null:    "Null",
	Boolean: "Boolean",
	Int8:    "Int8",
	Int16:   "Int16",
	Int32:   "Int32",
	Int64:   "Int64",
	UInt8:   "UInt8",
	UInt16:  "UInt16",
	UInt32:  "UInt32",
	UInt64:  "UInt64",
	Float32: "Float32",
	Float64: "Float64",
	Utf8:    "Utf8",
}

// AllDataTypes lists every tag in declaration order.
var AllDataTypes = []DataType{Null, Boolean, Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64, Float32, Float64, Utf8}

func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// Width is the fixed physical width in bytes; -1 for variable width types.
func (t DataType) Width() int {
	switch t {
	case Null:
		return 0
	case Boolean, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return -1
	}
}

func (t DataType) IsInteger() bool {
	return t >= Int8 && t <= UInt64
}

func (t DataType) IsSigned() bool {
	return (t >= Int8 && t <= Int64) || t.IsFloat()
}

func (t DataType) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t DataType) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

func (t DataType) ToArrow() arrow.DataType {
	switch t {
	case Null:
		return arrow.Null
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case UInt8:
		return arrow.PrimitiveTypes.Uint8
	case UInt16:
		return arrow.PrimitiveTypes.Uint16
	case UInt32:
		return arrow.PrimitiveTypes.Uint32
	case UInt64:
		return arrow.PrimitiveTypes.Uint64
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Utf8:
		return arrow.BinaryTypes.String
	}
	panic(fmt.Sprintf("unknown data type %d", int(t)))
}

func DataTypeFromArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.NULL:
		return Null, nil
	case arrow.BOOL:
		return Boolean, nil
	case arrow.INT8:
		return Int8, nil
	case arrow.INT16:
		return Int16, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.UINT8:
		return UInt8, nil
	case arrow.UINT16:
		return UInt16, nil
	case arrow.UINT32:
		return UInt32, nil
	case arrow.UINT64:
		return UInt64, nil
	case arrow.FLOAT32:
		return Float32, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return Utf8, nil
	}
	return Null, errors.ErrType("unsupported arrow type %s", dt)
}

// DataTypeFromName parses the canonical names produced by String.
func DataTypeFromName(name string) (DataType, error) {
	for _, t := range AllDataTypes {
		if t.String() == name {
			return t, nil
		}
	}
	return Null, errors.ErrType("unknown data type %q", name)
}

// NumericSuperType returns the type both operands can be cast to without
// losing their sign or fraction. Non numeric operands are a Type error.
func NumericSuperType(l, r DataType) (DataType, error) {
	if !l.IsNumeric() || !r.IsNumeric() {
		return Null, errors.ErrType("no numeric super type for %s and %s", l, r)
	}
	if l == r {
		return l, nil
	}
	switch {
	case l.IsFloat() || r.IsFloat():
		return Float64, nil
	case l.IsSigned() || r.IsSigned():
		return Int64, nil
	default:
		return UInt64, nil
	}
}
