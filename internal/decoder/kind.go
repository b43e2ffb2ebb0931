package decoder

import "fmt"

// Kind identifies the type of a decoded MMDB value. The numeric values
// follow the high-3-bits-of-the-control-byte encoding from the MMDB
// specification; KindExtended (0) is never returned to a caller, it is
// resolved to one of the 8..15 kinds via the control byte's extension rule
// before DecodeOne returns.
type Kind int

// Kind constants, in control-byte order.
const (
	KindExtended Kind = iota
	KindPointer
	KindString
	KindFloat64
	KindBytes
	KindUint16
	KindUint32
	KindMap
	KindInt32
	KindUint64
	KindUint128
	KindArray
	KindContainer // unused placeholder, reserved by the format
	KindEndMarker // unused placeholder, reserved by the format
	KindBool
	KindFloat32
)

func (k Kind) String() string {
	switch k {
	case KindExtended:
		return "Extended"
	case KindPointer:
		return "Pointer"
	case KindString:
		return "String"
	case KindFloat64:
		return "Float64"
	case KindBytes:
		return "Bytes"
	case KindUint16:
		return "Uint16"
	case KindUint32:
		return "Uint32"
	case KindMap:
		return "Map"
	case KindInt32:
		return "Int32"
	case KindUint64:
		return "Uint64"
	case KindUint128:
		return "Uint128"
	case KindArray:
		return "Array"
	case KindContainer:
		return "Container"
	case KindEndMarker:
		return "EndMarker"
	case KindBool:
		return "Bool"
	case KindFloat32:
		return "Float32"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsContainer reports whether the kind holds nested values (map or array).
func (k Kind) IsContainer() bool {
	return k == KindMap || k == KindArray
}

// IsScalar reports whether the kind is a leaf value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindFloat64, KindBytes, KindUint16, KindUint32,
		KindInt32, KindUint64, KindUint128, KindBool, KindFloat32:
		return true
	default:
		return false
	}
}
