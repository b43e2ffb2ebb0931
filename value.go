package mmdb

import "github.com/coredb/mmdb/internal/decoder"

// Kind identifies the type of a decoded value.
type Kind = decoder.Kind

// Kind constants for decoded MMDB values.
const (
	KindPointer = decoder.KindPointer
	KindString  = decoder.KindString
	KindFloat64 = decoder.KindFloat64
	KindBytes   = decoder.KindBytes
	KindUint16  = decoder.KindUint16
	KindUint32  = decoder.KindUint32
	KindMap     = decoder.KindMap
	KindInt32   = decoder.KindInt32
	KindUint64  = decoder.KindUint64
	KindUint128 = decoder.KindUint128
	KindArray   = decoder.KindArray
	KindBool    = decoder.KindBool
	KindFloat32 = decoder.KindFloat32
)

// Value is a single decoded MMDB value: a Kind plus whatever scalar payload
// that Kind implies. For Map and Array, Value carries only the header
// (entry/element count); use GetEntryDataList to materialize a full
// subtree, or GetValue to navigate to a specific descendant.
type Value = decoder.Value

// Interface returns v's payload as a generic Go value: string, []byte,
// bool, float32, float64, int32, uint16, uint32, uint64, *big.Int for
// scalars; nil for Map/Array (callers materializing a full tree should use
// GetEntryDataList, whose ToInterface method recurses).
func Interface(v Value) any {
	switch v.Kind {
	case decoder.KindString:
		s, _ := v.String()
		return s
	case decoder.KindBytes:
		b, _ := v.Bytes()
		return b
	case decoder.KindBool:
		b, _ := v.Bool()
		return b
	case decoder.KindFloat32:
		f, _ := v.Float32()
		return f
	case decoder.KindFloat64:
		f, _ := v.Float64()
		return f
	case decoder.KindInt32:
		i, _ := v.Int32()
		return i
	case decoder.KindUint16:
		i, _ := v.Uint16()
		return i
	case decoder.KindUint32:
		i, _ := v.Uint32()
		return i
	case decoder.KindUint64:
		i, _ := v.Uint64()
		return i
	case decoder.KindUint128:
		i, _ := v.Uint128()
		return i
	default:
		return nil
	}
}
