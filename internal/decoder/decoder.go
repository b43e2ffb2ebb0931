// Package decoder implements the MMDB data-section wire format: control-byte
// parsing, pointer-compression resolution, and the typed-value decode used
// by every higher-level operation (lookup, get_value, get_entry_data_list,
// metadata parsing).
package decoder

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/coredb/mmdb/internal/mmdberrors"
)

// maximumDataStructureDepth is libmaxminddb's MAXIMUM_DATA_STRUCTURE_DEPTH.
// Nothing in this package recurses or refers to it; the root package's
// maxEntryListDepth applies the same limit to recursive materialization.
const maximumDataStructureDepth = 512

// DataDecoder decodes values from a single contiguous data section. It
// holds no position of its own; every method takes the offset to act on
// and returns the offset immediately following what it consumed.
type DataDecoder struct {
	buffer []byte
}

// New creates a DataDecoder over buffer, which must be the data section
// (not the whole file): offset 0 is the first byte after the 16-byte
// separator that follows the search tree.
func New(buffer []byte) DataDecoder {
	return DataDecoder{buffer: buffer}
}

// Len returns the length of the data section, used to bound container
// sizes and pointer targets per spec.md's "bounded by the remaining
// data-section length" invariant.
func (d *DataDecoder) Len() uint {
	return uint(len(d.buffer))
}

// Value is the decoded-value tagged union from the data model: a Kind plus
// whatever payload that Kind implies. Map and Array values carry only their
// header (entry/element count and the offset of the first entry/element);
// callers walk the subtree with further DecodeOne/NextValueOffset calls
// instead of this struct holding a recursive tree, matching the "lazy path
// navigation" requirement for get_path.
type Value struct {
	scalar any

	Kind Kind

	// Offset is the offset of the control byte this value was decoded
	// from. For a pointer, this is the pointer's own offset, not its
	// target.
	Offset uint

	// NextOffset is the offset immediately after the original control
	// byte and its payload — for a pointer, immediately after the
	// pointer's own bytes, never the resolved target. For a map or
	// array, this equals DataOffset, since the container's "payload" in
	// the encode-immediately-after sense is just its header.
	NextOffset uint

	// DataOffset is where the value's payload begins: the first
	// key/element for a container, the first payload byte for a scalar.
	DataOffset uint

	// Size is the payload byte length for scalars, or the entry/element
	// count for Map/Array.
	Size uint
}

// String returns the decoded string and true, or ("", false) if Kind is not
// KindString.
func (v Value) String() (string, bool) {
	s, ok := v.scalar.(string)
	return s, ok
}

// Bytes returns the decoded byte slice and true, or (nil, false) if Kind is
// not KindBytes. The slice is a copy of the payload made at decode time; it
// does not alias the database's backing buffer.
func (v Value) Bytes() ([]byte, bool) {
	b, ok := v.scalar.([]byte)
	return b, ok
}

// Bool returns the decoded boolean and true, or (false, false) if Kind is
// not KindBool.
func (v Value) Bool() (bool, bool) {
	b, ok := v.scalar.(bool)
	return b, ok
}

// Float32 returns the decoded float and true, or (0, false) if Kind is not
// KindFloat32.
func (v Value) Float32() (float32, bool) {
	f, ok := v.scalar.(float32)
	return f, ok
}

// Float64 returns the decoded float and true, or (0, false) if Kind is not
// KindFloat64.
func (v Value) Float64() (float64, bool) {
	f, ok := v.scalar.(float64)
	return f, ok
}

// Int32 returns the decoded integer and true, or (0, false) if Kind is not
// KindInt32.
func (v Value) Int32() (int32, bool) {
	i, ok := v.scalar.(int32)
	return i, ok
}

// Uint16 returns the decoded integer and true, or (0, false) if Kind is not
// KindUint16.
func (v Value) Uint16() (uint16, bool) {
	i, ok := v.scalar.(uint16)
	return i, ok
}

// Uint32 returns the decoded integer and true, or (0, false) if Kind is not
// KindUint32.
func (v Value) Uint32() (uint32, bool) {
	i, ok := v.scalar.(uint32)
	return i, ok
}

// Uint64 returns the decoded integer and true, or (0, false) if Kind is not
// KindUint64.
func (v Value) Uint64() (uint64, bool) {
	i, ok := v.scalar.(uint64)
	return i, ok
}

// Uint128 returns the decoded integer and true, or (nil, false) if Kind is
// not KindUint128.
func (v Value) Uint128() (*big.Int, bool) {
	i, ok := v.scalar.(*big.Int)
	return i, ok
}

// DecodeCtrlData reads the control byte (and any type-extension or
// size-extension bytes) at offset. It returns the resolved Kind, the
// payload size (byte length for scalars, entry count for containers), and
// the offset of the first payload byte.
func (d *DataDecoder) DecodeCtrlData(offset uint) (Kind, uint, uint, error) {
	if offset >= uint(len(d.buffer)) {
		return 0, 0, 0, mmdberrors.NewOffsetError()
	}
	ctrlByte := d.buffer[offset]
	newOffset := offset + 1

	kind := Kind(ctrlByte >> 5)
	if kind == KindExtended {
		if newOffset >= uint(len(d.buffer)) {
			return 0, 0, 0, mmdberrors.NewOffsetError()
		}
		kind = Kind(d.buffer[newOffset]) + 7
		newOffset++
	}

	size, newOffset, err := d.sizeFromCtrlByte(ctrlByte, newOffset, kind)
	if err != nil {
		return 0, 0, 0, err
	}
	return kind, size, newOffset, nil
}

func (d *DataDecoder) sizeFromCtrlByte(ctrlByte byte, offset uint, kind Kind) (uint, uint, error) {
	size := uint(ctrlByte & 0x1f)
	if kind == KindPointer || size < 29 {
		return size, offset, nil
	}

	bytesToRead := size - 28
	newOffset := offset + bytesToRead
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}

	switch size {
	case 29:
		return 29 + uint(d.buffer[offset]), offset + 1, nil
	case 30:
		return 285 + uintFromBytes(d.buffer[offset:newOffset]), newOffset, nil
	default: // 31
		return 65821 + uintFromBytes(d.buffer[offset:newOffset]), newOffset, nil
	}
}

// DecodePointer resolves a pointer's size/prefix-bits (as returned by
// DecodeCtrlData for a KindPointer control byte) into an absolute
// data-section offset, plus the offset immediately after the pointer's own
// bytes.
func (d *DataDecoder) DecodePointer(size, offset uint) (pointer, newOffset uint, err error) {
	pointerSize := ((size >> 3) & 0x3) + 1
	newOffset = offset + pointerSize
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}

	var prefix uint
	if pointerSize != 4 {
		prefix = size & 0x7
	}
	unpacked := uintFromBytesPrefixed(prefix, d.buffer[offset:newOffset])

	var bias uint
	switch pointerSize {
	case 2:
		bias = 2048
	case 3:
		bias = 526336
	}
	return unpacked + bias, newOffset, nil
}

// DecodeOne decodes the value at offset. If the control byte is a pointer,
// it is resolved exactly once: the target must not itself be a pointer
// (spec.md §9 — pointer chains are rejected defensively as InvalidData
// rather than followed or looped). NextOffset on the returned Value is
// always relative to the original offset, never the pointer target.
func (d *DataDecoder) DecodeOne(offset uint) (Value, error) {
	kind, size, dataOffset, err := d.DecodeCtrlData(offset)
	if err != nil {
		return Value{}, err
	}

	if kind != KindPointer {
		return d.decodeNonPointer(kind, size, offset, dataOffset)
	}

	pointer, afterPointer, err := d.DecodePointer(size, dataOffset)
	if err != nil {
		return Value{}, err
	}

	targetKind, targetSize, targetDataOffset, err := d.DecodeCtrlData(pointer)
	if err != nil {
		return Value{}, err
	}
	if targetKind == KindPointer {
		return Value{}, mmdberrors.NewInvalidDatabaseError(
			"pointer at offset %d targets another pointer at offset %d; pointer chains are not valid MMDB data",
			offset, pointer,
		)
	}

	target, err := d.decodeNonPointer(targetKind, targetSize, pointer, targetDataOffset)
	if err != nil {
		return Value{}, err
	}
	target.Offset = offset
	target.NextOffset = afterPointer
	return target, nil
}

func (d *DataDecoder) decodeNonPointer(kind Kind, size, offset, dataOffset uint) (Value, error) {
	base := Value{Kind: kind, Offset: offset, Size: size, DataOffset: dataOffset}

	switch kind {
	case KindMap, KindArray:
		base.NextOffset = dataOffset
		return base, nil
	case KindBool:
		base.scalar = size != 0
		base.NextOffset = dataOffset
		return base, nil
	}

	end := dataOffset + size
	if end > uint(len(d.buffer)) {
		return Value{}, mmdberrors.NewOffsetError()
	}
	payload := d.buffer[dataOffset:end]
	base.NextOffset = end

	switch kind {
	case KindString:
		base.scalar = string(payload)
	case KindBytes:
		cp := make([]byte, len(payload))
		copy(cp, payload)
		base.scalar = cp
	case KindUint16:
		if size > 2 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"uint16 payload of %d bytes exceeds the type's width", size)
		}
		base.scalar = uint16(uintFromBytes(payload))
	case KindUint32:
		if size > 4 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"uint32 payload of %d bytes exceeds the type's width", size)
		}
		base.scalar = uint32(uintFromBytes(payload))
	case KindInt32:
		if size > 4 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"int32 payload of %d bytes exceeds the type's width", size)
		}
		var val int32
		for _, b := range payload {
			val = (val << 8) | int32(b)
		}
		base.scalar = val
	case KindUint64:
		if size > 8 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"uint64 payload of %d bytes exceeds the type's width", size)
		}
		var val uint64
		for _, b := range payload {
			val = (val << 8) | uint64(b)
		}
		base.scalar = val
	case KindUint128:
		if size > 16 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"uint128 payload of %d bytes exceeds the type's width", size)
		}
		base.scalar = new(big.Int).SetBytes(payload)
	case KindFloat32:
		if size != 4 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"float32 payload must be 4 bytes, got %d", size)
		}
		base.scalar = math.Float32frombits(binary.BigEndian.Uint32(payload))
	case KindFloat64:
		if size != 8 {
			return Value{}, mmdberrors.NewInvalidDatabaseError(
				"float64 payload must be 8 bytes, got %d", size)
		}
		base.scalar = math.Float64frombits(binary.BigEndian.Uint64(payload))
	default:
		return Value{}, mmdberrors.NewInvalidDatabaseError("unknown data kind %d", kind)
	}
	return base, nil
}

// DecodeKeyString decodes the value at offset, which must be (possibly via
// one pointer hop, handled by DecodeOne) a string, for use as a map key.
func (d *DataDecoder) DecodeKeyString(offset uint) (string, uint, error) {
	v, err := d.DecodeOne(offset)
	if err != nil {
		return "", 0, err
	}
	s, ok := v.String()
	if !ok {
		return "", 0, mmdberrors.NewInvalidDatabaseError(
			"map key at offset %d decoded as %s, not a string", offset, v.Kind)
	}
	return s, v.NextOffset, nil
}

// SkipValue returns the offset of the sibling immediately following a value
// already decoded with DecodeOne — the counterpart to DecodeOne for callers
// walking a sequence of values (map entries, array elements) that need to
// advance past a value's full subtree without recursing into it themselves.
func (d *DataDecoder) SkipValue(v Value) (uint, error) {
	if !v.Kind.IsContainer() {
		return v.NextOffset, nil
	}
	// A container reached through a pointer ends with the pointer's own
	// bytes; its subtree lives at the pointer target.
	if v.Offset < uint(len(d.buffer)) && Kind(d.buffer[v.Offset]>>5) == KindPointer {
		return v.NextOffset, nil
	}
	toSkip := v.Size
	if v.Kind == KindMap {
		toSkip *= 2
	}
	return d.NextValueOffset(v.DataOffset, toSkip)
}

// NextValueOffset returns the offset immediately after the value at offset,
// without materializing it — used to skip over array elements and map
// values the caller isn't interested in. numberToSkip lets a single call
// skip several consecutive values (e.g. the remaining entries of a map).
func (d *DataDecoder) NextValueOffset(offset, numberToSkip uint) (uint, error) {
	for numberToSkip > 0 {
		kind, size, dataOffset, err := d.DecodeCtrlData(offset)
		if err != nil {
			return 0, err
		}
		switch kind {
		case KindPointer:
			_, afterPointer, err := d.DecodePointer(size, dataOffset)
			if err != nil {
				return 0, err
			}
			offset = afterPointer
		case KindMap:
			numberToSkip += 2 * size
			offset = dataOffset
		case KindArray:
			numberToSkip += size
			offset = dataOffset
		case KindBool:
			offset = dataOffset
		default:
			offset = dataOffset + size
		}
		numberToSkip--
	}
	return offset, nil
}

func uintFromBytes(b []byte) uint {
	var v uint
	for _, c := range b {
		v = (v << 8) | uint(c)
	}
	return v
}

func uintFromBytesPrefixed(prefix uint, b []byte) uint {
	v := prefix
	for _, c := range b {
		v = (v << 8) | uint(c)
	}
	return v
}
