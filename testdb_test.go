package mmdb

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/big"
	"net/netip"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// This file builds minimal, well-formed MMDB byte buffers entirely in
// memory, since the retrieval pack ships no .mmdb fixture files. It is not
// a general-purpose writer — only enough of the wire format to exercise
// this package's reader against known-good (and, where a test wants it,
// deliberately broken) input.

// testEntry is one network-to-record assignment for buildTestDB.
type testEntry struct {
	prefix netip.Prefix
	data   any
}

// buildTestDB assembles a full MMDB image: search tree, data section, and
// metadata section (with its marker), for the given ip_version/record_size
// and network assignments.
func buildTestDB(t *testing.T, ipVersion, recordSize uint, entries []testEntry) []byte {
	t.Helper()

	dataBuf := new(bytes.Buffer)
	offsets := make([]uint, len(entries))
	for i, e := range entries {
		offsets[i] = uint(dataBuf.Len())
		require.NoError(t, encodeValue(dataBuf, e.data))
	}

	root := &trieNode{}
	for i, e := range entries {
		bits, bitLen := prefixBits(ipVersion, e.prefix)
		insertTrie(root, bits, bitLen, offsets[i])
	}

	order, ids := flattenTrie(root)
	nodeCount := uint(len(order))

	treeBuf := new(bytes.Buffer)
	for _, n := range order {
		left := recordValue(n.left, nodeCount, ids)
		right := recordValue(n.right, nodeCount, ids)
		writeNode(treeBuf, left, right, recordSize)
	}

	metaBuf := new(bytes.Buffer)
	require.NoError(t, encodeValue(metaBuf, map[string]any{
		"binary_format_major_version": uint16(2),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 uint64(1700000000),
		"database_type":               "Test-DB",
		"description":                 map[string]any{"en": "Test database"},
		"ip_version":                  uint16(ipVersion),
		"languages":                   []any{"en"},
		"node_count":                  uint32(nodeCount),
		"record_size":                 uint16(recordSize),
	}))

	var out bytes.Buffer
	out.Write(treeBuf.Bytes())
	out.Write(make([]byte, dataSectionSeparatorSize))
	out.Write(dataBuf.Bytes())
	out.Write(metadataStartMarker)
	out.Write(metaBuf.Bytes())
	return out.Bytes()
}

// prefixBits returns the address bits to walk and how many of them are
// significant, positioning an IPv4 prefix at the ::ffff:0:0/96 offset for
// a dual-stack (ip_version 6) database, matching Lookup's own placement.
func prefixBits(ipVersion uint, p netip.Prefix) ([16]byte, int) {
	addr := p.Addr()
	if ipVersion == 4 {
		var b [16]byte
		b4 := addr.As4()
		copy(b[:4], b4[:])
		return b, p.Bits()
	}
	if addr.Is4() || addr.Is4In6() {
		return addr.As16(), 96 + p.Bits()
	}
	return addr.As16(), p.Bits()
}

// trieNode is one search-tree node under construction. A nil child means
// "no data assigned"; hasData distinguishes a data-bearing child from one
// that descends into another trieNode.
type trieChild struct {
	node    *trieNode
	hasData bool
	offset  uint
}

type trieNode struct {
	left, right trieChild
}

func insertTrie(root *trieNode, bits [16]byte, bitLen int, offset uint) {
	n := root
	for pos := 0; pos < bitLen; pos++ {
		byteIdx := pos >> 3
		bitPos := 7 - uint(pos&7)
		bit := (bits[byteIdx] >> bitPos) & 1

		var c *trieChild
		if bit == 0 {
			c = &n.left
		} else {
			c = &n.right
		}

		if pos == bitLen-1 {
			c.hasData = true
			c.offset = offset
			c.node = nil
			return
		}
		if c.node == nil {
			c.node = &trieNode{}
		}
		n = c.node
	}
}

// flattenTrie assigns each reachable node a stable index (root is always
// 0) in breadth-first order and returns both the ordered node list and the
// id lookup.
func flattenTrie(root *trieNode) ([]*trieNode, map[*trieNode]uint) {
	order := []*trieNode{root}
	ids := map[*trieNode]uint{root: 0}

	for i := 0; i < len(order); i++ {
		n := order[i]
		for _, c := range []*trieChild{&n.left, &n.right} {
			if c.node == nil {
				continue
			}
			if _, seen := ids[c.node]; seen {
				continue
			}
			ids[c.node] = uint(len(order))
			order = append(order, c.node)
		}
	}
	return order, ids
}

func recordValue(c trieChild, nodeCount uint, ids map[*trieNode]uint) uint {
	switch {
	case c.hasData:
		return nodeCount + dataSectionSeparatorSize + c.offset
	case c.node != nil:
		return ids[c.node]
	default:
		return nodeCount
	}
}

// writeNode appends one search-tree node's two records, in the same
// bit layout internal/tree.Tree.ReadRecord decodes.
func writeNode(buf *bytes.Buffer, left, right, recordSize uint) {
	switch recordSize {
	case 24:
		buf.Write([]byte{byte(left >> 16), byte(left >> 8), byte(left)})
		buf.Write([]byte{byte(right >> 16), byte(right >> 8), byte(right)})
	case 32:
		buf.Write([]byte{byte(left >> 24), byte(left >> 16), byte(left >> 8), byte(left)})
		buf.Write([]byte{byte(right >> 24), byte(right >> 16), byte(right >> 8), byte(right)})
	default: // 28
		mid := (byte(left>>20) & 0xF0) | (byte(right>>24) & 0x0F)
		buf.Write([]byte{byte(left >> 16), byte(left >> 8), byte(left), mid,
			byte(right >> 16), byte(right >> 8), byte(right)})
	}
}

// encodeValue appends v's data-section encoding to buf. Supported types:
// string, []byte, bool, float32, float64, int32, uint16, uint32, uint64,
// *big.Int, map[string]any, []any. Container/payload sizes must stay under
// 29 (the point at which the wire format switches to size-extension
// bytes this encoder does not implement, since no test needs it).
func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case string:
		return writeDirectCtrl(buf, 2, []byte(x))
	case []byte:
		return writeDirectCtrl(buf, 4, x)
	case bool:
		size := byte(0)
		if x {
			size = 1
		}
		buf.WriteByte(size)
		buf.WriteByte(14 - 7)
		return nil
	case float32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, math.Float32bits(x))
		return writeExtendedCtrl(buf, 15, b)
	case float64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(x))
		return writeDirectCtrl(buf, 3, b)
	case int32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(x))
		return writeExtendedCtrl(buf, 8, b)
	case uint16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, x)
		return writeDirectCtrl(buf, 5, b)
	case uint32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, x)
		return writeDirectCtrl(buf, 6, b)
	case uint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, x)
		return writeExtendedCtrl(buf, 9, b)
	case *big.Int:
		return writeExtendedCtrl(buf, 10, x.Bytes())
	case map[string]any:
		return encodeMap(buf, x)
	case []any:
		return encodeArray(buf, x)
	default:
		panic("testdb encoder: unsupported type")
	}
}

// writeDirectCtrl writes a control byte whose top 3 bits hold kind
// directly (valid for kind in 1..7) followed by payload.
func writeDirectCtrl(buf *bytes.Buffer, kind byte, payload []byte) error {
	if len(payload) >= 29 {
		panic("testdb encoder: payload too large for direct control byte")
	}
	buf.WriteByte(kind<<5 | byte(len(payload)))
	buf.Write(payload)
	return nil
}

// writeExtendedCtrl writes the two-byte extended control form (top 3 bits
// 0, an extension byte carrying kind-7) for kind in 8..15, followed by
// payload.
func writeExtendedCtrl(buf *bytes.Buffer, kind byte, payload []byte) error {
	if len(payload) >= 29 {
		panic("testdb encoder: payload too large for extended control byte")
	}
	buf.WriteByte(byte(len(payload)))
	buf.WriteByte(kind - 7)
	buf.Write(payload)
	return nil
}

func encodeMap(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) >= 29 {
		panic("testdb encoder: map too large")
	}
	buf.WriteByte(7<<5 | byte(len(keys)))
	for _, k := range keys {
		if err := encodeValue(buf, k); err != nil {
			return err
		}
		if err := encodeValue(buf, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func encodeArray(buf *bytes.Buffer, arr []any) error {
	if len(arr) >= 29 {
		panic("testdb encoder: array too large")
	}
	buf.WriteByte(byte(len(arr)))
	buf.WriteByte(11 - 7)
	for _, el := range arr {
		if err := encodeValue(buf, el); err != nil {
			return err
		}
	}
	return nil
}
