package dump_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coredb/mmdb"
	"github.com/coredb/mmdb/dump"
)

func TestDumpParseRoundTrip(t *testing.T) {
	v, err := dump.ParseDump(bytes.NewReader(mustDumpBytes(t)))
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", m["name"])
	assert.Equal(t, true, m["flag"])

	arr, ok := m["numbers"].([]any)
	require.True(t, ok)
	require.Len(t, arr, 3)
	assert.Equal(t, uint32(2), arr[1])

	big128, ok := m["big"].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", big128.String())
}

func TestDumpMapKeysAreDeterministic(t *testing.T) {
	_, entry := buildSingleEntryDB(t, map[string]any{
		"zebra": uint32(1),
		"alpha": uint32(2),
		"mike":  uint32(3),
	})
	list, err := entry.GetEntryDataList()
	require.NoError(t, err)

	var first, second bytes.Buffer
	require.NoError(t, dump.Dump(&first, list))
	require.NoError(t, dump.Dump(&second, list))

	// Dumping the same record twice must produce byte-identical output;
	// Go's map iteration order is randomized, so this only holds if the
	// encoder sorts keys before writing them.
	assert.Equal(t, first.String(), second.String())
	out := first.String()
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "mike"))
	assert.Less(t, strings.Index(out, "mike"), strings.Index(out, "zebra"))
}

// mustDumpBytes builds a tiny in-memory MMDB-like record through the
// public package (using the same synthetic encoder pattern as the root
// package's tests would, but here driven end to end through Dump) and
// returns its text dump.
func mustDumpBytes(t *testing.T) []byte {
	t.Helper()

	big128, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	r, entry := buildSingleEntryDB(t, map[string]any{
		"name":    "hello",
		"flag":    true,
		"numbers": []any{uint32(1), uint32(2), uint32(3)},
		"big":     big128,
	})
	_ = r

	list, err := entry.GetEntryDataList()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dump.Dump(&buf, list))
	return buf.Bytes()
}

// buildSingleEntryDB is a minimal stand-in for the root package's test-only
// database builder: it opens a Reader over a single-network synthetic
// MMDB image built with mmdb's public API only (FromBytes), so the dump
// package's tests do not need access to mmdb's internal encoder.
func buildSingleEntryDB(t *testing.T, data map[string]any) (*mmdb.Reader, mmdb.Entry) {
	t.Helper()
	r, err := mmdb.FromBytes(singleEntryMMDB(t, data))
	require.NoError(t, err)
	res := r.Lookup(netip.MustParseAddr("1.1.1.1"))
	require.True(t, res.Found())
	return r, res.Entry()
}

// singleEntryMMDB assembles the smallest possible IPv4 database image: one
// search-tree node whose left record points at the data section (matching
// every address whose top bit is 0, which covers 1.1.1.1) and whose right
// record is the node-count no-match marker. This package cannot reach the
// root package's internal encoder, so the handful of control-byte shapes it
// needs are reproduced here directly.
func singleEntryMMDB(t *testing.T, data map[string]any) []byte {
	t.Helper()

	var dataSection bytes.Buffer
	require.NoError(t, encodeSimpleValue(&dataSection, data))

	var tree bytes.Buffer
	const nodeCount = 1
	left := uint32(nodeCount + 16) // data offset 0
	right := uint32(nodeCount)     // no-match marker
	tree.WriteByte(byte(left >> 16))
	tree.WriteByte(byte(left >> 8))
	tree.WriteByte(byte(left))
	tree.WriteByte(byte(right >> 16))
	tree.WriteByte(byte(right >> 8))
	tree.WriteByte(byte(right))

	var out bytes.Buffer
	out.Write(tree.Bytes())
	out.Write(make([]byte, 16)) // data section separator
	out.Write(dataSection.Bytes())
	out.Write([]byte("\xAB\xCD\xEFMaxMind.com"))

	require.NoError(t, encodeSimpleValue(&out, map[string]any{
		"binary_format_major_version": uint16(2),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 uint64(1),
		"database_type":               "dump-test",
		"description":                 map[string]any{"en": "dump package test fixture"},
		"ip_version":                  uint16(4),
		"languages":                   []any{"en"},
		"node_count":                  uint32(nodeCount),
		"record_size":                 uint16(24),
	}))

	return out.Bytes()
}

// encodeSimpleValue writes just the control-byte shapes this file's fixtures
// need: strings, uint16/uint32/uint64, a *big.Int (uint128), bools, maps and
// arrays.
func encodeSimpleValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		writeCtrl(buf, 2, len(val))
		buf.WriteString(val)
	case bool:
		writeExtCtrl(buf, 14, boolToInt(val))
	case uint16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, val)
		writeCtrl(buf, 5, len(b))
		buf.Write(b)
	case uint32:
		b := encodeUint(uint64(val))
		writeCtrl(buf, 6, len(b))
		buf.Write(b)
	case uint64:
		b := encodeUint(val)
		writeExtCtrl(buf, 9, len(b))
		buf.Write(b)
	case *big.Int:
		b := val.Bytes()
		writeExtCtrl(buf, 10, len(b))
		buf.Write(b)
	case []any:
		writeExtCtrl(buf, 11, len(val))
		for _, elem := range val {
			if err := encodeSimpleValue(buf, elem); err != nil {
				return err
			}
		}
	case map[string]any:
		writeCtrl(buf, 7, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeCtrl(buf, 2, len(k))
			buf.WriteString(k)
			if err := encodeSimpleValue(buf, val[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("dump test fixture: unsupported value type %T", v)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeUint(v uint64) []byte {
	if v == 0 {
		return nil
	}
	n := int(math.Ceil(math.Log2(float64(v)+1) / 8))
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b[8-n:]
}

// writeCtrl emits a direct control byte for kinds 1-7 (top 3 bits are the
// kind itself). Fixtures in this file never need sizes >= 29.
func writeCtrl(buf *bytes.Buffer, kind byte, size int) {
	if size >= 29 {
		panic("dump test fixture: size extension not implemented")
	}
	buf.WriteByte((kind << 5) | byte(size))
}

// writeExtCtrl emits an extended control byte for kinds 8-15: the first byte
// signals the extended form (top 3 bits zero) with the size in its low 5
// bits, the second byte carries kind-7.
func writeExtCtrl(buf *bytes.Buffer, kind byte, size int) {
	if size >= 29 {
		panic("dump test fixture: size extension not implemented")
	}
	buf.WriteByte(byte(size))
	buf.WriteByte(kind - 7)
}
