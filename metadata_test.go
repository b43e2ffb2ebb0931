package mmdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadataRejectsBadRecordSize(t *testing.T) {
	_, err := parseMetadata(mustEncodeMap(t, map[string]any{
		"binary_format_major_version": uint16(2),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 uint64(1),
		"database_type":               "Test",
		"description":                 map[string]any{"en": "x"},
		"ip_version":                  uint16(4),
		"languages":                   []any{"en"},
		"node_count":                  uint32(1),
		"record_size":                 uint16(20),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestParseMetadataRejectsUnsupportedMajorVersion(t *testing.T) {
	_, err := parseMetadata(mustEncodeMap(t, map[string]any{
		"binary_format_major_version": uint16(3),
		"binary_format_minor_version": uint16(0),
		"build_epoch":                 uint64(1),
		"database_type":               "Test",
		"description":                 map[string]any{"en": "x"},
		"ip_version":                  uint16(4),
		"languages":                   []any{"en"},
		"node_count":                  uint32(1),
		"record_size":                 uint16(24),
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func mustEncodeMap(t *testing.T, m map[string]any) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, encodeValue(buf, m))
	return buf.Bytes()
}
