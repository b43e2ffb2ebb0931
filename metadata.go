package mmdb

import (
	"time"

	"github.com/coredb/mmdb/internal/decoder"
)

// Metadata holds the metadata decoded from an MMDB file's metadata section.
// Every field corresponds to a required key in the metadata map (spec.md
// §3/§8): BinaryFormatMajorVersion, BinaryFormatMinorVersion, BuildEpoch,
// DatabaseType, Languages, Description, IPVersion, NodeCount, RecordSize.
type Metadata struct {
	// Description maps language code ("en", "zh-CN", ...) to a
	// human-readable description of the database in that language.
	Description map[string]string

	// DatabaseType names the structure of records in the database, e.g.
	// "GeoIP2-City". Names starting with "GeoIP"/"GeoLite2" are reserved
	// by MaxMind.
	DatabaseType string

	// Languages lists the locale codes the database may contain
	// localized data for.
	Languages []string

	// BinaryFormatMajorVersion is the major version of the MMDB binary
	// format. Only 2 is supported.
	BinaryFormatMajorVersion uint

	// BinaryFormatMinorVersion is the minor version of the MMDB binary
	// format.
	BinaryFormatMinorVersion uint

	// BuildEpoch is the database build timestamp, Unix epoch seconds.
	BuildEpoch uint64

	// IPVersion is 4 for an IPv4-only database, 6 for a database
	// supporting both IPv4 and IPv6 lookups.
	IPVersion uint

	// NodeCount is the number of nodes in the search tree.
	NodeCount uint

	// RecordSize is the per-record bit width in a search-tree node: 24,
	// 28, or 32.
	RecordSize uint
}

// BuildTime converts BuildEpoch to a time.Time.
func (m Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0)
}

// MetadataEntryDataList materializes r's raw metadata map as a flat
// depth-first list, the same shape GetEntryDataList produces for a data
// record — useful for dumping or diffing the metadata section with the
// same tooling used for records.
func (r *Reader) MetadataEntryDataList() (*EntryDataList, error) {
	head, _, _, err := buildEntryList(&r.metadataDecoder, 0, 0)
	if err != nil {
		return nil, err
	}
	return &EntryDataList{Head: head}, nil
}

// parseMetadata decodes and validates the metadata map found at offset 0 of
// buf (the metadata section is self-describing and uses the same wire
// format as the rest of the data section, so it gets its own DataDecoder
// rooted at the metadata section's own base, per spec.md §4.4).
func parseMetadata(buf []byte) (Metadata, error) {
	dd := decoder.New(buf)

	root, err := dd.DecodeOne(0)
	if err != nil {
		return Metadata{}, err
	}
	if root.Kind != decoder.KindMap {
		return Metadata{}, invalidMetadataErrf("metadata section did not decode to a map (got %s)", root.Kind)
	}

	entries, err := mapEntries(&dd, root)
	if err != nil {
		return Metadata{}, err
	}

	var md Metadata
	for _, e := range entries {
		switch e.Key {
		case "binary_format_major_version":
			md.BinaryFormatMajorVersion, err = requireUint(&dd, e)
		case "binary_format_minor_version":
			md.BinaryFormatMinorVersion, err = requireUint(&dd, e)
		case "build_epoch":
			md.BuildEpoch, err = requireUint64(e)
		case "database_type":
			md.DatabaseType, err = requireString(e)
		case "ip_version":
			md.IPVersion, err = requireUint(&dd, e)
		case "node_count":
			md.NodeCount, err = requireUint(&dd, e)
		case "record_size":
			md.RecordSize, err = requireUint(&dd, e)
		case "languages":
			md.Languages, err = decodeStringArray(&dd, e.Value)
		case "description":
			md.Description, err = decodeStringMap(&dd, e.Value)
		}
		if err != nil {
			return Metadata{}, err
		}
	}

	if err := validateMetadata(md); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

func validateMetadata(md Metadata) error {
	if md.NodeCount == 0 {
		return invalidMetadataErrf("node_count must be positive, got 0")
	}
	switch md.RecordSize {
	case 24, 28, 32:
	default:
		return invalidMetadataErrf("record_size must be 24, 28, or 32, got %d", md.RecordSize)
	}
	switch md.IPVersion {
	case 4, 6:
	default:
		return invalidMetadataErrf("ip_version must be 4 or 6, got %d", md.IPVersion)
	}
	if md.BinaryFormatMajorVersion != 2 {
		return invalidMetadataErrf(
			"unsupported binary_format_major_version %d, only 2 is supported",
			md.BinaryFormatMajorVersion)
	}
	return nil
}

func requireUint(dd *decoder.DataDecoder, e mapEntry) (uint, error) {
	switch e.Value.Kind {
	case decoder.KindUint16:
		v, _ := e.Value.Uint16()
		return uint(v), nil
	case decoder.KindUint32:
		v, _ := e.Value.Uint32()
		return uint(v), nil
	case decoder.KindUint64:
		v, _ := e.Value.Uint64()
		return uint(v), nil
	}
	return 0, invalidMetadataErrf("field %q decoded as %s, expected an unsigned integer", e.Key, e.Value.Kind)
}

func requireUint64(e mapEntry) (uint64, error) {
	switch e.Value.Kind {
	case decoder.KindUint16:
		v, _ := e.Value.Uint16()
		return uint64(v), nil
	case decoder.KindUint32:
		v, _ := e.Value.Uint32()
		return uint64(v), nil
	case decoder.KindUint64:
		v, _ := e.Value.Uint64()
		return v, nil
	}
	return 0, invalidMetadataErrf("field %q decoded as %s, expected an unsigned integer", e.Key, e.Value.Kind)
}

func requireString(e mapEntry) (string, error) {
	s, ok := e.Value.String()
	if !ok {
		return "", invalidMetadataErrf("field %q decoded as %s, expected a string", e.Key, e.Value.Kind)
	}
	return s, nil
}

func decodeStringArray(dd *decoder.DataDecoder, v decoder.Value) ([]string, error) {
	if v.Kind != decoder.KindArray {
		return nil, invalidMetadataErrf("expected an array, got %s", v.Kind)
	}
	elems, err := arrayElements(dd, v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, el := range elems {
		s, ok := el.String()
		if !ok {
			return nil, invalidMetadataErrf("array element %d decoded as %s, expected a string", i, el.Kind)
		}
		out[i] = s
	}
	return out, nil
}

func decodeStringMap(dd *decoder.DataDecoder, v decoder.Value) (map[string]string, error) {
	if v.Kind != decoder.KindMap {
		return nil, invalidMetadataErrf("expected a map, got %s", v.Kind)
	}
	entries, err := mapEntries(dd, v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		s, ok := e.Value.String()
		if !ok {
			return nil, invalidMetadataErrf("map value for key %q decoded as %s, expected a string", e.Key, e.Value.Kind)
		}
		out[e.Key] = s
	}
	return out, nil
}
