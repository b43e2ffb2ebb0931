package mmdb

import "github.com/coredb/mmdb/internal/decoder"

// mapEntry is one shallow-decoded (key, value) pair of a map: the value
// itself is only decoded one level deep (nested containers carry just
// their header), matching the lazy-navigation design of get_path.
type mapEntry struct {
	Key   string
	Value decoder.Value
}

// mapEntries decodes every entry of the map v one level deep. v.Kind must
// be decoder.KindMap.
func mapEntries(dd *decoder.DataDecoder, v decoder.Value) ([]mapEntry, error) {
	entries := make([]mapEntry, 0, v.Size)
	offset := v.DataOffset
	for i := uint(0); i < v.Size; i++ {
		key, afterKey, err := dd.DecodeKeyString(offset)
		if err != nil {
			return nil, err
		}
		val, err := dd.DecodeOne(afterKey)
		if err != nil {
			return nil, err
		}
		entries = append(entries, mapEntry{Key: key, Value: val})
		offset, err = dd.SkipValue(val)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// arrayElements decodes every element of the array v one level deep. v.Kind
// must be decoder.KindArray.
func arrayElements(dd *decoder.DataDecoder, v decoder.Value) ([]decoder.Value, error) {
	elems := make([]decoder.Value, 0, v.Size)
	offset := v.DataOffset
	for i := uint(0); i < v.Size; i++ {
		val, err := dd.DecodeOne(offset)
		if err != nil {
			return nil, err
		}
		elems = append(elems, val)
		offset, err = dd.SkipValue(val)
		if err != nil {
			return nil, err
		}
	}
	return elems, nil
}
