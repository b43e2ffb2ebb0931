package mmdb

import (
	"strconv"
	"strings"

	"github.com/coredb/mmdb/internal/decoder"
	"github.com/coredb/mmdb/internal/mmdberrors"
)

// Entry is a cursor into a database's data section, as produced by a
// successful Lookup. Its lifetime is bounded by the Reader it came from.
type Entry struct {
	reader *Reader
	offset uint
}

// Offset returns the entry's byte offset within the database's data
// section. It is stable for a given database version and may be used as a
// cache key by callers who want to cache decoded records across lookups
// themselves (the reader does not do this for them).
func (e Entry) Offset() uint {
	return e.offset
}

// GetValue navigates from e by a sequence of path elements without
// materializing the whole record (spec.md §4.2's get_path): each element
// indexes into a map (by key) or an array (by decimal index, negative
// counting from the end). An empty path returns the value at e directly.
//
// Path-index syntax is fixed as: an optional leading '-', then decimal
// digits with no leading zero unless the value is exactly "0" ("-0" is
// rejected) — this is
// the policy spec.md §9 leaves open for implementations to decide.
//
// A missing map key or an out-of-range array index is not an error: it
// returns a zero Value and ok=false. A type mismatch (indexing into a
// scalar, or a non-integer path element against an array) is an error with
// code LookupPathDoesNotMatchData or InvalidLookupPath respectively.
func (e Entry) GetValue(path ...string) (Value, bool, error) {
	if e.reader == nil {
		return Value{}, false, invalidDataErrf("GetValue called on a zero Entry")
	}
	dd := e.reader.dataDecoder

	cur, err := dd.DecodeOne(e.offset)
	if err != nil {
		return Value{}, false, err
	}

	for _, seg := range path {
		switch cur.Kind {
		case decoder.KindMap:
			entries, err := mapEntries(&dd, cur)
			if err != nil {
				return Value{}, false, err
			}
			found := false
			for _, en := range entries {
				if en.Key == seg {
					cur = en.Value
					found = true
					break
				}
			}
			if !found {
				return Value{}, false, nil
			}
		case decoder.KindArray:
			idx, err := parsePathIndex(seg)
			if err != nil {
				return Value{}, false, mmdberrors.New(
					InvalidLookupPath, "path element %q is not a valid array index: %v", seg, err)
			}
			elems, err := arrayElements(&dd, cur)
			if err != nil {
				return Value{}, false, err
			}
			if idx < 0 {
				idx += len(elems)
			}
			if idx < 0 || idx >= len(elems) {
				return Value{}, false, nil
			}
			cur = elems[idx]
		default:
			return Value{}, false, mmdberrors.New(
				LookupPathDoesNotMatchData,
				"path element %q cannot be applied to a %s value", seg, cur.Kind)
		}
	}

	return cur, true, nil
}

func parsePathIndex(seg string) (int, error) {
	s := seg
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') || (neg && s == "0") {
		return 0, strconv.ErrSyntax
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if neg {
		n = -n
	}
	return n, nil
}

// ListNode is one node of the depth-first linearization produced by
// GetEntryDataList: the "Value list node" from spec.md §3. A Map node's
// Size children are (key, value-subtree) pairs; an Array node's Size
// children are element subtrees — both follow immediately in Next order,
// mirroring libmaxminddb's MMDB_entry_data_list_s chain.
type ListNode struct {
	Value Value
	Next  *ListNode
}

// EntryDataList is an owned, flattened depth-first linearization of a
// decoded value tree. Its string/bytes payloads are copies made at decode
// time and do not borrow from the database's buffer; the chain is owned by
// the caller and released with FreeEntryDataList.
type EntryDataList struct {
	Head *ListNode
}

// maxEntryListDepth bounds recursive materialization, using the same value
// as the decoder package's maximumDataStructureDepth (libmaxminddb's
// limit), so a corrupt, deeply recursive data section cannot exhaust the
// stack.
const maxEntryListDepth = 512

// GetEntryDataList materializes the full value tree rooted at e as a flat
// depth-first list (spec.md §4.2's decode_tree).
func (e Entry) GetEntryDataList() (*EntryDataList, error) {
	if e.reader == nil {
		return nil, invalidDataErrf("GetEntryDataList called on a zero Entry")
	}
	dd := e.reader.dataDecoder
	head, _, _, err := buildEntryList(&dd, e.offset, 0)
	if err != nil {
		return nil, err
	}
	return &EntryDataList{Head: head}, nil
}

func buildEntryList(dd *decoder.DataDecoder, offset uint, depth int) (head, tail *ListNode, next uint, err error) {
	if depth > maxEntryListDepth {
		return nil, nil, 0, mmdberrors.NewInvalidDatabaseError(
			"exceeded maximum data structure depth; database is likely corrupt")
	}

	v, err := dd.DecodeOne(offset)
	if err != nil {
		return nil, nil, 0, err
	}
	node := &ListNode{Value: v}

	// A container reached through a pointer is followed by whatever comes
	// after the pointer's own bytes, not by the end of the target's subtree.
	ctrlKind, _, _, _ := dd.DecodeCtrlData(offset)
	viaPointer := ctrlKind == decoder.KindPointer

	switch v.Kind {
	case decoder.KindMap:
		cur := node
		off := v.DataOffset
		for i := uint(0); i < v.Size; i++ {
			keyVal, err := dd.DecodeOne(off)
			if err != nil {
				return nil, nil, 0, err
			}
			if keyVal.Kind != decoder.KindString {
				return nil, nil, 0, mmdberrors.NewInvalidDatabaseError(
					"map key at offset %d decoded as %s, not a string", off, keyVal.Kind)
			}
			keyNode := &ListNode{Value: keyVal}
			cur.Next = keyNode
			cur = keyNode

			valHead, valTail, nextOff, err := buildEntryList(dd, keyVal.NextOffset, depth+1)
			if err != nil {
				return nil, nil, 0, err
			}
			cur.Next = valHead
			cur = valTail
			off = nextOff
		}
		if viaPointer {
			off = v.NextOffset
		}
		return node, cur, off, nil

	case decoder.KindArray:
		cur := node
		off := v.DataOffset
		for i := uint(0); i < v.Size; i++ {
			elHead, elTail, nextOff, err := buildEntryList(dd, off, depth+1)
			if err != nil {
				return nil, nil, 0, err
			}
			cur.Next = elHead
			cur = elTail
			off = nextOff
		}
		if viaPointer {
			off = v.NextOffset
		}
		return node, cur, off, nil

	default:
		return node, node, v.NextOffset, nil
	}
}

// FreeEntryDataList releases list. Go's garbage collector reclaims the
// chain on its own; this is kept as an explicit call so code ported from
// the C API (which must call MMDB_free_entry_data_list) keeps a clear
// release point, and so a future pooled-allocator implementation has a
// seam to hook into without an API break.
func FreeEntryDataList(list *EntryDataList) {
	_ = list
}

// ToInterface rebuilds list into ordinary Go values (map[string]any,
// []any, and the scalar Go types Interface returns) by consuming the
// linearization exactly as repeated GetValue descents would see it. Used
// by the dump package and by tests that want a structural comparison
// instead of walking the list by hand.
func (l *EntryDataList) ToInterface() (any, error) {
	if l == nil || l.Head == nil {
		return nil, nil
	}
	v, _, err := nodeToInterface(l.Head)
	return v, err
}

func nodeToInterface(n *ListNode) (any, *ListNode, error) {
	if n == nil {
		return nil, nil, mmdberrors.NewInvalidDatabaseError("entry data list ended unexpectedly")
	}

	switch n.Value.Kind {
	case decoder.KindMap:
		count := n.Value.Size
		m := make(map[string]any, count)
		cur := n.Next
		for i := uint(0); i < count; i++ {
			if cur == nil || cur.Value.Kind != decoder.KindString {
				return nil, nil, mmdberrors.NewInvalidDatabaseError(
					"malformed entry data list: expected a map key")
			}
			key, _ := cur.Value.String()
			cur = cur.Next

			var val any
			var err error
			val, cur, err = nodeToInterface(cur)
			if err != nil {
				return nil, nil, err
			}
			m[key] = val
		}
		return m, cur, nil

	case decoder.KindArray:
		count := n.Value.Size
		arr := make([]any, count)
		cur := n.Next
		for i := uint(0); i < count; i++ {
			var val any
			var err error
			val, cur, err = nodeToInterface(cur)
			if err != nil {
				return nil, nil, err
			}
			arr[i] = val
		}
		return arr, cur, nil

	default:
		return Interface(n.Value), n.Next, nil
	}
}
