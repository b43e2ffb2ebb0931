// Package dump implements a deterministic, round-trippable text encoding
// of a decoded MMDB value tree, for debugging and for tests that want to
// assert on a whole record's shape at once instead of field by field. The
// encoding is not part of the MMDB file format itself — it is a debug
// format local to this module, netstring-style so values nest without
// needing a quoting/escaping grammar.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"

	"github.com/coredb/mmdb"
)

// Dump writes a text encoding of list to w.
func Dump(w io.Writer, list *mmdb.EntryDataList) error {
	v, err := list.ToInterface()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if err := writeValue(bw, v); err != nil {
		return err
	}
	return bw.Flush()
}

func writeValue(w *bufio.Writer, v any) error {
	switch x := v.(type) {
	case nil:
		_, err := w.WriteString("N\n")
		return err
	case map[string]any:
		if _, err := fmt.Fprintf(w, "M%d\n", len(x)); err != nil {
			return err
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := writeChunk(w, "K", k); err != nil {
				return err
			}
			if err := writeValue(w, x[k]); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if _, err := fmt.Fprintf(w, "A%d\n", len(x)); err != nil {
			return err
		}
		for _, el := range x {
			if err := writeValue(w, el); err != nil {
				return err
			}
		}
		return nil
	case string:
		return writeChunk(w, "S", x)
	case []byte:
		return writeChunk(w, "B", string(x))
	case bool:
		if x {
			_, err := w.WriteString("Ztrue\n")
			return err
		}
		_, err := w.WriteString("Zfalse\n")
		return err
	case float32:
		_, err := fmt.Fprintf(w, "F32 %s\n", strconv.FormatFloat(float64(x), 'g', -1, 32))
		return err
	case float64:
		_, err := fmt.Fprintf(w, "F64 %s\n", strconv.FormatFloat(x, 'g', -1, 64))
		return err
	case int32:
		_, err := fmt.Fprintf(w, "I32 %d\n", x)
		return err
	case uint16:
		_, err := fmt.Fprintf(w, "U16 %d\n", x)
		return err
	case uint32:
		_, err := fmt.Fprintf(w, "U32 %d\n", x)
		return err
	case uint64:
		_, err := fmt.Fprintf(w, "U64 %d\n", x)
		return err
	case *big.Int:
		_, err := fmt.Fprintf(w, "U128 %s\n", x.String())
		return err
	default:
		return fmt.Errorf("dump: unsupported value type %T", v)
	}
}

func writeChunk(w *bufio.Writer, tag, s string) error {
	_, err := fmt.Fprintf(w, "%s%d:%s\n", tag, len(s), s)
	return err
}
