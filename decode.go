package mmdb

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/coredb/mmdb/internal/decoder"
)

// structTag is the struct tag recognized when decoding into a struct
// field: a bare name to match against a map key, "-" to skip the field
// entirely, and an empty/absent tag to fall back to a case-insensitive
// match on the field name.
const structTag = "maxminddb"

// Decode decodes the value at e into v, which must be a non-nil pointer.
// Maps decode into Go maps or structs (matched by the maxminddb struct
// tag, falling back to a case-insensitive field-name match); arrays decode
// into Go slices or arrays; scalars decode into the matching Go type, an
// interface{}, or (for the integer kinds) a wider numeric type that can
// hold the value without overflow.
func (e Entry) Decode(v any) error {
	if e.reader == nil {
		return invalidDataErrf("Decode called on a zero Entry")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("mmdb: Decode requires a non-nil pointer, got %T", v)
	}

	dd := e.reader.dataDecoder
	val, err := dd.DecodeOne(e.offset)
	if err != nil {
		return err
	}
	return decodeValueInto(&dd, val, rv.Elem(), 0)
}

// Decode is shorthand for r.Entry().Decode(v).
func (r Result) Decode(v any) error {
	if r.err != nil {
		return r.err
	}
	if !r.Found() {
		return nil
	}
	return r.Entry().Decode(v)
}

// DecodePath navigates path as GetValue would (string path elements match
// map keys, int path elements match array indices) and decodes whatever it
// finds into v. If path does not resolve to a value, v is left untouched
// and DecodePath returns nil, matching GetValue's not-an-error semantics
// for a missing path.
func (e Entry) DecodePath(v any, path ...any) error {
	if e.reader == nil {
		return invalidDataErrf("DecodePath called on a zero Entry")
	}
	strPath := make([]string, len(path))
	for i, p := range path {
		switch x := p.(type) {
		case string:
			strPath[i] = x
		case int:
			strPath[i] = strconv.Itoa(x)
		default:
			return fmt.Errorf("mmdb: unsupported path element type %T at index %d", p, i)
		}
	}

	val, ok, err := e.GetValue(strPath...)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("mmdb: DecodePath requires a non-nil pointer, got %T", v)
	}
	dd := e.reader.dataDecoder
	return decodeValueInto(&dd, val, rv.Elem(), 0)
}

// DecodePath is shorthand for r.Entry().DecodePath(v, path...).
func (r Result) DecodePath(v any, path ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.Found() {
		return nil
	}
	return r.Entry().DecodePath(v, path...)
}

func decodeValueInto(dd *decoder.DataDecoder, v decoder.Value, target reflect.Value, depth int) error {
	if depth > maxEntryListDepth {
		return invalidDataErrf("exceeded maximum data structure depth; database is likely corrupt")
	}

	target = indirect(target)

	if target.Kind() == reflect.Interface && target.NumMethod() == 0 {
		dyn, err := toDynamic(dd, v, depth)
		if err != nil {
			return err
		}
		if dyn == nil {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		target.Set(reflect.ValueOf(dyn))
		return nil
	}

	switch v.Kind {
	case decoder.KindMap:
		return decodeMap(dd, v, target, depth)
	case decoder.KindArray:
		return decodeSlice(dd, v, target, depth)
	case decoder.KindString:
		s, _ := v.String()
		return setString(target, s)
	case decoder.KindBytes:
		b, _ := v.Bytes()
		return setBytes(target, b)
	case decoder.KindBool:
		b, _ := v.Bool()
		return setBool(target, b)
	case decoder.KindFloat32:
		f, _ := v.Float32()
		return setFloat(target, float64(f))
	case decoder.KindFloat64:
		f, _ := v.Float64()
		return setFloat(target, f)
	case decoder.KindInt32:
		i, _ := v.Int32()
		return setInt(target, int64(i))
	case decoder.KindUint16:
		i, _ := v.Uint16()
		return setUint(target, uint64(i))
	case decoder.KindUint32:
		i, _ := v.Uint32()
		return setUint(target, uint64(i))
	case decoder.KindUint64:
		i, _ := v.Uint64()
		return setUint(target, i)
	case decoder.KindUint128:
		i, _ := v.Uint128()
		return setUint128(target, i)
	default:
		return fmt.Errorf("mmdb: cannot decode kind %s", v.Kind)
	}
}

// toDynamic materializes v (and, recursively, its subtree) as ordinary Go
// values, for decoding into an interface{} target.
func toDynamic(dd *decoder.DataDecoder, v decoder.Value, depth int) (any, error) {
	if depth > maxEntryListDepth {
		return nil, invalidDataErrf("exceeded maximum data structure depth; database is likely corrupt")
	}
	switch v.Kind {
	case decoder.KindMap:
		entries, err := mapEntries(dd, v)
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(entries))
		for _, en := range entries {
			val, err := toDynamic(dd, en.Value, depth+1)
			if err != nil {
				return nil, err
			}
			m[en.Key] = val
		}
		return m, nil
	case decoder.KindArray:
		elems, err := arrayElements(dd, v)
		if err != nil {
			return nil, err
		}
		arr := make([]any, len(elems))
		for i, el := range elems {
			val, err := toDynamic(dd, el, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = val
		}
		return arr, nil
	default:
		return Interface(v), nil
	}
}

func decodeMap(dd *decoder.DataDecoder, v decoder.Value, target reflect.Value, depth int) error {
	entries, err := mapEntries(dd, v)
	if err != nil {
		return err
	}

	switch target.Kind() {
	case reflect.Map:
		if target.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("mmdb: cannot decode a map into %s (key type must be string)", target.Type())
		}
		if target.IsNil() {
			target.Set(reflect.MakeMapWithSize(target.Type(), len(entries)))
		}
		elemType := target.Type().Elem()
		for _, en := range entries {
			elem := reflect.New(elemType).Elem()
			if err := decodeValueInto(dd, en.Value, elem, depth+1); err != nil {
				return err
			}
			target.SetMapIndex(reflect.ValueOf(en.Key).Convert(target.Type().Key()), elem)
		}
		return nil

	case reflect.Struct:
		fields := structFieldsByKey(target.Type())
		for _, en := range entries {
			idx, ok := fields[en.Key]
			if !ok {
				idx, ok = fields[lowerASCII(en.Key)]
			}
			if !ok {
				continue
			}
			if err := decodeValueInto(dd, en.Value, target.FieldByIndex(idx), depth+1); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("mmdb: cannot decode a map into %s", target.Type())
	}
}

func decodeSlice(dd *decoder.DataDecoder, v decoder.Value, target reflect.Value, depth int) error {
	elems, err := arrayElements(dd, v)
	if err != nil {
		return err
	}

	switch target.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(target.Type(), len(elems), len(elems))
		for i, el := range elems {
			if err := decodeValueInto(dd, el, out.Index(i), depth+1); err != nil {
				return err
			}
		}
		target.Set(out)
		return nil

	case reflect.Array:
		if target.Len() < len(elems) {
			return fmt.Errorf("mmdb: array of length %d cannot hold %d decoded elements", target.Len(), len(elems))
		}
		for i, el := range elems {
			if err := decodeValueInto(dd, el, target.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("mmdb: cannot decode an array into %s", target.Type())
	}
}

// structFieldsByKey maps each decoded map key this struct type accepts to
// the reflect.Value.FieldByIndex path that should receive it: the
// maxminddb tag's name when present, otherwise a case-insensitive match on
// the Go field name. A "-" tag excludes the field.
func structFieldsByKey(t reflect.Type) map[string][]int {
	out := make(map[string][]int)
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			idx := append(append([]int{}, prefix...), i)

			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx)
				continue
			}
			if !f.IsExported() {
				continue
			}

			tag := f.Tag.Get(structTag)
			if tag == "-" {
				continue
			}
			name := tag
			if name == "" {
				name = f.Name
			}
			if _, exists := out[name]; !exists {
				out[name] = idx
			}
			if _, exists := out[lowerASCII(name)]; !exists {
				out[lowerASCII(name)] = idx
			}
		}
	}
	walk(t, nil)
	return out
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// indirect follows pointers and non-nil interfaces down to the concrete
// settable value they reference, allocating through nil pointers as it
// goes, the same traversal encoding/json's decoder uses.
func indirect(v reflect.Value) reflect.Value {
	for {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
			continue
		}
		if v.Kind() == reflect.Interface && !v.IsNil() {
			e := v.Elem()
			if e.Kind() == reflect.Pointer && !e.IsNil() {
				v = e
				continue
			}
		}
		break
	}
	return v
}

func setString(target reflect.Value, s string) error {
	if target.Kind() == reflect.String {
		target.SetString(s)
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode a string into %s", target.Type())
}

func setBytes(target reflect.Value, b []byte) error {
	if target.Kind() == reflect.Slice && target.Type().Elem().Kind() == reflect.Uint8 {
		target.SetBytes(append([]byte(nil), b...))
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode bytes into %s", target.Type())
}

func setBool(target reflect.Value, b bool) error {
	if target.Kind() == reflect.Bool {
		target.SetBool(b)
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode a bool into %s", target.Type())
}

func setFloat(target reflect.Value, f float64) error {
	switch target.Kind() {
	case reflect.Float32, reflect.Float64:
		target.SetFloat(f)
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode a float into %s", target.Type())
}

func setInt(target reflect.Value, i int64) error {
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if target.OverflowInt(i) {
			return fmt.Errorf("mmdb: value %d overflows %s", i, target.Type())
		}
		target.SetInt(i)
		return nil
	case reflect.Float32, reflect.Float64:
		target.SetFloat(float64(i))
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode an int32 into %s", target.Type())
}

func setUint(target reflect.Value, u uint64) error {
	switch target.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if target.OverflowUint(u) {
			return fmt.Errorf("mmdb: value %d overflows %s", u, target.Type())
		}
		target.SetUint(u)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if u > (1<<63)-1 || target.OverflowInt(int64(u)) {
			return fmt.Errorf("mmdb: value %d overflows %s", u, target.Type())
		}
		target.SetInt(int64(u))
		return nil
	case reflect.Float32, reflect.Float64:
		target.SetFloat(float64(u))
		return nil
	}
	return fmt.Errorf("mmdb: cannot decode an unsigned integer into %s", target.Type())
}

func setUint128(target reflect.Value, i *big.Int) error {
	if target.Type() == reflect.TypeOf(big.Int{}) {
		target.Set(reflect.ValueOf(*i))
		return nil
	}
	if target.Kind() == reflect.Uint64 || target.Kind() == reflect.Uint {
		if !i.IsUint64() {
			return fmt.Errorf("mmdb: uint128 value %s overflows %s", i, target.Type())
		}
		return setUint(target, i.Uint64())
	}
	return fmt.Errorf("mmdb: cannot decode a uint128 into %s", target.Type())
}
