package mmdb

import "net/netip"

// Result is the outcome of a Lookup: whether a matching record was found,
// the netmask at which it matched, and (if found) an Entry cursor into the
// data section.
type Result struct {
	reader *Reader
	ip     netip.Addr

	found     bool
	prefixLen int
	offset    uint
	err       error
}

// Found reports whether ip matched a record in the search tree. A false
// Found with a nil Err means the address is simply not covered by the
// database — that is not an error condition.
func (r Result) Found() bool {
	return r.found && r.err == nil
}

// Err returns the error, if any, that occurred while resolving the
// lookup. When Err is non-nil, Found is always false.
func (r Result) Err() error {
	return r.err
}

// Netmask returns the number of leading bits of ip's own address family
// (32 for IPv4, 128 for IPv6) that were fixed by the matching search-tree
// node, i.e. the prefix length of the network the match applies to.
func (r Result) Netmask() int {
	return r.prefixLen
}

// Prefix returns the network (IP address masked to Netmask bits, plus the
// bit length) that the match applies to. It is the zero Prefix if Found is
// false.
func (r Result) Prefix() netip.Prefix {
	if !r.Found() {
		return netip.Prefix{}
	}
	return netip.PrefixFrom(r.ip, r.prefixLen).Masked()
}

// Entry returns a cursor into the data section for the matched record. It
// is the zero Entry if Found is false; navigating a zero Entry returns an
// error rather than panicking, since its offset points at the start of the
// data section rather than at nothing.
func (r Result) Entry() Entry {
	if !r.Found() {
		return Entry{}
	}
	return Entry{reader: r.reader, offset: r.offset}
}

// GetValue is shorthand for r.Entry().GetValue(path...); called on a
// not-found Result it returns (Value{}, false, nil), matching the
// not-an-error semantics of a missing path element.
func (r Result) GetValue(path ...string) (Value, bool, error) {
	if r.err != nil {
		return Value{}, false, r.err
	}
	if !r.Found() {
		return Value{}, false, nil
	}
	return r.Entry().GetValue(path...)
}

// GetEntryDataList is shorthand for r.Entry().GetEntryDataList(); called on
// a not-found Result it returns (nil, nil).
func (r Result) GetEntryDataList() (*EntryDataList, error) {
	if r.err != nil {
		return nil, r.err
	}
	if !r.Found() {
		return nil, nil
	}
	return r.Entry().GetEntryDataList()
}
