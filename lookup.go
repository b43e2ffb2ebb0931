package mmdb

import (
	"net"
	"net/netip"
)

// Lookup resolves ip against the search tree and returns a Result
// describing the match (or lack of one). Looking up an IPv6 address
// against an IPv4-only database is reported through Result.Err, not a
// panic or a silent empty match.
func (r *Reader) Lookup(ip netip.Addr) Result {
	if !ip.IsValid() {
		return Result{ip: ip, err: invalidDataErrf("invalid IP address")}
	}

	isV4 := ip.Is4() || ip.Is4In6()

	switch {
	case r.Metadata.IPVersion == 4 && !isV4:
		return Result{ip: ip, err: invalidDataErrf(
			"cannot look up an IPv6 address in an IPv4-only database")}

	case r.Metadata.IPVersion == 4:
		var addr [16]byte
		b4 := ip.As4()
		copy(addr[:4], b4[:])
		return r.walk(ip, addr, 0, 0, 32, 0)

	case isV4:
		return r.walk(ip, ip.As16(), r.ipv4Start, r.ipv4StartBit, 128, r.ipv4StartBit)

	default:
		return r.walk(ip, ip.As16(), 0, 0, 128, 0)
	}
}

// walk runs the tree traversal and translates the tree's global bit depth
// (which for a dual-stack database's IPv4 lookups starts past the 96-bit
// ::ffff:0:0 prefix) back into a netmask relative to ip's own address
// family.
func (r *Reader) walk(ip netip.Addr, addr [16]byte, startNode uint, startBit, depth, netmaskBase int) Result {
	res, err := r.tree.Walk(addr, startNode, startBit, depth)
	if err != nil {
		return Result{ip: ip, err: err}
	}
	return Result{
		reader:    r,
		ip:        ip,
		found:     res.Found,
		prefixLen: res.Netmask - netmaskBase,
		offset:    res.Offset,
	}
}

// LookupString parses s as an IP address and looks it up, mirroring the C
// API's two-stage MMDB_lookup_string contract: a parse failure and a
// database error are returned separately so callers can tell "not an IP
// address" apart from "database problem".
func (r *Reader) LookupString(s string) (Result, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Result{}, invalidDataErrf("parsing %q as an IP address: %v", s, err)
	}
	return r.Lookup(ip), nil
}

// LookupSockaddr extracts the IP address from addr and looks it up. It
// accepts the net.Addr implementations net.TCPAddr, net.UDPAddr, and
// net.IPAddr.
func (r *Reader) LookupSockaddr(addr net.Addr) (Result, error) {
	var ipAddr net.IP
	switch a := addr.(type) {
	case *net.TCPAddr:
		ipAddr = a.IP
	case *net.UDPAddr:
		ipAddr = a.IP
	case *net.IPAddr:
		ipAddr = a.IP
	default:
		return Result{}, invalidDataErrf("unsupported net.Addr type %T", addr)
	}

	ip, ok := netip.AddrFromSlice(ipAddr)
	if !ok {
		return Result{}, invalidDataErrf("could not convert %v to an IP address", addr)
	}
	return r.Lookup(ip.Unmap()), nil
}
