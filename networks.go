package mmdb

import (
	"iter"
	"net/netip"
)

// Networks returns an iterator over every network the database assigns a
// record to, in tree order (spec.md's enumeration operation). Each yielded
// Result has Found true; the iteration stops early if the consuming range
// loop breaks.
//
// Ranging stops immediately and surfaces the error through a final Result
// with Err set if the search tree turns out to be corrupt mid-walk.
func (r *Reader) Networks() iter.Seq[Result] {
	return func(yield func(Result) bool) {
		depth := 128
		ipv6 := true
		if r.Metadata.IPVersion == 4 {
			depth = 32
			ipv6 = false
		}

		type frame struct {
			node uint
			bit  int
			addr [16]byte
		}
		stack := []frame{{node: 0, bit: 0}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch {
			case f.node == r.tree.NodeCount():
				continue // no record assigned to this subtree

			case f.node > r.tree.NodeCount():
				offset := f.node - r.tree.NodeCount() - dataSectionSeparatorSize
				res := Result{
					reader:    r,
					ip:        addrFromTreeBits(f.addr, ipv6),
					found:     true,
					prefixLen: f.bit,
					offset:    offset,
				}
				if !yield(res) {
					return
				}

			case f.bit >= depth:
				yield(Result{err: ErrCorruptSearchTree})
				return

			default:
				byteIdx := f.bit >> 3
				bitPos := 7 - uint(f.bit&7)

				left := f.addr
				right := f.addr
				right[byteIdx] |= 1 << bitPos

				leftNode := r.tree.ReadRecord(f.node, false)
				rightNode := r.tree.ReadRecord(f.node, true)

				stack = append(stack, frame{node: rightNode, bit: f.bit + 1, addr: right})
				stack = append(stack, frame{node: leftNode, bit: f.bit + 1, addr: left})
			}
		}
	}
}

func addrFromTreeBits(addr [16]byte, ipv6 bool) netip.Addr {
	if ipv6 {
		return netip.AddrFrom16(addr)
	}
	var b4 [4]byte
	copy(b4[:], addr[:4])
	return netip.AddrFrom4(b4)
}
