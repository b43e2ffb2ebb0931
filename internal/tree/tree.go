// Package tree implements the MMDB search tree: the binary trie over IP
// address bits that resolves an address to a data-section offset (or "no
// match") and the netmask at which that resolution happened.
package tree

import "github.com/coredb/mmdb/internal/mmdberrors"

// Tree is a read-only view over a search tree embedded in an MMDB file's
// buffer, starting at byte 0 of that buffer.
type Tree struct {
	buffer     []byte
	nodeCount  uint
	recordSize uint // 24, 28, or 32
	nodeBytes  uint // full node byte size: 2*recordSize/8
}

// New builds a Tree over buffer (the whole file, or at least the prefix
// containing the search tree) with the given node count and per-record bit
// width.
func New(buffer []byte, nodeCount, recordSize uint) (*Tree, error) {
	switch recordSize {
	case 24, 28, 32:
	default:
		return nil, mmdberrors.NewInvalidMetadataError("unsupported record_size %d", recordSize)
	}
	nodeBytes := 2 * recordSize / 8
	if uint(len(buffer)) < nodeCount*nodeBytes {
		return nil, mmdberrors.NewCorruptSearchTreeError(
			"search tree truncated: need %d bytes for %d nodes, buffer has %d",
			nodeCount*nodeBytes, nodeCount, len(buffer))
	}
	return &Tree{buffer: buffer, nodeCount: nodeCount, recordSize: recordSize, nodeBytes: nodeBytes}, nil
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() uint { return t.nodeCount }

// ByteLength returns the search tree's length in bytes (nodeCount * nodeBytes).
func (t *Tree) ByteLength() uint { return t.nodeCount * t.nodeBytes }

// ReadRecord reads one of the two records (left if right==false, right if
// right==true) of the node at the given node id.
func (t *Tree) ReadRecord(node uint, right bool) uint {
	base := node * t.nodeBytes
	buf := t.buffer
	switch t.recordSize {
	case 24:
		o := base
		if right {
			o += 3
		}
		return uint(buf[o])<<16 | uint(buf[o+1])<<8 | uint(buf[o+2])
	case 32:
		o := base
		if right {
			o += 4
		}
		return uint(buf[o])<<24 | uint(buf[o+1])<<16 | uint(buf[o+2])<<8 | uint(buf[o+3])
	default: // 28
		// Layout: L0 L1 L2 M R1 R2 R3, where M's high nibble belongs to
		// the left record and low nibble belongs to the right record.
		mid := uint(buf[base+3])
		if !right {
			return (mid&0xF0)<<20 | uint(buf[base])<<16 | uint(buf[base+1])<<8 | uint(buf[base+2])
		}
		return (mid&0x0F)<<24 | uint(buf[base+4])<<16 | uint(buf[base+5])<<8 | uint(buf[base+6])
	}
}

// Result is the outcome of a tree walk.
type Result struct {
	// Offset is the data-section offset when Found is true.
	Offset uint
	// Netmask is the number of address bits consumed before the walk
	// terminated.
	Netmask int
	Found   bool
}

// Walk traverses the tree starting at startNode (already positioned
// startBit bits deep, per an IPv4-in-IPv6 pre-walk) over the given 16-byte
// address, consuming up to depth bits total.
func (t *Tree) Walk(addr [16]byte, startNode uint, startBit, depth int) (Result, error) {
	node := startNode
	bit := startBit
	for ; bit < depth; bit++ {
		if node >= t.nodeCount {
			break
		}
		byteIdx := bit >> 3
		bitPos := 7 - uint(bit&7)
		right := (addr[byteIdx]>>bitPos)&1 == 1
		node = t.ReadRecord(node, right)
	}

	switch {
	case node == t.nodeCount:
		return Result{Netmask: bit, Found: false}, nil
	case node > t.nodeCount:
		separatorSize := uint(16)
		offset := node - t.nodeCount - separatorSize
		return Result{Offset: offset, Netmask: bit, Found: true}, nil
	case bit >= depth:
		return Result{}, mmdberrors.NewCorruptSearchTreeError(
			"search tree did not terminate within %d bits", depth)
	default:
		return Result{Netmask: bit, Found: false}, nil
	}
}

// IPv4Start walks the tree down the IPv4-mapped prefix (::ffff:0:0/96: 80
// zero bits, then 16 one bits) once at open time, so repeated IPv4 lookups
// against a dual-stack database can start partway down the trie instead of
// re-walking
// the first 96 bits of every address.
func (t *Tree) IPv4Start() (node uint, bitDepth int) {
	node = 0
	i := 0
	for ; i < 96 && node < t.nodeCount; i++ {
		node = t.ReadRecord(node, i >= 80)
	}
	return node, i
}
