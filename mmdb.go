// Package mmdb implements a read-only decoder for the MaxMind DB (MMDB)
// binary format: metadata parsing, IP-to-data-offset search tree lookups,
// and navigation/materialization of the decoded data section. It does not
// write databases and does not fetch them over the network.
package mmdb

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/coredb/mmdb/internal/decoder"
	"github.com/coredb/mmdb/internal/tree"
)

// metadataStartMarker is the 14-byte sequence that precedes an MMDB file's
// metadata section (which runs from just after it to the end of the file),
// searched for backward from the end of the file per spec.md §4.1.
var metadataStartMarker = []byte("\xAB\xCD\xEFMaxMind.com")

// maxMetadataBlockSize bounds how far back from the end of the file the
// metadata marker search looks, so a file with no marker at all fails fast
// instead of scanning the whole thing byte by byte.
const maxMetadataBlockSize = 131072

// dataSectionSeparatorSize is the zero-padding between the end of the
// search tree and the start of the data section.
const dataSectionSeparatorSize = 16

// Reader provides read-only access to an MMDB file's search tree and data
// section. A Reader is safe for concurrent use by multiple goroutines; it
// holds no per-lookup mutable state.
type Reader struct {
	buffer      []byte
	dataDecoder decoder.DataDecoder
	tree        *tree.Tree
	Metadata    Metadata

	ipv4Start     uint
	ipv4StartBit  int
	hasMappedIPv4 bool

	metadataOffset  uint
	metadataDecoder decoder.DataDecoder

	opts   readerOptions
	closer func() error
}

// ReaderOption configures Open/FromBytes.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	noMmap bool
}

// WithoutMmap disables mmap-backed file access, always reading the whole
// file into a heap-allocated buffer instead. Use this on platforms where
// memory-mapping is undesirable (network filesystems, constrained
// environments) or unsupported.
func WithoutMmap() ReaderOption {
	return func(o *readerOptions) { o.noMmap = true }
}

func newReaderOptions(opts []ReaderOption) readerOptions {
	var o readerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open opens the MMDB file at path. By default the file is memory-mapped
// (see WithoutMmap to disable this); the returned Reader must be released
// with Close when no longer needed, though a runtime.SetFinalizer backstop
// releases the mapping if Close is never called.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	o := newReaderOptions(opts)

	buf, closer, err := openMappedFile(path, o)
	if err != nil {
		return nil, err
	}

	r, err := newReader(buf, o)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	r.closer = closer

	if closer != nil {
		runtime.SetFinalizer(r, (*Reader).Close)
	}
	return r, nil
}

// FromBytes builds a Reader directly over an in-memory MMDB image, e.g. one
// already fetched or embedded via go:embed. buf is retained, not copied:
// the caller must not mutate it while the Reader is in use.
func FromBytes(buf []byte, opts ...ReaderOption) (*Reader, error) {
	o := newReaderOptions(opts)
	return newReader(buf, o)
}

func newReader(buf []byte, o readerOptions) (*Reader, error) {
	metadataStart, err := findMetadataStart(buf)
	if err != nil {
		return nil, err
	}

	md, err := parseMetadata(buf[metadataStart:])
	if err != nil {
		return nil, err
	}

	t, err := tree.New(buf, md.NodeCount, md.RecordSize)
	if err != nil {
		return nil, err
	}

	searchTreeEnd := t.ByteLength()
	dataStart := searchTreeEnd + dataSectionSeparatorSize
	if dataStart > uint(len(buf)) {
		return nil, invalidDataErrf(
			"search tree (%d bytes) plus separator exceeds file size %d", searchTreeEnd, len(buf))
	}

	// The data section ends where the metadata marker begins: bound the
	// data decoder to that range so a corrupt or out-of-range pointer/entry
	// offset fails instead of reading straight through into the metadata
	// marker and metadata map bytes.
	dataEnd := metadataStart - uint(len(metadataStartMarker))
	if dataEnd < dataStart {
		return nil, invalidDataErrf(
			"data section end %d precedes data section start %d", dataEnd, dataStart)
	}

	r := &Reader{
		buffer:          buf,
		dataDecoder:     decoder.New(buf[dataStart:dataEnd]),
		tree:            t,
		Metadata:        md,
		metadataOffset:  metadataStart,
		metadataDecoder: decoder.New(buf[metadataStart:]),
		opts:            o,
	}

	if md.IPVersion == 6 {
		node, bitDepth := t.IPv4Start()
		r.ipv4Start = node
		r.ipv4StartBit = bitDepth
		r.hasMappedIPv4 = true
	}

	return r, nil
}

// findMetadataStart scans backward from the end of buf for
// metadataStartMarker, looking no further back than maxMetadataBlockSize,
// and returns the offset immediately after the marker.
func findMetadataStart(buf []byte) (uint, error) {
	searchFrom := 0
	if len(buf) > maxMetadataBlockSize {
		searchFrom = len(buf) - maxMetadataBlockSize
	}
	window := buf[searchFrom:]

	idx := bytes.LastIndex(window, metadataStartMarker)
	if idx == -1 {
		return 0, ErrUnknownDatabaseFormat
	}
	return uint(searchFrom + idx + len(metadataStartMarker)), nil
}

// Close releases resources held by r, unmapping the underlying file if it
// was memory-mapped. Close is idempotent; calling it more than once, or
// never, is safe.
func (r *Reader) Close() error {
	runtime.SetFinalizer(r, nil)
	if r.closer == nil {
		return nil
	}
	closer := r.closer
	r.closer = nil
	return closer()
}

func (r *Reader) String() string {
	return fmt.Sprintf("mmdb.Reader{DatabaseType: %q, NodeCount: %d, RecordSize: %d}",
		r.Metadata.DatabaseType, r.Metadata.NodeCount, r.Metadata.RecordSize)
}
