package mmdb

import "os"

// openMappedFile returns the database's bytes and a closer, choosing
// between a platform mmap implementation and a plain read based on o.
func openMappedFile(path string, o readerOptions) ([]byte, func() error, error) {
	if o.noMmap {
		return readFileFallback(path)
	}
	return mmapFile(path)
}

// readFileFallback reads the whole file into a heap-allocated buffer. It
// needs no closer: the buffer is reclaimed by the garbage collector like
// any other Go value.
func readFileFallback(path string) ([]byte, func() error, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, invalidFileOpenErrf("opening %q: %v", path, err)
	}
	return buf, nil, nil
}
