//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly || solaris

package mmdb

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/coredb/mmdb/internal/mmdberrors"
)

// mmapFile memory-maps path read-only and returns the mapped bytes along
// with a closer that unmaps them.
func mmapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, mmdberrors.NewFileOpenError("opening %q: %v", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, mmdberrors.NewIOError("statting %q: %v", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil, mmdberrors.NewInvalidDatabaseError("%q is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, mmdberrors.NewIOError("mmap %q: %v", path, err)
	}

	closer := func() error {
		return unix.Munmap(data)
	}
	return data, closer, nil
}
