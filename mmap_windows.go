//go:build windows

package mmdb

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/coredb/mmdb/internal/mmdberrors"
)

func unsafeSlice(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// mmapFile memory-maps path read-only using the Win32 file-mapping API and
// returns the mapped bytes along with a closer that unmaps and closes the
// mapping and file handles.
func mmapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, mmdberrors.NewFileOpenError("opening %q: %v", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, mmdberrors.NewIOError("statting %q: %v", path, err)
	}
	size := fi.Size()
	if size == 0 {
		f.Close()
		return nil, nil, mmdberrors.NewInvalidDatabaseError("%q is empty", path)
	}

	low := uint32(size)
	high := uint32(size >> 32)
	mapping, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, high, low, nil)
	if err != nil {
		f.Close()
		return nil, nil, mmdberrors.NewIOError("CreateFileMapping %q: %v", path, err)
	}

	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		f.Close()
		return nil, nil, mmdberrors.NewIOError("MapViewOfFile %q: %v", path, err)
	}

	data := unsafeSlice(addr, int(size))

	closer := func() error {
		err := windows.UnmapViewOfFile(addr)
		windows.CloseHandle(mapping)
		f.Close()
		return err
	}
	return data, closer, nil
}
