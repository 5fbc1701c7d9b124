// Package fsio defines the filesystem collaborator the format openers and
// the track engine depend on instead of touching *os.File directly (§6.2),
// so tests can substitute an in-memory file and the engine stays agnostic
// of how bytes actually reach disk.
package fsio

import (
	"io"
	"os"
)

// File is the minimal surface the engine needs from a backing file: size,
// random-access read/write, and close.
type File interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Close() error
}

// osFile adapts *os.File to File.
type osFile struct {
	*os.File
}

// Open opens path for read/write, creating it if create is true.
func Open(path string, create bool) (File, error) {
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return osFile{f}, nil
}

func (f osFile) Size() (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
