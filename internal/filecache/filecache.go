// Package filecache provides random-access reads over an encoded sea file
// backed by mmap, with an in-memory index mapping chunk number to byte
// offset so a seeking decoder never has to scan from the front.
package filecache

import (
	"errors"
	"fmt"

	"codeberg.org/go-mmap/mmap"
	"github.com/kelindar/intmap"
)

var (
	ErrClosed       = errors.New("filecache: reader is closed")
	ErrOutOfBounds  = errors.New("filecache: read would exceed file bounds")
	ErrUnknownChunk = errors.New("filecache: chunk not indexed")
)

// File is a read-only, mmap-backed view over a sea container with a chunk
// index built once at Open time.
type File struct {
	file       *mmap.File
	lookup     *intmap.Map // chunk number -> byte offset
	size       int64
	chunkCount int
	closed     bool
}

// Open mmaps filename for reading. chunkSize and headerSize describe a
// fixed-size chunk layout starting at headerSize bytes into the file;
// Open builds the chunk index from that layout without reading the chunk
// bodies themselves.
func Open(filename string, headerSize, chunkSize int) (*File, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("filecache: invalid chunk size %d", chunkSize)
	}

	f, err := mmap.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("filecache: opening %s: %w", filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filecache: stat %s: %w", filename, err)
	}

	size := info.Size()
	payload := size - int64(headerSize)
	chunkCount := 0
	if payload > 0 {
		chunkCount = int(payload / int64(chunkSize))
	}

	lookup := intmap.New(max(chunkCount, 8), .95)
	for i := 0; i < chunkCount; i++ {
		lookup.Store(uint32(i), uint32(headerSize+i*chunkSize))
	}

	return &File{file: f, lookup: lookup, size: size, chunkCount: chunkCount}, nil
}

// Chunk returns a copy of the bytes for the given chunk number.
func (f *File) Chunk(index int, chunkSize int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	offset, ok := f.lookup.Load(uint32(index))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChunk, index)
	}
	return f.ReadAt(int64(offset), chunkSize)
}

// ReadAt reads length bytes at offset, copying out of the mapped region.
func (f *File) ReadAt(offset int64, length int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if offset < 0 || offset+int64(length) > f.size {
		return nil, ErrOutOfBounds
	}
	buf := make([]byte, length)
	if _, err := f.file.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("filecache: read at %d: %w", offset, err)
	}
	return buf, nil
}

// Len returns the number of indexed chunks.
func (f *File) Len() int {
	return f.chunkCount
}

// Size returns the total file size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Close unmaps the file.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}
