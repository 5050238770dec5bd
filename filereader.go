package sea

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/kelindar/sea/internal/chunk"
	"github.com/kelindar/sea/internal/filecache"
	"github.com/kelindar/sea/internal/lms"
)

// FileReader provides constant-time random access to an on-disk SEA file:
// it memory-maps the chunk payload instead of reading the whole file into
// memory, and relies on every chunk carrying its own entering LMS state (see
// internal/chunk) so any chunk can be decoded independently of its
// neighbors.
type FileReader struct {
	cache          *filecache.File
	channels       int
	chunkSize      int
	framesPerChunk int
	sampleRate     uint32
	totalFrames    int
	metadata       map[string]string
}

// OpenFile memory-maps filename and parses its header. The chunk payload
// itself is left unread until Chunk is called.
func OpenFile(filename string) (*FileReader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr := make([]byte, headerBytes)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if string(hdr[0:4]) != magic {
		return nil, ErrBadMagic
	}
	if hdr[4] != version {
		return nil, ErrUnsupportedVersion
	}

	channels := int(hdr[5])
	if channels == 0 {
		return nil, fmt.Errorf("%w: channels 0", ErrParamOutOfRange)
	}
	chunkSize := int(binary.LittleEndian.Uint16(hdr[6:8]))
	framesPerChunk := int(binary.LittleEndian.Uint16(hdr[8:10]))
	sampleRate := binary.LittleEndian.Uint32(hdr[10:14])
	totalFrames := int(binary.LittleEndian.Uint32(hdr[14:18]))
	metaSize := int(binary.LittleEndian.Uint32(hdr[18:22]))

	if framesPerChunk == 0 {
		return nil, fmt.Errorf("%w: frames_per_chunk 0", ErrParamOutOfRange)
	}
	if chunkSize < chunk.HeaderSize(channels) {
		return nil, fmt.Errorf("%w: chunk_size %d too small for %d channels", ErrParamOutOfRange, chunkSize, channels)
	}

	metaBlob := make([]byte, metaSize)
	if _, err := io.ReadFull(f, metaBlob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	metadata, err := decodeMetadata(metaBlob)
	if err != nil {
		return nil, err
	}

	cache, err := filecache.Open(filename, headerBytes+metaSize, chunkSize)
	if err != nil {
		return nil, err
	}

	return &FileReader{
		cache:          cache,
		channels:       channels,
		chunkSize:      chunkSize,
		framesPerChunk: framesPerChunk,
		sampleRate:     sampleRate,
		totalFrames:    totalFrames,
		metadata:       metadata,
	}, nil
}

// SampleRate returns the file's sample rate.
func (f *FileReader) SampleRate() uint32 { return f.sampleRate }

// Channels returns the file's channel count.
func (f *FileReader) Channels() int { return f.channels }

// Frames returns the total frame count recorded in the header, or 0 for a
// file written by the streaming encoder.
func (f *FileReader) Frames() int { return f.totalFrames }

// Metadata returns the file's metadata block.
func (f *FileReader) Metadata() map[string]string { return f.metadata }

// ChunkCount returns the number of chunks the file was indexed with.
func (f *FileReader) ChunkCount() int { return f.cache.Len() }

// Chunk decodes chunk number index independently of every other chunk,
// taking constant time regardless of the file's total length: the LMS state
// each chunk needs to decode travels inside that chunk's own header.
func (f *FileReader) Chunk(index int) ([][]int16, error) {
	body, err := f.cache.Chunk(index, f.chunkSize)
	if err != nil {
		return nil, err
	}

	frameCount := f.framesPerChunk
	if f.totalFrames > 0 {
		if remaining := f.totalFrames - index*f.framesPerChunk; remaining < f.framesPerChunk {
			frameCount = remaining
		}
	}
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: chunk %d past end of file", ErrParamOutOfRange, index)
	}

	states := make([]lms.State, f.channels)
	samples, _, err := chunk.Decode(body, f.channels, frameCount, states)
	if err != nil {
		return nil, mapChunkErr(err)
	}
	return samples, nil
}

// Close unmaps the underlying file.
func (f *FileReader) Close() error {
	return f.cache.Close()
}
