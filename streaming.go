package sea

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kelindar/sea/internal/chunk"
	"github.com/kelindar/sea/internal/lms"
)

// Encoder writes a SEA file incrementally, one frame at a time, without
// needing the total frame count up front. It always writes total_frames=0
// in the header (the streaming sentinel); a decoder reading the result
// back stops at whichever comes first: EOF or a short final chunk.
type Encoder struct {
	w          io.Writer
	channels   int
	params     EncodeParams
	chunkParam chunk.Params
	states     []lms.State
	pending    [][]int16 // buffered frames not yet flushed, per channel
	closed     bool
}

// NewEncoder writes the file header and metadata block to w, then returns
// an Encoder ready to accept frames.
func NewEncoder(w io.Writer, channels int, sampleRate uint32, params EncodeParams, metadata map[string]string) (*Encoder, error) {
	if err := params.validate(channels); err != nil {
		return nil, err
	}
	if params.ChunkSize < chunk.HeaderSize(channels) {
		return nil, fmt.Errorf("%w: chunk_size %d too small for %d channels", ErrParamOutOfRange, params.ChunkSize, channels)
	}

	metaBlob, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	hdr := make([]byte, 0, headerBytes+len(metaBlob))
	hdr = append(hdr, magic...)
	hdr = append(hdr, version)
	hdr = append(hdr, byte(channels))
	hdr = appendUint16(hdr, uint16(params.ChunkSize))
	hdr = appendUint16(hdr, uint16(params.FramesPerChunk))
	hdr = appendUint32(hdr, sampleRate)
	hdr = appendUint32(hdr, 0) // total_frames: streaming sentinel
	hdr = appendUint32(hdr, uint32(len(metaBlob)))
	hdr = append(hdr, metaBlob...)

	if _, err := w.Write(hdr); err != nil {
		return nil, err
	}

	pending := make([][]int16, channels)
	for ch := range pending {
		pending[ch] = make([]int16, 0, params.FramesPerChunk)
	}

	return &Encoder{
		w:        w,
		channels: channels,
		params:   params,
		chunkParam: chunk.Params{
			Type:            params.chunkType(),
			ScaleFactorBits: params.ScaleFactorBits,
			ResidualBits:    params.ResidualBits,
			SFFrames:        params.ScaleFactorFrames,
			ChunkSize:       params.ChunkSize,
			VBRTargetBPS:    params.VBRTargetBPS,
		},
		states:  make([]lms.State, channels),
		pending: pending,
	}, nil
}

// WriteFrame appends one frame (one sample per channel, in channel order)
// and flushes a full chunk to the writer whenever enough frames have
// accumulated.
func (e *Encoder) WriteFrame(frame []int16) error {
	if e.closed {
		return fmt.Errorf("sea: encoder already closed")
	}
	if len(frame) != e.channels {
		return fmt.Errorf("%w: frame has %d samples, want %d", ErrParamOutOfRange, len(frame), e.channels)
	}
	for ch, v := range frame {
		e.pending[ch] = append(e.pending[ch], v)
	}
	if len(e.pending[0]) >= e.params.FramesPerChunk {
		return e.flush()
	}
	return nil
}

func (e *Encoder) flush() error {
	n := len(e.pending[0])
	if n == 0 {
		return nil
	}
	data, next, err := chunk.Encode(e.channels, e.pending, e.states, e.chunkParam)
	if err != nil {
		return mapChunkErr(err)
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	e.states = next
	for ch := range e.pending {
		e.pending[ch] = e.pending[ch][:0]
	}
	return nil
}

// Close flushes any remaining buffered frames. The streaming format has no
// per-chunk frame count (only the global frames_per_chunk), so a trailing
// partial chunk is padded out with silent frames to a full frames_per_chunk
// before flushing; a caller tracking its own true sample count should trim
// that many trailing frames after decoding. It does not close the
// underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	n := len(e.pending[0])
	if n > 0 && n < e.params.FramesPerChunk {
		for ch := range e.pending {
			pad := make([]int16, e.params.FramesPerChunk-n)
			e.pending[ch] = append(e.pending[ch], pad...)
		}
	}
	return e.flush()
}

// Decoder reads a SEA file incrementally, one chunk at a time.
type Decoder struct {
	r              io.Reader
	channels       int
	chunkSize      int
	framesPerChunk int
	sampleRate     uint32
	totalFrames    int
	remaining      int
	streaming      bool
	metadata       map[string]string
	states         []lms.State
	done           bool
}

// NewDecoder reads and parses the file header and metadata block from r,
// leaving r positioned at the first chunk.
func NewDecoder(r io.Reader) (*Decoder, error) {
	hdr := make([]byte, headerBytes)
	if _, err := io.ReadFull(r, hdr); err != nil {
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
	if _, err := io.ReadFull(r, metaBlob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	metadata, err := decodeMetadata(metaBlob)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		r:              r,
		channels:       channels,
		chunkSize:      chunkSize,
		framesPerChunk: framesPerChunk,
		sampleRate:     sampleRate,
		totalFrames:    totalFrames,
		remaining:      totalFrames,
		streaming:      totalFrames == 0,
		metadata:       metadata,
		states:         make([]lms.State, channels),
	}, nil
}

// SampleRate returns the stream's sample rate.
func (d *Decoder) SampleRate() uint32 { return d.sampleRate }

// Channels returns the stream's channel count.
func (d *Decoder) Channels() int { return d.channels }

// Metadata returns the parsed metadata block.
func (d *Decoder) Metadata() map[string]string { return d.metadata }

// ReadChunk decodes and returns the next chunk's worth of PCM, one slice
// per channel. It returns io.EOF once the stream is exhausted, per
// total_frames for a known-length file or end-of-input / an all-zero
// sentinel chunk for a streaming one.
func (d *Decoder) ReadChunk() ([][]int16, error) {
	if d.done {
		return nil, io.EOF
	}
	if !d.streaming && d.remaining <= 0 {
		d.done = true
		return nil, io.EOF
	}

	body := make([]byte, d.chunkSize)
	n, err := io.ReadFull(d.r, body)
	if err != nil {
		d.done = true
		if d.streaming && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	_ = n

	if d.streaming && isAllZero(body) {
		d.done = true
		return nil, io.EOF
	}

	frameCount := d.framesPerChunk
	if !d.streaming && d.remaining < d.framesPerChunk {
		frameCount = d.remaining
	}

	samples, next, err := chunk.Decode(body, d.channels, frameCount, d.states)
	if err != nil {
		d.done = true
		return nil, mapChunkErr(err)
	}
	d.states = next
	d.remaining -= frameCount
	return samples, nil
}
