// Package sea implements the SEA codec: a low-complexity, lossy,
// time-domain codec for 16-bit PCM built around a four-tap sign-based LMS
// predictor and a scale-factor/residual quantizer, framed into
// fixed-byte-length chunks for constant-time seeking.
package sea

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/kelindar/sea/internal/chunk"
	"github.com/kelindar/sea/internal/lms"
)

const (
	magic         = "SEAC"
	version       = 1
	headerBytes   = 4 + 1 + 1 + 2 + 2 + 4 + 4 + 4 // magic,version,channels,chunk_size,frames_per_chunk,sample_rate,total_frames,metadata_size
)

// Mode selects constant- or variable-bitrate residual packing.
type Mode byte

const (
	CBR Mode = 1
	VBR Mode = 2
)

// EncodeParams configures one Encode call. Zero-valued fields are invalid
// except VBRTargetBPS, which only applies when Mode is VBR.
type EncodeParams struct {
	Mode              Mode
	ResidualBits      int
	ScaleFactorBits   int
	FramesPerChunk    int
	ScaleFactorFrames int
	VBRTargetBPS      float32
	ChunkSize         int
}

func (p EncodeParams) validate(channels int) error {
	switch {
	case channels == 0 || channels > 255:
		return fmt.Errorf("%w: channels %d", ErrParamOutOfRange, channels)
	case p.Mode != CBR && p.Mode != VBR:
		return fmt.Errorf("%w: mode %d", ErrParamOutOfRange, p.Mode)
	case p.ResidualBits < 1 || p.ResidualBits > 8:
		return fmt.Errorf("%w: residual_bits %d", ErrParamOutOfRange, p.ResidualBits)
	case p.ScaleFactorBits < 1 || p.ScaleFactorBits > 15:
		return fmt.Errorf("%w: scale_factor_bits %d", ErrParamOutOfRange, p.ScaleFactorBits)
	case p.FramesPerChunk < 1 || p.FramesPerChunk > 0xFFFF:
		return fmt.Errorf("%w: frames_per_chunk %d", ErrParamOutOfRange, p.FramesPerChunk)
	case p.ScaleFactorFrames < 1 || p.ScaleFactorFrames > 0xFF:
		return fmt.Errorf("%w: scale_factor_frames %d", ErrParamOutOfRange, p.ScaleFactorFrames)
	case p.ChunkSize < 1 || p.ChunkSize > 0xFFFF:
		return fmt.Errorf("%w: chunk_size %d", ErrParamOutOfRange, p.ChunkSize)
	case p.Mode == VBR && p.VBRTargetBPS <= 0:
		return fmt.Errorf("%w: vbr_target_bps %v", ErrParamOutOfRange, p.VBRTargetBPS)
	default:
		return nil
	}
}

func (p EncodeParams) chunkType() byte {
	if p.Mode == VBR {
		return chunk.TypeVBR
	}
	return chunk.TypeCBR
}

// Result is what Decode returns: the reconstructed audio plus the header
// fields and metadata that traveled alongside it.
type Result struct {
	SampleRate uint32
	Channels   int
	Frames     int
	Samples    [][]int16 // one slice per channel
	Metadata   map[string]string
}

// Encode serializes samples (one slice per channel, all the same length)
// into a complete SEA file.
func Encode(samples [][]int16, sampleRate uint32, params EncodeParams, metadata map[string]string) ([]byte, error) {
	channels := len(samples)
	if err := params.validate(channels); err != nil {
		return nil, err
	}

	frameCount := 0
	if channels > 0 {
		frameCount = len(samples[0])
	}
	for _, ch := range samples {
		if len(ch) != frameCount {
			return nil, fmt.Errorf("%w: channel frame counts differ", ErrParamOutOfRange)
		}
	}

	if params.ChunkSize < chunk.HeaderSize(channels) {
		return nil, fmt.Errorf("%w: chunk_size %d too small for %d channels", ErrParamOutOfRange, params.ChunkSize, channels)
	}

	metaBlob, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerBytes+len(metaBlob)+params.ChunkSize)
	out = append(out, magic...)
	out = append(out, version)
	out = append(out, byte(channels))
	out = appendUint16(out, uint16(params.ChunkSize))
	out = appendUint16(out, uint16(params.FramesPerChunk))
	out = appendUint32(out, sampleRate)
	out = appendUint32(out, uint32(frameCount))
	out = appendUint32(out, uint32(len(metaBlob)))
	out = append(out, metaBlob...)

	states := make([]lms.State, channels)
	chunkParams := chunk.Params{
		Type:            params.chunkType(),
		ScaleFactorBits: params.ScaleFactorBits,
		ResidualBits:    params.ResidualBits,
		SFFrames:        params.ScaleFactorFrames,
		ChunkSize:       params.ChunkSize,
		VBRTargetBPS:    params.VBRTargetBPS,
	}

	for start := 0; start < frameCount; start += params.FramesPerChunk {
		end := start + params.FramesPerChunk
		if end > frameCount {
			end = frameCount
		}

		slice := make([][]int16, channels)
		for ch := range slice {
			slice[ch] = samples[ch][start:end]
		}

		data, next, err := chunk.Encode(channels, slice, states, chunkParams)
		if err != nil {
			return nil, mapChunkErr(err)
		}
		out = append(out, data...)
		states = next
	}

	return out, nil
}

// Decode parses a complete SEA file back into PCM samples.
func Decode(data []byte) (*Result, error) {
	if len(data) < headerBytes {
		return nil, &DecodeError{Err: ErrTruncated}
	}
	if string(data[0:4]) != magic {
		return nil, &DecodeError{Err: ErrBadMagic}
	}
	if data[4] != version {
		return nil, &DecodeError{Err: ErrUnsupportedVersion}
	}

	channels := int(data[5])
	if channels == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("%w: channels 0", ErrParamOutOfRange)}
	}
	chunkSize := int(binary.LittleEndian.Uint16(data[6:8]))
	framesPerChunk := int(binary.LittleEndian.Uint16(data[8:10]))
	sampleRate := binary.LittleEndian.Uint32(data[10:14])
	totalFrames := int(binary.LittleEndian.Uint32(data[14:18]))
	metaSize := int(binary.LittleEndian.Uint32(data[18:22]))

	off := headerBytes
	if len(data) < off+metaSize {
		return nil, &DecodeError{Err: ErrTruncated}
	}
	metadata, err := decodeMetadata(data[off : off+metaSize])
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	off += metaSize

	if framesPerChunk == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("%w: frames_per_chunk 0", ErrParamOutOfRange)}
	}
	if chunkSize < chunk.HeaderSize(channels) {
		return nil, &DecodeError{Err: fmt.Errorf("%w: chunk_size %d too small for %d channels", ErrParamOutOfRange, chunkSize, channels)}
	}

	samples := make([][]int16, channels)
	for ch := range samples {
		samples[ch] = make([]int16, 0, totalFrames)
	}
	states := make([]lms.State, channels)

	streaming := totalFrames == 0
	remaining := totalFrames

	for {
		if !streaming && remaining <= 0 {
			break
		}
		if off >= len(data) {
			if streaming {
				break
			}
			partial := &Result{SampleRate: sampleRate, Channels: channels, Samples: samples, Metadata: metadata}
			partial.Frames = len(samples[0])
			return nil, &DecodeError{Err: ErrTruncated, Partial: partial}
		}
		if off+chunkSize > len(data) {
			if streaming {
				break
			}
			partial := &Result{SampleRate: sampleRate, Channels: channels, Samples: samples, Metadata: metadata}
			partial.Frames = len(samples[0])
			return nil, &DecodeError{Err: ErrTruncated, Partial: partial}
		}

		body := data[off : off+chunkSize]
		if streaming && isAllZero(body) {
			break
		}

		frameCount := framesPerChunk
		if !streaming && remaining < framesPerChunk {
			frameCount = remaining
		}

		decoded, next, err := chunk.Decode(body, channels, frameCount, states)
		if err != nil {
			partial := &Result{SampleRate: sampleRate, Channels: channels, Samples: samples, Metadata: metadata}
			partial.Frames = len(samples[0])
			return nil, &DecodeError{Err: mapChunkErr(err), Partial: partial}
		}

		for ch := range samples {
			samples[ch] = append(samples[ch], decoded[ch]...)
		}
		states = next
		off += chunkSize
		remaining -= frameCount
	}

	frames := 0
	if channels > 0 {
		frames = len(samples[0])
	}

	return &Result{
		SampleRate: sampleRate,
		Channels:   channels,
		Frames:     frames,
		Samples:    samples,
		Metadata:   metadata,
	}, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// mapChunkErr translates internal/chunk's sentinels to this package's
// public ones. Parameter and overflow errors keep the chunk error's text as
// context; reserved-byte, chunk-type and truncation errors do not.
func mapChunkErr(err error) error {
	switch {
	case err == nil:
		return nil
	case wraps(err, chunk.ErrBadReserved):
		return fmt.Errorf("%w", ErrBadReserved)
	case wraps(err, chunk.ErrBadChunkType):
		return fmt.Errorf("%w", ErrBadChunkType)
	case wraps(err, chunk.ErrParamOutOfRange):
		return fmt.Errorf("%w: %v", ErrParamOutOfRange, err)
	case wraps(err, chunk.ErrTruncated):
		return fmt.Errorf("%w", ErrTruncated)
	case wraps(err, chunk.ErrEncodeOverflow):
		return fmt.Errorf("%w: %v", ErrEncodeOverflow, err)
	default:
		return err
	}
}

func wraps(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// encodeMetadata renders a key/value map as sorted, `\n`-separated
// `key=value` pairs. Sorting keeps encode output deterministic across
// platforms regardless of map iteration order.
func encodeMetadata(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if strings.ContainsAny(k, "=\n") {
			return nil, fmt.Errorf("%w: key %q contains '=' or newline", ErrBadMetadata, k)
		}
		if strings.Contains(meta[k], "\n") {
			return nil, fmt.Errorf("%w: value for key %q contains newline", ErrBadMetadata, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(meta[k])
	}
	return []byte(b.String()), nil
}

func decodeMetadata(blob []byte) (map[string]string, error) {
	if len(blob) == 0 {
		return map[string]string{}, nil
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(blob), "\n") {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed entry %q", ErrBadMetadata, line)
		}
		meta[strings.ToLower(k)] = v
	}
	return meta, nil
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
