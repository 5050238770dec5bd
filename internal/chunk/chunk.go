// Package chunk encodes and decodes one fixed-byte-length SEA chunk: the
// LMS header, packed scale factors, optional VBR residual-width codes, and
// packed residuals. It owns the rate selector (rate.go) since picking the
// best scale factor/width per slot requires the same scratch-LMS simulation
// loop the decoder replays.
package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kelindar/sea/internal/bitio"
	"github.com/kelindar/sea/internal/dqt"
	"github.com/kelindar/sea/internal/lms"
)

// Chunk type byte values.
const (
	TypeCBR byte = 0x01
	TypeVBR byte = 0x02
)

const (
	reservedByte     = 0x5A
	fixedHeaderBytes = 4  // type, sf_res, sf_frames, reserved
	lmsStateBytes    = 16 // per channel: 4x i16 history, 4x i16 weights
)

var (
	ErrBadReserved     = errors.New("chunk: bad reserved byte")
	ErrBadChunkType    = errors.New("chunk: bad chunk type")
	ErrParamOutOfRange = errors.New("chunk: parameter out of range")
	ErrTruncated       = errors.New("chunk: truncated input")
	ErrEncodeOverflow  = errors.New("chunk: encoded size exceeds chunk_size")
)

// Params configures one chunk's rate selection and packing.
type Params struct {
	Type            byte
	ScaleFactorBits int
	ResidualBits    int
	SFFrames        int
	ChunkSize       int
	VBRTargetBPS    float32
}

func (p Params) validate() error {
	if p.Type != TypeCBR && p.Type != TypeVBR {
		return fmt.Errorf("%w: chunk type %d", ErrParamOutOfRange, p.Type)
	}
	if p.ScaleFactorBits < 1 || p.ScaleFactorBits > 15 {
		return fmt.Errorf("%w: scale_factor_bits %d", ErrParamOutOfRange, p.ScaleFactorBits)
	}
	if p.ResidualBits < 1 || p.ResidualBits > 8 {
		return fmt.Errorf("%w: residual_bits %d", ErrParamOutOfRange, p.ResidualBits)
	}
	if p.SFFrames < 1 || p.SFFrames > 255 {
		return fmt.Errorf("%w: sf_frames %d", ErrParamOutOfRange, p.SFFrames)
	}
	if p.ChunkSize <= 0 || p.ChunkSize > 0xFFFF {
		return fmt.Errorf("%w: chunk_size %d", ErrParamOutOfRange, p.ChunkSize)
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clampWidth(w int) int {
	switch {
	case w < 1:
		return 1
	case w > 8:
		return 8
	default:
		return w
	}
}

// Encode packs one chunk's worth of interleaved-by-channel frames.
// samples[ch] must all share the same length (the chunk's real frame
// count, before container padding). states holds the LMS state entering
// the chunk, one per channel, and is left untouched; the returned state
// slice is the state to carry into the next chunk.
func Encode(channels int, samples [][]int16, states []lms.State, params Params) (data []byte, next []lms.State, err error) {
	if err := params.validate(); err != nil {
		return nil, nil, err
	}
	if len(samples) != channels || len(states) != channels {
		return nil, nil, fmt.Errorf("%w: channel count mismatch", ErrParamOutOfRange)
	}

	frameCount := 0
	if channels > 0 {
		frameCount = len(samples[0])
	}
	for _, ch := range samples {
		if len(ch) != frameCount {
			return nil, nil, fmt.Errorf("%w: channel frame counts differ", ErrParamOutOfRange)
		}
	}

	sb, rb := params.ScaleFactorBits, params.ResidualBits
	slots := ceilDiv(frameCount, params.SFFrames)
	items := slots * channels

	cbrTable, err := dqt.Build(sb, rb)
	if err != nil {
		return nil, nil, err
	}
	vbrTables := map[int]dqt.Table{}
	if params.Type == TypeVBR {
		for lenCode := 0; lenCode < 4; lenCode++ {
			w := clampWidth(rb + lenCode - 1)
			if _, ok := vbrTables[w]; !ok {
				t, err := dqt.Build(sb, w)
				if err != nil {
					return nil, nil, err
				}
				vbrTables[w] = t
			}
		}
	}

	desiredWidth := float64(rb)
	if params.VBRTargetBPS > 0 {
		desiredWidth = float64(params.VBRTargetBPS)
	}

	scaleFactorIdx := make([]uint32, items)
	lengthCodes := make([]uint32, items)
	residualCodes := make([][]int, items)
	residualWidths := make([]int, items)

	running := make([]lms.State, channels)
	copy(running, states)

	for slot := 0; slot < slots; slot++ {
		start := slot * params.SFFrames
		end := start + params.SFFrames
		if end > frameCount {
			end = frameCount
		}
		for ch := 0; ch < channels; ch++ {
			idx := slot*channels + ch
			frames := samples[ch][start:end]

			switch params.Type {
			case TypeCBR:
				sf, codes, endState := selectCBR(cbrTable, frames, running[ch])
				scaleFactorIdx[idx] = uint32(sf)
				residualCodes[idx] = codes
				residualWidths[idx] = rb
				running[ch] = endState
			case TypeVBR:
				sf, lenCode, width, codes, endState := selectVBR(sb, rb, vbrTables, frames, running[ch], desiredWidth, vbrBiasWeight)
				scaleFactorIdx[idx] = uint32(sf)
				lengthCodes[idx] = uint32(lenCode)
				residualCodes[idx] = codes
				residualWidths[idx] = width
				running[ch] = endState
			}
		}
	}

	out := make([]byte, 0, params.ChunkSize)
	out = append(out, params.Type)
	out = append(out, byte(sb<<4)|byte(rb&0x0F))
	out = append(out, byte(params.SFFrames))
	out = append(out, reservedByte)

	for ch := 0; ch < channels; ch++ {
		out = append(out, wireBytes(states[ch].Snapshot())...)
	}

	sfBytes, err := bitio.Pack(scaleFactorIdx, sb)
	if err != nil {
		return nil, nil, fmt.Errorf("chunk: packing scale factors: %w", err)
	}
	out = append(out, sfBytes...)

	if params.Type == TypeVBR {
		lenBytes, err := bitio.Pack(lengthCodes, 2)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk: packing vbr lengths: %w", err)
		}
		out = append(out, lenBytes...)
	}

	w := bitio.NewWriter()
	for idx := 0; idx < items; idx++ {
		width := residualWidths[idx]
		for _, code := range residualCodes[idx] {
			if err := w.WriteBits(uint32(code), width); err != nil {
				return nil, nil, fmt.Errorf("chunk: packing residuals: %w", err)
			}
		}
	}
	out = append(out, w.Bytes()...)

	if len(out) > params.ChunkSize {
		return nil, nil, fmt.Errorf("%w: %d bytes packed, chunk_size is %d", ErrEncodeOverflow, len(out), params.ChunkSize)
	}

	padded := make([]byte, params.ChunkSize)
	copy(padded, out)

	return padded, running, nil
}

// Decode unpacks one chunk. frameCount is supplied by the container (it is
// not stored in the chunk itself). states is only checked for its length and
// is not modified: the entering LMS state is read from the chunk's own
// header instead, then advanced by decoding, and the returned slice is the
// state to carry into the next chunk.
func Decode(data []byte, channels, frameCount int, states []lms.State) (samples [][]int16, next []lms.State, err error) {
	if len(data) < fixedHeaderBytes {
		return nil, nil, ErrTruncated
	}
	typ := data[0]
	sfRes := data[1]
	sfFrames := int(data[2])
	reserved := data[3]

	if reserved != reservedByte {
		return nil, nil, ErrBadReserved
	}
	if typ != TypeCBR && typ != TypeVBR {
		return nil, nil, ErrBadChunkType
	}

	sb := int(sfRes >> 4)
	rb := int(sfRes & 0x0F)
	if sb < 1 || sb > 15 {
		return nil, nil, fmt.Errorf("%w: scale_factor_bits %d", ErrParamOutOfRange, sb)
	}
	if rb < 1 || rb > 8 {
		return nil, nil, fmt.Errorf("%w: residual_bits %d", ErrParamOutOfRange, rb)
	}
	if sfFrames < 1 {
		return nil, nil, fmt.Errorf("%w: sf_frames %d", ErrParamOutOfRange, sfFrames)
	}
	if len(states) != channels {
		return nil, nil, fmt.Errorf("%w: channel count mismatch", ErrParamOutOfRange)
	}

	off := fixedHeaderBytes
	lmsLen := lmsStateBytes * channels
	if len(data) < off+lmsLen {
		return nil, nil, ErrTruncated
	}

	next = make([]lms.State, channels)
	for ch := 0; ch < channels; ch++ {
		next[ch].Restore(wireFromBytes(data[off+ch*lmsStateBytes : off+(ch+1)*lmsStateBytes]))
	}
	off += lmsLen

	slots := ceilDiv(frameCount, sfFrames)
	items := slots * channels

	sfByteLen := bitio.ByteLen(items, sb)
	if len(data) < off+sfByteLen {
		return nil, nil, ErrTruncated
	}
	sfValues, err := bitio.Unpack(data[off:off+sfByteLen], sb, items)
	if err != nil {
		return nil, nil, fmt.Errorf("chunk: unpacking scale factors: %w", err)
	}
	off += sfByteLen

	var lengthCodes []uint32
	if typ == TypeVBR {
		lenByteLen := bitio.ByteLen(items, 2)
		if len(data) < off+lenByteLen {
			return nil, nil, ErrTruncated
		}
		lengthCodes, err = bitio.Unpack(data[off:off+lenByteLen], 2, items)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk: unpacking vbr lengths: %w", err)
		}
		off += lenByteLen
	}

	reader := bitio.NewReader(data[off:])
	samples = make([][]int16, channels)
	for ch := range samples {
		samples[ch] = make([]int16, frameCount)
	}

	tables := map[int]dqt.Table{}
	getTable := func(width int) (dqt.Table, error) {
		if t, ok := tables[width]; ok {
			return t, nil
		}
		t, err := dqt.Build(sb, width)
		if err != nil {
			return dqt.Table{}, err
		}
		tables[width] = t
		return t, nil
	}

	for slot := 0; slot < slots; slot++ {
		start := slot * sfFrames
		end := start + sfFrames
		if end > frameCount {
			end = frameCount
		}
		for ch := 0; ch < channels; ch++ {
			idx := slot*channels + ch
			sf := int(sfValues[idx])

			width := rb
			if typ == TypeVBR {
				width = clampWidth(rb + int(lengthCodes[idx]) - 1)
			}

			table, err := getTable(width)
			if err != nil {
				return nil, nil, err
			}
			if sf >= len(table.Rows) {
				return nil, nil, fmt.Errorf("%w: scale factor index %d out of range", ErrParamOutOfRange, sf)
			}
			row := table.Rows[sf]

			st := next[ch]
			for f := start; f < end; f++ {
				code, err := reader.ReadBits(width)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
				}
				if int(code) >= len(row) {
					return nil, nil, fmt.Errorf("%w: residual code %d out of range", ErrParamOutOfRange, code)
				}

				predicted := st.Predict()
				dequantized := row[code]
				reconstructed := lms.ClampInt16(predicted + dequantized)
				samples[ch][f] = reconstructed
				st.Update(int32(reconstructed), dequantized)
			}
			next[ch] = st
		}
	}

	return samples, next, nil
}

// HeaderSize returns the fixed (non-payload) byte length of a chunk header
// for the given channel count, used by callers validating chunk_size
// against spec.md's invariant.
func HeaderSize(channels int) int {
	return fixedHeaderBytes + lmsStateBytes*channels
}

func wireBytes(w lms.Wire) []byte {
	b := make([]byte, lmsStateBytes)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(w.History[i]))
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(b[8+i*2:], uint16(w.Weights[i]))
	}
	return b
}

func wireFromBytes(b []byte) lms.Wire {
	var w lms.Wire
	for i := 0; i < 4; i++ {
		w.History[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	for i := 0; i < 4; i++ {
		w.Weights[i] = int16(binary.LittleEndian.Uint16(b[8+i*2:]))
	}
	return w
}
