// Package wavio reads and writes the minimal PCM WAV subset the sea CLI
// bridges to: 16-bit signed integer samples, any channel count, any sample
// rate, no extension chunks.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotRIFF        = errors.New("wavio: not a RIFF file")
	ErrNotWAVE        = errors.New("wavio: not a WAVE file")
	ErrNoFormatChunk  = errors.New("wavio: missing fmt chunk")
	ErrNoDataChunk    = errors.New("wavio: missing data chunk")
	ErrUnsupportedFmt = errors.New("wavio: only 16-bit PCM is supported")
	ErrTruncated      = errors.New("wavio: truncated chunk")
)

// Format describes a WAV file's PCM layout.
type Format struct {
	Channels   int
	SampleRate int
}

// Read parses a 16-bit PCM WAV stream fully into memory, returning one
// []int16 slice per channel (de-interleaved).
func Read(r io.Reader) (Format, [][]int16, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if string(riff[0:4]) != "RIFF" {
		return Format{}, nil, ErrNotRIFF
	}
	if string(riff[8:12]) != "WAVE" {
		return Format{}, nil, ErrNotWAVE
	}

	var format Format
	var bitsPerSample int
	var haveFmt bool

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return Format{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
			}
			if len(body) < 16 {
				return Format{}, nil, fmt.Errorf("%w: fmt chunk too short", ErrTruncated)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if audioFormat != 1 || bitsPerSample != 16 {
				return Format{}, nil, ErrUnsupportedFmt
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return Format{}, nil, ErrNoFormatChunk
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
			}
			frameCount := len(body) / (2 * format.Channels)
			channels := make([][]int16, format.Channels)
			for ch := range channels {
				channels[ch] = make([]int16, frameCount)
			}
			for f := 0; f < frameCount; f++ {
				for ch := 0; ch < format.Channels; ch++ {
					off := (f*format.Channels + ch) * 2
					channels[ch][f] = int16(binary.LittleEndian.Uint16(body[off : off+2]))
				}
			}
			return format, channels, nil

		default:
			skip := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, skip); err != nil {
				return Format{}, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
			}
		}
	}

	return Format{}, nil, ErrNoDataChunk
}

// Write emits a canonical 44-byte-header 16-bit PCM WAV file from
// de-interleaved per-channel samples, all of which must share the same
// length.
func Write(w io.Writer, format Format, channels [][]int16) error {
	if format.Channels != len(channels) {
		return fmt.Errorf("wavio: format.Channels=%d but got %d channel slices", format.Channels, len(channels))
	}
	frameCount := 0
	if len(channels) > 0 {
		frameCount = len(channels[0])
	}
	for _, ch := range channels {
		if len(ch) != frameCount {
			return fmt.Errorf("wavio: channel slices have mismatched lengths")
		}
	}

	bitsPerSample := 16
	blockAlign := format.Channels * bitsPerSample / 8
	byteRate := format.SampleRate * blockAlign
	dataLen := frameCount * blockAlign

	header := header(format, byteRate, blockAlign, bitsPerSample, dataLen)
	if _, err := w.Write(header); err != nil {
		return err
	}

	buf := make([]byte, dataLen)
	for f := 0; f < frameCount; f++ {
		for ch := 0; ch < format.Channels; ch++ {
			off := (f*format.Channels + ch) * 2
			binary.LittleEndian.PutUint16(buf[off:], uint16(channels[ch][f]))
		}
	}
	_, err := w.Write(buf)
	return err
}

func header(format Format, byteRate, blockAlign, bitsPerSample, dataLen int) []byte {
	h := make([]byte, 44)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	return h
}
