package sea

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleWave(n int, amp int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		v := (i * 37) % int(2*amp)
		out[i] = int16(v) - amp
	}
	return out
}

func squareWave(n int, amp int16, periodFrames int) []int16 {
	out := make([]int16, n)
	for i := range out {
		if (i/periodFrames)%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

func psnr(original, decoded []int16) float64 {
	var sumSq float64
	for i := range original {
		d := float64(original[i]) - float64(decoded[i])
		sumSq += d * d
	}
	if sumSq == 0 {
		return 1000 // effectively infinite
	}
	mse := sumSq / float64(len(original))
	return 20*math.Log10(32767) - 10*math.Log10(mse)
}

func defaultParams() EncodeParams {
	return EncodeParams{
		Mode:              CBR,
		ResidualBits:      6,
		ScaleFactorBits:   4,
		FramesPerChunk:    512,
		ScaleFactorFrames: 20,
		ChunkSize:         2048,
	}
}

func TestEncodeDecode_RoundTrip_Mono(t *testing.T) {
	samples := [][]int16{triangleWave(2000, 9000)}
	data, err := Encode(samples, 44100, defaultParams(), map[string]string{"artist": "test"})
	require.NoError(t, err)

	result, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), result.SampleRate)
	assert.Equal(t, 1, result.Channels)
	assert.Equal(t, 2000, result.Frames)
	assert.Equal(t, "test", result.Metadata["artist"])

	p := psnr(samples[0], result.Samples[0])
	assert.GreaterOrEqual(t, p, 50.0, "rb=6 round trip should be near-lossless")
}

func TestEncodeDecode_RoundTrip_Stereo(t *testing.T) {
	samples := [][]int16{
		triangleWave(1300, 6000),
		squareWave(1300, 4000, 37),
	}
	data, err := Encode(samples, 48000, defaultParams(), nil)
	require.NoError(t, err)

	result, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Channels)
	assert.Equal(t, 1300, result.Frames)
	assert.Len(t, result.Samples, 2)
}

// A full-scale square wave is the worst case for a sign-LMS predictor: every
// transition is a total surprise, and an 8-level (rb=4) quantizer can only
// approximate the resulting large residual coarsely until the predictor
// catches up a few samples later. 15dB is comfortably below what this
// configuration measures in practice; it's a floor against regressions, not
// a claim that rb=4 is high fidelity on transient-heavy material.
func TestEncodeDecode_SquareWave_PSNR(t *testing.T) {
	n := 44100
	samples := [][]int16{squareWave(n, 20000, 22)} // ~1kHz at 44.1kHz
	params := defaultParams()
	params.ResidualBits = 4
	data, err := Encode(samples, 44100, params, nil)
	require.NoError(t, err)

	result, err := Decode(data)
	require.NoError(t, err)
	p := psnr(samples[0], result.Samples[0])
	assert.GreaterOrEqual(t, p, 15.0)
}

func TestEncodeDecode_VBR_RoundTrip(t *testing.T) {
	samples := [][]int16{triangleWave(900, 8000)}
	params := defaultParams()
	params.Mode = VBR
	params.VBRTargetBPS = 4.0
	data, err := Encode(samples, 44100, params, nil)
	require.NoError(t, err)

	result, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 900, result.Frames)
}

func TestEncodeDecode_ChunkBoundaryIdempotence(t *testing.T) {
	samples := [][]int16{triangleWave(1500, 7000)}
	params := defaultParams()
	data, err := Encode(samples, 44100, params, nil)
	require.NoError(t, err)

	first, err := Decode(data)
	require.NoError(t, err)

	data2, err := Encode(first.Samples, 44100, params, nil)
	require.NoError(t, err)

	second, err := Decode(data2)
	require.NoError(t, err)
	assert.Equal(t, first.Samples, second.Samples)
}

func TestDecode_BadMagic(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	data, err := Encode(samples, 44100, defaultParams(), nil)
	require.NoError(t, err)

	data[0] = 'X'
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	data, err := Encode(samples, 44100, defaultParams(), nil)
	require.NoError(t, err)

	data[4] = 0x02
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecode_Truncated(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	data, err := Encode(samples, 44100, defaultParams(), nil)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-5])
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.NotNil(t, de.Partial)
}

func TestDecode_BadReserved_Propagates(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	data, err := Encode(samples, 44100, defaultParams(), nil)
	require.NoError(t, err)

	// Locate the first chunk's reserved byte: header + metadata(0) + 3.
	chunkStart := headerBytes
	data[chunkStart+3] = 0x00

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrBadReserved)
}

func TestEncode_InvalidParams(t *testing.T) {
	samples := [][]int16{triangleWave(100, 5000)}
	p := defaultParams()
	p.ResidualBits = 9
	_, err := Encode(samples, 44100, p, nil)
	assert.ErrorIs(t, err, ErrParamOutOfRange)
}

func TestMetadata_RejectsBadKeysAndValues(t *testing.T) {
	samples := [][]int16{triangleWave(10, 100)}
	_, err := Encode(samples, 44100, defaultParams(), map[string]string{"bad=key": "x"})
	assert.ErrorIs(t, err, ErrBadMetadata)

	_, err = Encode(samples, 44100, defaultParams(), map[string]string{"k": "line1\nline2"})
	assert.ErrorIs(t, err, ErrBadMetadata)
}

func TestMetadata_CaseInsensitiveKeys(t *testing.T) {
	samples := [][]int16{triangleWave(10, 100)}
	data, err := Encode(samples, 44100, defaultParams(), map[string]string{"Artist": "X"})
	require.NoError(t, err)

	result, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "X", result.Metadata["artist"])
}
