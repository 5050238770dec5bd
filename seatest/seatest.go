// Package seatest provides synthetic PCM fixtures and a round-trip test
// helper, the generalization of the teacher's TestWith/mock SDK pattern to a
// codec with no on-disk test-data directory to mount.
package seatest

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/sea"
)

// Silence returns n frames of zero-valued PCM.
func Silence(n int) []int16 {
	return make([]int16, n)
}

// SquareWave returns n frames of a full-period square wave at the given
// amplitude and half-period length (in frames).
func SquareWave(n int, amp int16, periodFrames int) []int16 {
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

// SineWave returns n frames of a sine wave at amp amplitude, cycling once
// every periodFrames frames.
func SineWave(n int, amp int16, periodFrames int) []int16 {
	out := make([]int16, n)
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(periodFrames)
		out[i] = int16(float64(amp) * math.Sin(theta))
	}
	return out
}

// WhiteNoise returns n frames of uniform random PCM in [-amp, amp], drawn
// from rng. Callers supply an explicit *rand.Rand so fixtures stay
// reproducible across runs.
func WhiteNoise(rng *rand.Rand, n int, amp int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(rng.Intn(2*int(amp)+1)) - amp
	}
	return out
}

// PSNR computes peak signal-to-noise ratio between original and decoded PCM
// of equal length, in dB. A perfect match reports 1000 (effectively
// infinite) rather than +Inf, so callers can compare it with GreaterOrEqual
// without special-casing silence.
func PSNR(original, decoded []int16) float64 {
	var sumSq float64
	for i := range original {
		d := float64(original[i]) - float64(decoded[i])
		sumSq += d * d
	}
	if sumSq == 0 {
		return 1000
	}
	mse := sumSq / float64(len(original))
	return 20*math.Log10(32767) - 10*math.Log10(mse)
}

// RoundTrip encodes samples with params, decodes the result, asserts the
// round trip succeeded and the per-channel PSNR meets minPSNR, and returns
// the decoded result for further assertions.
func RoundTrip(t *testing.T, sampleRate uint32, params sea.EncodeParams, samples [][]int16, minPSNR float64) *sea.Result {
	t.Helper()

	data, err := sea.Encode(samples, sampleRate, params, nil)
	require.NoError(t, err, "encode")

	result, err := sea.Decode(data)
	require.NoError(t, err, "decode")

	require.Len(t, result.Samples, len(samples), "channel count")
	for ch := range samples {
		p := PSNR(samples[ch], result.Samples[ch])
		assert.GreaterOrEqualf(t, p, minPSNR, "channel %d PSNR %.2fdB below threshold %.2fdB", ch, p, minPSNR)
	}
	return result
}
