package seatest

import (
	"math/rand"
	"testing"

	"github.com/kelindar/sea"
)

func defaultParams() sea.EncodeParams {
	return sea.EncodeParams{
		Mode:              sea.CBR,
		ResidualBits:      6,
		ScaleFactorBits:   4,
		FramesPerChunk:    512,
		ScaleFactorFrames: 20,
		ChunkSize:         2048,
	}
}

func TestRoundTrip_SineWave(t *testing.T) {
	samples := [][]int16{SineWave(2000, 9000, 44)}
	RoundTrip(t, 44100, defaultParams(), samples, 50.0)
}

func TestRoundTrip_WhiteNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := [][]int16{WhiteNoise(rng, 1000, 8000)}
	RoundTrip(t, 44100, defaultParams(), samples, 30.0)
}

func TestRoundTrip_Stereo(t *testing.T) {
	samples := [][]int16{
		SineWave(1200, 6000, 30),
		SquareWave(1200, 4000, 37),
	}
	RoundTrip(t, 48000, defaultParams(), samples, 10.0)
}

func TestSilence_IsAllZero(t *testing.T) {
	s := Silence(100)
	for i, v := range s {
		if v != 0 {
			t.Fatalf("Silence()[%d] = %d, want 0", i, v)
		}
	}
}
