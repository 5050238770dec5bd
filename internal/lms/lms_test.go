package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestState_GoldenSequence runs a fixed sequence of dequantized residuals
// through predict/reconstruct/update starting from the zero fixed point and
// checks every intermediate value against hand-verified golden numbers.
func TestState_GoldenSequence(t *testing.T) {
	type step struct {
		dequantized       int32
		wantPredict       int32
		wantReconstructed int16
		wantHistoryAfter  [4]int32
		wantWeightsAfter  [4]int32
	}

	steps := []step{
		{100, 0, 100, [4]int32{0, 0, 0, 100}, [4]int32{6, 6, 6, 6}},
		{-50, 0, -50, [4]int32{0, 0, 100, -50}, [4]int32{2, 2, 2, 2}},
		{32000, 0, 32000, [4]int32{0, 100, -50, 32000}, [4]int32{2002, 2002, 2002, -1998}},
		{-32000, -7793, -32768, [4]int32{100, -50, 32000, -32768}, [4]int32{2, 2, 4002, -3998}},
		{12345, 31624, 32767, [4]int32{-50, 32000, -32768, 32767}, [4]int32{773, -769, 4773, -4769}},
		{-999, -41177, -32768, [4]int32{32000, -32768, 32767, -32768}, [4]int32{836, -832, 4836, -4832}},
		{7, 45265, 32767, [4]int32{-32768, 32767, -32768, 32767}, [4]int32{836, -832, 4836, -4832}},
		{-7, -45344, -32768, [4]int32{32767, -32768, 32767, -32768}, [4]int32{837, -833, 4837, -4833}},
	}

	var s State
	for i, tc := range steps {
		p := s.Predict()
		assert.Equal(t, tc.wantPredict, p, "step %d predict", i)

		reconstructed := ClampInt16(p + tc.dequantized)
		assert.Equal(t, tc.wantReconstructed, reconstructed, "step %d reconstructed", i)

		s.Update(int32(reconstructed), tc.dequantized)
		assert.Equal(t, tc.wantHistoryAfter, s.History, "step %d history", i)
		assert.Equal(t, tc.wantWeightsAfter, s.Weights, "step %d weights", i)
	}
}

func TestClampInt16(t *testing.T) {
	assert.Equal(t, int16(32767), ClampInt16(32767))
	assert.Equal(t, int16(32767), ClampInt16(40000))
	assert.Equal(t, int16(-32768), ClampInt16(-32768))
	assert.Equal(t, int16(-32768), ClampInt16(-40000))
	assert.Equal(t, int16(0), ClampInt16(0))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := State{
		History: [4]int32{-50, 32000, -32768, 32767},
		Weights: [4]int32{773, -769, 4773, -4769},
	}

	wire := s.Snapshot()
	assert.Equal(t, [4]int16{-50, 32000, -32768, 32767}, wire.History)

	var restored State
	restored.Restore(wire)
	assert.Equal(t, s, restored)
}

func TestZeroStateIsFixedPoint(t *testing.T) {
	var s State
	p := s.Predict()
	assert.Equal(t, int32(0), p)

	reconstructed := ClampInt16(p + 0)
	assert.Equal(t, int16(0), reconstructed)

	s.Update(int32(reconstructed), 0)
	assert.Equal(t, State{}, s)
}
