// Package lms implements the four-tap sign-based least-mean-squares
// predictor used by the SEA codec, one State per audio channel.
package lms

// tapCount is the number of history/weight taps.
const tapCount = 4

// State is one channel's predictor state: four taps of reconstructed
// history (oldest at index 0, newest at index 3) and four weights.
// Computation uses 32-bit signed intermediates even though the wire form
// is 16-bit, per the codec's fixed-point contract.
type State struct {
	History [tapCount]int32
	Weights [tapCount]int32
}

// Predict returns the current prediction: the dot product of weights and
// history, arithmetic-shifted down by 13 bits.
func (s *State) Predict() int32 {
	var sum int32
	for i := 0; i < tapCount; i++ {
		sum += s.Weights[i] * s.History[i]
	}
	return sum >> 13
}

// Update adjusts weights by the sign of each history tap scaled by the
// dequantized residual, then shifts reconstructed in as the newest history
// sample. reconstructed must already be clamped to the int16 range by the
// caller; Update does not clamp it again.
func (s *State) Update(reconstructed, dequantized int32) {
	delta := dequantized >> 4
	for i := 0; i < tapCount; i++ {
		if s.History[i] < 0 {
			s.Weights[i] -= delta
		} else {
			s.Weights[i] += delta
		}
	}

	s.History[0] = s.History[1]
	s.History[1] = s.History[2]
	s.History[2] = s.History[3]
	s.History[3] = reconstructed
}

// Wire is the 16-bit-per-field serialization of a State as it appears in a
// chunk header: four history samples then four weights, each truncated to
// int16 on the wire.
type Wire struct {
	History [tapCount]int16
	Weights [tapCount]int16
}

// Snapshot narrows the state to its wire form for writing into a chunk
// header.
func (s *State) Snapshot() Wire {
	var w Wire
	for i := 0; i < tapCount; i++ {
		w.History[i] = int16(s.History[i])
		w.Weights[i] = int16(s.Weights[i])
	}
	return w
}

// Restore widens a chunk header's wire form back into working State,
// overwriting s in place.
func (s *State) Restore(w Wire) {
	for i := 0; i < tapCount; i++ {
		s.History[i] = int32(w.History[i])
		s.Weights[i] = int32(w.Weights[i])
	}
}

// ClampInt16 clamps x to the representable int16 range, the reconstruction
// clamp applied before every Update call.
func ClampInt16(x int32) int16 {
	switch {
	case x < -32768:
		return -32768
	case x > 32767:
		return 32767
	default:
		return int16(x)
	}
}
