package chunk

import (
	"github.com/kelindar/sea/internal/dqt"
	"github.com/kelindar/sea/internal/lms"
)

// vbrBiasWeight scales how strongly a VBR candidate's distance from the
// target residual width counts against its reconstruction error. Chosen so
// a one-bit-wide miss costs roughly as much as a few dozen LSBs of
// reconstruction error per frame — enough to pull the selector toward the
// target bitrate without letting it override a clearly better-fitting
// width. Not specified numerically by the format; this is this codec's own
// tuning, recorded here rather than left implicit.
const vbrBiasWeight = 1 << 12

// simulate runs the full predict/quantize/clamp/update loop across frames
// against a single candidate row, picking per-frame the code that
// minimizes |predicted+row[q]-target|, and returns the resulting code
// sequence, ending LMS state, and summed squared reconstruction error. It
// never mutates the caller's state.
func simulate(row []int32, frames []int16, state lms.State) (codes []int, end lms.State, cost int64) {
	s := state
	codes = make([]int, len(frames))

	for i, target := range frames {
		predicted := s.Predict()

		bestQ := 0
		bestDiff := absInt64(int64(predicted) + int64(row[0]) - int64(target))
		for q := 1; q < len(row); q++ {
			diff := absInt64(int64(predicted) + int64(row[q]) - int64(target))
			if diff < bestDiff {
				bestDiff, bestQ = diff, q
			}
		}

		dequantized := row[bestQ]
		reconstructed := lms.ClampInt16(predicted + dequantized)
		e := int64(reconstructed) - int64(target)
		cost += e * e

		codes[i] = bestQ
		s.Update(int32(reconstructed), dequantized)
	}

	end = s
	return codes, end, cost
}

// selectCBR tries every scale-factor index in table and returns the one
// minimizing total squared reconstruction error over frames, preferring
// the smaller index on a tie (the ascending loop order plus a strict
// less-than comparison already gives that).
func selectCBR(table dqt.Table, frames []int16, state lms.State) (bestSF int, bestCodes []int, bestEnd lms.State) {
	bestCost := int64(-1)
	for sf := range table.Rows {
		codes, end, cost := simulate(table.Rows[sf], frames, state)
		if bestCost < 0 || cost < bestCost {
			bestCost, bestSF, bestCodes, bestEnd = cost, sf, codes, end
		}
	}
	return bestSF, bestCodes, bestEnd
}

// selectVBR tries every (scale-factor index, length code) pair, scoring
// each by squared reconstruction error plus a bias toward the target
// residual width, and returns the winner. Ties prefer the smaller scale
// factor index, then the smaller length code, matching selectCBR's
// tie-break rule.
func selectVBR(sbBits, rb int, tables map[int]dqt.Table, frames []int16, state lms.State, desiredWidth float64, weight float64) (bestSF, bestLen, bestWidth int, bestCodes []int, bestEnd lms.State) {
	bestCost := -1.0
	sfCount := 1 << uint(sbBits)

	for sf := 0; sf < sfCount; sf++ {
		for lenCode := 0; lenCode < 4; lenCode++ {
			width := clampWidth(rb + lenCode - 1)
			table := tables[width]

			codes, end, errCost := simulate(table.Rows[sf], frames, state)
			delta := float64(width) - desiredWidth
			bias := weight * delta * delta * float64(len(frames))
			total := float64(errCost) + bias

			if bestCost < 0 || total < bestCost {
				bestCost = total
				bestSF, bestLen, bestWidth = sf, lenCode, width
				bestCodes, bestEnd = codes, end
			}
		}
	}

	return bestSF, bestLen, bestWidth, bestCodes, bestEnd
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
