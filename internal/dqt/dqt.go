// Package dqt builds the dequantization tables shared by the SEA encoder
// and decoder: a per-scale-factor gain table and, from it, a full
// (scale-factor, residual code) -> signed residual lookup table. Table
// generation must reproduce the same bytes on every platform, so table
// values are held in 32-bit IEEE-754 float and rounded half away from
// zero. The exponentiation and the base-level step are evaluated in float64
// (Go's math package has no float32 variants) and narrowed to float32.
package dqt

import (
	"fmt"
	"math"
	"sync"
)

// idealPow holds the target bits-per-residual curve used to derive the
// scale-factor exponent, indexed by residualBits-1.
var idealPow = [8]float32{12.0, 11.65, 11.20, 10.58, 9.64, 8.75, 7.66, 6.63}

// Table is the dequantization table for one (scaleFactorBits, residualBits)
// pair: ScaleFactors holds the per-index gain, Rows[s][q] the signed
// dequantized residual for scale-factor index s and residual code q.
type Table struct {
	ScaleFactorBits int
	ResidualBits    int
	ScaleFactors    []int32
	Rows            [][]int32
}

type cacheKey struct {
	sb, rb int
}

var cache sync.Map // cacheKey -> Table

// Build returns the dequantization table for the given scale-factor and
// residual bit widths, memoized by (scaleFactorBits, residualBits) so
// repeated encode/decode calls share one immutable instance instead of
// rebuilding it per chunk. Panics are never used here; out-of-range inputs
// return an error instead.
func Build(scaleFactorBits, residualBits int) (Table, error) {
	if scaleFactorBits < 1 || scaleFactorBits > 15 {
		return Table{}, fmt.Errorf("dqt: scale_factor_bits %d out of range [1,15]", scaleFactorBits)
	}
	if residualBits < 1 || residualBits > 8 {
		return Table{}, fmt.Errorf("dqt: residual_bits %d out of range [1,8]", residualBits)
	}

	key := cacheKey{scaleFactorBits, residualBits}
	if v, ok := cache.Load(key); ok {
		return v.(Table), nil
	}

	t := build(scaleFactorBits, residualBits)
	actual, _ := cache.LoadOrStore(key, t)
	return actual.(Table), nil
}

func build(sb, rb int) Table {
	sfCount := 1 << uint(sb)
	rowWidth := 1 << uint(rb)
	half := rowWidth / 2

	powerFactor := idealPow[rb-1] / float32(sb)

	scaleFactors := make([]int32, sfCount)
	for i := 0; i < sfCount; i++ {
		v := powf32(float32(i+1), powerFactor)
		scaleFactors[i] = int32(v) // truncation toward zero
	}

	base := buildBaseLevels(rb, half)

	rows := make([][]int32, sfCount)
	for s := 0; s < sfCount; s++ {
		row := make([]int32, rowWidth)
		for q := 0; q < half; q++ {
			val := roundHalfAwayFromZero32(float32(scaleFactors[s]) * base[q])
			row[2*q] = val
			row[2*q+1] = -val
		}
		rows[s] = row
	}

	return Table{
		ScaleFactorBits: sb,
		ResidualBits:    rb,
		ScaleFactors:    scaleFactors,
		Rows:            rows,
	}
}

// buildBaseLevels constructs the per-code base magnitude curve (before
// scale-factor multiplication) for a given residual width.
func buildBaseLevels(rb, half int) []float32 {
	switch rb {
	case 1:
		return []float32{2.0}
	case 2:
		return []float32{1.115, 4.0}
	default:
		base := make([]float32, half)
		base[0] = 0.75
		end := float32((1 << uint(rb)) - 1)
		step := float32(math.Floor(float64(end-0.75) / float64(half-1)))
		for i := 1; i < half-1; i++ {
			base[i] = 0.5 + float32(i)*step
		}
		base[half-1] = end
		return base
	}
}

// powf32 computes base**exp in single precision. Go's math package has no
// native float32 exponentiation, so the computation round-trips through
// float64 the way most Go code emulates a missing powf.
func powf32(base, exp float32) float32 {
	return float32(math.Pow(float64(base), float64(exp)))
}

// roundHalfAwayFromZero32 rounds x to the nearest integer, ties away from
// zero, staying entirely in float32 arithmetic: adding/subtracting 0.5
// before the float32->int32 truncation is the standard trick since the
// conversion itself already truncates toward zero.
func roundHalfAwayFromZero32(x float32) int32 {
	if x >= 0 {
		return int32(x + 0.5)
	}
	return int32(x - 0.5)
}
