package pokey

import "sort"

// NoiseShapeOrder selects between no shaping and 1st/2nd-order error
// feedback during quantization.
type NoiseShapeOrder int

const (
	NoShaping NoiseShapeOrder = 0
	Shape1    NoiseShapeOrder = 1
	Shape2    NoiseShapeOrder = 2
)

// Quantize maps float32 PCM samples in [-1, 1] onto a LevelTable's voltage
// ladder, returning one level index per sample. Noise shaping must be
// NoShaping for VQ input — shaped error spreads into patterns k-means
// clusters poorly.
func Quantize(samples []float32, t *LevelTable, shape NoiseShapeOrder) []uint8 {
	switch shape {
	case Shape1:
		return quantizeShaped1(samples, t.Voltages)
	case Shape2:
		return quantizeShaped2(samples, t.Voltages)
	default:
		return quantizeNearest(samples, t.Voltages)
	}
}

func scale(s float32, tableMax float32) float32 {
	return ((s + 1.0) / 2.0) * tableMax
}

// quantizeNearest does a sorted-table nearest-level search per sample with
// no error feedback.
func quantizeNearest(samples []float32, table []float32) []uint8 {
	n := len(table)
	lastIdx := n - 1
	tableMax := table[lastIdx]
	out := make([]uint8, len(samples))

	for i, s := range samples {
		v := scale(s, tableMax)
		idx := sort.Search(n, func(j int) bool { return table[j] >= v })
		if idx > lastIdx {
			idx = lastIdx
		}
		if idx > 0 {
			errRight := absf(v - table[idx])
			errLeft := absf(v - table[idx-1])
			if errLeft < errRight {
				idx--
			}
		}
		out[i] = uint8(idx)
	}
	return out
}

// quantizeShaped1 is 1st-order error-feedback quantization: each sample's
// residual against the chosen level carries forward into the next target.
func quantizeShaped1(samples []float32, table []float32) []uint8 {
	n := len(table)
	lastIdx := n - 1
	tableMax := table[lastIdx]
	out := make([]uint8, len(samples))

	var errAcc float32
	for i, s := range samples {
		v := scale(s, tableMax)
		target := v + errAcc
		if target < 0 {
			target = 0
		} else if target > tableMax {
			target = tableMax
		}
		idx := sort.Search(n, func(j int) bool { return table[j] >= target })
		if idx > lastIdx {
			idx = lastIdx
		} else if idx > 0 && absf(target-table[idx-1]) < absf(target-table[idx]) {
			idx--
		}
		out[i] = uint8(idx)
		errAcc = target - table[idx]
	}
	return out
}

// quantizeShaped2 is a 2nd-order noise-shaped quantizer with feedback taps
// c1=1.8, c2=-0.85 and a 0.95 leak factor, matching the richer shaping
// filter used for scalar/LZ-bound streams.
func quantizeShaped2(samples []float32, table []float32) []uint8 {
	const (
		c1   = 1.8
		c2   = -0.85
		leak = 0.95
	)
	n := len(table)
	lastIdx := n - 1
	tableMax := table[lastIdx]
	out := make([]uint8, len(samples))

	var e1, e2 float32
	for i, s := range samples {
		v := scale(s, tableMax)
		target := v + leak*(c1*e1+c2*e2)
		if target < 0 {
			target = 0
		} else if target > tableMax {
			target = tableMax
		}
		idx := sort.Search(n, func(j int) bool { return table[j] >= target })
		if idx > lastIdx {
			idx = lastIdx
		} else if idx > 0 && absf(target-table[idx-1]) < absf(target-table[idx]) {
			idx--
		}
		out[i] = uint8(idx)
		e2 = e1
		e1 = target - table[idx]
	}
	return out
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// QuantizeDual quantizes against the legacy balanced dual-channel table.
func QuantizeDual(samples []float32, shape NoiseShapeOrder) []uint8 {
	table := voltageTableDual[:]
	switch shape {
	case Shape1:
		return quantizeShaped1(samples, table)
	case Shape2:
		return quantizeShaped2(samples, table)
	default:
		return quantizeNearest(samples, table)
	}
}
