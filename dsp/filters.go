package dsp

import "math"

// DCBlock removes sub-audio DC offset with a 2nd-order Butterworth
// high-pass at 20Hz, applied forward then backward (filtfilt) so the
// result carries no phase distortion.
func DCBlock(x []float32, sampleRate float64) []float32 {
	if len(x) == 0 {
		return nil
	}
	b, a := butterHighpass(20.0, sampleRate)
	y := biquad(x, b, a)
	reverse(y)
	y = biquad(y, b, a)
	reverse(y)
	return y
}

// butterHighpass returns the (b, a) biquad coefficients for a 2nd-order
// Butterworth high-pass filter via the bilinear transform.
func butterHighpass(cutoffHz, sampleRate float64) (b, a [3]float64) {
	omega := math.Tan(math.Pi * cutoffHz / sampleRate)
	const q = math.Sqrt2 / 2.0 // Butterworth Q
	k := omega
	norm := 1.0 / (1.0 + k/q + k*k)

	b[0] = 1.0 * norm
	b[1] = -2.0 * norm
	b[2] = 1.0 * norm
	a[0] = 1.0
	a[1] = 2.0 * (k*k - 1.0) * norm
	a[2] = (1.0 - k/q + k*k) * norm
	return b, a
}

func biquad(x []float32, b, a [3]float64) []float32 {
	y := make([]float32, len(x))
	var x1, x2, y1, y2 float64
	for i, xv := range x {
		xn := float64(xv)
		yn := b[0]*xn + b[1]*x1 + b[2]*x2 - a[1]*y1 - a[2]*y2
		y[i] = float32(yn)
		x2, x1 = x1, xn
		y2, y1 = y1, yn
	}
	return y
}

func reverse(x []float32) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// Normalize peak-normalizes samples so the peak sits headroomDb below
// full scale (peak = 10^(-headroomDb/20)). A silent buffer is returned
// unchanged.
func Normalize(x []float32, headroomDb float64) []float32 {
	peak := float32(0)
	for _, s := range x {
		a := s
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	if peak == 0 {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}
	target := float32(math.Pow(10, -headroomDb/20.0))
	gain := target / peak

	out := make([]float32, len(x))
	for i, s := range x {
		out[i] = s * gain
	}
	return out
}
