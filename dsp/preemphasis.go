package dsp

import "math"

// DesignZOHPreemphasis builds a short linear-phase FIR that compensates
// for POKEY's zero-order-hold droop (H(f) = sinc(f/fs)) by applying the
// inverse response, rolled off above 0.85 of Nyquist so the boost never
// amplifies aliasing near the band edge.
//
// Taps are derived by frequency-sampling: the desired magnitude response
// is evaluated at nTaps/2+1 points spaced up to Nyquist and inverse-
// transformed into a symmetric impulse response, normalized to unity
// gain at DC. This is a direct, dependency-free stand-in for firwin2 (no
// retrieved example imports a signal-design library); no window is
// applied beyond the frequency sampling itself.
func DesignZOHPreemphasis(nTaps int) []float64 {
	if nTaps%2 == 0 {
		nTaps++
	}
	m := (nTaps - 1) / 2
	n := float64(nTaps)

	const rolloffStart = 0.85
	desired := func(f float64) float64 {
		fRatio := f * 0.5
		d := 1.0
		if fRatio > 1e-6 {
			d = 1.0 / sinc(fRatio)
		}
		rolloff := 1.0
		if f > rolloffStart {
			rolloff = math.Cos(0.5 * math.Pi * (f - rolloffStart) / (1.0 - rolloffStart))
		}
		return 1.0 + rolloff*(d-1.0)
	}

	d := make([]float64, m+1)
	for k := 0; k <= m; k++ {
		fk := 2 * float64(k) / n
		if fk > 1 {
			fk = 1
		}
		d[k] = desired(fk)
	}

	h := make([]float64, nTaps)
	for shift := -m; shift <= m; shift++ {
		sum := d[0]
		for k := 1; k <= m; k++ {
			sum += 2 * d[k] * math.Cos(2*math.Pi*float64(k)*float64(shift)/n)
		}
		h[shift+m] = sum / n
	}

	var dc float64
	for _, v := range h {
		dc += v
	}
	if math.Abs(dc) > 1e-6 {
		for i := range h {
			h[i] /= dc
		}
	}
	return h
}

// applyFIR runs a causal FIR filter (b taps, unity feedback) over x.
func applyFIR(x []float32, h []float64) []float32 {
	out := make([]float32, len(x))
	for i := range x {
		var acc float64
		for k, hv := range h {
			j := i - k
			if j < 0 {
				continue
			}
			acc += hv * float64(x[j])
		}
		out[i] = float32(acc)
	}
	return out
}

// EnhanceAudio applies ZOH pre-emphasis blended at zohStrength (0 =
// bypass, 1 = full inverse-sinc compensation), clipping the result back
// into [-1, 1].
func EnhanceAudio(audio []float32, sampleRate float64, zohStrength float64) []float32 {
	if zohStrength <= 0 {
		out := make([]float32, len(audio))
		copy(out, audio)
		return out
	}
	h := DesignZOHPreemphasis(15)
	boosted := applyFIR(audio, h)

	out := make([]float32, len(audio))
	for i, s := range audio {
		v := s*float32(1.0-zohStrength) + boosted[i]*float32(zohStrength)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

// CompressDynamics applies a μ-law-style soft compander so a limited
// level count spends more of its range on quiet passages. strength=0
// bypasses; strength=1 is the heaviest (μ=255) setting. Off by default —
// at low channel counts raising RMS causes large sample-to-sample level
// jumps that read as crackling, so this exists for experimentation only.
func CompressDynamics(audio []float32, strength float64) []float32 {
	if strength <= 0 {
		out := make([]float32, len(audio))
		copy(out, audio)
		return out
	}
	mu := 255.0 * strength
	logDenom := math.Log1p(mu)

	out := make([]float32, len(audio))
	for i, s := range audio {
		sign := float64(1)
		v := float64(s)
		if v < 0 {
			sign = -1
			v = -v
		}
		out[i] = float32(sign * math.Log1p(mu*v) / logDenom)
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
