// Package dsp implements the signal-conditioning stages between decoded
// PCM and POKEY-level quantization: divisor search, resampling, DC
// blocking, pre-emphasis, normalization, and an optional dynamics
// compressor. None of the retrieved example repositories import a DSP or
// numeric library, so this package is built directly on math.
package dsp

import (
	"math"

	"github.com/intuitionamiga/streamplayer/pokey"
)

// FindBestDivisor searches POKEY's achievable-rate ladders for the divisor
// whose resulting sample rate is closest to targetHz. fs = baseClock /
// (divisor+1) for divisor in [0,255], searched on the 1.77MHz clock
// (AUDCTL bit 6 set) and on the 64kHz base clock (PAL clock / 28, AUDCTL
// bit 6 clear); the closer of the two wins. The 1.77MHz ladder bottoms
// out near 6928 Hz, so lower targets are served by the 64kHz ladder.
func FindBestDivisor(targetHz float64) (divisor int, actualHz float64, audctl byte) {
	bestErr := math.Inf(1)

	search := func(base float64, audctlVal byte) {
		for d := 0; d <= 255; d++ {
			rate := base / float64(d+1)
			err := math.Abs(rate - targetHz)
			if err < bestErr {
				bestErr = err
				divisor = d
				actualHz = rate
				audctl = audctlVal
			}
		}
	}

	search(float64(pokey.ClockPAL), pokey.AudctlCh1179MHz)
	search(float64(pokey.ClockPAL)/float64(pokey.Div64KHz), 0)

	return divisor, actualHz, audctl
}

// CalcPokeyRate returns the achieved sample rate for a given divisor and
// AUDCTL base-clock selection.
func CalcPokeyRate(divisor int, audctl byte) float64 {
	base := float64(pokey.ClockPAL)
	if audctl&pokey.AudctlCh1179MHz == 0 {
		base /= float64(pokey.Div64KHz)
	}
	return base / float64(divisor+1)
}

// Resample performs band-limited resampling from srcRate to dstRate using
// windowed-sinc interpolation (Hann window), with the filter's cutoff
// scaled to the lower of the two rates so downsampling never aliases.
func Resample(x []float32, srcRate, dstRate float64) []float32 {
	if len(x) == 0 || srcRate == dstRate {
		out := make([]float32, len(x))
		copy(out, x)
		return out
	}

	ratio := dstRate / srcRate
	outN := int(math.Round(float64(len(x)) * ratio))
	if outN <= 0 {
		return nil
	}

	const halfTaps = 16
	cutoffRatio := 1.0
	if dstRate < srcRate {
		cutoffRatio = dstRate / srcRate
	}

	out := make([]float32, outN)
	for i := range out {
		srcPos := float64(i) / ratio
		center := int(math.Floor(srcPos))
		var acc float64
		for k := -halfTaps; k <= halfTaps; k++ {
			idx := center + k
			if idx < 0 || idx >= len(x) {
				continue
			}
			d := srcPos - float64(idx)
			s := sinc(d*cutoffRatio) * cutoffRatio
			w := hann(d, halfTaps)
			acc += float64(x[idx]) * s * w
		}
		out[i] = float32(acc)
	}
	return out
}

func hann(d float64, halfTaps int) float64 {
	n := float64(halfTaps)
	if d < -n || d > n {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*d/n))
}
