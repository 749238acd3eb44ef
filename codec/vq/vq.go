// Package vq implements per-bank vector quantization of POKEY level
// indices: fixed-length sample vectors mapped through a 256-entry
// codebook trained by k-means, with codebook index 0 reserved for
// silence so zero-padded bank tails always decode cleanly.
//
// Bank format: [codebook: 256*vecSize bytes][index stream: 1 byte/vector].
//
// Input indices should be quantized WITHOUT noise shaping — shaped error
// spreads quantization noise into patterns k-means cannot represent
// efficiently, costing roughly 3dB of SNR versus plain nearest-level
// rounding.
package vq

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/intuitionamiga/streamplayer/bank"
)

const NCodes = 256

// Geometry returns (codebookBytes, indicesPerBank, samplesPerBank) for a
// given vector size.
func Geometry(vecSize int) (codebookBytes, indicesPerBank, samplesPerBank int) {
	codebookBytes = NCodes * vecSize
	indicesPerBank = bank.Size - codebookBytes
	samplesPerBank = indicesPerBank * vecSize
	return
}

func gateThreshold(maxLevel, gatePct int) int {
	th := maxLevel * gatePct / 100
	if th < 1 {
		th = 1
	}
	return th
}

// EncodeBank trains a codebook on one chunk of indices and returns the
// packed bank (codebook + index stream) plus the number of samples it
// consumed (a multiple of vecSize). seed is derived from the bank index
// by the caller so parallel bank encoding is bit-exact.
func EncodeBank(indices []byte, vecSize, maxLevel, nIter, gate int, seed int64) ([]byte, int, error) {
	nVecs := len(indices) / vecSize
	if nVecs == 0 {
		return nil, 0, fmt.Errorf("vq: not enough samples for one vector")
	}
	used := nVecs * vecSize
	vectors := toVectors(indices[:used], vecSize)

	var codebook [][]uint8
	var assign []uint8

	if gate > 0 {
		thresh := gateThreshold(maxLevel, gate)
		var nonSilent [][]uint8
		for _, v := range vectors {
			if !allBelow(v, thresh) {
				nonSilent = append(nonSilent, v)
			}
		}
		codebook = make([][]uint8, NCodes)
		for i := range codebook {
			codebook[i] = make([]uint8, vecSize)
		}
		if len(nonSilent) == 0 {
			assign = make([]uint8, nVecs)
		} else {
			rest, _ := kmeans(nonSilent, NCodes-1, nIter, maxLevel, seed)
			for i := 0; i < NCodes-1; i++ {
				copy(codebook[i+1], rest[i])
			}
			assign = assignNearest(vectors, codebook)
		}
	} else {
		codebook, assign = kmeans(vectors, NCodes, nIter, maxLevel, seed)
		silent := -1
		for i, c := range codebook {
			if allBelow(c, 0) {
				silent = i
				break
			}
		}
		if silent < 0 {
			counts := make([]int, NCodes)
			for _, a := range assign {
				counts[a]++
			}
			victim := 0
			for i := 1; i < NCodes; i++ {
				if counts[i] < counts[victim] {
					victim = i
				}
			}
			codebook[victim] = make([]uint8, vecSize)
			if counts[victim] > 0 {
				assign = assignNearest(vectors, codebook)
			}
			silent = victim
		}
		// Move the silence code to index 0 so zero index bytes decode to silence.
		if silent != 0 {
			codebook[0], codebook[silent] = codebook[silent], codebook[0]
			for i, a := range assign {
				switch int(a) {
				case 0:
					assign[i] = uint8(silent)
				case silent:
					assign[i] = 0
				}
			}
		}
	}

	cbBytes := NCodes * vecSize
	out := make([]byte, cbBytes+nVecs)
	for i, c := range codebook {
		copy(out[i*vecSize:(i+1)*vecSize], c)
	}
	copy(out[cbBytes:], assign)
	return out, used, nil
}

// EncodeBanks splits indices into fixed-geometry VQ banks. Because each
// bank's sample count is a pure function of vecSize (not data-dependent,
// unlike DeltaLZ's binary-search fill), chunk boundaries are known up
// front, so the per-bank k-means training dispatches through
// bank.EncodeAll — parallel across banks when parallel is true, each
// bank seeded from its own index so the result is bit-exact regardless
// of goroutine scheduling.
func EncodeBanks(indices []byte, vecSize, maxBanks, maxLevel, nIter, gate int, parallel bool) ([][]byte, int, error) {
	if vecSize != 2 && vecSize != 4 && vecSize != 8 && vecSize != 16 {
		return nil, 0, fmt.Errorf("vq: vecSize must be 2, 4, 8, or 16, got %d", vecSize)
	}
	_, _, sampPerBank := Geometry(vecSize)
	total := len(indices)

	var chunks [][]byte
	pos := 0
	for pos < total && len(chunks) < maxBanks {
		remaining := total - pos
		chunkSize := sampPerBank
		if chunkSize > remaining {
			chunkSize = remaining
		}
		chunkSize = (chunkSize / vecSize) * vecSize
		if chunkSize == 0 {
			break
		}
		chunks = append(chunks, indices[pos:pos+chunkSize])
		pos += chunkSize
	}
	// Fewer than vecSize leftover samples cannot form a vector and are
	// dropped; only a whole unencoded vector means the banks ran out.
	if total-pos >= vecSize {
		return nil, pos, &bank.ErrBankOverflow{NeededBanks: maxBanks + 1, MaxBanks: maxBanks}
	}

	banks, err := bank.EncodeAll(chunks, parallel, func(bankIdx int, chunk []byte) ([]byte, error) {
		bankData, _, err := EncodeBank(chunk, vecSize, maxLevel, nIter, gate, int64(bankIdx))
		if err != nil {
			return nil, err
		}
		if len(bankData) < bank.Size {
			padded := make([]byte, bank.Size)
			copy(padded, bankData)
			bankData = padded
		}
		return bankData, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return banks, pos, nil
}

// DecodeBank expands one VQ bank back to POKEY indices.
func DecodeBank(bankData []byte, vecSize, nVectors int) ([]byte, error) {
	cbBytes := NCodes * vecSize
	if len(bankData) < cbBytes {
		return nil, fmt.Errorf("vq: bank too short: %d", len(bankData))
	}
	idxData := bankData[cbBytes:]
	maxIdx := bank.Size - cbBytes
	if nVectors >= 0 && nVectors < len(idxData) {
		idxData = idxData[:nVectors]
	} else if len(idxData) > maxIdx {
		idxData = idxData[:maxIdx]
	}

	out := make([]byte, 0, len(idxData)*vecSize)
	for _, idx := range idxData {
		off := int(idx) * vecSize
		out = append(out, bankData[off:off+vecSize]...)
	}
	return out, nil
}

// MeasureSNR reports the signal-to-noise ratio (dB) between original and
// decoded index streams under a voltage table, never used to gate
// encoding — only reported.
func MeasureSNR(original, decoded []byte, voltages []float32) float64 {
	n := len(original)
	if len(decoded) < n {
		n = len(decoded)
	}
	var sig, noise float64
	for i := 0; i < n; i++ {
		ov := float64(voltages[original[i]])
		dv := float64(voltages[decoded[i]])
		sig += ov * ov
		noise += (ov - dv) * (ov - dv)
	}
	if n == 0 {
		return 0
	}
	sig /= float64(n)
	noise /= float64(n)
	if noise < 1e-30 {
		return 999.0
	}
	return 10.0 * math.Log10(sig/noise)
}

func toVectors(indices []byte, vecSize int) [][]uint8 {
	n := len(indices) / vecSize
	out := make([][]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = indices[i*vecSize : (i+1)*vecSize]
	}
	return out
}

func allBelow(v []uint8, thresh int) bool {
	for _, s := range v {
		if int(s) > thresh {
			return false
		}
	}
	return true
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func toFloat(v []uint8) []float64 {
	out := make([]float64, len(v))
	for i, s := range v {
		out[i] = float64(s)
	}
	return out
}

// kmeans trains an nCodes-entry codebook on integer vectors via k-means++
// seeding and Lloyd iteration, seeded deterministically by seed so
// parallel per-bank encoding is bit-exact.
func kmeans(vectors [][]uint8, nCodes, nIter, maxLevel int, seed int64) ([][]uint8, []uint8) {
	nVecs := len(vectors)
	vecSize := len(vectors[0])
	vf := make([][]float64, nVecs)
	for i, v := range vectors {
		vf[i] = toFloat(v)
	}

	if nVecs <= nCodes {
		rng := rand.New(rand.NewSource(seed))
		codebook := make([][]uint8, nCodes)
		assign := make([]uint8, nVecs)
		for i := 0; i < nCodes; i++ {
			var src []float64
			if i < nVecs {
				src = vf[i]
				assign[i] = uint8(i)
			} else {
				src = vf[rng.Intn(nVecs)]
			}
			codebook[i] = roundClamp(src, maxLevel)
		}
		return codebook, assign
	}

	rng := rand.New(rand.NewSource(seed))
	centers := make([][]float64, 0, nCodes)
	centers = append(centers, vf[rng.Intn(nVecs)])
	for len(centers) < nCodes {
		dists := make([]float64, nVecs)
		var total float64
		for i, v := range vf {
			best := math.Inf(1)
			for _, c := range centers {
				d := sqDist(v, c)
				if d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}
		if total < 1e-30 {
			centers = append(centers, vf[rng.Intn(nVecs)])
			continue
		}
		r := rng.Float64() * total
		var acc float64
		chosen := nVecs - 1
		for i, d := range dists {
			acc += d
			if acc >= r {
				chosen = i
				break
			}
		}
		centers = append(centers, vf[chosen])
	}

	codebook := make([][]float64, nCodes)
	for i, c := range centers {
		codebook[i] = append([]float64(nil), c...)
	}

	assignF := make([]int, nVecs)
	for iter := 0; iter < nIter; iter++ {
		for i, v := range vf {
			best, bestD := 0, math.Inf(1)
			for k, c := range codebook {
				d := sqDist(v, c)
				if d < bestD {
					bestD, best = d, k
				}
			}
			assignF[i] = best
		}

		sums := make([][]float64, nCodes)
		counts := make([]int, nCodes)
		for i := range sums {
			sums[i] = make([]float64, vecSize)
		}
		for i, v := range vf {
			a := assignF[i]
			counts[a]++
			for d := 0; d < vecSize; d++ {
				sums[a][d] += v[d]
			}
		}

		maxDelta := 0.0
		for k := 0; k < nCodes; k++ {
			if counts[k] == 0 {
				continue
			}
			for d := 0; d < vecSize; d++ {
				newV := sums[k][d] / float64(counts[k])
				delta := newV - codebook[k][d]
				if delta < 0 {
					delta = -delta
				}
				if delta > maxDelta {
					maxDelta = delta
				}
				codebook[k][d] = newV
			}
		}
		if maxDelta < 0.01 {
			break
		}
	}

	cb := make([][]uint8, nCodes)
	for i, c := range codebook {
		cb[i] = roundClamp(c, maxLevel)
	}
	assign := assignNearestFloat(vf, cb)
	return cb, assign
}

func roundClamp(v []float64, maxLevel int) []uint8 {
	out := make([]uint8, len(v))
	for i, s := range v {
		r := math.Round(s)
		if r < 0 {
			r = 0
		} else if r > float64(maxLevel) {
			r = float64(maxLevel)
		}
		out[i] = uint8(r)
	}
	return out
}

func assignNearest(vectors [][]uint8, codebook [][]uint8) []uint8 {
	vf := make([][]float64, len(vectors))
	for i, v := range vectors {
		vf[i] = toFloat(v)
	}
	return assignNearestFloat(vf, codebook)
}

func assignNearestFloat(vf [][]float64, codebook [][]uint8) []uint8 {
	cbf := make([][]float64, len(codebook))
	for i, c := range codebook {
		cbf[i] = toFloat(c)
	}
	out := make([]uint8, len(vf))
	for i, v := range vf {
		best, bestD := 0, math.Inf(1)
		for k, c := range cbf {
			d := sqDist(v, c)
			if d < bestD {
				bestD, best = d, k
			}
		}
		out[i] = uint8(best)
	}
	return out
}
