// Package raw implements the uncompressed passthrough codec: quantized
// POKEY level indices split directly into fixed-size banks.
package raw

import "github.com/intuitionamiga/streamplayer/bank"

// EncodeBanks splits indices into fixed Size-byte banks with no
// transform applied. Padding bytes are arbitrary (zero); the player's
// position tracking means padded-tail garbage is never read.
func EncodeBanks(indices []byte, maxBanks int) ([][]byte, int, error) {
	banks, err := bank.SplitRaw(indices, maxBanks)
	if err != nil {
		return nil, 0, err
	}
	return banks, len(indices), nil
}

// DecodeBanks reconstructs the index stream from raw banks, trimming to
// totalSamples.
func DecodeBanks(banks [][]byte, totalSamples int) []byte {
	out := make([]byte, 0, totalSamples)
	for _, b := range banks {
		out = append(out, b...)
	}
	if len(out) > totalSamples {
		out = out[:totalSamples]
	}
	return out
}
