// Package bank packs encoded sample data into Atari extended-memory
// banks and builds the PORTB bank-select table consumed by the player.
package bank

import "fmt"

// Bank window geometry on an Atari XL/XE with extended (banked) RAM.
const (
	Size     = 16384 // bytes per bank window
	Base     = 0x4000
	End      = 0x8000
	MaxBanks = 64 // 1MB of extended RAM, 64 x 16KB banks
)

// PortBTable holds the PORTB register value that selects each bank,
// ordered to match the memory-detection routine's bank enumeration.
var PortBTable = [MaxBanks]byte{
	0xE3, 0xC3, 0xA3, 0x83, 0x63, 0x43, 0x23, 0x03,
	0xE7, 0xC7, 0xA7, 0x87, 0x67, 0x47, 0x27, 0x07,
	0xEB, 0xCB, 0xAB, 0x8B, 0x6B, 0x4B, 0x2B, 0x0B,
	0xEF, 0xCF, 0xAF, 0x8F, 0x6F, 0x4F, 0x2F, 0x0F,
	0xED, 0xCD, 0xAD, 0x8D, 0x6D, 0x4D, 0x2D, 0x0D,
	0xE9, 0xC9, 0xA9, 0x89, 0x69, 0x49, 0x29, 0x09,
	0xE5, 0xC5, 0xA5, 0x85, 0x65, 0x45, 0x25, 0x05,
	0xE1, 0xC1, 0xA1, 0x81, 0x61, 0x41, 0x21, 0x01,
}

// ErrBankOverflow reports that encoded data needs more banks than allowed.
type ErrBankOverflow struct {
	NeededBanks int
	MaxBanks    int
}

func (e *ErrBankOverflow) Error() string {
	return fmt.Sprintf("bank: data needs %d banks, only %d available (%dKB max)",
		e.NeededBanks, e.MaxBanks, e.MaxBanks*Size/1024)
}

// SplitRaw splits data into fixed Size-byte chunks (the last zero-padded),
// used by the raw passthrough codec where no compression determines
// variable bank boundaries.
func SplitRaw(data []byte, maxBanks int) ([][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	needed := (len(data) + Size - 1) / Size
	if needed > maxBanks {
		return nil, &ErrBankOverflow{NeededBanks: needed, MaxBanks: maxBanks}
	}

	banks := make([][]byte, 0, needed)
	for pos := 0; pos < len(data); pos += Size {
		end := pos + Size
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, Size)
		copy(chunk, data[pos:end])
		banks = append(banks, chunk)
	}
	return banks, nil
}

// PortBValues returns the PORTB select byte for the first n banks.
func PortBValues(n int) ([]byte, error) {
	if n > len(PortBTable) {
		return nil, fmt.Errorf("bank: requested %d banks but only %d available", n, len(PortBTable))
	}
	out := make([]byte, n)
	copy(out, PortBTable[:n])
	return out, nil
}

// FormatInfo renders a human-readable summary of bank usage: bank count,
// total bytes, playback duration and last-bank fill.
func FormatInfo(banks [][]byte, sampleRate float64, channels int) string {
	total := 0
	for _, b := range banks {
		total += len(b)
	}
	bytesPerSec := sampleRate * float64(channels)
	duration := 0.0
	if bytesPerSec > 0 {
		duration = float64(total) / bytesPerSec
	}

	out := fmt.Sprintf("  Banks: %d (of %d max)\n  Memory: %d bytes (%dKB)\n  Duration: %.1fs",
		len(banks), MaxBanks, total, total/1024, duration)
	if len(banks) > 0 {
		lastPct := len(banks[len(banks)-1]) * 100 / Size
		out += fmt.Sprintf("\n  Last bank fill: %d%%", lastPct)
	}
	return out
}
