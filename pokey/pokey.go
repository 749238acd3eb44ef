// Package pokey builds the voltage-level tables and AUDC byte tables that
// drive PCM-over-POKEY playback, and quantizes PCM samples against them.
//
// The chip constants below are adapted from the POKEY register map used
// throughout the wider emulator this package was split out of; only the
// subset relevant to a volume-only DAC stream survives here.
package pokey

// POKEY register addresses, relative to the chip's base ($D200 on an
// 8-bit Atari).
const (
	RegAUDF1  = 0x00
	RegAUDC1  = 0x01
	RegAUDF2  = 0x02
	RegAUDC2  = 0x03
	RegAUDF3  = 0x04
	RegAUDC3  = 0x05
	RegAUDF4  = 0x06
	RegAUDC4  = 0x07
	RegAUDCTL = 0x08
)

// Clock frequencies in Hz.
const (
	ClockNTSC = 1789773
	ClockPAL  = 1773447
)

// Base-clock dividers selected via AUDCTL bit 0.
const (
	Div64KHz = 28
	Div15KHz = 114
)

// AUDCTL bit masks.
const (
	AudctlClock15KHz = 0x01
	AudctlHipassCh1  = 0x02
	AudctlHipassCh2  = 0x04
	AudctlCh4ByCh3   = 0x08
	AudctlCh2ByCh1   = 0x10
	AudctlCh3179MHz  = 0x20
	AudctlCh1179MHz  = 0x40
	AudctlPoly9      = 0x80
)

// AUDC bit masks.
const (
	AudcVolumeMask      = 0x0F
	AudcVolumeOnly      = 0x10
	AudcDistortionMask  = 0xE0
	AudcDistortionShift = 5
)

// MinChannels and MaxChannels bound the single-step level allocator.
const (
	MinChannels = 1
	MaxChannels = 4
)

// voltageTableSingle is the measured per-channel volume ladder for one
// POKEY channel (AUDC volume 0-15), in volts, sampled from a AMI C012294.
var voltageTableSingle = [16]float32{
	0.000000, 0.032677, 0.068621, 0.101298, 0.143778, 0.176455,
	0.212399, 0.245076, 0.300626, 0.333303, 0.369247, 0.401924,
	0.444404, 0.477081, 0.513025, 0.545702,
}

// voltageTableDual is the legacy balanced-split 2-channel ladder, kept for
// DualChannel encoding compatibility with older player code.
var voltageTableDual = [31]float32{
	0.000000, 0.032677, 0.065354, 0.101298, 0.137242, 0.169919,
	0.202596, 0.245076, 0.287556, 0.320232, 0.352909, 0.388853,
	0.424798, 0.457475, 0.490151, 0.545702, 0.573477, 0.589816,
	0.606154, 0.624126, 0.642098, 0.658437, 0.674775, 0.696015,
	0.717255, 0.733593, 0.749932, 0.767904, 0.785876, 0.802215,
	0.818553,
}

// MaxLevel returns the highest level index for an n-channel single-step
// table (15*n).
func MaxLevel(channels int) int { return 15 * channels }

// NumLevels returns the number of quantization levels for channels (MaxLevel+1).
func NumLevels(channels int) int { return MaxLevel(channels) + 1 }
