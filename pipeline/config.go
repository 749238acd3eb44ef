// Package pipeline wires pokey, dsp, bank, the three codecs, project,
// asm6502, and xex together into the single encoding entry point:
// decoded PCM in, a self-booting XEX byte stream out.
package pipeline

import (
	"github.com/intuitionamiga/streamplayer/bank"
	"github.com/intuitionamiga/streamplayer/pokey"
	"github.com/intuitionamiga/streamplayer/streamerr"
)

// Compression selects which codec packs the quantized stream into banks.
type Compression int

const (
	CompressionOff Compression = iota
	CompressionLZ
	CompressionVQ
)

// LZMode selects the DeltaLZ bank-budget model. Both share the same
// byte format; only the feasibility pre-check differs.
type LZMode int

const (
	LZScalar LZMode = iota
	LZ1CPS
)

// Config is the full set of recognized pipeline options (spec.md §6),
// plus the two supplemental enhance-stage options (NoiseShapeOrder,
// DynamicsStrength) that default to reproducing spec.md's exact
// behavior when left zero.
type Config struct {
	Compression Compression
	VecSize     int // VQ only: 2, 4, 8, or 16
	Channels    int // POKEY channels, 1-4
	Rate        int // requested sample rate in Hz
	Enhance     bool
	MaxBanks    int // hard cap on N_BANKS, 1-64
	NoiseShaping bool
	NoiseGate   int // 0-100, VQ silence-vector threshold percentage
	Mode        LZMode

	// NoiseShapeOrder selects 1st- or 2nd-order noise shaping when
	// NoiseShaping is set. Zero defaults to 1st-order.
	NoiseShapeOrder int
	// DynamicsStrength enables the optional compress-dynamics enhance
	// stage (0 = bypass, matching spec.md's silence on this feature).
	DynamicsStrength float64

	// NIterations bounds VQ k-means iterations (0 defaults to 20, the
	// budget spec.md §4.F names).
	NIterations int
	// Parallel enables per-bank goroutine fan-out for VQ training
	// (DeltaLZ's encoder stays sequential regardless, since its bank
	// boundaries are data-dependent). WithDefaults sets this true, and
	// Encode applies WithDefaults to the Config it receives, so Encode
	// always trains VQ banks in parallel; a false value set beforehand
	// does not reach the encoder.
	Parallel bool
	// Strict turns MaxBanksExceeded into a hard error instead of a
	// warning in Result.Warnings.
	Strict bool

	SourceName string
	Stereo     bool

	// StaticSources optionally carries the opaque static player fixture
	// (stream_player.asm and everything it icl's — atari.inc,
	// pokey_setup.asm, the irq_*/player_*/zeropage_* variants, etc.),
	// keyed by filename, exactly as the caller obtained it. This
	// package never reads it from or writes it to disk; when nil,
	// Encode synthesizes a minimal stand-in so the generator and
	// assembler stages remain independently exercisable.
	StaticSources map[string]string
}

// WithDefaults returns a copy of cfg with zero-valued optional fields
// set to their documented defaults. It always sets Parallel true. Encode
// calls it on the Config it receives, so callers need not call it first.
func (c Config) WithDefaults() Config {
	out := c
	out.Parallel = true
	if out.Channels == 0 {
		out.Channels = 1
	}
	if out.VecSize == 0 {
		out.VecSize = 4
	}
	if out.MaxBanks == 0 {
		out.MaxBanks = bank.MaxBanks
	}
	if out.NIterations == 0 {
		out.NIterations = 20
	}
	if out.NoiseShapeOrder == 0 {
		out.NoiseShapeOrder = 1
	}
	return out
}

// Validate checks Config for internally-consistent, in-range values,
// returning a *streamerr.Error (Kind: InvalidConfig) on the first
// violation found.
func (c Config) Validate() error {
	if c.Channels < pokey.MinChannels || c.Channels > pokey.MaxChannels {
		return streamerr.New(streamerr.InvalidConfig, "channels must be 1-4, got %d", c.Channels)
	}
	if c.Rate <= 0 {
		return streamerr.New(streamerr.InvalidConfig, "rate must be positive, got %d", c.Rate)
	}
	if c.MaxBanks < 1 || c.MaxBanks > bank.MaxBanks {
		return streamerr.New(streamerr.InvalidConfig, "max_banks must be 1-%d, got %d", bank.MaxBanks, c.MaxBanks)
	}
	if c.NoiseGate < 0 || c.NoiseGate > 100 {
		return streamerr.New(streamerr.InvalidConfig, "noise_gate must be 0-100, got %d", c.NoiseGate)
	}
	if c.NoiseShaping && c.Compression == CompressionVQ {
		return streamerr.New(streamerr.InvalidConfig, "noise_shaping is incompatible with vq compression")
	}
	if c.NoiseShapeOrder != 0 && c.NoiseShapeOrder != 1 && c.NoiseShapeOrder != 2 {
		return streamerr.New(streamerr.InvalidConfig, "noise_shape_order must be 1 or 2, got %d", c.NoiseShapeOrder)
	}
	if c.Compression == CompressionVQ {
		switch c.VecSize {
		case 2, 4, 8, 16:
		default:
			return streamerr.New(streamerr.InvalidConfig, "vec_size must be one of 2,4,8,16, got %d", c.VecSize)
		}
	}
	return nil
}
