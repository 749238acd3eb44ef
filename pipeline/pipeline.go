package pipeline

import (
	"fmt"

	"github.com/intuitionamiga/streamplayer/asm6502"
	"github.com/intuitionamiga/streamplayer/bank"
	"github.com/intuitionamiga/streamplayer/codec/deltalz"
	"github.com/intuitionamiga/streamplayer/codec/raw"
	"github.com/intuitionamiga/streamplayer/codec/vq"
	"github.com/intuitionamiga/streamplayer/dsp"
	"github.com/intuitionamiga/streamplayer/pokey"
	"github.com/intuitionamiga/streamplayer/project"
	"github.com/intuitionamiga/streamplayer/streamerr"
)

// Result is Encode's return value: the finished XEX bytes (primary
// output) plus the generated assembly fragment set (secondary output,
// always populated — spec.md treats fragment generation as always-on,
// the CLI only writes it to disk when asked) and any non-fatal
// warnings.
type Result struct {
	XEX            []byte
	Fragments      map[string][]byte
	Warnings       []string
	NBanks         int
	ActualRate     float64
	SamplesEncoded int
}

// Encode runs the full pipeline: preprocess, quantize, pack into banks,
// compress, generate assembly fragments, assemble, and link into a
// single self-booting XEX.
func Encode(pcm []float32, sampleRate int, cfg Config) (Result, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(pcm) == 0 {
		return Result{}, streamerr.New(streamerr.AudioTooShort, "empty PCM input")
	}

	divisor, actualRate, audctl := dsp.FindBestDivisor(float64(cfg.Rate))

	x := dsp.Resample(pcm, float64(sampleRate), actualRate)
	x = dsp.DCBlock(x, actualRate)
	x = dsp.Normalize(x, 1.0)
	if cfg.Enhance {
		x = dsp.EnhanceAudio(x, actualRate, 0.7)
	}
	if cfg.DynamicsStrength > 0 {
		x = dsp.CompressDynamics(x, cfg.DynamicsStrength)
	}

	table, err := pokey.NewLevelTable(cfg.Channels)
	if err != nil {
		return Result{}, streamerr.Wrap(streamerr.InvalidConfig, err)
	}

	shapeOrder := pokey.NoShaping
	if cfg.NoiseShaping {
		if cfg.NoiseShapeOrder == 2 {
			shapeOrder = pokey.Shape2
		} else {
			shapeOrder = pokey.Shape1
		}
	}
	indices := pokey.Quantize(x, table, shapeOrder)
	if len(indices) == 0 {
		return Result{}, streamerr.New(streamerr.AudioTooShort, "quantized stream is empty")
	}

	banks, consumed, warnings, err := encodeBanksWithBudget(indices, cfg)
	if err != nil {
		return Result{}, err
	}

	fragments, err := generateFragments(banks, cfg, divisor, audctl, actualRate, consumed)
	if err != nil {
		return Result{}, err
	}

	sources, mainFile := buildSources(fragments, cfg.StaticSources)
	asm := asm6502.NewAssembler(mainFile, sources)
	xexBytes, err := asm.Assemble()
	if err != nil {
		return Result{}, streamerr.NewAssemblerFailure(streamerr.SubKindEmit, err)
	}

	return Result{
		XEX:            xexBytes,
		Fragments:      fragments,
		Warnings:       warnings,
		NBanks:         len(banks),
		ActualRate:     actualRate,
		SamplesEncoded: consumed,
	}, nil
}

// encodeBanksWithBudget wraps encodeBanks with spec.md §7's
// MaxBanksExceeded policy: when the codec reports it needs more banks
// than cfg.MaxBanks allows, Strict mode turns that into a hard error;
// otherwise the input is trimmed to a size expected to fit and
// re-encoded once, with the shortfall reported as a warning rather than
// a failure.
func encodeBanksWithBudget(indices []byte, cfg Config) ([][]byte, int, []string, error) {
	banks, n, warnings, err := encodeBanks(indices, cfg)
	if err == nil {
		return banks, n, warnings, nil
	}

	bo, ok := err.(*bank.ErrBankOverflow)
	if !ok {
		return nil, 0, nil, streamerr.Wrap(streamerr.BankOverflow, err)
	}
	if cfg.Strict {
		return nil, 0, nil, streamerr.New(streamerr.MaxBanksExceeded,
			"input needs %d banks, only %d allowed (strict mode)", bo.NeededBanks, bo.MaxBanks)
	}

	budget := len(indices) * bo.MaxBanks / bo.NeededBanks
	budget = budget * 9 / 10 // safety margin: compression ratio isn't perfectly linear
	if budget <= 0 || budget >= len(indices) {
		return nil, 0, nil, streamerr.NewBankOverflow(bo.NeededBanks, bo.MaxBanks)
	}

	banks, n, _, err = encodeBanks(indices[:budget], cfg)
	if err != nil {
		return nil, 0, nil, streamerr.NewBankOverflow(bo.NeededBanks, bo.MaxBanks)
	}
	warnings = []string{fmt.Sprintf("input needs more than %d banks; truncated to %d of %d samples",
		cfg.MaxBanks, n, len(indices))}
	return banks, n, warnings, nil
}

// encodeBanks dispatches to the configured codec and returns the packed
// banks, the number of input samples actually consumed, and any
// MaxBanksExceeded-style warnings (non-fatal unless cfg.Strict).
func encodeBanks(indices []byte, cfg Config) (banksOut [][]byte, consumed int, warnings []string, err error) {
	var b [][]byte
	var n int

	switch cfg.Compression {
	case CompressionVQ:
		maxLevel := pokey.MaxLevel(cfg.Channels)
		b, n, err = vq.EncodeBanks(indices, cfg.VecSize, cfg.MaxBanks, maxLevel, cfg.NIterations, cfg.NoiseGate, cfg.Parallel)
	case CompressionLZ:
		useDelta := cfg.Mode == LZScalar
		b, n, err = deltalz.EncodeBanks(indices, cfg.MaxBanks, useDelta, cfg.Channels)
	default:
		b, n, err = raw.EncodeBanks(indices, cfg.MaxBanks)
	}
	if err != nil {
		return nil, 0, nil, err
	}
	if n < len(indices) {
		warnings = append(warnings, fmt.Sprintf("truncated at %d banks: %d of %d samples encoded", cfg.MaxBanks, n, len(indices)))
	}
	return b, n, warnings, nil
}

func compressModeName(c Compression) string {
	switch c {
	case CompressionVQ:
		return "vq"
	case CompressionLZ:
		return "lz"
	default:
		return "raw"
	}
}

// generateFragments renders the project package's data files for this
// encode, keyed by the exact filenames the static player source expects.
func generateFragments(banks [][]byte, cfg Config, divisor int, audctl byte, actualRate float64, totalSamples int) (map[string][]byte, error) {
	out := make(map[string][]byte)

	mode := project.ModeRaw
	switch cfg.Compression {
	case CompressionLZ:
		mode = project.ModeLZ
	case CompressionVQ:
		mode = project.ModeVQ
	}

	duration := float64(totalSamples) / actualRate

	out["config.asm"] = []byte(project.GenerateConfig(project.Config{
		NBanks:        len(banks),
		Mode:          mode,
		Divisor:       divisor,
		AUDCTL:        audctl,
		ActualRate:    actualRate,
		PokeyChannels: cfg.Channels,
		VecSize:       cfg.VecSize,
		SourceName:    cfg.SourceName,
		Duration:      duration,
		Stereo:        cfg.Stereo,
	}))

	table, err := pokey.NewLevelTable(cfg.Channels)
	if err != nil {
		return nil, streamerr.Wrap(streamerr.InvalidConfig, err)
	}
	maxLevel := pokey.MaxLevel(cfg.Channels)
	out["audc_tables.asm"] = []byte(project.GenerateAudcTables(cfg.Channels, maxLevel, func(idx int) []byte {
		return []byte(table.IndexToVolumes(idx))
	}))

	out["portb_table.asm"] = []byte(project.GeneratePortBTable())

	out["splash_data.asm"] = []byte(project.GenerateSplashData(project.SplashConfig{
		PokeyChannels: cfg.Channels,
		ActualRate:    actualRate,
		Mode:          compressModeName(cfg.Compression),
		VecSize:       cfg.VecSize,
		NBanks:        len(banks),
	}))

	out["banks.asm"] = []byte(project.GenerateBanksAsm(len(banks)))
	for i, b := range banks {
		out[project.BankFileName(i)] = []byte(project.GenerateBankData(i, b))
	}

	if cfg.Compression == CompressionVQ {
		out["vq_tables.asm"] = []byte(project.GenerateVQTables(cfg.VecSize))
	}

	return out, nil
}

// buildSources turns the generated fragment bytes into the in-memory
// source set asm6502.Parse's icl resolution reads from, merging in the
// caller-supplied static player fixture when present. The fixture is
// an opaque external collaborator (spec.md §1): this package never
// reads or writes it from disk, never parses its contents, and has no
// opinion on how the caller obtained it (embed, disk, network). When
// absent, a minimal stand-in main file is synthesized so the generator
// and assembler stages remain exercisable end to end without it.
func buildSources(fragments map[string][]byte, static map[string]string) (map[string]string, string) {
	sources := make(map[string]string, len(fragments)+len(static))
	for name, data := range fragments {
		sources[name] = string(data)
	}
	for name, text := range static {
		sources[name] = text
	}

	if _, ok := sources["stream_player.asm"]; ok {
		return sources, "stream_player.asm"
	}

	sources["stream_player.asm"] = stubMainSource(fragments)
	return sources, "stream_player.asm"
}

// stubMainSource builds a minimal main file that icl's the generated
// fragments and banks, and runs as a single INIT routine that never
// returns (a valid XEX entry pattern when no RUN directive is used).
// Used only when no static player fixture was supplied.
func stubMainSource(fragments map[string][]byte) string {
	var b []string
	b = append(b, "icl 'config.asm'")
	b = append(b, "icl 'audc_tables.asm'")
	b = append(b, "icl 'portb_table.asm'")
	if _, ok := fragments["vq_tables.asm"]; ok {
		b = append(b, "icl 'vq_tables.asm'")
	}
	b = append(b, "icl 'splash_data.asm'")
	b = append(b, "icl 'banks.asm'")
	b = append(b, "")
	b = append(b, "org CODE_BASE")
	b = append(b, "start:")
	b = append(b, "loop:")
	b = append(b, "  jmp loop")
	b = append(b, "ini start")
	b = append(b, "")
	out := ""
	for _, line := range b {
		out += line + "\n"
	}
	return out
}
