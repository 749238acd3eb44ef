// Command streamplayer is a thin flag-based demonstration wire-up over
// package pipeline, in the spirit of cmd/ie32to64: it reads raw signed
// 16-bit PCM samples and writes the resulting XEX. Audio-file decoding
// (WAV/MP3/tracker formats) is out of scope; feeding this command a
// real audio file is the caller's responsibility, not this package's.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/intuitionamiga/streamplayer/pipeline"
)

func main() {
	outFile := flag.String("o", "", "Output .xex path (default: input with .xex extension)")
	rate := flag.Int("rate", 15700, "Target POKEY playback rate in Hz")
	channels := flag.Int("channels", 1, "POKEY channels, 1-4")
	compression := flag.String("compress", "raw", "Compression: raw, lz, vq")
	vecSize := flag.Int("vec-size", 4, "VQ vector size: 2, 4, 8, or 16")
	maxBanks := flag.Int("max-banks", 64, "Maximum extended-memory banks")
	enhance := flag.Bool("enhance", false, "Apply ZOH pre-emphasis enhancement")
	noiseShape := flag.Bool("noise-shape", false, "Enable noise shaping (raw/lz only)")
	noiseGate := flag.Int("noise-gate", 0, "VQ silence-vector gate percentage, 0-100")
	strict := flag.Bool("strict", false, "Fail instead of truncating when input exceeds max-banks")
	dumpFragments := flag.Bool("dump-fragments", false, "Also write generated .asm fragments alongside the output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: streamplayer [options] input.pcm\n\n"+
			"Encodes raw signed 16-bit little-endian PCM into a self-booting\n"+
			"Atari XEX that plays it back through POKEY.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  streamplayer -rate 8000 song.pcm\n")
		fmt.Fprintf(os.Stderr, "  streamplayer -compress vq -vec-size 8 -o song.xex song.pcm\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	mode, err := compressionMode(*compression)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", inputPath, err)
		os.Exit(1)
	}
	pcm, err := decodeS16LE(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := pipeline.Config{
		Compression:  mode,
		VecSize:      *vecSize,
		Channels:     *channels,
		Rate:         *rate,
		Enhance:      *enhance,
		MaxBanks:     *maxBanks,
		NoiseShaping: *noiseShape,
		NoiseGate:    *noiseGate,
		Strict:       *strict,
		SourceName:   filepath.Base(inputPath),
	}

	res, err := pipeline.Encode(pcm, *rate, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	outputPath := *outFile
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".xex"
	}
	if err := os.WriteFile(outputPath, res.XEX, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes, %d banks, %.1f Hz)\n", outputPath, len(res.XEX), res.NBanks, res.ActualRate)

	if *dumpFragments {
		dir := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_fragments"
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "error creating %s: %v\n", dir, err)
			os.Exit(1)
		}
		for name, data := range res.Fragments {
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "error writing %s: %v\n", name, err)
				os.Exit(1)
			}
		}
		fmt.Printf("wrote %d fragments to %s\n", len(res.Fragments), dir)
	}
}

func compressionMode(s string) (pipeline.Compression, error) {
	switch strings.ToLower(s) {
	case "raw", "":
		return pipeline.CompressionOff, nil
	case "lz", "deltalz":
		return pipeline.CompressionLZ, nil
	case "vq":
		return pipeline.CompressionVQ, nil
	default:
		return 0, fmt.Errorf("unknown -compress mode %q (want raw, lz, or vq)", s)
	}
}

// decodeS16LE converts a raw signed 16-bit little-endian PCM byte
// stream into normalized float32 samples. This is the minimal
// container-free input format this demo accepts; real audio-file
// decoding is out of this system's scope.
func decodeS16LE(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of 2 bytes (expected 16-bit samples)", len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}
