package vq

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/intuitionamiga/streamplayer/bank"
)

func synthIndices(n, maxLevel int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	v := maxLevel / 2
	for i := range out {
		if r.Intn(4) == 0 {
			if r.Intn(2) == 0 && v < maxLevel {
				v++
			} else if v > 0 {
				v--
			}
		}
		out[i] = byte(v)
	}
	return out
}

func TestGeometryFitsBankSize(t *testing.T) {
	for _, vecSize := range []int{2, 4, 8, 16} {
		cbBytes, idxPerBank, sampPerBank := Geometry(vecSize)
		if cbBytes+idxPerBank != bank.Size {
			t.Fatalf("vecSize=%d: codebook+indices = %d, want %d", vecSize, cbBytes+idxPerBank, bank.Size)
		}
		if sampPerBank != idxPerBank*vecSize {
			t.Fatalf("vecSize=%d: sampPerBank mismatch", vecSize)
		}
	}
}

func TestEncodeBankOutputIsCodebookPlusIndexStream(t *testing.T) {
	indices := synthIndices(4096, 60, 1)
	out, used, err := EncodeBank(indices, 4, 60, 10, 0, 7)
	if err != nil {
		t.Fatal(err)
	}
	if used != 4096 {
		t.Fatalf("used %d, want 4096", used)
	}
	cbBytes := NCodes * 4
	if len(out) != cbBytes+1024 {
		t.Fatalf("out len %d, want %d", len(out), cbBytes+1024)
	}
}

func TestEncodeBankDecodeBankRoundTripIsLossyButBounded(t *testing.T) {
	vecSize := 4
	indices := synthIndices(8192, 60, 2)
	out, used, err := EncodeBank(indices, vecSize, 60, 15, 0, 42)
	if err != nil {
		t.Fatal(err)
	}
	nVectors := used / vecSize
	decoded, err := DecodeBank(out, vecSize, nVectors)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != used {
		t.Fatalf("decoded len %d, want %d", len(decoded), used)
	}

	voltages := make([]float32, 61)
	for i := range voltages {
		voltages[i] = float32(i)
	}
	snr := MeasureSNR(indices[:used], decoded, voltages)
	if snr < 0 {
		t.Fatalf("SNR unexpectedly negative: %f", snr)
	}
}

func TestEncodeBankGateReservesSilence(t *testing.T) {
	vecSize := 2
	indices := make([]byte, 2048)
	// Half silence, half a loud tone.
	for i := 1024; i < len(indices); i++ {
		indices[i] = 55
	}
	out, used, err := EncodeBank(indices, vecSize, 60, 10, 10, 9)
	if err != nil {
		t.Fatal(err)
	}
	cbBytes := NCodes * vecSize
	silentCode := out[0:vecSize]
	for _, b := range silentCode {
		if b != 0 {
			t.Fatalf("expected code 0 reserved for silence, got %v", silentCode)
		}
	}
	idxStream := out[cbBytes : cbBytes+used/vecSize]
	sawSilentIdx := false
	for _, idx := range idxStream[:512/vecSize] {
		if idx == 0 {
			sawSilentIdx = true
			break
		}
	}
	if !sawSilentIdx {
		t.Fatal("expected silent region to map to reserved code 0")
	}
}

func TestEncodeBanksFillsMultipleBanks(t *testing.T) {
	vecSize := 4
	_, _, sampPerBank := Geometry(vecSize)
	total := sampPerBank*2 + 100
	indices := synthIndices(total, 60, 3)

	banks, encoded, err := EncodeBanks(indices, vecSize, 64, 60, 8, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(banks) != 3 {
		t.Fatalf("got %d banks, want 3", len(banks))
	}
	for _, b := range banks {
		if len(b) != bank.Size {
			t.Fatalf("bank size %d, want %d", len(b), bank.Size)
		}
	}
	if encoded != total {
		t.Fatalf("encoded %d, want %d", encoded, total)
	}
}

func TestEncodeBanksOverflow(t *testing.T) {
	vecSize := 4
	_, _, sampPerBank := Geometry(vecSize)
	indices := synthIndices(sampPerBank*3, 60, 4)

	_, _, err := EncodeBanks(indices, vecSize, 1, 60, 5, 0, true)
	if err == nil {
		t.Fatal("expected overflow error with maxBanks=1")
	}
}

func TestEncodeBanksRejectsBadVecSize(t *testing.T) {
	if _, _, err := EncodeBanks([]byte{1, 2, 3}, 3, 64, 60, 5, 0, true); err == nil {
		t.Fatal("expected error for invalid vecSize")
	}
}

func TestEncodeBanksParallelMatchesSequential(t *testing.T) {
	vecSize := 4
	_, _, sampPerBank := Geometry(vecSize)
	indices := synthIndices(sampPerBank*3+200, 60, 7)

	seq, seqN, err := EncodeBanks(indices, vecSize, 64, 60, 8, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	par, parN, err := EncodeBanks(indices, vecSize, 64, 60, 8, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if seqN != parN {
		t.Fatalf("consumed mismatch: sequential=%d parallel=%d", seqN, parN)
	}
	if len(seq) != len(par) {
		t.Fatalf("bank count mismatch: sequential=%d parallel=%d", len(seq), len(par))
	}
	for i := range seq {
		if !bytes.Equal(seq[i], par[i]) {
			t.Fatalf("bank %d differs between sequential and parallel encoding", i)
		}
	}
}

func TestKMeansDeterministicForSameSeed(t *testing.T) {
	indices := synthIndices(4096, 60, 5)
	out1, _, err := EncodeBank(indices, 4, 60, 10, 0, 123)
	if err != nil {
		t.Fatal(err)
	}
	out2, _, err := EncodeBank(indices, 4, 60, 10, 0, 123)
	if err != nil {
		t.Fatal(err)
	}
	if len(out1) != len(out2) {
		t.Fatalf("lengths differ: %d vs %d", len(out1), len(out2))
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("same seed produced different output at byte %d", i)
		}
	}
}

func TestMeasureSNRIdenticalIsHuge(t *testing.T) {
	voltages := make([]float32, 16)
	for i := range voltages {
		voltages[i] = float32(i)
	}
	data := []byte{1, 2, 3, 4, 5}
	snr := MeasureSNR(data, data, voltages)
	if snr < 100 {
		t.Fatalf("expected very high SNR for identical streams, got %f", snr)
	}
}
