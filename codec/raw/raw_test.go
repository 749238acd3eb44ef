package raw

import (
	"bytes"
	"testing"

	"github.com/intuitionamiga/streamplayer/bank"
)

func TestEncodeBanksDecodeBanksRoundTrip(t *testing.T) {
	total := bank.Size + 500
	indices := make([]byte, total)
	for i := range indices {
		indices[i] = byte(i)
	}

	banks, encoded, err := EncodeBanks(indices, bank.MaxBanks)
	if err != nil {
		t.Fatal(err)
	}
	if encoded != total {
		t.Fatalf("encoded %d, want %d", encoded, total)
	}
	if len(banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(banks))
	}

	decoded := DecodeBanks(banks, total)
	if !bytes.Equal(decoded, indices) {
		t.Fatal("decoded stream does not match original indices")
	}
}

func TestEncodeBanksOverflow(t *testing.T) {
	indices := make([]byte, bank.Size*3)
	if _, _, err := EncodeBanks(indices, 2); err == nil {
		t.Fatal("expected overflow error with maxBanks=2")
	}
}

func TestDecodeBanksTrimsToTotalSamples(t *testing.T) {
	b := make([]byte, bank.Size)
	for i := range b {
		b[i] = byte(i)
	}
	decoded := DecodeBanks([][]byte{b}, 10)
	if len(decoded) != 10 {
		t.Fatalf("got %d bytes, want 10", len(decoded))
	}
	for i := 0; i < 10; i++ {
		if decoded[i] != byte(i) {
			t.Fatalf("byte %d mismatch: got %d", i, decoded[i])
		}
	}
}
