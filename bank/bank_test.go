package bank

import (
	"errors"
	"testing"
)

func TestSplitRawChunksAndPads(t *testing.T) {
	data := make([]byte, Size+100)
	for i := range data {
		data[i] = byte(i)
	}
	banks, err := SplitRaw(data, MaxBanks)
	if err != nil {
		t.Fatal(err)
	}
	if len(banks) != 2 {
		t.Fatalf("got %d banks, want 2", len(banks))
	}
	if len(banks[0]) != Size || len(banks[1]) != Size {
		t.Fatalf("bank sizes must be %d, got %d and %d", Size, len(banks[0]), len(banks[1]))
	}
	for i := 100; i < Size; i++ {
		if banks[1][i] != 0 {
			t.Fatalf("expected zero padding at tail byte %d, got %d", i, banks[1][i])
		}
	}
}

func TestSplitRawOverflow(t *testing.T) {
	data := make([]byte, Size*3)
	_, err := SplitRaw(data, 2)
	var overflow *ErrBankOverflow
	if !errors.As(err, &overflow) {
		t.Fatalf("expected ErrBankOverflow, got %v", err)
	}
}

func TestPortBValuesMatchesTable(t *testing.T) {
	vals, err := PortBValues(8)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vals {
		if v != PortBTable[i] {
			t.Fatalf("index %d: got %02X, want %02X", i, v, PortBTable[i])
		}
	}
}

func TestPortBValuesTooMany(t *testing.T) {
	if _, err := PortBValues(MaxBanks + 1); err == nil {
		t.Fatal("expected error requesting more than MaxBanks")
	}
}

func TestEncodeAllSequentialAndParallelAgree(t *testing.T) {
	chunks := make([][]byte, 20)
	for i := range chunks {
		chunks[i] = []byte{byte(i)}
	}
	encode := func(bankIndex int, chunk []byte) ([]byte, error) {
		return []byte{chunk[0] * 2, byte(bankIndex)}, nil
	}

	seq, err := EncodeAll(chunks, false, encode)
	if err != nil {
		t.Fatal(err)
	}
	par, err := EncodeAll(chunks, true, encode)
	if err != nil {
		t.Fatal(err)
	}
	for i := range seq {
		if seq[i][0] != par[i][0] || seq[i][1] != par[i][1] {
			t.Fatalf("bank %d mismatch: seq=%v par=%v", i, seq[i], par[i])
		}
	}
}

func TestEncodeAllPropagatesError(t *testing.T) {
	chunks := [][]byte{{1}, {2}, {3}}
	wantErr := errors.New("boom")
	_, err := EncodeAll(chunks, true, func(i int, c []byte) ([]byte, error) {
		if i == 1 {
			return nil, wantErr
		}
		return c, nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
