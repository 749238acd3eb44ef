package pokey

import (
	"math"
	"testing"
)

func TestNewLevelTableSingleStep(t *testing.T) {
	for ch := MinChannels; ch <= MaxChannels; ch++ {
		tbl, err := NewLevelTable(ch)
		if err != nil {
			t.Fatalf("channels=%d: %v", ch, err)
		}
		if got, want := len(tbl.Voltages), NumLevels(ch); got != want {
			t.Fatalf("channels=%d: got %d levels, want %d", ch, got, want)
		}
		for k := 1; k < len(tbl.Volumes); k++ {
			diff := 0
			for c := 0; c < ch; c++ {
				d := int(tbl.Volumes[k][c]) - int(tbl.Volumes[k-1][c])
				if d < 0 {
					d = -d
				}
				diff += d
			}
			if diff != 1 {
				t.Fatalf("channels=%d level %d: volume delta sum=%d, want 1", ch, k, diff)
			}
		}
	}
}

func TestNewLevelTableMonotonic(t *testing.T) {
	tbl, err := NewLevelTable(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(tbl.Voltages); i++ {
		if tbl.Voltages[i] < tbl.Voltages[i-1] {
			t.Fatalf("voltage table not monotonic at %d: %v -> %v",
				i, tbl.Voltages[i-1], tbl.Voltages[i])
		}
	}
}

func TestNewLevelTableInvalidChannels(t *testing.T) {
	if _, err := NewLevelTable(0); err == nil {
		t.Fatal("expected error for channels=0")
	}
	if _, err := NewLevelTable(5); err == nil {
		t.Fatal("expected error for channels=5")
	}
}

func TestQuantizeNearestClampsRange(t *testing.T) {
	tbl, _ := NewLevelTable(4)
	out := Quantize([]float32{-2, -1, 0, 1, 2}, tbl, NoShaping)
	if out[0] != 0 {
		t.Fatalf("expected clamp to 0, got %d", out[0])
	}
	if int(out[len(out)-1]) != MaxLevel(4) {
		t.Fatalf("expected clamp to max level %d, got %d", MaxLevel(4), out[len(out)-1])
	}
}

func TestQuantizeShapedReducesDCBias(t *testing.T) {
	tbl, _ := NewLevelTable(4)
	samples := make([]float32, 2000)
	for i := range samples {
		samples[i] = 0.01 // a constant that falls between two ladder levels
	}
	nearest := Quantize(samples, tbl, NoShaping)
	shaped := Quantize(samples, tbl, Shape1)

	target := float64(scale(0.01, tbl.Voltages[len(tbl.Voltages)-1]))
	meanErr := func(idx []uint8) float64 {
		var s float64
		for _, v := range idx {
			s += float64(tbl.Voltages[v])
		}
		return math.Abs(s/float64(len(idx)) - target)
	}
	// Shaped quantization should track the true average level more closely
	// than rounding every sample to the same nearest level.
	if meanErr(shaped) >= meanErr(nearest) {
		t.Fatalf("expected noise shaping to reduce DC error: shaped=%g nearest=%g", meanErr(shaped), meanErr(nearest))
	}
}

func TestDualIndexToPairAndPackDualByte(t *testing.T) {
	v1, v2 := DualIndexToPair(7)
	if v1+v2 != 7 {
		t.Fatalf("dual split does not sum back: %d+%d != 7", v1, v2)
	}
	b := PackDualByte(7)
	if int(b>>4) != v1 || int(b&0x0F) != v2 {
		t.Fatalf("packed byte mismatch: %02X vs v1=%d v2=%d", b, v1, v2)
	}
}
