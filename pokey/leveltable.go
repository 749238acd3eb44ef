package pokey

import (
	"fmt"
	"sync"
)

// Volumes is the per-channel AUDC volume (0-15) at one level-table entry.
type Volumes []uint8

// LevelTable is a single-step voltage ladder for an N-channel volume-only
// DAC: consecutive entries differ by exactly one channel's volume changing
// by exactly one step, so sequential AUDC writes never pass through an
// intermediate voltage the table didn't already account for.
type LevelTable struct {
	Channels  int
	Voltages  []float32 // length NumLevels(Channels)
	Volumes   []Volumes // same length, per-level channel volumes
	MaxVoltage float32
}

var (
	tableCacheMu sync.Mutex
	tableCache   = map[int]*LevelTable{}
)

// NewLevelTable builds (or returns a cached) single-step level table for
// the given channel count (1-4). Entries are built by round-robin
// incrementing whichever channel's trial voltage lands closest to the
// next target on a linear ramp from 0 to MaxVoltage, ties broken toward
// the lowest channel index.
func NewLevelTable(channels int) (*LevelTable, error) {
	if channels < MinChannels || channels > MaxChannels {
		return nil, fmt.Errorf("pokey: channels must be 1-4, got %d", channels)
	}

	tableCacheMu.Lock()
	if t, ok := tableCache[channels]; ok {
		tableCacheMu.Unlock()
		return t, nil
	}
	tableCacheMu.Unlock()

	t := buildLevelTable(channels)

	tableCacheMu.Lock()
	tableCache[channels] = t
	tableCacheMu.Unlock()
	return t, nil
}

func buildLevelTable(channels int) *LevelTable {
	maxSteps := 15 * channels
	nLevels := maxSteps + 1
	maxVoltage := float32(channels) * voltageTableSingle[15]

	cur := make([]uint8, channels)
	voltages := make([]float32, nLevels)
	volumes := make([]Volumes, nLevels)
	volumes[0] = append(Volumes(nil), cur...)

	for k := 1; k < nLevels; k++ {
		targetV := float32(k) * maxVoltage / float32(maxSteps)

		bestCh := -1
		bestDist := float32(1 << 30)
		for ch := 0; ch < channels; ch++ {
			if cur[ch] >= 15 {
				continue
			}
			trialV := float32(0)
			for j := 0; j < channels; j++ {
				v := cur[j]
				if j == ch {
					v++
				}
				trialV += voltageTableSingle[v]
			}
			d := trialV - targetV
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				bestDist = d
				bestCh = ch
			}
		}
		cur[bestCh]++

		v := float32(0)
		for j := 0; j < channels; j++ {
			v += voltageTableSingle[cur[j]]
		}
		voltages[k] = v
		snap := make(Volumes, channels)
		copy(snap, cur)
		volumes[k] = snap
	}

	return &LevelTable{
		Channels:   channels,
		Voltages:   voltages,
		Volumes:    volumes,
		MaxVoltage: maxVoltage,
	}
}

// IndexToVolumes clamps idx into range and returns the per-channel volumes
// at that level.
func (t *LevelTable) IndexToVolumes(idx int) Volumes {
	maxIdx := len(t.Volumes) - 1
	if idx < 0 {
		idx = 0
	} else if idx > maxIdx {
		idx = maxIdx
	}
	return t.Volumes[idx]
}

// DualChannelTable is the legacy balanced 2-channel (31-level) ladder,
// retained for compatibility with the older dual-channel packing scheme.
func DualChannelTable() []float32 {
	out := make([]float32, len(voltageTableDual))
	copy(out, voltageTableDual[:])
	return out
}

// DualIndexToPair splits a dual-channel level index into its two channel
// volumes, split as evenly as possible (idx/2, idx-idx/2).
func DualIndexToPair(idx int) (v1, v2 int) {
	v1 = idx / 2
	v2 = idx - v1
	return
}

// PackDualByte packs a dual-channel level index into one nibble-per-channel
// byte, matching the player's AUDC1/AUDC2 combined write.
func PackDualByte(idx int) byte {
	v1, v2 := DualIndexToPair(idx)
	return byte((v1 << 4) | v2)
}
