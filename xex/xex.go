// Package xex builds Atari DOS "XEX" binaries: a single $FF$FF header
// followed by a sequence of segments, each with a 16-bit start/end
// address pair, consumed by the Atari loader. Special addresses $02E0 (RUNAD) and
// $02E2 (INITAD) let a segment register a run or init vector that the
// loader jumps to automatically.
package xex

import "encoding/binary"

// RunVectorAddr is RUNAD: the loader jumps here after loading completes.
const RunVectorAddr = 0x02E0

// InitVectorAddr is INITAD: the loader calls this after the segment that
// sets it finishes loading.
const InitVectorAddr = 0x02E2

// Segment is one contiguous block of code or data destined for a fixed
// memory address.
type Segment struct {
	Start uint16
	Data  []byte
}

// End returns the last occupied address (inclusive), matching the
// loader's start/end pair semantics.
func (s Segment) End() uint16 {
	if len(s.Data) == 0 {
		return s.Start
	}
	return s.Start + uint16(len(s.Data)) - 1
}

// Build concatenates segments into an XEX binary. Later segments that
// overlap earlier ones take priority when the loader processes them in
// file order; this builder has no opinion on overlap, it just emits
// segments in the order given.
func Build(segments []Segment) []byte {
	var out []byte
	magicWritten := false
	for _, seg := range segments {
		if len(seg.Data) == 0 {
			continue
		}
		if !magicWritten {
			out = append(out, 0xFF, 0xFF)
			magicWritten = true
		}
		var hdr [4]byte
		binary.LittleEndian.PutUint16(hdr[0:2], seg.Start)
		binary.LittleEndian.PutUint16(hdr[2:4], seg.End())
		out = append(out, hdr[:]...)
		out = append(out, seg.Data...)
	}
	return out
}

// MakeInitSegment creates an INITAD segment pointing to addr, so the
// loader calls addr immediately after the preceding data finishes
// loading (used for banked-memory detection routines that must run
// before the player's RUN vector).
func MakeInitSegment(addr uint16) Segment {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], addr)
	return Segment{Start: InitVectorAddr, Data: data[:]}
}

// MakeRunSegment creates a RUNAD segment pointing to addr, the entry
// point the loader jumps to once every segment has loaded.
func MakeRunSegment(addr uint16) Segment {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], addr)
	return Segment{Start: RunVectorAddr, Data: data[:]}
}
