package asm6502

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/intuitionamiga/streamplayer/xex"
)

// MaxPasses bounds the resolve-pass fixpoint loop. 6502 assembly needs
// multiple passes because zero-page-vs-absolute addressing mode (which
// affects instruction size, hence every later address) can only be
// decided once a forward-referenced symbol's value is known.
const MaxPasses = 20

// AsmError is a rich assembly error carrying source context: file,
// line, the offending source text, the include chain it came through,
// and an actionable hint derived from the error category.
type AsmError struct {
	Msg  string
	Loc  Loc
	Hint string
}

func (e *AsmError) Error() string {
	var b strings.Builder
	if e.Loc.File != "" {
		fmt.Fprintf(&b, "%s:%d: %s", filepath.Base(e.Loc.File), e.Loc.Line, e.Msg)
	} else {
		b.WriteString(e.Msg)
	}
	if e.Loc.Source != "" {
		fmt.Fprintf(&b, "\n  %5d | %s", e.Loc.Line, e.Loc.Source)
	}
	for i := len(e.Loc.IncStack) - 1; i >= 0; i-- {
		f := e.Loc.IncStack[i]
		fmt.Fprintf(&b, "\n  included from %s:%d", filepath.Base(f.File), f.Line)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n  hint: %s", e.Hint)
	}
	return b.String()
}

func hintFor(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "undefined symbol"):
		return "Check spelling — symbols are case-sensitive. If defined in another file, ensure it is included first."
	case strings.Contains(m, "branch out of range"):
		return "Branch range is ±127 bytes. Use JMP for longer distances, or restructure the code."
	case strings.Contains(m, "not found"):
		return "Check the filename and that the file is in the project's source set."
	}
	return ""
}

func locError(msg string, loc Loc) *AsmError {
	return &AsmError{Msg: msg, Loc: loc, Hint: hintFor(msg)}
}

// Assembler is a three-phase 6502 assembler: parse, resolve symbols to a
// fixpoint, then emit the final machine code as XEX segments.
type Assembler struct {
	mainFile string
	sources  map[string]string
}

// NewAssembler creates an assembler over an in-memory source set. sources
// maps include-able filenames (including mainFile itself) to their text;
// icl directives resolve against this set rather than the filesystem.
func NewAssembler(mainFile string, sources map[string]string) *Assembler {
	return &Assembler{mainFile: mainFile, sources: sources}
}

// Assemble runs parse/resolve/emit to a symbol-table fixpoint and returns
// the finished XEX binary.
func (a *Assembler) Assemble() ([]byte, error) {
	symbols := make(map[string]int64)
	var prev map[string]int64
	var history []map[string]int64

	for passN := 1; passN <= MaxPasses; passN++ {
		stmts, err := Parse(a.mainFile, a.sources, symbols)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				return nil, locError(pe.Msg, pe.Loc)
			}
			return nil, err
		}

		var unresolved []int
		symbols, unresolved = resolvePass(stmts, symbols)
		history = append(history, cloneSymbols(symbols))

		if prev != nil && passN >= 2 && symbolsEqual(prev, symbols) {
			if len(unresolved) > 0 {
				return nil, raiseUnresolved(stmts, unresolved, symbols)
			}
			segs, err := emit(stmts, symbols)
			if err != nil {
				return nil, err
			}
			return xex.Build(segs), nil
		}
		prev = cloneSymbols(symbols)
	}

	return nil, raiseNoConvergence(history)
}

func cloneSymbols(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func symbolsEqual(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// resolvePass runs one resolve iteration over stmts, assigning program
// counters and collecting symbol values. Returns the updated symbol
// table and the statement indices that failed to evaluate this pass
// (paired with the PC at that point, via the returned index only —
// re-evaluation for error messages happens after convergence).
func resolvePass(stmts []Stmt, prevSymbols map[string]int64) (map[string]int64, []int) {
	syms := cloneSymbols(prevSymbols)
	var pc int64
	var bad []int

	for i, s := range stmts {
		switch s.Kind {
		case StmtLabel:
			syms[s.Name] = pc & 0xFFFF

		case StmtEquate:
			v, err := Evaluate(s.Expr, syms, pc, false)
			if err != nil {
				bad = append(bad, i)
				continue
			}
			syms[s.Name] = v & 0xFFFF

		case StmtOrg:
			v, err := Evaluate(s.Expr, syms, pc, false)
			if err != nil {
				bad = append(bad, i)
				continue
			}
			pc = v & 0xFFFF

		case StmtIni:
			if _, err := Evaluate(s.Expr, syms, pc, false); err != nil {
				bad = append(bad, i)
			}

		case StmtByte:
			anyBad := false
			for _, expr := range s.Exprs {
				if _, err := Evaluate(expr, syms, pc, false); err != nil && !anyBad {
					bad = append(bad, i)
					anyBad = true
				}
				pc++
			}

		case StmtWord:
			anyBad := false
			for _, expr := range s.Exprs {
				if _, err := Evaluate(expr, syms, pc, false); err != nil && !anyBad {
					bad = append(bad, i)
					anyBad = true
				}
				pc += 2
			}

		case StmtInstr:
			data, err := Encode(s.Name, s.Expr, syms, pc)
			if err != nil {
				bad = append(bad, i)
				pc += int64(s.EstSize)
				continue
			}
			pc += int64(len(data))
		}
	}
	return syms, bad
}

// emit runs the final pass, encoding every statement into XEX segments.
// Every expression must resolve at this point; failures become AsmErrors.
func emit(stmts []Stmt, symbols map[string]int64) ([]xex.Segment, error) {
	var segs []xex.Segment
	var cur *xex.Segment
	var pc int64

	close := func() {
		if cur != nil && len(cur.Data) > 0 {
			segs = append(segs, *cur)
		}
		cur = nil
	}
	put := func(data []byte) {
		if cur == nil {
			cur = &xex.Segment{Start: uint16(pc)}
		}
		cur.Data = append(cur.Data, data...)
		pc += int64(len(data))
	}

	for _, s := range stmts {
		switch s.Kind {
		case StmtLabel, StmtEquate:
			continue

		case StmtOrg:
			close()
			v, err := Evaluate(s.Expr, symbols, pc, false)
			if err != nil {
				return nil, locError(err.Error(), s.Loc)
			}
			pc = v & 0xFFFF
			cur = &xex.Segment{Start: uint16(pc)}

		case StmtIni:
			close()
			v, err := Evaluate(s.Expr, symbols, pc, false)
			if err != nil {
				return nil, locError(err.Error(), s.Loc)
			}
			segs = append(segs, xex.MakeInitSegment(uint16(v&0xFFFF)))

		case StmtByte:
			for _, expr := range s.Exprs {
				v, err := Evaluate(expr, symbols, pc, false)
				if err != nil {
					return nil, locError(err.Error(), s.Loc)
				}
				put([]byte{byte(v)})
			}

		case StmtWord:
			for _, expr := range s.Exprs {
				v, err := Evaluate(expr, symbols, pc, false)
				if err != nil {
					return nil, locError(err.Error(), s.Loc)
				}
				put([]byte{byte(v), byte(v >> 8)})
			}

		case StmtInstr:
			data, err := Encode(s.Name, s.Expr, symbols, pc)
			if err != nil {
				return nil, locError(err.Error(), s.Loc)
			}
			put(data)

		case StmtErrorDirective:
			return nil, locError(".error: "+s.Expr, s.Loc)
		}
	}
	close()
	return segs, nil
}

func raiseUnresolved(stmts []Stmt, bad []int, symbols map[string]int64) error {
	idx := bad[0]
	first := stmts[idx]
	n := len(bad)

	msg := fmt.Sprintf("unresolved reference in: %s", strings.TrimSpace(first.Loc.Source))

	var reErr error
	switch first.Kind {
	case StmtInstr:
		_, reErr = Encode(first.Name, first.Expr, symbols, 0)
	case StmtEquate, StmtOrg, StmtIni:
		_, reErr = Evaluate(first.Expr, symbols, 0, false)
	case StmtByte, StmtWord:
		for _, expr := range first.Exprs {
			if _, err := Evaluate(expr, symbols, 0, false); err != nil {
				reErr = err
				break
			}
		}
	}
	if reErr != nil {
		msg = reErr.Error()
	}
	if n > 1 {
		msg += fmt.Sprintf(" (+%d more)", n-1)
	}
	return locError(msg, first.Loc)
}

func raiseNoConvergence(history []map[string]int64) error {
	msg := fmt.Sprintf("assembly did not converge after %d passes.", len(history))
	var lines []string
	if len(history) >= 4 {
		last := history[len(history)-1]
		names := make([]string, 0, len(last))
		for name := range last {
			if strings.HasPrefix(name, "__") {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		recent := history[len(history)-4:]
		for _, name := range names {
			seen := make(map[int64]bool)
			var trail []string
			for _, h := range recent {
				if v, ok := h[name]; ok {
					seen[v] = true
					trail = append(trail, fmt.Sprintf("$%04X", v))
				} else {
					trail = append(trail, "?")
				}
			}
			if len(seen) > 1 {
				lines = append(lines, fmt.Sprintf("    %s: %s", name, strings.Join(trail, " → ")))
			}
		}
		if len(lines) > 0 {
			msg += "\n  Symbols that did not stabilize:"
			if len(lines) > 10 {
				msg += "\n" + strings.Join(lines[:10], "\n") + fmt.Sprintf("\n    ...and %d more", len(lines)-10)
			} else {
				msg += "\n" + strings.Join(lines, "\n")
			}
		}
	}
	return &AsmError{Msg: msg}
}
