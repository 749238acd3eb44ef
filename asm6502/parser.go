package asm6502

import (
	"fmt"
	"regexp"
	"strings"
)

// Loc is an immutable source location used for error reporting.
type Loc struct {
	File     string
	Line     int
	Source   string
	IncStack []IncFrame
}

// IncFrame records one level of icl-include nesting.
type IncFrame struct {
	File string
	Line int
}

// StmtKind identifies the meaning of a parsed Stmt.
type StmtKind int

const (
	StmtLabel StmtKind = iota
	StmtEquate
	StmtOrg
	StmtIni
	StmtByte
	StmtWord
	StmtInstr
	StmtErrorDirective
)

// Stmt is one parsed statement; which fields are meaningful depends on Kind.
type Stmt struct {
	Kind    StmtKind
	Loc     Loc
	Name    string   // label/equate name, or instruction mnemonic
	Expr    string   // equate/org/ini value, instruction operand, or .error text
	Exprs   []string // .byte/.word argument expressions
	EstSize int
}

// ParseError is a hard parse-time failure: an unresolvable include or a
// malformed conditional-assembly nest.
type ParseError struct {
	Msg string
	Loc Loc
}

func (e *ParseError) Error() string { return e.Msg }

var (
	reGlobalLabel = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:`)
	reLocalLabel  = regexp.MustCompile(`^@([A-Za-z_]\w*)\s*:`)
	reAnonLabel   = regexp.MustCompile(`^@\s*:`)
	reEquate      = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*(.+)$`)
	reIcl         = regexp.MustCompile(`(?i)^\s*icl\s+['"]([^'"]+)['"]`)
	reAtRef       = regexp.MustCompile(`@([A-Za-z_]\w*)`)
)

// stripComment removes a `; comment` suffix, respecting quoted strings.
func stripComment(line string) string {
	inQuote := false
	var quoteChar byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inQuote {
			if c == quoteChar {
				inQuote = false
			}
			continue
		}
		if c == '"' || c == '\'' {
			inQuote, quoteChar = true, c
			continue
		}
		if c == ';' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return strings.TrimRight(line, " \t")
}

func dirMatch(low, directive string) bool {
	n := len(directive)
	return strings.HasPrefix(low, directive) &&
		(len(low) == n || low[n] == ' ' || low[n] == '\t')
}

func dirAfter(text, directive string) string {
	i := len(directive)
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return text[i:]
}

// splitDataArgs splits comma-separated arguments respecting parentheses.
func splitDataArgs(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
		}
		cur.WriteRune(c)
	}
	if tail := strings.TrimSpace(cur.String()); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// condFrame tracks one level of .if/.elseif/.else nesting: (kind, active,
// anyBranchTaken).
type condFrame struct {
	kind   string
	active bool
	hit    bool
}

// parser holds state for parsing a set of in-memory source files into a
// flat statement list. Sources are supplied as an in-memory map rather
// than read from disk, keeping the assembler free of filesystem I/O.
type parser struct {
	symbols map[string]int64
	sources map[string]string
	lines   map[string][]string

	out       []Stmt
	condStack []condFrame
	incStack  []IncFrame
	fileIDs   map[string]int
	anonN     int
	curFile   string
	searchOK  map[string]bool // filenames that exist in `sources`
}

// Parse parses mainFile (and any icl-included files, looked up in
// sources) into a flat statement list, evaluating conditional-assembly
// blocks against symbols. Conditional branches are always structurally
// processed, even when inactive, so .endif/.else nesting is validated
// regardless of which branch is live.
func Parse(mainFile string, sources map[string]string, symbols map[string]int64) ([]Stmt, error) {
	p := &parser{
		symbols: symbols,
		sources: sources,
		lines:   make(map[string][]string),
		fileIDs: make(map[string]int),
	}
	if err := p.processFile(mainFile); err != nil {
		return nil, err
	}
	if len(p.condStack) > 0 {
		return nil, &ParseError{
			Msg: fmt.Sprintf("unclosed .if (%d level(s) deep)", len(p.condStack)),
			Loc: Loc{File: mainFile},
		}
	}
	return p.out, nil
}

func (p *parser) active() bool {
	if len(p.condStack) == 0 {
		return true
	}
	return p.condStack[len(p.condStack)-1].active
}

func (p *parser) parentActive() bool {
	if len(p.condStack) <= 1 {
		return true
	}
	return p.condStack[len(p.condStack)-2].active
}

func (p *parser) fid() int {
	if id, ok := p.fileIDs[p.curFile]; ok {
		return id
	}
	id := len(p.fileIDs)
	p.fileIDs[p.curFile] = id
	return id
}

func (p *parser) localKey(name string) string {
	return fmt.Sprintf("__f%d_%s", p.fid(), name)
}

func (p *parser) resolveRefs(expr string) string {
	if !strings.Contains(expr, "@") {
		return expr
	}
	if strings.Contains(expr, "@+") {
		return strings.ReplaceAll(expr, "@+", fmt.Sprintf("__anon_%d", p.anonN))
	}
	return reAtRef.ReplaceAllStringFunc(expr, func(m string) string {
		name := reAtRef.FindStringSubmatch(m)[1]
		return p.localKey(name)
	})
}

func (p *parser) readLines(file string) ([]string, error) {
	if ls, ok := p.lines[file]; ok {
		return ls, nil
	}
	src, ok := p.sources[file]
	if !ok {
		return nil, fmt.Errorf("source %q not provided", file)
	}
	ls := strings.Split(src, "\n")
	p.lines[file] = ls
	return ls, nil
}

func (p *parser) loc(file string, line int) Loc {
	ls, _ := p.readLines(file)
	src := ""
	if line > 0 && line <= len(ls) {
		src = strings.TrimRight(ls[line-1], "\r")
	}
	return Loc{File: file, Line: line, Source: src, IncStack: append([]IncFrame(nil), p.incStack...)}
}

func (p *parser) processFile(filename string) error {
	prev := p.curFile
	p.curFile = filename
	lines, err := p.readLines(filename)
	if err != nil {
		return &ParseError{Msg: err.Error(), Loc: Loc{File: filename}}
	}
	for i, raw := range lines {
		text := strings.TrimSpace(stripComment(raw))
		if text == "" {
			continue
		}
		if err := p.line(text, filename, i+1); err != nil {
			return err
		}
	}
	p.curFile = prev
	return nil
}

func (p *parser) line(text, fn string, ln int) error {
	low := strings.ToLower(text)
	loc := p.loc(fn, ln)

	switch {
	case dirMatch(low, ".if"):
		if p.active() {
			v, err := Evaluate(dirAfter(text, ".if"), p.symbols, 0, true)
			if err != nil {
				v = 0
			}
			p.condStack = append(p.condStack, condFrame{"if", v != 0, v != 0})
		} else {
			p.condStack = append(p.condStack, condFrame{"if", false, true})
		}
		return nil

	case dirMatch(low, ".elseif"):
		if len(p.condStack) == 0 {
			return &ParseError{Msg: ".elseif without .if", Loc: loc}
		}
		hit := p.condStack[len(p.condStack)-1].hit
		if !p.parentActive() || hit {
			p.condStack[len(p.condStack)-1] = condFrame{"ei", false, hit}
		} else {
			v, err := Evaluate(dirAfter(text, ".elseif"), p.symbols, 0, true)
			if err != nil {
				v = 0
			}
			p.condStack[len(p.condStack)-1] = condFrame{"ei", v != 0, v != 0}
		}
		return nil

	case low == ".else":
		if len(p.condStack) == 0 {
			return &ParseError{Msg: ".else without .if", Loc: loc}
		}
		hit := p.condStack[len(p.condStack)-1].hit
		p.condStack[len(p.condStack)-1] = condFrame{"el", p.parentActive() && !hit, true}
		return nil

	case low == ".endif":
		if len(p.condStack) == 0 {
			return &ParseError{Msg: ".endif without .if", Loc: loc}
		}
		p.condStack = p.condStack[:len(p.condStack)-1]
		return nil
	}

	if !p.active() {
		return nil
	}

	if m := reIcl.FindStringSubmatch(text); m != nil {
		incFile := m[1]
		if _, ok := p.sources[incFile]; !ok {
			return &ParseError{Msg: fmt.Sprintf("include file not found: '%s'", incFile), Loc: loc}
		}
		p.incStack = append(p.incStack, IncFrame{fn, ln})
		if err := p.processFile(incFile); err != nil {
			return err
		}
		p.incStack = p.incStack[:len(p.incStack)-1]
		return nil
	}

	if reAnonLabel.MatchString(text) {
		p.out = append(p.out, Stmt{Kind: StmtLabel, Loc: loc, Name: fmt.Sprintf("__anon_%d", p.anonN)})
		p.anonN++
		rest := strings.TrimSpace(text[strings.Index(text, ":")+1:])
		if rest != "" {
			return p.line(rest, fn, ln)
		}
		return nil
	}

	if m := reLocalLabel.FindStringSubmatchIndex(text); m != nil {
		name := text[m[2]:m[3]]
		p.out = append(p.out, Stmt{Kind: StmtLabel, Loc: loc, Name: p.localKey(name)})
		rest := strings.TrimSpace(text[m[1]:])
		if rest != "" {
			return p.line(rest, fn, ln)
		}
		return nil
	}

	if m := reGlobalLabel.FindStringSubmatchIndex(text); m != nil {
		name := text[m[2]:m[3]]
		p.out = append(p.out, Stmt{Kind: StmtLabel, Loc: loc, Name: name})
		rest := strings.TrimSpace(text[m[1]:])
		if rest != "" {
			return p.line(rest, fn, ln)
		}
		return nil
	}

	if m := reEquate.FindStringSubmatch(text); m != nil && !IsKnownMnemonic(strings.ToUpper(m[1])) {
		p.out = append(p.out, Stmt{Kind: StmtEquate, Loc: loc, Name: m[1], Expr: p.resolveRefs(strings.TrimSpace(m[2]))})
		return nil
	}

	for _, tag := range []string{"org", "ini"} {
		if dirMatch(low, tag) {
			kind := StmtOrg
			if tag == "ini" {
				kind = StmtIni
			}
			p.out = append(p.out, Stmt{Kind: kind, Loc: loc, Expr: p.resolveRefs(dirAfter(text, tag))})
			return nil
		}
	}

	for _, tw := range []struct {
		tag string
		w   int
	}{{".byte", 1}, {".word", 2}} {
		if dirMatch(low, tw.tag) {
			args := splitDataArgs(dirAfter(text, tw.tag))
			for i, a := range args {
				args[i] = p.resolveRefs(a)
			}
			kind := StmtByte
			if tw.tag == ".word" {
				kind = StmtWord
			}
			p.out = append(p.out, Stmt{Kind: kind, Loc: loc, Exprs: args, EstSize: tw.w * len(args)})
			return nil
		}
	}

	if dirMatch(low, ".error") {
		msg := strings.Trim(strings.TrimSpace(dirAfter(text, ".error")), `"'`)
		p.out = append(p.out, Stmt{Kind: StmtErrorDirective, Loc: loc, Expr: msg})
		return nil
	}

	idx := strings.IndexAny(text, " \t")
	var mnRaw, op string
	if idx < 0 {
		mnRaw = text
	} else {
		mnRaw = text[:idx]
		op = p.resolveRefs(strings.TrimSpace(text[idx:]))
	}
	mn := strings.ToUpper(mnRaw)
	if !IsKnownMnemonic(mn) {
		p.out = append(p.out, Stmt{Kind: StmtErrorDirective, Loc: loc, Expr: fmt.Sprintf("unknown instruction: '%s'", mnRaw)})
		return nil
	}
	p.out = append(p.out, Stmt{Kind: StmtInstr, Loc: loc, Name: mn, Expr: op, EstSize: EstimateSize(mn, op)})
	return nil
}
