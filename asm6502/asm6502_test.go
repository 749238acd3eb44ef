package asm6502

import (
	"strings"
	"testing"
)

func TestEvaluateArithmeticAndPrecedence(t *testing.T) {
	v, err := Evaluate("2 + 3 * 4", nil, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 14 {
		t.Fatalf("got %d, want 14", v)
	}
}

func TestEvaluateHexAndBinaryLiterals(t *testing.T) {
	v, err := Evaluate("$FF", nil, 0, false)
	if err != nil || v != 0xFF {
		t.Fatalf("got %d, err %v", v, err)
	}
	v, err = Evaluate("%1010", nil, 0, false)
	if err != nil || v != 10 {
		t.Fatalf("got %d, err %v", v, err)
	}
}

func TestEvaluateLoHiByte(t *testing.T) {
	symbols := map[string]int64{"ADDR": 0x1234}
	lo, err := Evaluate("<ADDR", symbols, 0, false)
	if err != nil || lo != 0x34 {
		t.Fatalf("lo byte: got %d, err %v", lo, err)
	}
	hi, err := Evaluate(">ADDR", symbols, 0, false)
	if err != nil || hi != 0x12 {
		t.Fatalf("hi byte: got %d, err %v", hi, err)
	}
}

func TestEvaluatePCReference(t *testing.T) {
	v, err := Evaluate("* + 2", nil, 0x600, false)
	if err != nil || v != 0x602 {
		t.Fatalf("got %d, err %v", v, err)
	}
}

func TestEvaluateConditionOperators(t *testing.T) {
	v, err := Evaluate("5 > 3", nil, 0, true)
	if err != nil || v != 1 {
		t.Fatalf("got %d, err %v", v, err)
	}
	v, err = Evaluate("5 <> 5", nil, 0, true)
	if err != nil || v != 0 {
		t.Fatalf("got %d, err %v", v, err)
	}
}

func TestEvaluateUndefinedSymbolErrors(t *testing.T) {
	if _, err := Evaluate("UNDEFINED", nil, 0, false); err == nil {
		t.Fatal("expected error for undefined symbol")
	}
}

func TestEncodeZeroPageVsAbsolute(t *testing.T) {
	data, err := Encode("LDA", "$10", nil, 0x600)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || data[0] != 0xA5 {
		t.Fatalf("expected zero-page LDA, got %X", data)
	}

	data, err = Encode("LDA", "$1234", nil, 0x600)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 || data[0] != 0xAD {
		t.Fatalf("expected absolute LDA, got %X", data)
	}
}

func TestEncodeImmediate(t *testing.T) {
	data, err := Encode("LDA", "#$42", nil, 0x600)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || data[0] != 0xA9 || data[1] != 0x42 {
		t.Fatalf("got %X", data)
	}
}

func TestEncodeBranchInRange(t *testing.T) {
	symbols := map[string]int64{"LOOP": 0x600}
	data, err := Encode("BNE", "LOOP", symbols, 0x610)
	if err != nil {
		t.Fatal(err)
	}
	branchFrom := int64(0x610)
	wantOffset := byte(0x600 - (branchFrom + 2))
	if data[0] != 0xD0 || data[1] != wantOffset {
		t.Fatalf("got %X", data)
	}
}

func TestEncodeBranchOutOfRange(t *testing.T) {
	symbols := map[string]int64{"FAR": 0x1000}
	_, err := Encode("BNE", "FAR", symbols, 0x600)
	if err == nil {
		t.Fatal("expected out-of-range branch error")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEncodeIndirectIndexedModes(t *testing.T) {
	data, err := Encode("LDA", "($80),Y", nil, 0)
	if err != nil || data[0] != 0xB1 {
		t.Fatalf("got %X, err %v", data, err)
	}
	data, err = Encode("LDA", "($80,X)", nil, 0)
	if err != nil || data[0] != 0xA1 {
		t.Fatalf("got %X, err %v", data, err)
	}
	data, err = Encode("JMP", "($1234)", nil, 0)
	if err != nil || data[0] != 0x6C {
		t.Fatalf("got %X, err %v", data, err)
	}
}

func TestParseLabelsAndEquates(t *testing.T) {
	src := "START = $600\nloop:\n  lda #0\n  sta $d200\n  jmp loop\n"
	stmts, err := Parse("main.asm", map[string]string{"main.asm": src}, map[string]int64{})
	if err != nil {
		t.Fatal(err)
	}
	var sawEquate, sawLabel, sawInstr bool
	for _, s := range stmts {
		switch s.Kind {
		case StmtEquate:
			if s.Name == "START" {
				sawEquate = true
			}
		case StmtLabel:
			if s.Name == "loop" {
				sawLabel = true
			}
		case StmtInstr:
			sawInstr = true
		}
	}
	if !sawEquate || !sawLabel || !sawInstr {
		t.Fatalf("missing expected statements: equate=%v label=%v instr=%v", sawEquate, sawLabel, sawInstr)
	}
}

func TestParseConditionalAssemblySkipsInactiveBranch(t *testing.T) {
	src := "FLAG = 0\n.if FLAG\nlda #1\n.else\nlda #2\n.endif\n"
	stmts, err := Parse("main.asm", map[string]string{"main.asm": src}, map[string]int64{})
	if err != nil {
		t.Fatal(err)
	}
	var ops []string
	for _, s := range stmts {
		if s.Kind == StmtInstr {
			ops = append(ops, s.Expr)
		}
	}
	if len(ops) != 1 || ops[0] != "#2" {
		t.Fatalf("expected only the else branch, got %v", ops)
	}
}

func TestParseIclInclude(t *testing.T) {
	sources := map[string]string{
		"main.asm": "icl \"sub.asm\"\nlda #1\n",
		"sub.asm":  "CONST = $42\n",
	}
	stmts, err := Parse("main.asm", sources, map[string]int64{})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range stmts {
		if s.Kind == StmtEquate && s.Name == "CONST" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected CONST equate from included file")
	}
}

func TestParseMissingIncludeErrors(t *testing.T) {
	sources := map[string]string{"main.asm": "icl \"missing.asm\"\n"}
	if _, err := Parse("main.asm", sources, map[string]int64{}); err == nil {
		t.Fatal("expected error for missing include")
	}
}

func TestAssembleSimpleProgramProducesXEX(t *testing.T) {
	src := "org $600\nstart:\n  lda #$01\n  sta $d200\n  rts\n"
	asm := NewAssembler("main.asm", map[string]string{"main.asm": src})
	out, err := asm.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < 8 {
		t.Fatalf("xex output too short: %d bytes", len(out))
	}
	if out[0] != 0xFF || out[1] != 0xFF {
		t.Fatalf("missing XEX signature: %X", out[:2])
	}
	if out[2] != 0x00 || out[3] != 0x06 {
		t.Fatalf("expected start address $0600, got %02X%02X", out[3], out[2])
	}
}

func TestAssembleForwardReferenceConverges(t *testing.T) {
	src := "org $600\nstart:\n  jmp target\ntarget:\n  rts\n"
	asm := NewAssembler("main.asm", map[string]string{"main.asm": src})
	out, err := asm.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty xex output")
	}
}

func TestAssembleUnknownInstructionErrors(t *testing.T) {
	src := "org $600\n  frobnicate #1\n"
	asm := NewAssembler("main.asm", map[string]string{"main.asm": src})
	if _, err := asm.Assemble(); err == nil {
		t.Fatal("expected error for unknown instruction")
	}
}

func TestAssembleByteAndWordDirectives(t *testing.T) {
	src := "org $600\ntable:\n  .byte $01,$02,$03\n  .word table\n"
	asm := NewAssembler("main.asm", map[string]string{"main.asm": src})
	out, err := asm.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	// Signature(2) + start/end(4) + 3 bytes + 2-byte word = 11.
	if len(out) != 11 {
		t.Fatalf("got %d bytes, want 11: %X", len(out), out)
	}
}
