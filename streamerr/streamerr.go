// Package streamerr defines the typed error taxonomy used across the
// pipeline: one Kind per failure category, each carrying the detail a
// caller needs to react (an offending value, a bank count, an assembler
// location) rather than just a formatted string.
package streamerr

import "fmt"

// Kind classifies a pipeline failure.
type Kind int

const (
	// InvalidConfig marks a Config value that fails validation before
	// any encoding work starts (bad sample rate, unknown codec, etc).
	InvalidConfig Kind = iota
	// AudioTooShort marks PCM input with fewer samples than one encoded
	// unit requires (a single vector, a single bank).
	AudioTooShort
	// BankOverflow marks encoded data that needs more banks than the
	// target machine's extended RAM can hold.
	BankOverflow
	// MaxBanksExceeded marks input that needs more banks than the
	// configured ceiling; non-strict callers may treat this as a warning.
	MaxBanksExceeded
	// AssemblerFailure marks a 6502 assembly failure, wrapping an
	// *asm6502.AsmError-shaped message plus the sub-kind below.
	AssemblerFailure
	// XEXTooLarge marks a finished XEX image that exceeds a configured
	// maximum output size.
	XEXTooLarge
)

func (k Kind) String() string {
	switch k {
	case InvalidConfig:
		return "invalid config"
	case AudioTooShort:
		return "audio too short"
	case BankOverflow:
		return "bank overflow"
	case MaxBanksExceeded:
		return "max banks exceeded"
	case AssemblerFailure:
		return "assembler failure"
	case XEXTooLarge:
		return "xex too large"
	default:
		return "unknown"
	}
}

// AssemblerSubKind refines an AssemblerFailure error with the phase that
// failed.
type AssemblerSubKind int

const (
	SubKindNone AssemblerSubKind = iota
	SubKindParse
	SubKindResolve
	SubKindEmit
	SubKindNoConvergence
)

// Error is the typed error returned by every pipeline stage. Wrap an
// underlying error with Err when one exists (e.g. an *asm6502.AsmError),
// so callers can still unwrap to the original cause.
type Error struct {
	Kind       Kind
	Msg        string
	Err        error
	SubKind    AssemblerSubKind
	File       string
	Line       int
	NeedBanks  int
	MaxBanks   int
	RequiredAt int
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a plain *Error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a *Error carrying an underlying cause.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewBankOverflow builds a BankOverflow error reporting how many banks
// were needed against the configured ceiling.
func NewBankOverflow(needed, max int) *Error {
	return &Error{
		Kind:      BankOverflow,
		Msg:       fmt.Sprintf("encoded data needs %d banks, only %d available", needed, max),
		NeedBanks: needed,
		MaxBanks:  max,
	}
}

// NewAssemblerFailure wraps an assembler-stage error with its sub-phase.
func NewAssemblerFailure(sub AssemblerSubKind, err error) *Error {
	return &Error{Kind: AssemblerFailure, Err: err, SubKind: sub}
}

// Is supports errors.Is comparison by Kind: streamerr.New(BankOverflow, "")
// matches any *Error with the same Kind when compared via errors.Is against
// a sentinel created with KindOnly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" && t.Err == nil && t.NeedBanks == 0 && t.MaxBanks == 0 {
		return e.Kind == t.Kind
	}
	return e == t
}

// KindOnly returns a sentinel *Error usable with errors.Is to test only
// the Kind of another error, ignoring message/detail fields.
func KindOnly(kind Kind) *Error {
	return &Error{Kind: kind}
}
