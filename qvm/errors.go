package qvm

import "fmt"

// FormatError reports a malformed file container: a bad signature, an
// unsupported version, or a truncated section. The offset locates the
// offending bytes in the original buffer.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("qvm: format error at offset %d: %s", e.Offset, e.Msg)
}

// DecodeError reports an instruction that could not be decoded: an
// unimplemented opcode or a truncated payload. The address is relative to
// the start of the instruction section.
type DecodeError struct {
	Address int
	Opcode  byte
	Name    string
	Msg     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("qvm: decode error at address %d (opcode 0x%02X %s): %s",
		e.Address, e.Opcode, e.Name, e.Msg)
}

// ReconstructError reports a failure while rebuilding the syntax tree:
// stack underflow, a statement popped where an expression was required, an
// unresolved jump or call target, or runaway recursion. The whole
// decompilation of the program fails; there is no partial output.
type ReconstructError struct {
	Address int
	Msg     string
}

func (e *ReconstructError) Error() string {
	return fmt.Sprintf("qvm: reconstruction error at address %d: %s", e.Address, e.Msg)
}
