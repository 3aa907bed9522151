// Package qvm loads QVM bytecode programs and decompiles them back to QSC
// syntax trees.
//
// A QVM file carries a variable-name table, a string-literal table and a
// stack-machine instruction stream. The decompiler never executes the
// stream: it replays it symbolically, rebuilding expressions on a synthetic
// stack and inferring if/if-else/while shapes from branch-offset arithmetic.
package qvm

import "fmt"

// Kind classifies an instruction for the decoder and the reconstructor.
type Kind uint8

const (
	// KindLiteral pushes an inline-encoded numeric value.
	KindLiteral Kind = iota

	// KindConstant pushes a fixed value with no payload bytes.
	KindConstant

	// KindStringRef pushes a string-table entry by index.
	KindStringRef

	// KindVariableRef pushes a variable-table entry by index.
	KindVariableRef

	// KindUnaryOp pops one operand and pushes an operator application.
	KindUnaryOp

	// KindBinaryOp pops two operands (right first) and pushes an
	// operator application.
	KindBinaryOp

	// KindPop is decoded but performs no stack mutation during
	// reconstruction. See the note in machine.step.
	KindPop

	// KindBreak terminates reconstruction of the current block.
	KindBreak

	// KindBranchAlways is an unconditional relative jump. During block
	// reconstruction it acts as a terminator; its offset also classifies
	// if/else/while shapes when it trails a conditional body.
	KindBranchAlways

	// KindBranchIfFalse is the conditional branch every if and while
	// construct compiles to.
	KindBranchIfFalse

	// KindCall invokes a named function; its payload lists the start
	// address of each argument expression.
	KindCall

	// KindUnimplemented covers opcodes the decompiler does not model.
	// Lookup is total, but decoding one is a hard failure.
	KindUnimplemented
)

// Operand describes how an instruction's payload is encoded. All payloads
// are little-endian.
type Operand uint8

const (
	OperandNone     Operand = iota
	OperandU8               // one unsigned byte
	OperandU16              // unsigned 16-bit
	OperandU32              // unsigned 32-bit
	OperandF32              // 32-bit float
	OperandI32              // signed 32-bit (branch offsets)
	OperandArgTable         // u32 count followed by count signed 32-bit addresses
)

// opSpec ties a mnemonic to its kind and payload decoding rule. The same
// logical instruction keeps a single spec across revisions; only the opcode
// byte assignment differs between the two tables below.
type opSpec struct {
	Name    string
	Kind    Kind
	Operand Operand
	Const   uint32 // fixed value, KindConstant only
	Symbol  string // operator text, unary/binary kinds only
}

var (
	opBRK = &opSpec{Name: "BRK", Kind: KindBreak}
	opBRA = &opSpec{Name: "BRA", Kind: KindBranchAlways, Operand: OperandI32}
	opBF  = &opSpec{Name: "BF", Kind: KindBranchIfFalse, Operand: OperandI32}

	opCALL = &opSpec{Name: "CALL", Kind: KindCall, Operand: OperandArgTable}
	opPOP  = &opSpec{Name: "POP", Kind: KindPop}

	opPUSH  = &opSpec{Name: "PUSH", Kind: KindLiteral, Operand: OperandU32}
	opPUSHB = &opSpec{Name: "PUSHB", Kind: KindLiteral, Operand: OperandU8}
	opPUSHW = &opSpec{Name: "PUSHW", Kind: KindLiteral, Operand: OperandU16}
	opPUSHF = &opSpec{Name: "PUSHF", Kind: KindLiteral, Operand: OperandF32}

	opPUSH0 = &opSpec{Name: "PUSH0", Kind: KindConstant, Const: 0}
	opPUSH1 = &opSpec{Name: "PUSH1", Kind: KindConstant, Const: 1}
	opPUSHM = &opSpec{Name: "PUSHM", Kind: KindConstant, Const: 0xFFFFFFFF}

	opPUSHSI  = &opSpec{Name: "PUSHSI", Kind: KindStringRef, Operand: OperandU32}
	opPUSHSIB = &opSpec{Name: "PUSHSIB", Kind: KindStringRef, Operand: OperandU8}
	opPUSHSIW = &opSpec{Name: "PUSHSIW", Kind: KindStringRef, Operand: OperandU16}

	opPUSHII  = &opSpec{Name: "PUSHII", Kind: KindVariableRef, Operand: OperandU32}
	opPUSHIIB = &opSpec{Name: "PUSHIIB", Kind: KindVariableRef, Operand: OperandU8}
	opPUSHIIW = &opSpec{Name: "PUSHIIW", Kind: KindVariableRef, Operand: OperandU16}

	opPLUS  = &opSpec{Name: "PLUS", Kind: KindUnaryOp, Symbol: "+"}
	opMINUS = &opSpec{Name: "MINUS", Kind: KindUnaryOp, Symbol: "-"}
	opINV   = &opSpec{Name: "INV", Kind: KindUnaryOp, Symbol: "~"}
	opNOT   = &opSpec{Name: "NOT", Kind: KindUnaryOp, Symbol: "!"}

	opADD    = &opSpec{Name: "ADD", Kind: KindBinaryOp, Symbol: "+"}
	opSUB    = &opSpec{Name: "SUB", Kind: KindBinaryOp, Symbol: "-"}
	opMUL    = &opSpec{Name: "MUL", Kind: KindBinaryOp, Symbol: "*"}
	opDIV    = &opSpec{Name: "DIV", Kind: KindBinaryOp, Symbol: "/"}
	opSHL    = &opSpec{Name: "SHL", Kind: KindBinaryOp, Symbol: "<<"}
	opSHR    = &opSpec{Name: "SHR", Kind: KindBinaryOp, Symbol: ">>"}
	opAND    = &opSpec{Name: "AND", Kind: KindBinaryOp, Symbol: "&"}
	opOR     = &opSpec{Name: "OR", Kind: KindBinaryOp, Symbol: "|"}
	opXOR    = &opSpec{Name: "XOR", Kind: KindBinaryOp, Symbol: "^"}
	opLAND   = &opSpec{Name: "LAND", Kind: KindBinaryOp, Symbol: "&&"}
	opLOR    = &opSpec{Name: "LOR", Kind: KindBinaryOp, Symbol: "||"}
	opEQ     = &opSpec{Name: "EQ", Kind: KindBinaryOp, Symbol: "=="}
	opNE     = &opSpec{Name: "NE", Kind: KindBinaryOp, Symbol: "!="}
	opLT     = &opSpec{Name: "LT", Kind: KindBinaryOp, Symbol: "<"}
	opLE     = &opSpec{Name: "LE", Kind: KindBinaryOp, Symbol: "<="}
	opGT     = &opSpec{Name: "GT", Kind: KindBinaryOp, Symbol: ">"}
	opGE     = &opSpec{Name: "GE", Kind: KindBinaryOp, Symbol: ">="}
	opASSIGN = &opSpec{Name: "ASSIGN", Kind: KindBinaryOp, Symbol: "="}

	opNOP     = &opSpec{Name: "NOP", Kind: KindUnimplemented}
	opRET     = &opSpec{Name: "RET", Kind: KindUnimplemented}
	opBT      = &opSpec{Name: "BT", Kind: KindUnimplemented}
	opJSR     = &opSpec{Name: "JSR", Kind: KindUnimplemented}
	opPUSHA   = &opSpec{Name: "PUSHA", Kind: KindUnimplemented}
	opPUSHS   = &opSpec{Name: "PUSHS", Kind: KindUnimplemented}
	opPUSHI   = &opSpec{Name: "PUSHI", Kind: KindUnimplemented}
	opBLK     = &opSpec{Name: "BLK", Kind: KindUnimplemented}
	opILLEGAL = &opSpec{Name: "ILLEGAL", Kind: KindUnimplemented}
)

// Revision selects one of the two supported instruction-set numbering
// schemes, identified by the header's minor version.
type Revision uint32

const (
	Revision5 Revision = 5
	Revision7 Revision = 7
)

// Supported reports whether the revision has an opcode table.
func (r Revision) Supported() bool {
	_, ok := opcodeTables[r]
	return ok
}

// BranchWidth returns the encoded size in bytes of an unconditional branch
// (one opcode byte plus a 32-bit offset). The reconstructor subtracts it
// from a conditional branch's target to locate the trailer instruction the
// compiler emits at the end of every if and while body. Both current
// revisions encode it identically; a future revision may not, which is why
// the width hangs off the revision rather than being a bare constant.
func (r Revision) BranchWidth() int {
	return 5
}

// Opcode byte assignments per revision. The two tables are disjoint
// mappings over the same specs: revision 5 groups the push family before
// the control transfers, revision 7 groups control transfers first.
var opcodeTables = map[Revision]map[byte]*opSpec{
	Revision5: {
		0x00: opBRK,
		0x01: opNOP,
		0x02: opPUSH,
		0x03: opPUSHB,
		0x04: opPUSHW,
		0x05: opPUSHF,
		0x06: opPUSHA,
		0x07: opPUSHS,
		0x08: opPUSHSI,
		0x09: opPUSHSIB,
		0x0A: opPUSHSIW,
		0x0B: opPUSHI,
		0x0C: opPUSHII,
		0x0D: opPUSHIIB,
		0x0E: opPUSHIIW,
		0x0F: opPUSH0,
		0x10: opPUSH1,
		0x11: opPUSHM,
		0x12: opPOP,
		0x13: opRET,
		0x14: opBRA,
		0x15: opBF,
		0x16: opBT,
		0x17: opJSR,
		0x18: opCALL,
		0x19: opADD,
		0x1A: opSUB,
		0x1B: opMUL,
		0x1C: opDIV,
		0x1D: opSHL,
		0x1E: opSHR,
		0x1F: opAND,
		0x20: opOR,
		0x21: opXOR,
		0x22: opLAND,
		0x23: opLOR,
		0x24: opEQ,
		0x25: opNE,
		0x26: opLT,
		0x27: opLE,
		0x28: opGT,
		0x29: opGE,
		0x2A: opASSIGN,
		0x2B: opPLUS,
		0x2C: opMINUS,
		0x2D: opINV,
		0x2E: opNOT,
		0x2F: opBLK,
		0x30: opILLEGAL,
	},
	Revision7: {
		0x00: opBRK,
		0x01: opNOP,
		0x02: opRET,
		0x03: opBRA,
		0x04: opBF,
		0x05: opBT,
		0x06: opJSR,
		0x07: opCALL,
		0x08: opPUSH,
		0x09: opPUSHB,
		0x0A: opPUSHW,
		0x0B: opPUSHF,
		0x0C: opPUSHA,
		0x0D: opPUSHS,
		0x0E: opPUSHSI,
		0x0F: opPUSHSIB,
		0x10: opPUSHSIW,
		0x11: opPUSHI,
		0x12: opPUSHII,
		0x13: opPUSHIIB,
		0x14: opPUSHIIW,
		0x15: opPUSH0,
		0x16: opPUSH1,
		0x17: opPUSHM,
		0x18: opPOP,
		0x19: opADD,
		0x1A: opSUB,
		0x1B: opMUL,
		0x1C: opDIV,
		0x1D: opSHL,
		0x1E: opSHR,
		0x1F: opAND,
		0x20: opOR,
		0x21: opXOR,
		0x22: opLAND,
		0x23: opLOR,
		0x24: opEQ,
		0x25: opNE,
		0x26: opLT,
		0x27: opLE,
		0x28: opGT,
		0x29: opGE,
		0x2A: opASSIGN,
		0x2B: opPLUS,
		0x2C: opMINUS,
		0x2D: opINV,
		0x2E: opNOT,
		0x2F: opBLK,
		0x30: opILLEGAL,
	},
}

// lookup resolves an opcode byte through the revision's table. Lookup is
// total: bytes outside the table come back as an unimplemented spec named
// after the raw opcode value.
func (r Revision) lookup(op byte) *opSpec {
	if spec, ok := opcodeTables[r][op]; ok {
		return spec
	}
	return &opSpec{Name: fmt.Sprintf("OP_%02X", op), Kind: KindUnimplemented}
}
