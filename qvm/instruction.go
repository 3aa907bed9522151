package qvm

import (
	"encoding/binary"
	"math"
)

// Instruction is one decoded entry of the instruction stream. Address is
// its start offset within the instruction section and Next the offset
// immediately following its encoding; branch targets are relative to Next,
// never to Address.
type Instruction struct {
	Address int
	Next    int

	spec *opSpec

	Value  uint32  // literal value or string/variable table index
	Float  float32 // KindLiteral with a float payload
	IsF32  bool    // Float carries the payload instead of Value
	Offset int32   // KindBranchAlways / KindBranchIfFalse payload
	Args   []int32 // KindCall argument start addresses, payload order
}

// Kind returns the instruction's classification.
func (in *Instruction) Kind() Kind { return in.spec.Kind }

// Name returns the instruction's mnemonic.
func (in *Instruction) Name() string { return in.spec.Name }

// Symbol returns the operator text for unary and binary kinds.
func (in *Instruction) Symbol() string { return in.spec.Symbol }

// decodeInstruction decodes the instruction starting at pos in the
// instruction section. Unimplemented opcodes and truncated payloads are
// hard failures at decode time, aborting the load of the whole program.
func decodeInstruction(section []byte, pos int, rev Revision) (*Instruction, error) {
	opcode := section[pos]
	spec := rev.lookup(opcode)

	if spec.Kind == KindUnimplemented {
		return nil, &DecodeError{Address: pos, Opcode: opcode, Name: spec.Name, Msg: "instruction not implemented"}
	}

	in := &Instruction{Address: pos, spec: spec}
	cur := pos + 1

	need := func(n int) error {
		if cur+n > len(section) {
			return &DecodeError{Address: pos, Opcode: opcode, Name: spec.Name, Msg: "truncated payload"}
		}
		return nil
	}

	switch spec.Operand {
	case OperandNone:
		if spec.Kind == KindConstant {
			in.Value = spec.Const
		}

	case OperandU8:
		if err := need(1); err != nil {
			return nil, err
		}
		in.Value = uint32(section[cur])
		cur++

	case OperandU16:
		if err := need(2); err != nil {
			return nil, err
		}
		in.Value = uint32(binary.LittleEndian.Uint16(section[cur:]))
		cur += 2

	case OperandU32:
		if err := need(4); err != nil {
			return nil, err
		}
		in.Value = binary.LittleEndian.Uint32(section[cur:])
		cur += 4

	case OperandF32:
		if err := need(4); err != nil {
			return nil, err
		}
		in.Float = math.Float32frombits(binary.LittleEndian.Uint32(section[cur:]))
		in.IsF32 = true
		cur += 4

	case OperandI32:
		if err := need(4); err != nil {
			return nil, err
		}
		in.Offset = int32(binary.LittleEndian.Uint32(section[cur:]))
		cur += 4

	case OperandArgTable:
		if err := need(4); err != nil {
			return nil, err
		}
		count := binary.LittleEndian.Uint32(section[cur:])
		cur += 4
		if err := need(4 * int(count)); err != nil {
			return nil, err
		}
		in.Args = make([]int32, count)
		for i := range in.Args {
			in.Args[i] = int32(binary.LittleEndian.Uint32(section[cur:]))
			cur += 4
		}
	}

	in.Next = cur
	return in, nil
}
