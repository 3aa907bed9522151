package qvm

import (
	"encoding/binary"
	"testing"
)

// asm accumulates a raw instruction section for synthetic test programs.
// Opcode bytes are written with the revision 7 assignments unless a test
// says otherwise.
type asm struct {
	buf []byte
}

func (a *asm) op(b byte) *asm {
	a.buf = append(a.buf, b)
	return a
}

func (a *asm) u8(v byte) *asm {
	a.buf = append(a.buf, v)
	return a
}

func (a *asm) u16(v uint16) *asm {
	a.buf = binary.LittleEndian.AppendUint16(a.buf, v)
	return a
}

func (a *asm) u32(v uint32) *asm {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, v)
	return a
}

func (a *asm) i32(v int32) *asm {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(v))
	return a
}

// Revision 7 opcode bytes used by the synthetic programs below.
const (
	tBRK     = 0x00
	tBRA     = 0x03
	tBF      = 0x04
	tCALL    = 0x07
	tPUSH    = 0x08
	tPUSHB   = 0x09
	tPUSHF   = 0x0B
	tPUSHSIB = 0x0F
	tPUSHIIB = 0x13
	tPUSH0   = 0x15
	tPOP     = 0x18
	tADD     = 0x19
	tSUB     = 0x1A
	tASSIGN  = 0x2A
)

// buildQVM assembles a complete file buffer: fixed header, variable table,
// string table, instruction section.
func buildQVM(minor uint32, vars, strs []string, code []byte) []byte {
	nullTerminated := func(values []string) []byte {
		var out []byte
		for _, v := range values {
			out = append(out, v...)
			out = append(out, 0)
		}
		return out
	}

	varData := nullTerminated(vars)
	strData := nullTerminated(strs)

	varOffset := uint32(headerSize)
	strOffset := varOffset + uint32(len(varData))
	insOffset := strOffset + uint32(len(strData))

	buf := make([]byte, 0, int(insOffset)+len(code))
	buf = append(buf, Signature...)
	for _, field := range []uint32{
		MajorVersion, minor,
		varOffset, varOffset, 0, uint32(len(varData)),
		strOffset, strOffset, 0, uint32(len(strData)),
		insOffset, uint32(len(code)),
		0, 0,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, field)
	}
	buf = append(buf, varData...)
	buf = append(buf, strData...)
	buf = append(buf, code...)
	return buf
}

func mustLoad(t *testing.T, minor uint32, vars, strs []string, code []byte) *Program {
	t.Helper()
	p, err := Load(buildQVM(minor, vars, strs, code))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return p
}
