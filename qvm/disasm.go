package qvm

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of a program's tables and
// instruction stream, one line per instruction, prefixed with the start
// address. Intended for debugging and the CLI's listing mode; the output
// format is not stable.
func Disassemble(p *Program) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; QVM %d.%d\n", p.Header.Major, p.Header.Minor))
	if p.Header.HasFooter {
		sb.WriteString(fmt.Sprintf("; Footer offset: 0x%X\n", p.Header.FooterOffset))
	}

	if len(p.Variables) > 0 {
		sb.WriteString(fmt.Sprintf("; Variables (%d):\n", len(p.Variables)))
		for i, name := range p.Variables {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, name))
		}
	}

	if len(p.Strings) > 0 {
		sb.WriteString(fmt.Sprintf("; Strings (%d):\n", len(p.Strings)))
		for i, s := range p.Strings {
			display := s
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, display))
		}
	}

	sb.WriteString("; Code:\n")

	addrs := make([]int, 0, len(p.Instructions))
	for addr := range p.Instructions {
		addrs = append(addrs, addr)
	}
	sort.Ints(addrs)

	for _, addr := range addrs {
		sb.WriteString(fmt.Sprintf("%04X  %s\n", addr, formatInstruction(p, p.Instructions[addr])))
	}

	return sb.String()
}

func formatInstruction(p *Program, in *Instruction) string {
	switch in.Kind() {
	case KindLiteral:
		if in.IsF32 {
			return fmt.Sprintf("%s %g", in.Name(), in.Float)
		}
		return fmt.Sprintf("%s %d", in.Name(), in.Value)

	case KindStringRef:
		if idx := int(in.Value); idx < len(p.Strings) {
			return fmt.Sprintf("%s %d ; %q", in.Name(), in.Value, p.Strings[idx])
		}
		return fmt.Sprintf("%s %d ; out of range", in.Name(), in.Value)

	case KindVariableRef:
		if idx := int(in.Value); idx < len(p.Variables) {
			return fmt.Sprintf("%s %d ; %s", in.Name(), in.Value, p.Variables[idx])
		}
		return fmt.Sprintf("%s %d ; out of range", in.Name(), in.Value)

	case KindBranchAlways, KindBranchIfFalse:
		return fmt.Sprintf("%s %+d -> %04X", in.Name(), in.Offset, in.Next+int(in.Offset))

	case KindCall:
		parts := make([]string, len(in.Args))
		for i, arg := range in.Args {
			parts[i] = fmt.Sprintf("%04X", arg)
		}
		return fmt.Sprintf("%s [%s]", in.Name(), strings.Join(parts, " "))

	default:
		return in.Name()
	}
}
