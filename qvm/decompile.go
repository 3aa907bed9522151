package qvm

import (
	"fmt"

	"github.com/artiom-rotari/igi-tools/qsc"
)

// noStop marks a replay that runs until its block terminates on its own.
const noStop = -1

// maxDepth bounds recursive block reconstruction. A corrupt program with
// mutually overlapping branch structures could otherwise recurse without
// limit.
const maxDepth = 512

// stack is the transient node stack used while rebuilding one block. It is
// never shared: every block and every call argument gets a fresh one.
type stack struct {
	nodes []qsc.Node
}

func (s *stack) push(n qsc.Node) {
	s.nodes = append(s.nodes, n)
}

func (s *stack) pop(at int) (qsc.Node, error) {
	if len(s.nodes) == 0 {
		return nil, &ReconstructError{Address: at, Msg: "stack underflow"}
	}
	n := s.nodes[len(s.nodes)-1]
	s.nodes = s.nodes[:len(s.nodes)-1]
	return n, nil
}

func (s *stack) popExpr(at int) (qsc.Expr, error) {
	n, err := s.pop(at)
	if err != nil {
		return nil, err
	}
	expr, ok := n.(qsc.Expr)
	if !ok {
		return nil, &ReconstructError{Address: at, Msg: fmt.Sprintf("expected expression on stack, found %T", n)}
	}
	return expr, nil
}

func (s *stack) popIdent(at int) (*qsc.Ident, error) {
	n, err := s.pop(at)
	if err != nil {
		return nil, err
	}
	ident, ok := n.(*qsc.Ident)
	if !ok {
		return nil, &ReconstructError{Address: at, Msg: fmt.Sprintf("expected variable on stack, found %T", n)}
	}
	return ident, nil
}

// machine replays instructions symbolically. It holds no mutable state
// beyond the recursion depth, so independent programs can be decompiled in
// parallel, one machine each.
type machine struct {
	prog  *Program
	depth int
}

// Decompile reconstructs the whole program into a statement block,
// starting at address 0 with no stop address. On any reconstruction error
// no partial result is returned.
func Decompile(p *Program) (*qsc.Block, error) {
	m := &machine{prog: p}
	return m.rebuildBlock(0, noStop)
}

// rebuildBlock replays [start, stop) and converts the surviving stack into
// a statement sequence: statements stay as they are, every top-level
// expression becomes an implicit expression-statement.
func (m *machine) rebuildBlock(start, stop int) (*qsc.Block, error) {
	st, err := m.rebuildStack(start, stop)
	if err != nil {
		return nil, err
	}

	block := &qsc.Block{Stmts: make([]qsc.Stmt, 0, len(st.nodes))}
	for _, n := range st.nodes {
		switch v := n.(type) {
		case qsc.Stmt:
			block.Stmts = append(block.Stmts, v)
		case qsc.Expr:
			block.Stmts = append(block.Stmts, &qsc.ExprStmt{X: v})
		default:
			return nil, &ReconstructError{Address: start, Msg: fmt.Sprintf("unexpected node %T on block stack", n)}
		}
	}
	return block, nil
}

// rebuildStack replays instructions from start until the stop address is
// reached, the block terminates (Break or an unconditional branch), or the
// path leaves the instruction table, which is an error.
func (m *machine) rebuildStack(start, stop int) (*stack, error) {
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > maxDepth {
		return nil, &ReconstructError{Address: start, Msg: "recursion limit exceeded"}
	}

	st := &stack{}
	for addr := start; addr != stop; {
		in, ok := m.prog.Instructions[addr]
		if !ok {
			return nil, &ReconstructError{Address: addr, Msg: "address is not an instruction boundary"}
		}

		next, terminated, err := m.step(in, st)
		if err != nil {
			return nil, err
		}
		if terminated {
			break
		}
		addr = next
	}
	return st, nil
}

// step applies one instruction to the stack and returns the address the
// replay continues at. terminated reports that the current block ended.
func (m *machine) step(in *Instruction, st *stack) (next int, terminated bool, err error) {
	switch in.Kind() {
	case KindLiteral:
		if in.IsF32 {
			st.push(&qsc.FloatLit{Value: in.Float})
		} else {
			st.push(&qsc.IntLit{Value: int64(in.Value)})
		}
		return in.Next, false, nil

	case KindConstant:
		st.push(&qsc.IntLit{Value: int64(in.Value)})
		return in.Next, false, nil

	case KindStringRef:
		idx := int(in.Value)
		if idx >= len(m.prog.Strings) {
			return 0, false, &ReconstructError{Address: in.Address, Msg: fmt.Sprintf("string index %d out of range (table has %d)", idx, len(m.prog.Strings))}
		}
		st.push(&qsc.StrLit{Value: m.prog.Strings[idx]})
		return in.Next, false, nil

	case KindVariableRef:
		idx := int(in.Value)
		if idx >= len(m.prog.Variables) {
			return 0, false, &ReconstructError{Address: in.Address, Msg: fmt.Sprintf("variable index %d out of range (table has %d)", idx, len(m.prog.Variables))}
		}
		st.push(&qsc.Ident{Name: m.prog.Variables[idx]})
		return in.Next, false, nil

	case KindUnaryOp:
		operand, err := st.popExpr(in.Address)
		if err != nil {
			return 0, false, err
		}
		st.push(&qsc.Unary{Op: in.Symbol(), Operand: operand})
		return in.Next, false, nil

	case KindBinaryOp:
		// Operands were pushed left-then-right, so the stack yields the
		// right operand first.
		right, err := st.popExpr(in.Address)
		if err != nil {
			return 0, false, err
		}
		left, err := st.popExpr(in.Address)
		if err != nil {
			return 0, false, err
		}
		st.push(&qsc.Binary{Op: in.Symbol(), Left: left, Right: right})
		return in.Next, false, nil

	case KindPop:
		// The reference behavior leaves the stack untouched here, even
		// though the runtime instruction discards a value. Preserved
		// as-is; every known script decompiles correctly this way.
		return in.Next, false, nil

	case KindBreak, KindBranchAlways:
		return 0, true, nil

	case KindCall:
		return m.stepCall(in, st)

	case KindBranchIfFalse:
		return m.stepBranch(in, st)
	}

	return 0, false, &ReconstructError{Address: in.Address, Msg: fmt.Sprintf("no reconstruction rule for %s", in.Name())}
}

// stepCall pops the call target, rebuilds each argument on its own nested
// stack, and resumes past the jump-table blob that follows every call site.
func (m *machine) stepCall(in *Instruction, st *stack) (int, bool, error) {
	target, err := st.popIdent(in.Address)
	if err != nil {
		return 0, false, err
	}

	args := make([]qsc.Expr, 0, len(in.Args))
	for _, argAddr := range in.Args {
		argStack, err := m.rebuildStack(int(argAddr), noStop)
		if err != nil {
			return 0, false, err
		}
		arg, err := argStack.popExpr(int(argAddr))
		if err != nil {
			return 0, false, err
		}
		// Remaining nodes on the nested stack are scratch; only the top
		// expression is the argument value.
		args = append(args, arg)
	}
	st.push(&qsc.Call{Func: target.Name, Args: args})

	// The slot after a call holds an unconditional branch over the
	// compiler's argument jump table; the replay resumes behind it.
	follow, ok := m.prog.Instructions[in.Next]
	if !ok {
		return 0, false, &ReconstructError{Address: in.Next, Msg: "no instruction after call"}
	}
	if follow.Kind() != KindBranchAlways {
		return 0, false, &ReconstructError{Address: in.Next, Msg: fmt.Sprintf("expected branch after call, found %s", follow.Name())}
	}
	return follow.Next + int(follow.Offset), false, nil
}

// stepBranch reconstructs the conditional construct a BF instruction
// belongs to. The branch target minus the encoded width of an
// unconditional branch locates the trailer the compiler emits at the end
// of every if and while body; the trailer's own offset classifies the
// shape: positive means an else branch follows, zero a plain if, negative
// a loop jumping back to its condition.
func (m *machine) stepBranch(in *Instruction, st *stack) (int, bool, error) {
	cond, err := st.popExpr(in.Address)
	if err != nil {
		return 0, false, err
	}

	thenBlock, err := m.rebuildBlock(in.Next, noStop)
	if err != nil {
		return 0, false, err
	}

	trailerAddr := in.Next + int(in.Offset) - m.prog.Revision.BranchWidth()
	trailer, ok := m.prog.Instructions[trailerAddr]
	if !ok {
		return 0, false, &ReconstructError{Address: trailerAddr, Msg: "conditional body has no trailing branch"}
	}
	if trailer.Kind() != KindBranchAlways {
		return 0, false, &ReconstructError{Address: trailerAddr, Msg: fmt.Sprintf("expected branch trailing conditional body, found %s", trailer.Name())}
	}

	switch {
	case trailer.Offset > 0:
		resume := trailer.Next + int(trailer.Offset)
		elseBlock, err := m.rebuildBlock(in.Next+int(in.Offset), resume)
		if err != nil {
			return 0, false, err
		}
		st.push(&qsc.If{Cond: cond, Then: thenBlock, Else: elseBlock})
		return resume, false, nil

	case trailer.Offset == 0:
		st.push(&qsc.If{Cond: cond, Then: thenBlock})
		return in.Next + int(in.Offset), false, nil

	default:
		st.push(&qsc.While{Cond: cond, Body: thenBlock})
		return in.Next + int(in.Offset), false, nil
	}
}
