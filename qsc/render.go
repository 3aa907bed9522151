package qsc

import (
	"fmt"
	"strconv"
	"strings"
)

const indentUnit = "  "

// Render serializes a reconstructed block to QSC source text.
//
// Operators are emitted flat, without added parentheses: the instruction
// order the block was rebuilt from already implies evaluation order, and
// the QSC grammar does not require further disambiguation.
func Render(block *Block) string {
	var sb strings.Builder
	renderBlockBody(&sb, block, 0)
	return sb.String()
}

func renderBlockBody(sb *strings.Builder, block *Block, depth int) {
	for _, stmt := range block.Stmts {
		renderStmt(sb, stmt, depth)
	}
}

func renderStmt(sb *strings.Builder, stmt Stmt, depth int) {
	indent := strings.Repeat(indentUnit, depth)

	switch s := stmt.(type) {
	case *ExprStmt:
		sb.WriteString(indent)
		renderExpr(sb, s.X)
		sb.WriteString(";\n")

	case *If:
		sb.WriteString(indent)
		sb.WriteString("if(")
		renderExpr(sb, s.Cond)
		sb.WriteString(")\n")
		renderBraced(sb, s.Then, depth)
		if s.Else != nil {
			sb.WriteString(indent)
			sb.WriteString("else\n")
			renderBraced(sb, s.Else, depth)
		}

	case *While:
		sb.WriteString(indent)
		sb.WriteString("while(")
		renderExpr(sb, s.Cond)
		sb.WriteString(")\n")
		renderBraced(sb, s.Body, depth)

	case *Block:
		renderBraced(sb, s, depth)

	default:
		panic(fmt.Sprintf("qsc: unrenderable statement %T", stmt))
	}
}

func renderBraced(sb *strings.Builder, block *Block, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	sb.WriteString(indent)
	sb.WriteString("{\n")
	renderBlockBody(sb, block, depth+1)
	sb.WriteString(indent)
	sb.WriteString("}\n")
}

func renderExpr(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *IntLit:
		sb.WriteString(strconv.FormatInt(e.Value, 10))

	case *FloatLit:
		sb.WriteString(strconv.FormatFloat(float64(e.Value), 'g', -1, 32))

	case *StrLit:
		sb.WriteByte('"')
		sb.WriteString(e.Value)
		sb.WriteByte('"')

	case *Ident:
		sb.WriteString(e.Name)

	case *Unary:
		sb.WriteString(e.Op)
		renderExpr(sb, e.Operand)

	case *Binary:
		renderExpr(sb, e.Left)
		sb.WriteByte(' ')
		sb.WriteString(e.Op)
		sb.WriteByte(' ')
		renderExpr(sb, e.Right)

	case *Call:
		sb.WriteString(e.Func)
		sb.WriteByte('(')
		for i, arg := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderExpr(sb, arg)
		}
		sb.WriteByte(')')

	default:
		panic(fmt.Sprintf("qsc: unrenderable expression %T", expr))
	}
}
