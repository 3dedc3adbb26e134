package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the block.
func Disassemble(code CodeBlock) string {
	return DisassembleWithName("", code)
}

// DisassembleWithName returns a human-readable listing with a name header.
func DisassembleWithName(name string, code CodeBlock) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	disassembleBlock(&sb, code, 0)
	return sb.String()
}

func disassembleBlock(sb *strings.Builder, code CodeBlock, depth int) {
	indent := strings.Repeat("    ", depth)

	for i := 0; i < len(code); i++ {
		op, ok := code[i].(Opcode)
		if !ok {
			sb.WriteString(fmt.Sprintf("%s%04d  ?? %s\n", indent, i, elementString(code[i])))
			continue
		}

		switch op {
		case OpLdc:
			sb.WriteString(fmt.Sprintf("%s%04d  %-8s %s\n", indent, i, op, operandString(code, i+1)))
			i++
		case OpLd:
			if i+1 < len(code) {
				if d, x, ok := SplitCoordinate(asLiteral(code[i+1])); ok {
					where := fmt.Sprintf("%d %d", d, x)
					if d == int(GlobalContext) {
						where = fmt.Sprintf("global %d", x)
					}
					sb.WriteString(fmt.Sprintf("%s%04d  %-8s %s\n", indent, i, op, where))
					i++
					continue
				}
			}
			sb.WriteString(fmt.Sprintf("%s%04d  %-8s %s\n", indent, i, op, operandString(code, i+1)))
			i++
		case OpLdf:
			sb.WriteString(fmt.Sprintf("%s%04d  %s\n", indent, i, op))
			i++
			writeNested(sb, code, i, depth+1)
		case OpSel:
			sb.WriteString(fmt.Sprintf("%s%04d  %s\n", indent, i, op))
			sb.WriteString(fmt.Sprintf("%s  then:\n", indent))
			writeNested(sb, code, i+1, depth+1)
			sb.WriteString(fmt.Sprintf("%s  else:\n", indent))
			writeNested(sb, code, i+2, depth+1)
			i += 2
		default:
			sb.WriteString(fmt.Sprintf("%s%04d  %s\n", indent, i, op))
		}
	}
}

func writeNested(sb *strings.Builder, code CodeBlock, at, depth int) {
	if at >= len(code) {
		sb.WriteString(strings.Repeat("    ", depth) + "<missing>\n")
		return
	}
	block, ok := code[at].(CodeBlock)
	if !ok {
		sb.WriteString(strings.Repeat("    ", depth) + "<not a block> " + elementString(code[at]) + "\n")
		return
	}
	disassembleBlock(sb, block, depth)
}

func operandString(code CodeBlock, at int) string {
	if at >= len(code) {
		return "<missing>"
	}
	return elementString(code[at])
}
