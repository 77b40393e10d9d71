package unit

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/stencil/op"
)

// Instruction is one decoded instruction, for disassembly output.
type Instruction struct {
	Offset   int
	Opcode   op.Code
	Name     string
	Operands []uint16
	Info     string
}

// Disassemble decodes the instruction stream of a code block.
func Disassemble(c *Code) ([]Instruction, error) {
	var out []Instruction
	for ip := 0; ip < c.InstructionCount(); {
		opcode := c.InstructionAt(ip)
		info := op.GetInfo(opcode)
		if info.Name == "" {
			return nil, fmt.Errorf("unit: unknown opcode %d at offset %d", opcode, ip)
		}
		inst := Instruction{Offset: ip, Opcode: opcode, Name: info.Name}
		for i := 0; i < info.OperandCount; i++ {
			inst.Operands = append(inst.Operands, uint16(c.InstructionAt(ip+1+i)))
		}
		inst.Info = operandInfo(c, opcode, inst.Operands)
		out = append(out, inst)
		ip += 1 + info.OperandCount
	}
	return out, nil
}

// operandInfo renders a friendly annotation for an instruction's operands,
// such as the referenced constant value or suspension point.
func operandInfo(c *Code, opcode op.Code, operands []uint16) string {
	switch opcode {
	case op.LoadConst, op.EmitText, op.LoadParam, op.CheckCast, op.ConstructUnit:
		idx := int(operands[0])
		if idx >= c.ConstantCount() {
			return "<bad constant>"
		}
		switch v := c.ConstantAt(idx).(type) {
		case string:
			return fmt.Sprintf("%q", v)
		case Ref:
			return v.Name
		case TypeRef:
			return v.Type.String()
		default:
			return fmt.Sprintf("%v", v)
		}
	case op.LoadLocal, op.StoreLocal:
		return c.LocalNameAt(int(operands[0]))
	case op.Suspend:
		return fmt.Sprintf("point %d -> %s", operands[0], Status(operands[1]))
	case op.YieldIfLimited, op.AdvanceUnit:
		return fmt.Sprintf("point %d", operands[0])
	case op.BinaryOp:
		return op.BinaryOpType(operands[0]).String()
	case op.CompareOp:
		return op.CompareOpType(operands[0]).String()
	case op.ReturnStatus:
		return Status(operands[0]).String()
	}
	return ""
}

// DisassembleText renders a code block's instructions as a plain-text
// listing.
func DisassembleText(c *Code) (string, error) {
	instructions, err := Disassemble(c)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, inst := range instructions {
		operands := make([]string, 0, len(inst.Operands))
		for _, o := range inst.Operands {
			operands = append(operands, fmt.Sprintf("%d", o))
		}
		fmt.Fprintf(&b, "%6d  %-28s %-10s %s\n",
			inst.Offset, inst.Name, strings.Join(operands, " "), inst.Info)
	}
	return b.String(), nil
}
