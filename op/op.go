// Package op defines opcodes used by the stencil compiler and the unit
// render runtime.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop          Code = 1
	ReturnStatus Code = 2 // Finish this invocation with the render status operand

	// Jump
	JumpBackward           Code = 10
	JumpForward            Code = 11
	PopJumpForwardIfFalse  Code = 12
	PopJumpForwardIfTrue   Code = 13
	PopJumpForwardIfNil    Code = 14
	PopJumpForwardIfNotNil Code = 15

	// Load and store
	LoadConst  Code = 20
	LoadLocal  Code = 21
	StoreLocal Code = 22
	LoadParam  Code = 23 // Operand is the constant index of the parameter name

	// Output
	EmitText  Code = 30 // Append the string constant at the operand index
	EmitValue Code = 31 // Pop a value, coerce to text, append

	// Suspension
	YieldIfLimited Code = 40 // Suspend with OutputLimited if the sink signals backpressure
	CheckAvail     Code = 41 // Push whether the named lazy parameter is available
	Suspend        Code = 42 // Save live state at the suspension point and return the status operand

	// Operations
	BinaryOp   Code = 50
	CompareOp  Code = 51
	UnaryNot   Code = 52
	UnaryMinus Code = 53

	// Build
	BuildList Code = 60
	BuildMap  Code = 61

	// Containers
	BinarySubscr Code = 70
	Length       Code = 71
	GetIter      Code = 72
	ForIter      Code = 73

	// Stack
	PopTop Code = 80
	Copy   Code = 81

	// Push constants
	Nil   Code = 90
	True  Code = 91
	False Code = 92

	// Casts
	CheckCast Code = 100 // Runtime-checked narrowing to the type constant at the operand index

	// Units
	ConstructUnit Code = 110 // Pop an args map, push a new render instance of the referenced unit
	AdvanceUnit   Code = 111 // Pop a render instance and advance it, propagating its status
)

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, subtraction, multiplication, etc.
type BinaryOpType uint16

const (
	Add      BinaryOpType = 1
	Subtract BinaryOpType = 2
	Multiply BinaryOpType = 3
	Divide   BinaryOpType = 4
	Modulo   BinaryOpType = 5
	And      BinaryOpType = 6
	Or       BinaryOpType = 7
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulo:
		return "%"
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return ""
	}
}

// CompareOpType describes a type of comparison operation. For example, less
// than, greater than, equal, etc.
type CompareOpType uint16

const (
	LessThan           CompareOpType = 1
	LessThanOrEqual    CompareOpType = 2
	Equal              CompareOpType = 3
	NotEqual           CompareOpType = 4
	GreaterThan        CompareOpType = 5
	GreaterThanOrEqual CompareOpType = 6
)

// String returns a string representation of the comparison operation.
// For example "<" for less than.
func (cop CompareOpType) String() string {
	switch cop {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{AdvanceUnit, "ADVANCE_UNIT", 1},
		{BinaryOp, "BINARY_OP", 1},
		{BinarySubscr, "BINARY_SUBSCR", 0},
		{BuildList, "BUILD_LIST", 1},
		{BuildMap, "BUILD_MAP", 1},
		{CheckAvail, "CHECK_AVAIL", 1},
		{CheckCast, "CHECK_CAST", 1},
		{CompareOp, "COMPARE_OP", 1},
		{ConstructUnit, "CONSTRUCT_UNIT", 1},
		{Copy, "COPY", 1},
		{EmitText, "EMIT_TEXT", 1},
		{EmitValue, "EMIT_VALUE", 0},
		{False, "FALSE", 0},
		{ForIter, "FOR_ITER", 1},
		{GetIter, "GET_ITER", 0},
		{JumpBackward, "JUMP_BACKWARD", 1},
		{JumpForward, "JUMP_FORWARD", 1},
		{Length, "LENGTH", 0},
		{LoadConst, "LOAD_CONST", 1},
		{LoadLocal, "LOAD_LOCAL", 1},
		{LoadParam, "LOAD_PARAM", 1},
		{Nil, "NIL", 0},
		{Nop, "NOP", 0},
		{PopJumpForwardIfFalse, "POP_JUMP_FORWARD_IF_FALSE", 1},
		{PopJumpForwardIfNil, "POP_JUMP_FORWARD_IF_NIL", 1},
		{PopJumpForwardIfNotNil, "POP_JUMP_FORWARD_IF_NOT_NIL", 1},
		{PopJumpForwardIfTrue, "POP_JUMP_FORWARD_IF_TRUE", 1},
		{PopTop, "POP_TOP", 0},
		{ReturnStatus, "RETURN_STATUS", 1},
		{StoreLocal, "STORE_LOCAL", 1},
		{Suspend, "SUSPEND", 2},
		{True, "TRUE", 0},
		{UnaryMinus, "UNARY_MINUS", 0},
		{UnaryNot, "UNARY_NOT", 0},
		{YieldIfLimited, "YIELD_IF_LIMITED", 1},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}
