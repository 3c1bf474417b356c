package luna

// Opcode enumerates the register machine's instruction set (spec.md
// section 5). Each Instruction uses a Lua-style fixed ABCD operand layout
// rather than a variable-width encoding, since the teacher's own bytecode
// already favors a small fixed-size instruction struct over a packed byte
// stream (vm/bytecode.go).
type Opcode uint8

const (
	OpLoadConst Opcode = iota // A=dst, B=const index
	OpLoadNone                // A=dst
	OpLoadUndefined            // A=dst
	OpLoadBool                // A=dst, B=0/1
	OpMove                    // A=dst, B=src

	OpAdd // A=dst, B=lhs, C=rhs
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	OpNeg // A=dst, B=src
	OpNot
	OpPos

	OpJump         // A=target pc
	OpJumpIfFalse  // A=cond reg, B=target pc
	OpJumpIfTrue   // A=cond reg, B=target pc

	OpMakeArray   // A=dst, B=first element reg, C=count
	OpMakeObject  // A=dst: allocate a bare PlainObject; entries follow as individual SET_PROPs
	OpMakeFunction // A=dst, B=function-proto index into Executable.Functions

	OpGetGlobal // A=dst, B=const index (name)
	OpSetGlobal // A=src, B=const index (name)

	OpGetProp // A=dst, B=object reg, C=const index (name)
	OpSetProp // A=object reg, B=const index (name), C=value reg

	OpGetSubscr // A=dst, B=object reg, C=index reg
	OpSetSubscr // A=object reg, B=index reg, C=value reg

	OpCall   // A=dst, B=callee reg, C=first arg reg, D=argc
	OpReturn // A=src reg, or -1 to return none

	OpGetIter  // A=dst, B=iterable reg
	OpIterNext // A=dst (receives next value), B=iterator reg, C=target pc on exhaustion

	OpHalt
)

// Instruction is one bytecode word. Unused operand slots are simply left
// zero; each opcode's operand meaning is documented on its constant above.
type Instruction struct {
	Op      Opcode
	A, B, C int32
	D       int32
}

func (op Opcode) String() string {
	names := [...]string{
		"LOAD_CONST", "LOAD_NONE", "LOAD_UNDEFINED", "LOAD_BOOL", "MOVE",
		"ADD", "SUB", "MUL", "DIV", "MOD",
		"LT", "LE", "GT", "GE", "EQ", "NE",
		"NEG", "NOT", "POS",
		"JUMP", "JUMP_IF_FALSE", "JUMP_IF_TRUE",
		"MAKE_ARRAY", "MAKE_OBJECT", "MAKE_FUNCTION",
		"GET_GLOBAL", "SET_GLOBAL",
		"GET_PROP", "SET_PROP",
		"GET_SUBSCR", "SET_SUBSCR",
		"CALL", "RETURN",
		"GET_ITER", "ITER_NEXT",
		"HALT",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "UNKNOWN"
}
