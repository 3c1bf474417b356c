package luna

import (
	"fmt"

	"luna/internal/ast"
)

// generator lowers one function body (or a module's top level, which is
// just a function of zero parameters) to a linear Executable. Register
// allocation is a simple monotonically increasing counter per function,
// matching spec.md section 5's register pool being a bump allocator with
// LIFO discipline at call time: codegen never reuses a register, so the
// runtime frame only ever needs as many registers as NumRegisters names.
type generator struct {
	heap     *Heap
	interner *Interner
	exec     *Executable
	locals   map[string]int32
	nextReg  int32

	breakPatches [][]int32 // one slot per enclosing loop: indices of OpJump placeholders to patch to the loop's exit pc
	loopTops     []int32   // one slot per enclosing loop: pc to jump to on `continue`
}

// Compile lowers a parsed program to a top-level Executable (spec.md
// section 1: "a bytecode generator that lowers an AST ... to a linear
// instruction stream"). Register 0 of every function, including the
// top level, is reserved for the implicit `self` binding (spec.md 4.4).
func Compile(h *Heap, in *Interner, prog *ast.Program, name string) (*Executable, error) {
	g := &generator{
		heap:     h,
		interner: in,
		exec:     NewExecutable(h, name),
		locals:   map[string]int32{"self": 0},
		nextReg:  1,
	}
	for _, stmt := range prog.Statements {
		if err := g.genStmt(stmt); err != nil {
			return nil, err
		}
	}
	g.exec.Emit(Instruction{Op: OpHalt})
	g.exec.NumRegisters = int(g.nextReg)
	return g.exec, nil
}

func (g *generator) allocReg() int32 {
	r := g.nextReg
	g.nextReg++
	return r
}

func (g *generator) internConst(s string) int32 {
	return g.exec.AddConstant(ObjectValue(g.interner.Intern(s)))
}

// ---- statements ----

func (g *generator) genStmt(n ast.Node) error {
	switch s := n.(type) {
	case *ast.VarDecl:
		reg, err := g.genExprInto(s.Value, -1)
		if err != nil {
			return err
		}
		if existing, ok := g.locals[s.Name]; ok {
			g.exec.Emit(Instruction{Op: OpMove, A: existing, B: reg})
		} else {
			dst := g.allocReg()
			g.locals[s.Name] = dst
			g.exec.Emit(Instruction{Op: OpMove, A: dst, B: reg})
		}
		return nil

	case *ast.ExprStmt:
		_, err := g.genExprInto(s.X, -1)
		return err

	case *ast.ReturnStmt:
		if s.Value == nil {
			g.exec.Emit(Instruction{Op: OpReturn, A: -1})
			return nil
		}
		reg, err := g.genExprInto(s.Value, -1)
		if err != nil {
			return err
		}
		g.exec.Emit(Instruction{Op: OpReturn, A: reg})
		return nil

	case *ast.BreakStmt:
		if len(g.breakPatches) == 0 {
			return fmt.Errorf("break outside of a loop")
		}
		idx := g.exec.Emit(Instruction{Op: OpJump})
		top := len(g.breakPatches) - 1
		g.breakPatches[top] = append(g.breakPatches[top], idx)
		return nil

	case *ast.ContinueStmt:
		if len(g.loopTops) == 0 {
			return fmt.Errorf("continue outside of a loop")
		}
		g.exec.Emit(Instruction{Op: OpJump, A: g.loopTops[len(g.loopTops)-1]})
		return nil

	case *ast.Block:
		for _, st := range s.Statements {
			if err := g.genStmt(st); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStmt:
		return g.genIf(s)

	case *ast.WhileStmt:
		return g.genWhile(s)

	case *ast.LoopStmt:
		return g.genLoop(s)

	case *ast.ForInStmt:
		return g.genForIn(s)

	case *ast.FunctionDecl:
		return g.genFunctionDecl(s)

	default:
		return fmt.Errorf("codegen: unsupported statement %T", n)
	}
}

func (g *generator) genIf(s *ast.IfStmt) error {
	cond, err := g.genExprInto(s.Cond, -1)
	if err != nil {
		return err
	}
	jmpFalse := g.exec.Emit(Instruction{Op: OpJumpIfFalse, A: cond})
	if err := g.genStmt(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		g.exec.PatchJumpTarget(jmpFalse, int32(len(g.exec.Instructions)))
		return nil
	}
	jmpEnd := g.exec.Emit(Instruction{Op: OpJump})
	g.exec.PatchJumpTarget(jmpFalse, int32(len(g.exec.Instructions)))
	if err := g.genStmt(s.Else); err != nil {
		return err
	}
	g.exec.PatchJumpTarget(jmpEnd, int32(len(g.exec.Instructions)))
	return nil
}

func (g *generator) pushLoop() {
	g.breakPatches = append(g.breakPatches, nil)
	g.loopTops = append(g.loopTops, int32(len(g.exec.Instructions)))
}

func (g *generator) popLoop() {
	top := len(g.breakPatches) - 1
	exitPC := int32(len(g.exec.Instructions))
	for _, idx := range g.breakPatches[top] {
		g.exec.PatchJumpTarget(idx, exitPC)
	}
	g.breakPatches = g.breakPatches[:top]
	g.loopTops = g.loopTops[:top]
}

func (g *generator) genWhile(s *ast.WhileStmt) error {
	g.pushLoop()
	g.loopTops[len(g.loopTops)-1] = int32(len(g.exec.Instructions))
	cond, err := g.genExprInto(s.Cond, -1)
	if err != nil {
		return err
	}
	jmpExit := g.exec.Emit(Instruction{Op: OpJumpIfFalse, A: cond})
	if err := g.genStmt(s.Body); err != nil {
		return err
	}
	g.exec.Emit(Instruction{Op: OpJump, A: g.loopTops[len(g.loopTops)-1]})
	g.exec.PatchJumpTarget(jmpExit, int32(len(g.exec.Instructions)))
	g.popLoop()
	return nil
}

func (g *generator) genLoop(s *ast.LoopStmt) error {
	g.pushLoop()
	g.loopTops[len(g.loopTops)-1] = int32(len(g.exec.Instructions))
	if err := g.genStmt(s.Body); err != nil {
		return err
	}
	g.exec.Emit(Instruction{Op: OpJump, A: g.loopTops[len(g.loopTops)-1]})
	g.popLoop()
	return nil
}

func (g *generator) genForIn(s *ast.ForInStmt) error {
	iterable, err := g.genExprInto(s.Iterable, -1)
	if err != nil {
		return err
	}
	iterReg := g.allocReg()
	g.exec.Emit(Instruction{Op: OpGetIter, A: iterReg, B: iterable})

	g.pushLoop()
	g.loopTops[len(g.loopTops)-1] = int32(len(g.exec.Instructions))

	itemReg, ok := g.locals[s.Var]
	if !ok {
		itemReg = g.allocReg()
		g.locals[s.Var] = itemReg
	}
	nextIdx := g.exec.Emit(Instruction{Op: OpIterNext, A: itemReg, B: iterReg})
	if err := g.genStmt(s.Body); err != nil {
		return err
	}
	g.exec.Emit(Instruction{Op: OpJump, A: g.loopTops[len(g.loopTops)-1]})
	exitPC := int32(len(g.exec.Instructions))
	g.exec.PatchJumpTarget(nextIdx, exitPC)
	g.popLoop()
	return nil
}

func (g *generator) genFunctionDecl(s *ast.FunctionDecl) error {
	idx, err := g.genFunctionProto(s.Fn)
	if err != nil {
		return err
	}
	dst, ok := g.locals[s.Fn.Name]
	if !ok {
		dst = g.allocReg()
		g.locals[s.Fn.Name] = dst
	}
	g.exec.Emit(Instruction{Op: OpMakeFunction, A: dst, B: idx})
	// Also bind the name as a module global so function bodies (which
	// resolve non-local names through GET_GLOBAL) can call it, including
	// recursively.
	g.exec.Emit(Instruction{Op: OpSetGlobal, A: dst, B: g.internConst(s.Fn.Name)})
	return nil
}

func (g *generator) genFunctionProto(fn *ast.FunctionLiteral) (int32, error) {
	inner := &generator{
		heap:     g.heap,
		interner: g.interner,
		exec:     NewExecutable(g.heap, fn.Name),
		locals:   map[string]int32{"self": 0},
		nextReg:  1,
	}
	for _, p := range fn.Params {
		inner.locals[p] = inner.allocReg()
	}
	if fn.IsVariadic {
		// Reserved slot for the trailing rest-args array; vm.go's callUser
		// writes it at index 1+len(Params) by this same convention.
		inner.allocReg()
	}
	for _, st := range fn.Body {
		if err := inner.genStmt(st); err != nil {
			return 0, err
		}
	}
	inner.exec.Emit(Instruction{Op: OpReturn, A: -1})
	inner.exec.NumRegisters = int(inner.nextReg)

	proto := &FunctionProto{
		Name:         fn.Name,
		Params:       fn.Params,
		IsVariadic:   fn.IsVariadic,
		NumRegisters: inner.exec.NumRegisters,
		Code:         inner.exec,
	}
	return g.exec.AddFunction(proto), nil
}

// ---- expressions ----

// genExprInto lowers an expression. When want >= 0 the result is written
// into register want; when want < 0 the generator picks a fresh register.
// Either way it returns the register actually holding the result.
func (g *generator) genExprInto(n ast.Node, want int32) (int32, error) {
	switch e := n.(type) {
	case *ast.IntLiteral:
		dst := g.dest(want)
		idx := g.exec.AddConstant(IntValue(e.Value))
		g.exec.Emit(Instruction{Op: OpLoadConst, A: dst, B: idx})
		return dst, nil

	case *ast.StringLiteral:
		dst := g.dest(want)
		idx := g.internConst(e.Value)
		g.exec.Emit(Instruction{Op: OpLoadConst, A: dst, B: idx})
		return dst, nil

	case *ast.BoolLiteral:
		dst := g.dest(want)
		b := int32(0)
		if e.Value {
			b = 1
		}
		g.exec.Emit(Instruction{Op: OpLoadBool, A: dst, B: b})
		return dst, nil

	case *ast.NoneLiteral:
		dst := g.dest(want)
		g.exec.Emit(Instruction{Op: OpLoadNone, A: dst})
		return dst, nil

	case *ast.Identifier:
		if reg, ok := g.locals[e.Name]; ok {
			if want >= 0 && want != reg {
				g.exec.Emit(Instruction{Op: OpMove, A: want, B: reg})
				return want, nil
			}
			return reg, nil
		}
		dst := g.dest(want)
		idx := g.internConst(e.Name)
		g.exec.Emit(Instruction{Op: OpGetGlobal, A: dst, B: idx})
		return dst, nil

	case *ast.ArrayLiteral:
		return g.genArrayLiteral(e, want)

	case *ast.ObjectLiteral:
		return g.genObjectLiteral(e, want)

	case *ast.BinaryExpr:
		return g.genBinary(e, want)

	case *ast.LogicalExpr:
		return g.genLogical(e, want)

	case *ast.UnaryExpr:
		return g.genUnary(e, want)

	case *ast.AssignExpr:
		return g.genAssign(e, want)

	case *ast.MemberExpr:
		dst := g.dest(want)
		obj, err := g.genExprInto(e.Object, -1)
		if err != nil {
			return 0, err
		}
		idx := g.internConst(e.Property)
		g.exec.Emit(Instruction{Op: OpGetProp, A: dst, B: obj, C: idx})
		return dst, nil

	case *ast.IndexExpr:
		dst := g.dest(want)
		obj, err := g.genExprInto(e.Object, -1)
		if err != nil {
			return 0, err
		}
		idxReg, err := g.genExprInto(e.Index, -1)
		if err != nil {
			return 0, err
		}
		g.exec.Emit(Instruction{Op: OpGetSubscr, A: dst, B: obj, C: idxReg})
		return dst, nil

	case *ast.CallExpr:
		return g.genCall(e, want)

	case *ast.FunctionLiteral:
		dst := g.dest(want)
		idx, err := g.genFunctionProto(e)
		if err != nil {
			return 0, err
		}
		g.exec.Emit(Instruction{Op: OpMakeFunction, A: dst, B: idx})
		return dst, nil

	default:
		return 0, fmt.Errorf("codegen: unsupported expression %T", n)
	}
}

func (g *generator) dest(want int32) int32 {
	if want >= 0 {
		return want
	}
	return g.allocReg()
}

// genArrayLiteral and genCall's argument list share a constraint:
// MAKE_ARRAY/CALL read their payload out of a contiguous register run
// (genObjectLiteral avoids the problem entirely by emitting one SET_PROP
// per entry instead of a single variadic-arity instruction). A monotonically
// increasing allocator only
// guarantees that if every slot in the run is reserved up front, before
// any element's own subexpression gets a chance to allocate further temps
// above the run — otherwise a multi-step element (e.g. a nested literal,
// or a binary op between two literals) would leave its result past the
// end of the run instead of inside it.
func (g *generator) genArrayLiteral(e *ast.ArrayLiteral, want int32) (int32, error) {
	dst := g.dest(want)
	regs := make([]int32, len(e.Elements))
	for i := range regs {
		regs[i] = g.allocReg()
	}
	for i, el := range e.Elements {
		if _, err := g.genExprInto(el, regs[i]); err != nil {
			return 0, err
		}
	}
	var first int32
	if len(regs) > 0 {
		first = regs[0]
	}
	g.exec.Emit(Instruction{Op: OpMakeArray, A: dst, B: first, C: int32(len(e.Elements))})
	return dst, nil
}

// `{key: value, ...}` builds a bare PlainObject with each entry installed
// by name via SET_PROP, not a MAKE_HASHMAP payload — entries are meant to
// be reached by dot notation (`obj.key`), which only PropertyHolder-backed
// objects support (ops.go's getProp/setProp). HashmapObj (an arbitrary-key
// table reached only by subscript) has no literal syntax of its own; it is
// constructed through the `Hashmap` builtin instead, so this doesn't need
// the array/call contiguous-register-run protocol at all: each entry is
// set one SET_PROP at a time against the already-allocated object.
func (g *generator) genObjectLiteral(e *ast.ObjectLiteral, want int32) (int32, error) {
	dst := g.dest(want)
	g.exec.Emit(Instruction{Op: OpMakeObject, A: dst})
	for _, entry := range e.Entries {
		valReg, err := g.genExprInto(entry.Value, -1)
		if err != nil {
			return 0, err
		}
		idx := g.internConst(entry.Key)
		g.exec.Emit(Instruction{Op: OpSetProp, A: dst, B: idx, C: valReg})
	}
	return dst, nil
}

var binaryOpcodes = map[ast.BinaryOp]Opcode{
	ast.OpAdd: OpAdd, ast.OpSub: OpSub, ast.OpMul: OpMul, ast.OpDiv: OpDiv, ast.OpMod: OpMod,
	ast.OpLt: OpLt, ast.OpLe: OpLe, ast.OpGt: OpGt, ast.OpGe: OpGe, ast.OpEq: OpEq, ast.OpNe: OpNe,
}

func (g *generator) genBinary(e *ast.BinaryExpr, want int32) (int32, error) {
	l, err := g.genExprInto(e.Left, -1)
	if err != nil {
		return 0, err
	}
	r, err := g.genExprInto(e.Right, -1)
	if err != nil {
		return 0, err
	}
	dst := g.dest(want)
	op, ok := binaryOpcodes[e.Op]
	if !ok {
		return 0, fmt.Errorf("codegen: unknown binary operator %v", e.Op)
	}
	g.exec.Emit(Instruction{Op: op, A: dst, B: l, C: r})
	return dst, nil
}

// genLogical lowers && and || with short-circuit control flow rather than
// as a strict opcode, matching spec.md section 5's note that short-circuit
// evaluation is a codegen-level concern, not a VM-level one.
func (g *generator) genLogical(e *ast.LogicalExpr, want int32) (int32, error) {
	dst := g.dest(want)
	l, err := g.genExprInto(e.Left, dst)
	if err != nil {
		return 0, err
	}
	var skip int32
	if e.Op == ast.LogAnd {
		skip = g.exec.Emit(Instruction{Op: OpJumpIfFalse, A: l})
	} else {
		skip = g.exec.Emit(Instruction{Op: OpJumpIfTrue, A: l})
	}
	if _, err := g.genExprInto(e.Right, dst); err != nil {
		return 0, err
	}
	g.exec.PatchJumpTarget(skip, int32(len(g.exec.Instructions)))
	return dst, nil
}

var unaryOpcodes = map[ast.UnaryOp]Opcode{
	ast.UnaryMinus: OpNeg, ast.UnaryNot: OpNot, ast.UnaryPlus: OpPos,
}

func (g *generator) genUnary(e *ast.UnaryExpr, want int32) (int32, error) {
	src, err := g.genExprInto(e.Operand, -1)
	if err != nil {
		return 0, err
	}
	dst := g.dest(want)
	g.exec.Emit(Instruction{Op: unaryOpcodes[e.Op], A: dst, B: src})
	return dst, nil
}

func (g *generator) genAssign(e *ast.AssignExpr, want int32) (int32, error) {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		if reg, ok := g.locals[target.Name]; ok {
			if _, err := g.genExprInto(e.Value, reg); err != nil {
				return 0, err
			}
			return g.finishAssign(reg, want)
		}
		valReg, err := g.genExprInto(e.Value, -1)
		if err != nil {
			return 0, err
		}
		idx := g.internConst(target.Name)
		g.exec.Emit(Instruction{Op: OpSetGlobal, A: valReg, B: idx})
		return g.finishAssign(valReg, want)

	case *ast.MemberExpr:
		obj, err := g.genExprInto(target.Object, -1)
		if err != nil {
			return 0, err
		}
		val, err := g.genExprInto(e.Value, -1)
		if err != nil {
			return 0, err
		}
		idx := g.internConst(target.Property)
		g.exec.Emit(Instruction{Op: OpSetProp, A: obj, B: idx, C: val})
		return g.finishAssign(val, want)

	case *ast.IndexExpr:
		obj, err := g.genExprInto(target.Object, -1)
		if err != nil {
			return 0, err
		}
		idxReg, err := g.genExprInto(target.Index, -1)
		if err != nil {
			return 0, err
		}
		val, err := g.genExprInto(e.Value, -1)
		if err != nil {
			return 0, err
		}
		g.exec.Emit(Instruction{Op: OpSetSubscr, A: obj, B: idxReg, C: val})
		return g.finishAssign(val, want)

	default:
		return 0, fmt.Errorf("codegen: invalid assignment target %T", e.Target)
	}
}

func (g *generator) finishAssign(valReg, want int32) (int32, error) {
	if want >= 0 && want != valReg {
		g.exec.Emit(Instruction{Op: OpMove, A: want, B: valReg})
		return want, nil
	}
	return valReg, nil
}

func (g *generator) genCall(e *ast.CallExpr, want int32) (int32, error) {
	var calleeReg int32
	var err error
	if member, ok := e.Callee.(*ast.MemberExpr); ok {
		objReg, err := g.genExprInto(member.Object, -1)
		if err != nil {
			return 0, err
		}
		calleeReg = g.allocReg()
		idx := g.internConst(member.Property)
		g.exec.Emit(Instruction{Op: OpGetProp, A: calleeReg, B: objReg, C: idx})
	} else {
		calleeReg, err = g.genExprInto(e.Callee, -1)
		if err != nil {
			return 0, err
		}
	}

	argRegs := make([]int32, len(e.Args))
	for i := range argRegs {
		argRegs[i] = g.allocReg()
	}
	for i, a := range e.Args {
		if _, err := g.genExprInto(a, argRegs[i]); err != nil {
			return 0, err
		}
	}
	var first int32
	if len(argRegs) > 0 {
		first = argRegs[0]
	}
	dst := g.dest(want)
	g.exec.Emit(Instruction{Op: OpCall, A: dst, B: calleeReg, C: first, D: int32(len(e.Args))})
	return dst, nil
}
