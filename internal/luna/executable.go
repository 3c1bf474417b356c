package luna

// FunctionProto is a compiled function body nested inside the Executable
// that declares it (spec.md section 5's MAKE_FUNCTION closes over one of
// these by index rather than by value, since the same proto can be
// instantiated into many FunctionObj values, e.g. inside a loop).
type FunctionProto struct {
	Name         string
	Params       []string
	IsVariadic   bool
	NumRegisters int
	Code         *Executable
}

// Executable is one compiled unit: a module's top level, or a function
// body. It is heap-allocated (rather than a plain Go struct) because its
// constant pool can hold interned strings, and its Functions list holds
// nested prototypes, that the collector must trace through exactly like any
// other reference.
type Executable struct {
	Header
	Instructions []Instruction
	Constants    []Value
	Functions    []*FunctionProto
	NumRegisters int
	Name         string
}

var executableType = newTypeDescriptor("executable")

func init() {
	executableType.Visit = func(o Object, v *Visitor) {
		e := o.(*Executable)
		for _, c := range e.Constants {
			v.MarkValue(c)
		}
		for _, fp := range e.Functions {
			if fp.Code != nil {
				v.Mark(fp.Code)
			}
		}
	}
	executableType.ToString = func(o Object) string { return "<executable " + o.(*Executable).Name + ">" }
}

func NewExecutable(h *Heap, name string) *Executable {
	e := allocCell(h, ClassExecutable,
		func() *Executable { o := &Executable{}; o.typ = executableType; return o },
		func(o *Executable) { o.Instructions, o.Constants, o.Functions = nil, nil, nil },
	)
	e.Name = name
	return e
}

// AddConstant appends v to the pool and returns its index. Codegen calls
// this instead of deduplicating; constants are cheap and per-executable,
// unlike interned strings which dedupe globally in the interner.
func (e *Executable) AddConstant(v Value) int32 {
	e.Constants = append(e.Constants, v)
	return int32(len(e.Constants) - 1)
}

func (e *Executable) AddFunction(fp *FunctionProto) int32 {
	e.Functions = append(e.Functions, fp)
	return int32(len(e.Functions) - 1)
}

func (e *Executable) Emit(in Instruction) int32 {
	e.Instructions = append(e.Instructions, in)
	return int32(len(e.Instructions) - 1)
}

func (e *Executable) PatchJumpTarget(instrIdx int32, target int32) {
	in := &e.Instructions[instrIdx]
	switch in.Op {
	case OpJump:
		in.A = target
	case OpJumpIfFalse, OpJumpIfTrue:
		in.B = target
	case OpIterNext:
		in.C = target
	}
}
