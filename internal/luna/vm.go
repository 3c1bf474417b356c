package luna

import "fmt"

// DefaultMaxCallDepth guards the Go call stack the same way the teacher's
// own interpreter guards its C stack (vm/vm.go): without it, unbounded
// Luna recursion would eventually blow the Go goroutine stack instead of
// raising a catchable error.
const DefaultMaxCallDepth = 1024

// frame is one activation record (spec.md section 5's "Activation
// record"): a register window, the implicit self binding, the owning
// module (for global lookups), and the instruction pointer.
type frame struct {
	fn        *FunctionObj
	exec      *Executable
	module    *ModuleObj
	registers []Value
	self      Value
	pc        int32
}

// VM executes one Executable against a shared Heap (spec.md section 5's
// "Register-based VM"). Dispatch is a plain Go switch over Opcode, which
// the Go compiler turns into a jump table for a dense, contiguous enum
// like this one — the idiomatic stand-in for the teacher's computed-goto
// dispatch (vm/exec.go), since Go has no goto-via-label-pointer.
type VM struct {
	Heap     *Heap
	Interner *Interner
	Builtins *PropertyMap // shared global tier beneath every module's own globals; wired by InterpreterState
	frames   []*frame
	regPool  []Value // shared register file; each frame owns a window, pushed/popped LIFO with the call stack (spec.md section 5's "Register pool")
	regTop   int
	maxDepth int
	debug    *Debugger // nil unless -debug was passed
}

func NewVM(h *Heap, in *Interner) *VM {
	return &VM{Heap: h, Interner: in, maxDepth: DefaultMaxCallDepth}
}

// AttachDebugger wires an interactive single-stepper into the dispatch
// loop (-debug on the CLI). Passing nil detaches it.
func (vm *VM) AttachDebugger(d *Debugger) { vm.debug = d }

// SetMaxCallDepth backs the CLI's -frame-stack flag.
func (vm *VM) SetMaxCallDepth(n int) { vm.maxDepth = n }

// ReserveRegisterPool backs the CLI's -reg-pool flag: pre-growing the
// shared register file avoids a reallocation the first few calls would
// otherwise trigger.
func (vm *VM) ReserveRegisterPool(n int) {
	if n > len(vm.regPool) {
		grown := make([]Value, n)
		copy(grown, vm.regPool)
		vm.regPool = grown
	}
}

// Roots implements heap.RootFunc: every register and self binding in every
// live activation record (spec.md section 3: "insert into root set ...
// every register in every live activation record").
func (vm *VM) Roots() []Object {
	var out []Object
	for _, f := range vm.frames {
		if f.module != nil {
			out = append(out, f.module)
		}
		if f.fn != nil {
			out = append(out, f.fn)
		}
		for _, r := range f.registers {
			if r.kind == KindObject && r.obj != nil {
				out = append(out, r.obj)
			}
		}
		if f.self.kind == KindObject && f.self.obj != nil {
			out = append(out, f.self.obj)
		}
	}
	return out
}

func (vm *VM) traceback() []Frame {
	out := make([]Frame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		name := "<module>"
		if f.fn != nil {
			name = f.fn.name
		}
		out = append(out, Frame{FunctionName: name, Line: int(f.pc)})
	}
	return out
}

// RunModule executes a module's top-level code and caches its result
// (spec.md's module semantics, SPEC_FULL.md's import design).
func (vm *VM) RunModule(m *ModuleObj) (Value, error) {
	if m.Loaded() {
		return m.Result(), nil
	}
	top := NewUserFunction(vm.Heap, "<module>", m.exec, m, 0, false)
	v, err := vm.Call(top, None, nil)
	if err != nil {
		return Value{}, err
	}
	m.SetResult(v)
	return v, nil
}

// Call implements the CALL opcode's dispatch for all three FunctionKind
// variants (spec.md section 5's call protocol).
func (vm *VM) Call(fn *FunctionObj, self Value, args []Value) (Value, error) {
	switch fn.kind {
	case FuncNative:
		return fn.native(vm, self, args)
	case FuncBound:
		return vm.Call(fn.target, fn.boundSelf, args)
	case FuncUser:
		return vm.callUser(fn, self, args)
	default:
		return Value{}, typeError(vm.Heap, vm.traceback(), "value is not callable")
	}
}

func (vm *VM) callUser(fn *FunctionObj, self Value, args []Value) (Value, error) {
	if len(vm.frames) >= vm.maxDepth {
		return Value{}, stackOverflow(vm.Heap, vm.traceback())
	}

	exec := fn.exec
	base := vm.regTop
	need := exec.NumRegisters
	if base+need > len(vm.regPool) {
		grown := make([]Value, base+need)
		copy(grown, vm.regPool)
		vm.regPool = grown
	}
	window := vm.regPool[base : base+need]
	for i := range window {
		window[i] = Value{}
	}
	vm.regTop = base + need

	f := &frame{fn: fn, exec: exec, module: fn.module, registers: window}
	f.self = self
	f.registers[0] = self

	if fn.variadic {
		if len(args) < fn.paramCount {
			return Value{}, arityError(vm.Heap, vm.traceback(), fn.paramCount, len(args), true)
		}
		for i := 0; i < fn.paramCount; i++ {
			f.registers[1+i] = args[i]
		}
		rest := append([]Value{}, args[fn.paramCount:]...)
		f.registers[1+fn.paramCount] = ObjectValue(NewArray(vm.Heap, rest))
	} else {
		if len(args) != fn.paramCount {
			return Value{}, arityError(vm.Heap, vm.traceback(), fn.paramCount, len(args), false)
		}
		for i := 0; i < fn.paramCount; i++ {
			f.registers[1+i] = args[i]
		}
	}

	vm.frames = append(vm.frames, f)
	defer func() {
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.regTop = base
	}()
	return vm.run(f)
}

// run is the dispatch loop: fetch, decode, execute, until OpReturn or
// OpHalt for this frame (spec.md section 5's "Dispatch loop").
func (vm *VM) run(f *frame) (Value, error) {
	for {
		if vm.debug != nil {
			vm.debug.beforeInstruction(vm, f)
		}
		in := f.exec.Instructions[f.pc]
		f.pc++
		switch in.Op {
		case OpLoadConst:
			f.registers[in.A] = f.exec.Constants[in.B]
		case OpLoadNone:
			f.registers[in.A] = None
		case OpLoadUndefined:
			f.registers[in.A] = Undefined
		case OpLoadBool:
			f.registers[in.A] = BoolValue(in.B != 0)
		case OpMove:
			f.registers[in.A] = f.registers[in.B]

		case OpAdd, OpSub, OpMul, OpDiv, OpMod:
			v, err := vm.arith(in.Op, f.registers[in.B], f.registers[in.C])
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			f.registers[in.A] = v
		case OpLt, OpLe, OpGt, OpGe:
			v, err := vm.compare(in.Op, f.registers[in.B], f.registers[in.C])
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			f.registers[in.A] = v
		case OpEq:
			f.registers[in.A] = BoolValue(Equal(f.registers[in.B], f.registers[in.C]))
		case OpNe:
			f.registers[in.A] = BoolValue(!Equal(f.registers[in.B], f.registers[in.C]))

		case OpNeg:
			v := f.registers[in.B]
			if v.kind != KindInt {
				return Value{}, vm.wrapTrace(typeError(vm.Heap, nil, "unary '-' requires int, got %s", v.TypeName()))
			}
			f.registers[in.A] = IntValue(-v.num)
		case OpNot:
			f.registers[in.A] = BoolValue(!f.registers[in.B].Truthy())
		case OpPos:
			v := f.registers[in.B]
			if v.kind != KindInt {
				return Value{}, vm.wrapTrace(typeError(vm.Heap, nil, "unary '+' requires int, got %s", v.TypeName()))
			}
			f.registers[in.A] = v

		case OpJump:
			f.pc = in.A
		case OpJumpIfFalse:
			if !f.registers[in.A].Truthy() {
				f.pc = in.B
			}
		case OpJumpIfTrue:
			if f.registers[in.A].Truthy() {
				f.pc = in.B
			}

		case OpMakeArray:
			elems := make([]Value, in.C)
			copy(elems, f.registers[in.B:in.B+in.C])
			f.registers[in.A] = ObjectValue(NewArray(vm.Heap, elems))

		case OpMakeObject:
			f.registers[in.A] = ObjectValue(NewPlainObject(vm.Heap))

		case OpMakeFunction:
			proto := f.exec.Functions[in.B]
			fn := NewUserFunction(vm.Heap, proto.Name, proto.Code, f.module, len(proto.Params), proto.IsVariadic)
			f.registers[in.A] = ObjectValue(fn)

		case OpGetGlobal:
			name := f.exec.Constants[in.B].obj.(*StringObj)
			v, ok := Value{}, false
			if f.module != nil {
				v, ok = f.module.Globals().Get(name)
			}
			if !ok && vm.Builtins != nil {
				v, ok = vm.Builtins.Get(name)
			}
			if !ok {
				return Value{}, vm.wrapTrace(nameError(vm.Heap, nil, name.String()))
			}
			f.registers[in.A] = v
		case OpSetGlobal:
			name := f.exec.Constants[in.B].obj.(*StringObj)
			if f.module != nil {
				f.module.Globals().Set(name, f.registers[in.A])
			}

		case OpGetProp:
			v, err := vm.getProp(f.registers[in.B], f.exec.Constants[in.C].obj.(*StringObj))
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			f.registers[in.A] = v
		case OpSetProp:
			if err := vm.setProp(f.registers[in.A], f.exec.Constants[in.B].obj.(*StringObj), f.registers[in.C]); err != nil {
				return Value{}, vm.wrapTrace(err)
			}

		case OpGetSubscr:
			v, err := vm.getSubscr(f.registers[in.B], f.registers[in.C])
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			f.registers[in.A] = v
		case OpSetSubscr:
			if err := vm.setSubscr(f.registers[in.A], f.registers[in.B], f.registers[in.C]); err != nil {
				return Value{}, vm.wrapTrace(err)
			}

		case OpCall:
			callee := f.registers[in.B]
			args := make([]Value, in.D)
			copy(args, f.registers[in.C:in.C+in.D])
			v, err := vm.callValue(callee, f.self, args)
			if err != nil {
				return Value{}, err
			}
			if in.A >= 0 {
				f.registers[in.A] = v
			}

		case OpReturn:
			if in.A < 0 {
				return None, nil
			}
			return f.registers[in.A], nil

		case OpGetIter:
			it, err := NewIterator(vm, f.registers[in.B])
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			f.registers[in.A] = ObjectValue(it)
		case OpIterNext:
			it := f.registers[in.B].obj.(*IteratorObj)
			v, ok, err := it.Next(vm)
			if err != nil {
				return Value{}, vm.wrapTrace(err)
			}
			if !ok {
				f.pc = in.C
				continue
			}
			f.registers[in.A] = v

		case OpHalt:
			return None, nil

		default:
			return Value{}, fmt.Errorf("unimplemented opcode %s", in.Op)
		}
	}
}

func (vm *VM) callValue(callee Value, self Value, args []Value) (Value, error) {
	if callee.kind != KindObject {
		return Value{}, vm.wrapTrace(typeError(vm.Heap, nil, "%s is not callable", callee.TypeName()))
	}
	fn, ok := callee.obj.(*FunctionObj)
	if !ok {
		return Value{}, vm.wrapTrace(typeError(vm.Heap, nil, "%s is not callable", callee.TypeName()))
	}
	// Bound methods (produced by GET_PROP auto-binding, see ops.go's
	// getProp) already carry their self; Call's FuncBound case unwraps it.
	// Any other function receives the calling frame's self.
	return vm.Call(fn, self, args)
}

func (vm *VM) wrapTrace(err error) error {
	if re, ok := err.(*RaisedError); ok {
		if len(re.Obj.traceback) == 0 {
			re.Obj.traceback = vm.traceback()
		}
	}
	return err
}
