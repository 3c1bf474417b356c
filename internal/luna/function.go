package luna

// FunctionKind distinguishes the three call targets the VM's CALL opcode
// can dispatch to (spec.md section 5's call protocol): a user function
// compiled to bytecode, a Go-native builtin, or a bound method produced by
// reading a property off an object (spec.md section 4.4).
type FunctionKind uint8

const (
	FuncUser FunctionKind = iota
	FuncNative
	FuncBound
)

// NativeFn is the signature every builtin in internal/builtins implements.
type NativeFn func(vm *VM, self Value, args []Value) (Value, error)

type FunctionObj struct {
	Header
	kind FunctionKind
	name string

	// FuncUser
	exec       *Executable
	module     *ModuleObj
	paramCount int
	variadic   bool

	// FuncNative
	native NativeFn

	// FuncBound
	target    *FunctionObj
	boundSelf Value
}

var functionType = newTypeDescriptor("function")

func init() {
	functionType.Visit = func(o Object, v *Visitor) {
		f := o.(*FunctionObj)
		if f.module != nil {
			v.Mark(f.module)
		}
		if f.target != nil {
			v.Mark(f.target)
		}
		v.MarkValue(f.boundSelf)
	}
	functionType.ToString = func(o Object) string {
		f := o.(*FunctionObj)
		if f.name == "" {
			return "<function>"
		}
		return "<function " + f.name + ">"
	}
}

func NewUserFunction(h *Heap, name string, exec *Executable, mod *ModuleObj, paramCount int, variadic bool) *FunctionObj {
	f := allocCell(h, ClassFunction,
		func() *FunctionObj { o := &FunctionObj{}; o.typ = functionType; return o },
		resetFunction,
	)
	f.kind = FuncUser
	f.name = name
	f.exec = exec
	f.module = mod
	f.paramCount = paramCount
	f.variadic = variadic
	return f
}

func NewNativeFunction(h *Heap, name string, fn NativeFn) *FunctionObj {
	f := allocCell(h, ClassFunction,
		func() *FunctionObj { o := &FunctionObj{}; o.typ = functionType; return o },
		resetFunction,
	)
	f.kind = FuncNative
	f.name = name
	f.native = fn
	return f
}

// Bind produces a bound-method value (spec.md section 4.4: reading
// `obj.method` where method resolves to a function captures obj as self).
func Bind(h *Heap, target *FunctionObj, self Value) *FunctionObj {
	f := allocCell(h, ClassFunction,
		func() *FunctionObj { o := &FunctionObj{}; o.typ = functionType; return o },
		resetFunction,
	)
	f.kind = FuncBound
	f.name = target.name
	f.target = target
	f.boundSelf = self
	return f
}

func resetFunction(f *FunctionObj) {
	f.exec, f.module, f.native, f.target = nil, nil, nil, nil
	f.boundSelf = Value{}
	f.paramCount = 0
	f.variadic = false
}

func (f *FunctionObj) Kind() FunctionKind { return f.kind }
func (f *FunctionObj) Name() string       { return f.name }
func (f *FunctionObj) ParamCount() int {
	if f.kind == FuncBound {
		return f.target.ParamCount()
	}
	return f.paramCount
}
func (f *FunctionObj) IsVariadic() bool {
	if f.kind == FuncBound {
		return f.target.IsVariadic()
	}
	return f.variadic
}
