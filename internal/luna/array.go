package luna

import "fmt"

// ArrayObj is a growable Value slice (spec.md's Array module). The two
// historical bugs spec.md section 9 calls out are fixed here rather than
// reproduced: Pop predecrements before reading (no off-by-one past the
// end), and Insert uses a signed bounds check instead of an unsigned one
// that wrapped negative indices into huge positive ones.
type ArrayObj struct {
	Header
	elements []Value
}

var arrayType = newTypeDescriptor("array")

func init() {
	arrayType.Visit = func(o Object, v *Visitor) {
		a := o.(*ArrayObj)
		for _, e := range a.elements {
			v.MarkValue(e)
		}
	}
	arrayType.ToString = func(o Object) string {
		a := o.(*ArrayObj)
		s := "["
		for i, e := range a.elements {
			if i > 0 {
				s += ", "
			}
			s += ToDisplayString(e)
		}
		return s + "]"
	}
}

func NewArray(h *Heap, elems []Value) *ArrayObj {
	a := allocCell(h, ClassArray,
		func() *ArrayObj { o := &ArrayObj{}; o.typ = arrayType; return o },
		func(o *ArrayObj) { o.elements = nil },
	)
	a.elements = append(a.elements[:0], elems...)
	return a
}

func (a *ArrayObj) Len() int { return len(a.elements) }

func (a *ArrayObj) Get(i int64) (Value, error) {
	if i < 0 || i >= int64(len(a.elements)) {
		return Value{}, fmt.Errorf("array index %d out of bounds (length %d)", i, len(a.elements))
	}
	return a.elements[i], nil
}

func (a *ArrayObj) Set(i int64, v Value) error {
	if i < 0 || i >= int64(len(a.elements)) {
		return fmt.Errorf("array index %d out of bounds (length %d)", i, len(a.elements))
	}
	a.elements[i] = v
	return nil
}

func (a *ArrayObj) Push(v Value) { a.elements = append(a.elements, v) }

// Pop removes and returns the last element, or None if the array is empty
// (spec.md section 8's boundary behavior). Fixed bug (spec.md section 9):
// the predecrement happens before the read, so popping a one-element
// array returns that element rather than the byte past the backing slice.
func (a *ArrayObj) Pop() Value {
	if len(a.elements) == 0 {
		return None
	}
	n := len(a.elements) - 1
	v := a.elements[n]
	a.elements = a.elements[:n]
	return v
}

// Insert shifts elements right of a signed index. Fixed bug (spec.md
// section 9): the original computed the shift count as an unsigned
// subtraction that wrapped around for a negative index; this checks
// bounds on the signed index first. An index equal to the array's length
// is rejected as out-of-bounds, matching the source (spec.md section 8's
// boundary behaviors, not one of the bugs section 9 calls out for fixing).
func (a *ArrayObj) Insert(i int64, v Value) error {
	if i < 0 || i >= int64(len(a.elements)) {
		return fmt.Errorf("array insert index %d out of bounds (length %d)", i, len(a.elements))
	}
	a.elements = append(a.elements, Value{})
	copy(a.elements[i+1:], a.elements[i:])
	a.elements[i] = v
	return nil
}

func (a *ArrayObj) Remove(i int64) error {
	if i < 0 || i >= int64(len(a.elements)) {
		return fmt.Errorf("array remove index %d out of bounds (length %d)", i, len(a.elements))
	}
	a.elements = append(a.elements[:i], a.elements[i+1:]...)
	return nil
}

// Elements exposes the backing slice read-only, used by the iterator
// protocol and by `process.argv`-style builtins that need a snapshot.
func (a *ArrayObj) Elements() []Value { return a.elements }

// arrayMethod backs dot-notation calls on arrays (`a.push(x)`, `a.pop()`,
// `a.insert(i, x)`, `a.remove(i)`): ops.go's getProp auto-binds whichever
// of these is named, the same way it auto-binds a user function read off a
// PlainObject's property map (spec.md section 4.4), giving arrays method
// syntax without making ArrayObj a PropertyHolder over a real map.
func arrayMethod(h *Heap, name string) *FunctionObj {
	switch name {
	case "push":
		return NewNativeFunction(h, "push", func(vm *VM, self Value, args []Value) (Value, error) {
			arr := self.obj.(*ArrayObj)
			for _, a := range args {
				arr.Push(a)
			}
			return None, nil
		})
	case "pop":
		return NewNativeFunction(h, "pop", func(vm *VM, self Value, args []Value) (Value, error) {
			return self.obj.(*ArrayObj).Pop(), nil
		})
	case "insert":
		return NewNativeFunction(h, "insert", func(vm *VM, self Value, args []Value) (Value, error) {
			if len(args) != 2 || args[0].Kind() != KindInt {
				return Value{}, typeError(vm.Heap, nil, "insert(index, value) requires an int index")
			}
			if err := self.obj.(*ArrayObj).Insert(args[0].Int(), args[1]); err != nil {
				return Value{}, indexError(vm.Heap, nil, "%s", err)
			}
			return None, nil
		})
	case "remove":
		return NewNativeFunction(h, "remove", func(vm *VM, self Value, args []Value) (Value, error) {
			if len(args) != 1 || args[0].Kind() != KindInt {
				return Value{}, typeError(vm.Heap, nil, "remove(index) requires an int index")
			}
			if err := self.obj.(*ArrayObj).Remove(args[0].Int()); err != nil {
				return Value{}, indexError(vm.Heap, nil, "%s", err)
			}
			return None, nil
		})
	case "iterator":
		// Backs `for x in someArray` (spec.md section 4.7): GET_ITER calls
		// this, then ITER_NEXT repeatedly calls the returned object's next().
		return NewNativeFunction(h, "iterator", func(vm *VM, self Value, args []Value) (Value, error) {
			arr := self.obj.(*ArrayObj)
			idx := 0
			return ObjectValue(newNativeIteratorObject(vm.Heap, vm.Interner, func() (Value, bool) {
				if idx >= arr.Len() {
					return Value{}, false
				}
				v, _ := arr.Get(int64(idx))
				idx++
				return v, true
			})), nil
		})
	default:
		return nil
	}
}
