package luna

// IteratorObj backs the GET_ITER/ITER_NEXT opcode pair (spec.md section
// 4.7's iteration protocol): `iterable.iterator()` is called once, up
// front, and the returned object's `next` method is called on every
// ITER_NEXT rather than re-resolving `iterator`/`next` each time.
type IteratorObj struct {
	Header
	iterator Value
	next     *FunctionObj
}

var iteratorType = newTypeDescriptor("iterator")

func init() {
	iteratorType.Visit = func(o Object, v *Visitor) {
		it := o.(*IteratorObj)
		v.MarkValue(it.iterator)
		if it.next != nil {
			v.Mark(it.next)
		}
	}
	iteratorType.ToString = func(o Object) string { return "<iterator>" }
}

// NewIterator implements GET_ITER: it requires iterable to expose an
// `iterator` property whose value is a function, calls it, and requires
// the result to expose a `next` function (spec.md section 4.7). Any
// object implementing that protocol is iterable, not just the built-in
// array/hashmap types, since resolution goes through the ordinary
// property-lookup path (ops.go's getProp) rather than a Go type switch.
func NewIterator(vm *VM, iterable Value) (*IteratorObj, error) {
	iterFnName := vm.Interner.Intern("iterator")
	iterFnVal, err := vm.getProp(iterable, iterFnName)
	if err != nil {
		return nil, err
	}
	iterFn, ok := iterFnVal.obj.(*FunctionObj)
	if iterFnVal.kind != KindObject || !ok {
		return nil, typeError(vm.Heap, nil, "%s is not iterable", iterable.TypeName())
	}
	iterObj, err := vm.Call(iterFn, Value{}, nil)
	if err != nil {
		return nil, err
	}

	nextName := vm.Interner.Intern("next")
	nextVal, err := vm.getProp(iterObj, nextName)
	if err != nil {
		return nil, err
	}
	nextFn, ok := nextVal.obj.(*FunctionObj)
	if nextVal.kind != KindObject || !ok {
		return nil, typeError(vm.Heap, nil, "iterator has no next() method")
	}

	it := allocCell(vm.Heap, ClassIterator,
		func() *IteratorObj { o := &IteratorObj{}; o.typ = iteratorType; return o },
		func(o *IteratorObj) { o.iterator, o.next = Value{}, nil },
	)
	it.iterator = iterObj
	it.next = nextFn
	return it, nil
}

// Next implements ITER_NEXT: call next(), consult the returned object's
// `done` property as an integer-truthy value, and return its `value`
// property when not done (spec.md section 4.7).
func (it *IteratorObj) Next(vm *VM) (Value, bool, error) {
	result, err := vm.Call(it.next, Value{}, nil)
	if err != nil {
		return Value{}, false, err
	}
	doneVal, err := vm.getProp(result, vm.Interner.Intern("done"))
	if err != nil {
		return Value{}, false, err
	}
	if doneVal.Truthy() {
		return Value{}, false, nil
	}
	val, err := vm.getProp(result, vm.Interner.Intern("value"))
	if err != nil {
		return Value{}, false, err
	}
	return val, true, nil
}

// newNativeIteratorObject builds a plain object implementing the `next`
// half of the iteration protocol out of a Go closure, shared by every
// built-in collection's `iterator()` method (array.go, hashmap.go).
func newNativeIteratorObject(h *Heap, in *Interner, step func() (Value, bool)) *PlainObject {
	o := NewPlainObject(h)
	o.Set(in.Intern("next"), ObjectValue(NewNativeFunction(h, "next", func(vm *VM, self Value, args []Value) (Value, error) {
		result := NewPlainObject(vm.Heap)
		v, ok := step()
		result.Set(vm.Interner.Intern("done"), BoolValue(!ok))
		if ok {
			result.Set(vm.Interner.Intern("value"), v)
		} else {
			result.Set(vm.Interner.Intern("value"), None)
		}
		return ObjectValue(result), nil
	})))
	return o
}
