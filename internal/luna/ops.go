package luna

// arith implements the four-function binary ops plus modulo. spec.md
// section 9 calls out a historical division bug where Divi silently
// multiplied instead of dividing; Div here actually divides, truncating
// toward zero the way Go's own integer division already does.
func (vm *VM) arith(op Opcode, l, r Value) (Value, error) {
	if op == OpAdd {
		if ls, ok := l.obj.(*StringObj); ok && l.kind == KindObject {
			rs, ok2 := r.obj.(*StringObj)
			if !ok2 {
				return Value{}, typeError(vm.Heap, nil, "cannot add %s to string", r.TypeName())
			}
			return ObjectValue(NewRope(vm.Heap, ls, rs)), nil
		}
	}
	if l.kind != KindInt || r.kind != KindInt {
		return Value{}, typeError(vm.Heap, nil, "unsupported operand types for %s: %s and %s", op, l.TypeName(), r.TypeName())
	}
	a, b := l.num, r.num
	switch op {
	case OpAdd:
		return IntValue(a + b), nil
	case OpSub:
		return IntValue(a - b), nil
	case OpMul:
		return IntValue(a * b), nil
	case OpDiv:
		if b == 0 {
			return Value{}, divisionByZero(vm.Heap, nil, "Division by zero")
		}
		return IntValue(a / b), nil
	case OpMod:
		if b == 0 {
			return Value{}, divisionByZero(vm.Heap, nil, "Modulo by zero")
		}
		return IntValue(a % b), nil
	default:
		return Value{}, typeError(vm.Heap, nil, "unsupported operator %s", op)
	}
}

func (vm *VM) compare(op Opcode, l, r Value) (Value, error) {
	if l.kind == KindInt && r.kind == KindInt {
		switch op {
		case OpLt:
			return BoolValue(l.num < r.num), nil
		case OpLe:
			return BoolValue(l.num <= r.num), nil
		case OpGt:
			return BoolValue(l.num > r.num), nil
		case OpGe:
			return BoolValue(l.num >= r.num), nil
		}
	}
	if ls, ok := l.obj.(*StringObj); ok && l.kind == KindObject {
		if rs, ok2 := r.obj.(*StringObj); ok2 {
			a, b := ls.Flatten().flat, rs.Flatten().flat
			switch op {
			case OpLt:
				return BoolValue(a < b), nil
			case OpLe:
				return BoolValue(a <= b), nil
			case OpGt:
				return BoolValue(a > b), nil
			case OpGe:
				return BoolValue(a >= b), nil
			}
		}
	}
	return Value{}, typeError(vm.Heap, nil, "unsupported comparison between %s and %s", l.TypeName(), r.TypeName())
}

// getProp implements GET_PROP (spec.md section 5). A function value read
// off an object auto-binds self to that object, so `obj.method` used
// either as `obj.method()` or stored first and called later behaves the
// same way (spec.md section 4.4).
func (vm *VM) getProp(v Value, name *StringObj) (Value, error) {
	if v.kind != KindObject || v.obj == nil {
		return Value{}, typeError(vm.Heap, nil, "cannot read property '%s' of %s", name, v.TypeName())
	}
	if _, ok := v.obj.(*ArrayObj); ok {
		if fn := arrayMethod(vm.Heap, name.String()); fn != nil {
			return ObjectValue(Bind(vm.Heap, fn, v)), nil
		}
		return Value{}, typeError(vm.Heap, nil, "array has no property '%s'", name)
	}
	if _, ok := v.obj.(*HashmapObj); ok {
		if fn := hashmapMethod(vm.Heap, name.String()); fn != nil {
			return ObjectValue(Bind(vm.Heap, fn, v)), nil
		}
		return Value{}, typeError(vm.Heap, nil, "hashmap has no property '%s'", name)
	}
	ph, ok := v.obj.(PropertyHolder)
	if !ok {
		return Value{}, typeError(vm.Heap, nil, "%s has no properties", v.TypeName())
	}
	val, ok := ph.Properties().Get(name)
	if !ok {
		return Value{}, typeError(vm.Heap, nil, "object has no property '%s'", name)
	}
	if fn, ok := val.obj.(*FunctionObj); ok && val.kind == KindObject && fn.kind != FuncBound {
		return ObjectValue(Bind(vm.Heap, fn, v)), nil
	}
	return val, nil
}

func (vm *VM) setProp(v Value, name *StringObj, val Value) error {
	if v.kind != KindObject || v.obj == nil {
		return typeError(vm.Heap, nil, "cannot set property '%s' of %s", name, v.TypeName())
	}
	ph, ok := v.obj.(PropertyHolder)
	if !ok {
		return typeError(vm.Heap, nil, "%s has no properties", v.TypeName())
	}
	ph.Properties().Set(name, val)
	return nil
}

// getSubscr implements GET_SUBSCR: arrays take an integer index, hashmaps
// take any key, strings take an integer index and
// return a one-character substring.
func (vm *VM) getSubscr(obj, idx Value) (Value, error) {
	if obj.kind != KindObject {
		return Value{}, typeError(vm.Heap, nil, "%s is not subscriptable", obj.TypeName())
	}
	switch o := obj.obj.(type) {
	case *ArrayObj:
		if idx.kind != KindInt {
			return Value{}, typeError(vm.Heap, nil, "array index must be int, got %s", idx.TypeName())
		}
		v, err := o.Get(idx.num)
		if err != nil {
			return Value{}, indexError(vm.Heap, nil, "%s", err)
		}
		return v, nil
	case *HashmapObj:
		v, ok := o.Get(idx)
		if !ok {
			return Value{}, raise(vm.Heap, ErrIndexError, nil, "key %s not found", ToDisplayString(idx))
		}
		return v, nil
	case *StringObj:
		if idx.kind != KindInt {
			return Value{}, typeError(vm.Heap, nil, "string index must be int, got %s", idx.TypeName())
		}
		flat := o.Flatten().flat
		if idx.num < 0 || idx.num >= int64(len(flat)) {
			return Value{}, indexError(vm.Heap, nil, "string index %d out of bounds (length %d)", idx.num, len(flat))
		}
		return ObjectValue(vm.Interner.Intern(string(flat[idx.num]))), nil
	default:
		return Value{}, typeError(vm.Heap, nil, "%s is not subscriptable", obj.TypeName())
	}
}

// setSubscr implements SET_SUBSCR: arrays take an integer index with
// bounds checking, hashmaps accept any key.
func (vm *VM) setSubscr(obj, idx, val Value) error {
	if obj.kind != KindObject {
		return typeError(vm.Heap, nil, "%s is not subscriptable", obj.TypeName())
	}
	switch o := obj.obj.(type) {
	case *ArrayObj:
		if idx.kind != KindInt {
			return typeError(vm.Heap, nil, "array index must be int, got %s", idx.TypeName())
		}
		if err := o.Set(idx.num, val); err != nil {
			return indexError(vm.Heap, nil, "%s", err)
		}
		return nil
	case *HashmapObj:
		o.Set(idx, val)
		return nil
	default:
		return typeError(vm.Heap, nil, "%s does not support item assignment", obj.TypeName())
	}
}
