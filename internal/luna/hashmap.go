package luna

// HashmapObj is the arbitrary-key map built by the `Hashmap` builtin; it has
// no literal syntax, since `{}` builds a PlainObject (SPEC_FULL.md's supplement
// grounded in original_source/src/runtime/objects/hashmap.c, which the
// distilled spec.md dropped in favor of only specifying the interned
// property map). It reuses the same Robin Hood table as property maps, but
// keyed by Value rather than by interned-string identity, since hashmap
// keys are ordinary language values rather than property names.
type HashmapObj struct {
	Header
	table *Table[Value]
}

var hashmapType = newTypeDescriptor("hashmap")

func init() {
	hashmapType.Visit = func(o Object, v *Visitor) {
		hm := o.(*HashmapObj)
		hm.table.ForEach(func(k Value, val Value) {
			v.MarkValue(k)
			v.MarkValue(val)
		})
	}
	hashmapType.ToString = func(o Object) string {
		hm := o.(*HashmapObj)
		s := "{"
		first := true
		hm.table.ForEach(func(k, val Value) {
			if !first {
				s += ", "
			}
			first = false
			s += ToDisplayString(k) + ": " + ToDisplayString(val)
		})
		return s + "}"
	}
}

func NewHashmap(h *Heap) *HashmapObj {
	return allocCell(h, ClassHashmap,
		func() *HashmapObj {
			o := &HashmapObj{table: newTable[Value](hashValue)}
			o.typ = hashmapType
			return o
		},
		func(o *HashmapObj) { o.table = newTable[Value](hashValue) },
	)
}

func (hm *HashmapObj) Get(key Value) (Value, bool) { return hm.table.Get(key) }
func (hm *HashmapObj) Set(key Value, v Value)       { hm.table.Set(key, v) }
func (hm *HashmapObj) Delete(key Value) bool        { return hm.table.Delete(key) }
func (hm *HashmapObj) Len() int                     { return hm.table.Len() }
func (hm *HashmapObj) Keys() []Value                { return hm.table.Keys() }

// hashmapMethod backs dot-notation calls on hashmaps, mirroring
// arrayMethod: ops.go's getProp auto-binds whichever of these is named.
func hashmapMethod(h *Heap, name string) *FunctionObj {
	switch name {
	case "iterator":
		// Backs `for k in someHashmap` (spec.md section 4.7): iterates keys,
		// the same way a loop body would walk a property map's own keys.
		return NewNativeFunction(h, "iterator", func(vm *VM, self Value, args []Value) (Value, error) {
			keys := self.obj.(*HashmapObj).Keys()
			idx := 0
			return ObjectValue(newNativeIteratorObject(vm.Heap, vm.Interner, func() (Value, bool) {
				if idx >= len(keys) {
					return Value{}, false
				}
				v := keys[idx]
				idx++
				return v, true
			})), nil
		})
	default:
		return nil
	}
}
