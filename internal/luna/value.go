package luna

import "fmt"

// Kind tags a Value's variant. See spec.md section 3: None, Undefined,
// Bool, Int, and Object share one small tagged struct rather than an
// interface, so passing values around the dispatch loop never allocates.
type Kind uint8

const (
	KindNone Kind = iota
	KindUndefined
	KindBool
	KindInt
	KindObject
)

// Value is the VM's tagged union. Bool and Int share the num field (spec.md
// section 3: "Integers and booleans share an i64 payload"); Object values
// carry a heap pointer through the Object interface.
type Value struct {
	kind Kind
	num  int64
	obj  Object
}

var (
	None      = Value{kind: KindNone}
	Undefined = Value{kind: KindUndefined}
	True      = Value{kind: KindBool, num: 1}
	False     = Value{kind: KindBool, num: 0}
)

func IntValue(n int64) Value  { return Value{kind: KindInt, num: n} }
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}
func ObjectValue(o Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsObject() bool { return v.kind == KindObject }

// Int returns the raw integer payload without checking the Kind; callers
// must check Kind first (the VM only calls this after an opcode has already
// verified the operand type).
func (v Value) Int() int64 { return v.num }
func (v Value) Bool() bool { return v.num != 0 }
func (v Value) Object() Object { return v.obj }

// TypeName returns the display name used in type-error messages (spec.md
// section 3: "raises a type error with a message naming both type names").
func (v Value) TypeName() string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindObject:
		if v.obj == nil {
			return "object"
		}
		return v.obj.header().typ.Name
	default:
		return "unknown"
	}
}

// Truthy implements spec.md section 4.3: None, false, 0, "", and [] are
// falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone, KindUndefined:
		return false
	case KindBool, KindInt:
		return v.num != 0
	case KindObject:
		switch o := v.obj.(type) {
		case *StringObj:
			return o.Len() != 0
		case *ArrayObj:
			return len(o.elements) != 0
		default:
			return true
		}
	default:
		return false
	}
}

// Equal implements spec.md section 4.3's `==`: same tag and payload for
// primitives, pointer identity for interned strings (ropes flattened first),
// and pointer identity for every other object: arrays and objects are not
// compared element by element.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone, KindUndefined:
		return true
	case KindBool, KindInt:
		return a.num == b.num
	case KindObject:
		if sa, ok := a.obj.(*StringObj); ok {
			if sb, ok := b.obj.(*StringObj); ok {
				// Flatten both before comparing so pointer identity holds
				// even if one side is still a rope (spec.md section 4.2:
				// "a rope's length... re-interns"; flatten collapses any
				// rope to its interned flat representative).
				return sa.Flatten() == sb.Flatten()
			}
			return false
		}
		return a.obj == b.obj
	default:
		return false
	}
}

// ToDisplayString renders a value the way `print` does. Object kinds defer
// to their type descriptor's ToString hook.
func ToDisplayString(v Value) string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindUndefined:
		return "undefined"
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindObject:
		if v.obj == nil {
			return "none"
		}
		td := v.obj.header().typ
		if td != nil && td.ToString != nil {
			return td.ToString(v.obj)
		}
		return fmt.Sprintf("<%s>", v.TypeName())
	default:
		return ""
	}
}
