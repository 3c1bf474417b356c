package luna

// PropertyMap backs object properties and named globals: a Table keyed by
// interned string pointer identity (spec.md section 3's "Property map" —
// "Keys are identity-compared (pointer equality), which is safe because
// every key is an interned string").
type PropertyMap = Table[*StringObj]

func newPropertyMap() *PropertyMap {
	return newTable[*StringObj](func(s *StringObj) uint64 { return s.header().hash })
}

// PropertyHolder is implemented by every object variant that carries an
// inline property map (spec.md: "embedded inline in the plain object
// variant"). Specialized variants (string, array, function, executable)
// do not implement this.
type PropertyHolder interface {
	Properties() *PropertyMap
}

func visitPropertyHolder(o Object, v *Visitor) {
	ph, ok := o.(PropertyHolder)
	if !ok {
		return
	}
	ph.Properties().ForEach(func(_ *StringObj, val Value) {
		v.MarkValue(val)
	})
}

// PlainObject is the bare "object" kind: an inline property map and
// nothing else. `{...}` object literals build one, as does the `process`
// builtin (spec.md section 3's base object variant).
type PlainObject struct {
	Header
	props *PropertyMap
}

var plainObjectType = newTypeDescriptor("object")

func init() {
	plainObjectType.Visit = visitPropertyHolder
	plainObjectType.ToString = func(o Object) string { return "<object>" }
}

func NewPlainObject(h *Heap) *PlainObject {
	return allocCell(h, ClassPlainObject,
		func() *PlainObject {
			o := &PlainObject{props: newPropertyMap()}
			o.typ = plainObjectType
			return o
		},
		func(o *PlainObject) { o.props = newPropertyMap() },
	)
}

func (o *PlainObject) Properties() *PropertyMap { return o.props }

func (o *PlainObject) Get(key *StringObj) (Value, bool) { return o.props.Get(key) }
func (o *PlainObject) Set(key *StringObj, v Value)      { o.props.Set(key, v) }
