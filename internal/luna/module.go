package luna

// ModuleObj wraps one compiled file: its executable, its own global
// property map, and the cached value its top-level code returned the first
// time it was imported (SPEC_FULL.md's `import` design, grounded in
// original_source's module-cache behavior which spec.md's distillation
// left implicit). Re-importing the same path returns the cached value
// without re-running top-level code, matching the original's
// import-once semantics.
type ModuleObj struct {
	Header
	path    string
	exec    *Executable
	globals *PropertyMap
	result  Value
	loaded  bool
}

var moduleType = newTypeDescriptor("module")

func init() {
	moduleType.Visit = func(o Object, v *Visitor) {
		m := o.(*ModuleObj)
		if m.exec != nil {
			v.Mark(m.exec)
		}
		m.globals.ForEach(func(_ *StringObj, val Value) { v.MarkValue(val) })
		v.MarkValue(m.result)
	}
	moduleType.ToString = func(o Object) string {
		return "<module " + o.(*ModuleObj).path + ">"
	}
}

func NewModule(h *Heap, path string, exec *Executable) *ModuleObj {
	m := allocCell(h, ClassModule,
		func() *ModuleObj { o := &ModuleObj{}; o.typ = moduleType; return o },
		func(o *ModuleObj) { o.exec, o.result, o.loaded = nil, Value{}, false },
	)
	m.path = path
	m.exec = exec
	m.globals = newPropertyMap()
	return m
}

func (m *ModuleObj) Path() string        { return m.path }
func (m *ModuleObj) Globals() *PropertyMap { return m.globals }
func (m *ModuleObj) Loaded() bool        { return m.loaded }
func (m *ModuleObj) Result() Value       { return m.result }
func (m *ModuleObj) SetResult(v Value)   { m.result = v; m.loaded = true }
