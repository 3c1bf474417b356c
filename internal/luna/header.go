package luna

// Object is implemented by every heap-allocated value. The header() method
// is unexported so only types declared in this package can participate in
// the heap/GC machinery (spec.md section 3: "every heap value begins with
// a common header").
type Object interface {
	header() *Header
}

// Header is embedded as the first field of every heap object. It carries
// the bookkeeping the allocator and collector need and nothing domain
// specific (spec.md section 3's "Object header" subsection).
type Header struct {
	next   Object // free-list linkage when alive == false
	typ    *TypeDescriptor
	hash   uint64 // cached 64-bit hash; content hash for strings, identity hash otherwise
	alive  bool
	marked bool
}

func (h *Header) header() *Header { return h }

// Type returns the object's type descriptor, whose Name is what error
// messages and TypeName report.
func (h *Header) Type() *TypeDescriptor { return h.typ }

// TypeDescriptor is the per-kind vtable every object's header points to
// (spec.md section 3's "Type descriptor" subsection). There is exactly one
// TypeDescriptor instance per built-in kind. Descriptors embed a Header but
// are package-level values built directly, never allocated from a Heap, so
// the collector neither tracks nor sweeps them.
type TypeDescriptor struct {
	Header
	Name string

	// Finalize runs once, during sweep, the first time a cell becomes
	// unreachable. nil means no cleanup is needed.
	Finalize func(Object)

	// ToString renders the object for `print`/string conversion.
	ToString func(Object) string

	// Visit is the collector's trace hook: it must call the supplied
	// visitor's Mark/MarkValue for every Value or Object the receiver
	// holds a reference through. nil means the object holds no further
	// references (e.g. a flat string).
	Visit func(Object, *Visitor)
}

func newTypeDescriptor(name string) *TypeDescriptor {
	td := &TypeDescriptor{Name: name}
	td.typ = typeDescriptorType
	td.alive = true
	return td
}

// typeDescriptorType describes TypeDescriptor objects themselves, closing
// the loop so the root type descriptor has a non-nil typ too. Declaring it
// as a var initializer (rather than inside a func init) lets the Go
// compiler's dependency-ordered initialization guarantee it runs before
// every other package-level *Type var, each of which calls
// newTypeDescriptor and therefore depends on this one.
var typeDescriptorType = func() *TypeDescriptor {
	td := &TypeDescriptor{Name: "type"}
	td.typ = td
	td.alive = true
	return td
}()
