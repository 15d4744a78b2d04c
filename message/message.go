// Package message implements the immutable, reference-counted typed record
// that producers post to ports and receivers deliver to handlers.
//
// A Message carries an integer "what" identifier, an optional keyed map of
// tagged scalar attributes, and an optional single unkeyed "data" value. It
// is immutable once the first Send-equivalent operation (handing it to a
// Port) observes it; callers are expected to finish configuring a Message
// with the Set* methods before posting it.
package message

import (
	"sync"
	"sync/atomic"

	"github.com/irisconc/iris/internal/debug"
	"github.com/irisconc/iris/pool"
)

// Kind tags the type of a stored attribute value.
type Kind uint8

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBool
	KindPointer // destructible pointer: an any value plus a destructor func
)

// attr is one stored keyed value.
type attr struct {
	kind    Kind
	i       int64   // integer kinds, bool (0/1)
	f       float64 // float kinds
	s       string  // string kind
	p       any     // pointer kind payload
	destroy func(any)
}

// Message is an immutable, reference-counted typed record.
//
// The zero Message is not usable; construct with New or NewFull. Message is
// safe for concurrent Ref/Unref from multiple goroutines; mutating Set*
// calls must happen only before the Message is shared across goroutines
// (i.e. before the first Post), matching spec's "immutable after first
// send" invariant.
type Message struct {
	what int32

	mu    sync.Mutex
	attrs map[string]attr
	data  any

	refs atomic.Int32
}

// pooled recycles finalized Messages through a dynamic (sync.Pool-backed)
// pool rather than letting every New/Unref cycle churn the allocator — the
// high-throughput fan-out scenarios this package exists for (spec.md §8's
// million-message benchmark) make a Message's allocation the hottest
// object in the system.
var pooled = pool.NewDynamic(func() interface{} { return &Message{} })

// New creates a Message with the given "what" identifier and a refcount of
// 1, reusing a finalized Message from the pool when one is available.
func New(what int32) *Message {
	m := pooled.Get().(*Message)
	m.what = what
	m.refs.Store(1)
	debug.Logf(debug.SectionMessage, "message.New what=%d", what)
	return m
}

// Attr is one (name, typed value) pair passed to NewFull.
type Attr struct {
	Name string
	Kind Kind
	I    int64
	F    float64
	S    string
	P    any
	Destroy func(any)
}

// NewFull creates a Message pre-populated with the given attributes.
func NewFull(what int32, attrs ...Attr) *Message {
	m := New(what)
	for _, a := range attrs {
		m.attrs = ensureMap(m.attrs)
		m.attrs[a.Name] = attr{kind: a.Kind, i: a.I, f: a.F, s: a.S, p: a.P, destroy: a.Destroy}
	}
	return m
}

func ensureMap(m map[string]attr) map[string]attr {
	if m == nil {
		return make(map[string]attr)
	}
	return m
}

// What returns the message's integer identifier.
func (m *Message) What() int32 { return m.what }

// Ref increments the reference count and returns m for chaining.
func (m *Message) Ref() *Message {
	m.refs.Add(1)
	return m
}

// Unref decrements the reference count. When it reaches zero, destructible
// pointer attributes have their destructors invoked exactly once and the
// Message's contents are released.
func (m *Message) Unref() {
	if m.refs.Add(-1) == 0 {
		m.mu.Lock()
		for name, a := range m.attrs {
			if a.kind == KindPointer && a.destroy != nil {
				a.destroy(a.p)
			}
			delete(m.attrs, name)
		}
		m.data = nil
		m.mu.Unlock()
		debug.Logf(debug.SectionMessage, "message.Unref what=%d finalized", m.what)
		pooled.Put(m)
	}
}

// RefCount returns the current reference count; intended for tests.
func (m *Message) RefCount() int32 { return m.refs.Load() }

// Contains reports whether the named attribute is present.
func (m *Message) Contains(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attrs[name]
	return ok
}

// CountNames returns the number of keyed attributes.
func (m *Message) CountNames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attrs)
}

// IsEmpty reports whether the message has no keyed attributes and no data value.
func (m *Message) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attrs) == 0 && m.data == nil
}

// SetData sets the single unkeyed data value.
func (m *Message) SetData(v any) {
	m.mu.Lock()
	m.data = v
	m.mu.Unlock()
}

// Data returns the single unkeyed data value, if any.
func (m *Message) Data() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, m.data != nil
}

func (m *Message) set(name string, a attr) {
	m.mu.Lock()
	m.attrs = ensureMap(m.attrs)
	m.attrs[name] = a
	m.mu.Unlock()
}

func (m *Message) get(name string, want Kind) (attr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attrs[name]
	if !ok || a.kind != want {
		return attr{}, false
	}
	return a, true
}

// SetInt64 stores a signed 64-bit integer attribute (and the Set/Get pairs
// below follow the same shape for each scalar width named in spec.md §6).
func (m *Message) SetInt64(name string, v int64) { m.set(name, attr{kind: KindInt64, i: v}) }

// GetInt64 retrieves a signed 64-bit integer attribute.
func (m *Message) GetInt64(name string) (int64, bool) {
	a, ok := m.get(name, KindInt64)
	return a.i, ok
}

func (m *Message) SetInt32(name string, v int32) { m.set(name, attr{kind: KindInt32, i: int64(v)}) }
func (m *Message) GetInt32(name string) (int32, bool) {
	a, ok := m.get(name, KindInt32)
	return int32(a.i), ok
}

func (m *Message) SetInt16(name string, v int16) { m.set(name, attr{kind: KindInt16, i: int64(v)}) }
func (m *Message) GetInt16(name string) (int16, bool) {
	a, ok := m.get(name, KindInt16)
	return int16(a.i), ok
}

func (m *Message) SetInt8(name string, v int8) { m.set(name, attr{kind: KindInt8, i: int64(v)}) }
func (m *Message) GetInt8(name string) (int8, bool) {
	a, ok := m.get(name, KindInt8)
	return int8(a.i), ok
}

func (m *Message) SetUint64(name string, v uint64) {
	m.set(name, attr{kind: KindUint64, i: int64(v)})
}
func (m *Message) GetUint64(name string) (uint64, bool) {
	a, ok := m.get(name, KindUint64)
	return uint64(a.i), ok
}

func (m *Message) SetUint32(name string, v uint32) {
	m.set(name, attr{kind: KindUint32, i: int64(v)})
}
func (m *Message) GetUint32(name string) (uint32, bool) {
	a, ok := m.get(name, KindUint32)
	return uint32(a.i), ok
}

func (m *Message) SetUint16(name string, v uint16) {
	m.set(name, attr{kind: KindUint16, i: int64(v)})
}
func (m *Message) GetUint16(name string) (uint16, bool) {
	a, ok := m.get(name, KindUint16)
	return uint16(a.i), ok
}

func (m *Message) SetUint8(name string, v uint8) { m.set(name, attr{kind: KindUint8, i: int64(v)}) }
func (m *Message) GetUint8(name string) (uint8, bool) {
	a, ok := m.get(name, KindUint8)
	return uint8(a.i), ok
}

func (m *Message) SetFloat32(name string, v float32) {
	m.set(name, attr{kind: KindFloat32, f: float64(v)})
}
func (m *Message) GetFloat32(name string) (float32, bool) {
	a, ok := m.get(name, KindFloat32)
	return float32(a.f), ok
}

func (m *Message) SetFloat64(name string, v float64) {
	m.set(name, attr{kind: KindFloat64, f: v})
}
func (m *Message) GetFloat64(name string) (float64, bool) {
	a, ok := m.get(name, KindFloat64)
	return a.f, ok
}

func (m *Message) SetString(name, v string) { m.set(name, attr{kind: KindString, s: v}) }
func (m *Message) GetString(name string) (string, bool) {
	a, ok := m.get(name, KindString)
	return a.s, ok
}

func (m *Message) SetBool(name string, v bool) {
	var i int64
	if v {
		i = 1
	}
	m.set(name, attr{kind: KindBool, i: i})
}
func (m *Message) GetBool(name string) (bool, bool) {
	a, ok := m.get(name, KindBool)
	return a.i != 0, ok
}

// SetPointer stores an opaque value with an optional destructor, invoked
// exactly once when the message's refcount reaches zero or the attribute is
// overwritten by a later SetPointer call for the same name.
func (m *Message) SetPointer(name string, v any, destroy func(any)) {
	m.mu.Lock()
	m.attrs = ensureMap(m.attrs)
	if old, ok := m.attrs[name]; ok && old.kind == KindPointer && old.destroy != nil {
		old.destroy(old.p)
	}
	m.attrs[name] = attr{kind: KindPointer, p: v, destroy: destroy}
	m.mu.Unlock()
}

// GetPointer retrieves a previously stored pointer-kind attribute.
func (m *Message) GetPointer(name string) (any, bool) {
	a, ok := m.get(name, KindPointer)
	return a.p, ok
}

// Copy produces a deep copy of m: independent refcount (starting at 1),
// equal under Get* to the source, sharing no mutable state. Pointer
// attributes are copied without their destructors (the original owns the
// resource; the copy observes it read-only), so the copy's final Unref
// does not run them, unless the caller re-sets the attribute on the copy.
func (m *Message) Copy() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &Message{what: m.what, data: m.data}
	c.refs.Store(1)
	if len(m.attrs) > 0 {
		c.attrs = make(map[string]attr, len(m.attrs))
		for k, v := range m.attrs {
			if v.kind == KindPointer {
				v.destroy = nil
			}
			c.attrs[k] = v
		}
	}
	return c
}

// nameLenBytes, typeTagBytes and valueSizeBytes mirror spec.md §6's
// flattened_size layout exactly.
const (
	whatBytes     = 4
	nameLenBytes  = 4
	typeTagBytes  = 2
	valueSizeBytes = 4
)

// FlattenedSize returns the size, in bytes, the message would occupy if
// serialized per spec.md §6: 4 bytes (what) + per attribute: 4 bytes (name
// length) + name bytes + 2 bytes (type tag) + 4 bytes (value size) + value
// bytes. Strings include their NUL terminator in the value size.
func (m *Message) FlattenedSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := whatBytes
	for name, a := range m.attrs {
		size += nameLenBytes + len(name) + typeTagBytes + valueSizeBytes
		size += valueSize(a)
	}
	return size
}

func valueSize(a attr) int {
	switch a.kind {
	case KindInt8, KindUint8, KindBool:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	case KindString:
		return len(a.s) + 1 // terminator
	case KindPointer:
		return int(unsafeSizeofPointer)
	default:
		return 0
	}
}

// unsafeSizeofPointer is the flattened encoding width reserved for a
// pointer-kind attribute (the pointer value itself, not the pointee).
const unsafeSizeofPointer = 8
