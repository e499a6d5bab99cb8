package scanner

import (
	"strconv"

	"github.com/josefcohen96/usrp/internal/descriptor"
)

const (
	KindAbsent Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// Kind tags the type held by a Value.
type Kind int

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is an optional, typed option value. The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Absent is the value of an option that was never set.
var Absent = Value{}

// Flag returns a switch value. A switch that is off is absent: the remote
// program only ever sees switches that are on.
func Flag(on bool) Value {
	if !on {
		return Absent
	}
	return Value{kind: KindBool, b: true}
}

func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func (v Value) Kind() Kind    { return v.kind }
func (v Value) Present() bool { return v.kind != KindAbsent }

// IsSwitch reports whether v is a flag-only value.
func (v Value) IsSwitch() bool {
	return v.kind == KindBool && v.b
}

// String renders the value as a command line token.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return descriptor.FormatFloat(v.f)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// OptionSet is an insertion-ordered mapping of option names to values.
type OptionSet struct {
	names  []string
	values map[string]Value
}

func NewOptionSet() *OptionSet {
	return &OptionSet{values: make(map[string]Value)}
}

// Set stores v under name. Setting a name twice keeps its original position.
func (o *OptionSet) Set(name string, v Value) {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	o.values[name] = v
}

// Get returns the value stored under name, Absent if none.
func (o *OptionSet) Get(name string) Value {
	if o == nil {
		return Absent
	}
	return o.values[name]
}

// Names returns option names in insertion order.
func (o *OptionSet) Names() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.names...)
}

// Len returns the number of options, present or not.
func (o *OptionSet) Len() int {
	if o == nil {
		return 0
	}
	return len(o.names)
}

// Without returns a copy of o that does not contain name.
func (o *OptionSet) Without(name string) *OptionSet {
	out := NewOptionSet()
	if o == nil {
		return out
	}
	for _, n := range o.names {
		if n == name {
			continue
		}
		out.Set(n, o.values[n])
	}
	return out
}
