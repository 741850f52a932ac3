// Package value defines the untyped, self-describing value tree delivered by
// the external sync layer. The Node union is closed: Primitive (Bool, Int,
// Uint, Float, Str, Felt), Seq, Variant, and Rec are the only variants, which
// lets consumers switch exhaustively instead of probing with runtime type
// checks.
//
// Nodes are immutable by convention once produced by the sync layer. The
// coercer only ever reads them.
package value

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Node is one piece of model data as received from the sync layer.
//
// The node method is unexported so the variant set cannot grow outside this
// package.
type Node interface {
	node()

	// Equal reports deep structural equality with another node.
	Equal(other Node) bool

	// String renders a compact single-line form for logs and error messages.
	String() string
}

// Bool is a primitive boolean node.
type Bool bool

// Int is a primitive signed integer node.
type Int int64

// Uint is a primitive unsigned integer node.
type Uint uint64

// Float is a primitive floating point node.
type Float float64

// Str is a primitive string node.
type Str string

// Felt is the domain big-integer primitive (a chain field element). It wraps
// an unexported big.Int so the node stays immutable; use NewFelt to build one
// and Big to read it out.
type Felt struct {
	i *big.Int
}

// Seq is an ordered sequence node, used for both arrays and tuples.
type Seq []Node

// Variant is a tagged-union node: a case tag plus an optional payload. A nil
// Payload means the unit case, not an empty value.
type Variant struct {
	Tag     string
	Payload Node
}

// Rec is a nested record node keyed by external field name.
type Rec map[string]Node

func (Bool) node()    {}
func (Int) node()     {}
func (Uint) node()    {}
func (Float) node()   {}
func (Str) node()     {}
func (Felt) node()    {}
func (Seq) node()     {}
func (Variant) node() {}
func (Rec) node()     {}

// NewFelt builds a Felt node from a big integer. The input is copied so later
// caller mutation cannot leak into the node.
func NewFelt(i *big.Int) Felt {
	if i == nil {
		return Felt{i: new(big.Int)}
	}
	return Felt{i: new(big.Int).Set(i)}
}

// FeltFromUint64 builds a Felt node from an unsigned integer.
func FeltFromUint64(v uint64) Felt {
	return Felt{i: new(big.Int).SetUint64(v)}
}

// ParseFelt parses a decimal or 0x-prefixed hexadecimal string into a Felt.
func ParseFelt(s string) (Felt, error) {
	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	i, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return Felt{}, fmt.Errorf("value: cannot parse %q as a field element", s)
	}
	return Felt{i: i}, nil
}

// Big returns a copy of the wrapped integer. The node itself is never exposed
// mutably.
func (f Felt) Big() *big.Int {
	if f.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(f.i)
}

func (b Bool) Equal(other Node) bool {
	o, ok := other.(Bool)
	return ok && b == o
}

// Int and Uint compare by numeric value across both kinds: the wire layer
// normalizes integral JSON numbers to Int, so an update bound into an
// unsigned field flattens back as Uint and the two must still read as the
// same node.
func (i Int) Equal(other Node) bool {
	switch o := other.(type) {
	case Int:
		return i == o
	case Uint:
		return i >= 0 && uint64(i) == uint64(o)
	default:
		return false
	}
}

func (u Uint) Equal(other Node) bool {
	switch o := other.(type) {
	case Uint:
		return u == o
	case Int:
		return o >= 0 && uint64(o) == uint64(u)
	default:
		return false
	}
}

func (f Float) Equal(other Node) bool {
	o, ok := other.(Float)
	return ok && f == o
}

func (s Str) Equal(other Node) bool {
	o, ok := other.(Str)
	return ok && s == o
}

func (f Felt) Equal(other Node) bool {
	o, ok := other.(Felt)
	if !ok {
		return false
	}
	fi, oi := f.i, o.i
	if fi == nil {
		fi = new(big.Int)
	}
	if oi == nil {
		oi = new(big.Int)
	}
	return fi.Cmp(oi) == 0
}

func (s Seq) Equal(other Node) bool {
	o, ok := other.(Seq)
	if !ok || len(s) != len(o) {
		return false
	}
	for idx := range s {
		if !s[idx].Equal(o[idx]) {
			return false
		}
	}
	return true
}

func (v Variant) Equal(other Node) bool {
	o, ok := other.(Variant)
	if !ok || v.Tag != o.Tag {
		return false
	}
	if v.Payload == nil || o.Payload == nil {
		return v.Payload == nil && o.Payload == nil
	}
	return v.Payload.Equal(o.Payload)
}

func (r Rec) Equal(other Node) bool {
	o, ok := other.(Rec)
	if !ok || len(r) != len(o) {
		return false
	}
	for key, node := range r {
		onode, present := o[key]
		if !present || !node.Equal(onode) {
			return false
		}
	}
	return true
}

func (b Bool) String() string  { return fmt.Sprintf("%t", bool(b)) }
func (i Int) String() string   { return fmt.Sprintf("%d", int64(i)) }
func (u Uint) String() string  { return fmt.Sprintf("%du", uint64(u)) }
func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (s Str) String() string   { return fmt.Sprintf("%q", string(s)) }

func (f Felt) String() string {
	if f.i == nil {
		return "felt(0)"
	}
	return fmt.Sprintf("felt(%s)", f.i.String())
}

func (s Seq) String() string {
	parts := make([]string, len(s))
	for i, n := range s {
		parts[i] = n.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (v Variant) String() string {
	if v.Payload == nil {
		return v.Tag
	}
	return fmt.Sprintf("%s(%s)", v.Tag, v.Payload.String())
}

func (r Rec) String() string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s: %s", key, r[key].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
