// Package shape describes the structure of a target Go type in a form the
// coercer can walk. A Shape is derived once per type (see internal/schema) or
// declared in a model manifest, then treated as immutable.
package shape

import (
	"fmt"
	"strings"
)

// PrimKind identifies the target primitive category of a Primitive shape.
type PrimKind int

const (
	Bool PrimKind = iota
	Int
	Uint
	Float
	Str
	Felt
)

// String returns the manifest keyword for the primitive kind.
func (k PrimKind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Str:
		return "string"
	case Felt:
		return "felt"
	default:
		return fmt.Sprintf("PrimKind(%d)", int(k))
	}
}

// Shape is the closed descriptor union: Primitive, Array, Tuple, Union and
// Object are the only implementations.
type Shape interface {
	shape()

	// Equal reports deep structural equality with another shape.
	Equal(other Shape) bool

	// String renders the shape in manifest type-expression syntax.
	String() string
}

// Primitive describes a single scalar target.
type Primitive struct {
	Prim PrimKind
}

// Array describes a variable-length ordered container of one element shape.
type Array struct {
	Elem Shape
}

// Tuple describes a fixed-arity ordered container with per-position shapes.
type Tuple struct {
	Elems []Shape
}

// UnionCase is one case of a Union. A nil Payload means the case carries no
// payload (unit).
type UnionCase struct {
	Name    string
	Payload Shape
}

// Union describes a tagged union. Case order follows declaration order; tag
// lookup is case-sensitive exact match.
type Union struct {
	Cases []UnionCase
}

// Field is one coercible field of an Object: the Go field name, the external
// key it is tagged with, and the field's shape.
type Field struct {
	Name  string
	Key   string
	Shape Shape
}

// Object describes a record target. Only tagged fields appear here; untagged
// Go fields never participate in coercion.
type Object struct {
	Fields []Field
}

func (*Primitive) shape() {}
func (*Array) shape()     {}
func (*Tuple) shape()     {}
func (*Union) shape()     {}
func (*Object) shape()    {}

// Prim is a convenience constructor for a Primitive shape.
func Prim(kind PrimKind) *Primitive {
	return &Primitive{Prim: kind}
}

// ArrayOf builds an Array shape with the given element shape.
func ArrayOf(elem Shape) *Array {
	return &Array{Elem: elem}
}

// TupleOf builds a Tuple shape from the given position shapes.
func TupleOf(elems ...Shape) *Tuple {
	return &Tuple{Elems: elems}
}

// UnionOf builds a Union shape from the given cases.
func UnionOf(cases ...UnionCase) *Union {
	return &Union{Cases: cases}
}

// ObjectOf builds an Object shape from the given fields.
func ObjectOf(fields ...Field) *Object {
	return &Object{Fields: fields}
}

// Case looks up a union case by tag. The match is case-sensitive and exact.
func (u *Union) Case(name string) (UnionCase, bool) {
	for _, c := range u.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return UnionCase{}, false
}

// FieldByKey looks up an object field by its external key.
func (o *Object) FieldByKey(key string) (Field, bool) {
	for _, f := range o.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (p *Primitive) Equal(other Shape) bool {
	o, ok := other.(*Primitive)
	return ok && p.Prim == o.Prim
}

func (a *Array) Equal(other Shape) bool {
	o, ok := other.(*Array)
	return ok && a.Elem.Equal(o.Elem)
}

func (t *Tuple) Equal(other Shape) bool {
	o, ok := other.(*Tuple)
	if !ok || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (u *Union) Equal(other Shape) bool {
	o, ok := other.(*Union)
	if !ok || len(u.Cases) != len(o.Cases) {
		return false
	}
	for i, c := range u.Cases {
		oc := o.Cases[i]
		if c.Name != oc.Name {
			return false
		}
		if c.Payload == nil || oc.Payload == nil {
			if c.Payload != nil || oc.Payload != nil {
				return false
			}
			continue
		}
		if !c.Payload.Equal(oc.Payload) {
			return false
		}
	}
	return true
}

func (obj *Object) Equal(other Shape) bool {
	o, ok := other.(*Object)
	if !ok || len(obj.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range obj.Fields {
		of := o.Fields[i]
		if f.Name != of.Name || f.Key != of.Key || !f.Shape.Equal(of.Shape) {
			return false
		}
	}
	return true
}

func (p *Primitive) String() string {
	return p.Prim.String()
}

func (a *Array) String() string {
	return fmt.Sprintf("list(%s)", a.Elem.String())
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "tuple(" + strings.Join(parts, ", ") + ")"
}

func (u *Union) String() string {
	parts := make([]string, len(u.Cases))
	for i, c := range u.Cases {
		if c.Payload == nil {
			parts[i] = c.Name
		} else {
			parts[i] = fmt.Sprintf("%s(%s)", c.Name, c.Payload.String())
		}
	}
	return "union(" + strings.Join(parts, ", ") + ")"
}

func (obj *Object) String() string {
	parts := make([]string, len(obj.Fields))
	for i, f := range obj.Fields {
		parts[i] = fmt.Sprintf("%s=%s", f.Key, f.Shape.String())
	}
	return "object(" + strings.Join(parts, ", ") + ")"
}
