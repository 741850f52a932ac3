// Package schema derives a shape.Shape from a Go type. Field association is
// declarative through struct tags, mirroring how the sync layer names model
// members externally:
//
//	type Player struct {
//		HP   uint32      `model:"Health"`
//		Pos  [2]float32  `model:"Position"`
//		note string      // untagged, never touched by coercion
//	}
//
// Tagged unions are structs whose exported fields all carry a `variant` tag
// and are pointer-typed; exactly one is non-nil at a time. A *schema.Unit
// field is a payload-less case:
//
//	type LifeStatus struct {
//		Alive *AliveData   `variant:"Alive"`
//		Dead  *schema.Unit `variant:"Dead"`
//	}
//
// Heterogeneous tuples are structs whose exported fields carry `tuple` tags
// with their position index. Fixed-size Go arrays derive as homogeneous
// tuples.
//
// Derivation runs once per type and is cached process-wide; the cached shape
// is immutable. Types whose shape cannot be expressed by tags can be
// registered explicitly with RegisterShape before first use.
package schema

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/vk/modelbind/internal/shape"
)

// Unit marks a payload-less union case when used as a pointer field type.
type Unit struct{}

var (
	derived   sync.Map // reflect.Type -> shape.Shape
	overrides sync.Map // reflect.Type -> shape.Shape

	bigIntType = reflect.TypeOf((*big.Int)(nil))
	unitType   = reflect.TypeOf(Unit{})
)

// RegisterShape installs an explicit shape for a type, bypassing tag
// derivation. It must be called before the type's shape is first derived;
// later calls for the same type are ignored.
func RegisterShape(prototype any, s shape.Shape) {
	overrides.LoadOrStore(reflect.TypeOf(prototype), s)
}

// For derives the shape of a value's type. See Derive.
func For(v any) (shape.Shape, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("schema: cannot derive a shape from a nil value")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return Derive(t)
}

// Derive resolves the shape of a Go type, consulting the override table first
// and the derivation cache second.
func Derive(t reflect.Type) (shape.Shape, error) {
	if s, ok := overrides.Load(t); ok {
		return s.(shape.Shape), nil
	}
	if s, ok := derived.Load(t); ok {
		return s.(shape.Shape), nil
	}
	s, err := derive(t)
	if err != nil {
		return nil, err
	}
	actual, _ := derived.LoadOrStore(t, s)
	return actual.(shape.Shape), nil
}

func derive(t reflect.Type) (shape.Shape, error) {
	if t == bigIntType {
		return shape.Prim(shape.Felt), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return shape.Prim(shape.Bool), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return shape.Prim(shape.Int), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return shape.Prim(shape.Uint), nil
	case reflect.Float32, reflect.Float64:
		return shape.Prim(shape.Float), nil
	case reflect.String:
		return shape.Prim(shape.Str), nil

	case reflect.Slice:
		elem, err := Derive(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("in slice element of %s: %w", t.String(), err)
		}
		return shape.ArrayOf(elem), nil

	case reflect.Array:
		elem, err := Derive(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("in array element of %s: %w", t.String(), err)
		}
		elems := make([]shape.Shape, t.Len())
		for i := range elems {
			elems[i] = elem
		}
		return shape.TupleOf(elems...), nil

	case reflect.Pointer:
		return Derive(t.Elem())

	case reflect.Struct:
		return deriveStruct(t)

	default:
		return nil, fmt.Errorf("schema: type %s (kind %s) has no derivable shape", t.String(), t.Kind().String())
	}
}

func deriveStruct(t reflect.Type) (shape.Shape, error) {
	if variants, err := VariantFields(t); err != nil {
		return nil, err
	} else if variants != nil {
		cases := make([]shape.UnionCase, len(variants))
		for i, v := range variants {
			c := shape.UnionCase{Name: v.Tag}
			if !v.Unit {
				payload, err := Derive(t.Field(v.Index).Type.Elem())
				if err != nil {
					return nil, fmt.Errorf("in variant %q of %s: %w", v.Tag, t.String(), err)
				}
				c.Payload = payload
			}
			cases[i] = c
		}
		return shape.UnionOf(cases...), nil
	}

	if positions, err := TupleFields(t); err != nil {
		return nil, err
	} else if positions != nil {
		elems := make([]shape.Shape, len(positions))
		for i, p := range positions {
			elem, err := Derive(t.Field(p.Index).Type)
			if err != nil {
				return nil, fmt.Errorf("in tuple position %d of %s: %w", i, t.String(), err)
			}
			elems[i] = elem
		}
		return shape.TupleOf(elems...), nil
	}

	fields, err := RecordFields(t)
	if err != nil {
		return nil, err
	}
	shaped := make([]shape.Field, len(fields))
	for i, f := range fields {
		fs, err := Derive(t.Field(f.Index).Type)
		if err != nil {
			return nil, fmt.Errorf("in field %s of %s: %w", f.Name, t.String(), err)
		}
		shaped[i] = shape.Field{Name: f.Name, Key: f.Key, Shape: fs}
	}
	return shape.ObjectOf(shaped...), nil
}

// FieldInfo associates a struct field index with its Go name and external key.
type FieldInfo struct {
	Index int
	Name  string
	Key   string
}

// VariantInfo associates a struct field index with its union case tag. Unit
// is set for payload-less cases (*Unit fields).
type VariantInfo struct {
	Index int
	Tag   string
	Unit  bool
}

// RecordFields lists the `model`-tagged fields of a struct type in
// declaration order. Untagged fields are skipped silently; that is the
// documented way to keep a field out of coercion.
func RecordFields(t reflect.Type) ([]FieldInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct", t.String())
	}
	var fields []FieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := tagName(f.Tag.Get("model"))
		if key == "" || !f.IsExported() {
			continue
		}
		fields = append(fields, FieldInfo{Index: i, Name: f.Name, Key: key})
	}
	return fields, nil
}

// VariantFields lists the `variant`-tagged fields of a struct type, or nil if
// the struct declares none. A struct that mixes variant-tagged and other
// exported fields is rejected: a union holds its cases and nothing else.
func VariantFields(t reflect.Type) ([]VariantInfo, error) {
	var variants []VariantInfo
	var plain int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := tagName(f.Tag.Get("variant"))
		if tag == "" {
			plain++
			continue
		}
		if f.Type.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("schema: variant field %s.%s must be a pointer, got %s", t.String(), f.Name, f.Type.String())
		}
		variants = append(variants, VariantInfo{
			Index: i,
			Tag:   tag,
			Unit:  f.Type.Elem() == unitType,
		})
	}
	if variants == nil {
		return nil, nil
	}
	if plain > 0 {
		return nil, fmt.Errorf("schema: %s mixes variant-tagged and untagged exported fields", t.String())
	}
	return variants, nil
}

// TupleFields lists the `tuple`-tagged fields of a struct type ordered by
// their declared position, or nil if the struct declares none. Positions must
// form a gapless range starting at zero.
func TupleFields(t reflect.Type) ([]FieldInfo, error) {
	type position struct {
		info FieldInfo
		pos  int
	}
	var positions []position
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := tagName(f.Tag.Get("tuple"))
		if tag == "" || !f.IsExported() {
			continue
		}
		pos, err := strconv.Atoi(tag)
		if err != nil {
			return nil, fmt.Errorf("schema: tuple tag %q on %s.%s is not an index", tag, t.String(), f.Name)
		}
		positions = append(positions, position{
			info: FieldInfo{Index: i, Name: f.Name, Key: tag},
			pos:  pos,
		})
	}
	if positions == nil {
		return nil, nil
	}
	sort.Slice(positions, func(a, b int) bool { return positions[a].pos < positions[b].pos })
	fields := make([]FieldInfo, len(positions))
	for i, p := range positions {
		if p.pos != i {
			return nil, fmt.Errorf("schema: tuple positions on %s are not a gapless range from 0", t.String())
		}
		fields[i] = p.info
	}
	return fields, nil
}

// tagName strips tag options, keeping only the leading name segment.
func tagName(tag string) string {
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	return name
}
