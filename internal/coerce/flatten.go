package coerce

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/schema"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

// Flatten walks a typed instance and produces the untyped value tree the sync
// layer understands: the inverse of Coerce. For any instance produced by
// Coerce, coercing the flattened tree again yields a structurally equal
// instance.
func Flatten(ctx context.Context, sh shape.Shape, in any) (value.Node, error) {
	logger := ctxlog.FromContext(ctx)

	rv := reflect.ValueOf(in)
	if !rv.IsValid() {
		return nil, mismatchf("cannot flatten a nil instance")
	}
	logger.Debug("Flattening typed instance.", "shape", sh.String(), "source", rv.Type().String())

	return flattenFrom(ctx, sh, rv)
}

func flattenFrom(ctx context.Context, sh shape.Shape, rv reflect.Value) (value.Node, error) {
	if rv.Kind() == reflect.Pointer && rv.Type().Elem() != bigIntType {
		if rv.IsNil() {
			return nil, mismatchf("cannot flatten a nil %s", rv.Type().String())
		}
		return flattenFrom(ctx, sh, rv.Elem())
	}

	switch s := sh.(type) {
	case *shape.Primitive:
		return flattenPrimitive(s, rv)
	case *shape.Array:
		return flattenArray(ctx, s, rv)
	case *shape.Tuple:
		return flattenTuple(ctx, s, rv)
	case *shape.Union:
		return flattenUnion(ctx, s, rv)
	case *shape.Object:
		return flattenObject(ctx, s, rv)
	default:
		return nil, unsupportedf("shape %T is not recognized by the flattener", sh)
	}
}

func flattenPrimitive(s *shape.Primitive, rv reflect.Value) (value.Node, error) {
	switch s.Prim {
	case shape.Bool:
		if rv.Kind() != reflect.Bool {
			return nil, mismatchf("bool shape over %s", rv.Type().String())
		}
		return value.Bool(rv.Bool()), nil
	case shape.Str:
		if rv.Kind() != reflect.String {
			return nil, mismatchf("string shape over %s", rv.Type().String())
		}
		return value.Str(rv.String()), nil
	case shape.Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return value.Int(rv.Int()), nil
		}
		return nil, mismatchf("int shape over %s", rv.Type().String())
	case shape.Uint:
		switch rv.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return value.Uint(rv.Uint()), nil
		}
		return nil, mismatchf("uint shape over %s", rv.Type().String())
	case shape.Float:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return value.Float(rv.Float()), nil
		}
		return nil, mismatchf("float shape over %s", rv.Type().String())
	case shape.Felt:
		if rv.Kind() != reflect.Pointer || rv.Type().Elem() != bigIntType {
			return nil, mismatchf("felt shape over %s", rv.Type().String())
		}
		if rv.IsNil() {
			return value.NewFelt(nil), nil
		}
		return value.NewFelt(rv.Interface().(*big.Int)), nil
	default:
		return nil, unsupportedf("primitive kind %s is not recognized", s.Prim.String())
	}
}

func flattenArray(ctx context.Context, s *shape.Array, rv reflect.Value) (value.Node, error) {
	if rv.Kind() != reflect.Slice {
		return nil, mismatchf("array shape over %s", rv.Type().String())
	}
	seq := make(value.Seq, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		node, err := flattenFrom(ctx, s.Elem, rv.Index(i))
		if err != nil {
			return nil, fmt.Errorf("in sequence element %d: %w", i, err)
		}
		seq[i] = node
	}
	return seq, nil
}

func flattenTuple(ctx context.Context, s *shape.Tuple, rv reflect.Value) (value.Node, error) {
	seq := make(value.Seq, len(s.Elems))

	switch rv.Kind() {
	case reflect.Array:
		if rv.Len() != len(s.Elems) {
			return nil, mismatchf("tuple arity is %d, source array %s holds %d", len(s.Elems), rv.Type().String(), rv.Len())
		}
		for i := range s.Elems {
			node, err := flattenFrom(ctx, s.Elems[i], rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("in tuple position %d: %w", i, err)
			}
			seq[i] = node
		}
		return seq, nil

	case reflect.Struct:
		fields, err := schema.TupleFields(rv.Type())
		if err != nil {
			return nil, unsupportedf("tuple source %s: %v", rv.Type().String(), err)
		}
		if len(fields) != len(s.Elems) {
			return nil, mismatchf("tuple arity is %d, source struct %s declares %d positions", len(s.Elems), rv.Type().String(), len(fields))
		}
		for i, f := range fields {
			node, err := flattenFrom(ctx, s.Elems[i], rv.Field(f.Index))
			if err != nil {
				return nil, fmt.Errorf("in tuple position %d: %w", i, err)
			}
			seq[i] = node
		}
		return seq, nil

	default:
		return nil, mismatchf("tuple shape over %s", rv.Type().String())
	}
}

func flattenUnion(ctx context.Context, s *shape.Union, rv reflect.Value) (value.Node, error) {
	if rv.Kind() != reflect.Struct {
		return nil, mismatchf("union shape over %s", rv.Type().String())
	}
	infos, err := schema.VariantFields(rv.Type())
	if err != nil {
		return nil, unsupportedf("union source %s: %v", rv.Type().String(), err)
	}

	// The active case is re-derived from the single non-nil variant field.
	var active *schema.VariantInfo
	for i := range infos {
		if rv.Field(infos[i].Index).IsNil() {
			continue
		}
		if active != nil {
			return nil, mismatchf("%s has more than one active variant", rv.Type().String())
		}
		active = &infos[i]
	}
	if active == nil {
		return nil, mismatchf("%s has no active variant", rv.Type().String())
	}

	c, ok := s.Case(active.Tag)
	if !ok {
		return nil, unknownVariantf("tag %q is not a case of %s", active.Tag, s.String())
	}
	if c.Payload == nil {
		return value.Variant{Tag: active.Tag}, nil
	}
	payload, err := flattenFrom(ctx, c.Payload, rv.Field(active.Index).Elem())
	if err != nil {
		return nil, fmt.Errorf("in payload of variant %q: %w", active.Tag, err)
	}
	return value.Variant{Tag: active.Tag, Payload: payload}, nil
}

func flattenObject(ctx context.Context, s *shape.Object, rv reflect.Value) (value.Node, error) {
	if rv.Kind() != reflect.Struct {
		return nil, mismatchf("object shape over %s", rv.Type().String())
	}

	t := rv.Type()
	rec := make(value.Rec, len(s.Fields))
	for _, f := range s.Fields {
		sf, ok := t.FieldByName(f.Name)
		if !ok {
			return nil, unsupportedf("source %s has no field %s for key %q", t.String(), f.Name, f.Key)
		}
		node, err := flattenFrom(ctx, f.Shape, rv.FieldByIndex(sf.Index))
		if err != nil {
			return nil, fmt.Errorf("in field %q: %w", f.Key, err)
		}
		rec[f.Key] = node
	}
	return rec, nil
}
