// Package coerce converts untyped value trees into typed Go instances and
// back, guided by a shape descriptor. Both directions are pure, synchronous
// transformations: no I/O, no shared mutable state, safe to run concurrently
// on independent inputs.
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

var bigIntType = reflect.TypeOf(big.Int{})

// Coerce populates *out from node, guided by sh. It either succeeds fully or
// leaves *out untouched: the instance is built aside and assigned in a single
// step only after every field coerced cleanly.
//
// out must be a non-nil pointer to the target value.
func Coerce(ctx context.Context, sh shape.Shape, node value.Node, out any) error {
	logger := ctxlog.FromContext(ctx)

	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return unsupportedf("coerce target must be a non-nil pointer, got %T", out)
	}
	target := ptr.Elem()
	logger.Debug("Coercing node into typed instance.", "shape", sh.String(), "target", target.Type().String())

	// Build into a fresh instance so a partial failure never leaks into the
	// caller-visible value.
	fresh := reflect.New(target.Type()).Elem()
	if err := coerceInto(ctx, sh, node, fresh); err != nil {
		return err
	}
	target.Set(fresh)
	return nil
}

// coerceInto fills rv, a freshly allocated addressable value, from node. rv
// is never caller-visible until the top-level coercion succeeds.
func coerceInto(ctx context.Context, sh shape.Shape, node value.Node, rv reflect.Value) error {
	// Pointer targets other than *big.Int are allocated transparently; the
	// big integer pointer is the Felt primitive's own representation.
	if rv.Kind() == reflect.Pointer && rv.Type().Elem() != bigIntType {
		elem := reflect.New(rv.Type().Elem())
		if err := coerceInto(ctx, sh, node, elem.Elem()); err != nil {
			return err
		}
		rv.Set(elem)
		return nil
	}

	switch s := sh.(type) {
	case *shape.Primitive:
		return coercePrimitive(s, node, rv)
	case *shape.Array:
		return coerceArray(ctx, s, node, rv)
	case *shape.Tuple:
		return coerceTuple(ctx, s, node, rv)
	case *shape.Union:
		return coerceUnion(ctx, s, node, rv)
	case *shape.Object:
		return coerceObject(ctx, s, node, rv)
	default:
		return unsupportedf("shape %T is not recognized by the coercer", sh)
	}
}

func coerceArray(ctx context.Context, s *shape.Array, node value.Node, rv reflect.Value) error {
	seq, ok := node.(value.Seq)
	if !ok {
		return mismatchf("expected a sequence for %s, got %s", rv.Type().String(), node.String())
	}
	if rv.Kind() != reflect.Slice {
		return mismatchf("array shape targets a slice, got %s", rv.Type().String())
	}

	// An empty sequence is a valid empty container, not an error.
	out := reflect.MakeSlice(rv.Type(), len(seq), len(seq))
	for i, elem := range seq {
		if err := coerceInto(ctx, s.Elem, elem, out.Index(i)); err != nil {
			return fmt.Errorf("in sequence element %d: %w", i, err)
		}
	}
	rv.Set(out)
	return nil
}

func coerceTuple(ctx context.Context, s *shape.Tuple, node value.Node, rv reflect.Value) error {
	seq, ok := node.(value.Seq)
	if !ok {
		return mismatchf("expected a sequence for tuple %s, got %s", rv.Type().String(), node.String())
	}
	if len(seq) != len(s.Elems) {
		return mismatchf("tuple arity is %d, sequence has %d elements", len(s.Elems), len(seq))
	}

	switch rv.Kind() {
	case reflect.Array:
		if rv.Len() != len(s.Elems) {
			return mismatchf("tuple arity is %d, target array %s holds %d", len(s.Elems), rv.Type().String(), rv.Len())
		}
		for i := range s.Elems {
			if err := coerceInto(ctx, s.Elems[i], seq[i], rv.Index(i)); err != nil {
				return fmt.Errorf("in tuple position %d: %w", i, err)
			}
		}
		return nil

	case reflect.Struct:
		fields, err := schema.TupleFields(rv.Type())
		if err != nil {
			return unsupportedf("tuple target %s: %v", rv.Type().String(), err)
		}
		if len(fields) != len(s.Elems) {
			return mismatchf("tuple arity is %d, target struct %s declares %d positions", len(s.Elems), rv.Type().String(), len(fields))
		}
		for i, f := range fields {
			if err := coerceInto(ctx, s.Elems[i], seq[i], rv.Field(f.Index)); err != nil {
				return fmt.Errorf("in tuple position %d: %w", i, err)
			}
		}
		return nil

	default:
		return mismatchf("tuple shape targets an array or tuple struct, got %s", rv.Type().String())
	}
}

func coerceUnion(ctx context.Context, s *shape.Union, node value.Node, rv reflect.Value) error {
	variant, ok := node.(value.Variant)
	if !ok {
		return mismatchf("expected a tagged variant for %s, got %s", rv.Type().String(), node.String())
	}

	c, ok := s.Case(variant.Tag)
	if !ok {
		return unknownVariantf("tag %q is not a case of %s", variant.Tag, s.String())
	}

	if rv.Kind() != reflect.Struct {
		return mismatchf("union shape targets a variant struct, got %s", rv.Type().String())
	}
	infos, err := schema.VariantFields(rv.Type())
	if err != nil {
		return unsupportedf("union target %s: %v", rv.Type().String(), err)
	}
	var field *schema.VariantInfo
	for i := range infos {
		if infos[i].Tag == variant.Tag {
			field = &infos[i]
			break
		}
	}
	if field == nil {
		return mismatchf("target %s declares no field for variant %q", rv.Type().String(), variant.Tag)
	}

	fv := rv.Field(field.Index)
	if c.Payload == nil {
		if variant.Payload != nil {
			return mismatchf("variant %q carries no payload, got %s", variant.Tag, variant.Payload.String())
		}
		// The non-nil pointer is the active-case marker.
		fv.Set(reflect.New(fv.Type().Elem()))
		return nil
	}

	if variant.Payload == nil {
		return mismatchf("variant %q requires a payload, none present", variant.Tag)
	}
	payload := reflect.New(fv.Type().Elem())
	if err := coerceInto(ctx, c.Payload, variant.Payload, payload.Elem()); err != nil {
		return fmt.Errorf("in payload of variant %q: %w", variant.Tag, err)
	}
	fv.Set(payload)
	return nil
}

func coerceObject(ctx context.Context, s *shape.Object, node value.Node, rv reflect.Value) error {
	rec, ok := node.(value.Rec)
	if !ok {
		return mismatchf("expected a record for %s, got %s", rv.Type().String(), node.String())
	}
	if rv.Kind() != reflect.Struct {
		return mismatchf("object shape targets a struct, got %s", rv.Type().String())
	}

	t := rv.Type()
	for _, f := range s.Fields {
		sf, ok := t.FieldByName(f.Name)
		if !ok || !sf.IsExported() {
			return unsupportedf("target %s has no settable field %s for key %q", t.String(), f.Name, f.Key)
		}
		child, present := rec[f.Key]
		if !present {
			return missingFieldf("key %q (field %s.%s) absent from record", f.Key, t.String(), f.Name)
		}
		if err := coerceInto(ctx, f.Shape, child, rv.FieldByIndex(sf.Index)); err != nil {
			return fmt.Errorf("in field %q: %w", f.Key, err)
		}
	}
	return nil
}
