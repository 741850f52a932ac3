package coerce

import (
	"math"
	"math/big"
	"reflect"

	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

// coercePrimitive converts a primitive node into rv. Cross-kind numeric
// conversion is allowed only when lossless: widening always succeeds,
// narrowing succeeds iff the exact value survives the round trip.
func coercePrimitive(s *shape.Primitive, node value.Node, rv reflect.Value) error {
	switch s.Prim {
	case shape.Bool:
		b, ok := node.(value.Bool)
		if !ok || rv.Kind() != reflect.Bool {
			return mismatchf("expected a boolean for %s, got %s", rv.Type().String(), node.String())
		}
		rv.SetBool(bool(b))
		return nil

	case shape.Str:
		str, ok := node.(value.Str)
		if !ok || rv.Kind() != reflect.String {
			return mismatchf("expected a string for %s, got %s", rv.Type().String(), node.String())
		}
		rv.SetString(string(str))
		return nil

	case shape.Int:
		return coerceInt(node, rv)
	case shape.Uint:
		return coerceUint(node, rv)
	case shape.Float:
		return coerceFloat(node, rv)
	case shape.Felt:
		return coerceFelt(node, rv)
	default:
		return unsupportedf("primitive kind %s is not recognized", s.Prim.String())
	}
}

func coerceInt(node value.Node, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return mismatchf("int shape targets a signed integer, got %s", rv.Type().String())
	}

	var v int64
	switch n := node.(type) {
	case value.Int:
		v = int64(n)
	case value.Uint:
		if uint64(n) > math.MaxInt64 {
			return mismatchf("unsigned value %d exceeds int64", uint64(n))
		}
		v = int64(n)
	case value.Felt:
		b := n.Big()
		if !b.IsInt64() {
			return mismatchf("field element %s exceeds int64", b.String())
		}
		v = b.Int64()
	case value.Float:
		f := float64(n)
		v = int64(f)
		if float64(v) != f {
			return mismatchf("float value %g is not an exact integer", f)
		}
	default:
		return mismatchf("expected an integer for %s, got %s", rv.Type().String(), node.String())
	}

	if rv.OverflowInt(v) {
		return mismatchf("value %d overflows %s", v, rv.Type().String())
	}
	rv.SetInt(v)
	return nil
}

func coerceUint(node value.Node, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return mismatchf("uint shape targets an unsigned integer, got %s", rv.Type().String())
	}

	var v uint64
	switch n := node.(type) {
	case value.Uint:
		v = uint64(n)
	case value.Int:
		if int64(n) < 0 {
			return mismatchf("negative value %d cannot narrow to %s", int64(n), rv.Type().String())
		}
		v = uint64(n)
	case value.Felt:
		b := n.Big()
		if !b.IsUint64() {
			return mismatchf("field element %s exceeds uint64", b.String())
		}
		v = b.Uint64()
	case value.Float:
		f := float64(n)
		if f < 0 {
			return mismatchf("negative value %g cannot narrow to %s", f, rv.Type().String())
		}
		v = uint64(f)
		if float64(v) != f {
			return mismatchf("float value %g is not an exact integer", f)
		}
	default:
		return mismatchf("expected an integer for %s, got %s", rv.Type().String(), node.String())
	}

	if rv.OverflowUint(v) {
		return mismatchf("value %d overflows %s", v, rv.Type().String())
	}
	rv.SetUint(v)
	return nil
}

func coerceFloat(node value.Node, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
	default:
		return mismatchf("float shape targets a floating point value, got %s", rv.Type().String())
	}

	var v float64
	switch n := node.(type) {
	case value.Float:
		v = float64(n)
	case value.Int:
		v = float64(int64(n))
		if int64(v) != int64(n) {
			return mismatchf("integer %d is not exactly representable as a float", int64(n))
		}
	case value.Uint:
		v = float64(uint64(n))
		if uint64(v) != uint64(n) {
			return mismatchf("integer %d is not exactly representable as a float", uint64(n))
		}
	default:
		return mismatchf("expected a number for %s, got %s", rv.Type().String(), node.String())
	}

	if rv.Kind() == reflect.Float32 && float64(float32(v)) != v {
		return mismatchf("value %g loses precision as float32", v)
	}
	rv.SetFloat(v)
	return nil
}

func coerceFelt(node value.Node, rv reflect.Value) error {
	if rv.Kind() != reflect.Pointer || rv.Type().Elem() != bigIntType {
		return mismatchf("felt shape targets *big.Int, got %s", rv.Type().String())
	}

	var b *big.Int
	switch n := node.(type) {
	case value.Felt:
		b = n.Big()
	case value.Uint:
		b = new(big.Int).SetUint64(uint64(n))
	case value.Int:
		if int64(n) < 0 {
			return mismatchf("negative value %d cannot widen to a field element", int64(n))
		}
		b = big.NewInt(int64(n))
	default:
		return mismatchf("expected a field element for %s, got %s", rv.Type().String(), node.String())
	}

	rv.Set(reflect.ValueOf(b))
	return nil
}
