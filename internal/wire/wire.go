// Package wire converts between value.Node trees and the JSON-native values
// the sync transport delivers (bool, float64, json.Number, string, []any,
// map[string]any). The node tree's concrete serialization belongs to the sync
// layer; this package only maps its conventions onto the closed Node union.
//
// Two reserved record keys mark the non-JSON node kinds:
//
//	{"$variant": "Alive", "$payload": 100}  tagged variant
//	{"$variant": "Dead"}                    tagged variant, unit case
//	{"$felt": "0x4a2"}                      field element
//
// Any other map is an ordinary record.
package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/vk/modelbind/internal/value"
)

const (
	variantKey = "$variant"
	payloadKey = "$payload"
	feltKey    = "$felt"
)

// FromNative builds a value.Node from a JSON-decoded native value.
func FromNative(v any) (value.Node, error) {
	switch n := v.(type) {
	case bool:
		return value.Bool(n), nil

	case string:
		return value.Str(n), nil

	case json.Number:
		return numberNode(n)

	case float64:
		return floatNode(n), nil

	case int:
		return value.Int(int64(n)), nil
	case int64:
		return value.Int(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return value.Uint(n), nil
		}
		return value.Int(int64(n)), nil

	case []any:
		seq := make(value.Seq, len(n))
		for i, elem := range n {
			node, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in sequence element %d: %w", i, err)
			}
			seq[i] = node
		}
		return seq, nil

	case map[string]any:
		return mapNode(n)

	case nil:
		return nil, fmt.Errorf("wire: null has no node representation")

	default:
		return nil, fmt.Errorf("wire: native type %T has no node representation", v)
	}
}

func mapNode(m map[string]any) (value.Node, error) {
	if raw, ok := m[feltKey]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("wire: %s must be a string, got %T", feltKey, raw)
		}
		felt, err := value.ParseFelt(s)
		if err != nil {
			return nil, err
		}
		return felt, nil
	}

	if raw, ok := m[variantKey]; ok {
		tag, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("wire: %s must be a string, got %T", variantKey, raw)
		}
		variant := value.Variant{Tag: tag}
		if rawPayload, ok := m[payloadKey]; ok {
			payload, err := FromNative(rawPayload)
			if err != nil {
				return nil, fmt.Errorf("in payload of variant %q: %w", tag, err)
			}
			variant.Payload = payload
		}
		return variant, nil
	}

	rec := make(value.Rec, len(m))
	for key, elem := range m {
		node, err := FromNative(elem)
		if err != nil {
			return nil, fmt.Errorf("in record key %q: %w", key, err)
		}
		rec[key] = node
	}
	return rec, nil
}

func numberNode(n json.Number) (value.Node, error) {
	if i, err := n.Int64(); err == nil {
		return value.Int(i), nil
	}

	// An integer literal that does not fit int64 is an oversized chain
	// integer, not a float; Float64 would round it silently.
	if !strings.ContainsAny(n.String(), ".eE") {
		felt, err := value.ParseFelt(n.String())
		if err != nil {
			return nil, fmt.Errorf("wire: number %s is not a valid integer", n.String())
		}
		return felt, nil
	}

	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("wire: number %s has no node representation", n.String())
	}
	return floatNode(f), nil
}

// floatNode keeps integral JSON numbers as Int nodes. JSON does not
// distinguish 5 from 5.0, and integer model fields arrive as float64 after
// default decoding; the coercer widens Int into float targets losslessly, so
// the integral reading is the safe one.
func floatNode(f float64) value.Node {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < math.MaxInt64 {
		return value.Int(int64(f))
	}
	return value.Float(f)
}

// ToNative converts a value.Node into the JSON-native form the sync transport
// publishes.
func ToNative(node value.Node) (any, error) {
	switch n := node.(type) {
	case value.Bool:
		return bool(n), nil
	case value.Int:
		return int64(n), nil
	case value.Uint:
		return uint64(n), nil
	case value.Float:
		return float64(n), nil
	case value.Str:
		return string(n), nil

	case value.Felt:
		return map[string]any{feltKey: "0x" + n.Big().Text(16)}, nil

	case value.Seq:
		out := make([]any, len(n))
		for i, elem := range n {
			native, err := ToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in sequence element %d: %w", i, err)
			}
			out[i] = native
		}
		return out, nil

	case value.Variant:
		out := map[string]any{variantKey: n.Tag}
		if n.Payload != nil {
			payload, err := ToNative(n.Payload)
			if err != nil {
				return nil, fmt.Errorf("in payload of variant %q: %w", n.Tag, err)
			}
			out[payloadKey] = payload
		}
		return out, nil

	case value.Rec:
		out := make(map[string]any, len(n))
		for key, elem := range n {
			native, err := ToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in record key %q: %w", key, err)
			}
			out[key] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("wire: node %T has no native representation", node)
	}
}
