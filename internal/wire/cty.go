package wire

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modelbind/internal/value"
)

// FromCty converts an evaluated HCL expression value into a value.Node. It is
// used for manifest-declared field defaults, which are written as plain HCL
// literals.
func FromCty(val cty.Value) (value.Node, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("wire: null or unknown value has no node representation")
	}

	ty := val.Type()
	switch {
	case ty == cty.Bool:
		return value.Bool(val.True()), nil

	case ty == cty.String:
		return value.Str(val.AsString()), nil

	case ty == cty.Number:
		return numberFromCty(val)

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		seq := make(value.Seq, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			node, err := FromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("in sequence element %d: %w", len(seq), err)
			}
			seq = append(seq, node)
		}
		return seq, nil

	case ty.IsObjectType() || ty.IsMapType():
		attrs := val.AsValueMap()
		rec := make(value.Rec, len(attrs))
		for key, elem := range attrs {
			node, err := FromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("in record key %q: %w", key, err)
			}
			rec[key] = node
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("wire: cty type %s has no node representation", ty.FriendlyName())
	}
}

// numberFromCty keeps exact integers as Int/Uint nodes, oversized integers as
// field elements, and everything else as Float.
func numberFromCty(val cty.Value) (value.Node, error) {
	bf := val.AsBigFloat()

	if bf.IsInt() {
		if i, acc := bf.Int64(); acc == big.Exact {
			return value.Int(i), nil
		}
		if u, acc := bf.Uint64(); acc == big.Exact {
			return value.Uint(u), nil
		}
		bi, _ := bf.Int(nil)
		if bi.Sign() >= 0 {
			return value.NewFelt(bi), nil
		}
		return nil, fmt.Errorf("wire: integer %s is out of range", bf.Text('f', 0))
	}

	f, _ := bf.Float64()
	return value.Float(f), nil
}
