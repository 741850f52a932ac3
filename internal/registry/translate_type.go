// This file parses manifest type expressions (e.g. `uint`, `list(felt)`,
// `tuple(float, float)`) into shape descriptors.

package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/shape"
)

// typeExprToShape converts a manifest type expression into its shape
// descriptor. A nil shape with a nil error means the `any` keyword: the field
// exists but its shape is not checked against the Go type.
func typeExprToShape(ctx context.Context, expr hcl.Expression) (shape.Shape, error) {
	logger := ctxlog.FromContext(ctx)

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		logger.Debug("Parsing type expression as a constructor call.", "call", v.Name)

		switch v.Name {
		case "list":
			if len(v.Args) != 1 {
				return nil, fmt.Errorf("list(...) requires exactly one argument, got %d", len(v.Args))
			}
			elem, err := typeExprToShape(ctx, v.Args[0])
			if err != nil {
				return nil, err
			}
			if elem == nil {
				return nil, fmt.Errorf("list element type cannot be 'any'")
			}
			return shape.ArrayOf(elem), nil

		case "tuple":
			if len(v.Args) == 0 {
				return nil, fmt.Errorf("tuple(...) requires at least one argument")
			}
			elems := make([]shape.Shape, len(v.Args))
			for i, arg := range v.Args {
				elem, err := typeExprToShape(ctx, arg)
				if err != nil {
					return nil, err
				}
				if elem == nil {
					return nil, fmt.Errorf("tuple position %d type cannot be 'any'", i)
				}
				elems[i] = elem
			}
			return shape.TupleOf(elems...), nil

		default:
			return nil, fmt.Errorf("unknown type constructor %q", v.Name)
		}

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return nil, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsing type expression as a primitive keyword.", "keyword", rootName)
		switch rootName {
		case "bool":
			return shape.Prim(shape.Bool), nil
		case "string":
			return shape.Prim(shape.Str), nil
		case "int":
			return shape.Prim(shape.Int), nil
		case "uint":
			return shape.Prim(shape.Uint), nil
		case "float":
			return shape.Prim(shape.Float), nil
		case "felt":
			return shape.Prim(shape.Felt), nil
		case "any":
			return nil, nil
		default:
			return nil, fmt.Errorf("unknown type keyword %q", rootName)
		}

	default:
		return nil, fmt.Errorf("unsupported expression for type declaration: %T", v)
	}
}
