package coerce_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modelbind/internal/coerce"
	"github.com/vk/modelbind/internal/schema"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

func TestFlatten_Record(t *testing.T) {
	p := player{
		ID:     big.NewInt(7),
		HP:     42,
		Pos:    [2]float32{1.5, -2},
		Status: lifeStatus{Alive: &aliveData{Shield: 9}},
		Items:  []item{{Kind: "potion", Count: 3}},

		Scratch: 1234,
	}

	node, err := coerce.Flatten(context.Background(), playerShape(t), &p)
	require.NoError(t, err)
	require.True(t, node.Equal(playerNode()), "got %s", node.String())
}

func TestFlatten_UnitVariant(t *testing.T) {
	sh, err := schema.For(&lifeStatus{})
	require.NoError(t, err)

	node, err := coerce.Flatten(context.Background(), sh, &lifeStatus{Dead: &schema.Unit{}})
	require.NoError(t, err)
	require.True(t, node.Equal(value.Variant{Tag: "Dead"}))
}

func TestFlatten_VariantCompleteness(t *testing.T) {
	sh, err := schema.For(&lifeStatus{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = coerce.Flatten(ctx, sh, &lifeStatus{})
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
	require.ErrorContains(t, err, "no active variant")

	both := lifeStatus{Alive: &aliveData{}, Dead: &schema.Unit{}}
	_, err = coerce.Flatten(ctx, sh, &both)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
	require.ErrorContains(t, err, "more than one active variant")
}

func TestFlatten_NilSource(t *testing.T) {
	_, err := coerce.Flatten(context.Background(), playerShape(t), nil)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)

	var p *player
	_, err = coerce.Flatten(context.Background(), playerShape(t), p)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
}

func TestRoundTrip_CoerceThenFlatten(t *testing.T) {
	sh := playerShape(t)
	node := playerNode()
	ctx := context.Background()

	var p player
	require.NoError(t, coerce.Coerce(ctx, sh, node, &p))

	back, err := coerce.Flatten(ctx, sh, &p)
	require.NoError(t, err)
	require.True(t, back.Equal(node), "flatten(coerce(n)) must reproduce n, got %s", back.String())
}

func TestRoundTrip_WireNormalizedIntegers(t *testing.T) {
	// The wire layer decodes integral JSON numbers as Int nodes even for
	// unsigned model fields; flattening hands back Uint. The round trip must
	// still compare equal at the node level.
	sh := playerShape(t)
	ctx := context.Background()

	node := playerNode()
	node["Health"] = value.Int(42)

	var p player
	require.NoError(t, coerce.Coerce(ctx, sh, node, &p))

	back, err := coerce.Flatten(ctx, sh, &p)
	require.NoError(t, err)
	require.True(t, back.Equal(node), "got %s", back.String())
}

func TestRoundTrip_FlattenThenCoerce(t *testing.T) {
	sh := playerShape(t)
	ctx := context.Background()

	orig := player{
		ID:     big.NewInt(1001),
		HP:     5,
		Pos:    [2]float32{0.25, 8},
		Status: lifeStatus{Dead: &schema.Unit{}},
		Items:  []item{},
	}

	node, err := coerce.Flatten(ctx, sh, &orig)
	require.NoError(t, err)

	var back player
	require.NoError(t, coerce.Coerce(ctx, sh, node, &back))
	require.Equal(t, orig, back)
}

func TestRoundTrip_TupleStruct(t *testing.T) {
	sh := shape.TupleOf(shape.Prim(shape.Str), shape.Prim(shape.Int))
	ctx := context.Background()

	orig := tuplePair{Name: "axe", Hits: -4}
	node, err := coerce.Flatten(ctx, sh, &orig)
	require.NoError(t, err)
	require.True(t, node.Equal(value.Seq{value.Str("axe"), value.Int(-4)}))

	var back tuplePair
	require.NoError(t, coerce.Coerce(ctx, sh, node, &back))
	require.Equal(t, orig, back)
}
