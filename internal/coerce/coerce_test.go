package coerce_test

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modelbind/internal/coerce"
	"github.com/vk/modelbind/internal/schema"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

type item struct {
	Kind  string `model:"Kind"`
	Count uint32 `model:"Count"`
}

type aliveData struct {
	Shield uint32 `model:"Shield"`
}

type lifeStatus struct {
	Alive *aliveData   `variant:"Alive"`
	Dead  *schema.Unit `variant:"Dead"`
}

type player struct {
	ID     *big.Int   `model:"PlayerId"`
	HP     uint32     `model:"Health"`
	Pos    [2]float32 `model:"Position"`
	Status lifeStatus `model:"Status"`
	Items  []item     `model:"Inventory"`

	Scratch int
}

func playerShape(t *testing.T) shape.Shape {
	t.Helper()
	sh, err := schema.For(&player{})
	require.NoError(t, err)
	return sh
}

func playerNode() value.Rec {
	return value.Rec{
		"PlayerId":  value.FeltFromUint64(7),
		"Health":    value.Uint(42),
		"Position":  value.Seq{value.Float(1.5), value.Float(-2)},
		"Status":    value.Variant{Tag: "Alive", Payload: value.Rec{"Shield": value.Uint(9)}},
		"Inventory": value.Seq{value.Rec{"Kind": value.Str("potion"), "Count": value.Uint(3)}},
	}
}

func TestCoerce_Record(t *testing.T) {
	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), playerNode(), &p)
	require.NoError(t, err)

	require.Zero(t, p.ID.Cmp(big.NewInt(7)))
	require.Equal(t, uint32(42), p.HP)
	require.Equal(t, [2]float32{1.5, -2}, p.Pos)
	require.NotNil(t, p.Status.Alive)
	require.Nil(t, p.Status.Dead)
	require.Equal(t, uint32(9), p.Status.Alive.Shield)
	require.Equal(t, []item{{Kind: "potion", Count: 3}}, p.Items)
	require.Zero(t, p.Scratch, "untagged fields stay at their zero value")
}

func TestCoerce_UnitVariant(t *testing.T) {
	node := playerNode()
	node["Status"] = value.Variant{Tag: "Dead"}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.NoError(t, err)
	require.Nil(t, p.Status.Alive)
	require.NotNil(t, p.Status.Dead, "the non-nil pointer marks the active case")
}

func TestCoerce_UnitVariantRejectsPayload(t *testing.T) {
	node := playerNode()
	node["Status"] = value.Variant{Tag: "Dead", Payload: value.Uint(1)}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
}

func TestCoerce_PayloadVariantRequiresPayload(t *testing.T) {
	node := playerNode()
	node["Status"] = value.Variant{Tag: "Alive"}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
}

func TestCoerce_UnknownVariant(t *testing.T) {
	node := playerNode()
	// An unknown tag is rejected before its payload is even looked at.
	node["Status"] = value.Variant{Tag: "Stunned", Payload: value.Rec{"Shield": value.Uint(1)}}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.ErrorIs(t, err, coerce.ErrUnknownVariant)
}

func TestCoerce_MissingField(t *testing.T) {
	node := playerNode()
	delete(node, "Health")

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.ErrorIs(t, err, coerce.ErrMissingField)
	require.ErrorContains(t, err, "Health")
}

func TestCoerce_ExtraKeysIgnored(t *testing.T) {
	node := playerNode()
	node["Unmapped"] = value.Str("whatever")

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.NoError(t, err)
}

func TestCoerce_EmptySequence(t *testing.T) {
	node := playerNode()
	node["Inventory"] = value.Seq{}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.NoError(t, err)
	require.NotNil(t, p.Items)
	require.Empty(t, p.Items)
}

func TestCoerce_TupleArity(t *testing.T) {
	node := playerNode()
	node["Position"] = value.Seq{value.Float(1), value.Float(2), value.Float(3)}

	var p player
	err := coerce.Coerce(context.Background(), playerShape(t), node, &p)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
}

func TestCoerce_FailureLeavesTargetUntouched(t *testing.T) {
	var p player
	require.NoError(t, coerce.Coerce(context.Background(), playerShape(t), playerNode(), &p))
	before := p

	bad := playerNode()
	bad["Health"] = value.Str("full")
	err := coerce.Coerce(context.Background(), playerShape(t), bad, &p)
	require.ErrorIs(t, err, coerce.ErrShapeMismatch)
	require.Equal(t, before, p, "a failed coercion must not leak partial writes")
}

func TestCoerce_Idempotent(t *testing.T) {
	var first, second player
	require.NoError(t, coerce.Coerce(context.Background(), playerShape(t), playerNode(), &first))
	require.NoError(t, coerce.Coerce(context.Background(), playerShape(t), playerNode(), &second))
	require.Equal(t, first, second)
}

func TestCoerce_NilTarget(t *testing.T) {
	err := coerce.Coerce(context.Background(), playerShape(t), playerNode(), nil)
	require.ErrorIs(t, err, coerce.ErrUnsupportedShape)

	var p *player
	err = coerce.Coerce(context.Background(), playerShape(t), playerNode(), p)
	require.ErrorIs(t, err, coerce.ErrUnsupportedShape)
}

type tuplePair struct {
	Name string `tuple:"0"`
	Hits int32  `tuple:"1"`
}

func TestCoerce_TupleStruct(t *testing.T) {
	sh := shape.TupleOf(shape.Prim(shape.Str), shape.Prim(shape.Int))
	node := value.Seq{value.Str("axe"), value.Int(-4)}

	var pair tuplePair
	require.NoError(t, coerce.Coerce(context.Background(), sh, node, &pair))
	require.Equal(t, tuplePair{Name: "axe", Hits: -4}, pair)
}

func TestCoerce_NumericConversions(t *testing.T) {
	intSh := shape.Prim(shape.Int)
	uintSh := shape.Prim(shape.Uint)
	floatSh := shape.Prim(shape.Float)
	feltSh := shape.Prim(shape.Felt)
	ctx := context.Background()

	t.Run("lossless cross-kind", func(t *testing.T) {
		var i64 int64
		require.NoError(t, coerce.Coerce(ctx, intSh, value.Uint(7), &i64))
		require.Equal(t, int64(7), i64)

		require.NoError(t, coerce.Coerce(ctx, intSh, value.Float(12), &i64))
		require.Equal(t, int64(12), i64)

		require.NoError(t, coerce.Coerce(ctx, intSh, value.FeltFromUint64(99), &i64))
		require.Equal(t, int64(99), i64)

		var u32 uint32
		require.NoError(t, coerce.Coerce(ctx, uintSh, value.Int(5), &u32))
		require.Equal(t, uint32(5), u32)

		var f64 float64
		require.NoError(t, coerce.Coerce(ctx, floatSh, value.Int(-3), &f64))
		require.Equal(t, float64(-3), f64)

		var felt *big.Int
		require.NoError(t, coerce.Coerce(ctx, feltSh, value.Uint(11), &felt))
		require.Zero(t, felt.Cmp(big.NewInt(11)))
	})

	t.Run("lossy conversions fail", func(t *testing.T) {
		var i64 int64
		require.ErrorIs(t, coerce.Coerce(ctx, intSh, value.Uint(math.MaxUint64), &i64), coerce.ErrShapeMismatch)
		require.ErrorIs(t, coerce.Coerce(ctx, intSh, value.Float(1.5), &i64), coerce.ErrShapeMismatch)

		var i8 int8
		require.ErrorIs(t, coerce.Coerce(ctx, intSh, value.Int(200), &i8), coerce.ErrShapeMismatch)

		var u64 uint64
		require.ErrorIs(t, coerce.Coerce(ctx, uintSh, value.Int(-1), &u64), coerce.ErrShapeMismatch)

		var u8 uint8
		require.ErrorIs(t, coerce.Coerce(ctx, uintSh, value.Uint(300), &u8), coerce.ErrShapeMismatch)

		var f64 float64
		require.ErrorIs(t, coerce.Coerce(ctx, floatSh, value.Int(math.MaxInt64), &f64), coerce.ErrShapeMismatch)

		var f32 float32
		require.ErrorIs(t, coerce.Coerce(ctx, floatSh, value.Float(1e300), &f32), coerce.ErrShapeMismatch)

		var felt *big.Int
		require.ErrorIs(t, coerce.Coerce(ctx, feltSh, value.Int(-1), &felt), coerce.ErrShapeMismatch)

		big64 := new(big.Int).Lsh(big.NewInt(1), 70)
		var i int64
		require.ErrorIs(t, coerce.Coerce(ctx, intSh, value.NewFelt(big64), &i), coerce.ErrShapeMismatch)
	})

	t.Run("kind is strict", func(t *testing.T) {
		var b bool
		require.ErrorIs(t, coerce.Coerce(ctx, shape.Prim(shape.Bool), value.Int(1), &b), coerce.ErrShapeMismatch)

		var s string
		require.ErrorIs(t, coerce.Coerce(ctx, shape.Prim(shape.Str), value.Int(1), &s), coerce.ErrShapeMismatch)
	})
}

func TestCoerce_Concurrent(t *testing.T) {
	sh := playerShape(t)
	node := playerNode()
	ctx := context.Background()

	const workers = 16
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func() {
			for i := 0; i < 50; i++ {
				var p player
				if err := coerce.Coerce(ctx, sh, node, &p); err != nil {
					errs <- fmt.Errorf("coerce: %w", err)
					return
				}
				if _, err := coerce.Flatten(ctx, sh, &p); err != nil {
					errs <- fmt.Errorf("flatten: %w", err)
					return
				}
			}
			errs <- nil
		}()
	}
	for w := 0; w < workers; w++ {
		require.NoError(t, <-errs)
	}
}
