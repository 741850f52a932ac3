package coerce

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by Coerce and Flatten. Callers match them with
// errors.Is; the wrapped message carries the offending path detail.
var (
	// ErrShapeMismatch reports a node whose runtime variant is incompatible
	// with the expected shape: wrong category, lossy numeric narrowing, wrong
	// sequence length, or unexpected payload presence/absence.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnknownVariant reports a tagged node whose tag has no case in the
	// union shape's known set.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrMissingField reports a tagged field whose external key is absent
	// from the record node.
	ErrMissingField = errors.New("missing field")

	// ErrUnsupportedShape reports a descriptor the coercer does not
	// recognize. It marks an extensibility gap, not bad input data.
	ErrUnsupportedShape = errors.New("unsupported shape")
)

func mismatchf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrShapeMismatch)...)
}

func unknownVariantf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnknownVariant)...)
}

func missingFieldf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrMissingField)...)
}

func unsupportedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnsupportedShape)...)
}
