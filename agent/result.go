package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// Coercion converts a raw model reply into the value stored in the scope.
type Coercion interface {
	Coerce(raw string) (any, error)
	// Kind names the coercion for logs and capability listings.
	Kind() string
}

type textResult struct{}

// TextResult stores the reply unchanged.
func TextResult() Coercion { return textResult{} }

func (textResult) Coerce(raw string) (any, error) { return raw, nil }
func (textResult) Kind() string                    { return "text" }

type floatResult struct{}

// FloatResult parses the reply as a float64. After trimming surrounding
// whitespace the reply must be a bare numeric literal; anything else fails.
func FloatResult() Coercion { return floatResult{} }

func (floatResult) Kind() string { return "float" }

func (floatResult) Coerce(raw string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("reply %q is not a numeric literal", raw)
	}

	return v, nil
}

// Enum is a closed set of string variants with an explicit unknown variant
// produced for replies that match none of them.
type Enum[T ~string] struct {
	values  []T
	unknown T
}

// NewEnum declares an enumeration. The unknown variant is always part of the set.
func NewEnum[T ~string](unknown T, values ...T) Enum[T] {
	all := make([]T, 0, len(values)+1)

	for _, v := range values {
		if v != unknown {
			all = append(all, v)
		}
	}

	all = append(all, unknown)

	return Enum[T]{values: all, unknown: unknown}
}

// Values returns every variant including the unknown variant.
func (e Enum[T]) Values() []T {
	cp := make([]T, len(e.values))
	copy(cp, e.values)

	return cp
}

// Unknown returns the fallback variant.
func (e Enum[T]) Unknown() T { return e.unknown }

// Parse matches raw case-insensitively against the variants, ignoring
// surrounding whitespace, quotes and trailing punctuation.
func (e Enum[T]) Parse(raw string) T {
	s := strings.Trim(strings.TrimSpace(raw), "\"'`.!*")

	for _, v := range e.values {
		if strings.EqualFold(s, string(v)) {
			return v
		}
	}

	return e.unknown
}

type enumResult[T ~string] struct {
	enum Enum[T]
}

// EnumResult stores the reply as a variant of enum. Unmatched replies become
// the unknown variant and never fail.
func EnumResult[T ~string](enum Enum[T]) Coercion { return enumResult[T]{enum: enum} }

func (r enumResult[T]) Coerce(raw string) (any, error) { return r.enum.Parse(raw), nil }
func (r enumResult[T]) Kind() string                    { return "enum" }
