package enums

import (
	"fmt"
	"slices"
)

// values is the closed set of constants backing one string enum.
type values[T ~string] struct {
	kind string
	all  []T
}

func newValues[T ~string](kind string, all ...T) values[T] {
	return values[T]{kind: kind, all: all}
}

func (v values[T]) has(value T) bool {
	return slices.Contains(v.all, value)
}

func (v values[T]) parse(raw string) (T, error) {
	if value := T(raw); v.has(value) {
		return value, nil
	}
	return "", fmt.Errorf("invalid %s %q", v.kind, raw)
}
