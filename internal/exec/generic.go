package exec

import "golang.org/x/exp/constraints"

// compareOrdered returns -1, 0, or 1 comparing two ordered values of the
// same type, the common three-way comparison every per-kind branch in
// compareAt reduces to once its operand type is known.
func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
