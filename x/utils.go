package x

func Ternary[T any](cond bool, v1 T, v2 T) T {
	if cond {
		return v1
	}

	return v2
}

// Coalesce returns the first non-zero value, or the zero value if all are zero.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
