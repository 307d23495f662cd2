package binio

// Align rounds x up to the next multiple of n. Align(x, 0) == x.
func Align[T ~int | ~int64 | ~uint32 | ~uint64](x, n T) T {
	if n == 0 {
		return x
	}
	return (x + n - 1) / n * n
}
