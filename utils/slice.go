package utils

func Filter[T any](src []T, predicate func(T) bool) []T {
	dst := make([]T, 0, len(src))
	for _, item := range src {
		if predicate(item) {
			dst = append(dst, item)
		}
	}
	return dst
}

func Map[T any, U any](src []T, mapper func(T) U) []U {
	dst := make([]U, 0, len(src))
	for _, item := range src {
		dst = append(dst, mapper(item))
	}
	return dst
}

// DedupeBy keeps the last occurrence of every key, preserving first-seen order.
func DedupeBy[T any, K comparable](items []T, keyFunc func(T) K) []T {
	index := make(map[K]int, len(items))
	dst := make([]T, 0, len(items))
	for _, item := range items {
		key := keyFunc(item)
		if i, ok := index[key]; ok {
			dst[i] = item
			continue
		}
		index[key] = len(dst)
		dst = append(dst, item)
	}
	return dst
}
