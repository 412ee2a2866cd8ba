// Package table provides the partitioned aggregate and join index primitives
// the weighting pipeline is built on. Each primitive is a single pass that
// builds a key to value map; callers attach the result per row in a second pass.
package table

// Sum is a partitioned sum. Count is the number of non-null contributions,
// so a partition with Count == 0 has a null sum.
type Sum struct {
	Total float64
	Count int
}

// Null reports whether no row contributed a value to the partition
func (s Sum) Null() bool {
	return s.Count == 0
}

// PartitionSum sums value over rows grouped by key. Rows for which value
// reports false are null and contribute nothing, though their partition
// still appears in the result.
func PartitionSum[T any, K comparable](rows []T, key func(T) K, value func(T) (float64, bool)) map[K]Sum {
	sums := make(map[K]Sum)
	for _, row := range rows {
		k := key(row)
		s := sums[k]
		if v, ok := value(row); ok {
			s.Total += v
			s.Count++
		}
		sums[k] = s
	}
	return sums
}

// Index builds a multi-map from key to matching rows, preserving row order
func Index[T any, K comparable](rows []T, key func(T) K) map[K][]T {
	index := make(map[K][]T)
	for _, row := range rows {
		k := key(row)
		index[k] = append(index[k], row)
	}
	return index
}

// GroupOrder returns the distinct keys of rows in first-seen order
func GroupOrder[T any, K comparable](rows []T, key func(T) K) []K {
	seen := make(map[K]struct{})
	var order []K
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		order = append(order, k)
	}
	return order
}

// Ratio divides numerator by denominator, reporting false for a zero denominator
func Ratio(numerator, denominator float64) (float64, bool) {
	if denominator == 0 {
		return 0, false
	}
	return numerator / denominator, true
}
