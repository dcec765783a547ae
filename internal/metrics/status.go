package metrics

import "sort"

// StatusBucket is one row of the status-code breakdown.
type StatusBucket struct {
	Code  string
	Count int64
}

// SortStatusCounts flattens a status->count map into rows sorted by
// descending count, ties broken by code for stable output.
func SortStatusCounts(counts map[string]int64) []StatusBucket {
	if len(counts) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(counts))
	for code, count := range counts {
		rows = append(rows, StatusBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
