package metrics

import (
	"reflect"
	"testing"
)

func TestSortStatusCounts(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int64
		want   []StatusBucket
	}{
		{
			name:   "nil counts",
			counts: nil,
			want:   nil,
		},
		{
			name:   "empty counts",
			counts: map[string]int64{},
			want:   nil,
		},
		{
			name:   "single code",
			counts: map[string]int64{"200": 10},
			want: []StatusBucket{
				{Code: "200", Count: 10},
			},
		},
		{
			name:   "sorted by count descending",
			counts: map[string]int64{"200": 10, "500": 5, "404": 20},
			want: []StatusBucket{
				{Code: "404", Count: 20},
				{Code: "200", Count: 10},
				{Code: "500", Count: 5},
			},
		},
		{
			name:   "ties broken by code",
			counts: map[string]int64{"404": 10, "200": 10},
			want: []StatusBucket{
				{Code: "200", Count: 10},
				{Code: "404", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortStatusCounts(tt.counts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortStatusCounts() = %v, want %v", got, tt.want)
			}
		})
	}
}
