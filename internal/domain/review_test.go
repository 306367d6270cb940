package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRating(t *testing.T) {
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.False(t, ValidRating(0))
	assert.False(t, ValidRating(6))
	assert.False(t, ValidRating(-1))
}

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int32
		want    float64
	}{
		{name: "empty", ratings: nil, want: 0},
		{name: "single", ratings: []int32{4}, want: 4},
		{name: "mean", ratings: []int32{5, 4, 3}, want: 4},
		{name: "non integral mean", ratings: []int32{5, 4}, want: 4.5},
		{name: "all ones", ratings: []int32{1, 1, 1, 1}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AverageRating(tt.ratings), 1e-9)
		})
	}
}
