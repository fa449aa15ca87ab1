package scoring

import (
	"testing"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBandFromRawCount(t *testing.T) {
	tests := []struct {
		count int
		want  models.Band
	}{
		{40, 9.0},
		{39, 9.0},
		{38, 8.5},
		{37, 8.5},
		{35, 8.0},
		{33, 7.5},
		{30, 7.0},
		{27, 6.5},
		{23, 6.0},
		{20, 5.5},
		{16, 5.0},
		{14, 4.5},
		{10, 4.0},
		{9, 3.5},
		{6, 3.0},
		{5, 2.5},
		{4, 2.5},
		{3, 0},
		{0, 0},
		{-1, 0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, BandFromRawCount(tc.count), "count %d", tc.count)
	}
}

func TestBandFromRawCount_Monotonic(t *testing.T) {
	prev := BandFromRawCount(0)
	for count := 1; count <= 45; count++ {
		band := BandFromRawCount(count)
		assert.GreaterOrEqual(t, band, prev, "count %d", count)
		assert.True(t, band.Valid(), "count %d produced off-scale band %v", count, band)
		prev = band
	}
}

func TestRoundToHalfBand(t *testing.T) {
	tests := []struct {
		mean float64
		want models.Band
	}{
		{6.125, 6.0},
		{6.375, 6.5},
		{6.625, 6.5},
		{6.875, 7.0},
		{6.75, 7.0},
		{6.25, 6.5},
		{6.0, 6.0},
		{6.5, 6.5},
		{6.1, 6.0},
		{6.7, 6.5},
		{8.9, 9.0},
		{9.0, 9.0},
		{0.2, 0},
		{0, 0},
		{-1, 0},
		{12, 9.0},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, RoundToHalfBand(tc.mean), "mean %v", tc.mean)
	}
}
