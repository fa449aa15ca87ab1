package scoring

import (
	"math"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
)

// ReferenceQuestionCount is the module length the band table is calibrated
// for. Modules of other lengths are still graded on the same absolute
// thresholds.
const ReferenceQuestionCount = 40

type bandThreshold struct {
	minCorrect int
	band       models.Band
}

// bandTable is ordered from the highest threshold down.
var bandTable = []bandThreshold{
	{39, 9.0},
	{37, 8.5},
	{35, 8.0},
	{32, 7.5},
	{30, 7.0},
	{26, 6.5},
	{23, 6.0},
	{18, 5.5},
	{16, 5.0},
	{13, 4.5},
	{10, 4.0},
	{8, 3.5},
	{6, 3.0},
	{4, 2.5},
}

// BandFromRawCount converts a raw correct count into a band. The first
// threshold met wins; counts below the lowest threshold score 0.
func BandFromRawCount(count int) models.Band {
	for _, t := range bandTable {
		if count >= t.minCorrect {
			return t.band
		}
	}
	return models.MinBand
}

// RoundToHalfBand snaps a mean band to the IELTS scale: a fraction below .25
// rounds down to the whole band, [.25, .75) becomes the half band and .75 or
// more rounds up to the next whole band.
func RoundToHalfBand(x float64) models.Band {
	if math.IsNaN(x) || x <= float64(models.MinBand) {
		return models.MinBand
	}
	if x >= float64(models.MaxBand) {
		return models.MaxBand
	}

	whole := math.Floor(x)
	frac := x - whole

	switch {
	case frac < 0.25:
		return models.Band(whole)
	case frac < 0.75:
		return models.Band(whole + 0.5)
	default:
		return models.Band(whole + 1)
	}
}
