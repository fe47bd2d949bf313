package check

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
)

// WeightedScore parses a CSV of per-qualification results where the last two
// columns of each row are the weight and the match score, and returns the
// weighted average scaled to 0-100.
//
// Header rows and malformed rows are skipped because their numeric columns do
// not parse. Rows with a non-positive weight are ignored. Returns 0 when no
// valid weighted rows exist.
func WeightedScore(scoreCSV string) int {
	reader := csv.NewReader(strings.NewReader(scoreCSV))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var weightedSum, totalWeight float64

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(row) < 2 {
			continue
		}

		weight, werr := strconv.ParseFloat(strings.TrimSpace(row[len(row)-2]), 64)
		score, serr := strconv.ParseFloat(strings.TrimSpace(row[len(row)-1]), 64)
		if werr != nil || serr != nil {
			continue
		}

		if weight <= 0 {
			continue
		}

		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}

	// Per-row scores are 0-10, so the weighted average scales by 10.
	scaled := int(math.Round(10 * (weightedSum / totalWeight)))
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}
