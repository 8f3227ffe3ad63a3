package heatmap

// Summarize converts the value counts of one dimension column into
// percentage-of-total statistics. A zero total yields (0, {}).
// Counts are not validated; negative counts flow through the arithmetic.
func Summarize(valueCounts map[string]float64) (float64, map[string]SummaryEntry) {
	var total float64

	for _, count := range valueCounts {
		total += count
	}

	if total == 0 {
		return 0, map[string]SummaryEntry{}
	}

	summary := make(map[string]SummaryEntry, len(valueCounts))

	for value, count := range valueCounts {
		summary[value] = SummaryEntry{
			Count:      count,
			Percentage: count / total,
			TotalCount: total,
		}
	}

	return total, summary
}
