package engine

import "github.com/martinbsolomon/philoca/internal/model"

// Classify partitions the sample set against a reference threshold. Strictly
// greater goes to Above; everything else, including values exactly at the
// threshold, goes to Below. The tie-break decides which color bucket a
// borderline sample renders in and must not change.
func Classify(ss model.SampleSet, threshold float64) model.Classification {
	c := model.Classification{Threshold: threshold}
	for _, s := range ss.Samples {
		if s.Value > threshold {
			c.Above = append(c.Above, s)
		} else {
			c.Below = append(c.Below, s)
		}
	}
	return c
}
