package dataset

import "math"

// VideoStats averages video metadata over a sample set.
type VideoStats struct {
	AvgDuration *float64 `json:"avg_duration"`
	AvgFPS      *float64 `json:"avg_fps"`
	AvgWords    *float64 `json:"avg_words"`
	SampleCount int      `json:"sample_count"`
}

// Stats is the per-dataset annotation summary.
type Stats struct {
	Total       int                 `json:"total"`
	Completed   int                 `json:"completed"`
	Incomplete  int                 `json:"incomplete"`
	Pending     int                 `json:"pending"`
	AvgSegments *float64            `json:"avg_segments"`
	AvgScores   map[string]*float64 `json:"avg_scores"`
	VideoStats  struct {
		All       VideoStats `json:"all"`
		Completed VideoStats `json:"completed"`
	} `json:"video_stats"`
}

// ComputeStats summarizes the annotations of a dataset: completion counts,
// average segment count and rating scores over annotated samples, and video
// duration/fps/caption-word averages over all samples versus completed ones.
func ComputeStats(samples []Sample, annotations map[int]*Annotation) Stats {
	var ret Stats
	ret.AvgScores = make(map[string]*float64, len(RatingFields))

	var totalSegments, segmentedCount int
	scores := make(map[string][]float64, len(RatingFields))
	completedIndices := make(map[int]bool)

	for index, annotation := range annotations {
		if len(annotation.Segments) > 0 {
			totalSegments += len(annotation.Segments)
			segmentedCount++
		}
		for field, rating := range map[string]*float64{
			"overall": annotation.Overall,
			"camera":  annotation.Camera,
			"subject": annotation.Subject,
			"motion":  annotation.Motion,
			"scene":   annotation.Scene,
			"spatial": annotation.Spatial,
		} {
			if rating != nil {
				scores[field] = append(scores[field], *rating)
			}
		}
		if annotation.IsComplete() {
			ret.Completed++
			completedIndices[index] = true
		} else {
			ret.Incomplete++
		}
	}
	ret.Total = len(annotations)
	ret.Pending = len(samples) - len(annotations)
	if ret.Pending < 0 {
		ret.Pending = 0
	}

	if segmentedCount > 0 {
		ret.AvgSegments = round2(float64(totalSegments) / float64(segmentedCount))
	}
	for _, field := range RatingFields {
		if values := scores[field]; len(values) > 0 {
			ret.AvgScores[field] = round2(mean(values))
		} else {
			ret.AvgScores[field] = nil
		}
	}

	ret.VideoStats.All = videoStats(samples, nil)
	ret.VideoStats.Completed = videoStats(samples, completedIndices)
	return ret
}

// videoStats averages metadata over all samples, or over the subset whose
// index is in keep when keep is non-nil.
func videoStats(samples []Sample, keep map[int]bool) VideoStats {
	var durations, fps, words []float64
	count := 0
	for index, sample := range samples {
		if keep != nil && !keep[index] {
			continue
		}
		count++
		if sample.Metadata.Duration != nil {
			durations = append(durations, *sample.Metadata.Duration)
		}
		if sample.Metadata.FPS != nil {
			fps = append(fps, *sample.Metadata.FPS)
		}
		if wordCount := sample.WordCount(); wordCount > 0 {
			words = append(words, float64(wordCount))
		}
	}

	ret := VideoStats{SampleCount: count}
	if len(durations) > 0 {
		ret.AvgDuration = round2(mean(durations))
	}
	if len(fps) > 0 {
		ret.AvgFPS = round2(mean(fps))
	}
	if len(words) > 0 {
		ret.AvgWords = round2(mean(words))
	}
	return ret
}

func mean(values []float64) float64 {
	var sum float64
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func round2(value float64) *float64 {
	rounded := math.Round(value*100) / 100
	return &rounded
}
