package schema

import "time"

// Sample is a single point of a series: a live reading or a row loaded
// from history.
type Sample struct {
	Series    string    `json:"series"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

func (s Sample) Name() string {
	return "sample"
}

// Decision is the outcome of running one accepted Sample through a
// detector. It carries the window statistics that produced the verdict.
// Decisions are derived data and are never written back to history.
type Decision struct {
	Series    string    `json:"series"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`

	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	ZScore  float64 `json:"z_score"`
	Outlier bool    `json:"outlier"`
}

func (d Decision) Name() string {
	return "decision"
}
