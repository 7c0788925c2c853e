package model

// CompareMetrics holds per-listing measurements against a target.
type CompareMetrics struct {
	DistanceKM *float64 `json:"distance_km"`
}

// CompareItem pairs a listing with its metrics.
type CompareItem struct {
	Listing Listing        `json:"listing"`
	Metrics CompareMetrics `json:"metrics"`
}

// CompareResult is the outcome of comparing a workspace's listings against
// one target.
type CompareResult struct {
	Target Target        `json:"target"`
	Items  []CompareItem `json:"items"`
}
