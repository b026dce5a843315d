package service

import (
	"github.com/godilite/review-insights/internal/metrics"
)

// Query selects the reviews a dashboard view is computed over. Empty id
// lists mean no filter.
type Query struct {
	Range         metrics.DateRange
	AgentIDs      []string
	DepartmentIDs []string
}

// PeriodChange is the percentage change of each headline figure against the
// previous period.
type PeriodChange struct {
	Total        float64 `json:"total"`
	AvgRating    float64 `json:"avg_rating"`
	Percent5Star float64 `json:"percent_5_star"`
}

type Overview struct {
	Range           metrics.DateRange `json:"range"`
	PreviousRange   metrics.DateRange `json:"previous_range"`
	Current         metrics.Summary   `json:"current"`
	Previous        metrics.Summary   `json:"previous"`
	Change          PeriodChange      `json:"change"`
	Sources         map[string]int    `json:"sources"`
	UnresolvedCount int               `json:"unresolved_count"`
}
