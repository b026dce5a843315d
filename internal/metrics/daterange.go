package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/samber/lo"
)

var ErrUnknownRange = errors.New("unknown date range")

// DateRange is the half-open window [From, To).
type DateRange struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Label string    `json:"label,omitempty"`
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

func (r DateRange) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// PreviousPeriod returns the equal-length window ending where r starts. It is
// a plain duration shift and ignores calendar month lengths.
func PreviousPeriod(r DateRange) DateRange {
	d := r.Duration()
	prev := DateRange{From: r.From.Add(-d), To: r.From}
	if r.Label != "" {
		prev.Label = "previous_" + r.Label
	}
	return prev
}

const (
	RangeToday      = "today"
	RangeYesterday  = "yesterday"
	RangeLast7Days  = "last_7_days"
	RangeLast30Days = "last_30_days"
	RangeLast90Days = "last_90_days"
	RangeThisMonth  = "this_month"
	RangeLastMonth  = "last_month"
	RangeThisYear   = "this_year"
	RangeLastYear   = "last_year"
)

var rangeNames = []string{
	RangeToday, RangeYesterday, RangeLast7Days, RangeLast30Days, RangeLast90Days,
	RangeThisMonth, RangeLastMonth, RangeThisYear, RangeLastYear,
}

// NamedRange computes a named window relative to now, using the calendar of
// now's location. Callers pass now explicitly so results are reproducible.
func NamedRange(name string, now time.Time) (DateRange, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	year := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)

	r := DateRange{Label: name}
	switch name {
	case RangeToday:
		r.From, r.To = today, tomorrow
	case RangeYesterday:
		r.From, r.To = today.AddDate(0, 0, -1), today
	case RangeLast7Days:
		r.From, r.To = today.AddDate(0, 0, -6), tomorrow
	case RangeLast30Days:
		r.From, r.To = today.AddDate(0, 0, -29), tomorrow
	case RangeLast90Days:
		r.From, r.To = today.AddDate(0, 0, -89), tomorrow
	case RangeThisMonth:
		r.From, r.To = month, month.AddDate(0, 1, 0)
	case RangeLastMonth:
		r.From, r.To = month.AddDate(0, -1, 0), month
	case RangeThisYear:
		r.From, r.To = year, year.AddDate(1, 0, 0)
	case RangeLastYear:
		r.From, r.To = year.AddDate(-1, 0, 0), year
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownRange, name)
	}
	return r, nil
}

// NamedRanges returns every named window relative to now.
func NamedRanges(now time.Time) []DateRange {
	return lo.Map(rangeNames, func(name string, _ int) DateRange {
		r, _ := NamedRange(name, now)
		return r
	})
}

// FilterByDate keeps reviews whose timestamp falls in r. Reviews with an
// unparsable timestamp are dropped.
func FilterByDate(reviews []models.Review, r DateRange) []models.Review {
	return lo.Filter(reviews, func(rv models.Review, _ int) bool {
		t, err := time.Parse(time.RFC3339, rv.ReviewTimestamp)
		return err == nil && r.Contains(t)
	})
}

// FilterByAgents keeps reviews of the given agents. An empty list means no
// filter and returns the input as is.
func FilterByAgents(reviews []models.Review, agentIDs []string) []models.Review {
	if len(agentIDs) == 0 {
		return reviews
	}
	set := lo.SliceToMap(agentIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	return lo.Filter(reviews, func(rv models.Review, _ int) bool {
		_, ok := set[rv.AgentID]
		return ok
	})
}

// FilterByDepartments follows the same empty-means-all rule as FilterByAgents.
func FilterByDepartments(reviews []models.Review, departmentIDs []string) []models.Review {
	if len(departmentIDs) == 0 {
		return reviews
	}
	set := lo.SliceToMap(departmentIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	return lo.Filter(reviews, func(rv models.Review, _ int) bool {
		_, ok := set[rv.DepartmentID]
		return ok
	})
}
