package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/samber/lo"
)

// UnknownName is shown for references that do not resolve.
const UnknownName = "Unknown"

const dayLayout = "2006-01-02"

// Summary holds rating counts and derived averages for a slice of reviews.
type Summary struct {
	Star1        int     `json:"star_1"`
	Star2        int     `json:"star_2"`
	Star3        int     `json:"star_3"`
	Star4        int     `json:"star_4"`
	Star5        int     `json:"star_5"`
	Total        int     `json:"total"`
	AvgRating    float64 `json:"avg_rating"`
	Percent5Star float64 `json:"percent_5_star"`
}

type AgentSummary struct {
	AgentID        string `json:"agent_id"`
	AgentName      string `json:"agent_name"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	ImageURL       string `json:"image_url,omitempty"`
	Summary
	LastReviewDate *string `json:"last_review_date"`
}

type DailySummary struct {
	Date string `json:"date"`
	Summary
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func (s *Summary) add(rating int) {
	switch rating {
	case 1:
		s.Star1++
	case 2:
		s.Star2++
	case 3:
		s.Star3++
	case 4:
		s.Star4++
	case 5:
		s.Star5++
	default:
		return
	}
	s.Total++
}

func (s *Summary) finalize() {
	if s.Total == 0 {
		s.AvgRating = 0
		s.Percent5Star = 0
		return
	}
	sum := s.Star1 + 2*s.Star2 + 3*s.Star3 + 4*s.Star4 + 5*s.Star5
	s.AvgRating = Round2(float64(sum) / float64(s.Total))
	s.Percent5Star = Round2(100 * float64(s.Star5) / float64(s.Total))
}

// Summarize counts ratings in [1,5]; anything else is ignored.
func Summarize(reviews []models.Review) Summary {
	var s Summary
	for _, r := range reviews {
		s.add(r.Rating)
	}
	s.finalize()
	return s
}

// ByAgent groups reviews per agent. Reviews whose agent is not in agents are
// left out. Department names fall back to UnknownName. Results are sorted by
// total, descending.
func ByAgent(reviews []models.Review, agents []models.Agent, departments []models.Department) []AgentSummary {
	agentByID := lo.KeyBy(agents, func(a models.Agent) string { return a.ID })
	deptByID := lo.KeyBy(departments, func(d models.Department) string { return d.ID })

	groups := lo.GroupBy(lo.Filter(reviews, func(r models.Review, _ int) bool {
		_, ok := agentByID[r.AgentID]
		return ok
	}), func(r models.Review) string { return r.AgentID })

	out := make([]AgentSummary, 0, len(groups))
	for id, group := range groups {
		agent := agentByID[id]
		as := AgentSummary{
			AgentID:        id,
			AgentName:      agent.DisplayName,
			DepartmentID:   agent.DepartmentID,
			DepartmentName: UnknownName,
			ImageURL:       agent.ImageURL,
			Summary:        Summarize(group),
			LastReviewDate: lastReviewDate(group),
		}
		if as.AgentName == "" {
			as.AgentName = UnknownName
		}
		if d, ok := deptByID[agent.DepartmentID]; ok {
			as.DepartmentName = d.Name
		}
		out = append(out, as)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].AgentName != out[j].AgentName {
			return out[i].AgentName < out[j].AgentName
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out
}

func lastReviewDate(group []models.Review) *string {
	var (
		latest time.Time
		ts     string
	)
	for _, r := range group {
		t, err := time.Parse(time.RFC3339, r.ReviewTimestamp)
		if err != nil {
			continue
		}
		if ts == "" || t.After(latest) {
			latest, ts = t, r.ReviewTimestamp
		}
	}
	if ts == "" {
		return nil
	}
	return &ts
}

// ByDay returns one bucket per calendar day in r, including empty days,
// sorted ascending. A review lands in the bucket for its calendar day in the
// location of r.From.
func ByDay(reviews []models.Review, r DateRange) []DailySummary {
	buckets := make(map[string]*DailySummary)
	var days []string

	start := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, r.From.Location())
	for d := start; d.Before(r.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		if _, ok := buckets[key]; ok {
			continue
		}
		buckets[key] = &DailySummary{Date: key}
		days = append(days, key)
	}

	for _, rv := range reviews {
		t, err := time.Parse(time.RFC3339, rv.ReviewTimestamp)
		if err != nil {
			continue
		}
		if b, ok := buckets[t.In(r.From.Location()).Format(dayLayout)]; ok {
			b.add(rv.Rating)
		}
	}

	sort.Strings(days)
	out := make([]DailySummary, 0, len(days))
	for _, key := range days {
		b := buckets[key]
		b.finalize()
		out = append(out, *b)
	}
	return out
}
