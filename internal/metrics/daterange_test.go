package metrics

import (
	"testing"
	"time"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByDate(t *testing.T) {
	r := DateRange{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	reviews := []models.Review{
		{ID: "from", ReviewTimestamp: "2025-01-01T00:00:00Z"},
		{ID: "inside", ReviewTimestamp: "2025-01-05T12:00:00Z"},
		{ID: "to", ReviewTimestamp: "2025-01-08T00:00:00Z"},
		{ID: "before", ReviewTimestamp: "2024-12-31T23:59:59Z"},
		{ID: "offset", ReviewTimestamp: "2025-01-07T20:00:00-05:00"},
		{ID: "bad", ReviewTimestamp: "yesterday"},
	}

	got := FilterByDate(reviews, r)

	ids := make([]string, 0, len(got))
	for _, rv := range got {
		ids = append(ids, rv.ID)
	}
	assert.Equal(t, []string{"from", "inside"}, ids)
}

func TestFilterByAgents(t *testing.T) {
	reviews := []models.Review{
		{ID: "1", AgentID: "a1", DepartmentID: "d1"},
		{ID: "2", AgentID: "a2", DepartmentID: "d2"},
		{ID: "3", AgentID: "a1", DepartmentID: "d2"},
	}

	t.Run("empty list passes everything through", func(t *testing.T) {
		got := FilterByAgents(reviews, nil)
		assert.Equal(t, reviews, got)
		assert.Equal(t, reviews, FilterByAgents(reviews, []string{}))
	})

	t.Run("filters by agent", func(t *testing.T) {
		got := FilterByAgents(reviews, []string{"a1"})
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
	})

	t.Run("departments follow the same rule", func(t *testing.T) {
		assert.Equal(t, reviews, FilterByDepartments(reviews, nil))
		got := FilterByDepartments(reviews, []string{"d2"})
		require.Len(t, got, 2)
		assert.Equal(t, "2", got[0].ID)
	})
}

func TestPreviousPeriod(t *testing.T) {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("seven days", func(t *testing.T) {
		prev := PreviousPeriod(DateRange{From: d, To: d.AddDate(0, 0, 7), Label: RangeLast7Days})
		assert.Equal(t, d.AddDate(0, 0, -7), prev.From)
		assert.Equal(t, d, prev.To)
		assert.Equal(t, "previous_last_7_days", prev.Label)
	})

	t.Run("not calendar aware", func(t *testing.T) {
		march := DateRange{
			From: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		}
		prev := PreviousPeriod(march)
		assert.Equal(t, time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC), prev.From)
		assert.Equal(t, 31*24*time.Hour, prev.Duration())
	})
}

func TestNamedRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		name     string
		from, to time.Time
	}{
		{RangeToday, day(2025, 3, 15), day(2025, 3, 16)},
		{RangeYesterday, day(2025, 3, 14), day(2025, 3, 15)},
		{RangeLast7Days, day(2025, 3, 9), day(2025, 3, 16)},
		{RangeLast30Days, day(2025, 2, 14), day(2025, 3, 16)},
		{RangeLast90Days, day(2024, 12, 16), day(2025, 3, 16)},
		{RangeThisMonth, day(2025, 3, 1), day(2025, 4, 1)},
		{RangeLastMonth, day(2025, 2, 1), day(2025, 3, 1)},
		{RangeThisYear, day(2025, 1, 1), day(2026, 1, 1)},
		{RangeLastYear, day(2024, 1, 1), day(2025, 1, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NamedRange(tc.name, now)
			require.NoError(t, err)
			assert.Equal(t, tc.from, r.From)
			assert.Equal(t, tc.to, r.To)
			assert.Equal(t, tc.name, r.Label)
		})
	}

	t.Run("unknown name", func(t *testing.T) {
		_, err := NamedRange("fortnight", now)
		assert.ErrorIs(t, err, ErrUnknownRange)
	})

	t.Run("depends on the reference instant", func(t *testing.T) {
		a, _ := NamedRange(RangeThisMonth, time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
		b, _ := NamedRange(RangeThisMonth, time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC))
		assert.NotEqual(t, a.From, b.From)
	})

	t.Run("all named ranges", func(t *testing.T) {
		all := NamedRanges(now)
		assert.Len(t, all, len(rangeNames))
		for _, r := range all {
			assert.True(t, r.From.Before(r.To), r.Label)
		}
	})
}
