package ingest

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/google/uuid"
)

var (
	idKeys         = []string{"id", "review id", "review_id"}
	externalIDKeys = []string{"external id", "external_id", "response id", "response_id"}
	ratingKeys     = []string{"rating", "stars", "star rating", "score"}
	commentKeys    = []string{"comment", "comments", "review", "feedback"}
	timestampKeys  = []string{"timestamp", "review_timestamp", "date", "submitted", "submitted at", "created_at"}

	leadingNumberRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
		"1/2/2006",
	}
)

// ConvertOptions controls how merged rows become Review records.
type ConvertOptions struct {
	// Location is the zone for timestamps that carry no offset. Defaults to UTC.
	Location *time.Location
	// NewID assigns ids to rows that have none. Defaults to uuid.NewString.
	NewID func() string
}

// ToReviews converts normalized rows into Review records. Every record gets a
// fresh ID. A sheet "ID" column is kept as ExternalID when no response id is
// present, so the same row exported by two sources is stored twice. Agents
// are looked up by agent key first, then display name; rows that match
// neither get models.UnknownID. Nothing here fails: bad ratings become 0 and bad
// timestamps stay empty, so the row is kept but excluded from metrics.
func ToReviews(rows []Row, agents []models.Agent, opts ConvertOptions) []models.Review {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	byKey := make(map[string]models.Agent, len(agents))
	byName := make(map[string]models.Agent, len(agents))
	for _, a := range agents {
		byKey[strings.ToLower(a.AgentKey)] = a
		if a.DisplayName != "" {
			byName[strings.ToLower(a.DisplayName)] = a
		}
	}

	reviews := make([]models.Review, 0, len(rows))
	for _, row := range rows {
		r := models.Review{
			ID:              opts.NewID(),
			ExternalID:      lookup(row, externalIDKeys, false),
			AgentKey:        strings.TrimSpace(row[AgentField]),
			AgentID:         models.UnknownID,
			DepartmentID:    models.UnknownID,
			Rating:          ParseRating(lookup(row, ratingKeys, true)),
			Comment:         lookup(row, commentKeys, true),
			ReviewTimestamp: ParseTimestamp(lookup(row, timestampKeys, true), opts.Location),
			Source:          row[SourceField],
		}
		if r.ExternalID == "" {
			r.ExternalID = lookup(row, idKeys, false)
		}

		key := strings.ToLower(r.AgentKey)
		agent, ok := byKey[key]
		if !ok {
			agent, ok = byName[key]
		}
		if ok && key != "" {
			r.AgentID = agent.ID
			if agent.DepartmentID != "" {
				r.DepartmentID = agent.DepartmentID
			}
		}

		reviews = append(reviews, r)
	}
	return reviews
}

// ParseRating reads the leading number of a cell ("5", "4 stars", "3.0").
// Anything else, including fractional ratings, returns 0.
func ParseRating(s string) int {
	m := leadingNumberRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

// ParseTimestamp accepts the layouts spreadsheet exports commonly use and
// returns RFC 3339 in loc, or "" when nothing matches. Inputs carrying their
// own offset are converted so the date part reads as a local calendar day.
func ParseTimestamp(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc).Format(time.RFC3339)
		}
	}
	return ""
}

// lookup finds a value by exact (case-insensitive) header name first. With
// fuzzy set it then falls back to the first header, in sorted order, that
// contains one of the names.
func lookup(row Row, names []string, fuzzy bool) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		if k == SourceField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range names {
		for _, k := range keys {
			if strings.ToLower(k) == name {
				return row[k]
			}
		}
	}
	if !fuzzy {
		return ""
	}
	for _, name := range names {
		for _, k := range keys {
			if strings.Contains(strings.ToLower(k), name) {
				return row[k]
			}
		}
	}
	return ""
}
