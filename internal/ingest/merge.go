package ingest

import (
	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/samber/lo"
)

// SourceField carries the batch label on merged rows. The leading underscore
// keeps it clear of spreadsheet columns named "Source".
const SourceField = "_source"

// Batch is one normalized export together with its provenance label.
type Batch struct {
	Source string
	Table  Table
}

// Merged is the concatenation of several batches.
type Merged struct {
	Rows   []Row          `json:"rows"`
	Counts map[string]int `json:"counts"`
}

// Merge concatenates the rows of every batch in order. Each row keeps its own
// fields; no schema unification happens beyond the Agent key. Rows are copied
// so the input tables are left untouched.
func Merge(batches ...Batch) Merged {
	counts := make(map[string]int, len(batches))
	rows := lo.FlatMap(batches, func(b Batch, _ int) []Row {
		counts[b.Source] += len(b.Table.Rows)
		return lo.Map(b.Table.Rows, func(r Row, _ int) Row {
			cp := make(Row, len(r)+1)
			for k, v := range r {
				cp[k] = v
			}
			if b.Source != "" {
				cp[SourceField] = b.Source
			}
			return cp
		})
	})
	return Merged{Rows: rows, Counts: counts}
}

// DedupByExternalID drops later reviews whose ExternalID was already seen.
// Reviews without an ExternalID are always kept.
func DedupByExternalID(reviews []models.Review) []models.Review {
	seen := make(map[string]struct{}, len(reviews))
	return lo.Filter(reviews, func(r models.Review, _ int) bool {
		if r.ExternalID == "" {
			return true
		}
		if _, dup := seen[r.ExternalID]; dup {
			return false
		}
		seen[r.ExternalID] = struct{}{}
		return true
	})
}
