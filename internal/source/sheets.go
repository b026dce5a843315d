package source

import (
	"context"
	"fmt"

	"github.com/godilite/review-insights/internal/ingest"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsFetcher reads a range through the Google Sheets API and renders it
// in the same CSV shape the public export produces.
type SheetsFetcher struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsFetcher returns ErrNotConfigured when no spreadsheet id is given,
// so callers can fall back to the public CSV.
func NewSheetsFetcher(ctx context.Context, spreadsheetID, readRange string, opts ...option.ClientOption) (*SheetsFetcher, error) {
	if spreadsheetID == "" || len(opts) == 0 {
		return nil, ErrNotConfigured
	}
	if readRange == "" {
		readRange = "A:Z"
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsFetcher{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

func (f *SheetsFetcher) Fetch(ctx context.Context) (string, error) {
	resp, err := f.svc.Spreadsheets.Values.Get(f.spreadsheetID, f.readRange).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sheets values %s!%s: %w", f.spreadsheetID, f.readRange, err)
	}
	return valuesToCSV(resp.Values), nil
}

// valuesToCSV pads the header row to the widest row; the API drops trailing
// empty cells, and missing header cells must still get a col_<index> name.
func valuesToCSV(values [][]interface{}) string {
	if len(values) == 0 {
		return ""
	}

	width := 0
	for _, row := range values {
		width = max(width, len(row))
	}

	headers := make([]string, width)
	copy(headers, cellStrings(values[0]))

	rows := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		rows = append(rows, cellStrings(row))
	}
	return ingest.Format(headers, rows)
}

func cellStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
