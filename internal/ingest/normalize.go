package ingest

import (
	"fmt"
	"strings"
)

// Row is one normalized spreadsheet row keyed by header.
type Row map[string]string

// Table is the tokenizer+normalizer output for one CSV export.
type Table struct {
	Headers  []string      `json:"headers"`
	Rows     []Row         `json:"rows"`
	Strategy AgentStrategy `json:"-"`
	Lines    int           `json:"-"`
	Skipped  int           `json:"-"`
}

// Normalize parses CSV text into rows keyed by the header line and resolves
// the canonical Agent field. Blank lines are skipped, short lines padded.
func Normalize(text string, matchers ...StrategyMatcher) Table {
	if len(matchers) == 0 {
		matchers = DefaultStrategies
	}

	lines := Tokenize(text)
	if len(lines) == 0 {
		return Table{Strategy: AgentStrategy{Kind: StrategyNone}}
	}

	headers := uniqueHeaders(ParseLine(lines[0]))
	table := Table{
		Headers:  headers,
		Rows:     make([]Row, 0, len(lines)-1),
		Strategy: ChooseAgentStrategy(headers, matchers),
		Lines:    len(lines),
	}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			table.Skipped++
			continue
		}

		cells := ParseLine(line)
		row := make(Row, len(headers)+1)
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		table.Strategy.Apply(row)
		table.Rows = append(table.Rows, row)
	}

	return table
}

// uniqueHeaders replaces empty cells with col_<index> and suffixes repeats.
func uniqueHeaders(cells []string) []string {
	seen := make(map[string]bool, len(cells))
	out := make([]string, len(cells))
	for i, h := range cells {
		if h == "" {
			h = fmt.Sprintf("col_%d", i)
		}
		name := h
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
