package ingest

import (
	"strings"
)

// Tokenize splits CSV text into logical lines. A newline inside a quoted
// field belongs to the current line; quotes are kept so ParseLine can
// unquote the cells later.
func Tokenize(text string) []string {
	var (
		lines    []string
		cur      strings.Builder
		inQuotes bool
	)

	flush := func() {
		lines = append(lines, strings.TrimSuffix(cur.String(), "\r"))
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"' && i+1 < len(text) && text[i+1] == '"':
			cur.WriteString(`""`)
			i++
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == '\n' && !inQuotes:
			flush()
		default:
			cur.WriteByte(c)
		}
	}

	if cur.Len() > 0 {
		flush()
	}
	return lines
}

// ParseLine splits one logical line into trimmed, unquoted cells.
func ParseLine(line string) []string {
	var (
		cells    []string
		cur      strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	return append(cells, strings.TrimSpace(cur.String()))
}

// FormatLine is the inverse of ParseLine: cells that would not survive a
// plain join are quoted, with embedded quotes doubled.
func FormatLine(cells []string) string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		if strings.ContainsAny(cell, ",\"\r\n") {
			out[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
			continue
		}
		out[i] = cell
	}
	return strings.Join(out, ",")
}

// Format renders a header row and data rows as CSV text, one line per row.
func Format(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(FormatLine(headers))
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(FormatLine(row))
	}
	return b.String()
}
