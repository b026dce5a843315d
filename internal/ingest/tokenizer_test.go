package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty input", input: "", expected: nil},
		{name: "no trailing newline", input: "a,b\n1,2", expected: []string{"a,b", "1,2"}},
		{name: "trailing newline", input: "a,b\n1,2\n", expected: []string{"a,b", "1,2"}},
		{name: "crlf endings", input: "a,b\r\n1,2\r\n", expected: []string{"a,b", "1,2"}},
		{name: "newline inside quotes", input: "a,b\n\"line1\nline2\",2\n", expected: []string{"a,b", "\"line1\nline2\",2"}},
		{name: "escaped quote does not toggle", input: "a\n\"say \"\"hi\"\"\nthere\",x", expected: []string{"a", "\"say \"\"hi\"\"\nthere\",x"}},
		{name: "blank line is kept", input: "a\n\n1", expected: []string{"a", "", "1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Tokenize(tc.input))
		})
	}
}

func TestParseLine(t *testing.T) {
	cases := []struct {
		name     string
		line     string
		expected []string
	}{
		{name: "plain", line: "a,b,c", expected: []string{"a", "b", "c"}},
		{name: "quoted comma", line: `"Doe, Jane",5`, expected: []string{"Doe, Jane", "5"}},
		{name: "escaped quote", line: `"He said ""wow""",4`, expected: []string{`He said "wow"`, "4"}},
		{name: "empty quoted cell", line: `a,"",b`, expected: []string{"a", "", "b"}},
		{name: "trims whitespace", line: "  a , b  ", expected: []string{"a", "b"}},
		{name: "trailing empty cell", line: "a,", expected: []string{"a", ""}},
		{name: "empty line", line: "", expected: []string{""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLine(tc.line))
		})
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	headers := []string{"Name", "Comment", "Rating"}
	rows := [][]string{
		{"Doe, Jane", "Great service,\nwould \"recommend\"", "5"},
		{"Bob", `"quoted"`, "4"},
		{"Ann", "multi\nline\ncomment", "3"},
	}

	text := Format(headers, rows)
	lines := Tokenize(text)
	require.Len(t, lines, len(rows)+1)

	assert.Equal(t, headers, ParseLine(lines[0]))
	for i, row := range rows {
		assert.Equal(t, row, ParseLine(lines[i+1]))
	}

	// Re-serializing the parsed cells yields the same text.
	parsed := make([][]string, 0, len(rows))
	for _, l := range lines[1:] {
		parsed = append(parsed, ParseLine(l))
	}
	assert.Equal(t, text, Format(ParseLine(lines[0]), parsed))
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "a,b", FormatLine([]string{"a", "b"}))
	assert.Equal(t, `"a,b","x""y"`, FormatLine([]string{"a,b", `x"y`}))
	assert.True(t, strings.HasPrefix(FormatLine([]string{"a\nb"}), `"`))
}
