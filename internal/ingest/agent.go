package ingest

import (
	"net/url"
	"regexp"
	"strings"
)

// AgentField is the canonical key every normalized row uses for the agent.
const AgentField = "Agent"

// StrategyKind tags how a table's agent column is resolved.
type StrategyKind int

const (
	StrategyNone StrategyKind = iota
	StrategyExplicitColumn
	StrategyURLQueryParam
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyExplicitColumn:
		return "explicit_column"
	case StrategyURLQueryParam:
		return "url_query_param"
	default:
		return "none"
	}
}

// AgentStrategy is the agent resolution chosen for one table, bound to the
// header it reads from.
type AgentStrategy struct {
	Kind   StrategyKind
	Column string
}

// StrategyMatcher inspects the headers and returns a strategy when it applies.
type StrategyMatcher func(headers []string) (AgentStrategy, bool)

// DefaultStrategies is the precedence order used by Normalize.
var DefaultStrategies = []StrategyMatcher{
	MatchExplicitColumn,
	MatchURLQueryParam,
}

var (
	urlHeaderHints = []string{"source", "url", "link", "page"}
	agentParamRe   = regexp.MustCompile(`(?i)[?&]agent=([^&]+)`)
)

// MatchExplicitColumn picks the first header containing "agent".
func MatchExplicitColumn(headers []string) (AgentStrategy, bool) {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), "agent") {
			return AgentStrategy{Kind: StrategyExplicitColumn, Column: h}, true
		}
	}
	return AgentStrategy{}, false
}

// MatchURLQueryParam picks the first header that looks like it holds a URL.
func MatchURLQueryParam(headers []string) (AgentStrategy, bool) {
	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, hint := range urlHeaderHints {
			if strings.Contains(lower, hint) {
				return AgentStrategy{Kind: StrategyURLQueryParam, Column: h}, true
			}
		}
	}
	return AgentStrategy{}, false
}

// ChooseAgentStrategy returns the first matching strategy, or StrategyNone.
func ChooseAgentStrategy(headers []string, matchers []StrategyMatcher) AgentStrategy {
	for _, m := range matchers {
		if s, ok := m(headers); ok {
			return s
		}
	}
	return AgentStrategy{Kind: StrategyNone}
}

// Resolve returns the canonical agent value for a row.
func (s AgentStrategy) Resolve(row Row) (string, bool) {
	switch s.Kind {
	case StrategyExplicitColumn:
		v, ok := row[s.Column]
		return v, ok
	case StrategyURLQueryParam:
		return AgentFromURL(row[s.Column])
	default:
		return "", false
	}
}

// Apply writes the resolved agent into row under AgentField.
func (s AgentStrategy) Apply(row Row) {
	if s.Kind == StrategyExplicitColumn && s.Column == AgentField {
		return
	}
	if v, ok := s.Resolve(row); ok {
		row[AgentField] = v
	}
}

// AgentFromURL extracts the agent query parameter from a URL-ish value.
// Undecodable values yield no agent.
func AgentFromURL(raw string) (string, bool) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	m := agentParamRe.FindStringSubmatch(decoded)
	if m == nil {
		return "", false
	}
	agent, err := url.PathUnescape(m[1])
	if err != nil {
		return "", false
	}
	if strings.HasSuffix(agent, "%21") {
		agent = strings.TrimSuffix(agent, "%21")
	} else {
		agent = strings.TrimSuffix(agent, "!")
	}
	if agent == "" {
		return "", false
	}
	return agent, true
}
