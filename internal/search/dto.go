package search

import "time"

// StrategyName identifies one step of the widening cascade.
type StrategyName string

const (
	StrategyExact                 StrategyName = "Exact"
	StrategyRemoveQuotes          StrategyName = "RemoveQuotes"
	StrategyOrJoin                StrategyName = "OrJoin"
	StrategyAllFieldsBroaden      StrategyName = "AllFieldsBroaden"
	StrategySyntaxSpellingCorrect StrategyName = "SyntaxSpellingCorrect"
	StrategyKeywordExtraction     StrategyName = "KeywordExtraction"
)

// Status classifies the outcome of one resolution.
type Status string

const (
	// StatusExact means the literal query matched on the first attempt.
	StatusExact Status = "exact"
	// StatusWidened means a relaxed query produced the results.
	StatusWidened Status = "widened"
	// StatusFailed means every attempt came back with a genuine zero.
	StatusFailed Status = "failed"
	// StatusServiceUnavailable means every attempt failed at the index
	// itself, so absence of results says nothing about the literature.
	StatusServiceUnavailable Status = "serviceUnavailable"
)

// FieldClause is one prefix-restricted clause inside a query, such as
// au:Hinton. Prefix keeps its trailing colon and original casing.
type FieldClause struct {
	Prefix string
	Value  string
}

// Query is the normalizer's structured view of a raw search string.
// Immutable once built; strategies derive candidates from it without
// touching it.
type Query struct {
	RawText string
	// Fields holds prefix-restricted clauses in order of appearance,
	// including known-bad prefixes such as author: left uncorrected.
	Fields []FieldClause
	// FreeTokens holds the words outside any field clause, quotes
	// stripped, boolean operators omitted.
	FreeTokens []string
	// Terms holds every clause value and free word in order of
	// appearance, prefixes and quotes stripped.
	Terms []string

	HasQuotedSpans      bool
	HasBooleanOperators bool

	DateFrom *time.Time
	DateTo   *time.Time
}

// HasDateFilter reports whether the caller scoped the query in time.
func (q Query) HasDateFilter() bool {
	return q.DateFrom != nil || q.DateTo != nil
}

// ContentTokens returns the terms that survive stopword and short-token
// removal, in order of appearance.
func (q Query) ContentTokens() []string {
	return filterContent(q.Terms)
}

// FreeContentTokens is ContentTokens restricted to terms outside field
// clauses.
func (q Query) FreeContentTokens() []string {
	return filterContent(q.FreeTokens)
}

// ExecutorResult is the executor's answer for one query attempt. Count
// drives the cascade; Items passes through untouched for the caller.
type ExecutorResult struct {
	Count int
	Items any
}

// Attempt is one executor call made during a resolution.
type Attempt struct {
	Strategy    StrategyName `json:"strategy"`
	QueryText   string       `json:"query_text"`
	ResultCount int          `json:"result_count"`
	Errored     bool         `json:"errored,omitempty"`
}

// Trace records the executor calls of one resolution, in order.
type Trace []Attempt

// Names lists the strategies actually attempted, in order.
func (t Trace) Names() []StrategyName {
	names := make([]StrategyName, 0, len(t))
	for _, att := range t {
		names = append(names, att.Strategy)
	}
	return names
}

func (t Trace) contains(queryText string) bool {
	for _, att := range t {
		if att.QueryText == queryText {
			return true
		}
	}
	return false
}

func (t Trace) allErrored() bool {
	if len(t) == 0 {
		return false
	}
	for _, att := range t {
		if !att.Errored {
			return false
		}
	}
	return true
}

// WideningInfo explains to the caller how and why a query was relaxed.
type WideningInfo struct {
	Notice         string   `json:"notice"`
	Reason         string   `json:"reason"`
	Action         string   `json:"action"`
	Details        []string `json:"details"`
	Recommendation string   `json:"recommendation"`
}

// Resolution is the final outcome of one widening cascade run.
type Resolution struct {
	Status            Status         `json:"search_status"`
	FinalQuery        string         `json:"final_query"`
	StrategiesApplied []StrategyName `json:"strategies_applied"`
	Widening          *WideningInfo  `json:"widening_info"`
	// Suggestions carries keyword hints for a manual retry; set only
	// when Status is failed.
	Suggestions []string `json:"suggestions,omitempty"`
	// Incomplete marks a resolution aborted by the caller before the
	// cascade finished.
	Incomplete bool `json:"incomplete,omitempty"`

	// Result is the winning executor payload; zero unless Status is
	// exact or widened.
	Result ExecutorResult `json:"-"`
	// Trace records every executor call made, in order.
	Trace Trace `json:"-"`
}
