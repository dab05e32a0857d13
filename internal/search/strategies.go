package search

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// orJoinMaxTokens caps how many free-text terms the OrJoin strategy
	// keeps; more terms widen recall without adding precision.
	orJoinMaxTokens = 4
	// defaultKeywordLimit caps the terminal keyword fallback and the
	// suggestion list on failed resolutions.
	defaultKeywordLimit = 5
)

// Strategy proposes one relaxed rendition of a query. Transform returns
// the candidate query text, or false when the strategy does not apply.
// Every strategy works from the original normalized query, never from
// another strategy's output.
type Strategy interface {
	Name() StrategyName
	Transform(query Query) (string, bool)
}

// defaultStrategies returns the widening cascade in its fixed order.
// The exact attempt is not a member; the resolver always runs it first.
func defaultStrategies(table Corrections) []Strategy {
	return []Strategy{
		RemoveQuotes{},
		OrJoin{},
		AllFieldsBroaden{},
		NewSyntaxSpellingCorrect(table),
		NewKeywordExtraction(defaultKeywordLimit),
	}
}

// RemoveQuotes drops balanced quote pairs so phrase-restricted queries
// fall back to plain term matching.
type RemoveQuotes struct{}

func (RemoveQuotes) Name() StrategyName { return StrategyRemoveQuotes }

func (RemoveQuotes) Transform(query Query) (string, bool) {
	if !query.HasQuotedSpans {
		return "", false
	}
	return collapseSpaces(stripBalancedQuotes(query.RawText)), true
}

// OrJoin relaxes implicit AND matching by joining free-text terms with
// OR while keeping field clauses mandatory.
type OrJoin struct{}

func (OrJoin) Name() StrategyName { return StrategyOrJoin }

func (OrJoin) Transform(query Query) (string, bool) {
	tokens := query.FreeContentTokens()
	if len(tokens) < 2 {
		return "", false
	}
	if len(tokens) > orJoinMaxTokens {
		tokens = tokens[:orJoinMaxTokens]
	}

	group := strings.Join(tokens, " OR ")
	if len(query.Fields) == 0 {
		return group, true
	}

	clauses := make([]string, 0, len(query.Fields)+1)
	for _, field := range query.Fields {
		clauses = append(clauses, field.Prefix+field.Value)
	}
	clauses = append(clauses, "("+group+")")
	return strings.Join(clauses, " AND "), true
}

// AllFieldsBroaden lifts field restrictions and searches every term
// across all metadata fields.
type AllFieldsBroaden struct{}

func (AllFieldsBroaden) Name() StrategyName { return StrategyAllFieldsBroaden }

func (AllFieldsBroaden) Transform(query Query) (string, bool) {
	if len(query.Fields) == 0 {
		return "", false
	}
	terms := query.ContentTokens()
	if len(terms) == 0 {
		return "", false
	}
	if len(terms) == 1 {
		return "all:" + terms[0], true
	}
	return "all:(" + strings.Join(terms, " OR ") + ")", true
}

// Corrections maps known-bad field prefixes and common misspellings to
// their replacements. Keys ending in a colon rewrite prefixes anywhere
// in the query; all other keys replace whole words only.
type Corrections map[string]string

// DefaultCorrections covers the wrong arXiv field prefixes and the
// misspellings most often seen in machine learning queries.
func DefaultCorrections() Corrections {
	return Corrections{
		"author:":   "au:",
		"title:":    "ti:",
		"category:": "cat:",
		"abstract:": "abs:",

		"nueral":     "neural",
		"nerual":     "neural",
		"netowrk":    "network",
		"netwrok":    "network",
		"transfomer": "transformer",
		"tranformer": "transformer",
		"atention":   "attention",
		"mechansim":  "mechanism",
		"algorith":   "algorithm",
		"genarative": "generative",
		"genrative":  "generative",
	}
}

type correctionRule struct {
	wrong string
	right string
	// word is set for whole-word rules; nil for prefix rules which use
	// plain substring replacement.
	word *regexp.Regexp
}

// SyntaxSpellingCorrect rewrites known-bad prefixes and misspellings
// using a table fixed at construction time.
type SyntaxSpellingCorrect struct {
	rules []correctionRule
}

// NewSyntaxSpellingCorrect compiles the correction table into a rule
// list applied in sorted key order, so repeated runs produce identical
// candidates.
func NewSyntaxSpellingCorrect(table Corrections) *SyntaxSpellingCorrect {
	keys := make([]string, 0, len(table))
	for wrong := range table {
		keys = append(keys, wrong)
	}
	sort.Strings(keys)

	s := &SyntaxSpellingCorrect{rules: make([]correctionRule, 0, len(keys))}
	for _, wrong := range keys {
		rule := correctionRule{wrong: wrong, right: table[wrong]}
		if !strings.HasSuffix(wrong, ":") {
			rule.word = regexp.MustCompile(`\b` + regexp.QuoteMeta(wrong) + `\b`)
		}
		s.rules = append(s.rules, rule)
	}
	return s
}

func (*SyntaxSpellingCorrect) Name() StrategyName { return StrategySyntaxSpellingCorrect }

func (s *SyntaxSpellingCorrect) Transform(query Query) (string, bool) {
	lowered := strings.ToLower(query.RawText)
	corrected := lowered
	for _, rule := range s.rules {
		if rule.word != nil {
			corrected = rule.word.ReplaceAllString(corrected, rule.right)
			continue
		}
		corrected = strings.ReplaceAll(corrected, rule.wrong, rule.right)
	}
	if corrected == lowered {
		return "", false
	}
	return corrected, true
}

// KeywordExtraction is the terminal fallback: it keeps only the most
// significant terms of the query and ORs them together.
type KeywordExtraction struct {
	limit int
}

// NewKeywordExtraction builds the strategy with the given keyword cap;
// values below one fall back to the default of five.
func NewKeywordExtraction(limit int) *KeywordExtraction {
	if limit < 1 {
		limit = defaultKeywordLimit
	}
	return &KeywordExtraction{limit: limit}
}

func (*KeywordExtraction) Name() StrategyName { return StrategyKeywordExtraction }

func (k *KeywordExtraction) Transform(query Query) (string, bool) {
	keywords := ExtractKeywords(query, k.limit)
	if len(keywords) == 0 {
		return "", false
	}
	return strings.Join(keywords, " OR "), true
}
