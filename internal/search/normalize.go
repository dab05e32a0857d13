package search

import (
	"strings"
	"time"
)

// stopwords carry no search signal and are dropped when extracting
// content tokens.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
}

// fieldPrefixes lists the clause prefixes the normalizer recognises.
// The long forms are wrong arXiv syntax but are detected anyway so the
// spelling strategy can rewrite them later.
var fieldPrefixes = map[string]struct{}{
	"au": {}, "ti": {}, "abs": {}, "cat": {}, "all": {},
	"author": {}, "title": {}, "category": {}, "abstract": {},
}

const (
	opAnd    = "AND"
	opOr     = "OR"
	opAndNot = "ANDNOT"
)

// minTokenLen filters out tokens too short to narrow a search.
const minTokenLen = 3

// Normalize parses raw search text into the structured Query consumed
// by the widening cascade. Malformed quoting or field syntax never
// fails; the offending span is kept as plain text.
func Normalize(raw string, dateFrom, dateTo *time.Time) Query {
	trimmed := strings.TrimSpace(raw)
	q := Query{
		RawText:  trimmed,
		DateFrom: dateFrom,
		DateTo:   dateTo,
	}
	q.HasQuotedSpans = strings.Count(trimmed, `"`) >= 2

	for _, tok := range strings.Fields(trimmed) {
		switch tok {
		case opAnd, opOr, opAndNot:
			q.HasBooleanOperators = true
			continue
		}

		if prefix, value, ok := splitFieldClause(tok); ok {
			q.Fields = append(q.Fields, FieldClause{Prefix: prefix, Value: value})
			q.Terms = append(q.Terms, value)
			continue
		}

		word := strings.ReplaceAll(tok, `"`, "")
		if word == "" {
			continue
		}
		q.FreeTokens = append(q.FreeTokens, word)
		q.Terms = append(q.Terms, word)
	}

	return q
}

// splitFieldClause recognises prefix:value tokens with a known prefix.
// The prefix keeps its original casing so the query can be echoed back
// unmodified.
func splitFieldClause(tok string) (prefix, value string, ok bool) {
	head, tail, found := strings.Cut(tok, ":")
	if !found || head == "" || tail == "" {
		return "", "", false
	}
	if _, known := fieldPrefixes[strings.ToLower(head)]; !known {
		return "", "", false
	}
	value = strings.ReplaceAll(tail, `"`, "")
	if value == "" {
		return "", "", false
	}
	return head + ":", value, true
}

// ExtractKeywords returns up to limit content tokens drawn from the
// query in order of appearance, with case-insensitive duplicates
// removed.
func ExtractKeywords(q Query, limit int) []string {
	tokens := q.ContentTokens()
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, limit)
	for _, tok := range tokens {
		key := strings.ToLower(tok)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tok)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func filterContent(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if isContentToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isContentToken(tok string) bool {
	if len(tok) < minTokenLen {
		return false
	}
	_, stop := stopwords[strings.ToLower(tok)]
	return !stop
}

// stripBalancedQuotes removes quote characters pair by pair. A trailing
// unmatched quote stays in place as literal text.
func stripBalancedQuotes(s string) string {
	count := strings.Count(s, `"`)
	if count%2 == 0 {
		return strings.ReplaceAll(s, `"`, "")
	}

	removable := count - 1
	var b strings.Builder
	b.Grow(len(s))
	removed := 0
	for _, r := range s {
		if r == '"' && removed < removable {
			removed++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
