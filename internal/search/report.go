package search

import "fmt"

// Banner fields shown to callers whenever results come from a relaxed
// query rather than the literal one.
const (
	wideningNotice         = "SEARCH AUTOMATICALLY BROADENED"
	wideningAction         = "Showing results from a simplified search"
	wideningRecommendation = "Please review these results as they may still be relevant to your needs"
)

// BuildResolution folds a completed trace into the structured result
// handed back to callers.
//
// Status rules: exact when the single first attempt matched, widened
// when a later attempt matched, serviceUnavailable when every attempt
// errored, failed otherwise. Failed resolutions carry keyword
// suggestions extracted from the original query.
func BuildResolution(query Query, trace Trace, winning ExecutorResult) *Resolution {
	res := &Resolution{
		FinalQuery:        query.RawText,
		StrategiesApplied: trace.Names(),
		Trace:             trace,
	}

	if len(trace) == 0 {
		res.Status = StatusFailed
		res.Suggestions = []string{}
		return res
	}

	last := trace[len(trace)-1]
	res.FinalQuery = last.QueryText

	switch {
	case len(trace) == 1 && last.ResultCount > 0:
		res.Status = StatusExact
		res.Result = winning
	case last.ResultCount > 0:
		res.Status = StatusWidened
		res.Result = winning
		res.Widening = buildWideningInfo(query, trace, winning)
	case trace.allErrored():
		res.Status = StatusServiceUnavailable
	default:
		res.Status = StatusFailed
		res.Suggestions = ExtractKeywords(query, defaultKeywordLimit)
	}

	return res
}

// buildWideningInfo names every strategy actually attempted, in order,
// together with the query text each one tried.
func buildWideningInfo(query Query, trace Trace, winning ExecutorResult) *WideningInfo {
	details := make([]string, 0, len(trace)+1)
	for _, att := range trace {
		switch {
		case att.Errored:
			details = append(details, fmt.Sprintf("%s: tried %q, index unavailable", att.Strategy, att.QueryText))
		case att.ResultCount > 0:
			details = append(details, fmt.Sprintf("%s: tried %q, found %d papers", att.Strategy, att.QueryText, att.ResultCount))
		default:
			details = append(details, fmt.Sprintf("%s: tried %q, no matches", att.Strategy, att.QueryText))
		}
	}
	details = append(details, fmt.Sprintf("Found %d potentially relevant papers", winning.Count))

	return &WideningInfo{
		Notice:         wideningNotice,
		Reason:         fmt.Sprintf("No exact matches found for: %s", query.RawText),
		Action:         wideningAction,
		Details:        details,
		Recommendation: wideningRecommendation,
	}
}
