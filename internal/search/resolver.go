// Package search widens zero-result queries through a fixed, ordered
// cascade of relaxation strategies and reports exactly what it did.
package search

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/Laisky/arxiv-mcp/library/log"
)

// ErrEmptyQuery reports a query with no text at all.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// Executor abstracts the paper index behind the cascade. Implementations
// report how many items matched; the resolver never inspects the items.
type Executor interface {
	Execute(ctx context.Context, queryText string) (ExecutorResult, error)
}

// ResolverOption customises a Resolver during construction.
type ResolverOption func(*Resolver)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCorrections substitutes the correction table handed to the
// spelling strategy, primarily for testing.
func WithCorrections(table Corrections) ResolverOption {
	return func(r *Resolver) {
		if table != nil {
			r.strategies = defaultStrategies(table)
		}
	}
}

// WithStrategies replaces the widening strategy list wholesale. The
// exact attempt is not part of the list and always runs first.
func WithStrategies(strategies ...Strategy) ResolverOption {
	return func(r *Resolver) {
		if len(strategies) > 0 {
			r.strategies = strategies
		}
	}
}

// Resolver drives the widening cascade: it always tries the literal
// query first, then relaxes it strategy by strategy until the index
// returns results or the cascade is exhausted. One resolver serves
// concurrent resolutions; all per-request state lives on the stack.
type Resolver struct {
	executor   Executor
	strategies []Strategy
	logger     logSDK.Logger
}

// NewResolver constructs a Resolver around the given executor.
func NewResolver(executor Executor, opts ...ResolverOption) (*Resolver, error) {
	if executor == nil {
		return nil, errors.New("resolver requires a search executor")
	}

	r := &Resolver{
		executor:   executor,
		strategies: defaultStrategies(DefaultCorrections()),
		logger:     appLog.Logger.Named("search_resolver"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Resolve runs the widening cascade for query.
//
// Queries that reduce to nothing after stopword removal short-circuit
// with a failed resolution before any executor call. A date-scoped
// query gets exactly one attempt so the caller's time filter is never
// silently widened away. Individual executor failures are recorded and
// the cascade moves on; only when every attempt errored does the
// resolution report the index as unavailable.
//
// On cancellation the partial resolution is returned alongside the
// context error so callers still see which attempts completed.
func (r *Resolver) Resolve(ctx context.Context, query Query) (*Resolution, error) {
	if strings.TrimSpace(query.RawText) == "" {
		return nil, errors.Wrap(ErrEmptyQuery, "resolve")
	}

	logger := r.resolveLogger(ctx, query.RawText)

	if len(query.ContentTokens()) == 0 {
		logger.Info("query holds no content tokens, skipping search")
		return &Resolution{
			Status:            StatusFailed,
			FinalQuery:        query.RawText,
			StrategiesApplied: []StrategyName{},
			Suggestions:       []string{},
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "resolution cancelled before first attempt")
	}

	trace := make(Trace, 0, len(r.strategies)+1)

	attempt, result := r.attempt(ctx, StrategyExact, query.RawText, logger)
	trace = append(trace, attempt)
	if attempt.ResultCount > 0 {
		logger.Info("exact query matched", zap.Int("results", attempt.ResultCount))
		return BuildResolution(query, trace, result), nil
	}
	if query.HasDateFilter() {
		logger.Info("date filter present, widening disabled")
		return BuildResolution(query, trace, ExecutorResult{}), nil
	}

	for _, strategy := range r.strategies {
		if err := ctx.Err(); err != nil {
			res := BuildResolution(query, trace, ExecutorResult{})
			res.Incomplete = true
			return res, errors.Wrap(err, "resolution cancelled mid-cascade")
		}

		candidate, ok := strategy.Transform(query)
		if !ok {
			logger.Debug("strategy not applicable",
				zap.String("strategy", string(strategy.Name())))
			continue
		}
		if trace.contains(candidate) {
			logger.Debug("candidate already attempted",
				zap.String("strategy", string(strategy.Name())),
				zap.String("candidate", candidate))
			continue
		}

		attempt, result = r.attempt(ctx, strategy.Name(), candidate, logger)
		trace = append(trace, attempt)
		if attempt.ResultCount > 0 {
			logger.Info("widened query matched",
				zap.String("strategy", string(strategy.Name())),
				zap.Int("results", attempt.ResultCount))
			return BuildResolution(query, trace, result), nil
		}
	}

	logger.Info("cascade exhausted without results",
		zap.Int("attempts", len(trace)))
	return BuildResolution(query, trace, ExecutorResult{}), nil
}

// attempt runs one executor call and folds the outcome into an Attempt.
// Executor failures surface as an errored attempt, not as an error, so
// the cascade can keep going.
func (r *Resolver) attempt(ctx context.Context, name StrategyName, queryText string, logger logSDK.Logger) (Attempt, ExecutorResult) {
	logger.Debug("running search attempt",
		zap.String("strategy", string(name)),
		zap.String("attempt_query", queryText))

	result, err := r.executor.Execute(ctx, queryText)
	if err != nil {
		logger.Warn("search attempt failed",
			zap.String("strategy", string(name)),
			zap.String("attempt_query", queryText),
			zap.Error(err))
		return Attempt{Strategy: name, QueryText: queryText, Errored: true}, ExecutorResult{}
	}

	return Attempt{Strategy: name, QueryText: queryText, ResultCount: result.Count}, result
}

func (r *Resolver) resolveLogger(ctx context.Context, query string) logSDK.Logger {
	logger := r.logger
	if ctx != nil {
		if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
			logger = ctxLogger.Named("search_resolver")
		}
	}
	if logger == nil {
		logger = appLog.Logger.Named("search_resolver")
	}
	return logger.With(zap.String("query", query))
}
