package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/library/log"
)

var searchCMD = &cobra.Command{
	Use:   "search <query>",
	Short: "search",
	Long:  `search arXiv, widening the query automatically when nothing matches`,
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		deps, err := buildDeps(ctx)
		if err != nil {
			log.Logger.Panic("build services", zap.Error(err))
		}
		defer closeQuietly(deps)

		maxResults, _ := cmd.Flags().GetInt("max-results")
		categories, _ := cmd.Flags().GetStringSlice("category")

		dateFrom, err := parseDateFlag(cmd, "from")
		if err != nil {
			log.Logger.Panic("parse --from", zap.Error(err))
		}
		dateTo, err := parseDateFlag(cmd, "to")
		if err != nil {
			log.Logger.Panic("parse --to", zap.Error(err))
		}

		resolution, err := deps.searcher.Search(ctx, search.Request{
			Query:      args[0],
			MaxResults: maxResults,
			Categories: categories,
			DateFrom:   dateFrom,
			DateTo:     dateTo,
		})
		if err != nil {
			if errors.Is(err, search.ErrEmptyQuery) {
				fmt.Println("Empty query provided")
				return
			}
			log.Logger.Panic("search", zap.Error(err))
		}

		fmt.Print(search.RenderText(resolution))
	},
}

func init() {
	searchCMD.Flags().Int("max-results", 10, "maximum papers to return")
	searchCMD.Flags().StringSlice("category", nil, "arXiv category filter, e.g. cs.AI")
	searchCMD.Flags().String("from", "", "only papers published on or after (YYYY-MM-DD)")
	searchCMD.Flags().String("to", "", "only papers published on or before (YYYY-MM-DD)")
	rootCMD.AddCommand(searchCMD)
}

// parseDateFlag reads an optional YYYY-MM-DD flag.
func parseDateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, errors.Wrapf(err, "expected YYYY-MM-DD, got %q", raw)
	}

	return &parsed, nil
}

func closeQuietly(deps *appDeps) {
	if deps == nil || deps.closeDB == nil {
		return
	}
	if err := deps.closeDB(); err != nil {
		log.Logger.Warn("close paper index", zap.Error(err))
	}
}
