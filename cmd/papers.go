package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/arxiv-mcp/library/log"
)

var papersCMD = &cobra.Command{
	Use:   "papers",
	Short: "papers",
	Long:  `list downloaded papers`,
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

		records, err := deps.papers.List(ctx)
		if err != nil {
			log.Logger.Panic("list papers", zap.Error(err))
		}

		if len(records) == 0 {
			fmt.Println("No papers downloaded yet.")
			return
		}

		fmt.Printf("%d papers stored:\n\n", len(records))
		for _, rec := range records {
			fmt.Printf("%s  %s\n", rec.ID, rec.Title)
			fmt.Printf("%s  authors: %s, downloaded: %s\n",
				strings.Repeat(" ", len(rec.ID)),
				strings.Join(rec.Authors, ", "),
				rec.DownloadedAt.Format("2006-01-02"))
		}
	},
}

func init() {
	rootCMD.AddCommand(papersCMD)
}
