package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/arxiv-mcp/library/log"
)

var downloadCMD = &cobra.Command{
	Use:   "download <paper-id>...",
	Short: "download",
	Long:  `download papers from arXiv and convert them for reading`,
	Args:  cobra.MinimumNArgs(1),
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

		wait, _ := cmd.Flags().GetBool("wait")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if wait {
			for _, result := range deps.downloads.Batch(ctx, args, concurrency) {
				if result.Path != "" {
					fmt.Printf("%s: %s (%s)\n", result.PaperID, result.Status, result.Path)
					continue
				}
				fmt.Printf("%s: %s, %s\n", result.PaperID, result.Status, result.Message)
			}
			return
		}

		// Without --wait the pdf still lands synchronously; only the
		// markdown conversion may be cut short by process exit, and a
		// later download of the same id redoes it.
		for _, paperID := range args {
			job, created, err := deps.downloads.Start(ctx, paperID)
			if err != nil {
				fmt.Printf("%s: %v\n", paperID, err)
				continue
			}

			if !created {
				fmt.Printf("%s: already %s\n", paperID, job.State)
				continue
			}
			fmt.Printf("%s: %s\n", paperID, job.State)
		}
	},
}

func init() {
	downloadCMD.Flags().Bool("wait", false, "block until conversion finishes")
	downloadCMD.Flags().Int("concurrency", 0, "parallel downloads with --wait, 0 picks a sensible default")
	rootCMD.AddCommand(downloadCMD)
}
