package cmd

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/internal/mcp"
	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/internal/semantic"
	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/internal/web"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/db/postgres"
	"github.com/Laisky/arxiv-mcp/library/db/sqlite"
	"github.com/Laisky/arxiv-mcp/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `MCP API service for arXiv paper search and reading`,
	Args:  gcmd.NoExtraArgs,
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

		mcpServer, err := mcp.NewServer(
			deps.client,
			deps.searcher,
			deps.downloads,
			deps.files,
			deps.papers,
			deps.notes,
			deps.index,
			mcp.LoadToolsSettingsFromConfig(),
			gconfig.Shared.GetString("settings.server.auth_token"),
			log.Logger,
		)
		if err != nil {
			log.Logger.Panic("build mcp server", zap.Error(err))
		}

		web.RunServer(gconfig.Shared.GetString("listen"), mcpServer)
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// appDeps bundles the long-lived services the commands share.
type appDeps struct {
	client    *arxiv.Client
	searcher  *search.Service
	downloads *download.Service
	files     *storage.Files
	papers    *storage.Papers
	notes     *storage.Annotations
	index     *semantic.Store
	closeDB   func() error
}

// buildDeps wires storage, the arXiv client, and the services on top
// of them. The semantic index and the pdf mirror are attached only
// when their config sections enable them.
func buildDeps(ctx context.Context) (*appDeps, error) {
	root, err := storageRoot()
	if err != nil {
		return nil, errors.Wrap(err, "resolve storage root")
	}

	files, err := storage.NewFiles(root)
	if err != nil {
		return nil, errors.Wrap(err, "open file store")
	}

	db, err := sqlite.NewDB(ctx, filepath.Join(root, "index.db"))
	if err != nil {
		return nil, errors.Wrap(err, "open paper index")
	}

	papers, err := storage.NewPapers(db.DB)
	if err != nil {
		return nil, errors.Wrap(err, "build paper index")
	}

	notes, err := storage.NewAnnotations(db.DB)
	if err != nil {
		return nil, errors.Wrap(err, "build note store")
	}

	client := buildArxivClient()

	var searchOpts []search.ServiceOption
	if limit := gconfig.Shared.GetInt("settings.search.max_results"); limit > 0 {
		searchOpts = append(searchOpts, search.WithResultsLimit(limit))
	}
	searcher, err := search.NewService(client, searchOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "build search service")
	}

	var downloadOpts []download.ServiceOption

	index, err := buildSemanticStore(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "build semantic store")
	}
	if index != nil {
		downloadOpts = append(downloadOpts, download.WithIndexer(index))
	}

	mirror, err := buildMirror()
	if err != nil {
		return nil, errors.Wrap(err, "build pdf mirror")
	}
	if mirror != nil {
		downloadOpts = append(downloadOpts, download.WithMirror(mirror))
	}

	downloads, err := download.NewService(client, files, papers, downloadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "build download service")
	}

	log.Logger.Info("services ready",
		zap.String("storage_root", root),
		zap.Bool("semantic_enabled", index != nil),
		zap.Bool("mirror_enabled", mirror != nil))

	return &appDeps{
		client:    client,
		searcher:  searcher,
		downloads: downloads,
		files:     files,
		papers:    papers,
		notes:     notes,
		index:     index,
		closeDB:   db.Close,
	}, nil
}

// storageRoot resolves the papers directory, defaulting under the
// invoking user's home.
func storageRoot() (string, error) {
	if root := gconfig.Shared.GetString("settings.storage.path"); root != "" {
		return root, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}

	return filepath.Join(home, ".arxiv-mcp", "papers"), nil
}

func buildArxivClient() *arxiv.Client {
	opts := []arxiv.ClientOption{
		arxiv.WithLogger(log.Logger.Named("arxiv")),
	}

	if endpoint := gconfig.Shared.GetString("settings.arxiv.endpoint"); endpoint != "" {
		opts = append(opts, arxiv.WithEndpoint(endpoint))
	}
	if size := gconfig.Shared.GetInt("settings.arxiv.page_size"); size > 0 {
		opts = append(opts, arxiv.WithPageSize(size))
	}
	if delay := gconfig.Shared.GetInt("settings.arxiv.request_delay_ms"); delay > 0 {
		opts = append(opts, arxiv.WithRequestDelay(time.Duration(delay)*time.Millisecond))
	}
	if retries := gconfig.Shared.GetInt("settings.arxiv.retries"); retries > 0 {
		opts = append(opts, arxiv.WithRetries(uint(retries)))
	}

	return arxiv.NewClient(opts...)
}

// buildSemanticStore returns nil without error when semantic search is
// disabled in config.
func buildSemanticStore(ctx context.Context, files *storage.Files) (*semantic.Store, error) {
	settings := semantic.LoadSettingsFromConfig()
	if !settings.Enabled {
		return nil, nil
	}

	dsn := postgres.BuildDSN(postgres.DialInfo{
		Addr:   gconfig.Shared.GetString("settings.db.postgres.addr"),
		DBName: gconfig.Shared.GetString("settings.db.postgres.db"),
		User:   gconfig.Shared.GetString("settings.db.postgres.user"),
		Pwd:    gconfig.Shared.GetString("settings.db.postgres.pwd"),
	})

	gdb, err := postgres.NewGormDB(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open vector db")
	}

	embedder := semantic.NewOpenAIEmbedder(
		settings.OpenAIBaseURL,
		settings.OpenAIAPIKey,
		settings.EmbeddingModel,
		&http.Client{Timeout: 30 * time.Second},
	)

	store, err := semantic.NewStore(gdb, embedder, files, settings,
		log.Logger.Named("semantic"))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return store, nil
}

// buildMirror returns nil without error when no pdf mirror is
// configured.
func buildMirror() (*storage.Mirror, error) {
	if !gconfig.Shared.GetBool("settings.storage.mirror.enabled") {
		return nil, nil
	}

	cli, err := storage.NewMinioClient(
		gconfig.Shared.GetString("settings.storage.mirror.endpoint"),
		gconfig.Shared.GetString("settings.storage.mirror.access_key"),
		gconfig.Shared.GetString("settings.storage.mirror.secret_key"),
		gconfig.Shared.GetBool("settings.storage.mirror.use_ssl"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	mirror, err := storage.NewMirror(cli,
		gconfig.Shared.GetString("settings.storage.mirror.bucket"),
		storage.WithMirrorPrefix(gconfig.Shared.GetString("settings.storage.mirror.prefix")))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return mirror, nil
}
