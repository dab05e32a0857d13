package mcp

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/Laisky/arxiv-mcp/internal/download"
	"github.com/Laisky/arxiv-mcp/internal/mcp/tools"
	"github.com/Laisky/arxiv-mcp/internal/search"
	"github.com/Laisky/arxiv-mcp/internal/semantic"
	"github.com/Laisky/arxiv-mcp/internal/storage"
	"github.com/Laisky/arxiv-mcp/library/arxiv"
	"github.com/Laisky/arxiv-mcp/library/log"
)

// serverName and serverVersion identify this server in the MCP handshake.
const (
	serverName    = "arxiv-mcp"
	serverVersion = "1.0.0"
)

const serverInstructions = "Search arXiv with search_papers; queries that return nothing " +
	"are widened automatically and the response reports how. Download papers with " +
	"download_paper or batch_download, then read them with read_paper, extract_sections " +
	"or semantic_search_papers. Notes persist across sessions via add_paper_note and " +
	"list_paper_notes. system_stats reports server and upstream health."

// Server wraps the MCP server state for the HTTP transport.
type Server struct {
	handler   http.Handler
	logger    logSDK.Logger
	toolNames []string
}

// NewServer constructs a remote MCP server exposing HTTP endpoints under a
// single handler. The semantic index may be nil; its tool is then left
// unregistered. An empty authToken leaves the endpoint open.
func NewServer(
	client *arxiv.Client,
	searcher *search.Service,
	downloads *download.Service,
	files *storage.Files,
	papers *storage.Papers,
	notes *storage.Annotations,
	index *semantic.Store,
	settings ToolsSettings,
	authToken string,
	logger logSDK.Logger,
) (*Server, error) {
	if client == nil {
		return nil, errors.New("arxiv client is required")
	}
	if searcher == nil {
		return nil, errors.New("search service is required")
	}
	if downloads == nil {
		return nil, errors.New("download service is required")
	}
	if files == nil {
		return nil, errors.New("file store is required")
	}
	if papers == nil {
		return nil, errors.New("paper index is required")
	}
	if notes == nil {
		return nil, errors.New("note store is required")
	}
	if logger == nil {
		logger = log.Logger
	}

	hooks := newMCPHooks(logger.Named("mcp_hooks"))

	mcpServer := srv.NewMCPServer(
		serverName,
		serverVersion,
		srv.WithToolCapabilities(true),
		srv.WithInstructions(serverInstructions),
		srv.WithRecovery(),
		srv.WithHooks(hooks),
	)

	s := &Server{logger: logger.Named("mcp")}

	searchTool, err := tools.NewSearchPapersTool(searcher, logger.Named("search_papers"))
	if err != nil {
		return nil, errors.Wrap(err, "build search_papers tool")
	}
	s.register(mcpServer, settings.SearchPapersEnabled, searchTool)

	downloadTool, err := tools.NewDownloadPaperTool(downloads, logger.Named("download_paper"))
	if err != nil {
		return nil, errors.Wrap(err, "build download_paper tool")
	}
	s.register(mcpServer, settings.DownloadPaperEnabled, downloadTool)

	batchTool, err := tools.NewBatchDownloadTool(downloads, searcher, logger.Named("batch_download"))
	if err != nil {
		return nil, errors.Wrap(err, "build batch_download tool")
	}
	s.register(mcpServer, settings.BatchDownloadEnabled, batchTool)

	listTool, err := tools.NewListPapersTool(papers, logger.Named("list_papers"))
	if err != nil {
		return nil, errors.Wrap(err, "build list_papers tool")
	}
	s.register(mcpServer, settings.ListPapersEnabled, listTool)

	readTool, err := tools.NewReadPaperTool(files, logger.Named("read_paper"))
	if err != nil {
		return nil, errors.Wrap(err, "build read_paper tool")
	}
	s.register(mcpServer, settings.ReadPaperEnabled, readTool)

	sectionsTool, err := tools.NewExtractSectionsTool(files, logger.Named("extract_sections"))
	if err != nil {
		return nil, errors.Wrap(err, "build extract_sections tool")
	}
	s.register(mcpServer, settings.ExtractSectionsEnabled, sectionsTool)

	addNoteTool, err := tools.NewAddPaperNoteTool(notes, files, logger.Named("add_paper_note"))
	if err != nil {
		return nil, errors.Wrap(err, "build add_paper_note tool")
	}
	s.register(mcpServer, settings.AddPaperNoteEnabled, addNoteTool)

	listNotesTool, err := tools.NewListPaperNotesTool(notes, logger.Named("list_paper_notes"))
	if err != nil {
		return nil, errors.Wrap(err, "build list_paper_notes tool")
	}
	s.register(mcpServer, settings.ListPaperNotesEnabled, listNotesTool)

	if index != nil {
		semanticTool, err := tools.NewSemanticSearchTool(index, papers, logger.Named("semantic_search"))
		if err != nil {
			return nil, errors.Wrap(err, "build semantic_search_papers tool")
		}
		s.register(mcpServer, settings.SemanticSearchEnabled, semanticTool)
	} else {
		s.logger.Info("semantic search tool unavailable, no embedder configured")
	}

	// A nil *semantic.Store must not reach the tool as a non-nil
	// interface value.
	var chunks tools.ChunkCounter
	if index != nil {
		chunks = index
	}
	statsTool, err := tools.NewSystemStatsTool(serverVersion,
		client, files, papers, notes, downloads, chunks, searcher,
		logger.Named("system_stats"))
	if err != nil {
		return nil, errors.Wrap(err, "build system_stats tool")
	}
	s.register(mcpServer, settings.SystemStatsEnabled, statsTool)

	streamable := srv.NewStreamableHTTPServer(mcpServer)

	s.handler = withHTTPLogging(
		withAuthorizationHeaderNormalization(
			withStaticTokenAuth(streamable, authToken, s.logger),
			s.logger),
		s.logger)

	return s, nil
}

// register adds the tool to the MCP server unless config disabled it.
func (s *Server) register(server *srv.MCPServer, enabled bool, tool tools.Tool) {
	def := tool.Definition()
	if !enabled {
		s.logger.Info("mcp tool disabled by config", zap.String("tool", def.Name))
		return
	}

	server.AddTool(def, tool.Handle)
	s.toolNames = append(s.toolNames, def.Name)
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	names := make([]string, len(s.toolNames))
	copy(names, s.toolNames)
	return names
}
