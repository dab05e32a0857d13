// Package web hosts the MCP transport and operational endpoints on gin.
package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/arxiv-mcp/internal/mcp"
	"github.com/Laisky/arxiv-mcp/library/log"
)

// mcpEndpointPath is where the streamable HTTP transport is mounted.
const mcpEndpointPath = "/mcp"

// NewRouter assembles the gin engine serving the MCP endpoint, the
// health probe and the browser inspector.
func NewRouter(mcpServer *mcp.Server) (*gin.Engine, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server is required")
	}

	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS(gconfig.Shared.GetStringSlice("settings.server.allowed_origins")),
	)

	engine.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	mcpHandler := mcpServer.Handler()
	engine.Any(mcpEndpointPath, gin.WrapH(mcpHandler))
	engine.Any(mcpEndpointPath+"/*path", gin.WrapH(mcpHandler))

	engine.GET("/debug/inspector", gin.WrapH(
		mcp.NewInspectorHandler(mcpEndpointPath, log.Logger.Named("inspector"))))

	return engine, nil
}

// RunServer blocks serving HTTP on addr until the process exits.
func RunServer(addr string, mcpServer *mcp.Server) {
	engine, err := NewRouter(mcpServer)
	if err != nil {
		log.Logger.Panic("build router", zap.Error(err))
	}

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("http server exit", zap.Error(engine.Run(addr)))
}

// allowCORS permits browser clients served from the configured domains.
// Each entry matches itself and all of its subdomains. An empty list
// emits no CORS headers at all.
func allowCORS(allowedDomains []string) gin.HandlerFunc {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		allowedOrigin := ""

		if origin != "" {
			if parsed, err := url.Parse(origin); err == nil {
				host := strings.ToLower(parsed.Hostname())
				for _, domain := range domains {
					if host == domain || strings.HasSuffix(host, "."+domain) {
						allowedOrigin = origin
						break
					}
				}
			}
		}

		if allowedOrigin != "" {
			ctx.Header("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Mcp-Session-Id, Last-Event-ID")
			ctx.Header("Access-Control-Expose-Headers", "Mcp-Session-Id")
			ctx.Header("Access-Control-Max-Age", "86400")
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			// Preflight from a disallowed origin gets an explicit deny.
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}
