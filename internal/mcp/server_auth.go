package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/arxiv-mcp/library"
)

// withAuthorizationHeaderNormalization copies a query-parameter API key
// into the Authorization header. Some MCP clients cannot set headers on
// streamable HTTP transports, so downstream code can still rely on a
// single auth channel.
func withAuthorizationHeaderNormalization(next http.Handler, logger logSDK.Logger) http.Handler {
	if next == nil {
		return nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader, source := resolveRequestAuthorizationHeader(r)
		if source == "query_apikey" && strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			r.Header.Set("Authorization", authHeader)
			if logger != nil {
				logger.Debug("normalized query api key into authorization header; prefer Authorization header")
			}
		}

		next.ServeHTTP(w, r)
	})
}

// withStaticTokenAuth rejects requests whose bearer token does not match
// the configured one. An empty token disables the check, leaving the
// endpoint open for local setups.
func withStaticTokenAuth(next http.Handler, token string, logger logSDK.Logger) http.Handler {
	if next == nil {
		return nil
	}
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := library.StripBearerPrefix(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			if logger != nil {
				logger.Warn("mcp request rejected, bad token",
					zap.String("remote_addr", r.RemoteAddr))
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRequestAuthorizationHeader resolves the canonical Authorization
// header value for an MCP HTTP request.
//
// Returns:
//   - authHeader: normalized authorization header value, or empty string when unavailable.
//   - source: where authorization was sourced from: "header", "query_apikey", or "none".
func resolveRequestAuthorizationHeader(r *http.Request) (authHeader string, source string) {
	if r == nil {
		return "", "none"
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		return header, "header"
	}

	apiKey := extractAPIKeyFromQuery(r)
	if apiKey != "" {
		return "Bearer " + apiKey, "query_apikey"
	}

	return "", "none"
}

// extractAPIKeyFromQuery extracts an API key from common MCP query
// parameters.
func extractAPIKeyFromQuery(r *http.Request) (apiKey string) {
	if r == nil || r.URL == nil {
		return ""
	}

	query := r.URL.Query()
	for _, key := range []string{"APIKEY", "apikey", "api_key"} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}

		trimmed := strings.TrimSpace(library.StripBearerPrefix(raw))
		if trimmed != "" {
			return trimmed
		}
	}

	return ""
}
