package tools

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"
)

// readStringArg extracts an optional string argument from the request.
func readStringArg(req mcp.CallToolRequest, key string) string {
	if req.Params.Arguments == nil {
		return ""
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(string); ok {
			return value
		}
	}
	return ""
}

// readIntArgWithDefault extracts an optional int argument with a default fallback.
func readIntArgWithDefault(req mcp.CallToolRequest, key string, def int) int {
	if req.Params.Arguments == nil {
		return def
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		switch value := raw[key].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		}
	}
	return def
}

// readBoolArgWithDefault extracts an optional bool argument with a default fallback.
func readBoolArgWithDefault(req mcp.CallToolRequest, key string, def bool) bool {
	if req.Params.Arguments == nil {
		return def
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(bool); ok {
			return value
		}
	}
	return def
}

// readStringSliceArg extracts an optional string-array argument from the request.
func readStringSliceArg(req mcp.CallToolRequest, key string) []string {
	if req.Params.Arguments == nil {
		return nil
	}
	raw, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}

	switch values := raw[key].(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, value := range values {
			if s, ok := value.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// parseDateArg reads an optional date argument accepting YYYY-MM-DD or
// RFC3339, returning nil when absent.
func parseDateArg(req mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := strings.TrimSpace(readStringArg(req, key))
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc, nil
		}
	}
	return nil, errors.Errorf("cannot parse %q as YYYY-MM-DD", raw)
}

// jsonResult encodes the payload, downgrading encoding failures to a
// plain tool error.
func jsonResult(logger logSDK.Logger, payload any) (*mcp.CallToolResult, error) {
	toolResult, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		logger.Error("encode tool result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode tool result"), nil
	}
	return toolResult, nil
}
