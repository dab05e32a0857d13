package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	mcp "github.com/mark3labs/mcp-go/mcp"
)

func callTool(t *testing.T, tool Tool, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	result, err := tool.Handle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return textContent.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, dst any) {
	t.Helper()

	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), dst))
}
