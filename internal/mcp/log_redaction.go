package mcp

import (
	"encoding/json"
	"fmt"
)

// logElideThreshold is the longest string value logged verbatim. Tool
// payloads carry whole papers; logging them unabridged would dwarf
// everything else in the stream.
const logElideThreshold = 256

// redactMCPBody elides bulky values from an MCP payload before logging.
func redactMCPBody(raw string) string {
	if raw == "" {
		return raw
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return elideLongString(raw)
	}
	redacted := redactMCPValue(payload)
	out, err := json.Marshal(redacted)
	if err != nil {
		return elideLongString(raw)
	}
	return string(out)
}

// redactMCPValue walks the decoded payload and elides long strings.
func redactMCPValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		output := make(map[string]any, len(v))
		for key, item := range v {
			output[key] = redactMCPValue(item)
		}
		return output
	case []any:
		output := make([]any, 0, len(v))
		for _, item := range v {
			output = append(output, redactMCPValue(item))
		}
		return output
	case string:
		return elideLongString(v)
	default:
		return value
	}
}

// elideLongString keeps a readable prefix and notes how much was cut.
func elideLongString(s string) string {
	if len(s) <= logElideThreshold {
		return s
	}
	return fmt.Sprintf("%s... [%d bytes elided]", s[:logElideThreshold], len(s)-logElideThreshold)
}

// redactHookPayload renders a redacted JSON string for hook logging.
func redactHookPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return redactMCPBody(string(data))
}
