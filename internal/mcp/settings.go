// Package mcp provides MCP server implementations and tools.
package mcp

import (
	gconfig "github.com/Laisky/go-config/v2"
)

// ToolsSettings captures runtime configuration for enabling or disabling individual MCP tools.
type ToolsSettings struct {
	SearchPapersEnabled    bool
	DownloadPaperEnabled   bool
	BatchDownloadEnabled   bool
	ListPapersEnabled      bool
	ReadPaperEnabled       bool
	ExtractSectionsEnabled bool
	AddPaperNoteEnabled    bool
	ListPaperNotesEnabled  bool
	SemanticSearchEnabled  bool
	SystemStatsEnabled     bool
}

// LoadToolsSettingsFromConfig reads the MCP tools configuration and returns a ToolsSettings instance.
// By default, all tools are enabled unless explicitly disabled in the configuration.
func LoadToolsSettingsFromConfig() ToolsSettings {
	return ToolsSettings{
		SearchPapersEnabled:    boolFromConfig("settings.mcp.tools.search_papers.enabled", true),
		DownloadPaperEnabled:   boolFromConfig("settings.mcp.tools.download_paper.enabled", true),
		BatchDownloadEnabled:   boolFromConfig("settings.mcp.tools.batch_download.enabled", true),
		ListPapersEnabled:      boolFromConfig("settings.mcp.tools.list_papers.enabled", true),
		ReadPaperEnabled:       boolFromConfig("settings.mcp.tools.read_paper.enabled", true),
		ExtractSectionsEnabled: boolFromConfig("settings.mcp.tools.extract_sections.enabled", true),
		AddPaperNoteEnabled:    boolFromConfig("settings.mcp.tools.add_paper_note.enabled", true),
		ListPaperNotesEnabled:  boolFromConfig("settings.mcp.tools.list_paper_notes.enabled", true),
		SemanticSearchEnabled:  boolFromConfig("settings.mcp.tools.semantic_search_papers.enabled", true),
		SystemStatsEnabled:     boolFromConfig("settings.mcp.tools.system_stats.enabled", true),
	}
}

// boolFromConfig retrieves a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch v {
		case "true", "True", "TRUE", "1", "yes", "Yes", "YES":
			return true
		case "false", "False", "FALSE", "0", "no", "No", "NO":
			return false
		default:
			return def
		}
	default:
		return def
	}
}
