package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateServerConfig(get, &validationErrs)
	validateMCPToolsConfig(get, &validationErrs)
	validateStorageConfig(get, &validationErrs)
	validateArxivConfig(get, &validationErrs)
	validateSearchConfig(get, &validationErrs)
	validateSemanticConfig(get, &validationErrs)
	validateOpenAIConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateServerConfig validates HTTP server related configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateServerConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.server.auth_token", errs)
	validateOptionalStringList(get, "settings.server.allowed_origins", errs)
}

// validateMCPToolsConfig validates MCP tool toggles.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPToolsConfig(get configGetter, errs *[]string) {
	keys := []string{
		"settings.mcp.tools.search_papers.enabled",
		"settings.mcp.tools.download_paper.enabled",
		"settings.mcp.tools.batch_download.enabled",
		"settings.mcp.tools.list_papers.enabled",
		"settings.mcp.tools.read_paper.enabled",
		"settings.mcp.tools.extract_sections.enabled",
		"settings.mcp.tools.add_paper_note.enabled",
		"settings.mcp.tools.list_paper_notes.enabled",
		"settings.mcp.tools.semantic_search_papers.enabled",
		"settings.mcp.tools.system_stats.enabled",
	}

	for _, key := range keys {
		validateOptionalBool(get, key, errs)
	}
}

// validateStorageConfig validates local storage and pdf mirror configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateStorageConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.storage.path", errs)

	validateOptionalBool(get, "settings.storage.mirror.enabled", errs)
	validateOptionalBool(get, "settings.storage.mirror.use_ssl", errs)

	enabled, _ := parseStrictBool(get("settings.storage.mirror.enabled"))
	if !enabled {
		return
	}

	for _, key := range []string{
		"settings.storage.mirror.endpoint",
		"settings.storage.mirror.bucket",
		"settings.storage.mirror.access_key",
		"settings.storage.mirror.secret_key",
	} {
		validateRequiredString(get, key, errs)
	}
}

// validateArxivConfig validates arXiv API client configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateArxivConfig(get configGetter, errs *[]string) {
	validateOptionalURL(get, "settings.arxiv.endpoint", errs)
	validateOptionalIntMin(get, "settings.arxiv.page_size", 1, errs)
	validateOptionalIntMin(get, "settings.arxiv.request_delay_ms", 0, errs)
	validateOptionalIntMin(get, "settings.arxiv.retries", 0, errs)
}

// validateSearchConfig validates search service configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateSearchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.search.max_results", 1, errs)
}

// validateSemanticConfig validates semantic index configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateSemanticConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.semantic.enabled", errs)
	validateOptionalIntMin(get, "settings.semantic.top_k_default", 1, errs)
	validateOptionalIntMin(get, "settings.semantic.top_k_limit", 1, errs)
	validateOptionalIntMin(get, "settings.semantic.max_chunk_chars", 201, errs)

	defaultRaw := get("settings.semantic.top_k_default")
	limitRaw := get("settings.semantic.top_k_limit")
	if defaultRaw != nil && limitRaw != nil {
		topKDefault, defaultErr := parseStrictInt(defaultRaw)
		topKLimit, limitErr := parseStrictInt(limitRaw)
		if defaultErr == nil && limitErr == nil && topKDefault > topKLimit {
			appendValidationError(errs, "settings.semantic.top_k_default must be <= settings.semantic.top_k_limit")
		}
	}

	enabled, _ := parseStrictBool(get("settings.semantic.enabled"))
	if !enabled {
		return
	}

	for _, key := range []string{
		"settings.db.postgres.addr",
		"settings.db.postgres.db",
		"settings.db.postgres.user",
	} {
		validateRequiredString(get, key, errs)
	}
}

// validateOpenAIConfig validates OpenAI-related endpoint and model configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateOpenAIConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.openai.embedding_model", errs)
	validateOptionalStringNonEmpty(get, "settings.openai.api_key", errs)
	validateOptionalURL(get, "settings.openai.base_url", errs)
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalStringList validates an optionally configured list of non-empty strings.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringList(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		appendValidationError(errs, "%s must be a list of strings", key)
		return
	}

	for idx, item := range items {
		value, parseErr := parseStrictString(item)
		if parseErr != nil || strings.TrimSpace(value) == "" {
			appendValidationError(errs, "%s[%d] must be a non-empty string", key, idx)
		}
	}
}

// validateRequiredString validates a key that must be present as a non-empty string.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil || strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must be a non-empty string", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
