package tools

import "strings"

// sectionVariants maps canonical section names to the heading
// spellings papers actually use.
var sectionVariants = map[string][]string{
	"abstract":     {"abstract", "summary"},
	"introduction": {"introduction", "intro", "background"},
	"methods":      {"methods", "methodology", "method", "approach", "materials and methods"},
	"results":      {"results", "findings", "experiments", "experimental results"},
	"discussion":   {"discussion", "analysis"},
	"conclusion":   {"conclusion", "conclusions", "concluding remarks", "summary and conclusions"},
	"references":   {"references", "bibliography", "works cited"},
}

// normalizeSectionName returns the heading spellings to try for one
// requested section.
func normalizeSectionName(section string) []string {
	lowered := strings.ToLower(strings.TrimSpace(section))
	if variants, ok := sectionVariants[lowered]; ok {
		return variants
	}
	return []string{lowered}
}

// parseHeading splits a markdown heading line into level and text. A
// non-heading line reports level zero.
func parseHeading(line string) (int, string) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 {
		return 0, ""
	}
	return level, strings.TrimSpace(line[level:])
}

// extractSection returns the requested section including its heading
// line. With includeSubsections the slice runs until the next level-1
// or level-2 heading; otherwise any heading ends it.
func extractSection(content, section string, includeSubsections bool) (string, bool) {
	lines := strings.Split(content, "\n")

	for _, variant := range normalizeSectionName(section) {
		for i, line := range lines {
			level, text := parseHeading(line)
			if level == 0 || !strings.EqualFold(text, variant) {
				continue
			}

			end := len(lines)
			for j := i + 1; j < len(lines); j++ {
				nextLevel, _ := parseHeading(lines[j])
				if nextLevel == 0 {
					continue
				}
				if includeSubsections && nextLevel > 2 {
					continue
				}
				end = j
				break
			}

			return strings.TrimSpace(strings.Join(lines[i:end], "\n")), true
		}
	}

	return "", false
}

// availableSections lists the paper's first twenty headings,
// deduplicated case-insensitively in order of appearance.
func availableSections(content string) []string {
	var headings []string
	for _, line := range strings.Split(content, "\n") {
		if level, text := parseHeading(line); level > 0 && text != "" {
			headings = append(headings, text)
			if len(headings) == 20 {
				break
			}
		}
	}

	var unique []string
	for _, heading := range headings {
		seen := false
		for _, existing := range unique {
			if strings.EqualFold(existing, heading) {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, heading)
		}
	}
	return unique
}
