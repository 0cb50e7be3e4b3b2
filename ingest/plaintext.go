package ingest

import (
	"regexp"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// featureLine matches numbered or bulleted requirement lines, such as
// "1. Build the API", "2) Ship auth", "- User login".
var featureLine = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s+(.+)$`)

// parsePlainText extracts a PRD from unstructured text: the first non-empty
// line is the title, leading prose is the description, and numbered or
// bulleted lines become features. The same attribute heuristics as markdown
// lists apply to each feature line.
func parsePlainText(content string) (taskflow.ParsedPRD, error) {
	var prd taskflow.ParsedPRD
	var intro []string

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := featureLine.FindStringSubmatch(line); m != nil {
			body := strings.TrimSpace(m[1])
			// "key: value" continuation lines attach to the last feature.
			if n := len(prd.Metadata.Features); n > 0 && isAttributeLine(body) {
				applyAttributeLine(&prd.Metadata.Features[n-1], body)
				continue
			}
			name, rest, _ := strings.Cut(body, " - ")
			f := featureFromName(strings.TrimSpace(name))
			if rest = strings.TrimSpace(rest); rest != "" {
				f.Description = rest
				if f.Priority == "" {
					f.Priority = priorityFromKeywords(rest)
				}
				f.EstimatedHours = hoursFromText(rest)
			}
			prd.Metadata.Features = append(prd.Metadata.Features, f)
			continue
		}

		if prd.Title == "" {
			prd.Title = line
			continue
		}
		if len(prd.Metadata.Features) == 0 {
			intro = append(intro, line)
		}
	}

	prd.Description = strings.Join(intro, "\n")
	return prd, nil
}

func isAttributeLine(line string) bool {
	key, _, found := strings.Cut(line, ":")
	if !found {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "depends on", "depends", "requires", "after", "priority", "type", "estimate", "effort", "hours", "tags":
		return true
	}
	return false
}
