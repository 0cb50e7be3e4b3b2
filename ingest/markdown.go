package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	taskflow "github.com/taskflow-ai/taskflow"
)

// Section headings that describe the document rather than work to do.
var nonFeatureSections = map[string]bool{
	"overview":     true,
	"introduction": true,
	"background":   true,
	"summary":      true,
	"non-goals":    true,
	"non goals":    true,
	"out of scope": true,
	"glossary":     true,
	"appendix":     true,
	"references":   true,
	"notes":        true,
}

// parseMarkdown extracts a PRD from a markdown document. The first H1 is the
// title, H2/H3 headings become features (except well-known meta sections),
// and the paragraphs under each heading form its description. List items
// carry attribute lines like "depends on: X" or "priority: high".
func parseMarkdown(src []byte) (taskflow.ParsedPRD, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var prd taskflow.ParsedPRD
	var current *taskflow.Feature
	var intro []string
	skipSection := false

	flush := func() {
		if current != nil {
			prd.Metadata.Features = append(prd.Metadata.Features, *current)
			current = nil
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(nodeText(node, src))
			switch {
			case node.Level == 1:
				if prd.Title == "" {
					prd.Title = title
				}
			case node.Level == 2 || node.Level == 3:
				flush()
				if nonFeatureSections[strings.ToLower(title)] {
					skipSection = true
					continue
				}
				skipSection = false
				f := featureFromName(title)
				current = &f
			}

		case *ast.Paragraph:
			body := strings.TrimSpace(nodeText(node, src))
			if body == "" || skipSection {
				continue
			}
			if current == nil {
				intro = append(intro, body)
				continue
			}
			if current.Description == "" {
				current.Description = body
			} else {
				current.Description += "\n" + body
			}

		case *ast.List:
			if skipSection {
				continue
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				line := strings.TrimSpace(nodeText(item, src))
				if line == "" {
					continue
				}
				if current != nil {
					applyAttributeLine(current, line)
				}
			}
		}
	}
	flush()

	prd.Description = strings.Join(intro, "\n\n")
	return prd, nil
}

// nodeText collects the raw text of all leaf text nodes under n.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// applyAttributeLine folds one list item into the feature. Recognized
// "key: value" lines set attributes; anything else extends the description.
func applyAttributeLine(f *taskflow.Feature, line string) {
	key, value, found := strings.Cut(line, ":")
	if found {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "depends on", "depends", "requires", "after":
			for _, name := range strings.Split(value, ",") {
				if name = strings.TrimSpace(name); name != "" {
					f.DependsOn = append(f.DependsOn, name)
				}
			}
			return
		case "priority":
			if p := priorityFromKeywords(value); p != "" {
				f.Priority = p
			}
			return
		case "type":
			if t := typeFromKeywords(value); t != "" {
				f.Type = t
			}
			return
		case "estimate", "effort", "hours":
			if h := hoursFromText(value); h > 0 {
				f.EstimatedHours = h
			}
			return
		case "tags":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					f.Tags = append(f.Tags, tag)
				}
			}
			return
		}
	}

	if f.Description == "" {
		f.Description = line
	} else {
		f.Description += "\n" + line
	}
	// Free-form lines can still carry signals ("must have", "~16h").
	if f.Priority == "" {
		f.Priority = priorityFromKeywords(line)
	}
	if f.EstimatedHours == 0 {
		f.EstimatedHours = hoursFromText(line)
	}
}
