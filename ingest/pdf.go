package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"golang.org/x/text/unicode/norm"

	taskflow "github.com/taskflow-ai/taskflow"
)

// parsePDF extracts page text from a PDF and runs the plain-text feature
// extraction over it. Pages that fail to decode are skipped.
func parsePDF(content []byte) (taskflow.ParsedPRD, error) {
	if len(content) == 0 {
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: empty pdf")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: open pdf: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	return parsePlainText(string(norm.NFC.Bytes([]byte(text.String()))))
}
