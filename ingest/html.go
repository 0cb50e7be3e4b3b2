package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"

	taskflow "github.com/taskflow-ai/taskflow"
)

// parseHTML extracts the readable article from an HTML document and runs the
// plain-text feature extraction over it. Navigation, scripts, and boilerplate
// are dropped by the readability pass.
func parseHTML(content []byte) (taskflow.ParsedPRD, error) {
	pageURL := &url.URL{Scheme: "file", Path: "/prd.html"}
	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err != nil {
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: extract html: %w", err)
	}

	prd, err := parsePlainText(article.TextContent)
	if err != nil {
		return taskflow.ParsedPRD{}, err
	}
	if article.Title != "" {
		prd.Title = article.Title
	}
	if prd.Description == "" && article.Excerpt != "" {
		prd.Description = article.Excerpt
	}
	return prd, nil
}
