// Package ingest extracts structured features from product-requirements
// documents. Markdown is parsed through a goldmark AST, HTML goes through
// readability extraction, PDFs through page text extraction; JSON documents
// carry the structure directly.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	taskflow "github.com/taskflow-ai/taskflow"
)

// Parser implements taskflow.PRDParser. The zero value is not usable; create
// one with New.
type Parser struct{}

var _ taskflow.PRDParser = (*Parser)(nil)

// New creates a Parser.
func New() *Parser { return &Parser{} }

// ParsePRD converts raw document content into a ParsedPRD, dispatching on
// fileType (an extension or short name, case-insensitive). Text content is
// NFC-normalized before extraction so heading and dependency names compare
// consistently regardless of the source editor.
func (p *Parser) ParsePRD(ctx context.Context, content []byte, fileType string, opts taskflow.ParseOptions) (taskflow.ParsedPRD, error) {
	if len(content) == 0 {
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: empty document")
	}

	var (
		prd taskflow.ParsedPRD
		err error
	)
	switch normalizeFileType(fileType) {
	case "markdown":
		prd, err = parseMarkdown(norm.NFC.Bytes(content))
	case "json":
		prd, err = parseJSON(content)
	case "html":
		prd, err = parseHTML(norm.NFC.Bytes(content))
	case "pdf":
		prd, err = parsePDF(content)
	case "text":
		prd, err = parsePlainText(string(norm.NFC.Bytes(content)))
	default:
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: unsupported file type %q", fileType)
	}
	if err != nil {
		return taskflow.ParsedPRD{}, err
	}

	finalize(&prd, fileType, opts)
	return prd, nil
}

func normalizeFileType(fileType string) string {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "md", "markdown":
		return "markdown"
	case "json":
		return "json"
	case "html", "htm":
		return "html"
	case "pdf":
		return "pdf"
	case "txt", "text", "":
		return "text"
	default:
		return strings.ToLower(strings.TrimPrefix(fileType, "."))
	}
}

// finalize applies parse options and fills derived fields.
func finalize(prd *taskflow.ParsedPRD, fileType string, opts taskflow.ParseOptions) {
	if prd.ID == "" {
		prd.ID = taskflow.NewID()
	}
	if prd.Title == "" {
		prd.Title = "Untitled PRD"
	}
	prd.Metadata.Source = normalizeFileType(fileType)
	prd.Metadata.ParsedAt = time.Now().Unix()

	if opts.MaxFeatures > 0 && len(prd.Metadata.Features) > opts.MaxFeatures {
		prd.Metadata.Features = prd.Metadata.Features[:opts.MaxFeatures]
	}
	for i := range prd.Metadata.Features {
		f := &prd.Metadata.Features[i]
		if f.Priority == "" {
			if opts.DefaultPriority != "" {
				f.Priority = opts.DefaultPriority
			} else {
				f.Priority = taskflow.PriorityMedium
			}
		}
		if f.Type == "" {
			f.Type = taskflow.TypeFeature
		}
	}
}
