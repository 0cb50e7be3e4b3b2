package ingest

import (
	"encoding/json"
	"fmt"

	taskflow "github.com/taskflow-ai/taskflow"
)

// jsonPRD is the accepted JSON document shape. It mirrors ParsedPRD but
// tolerates features at the top level as well as under metadata.
type jsonPRD struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Features    []taskflow.Feature `json:"features"`
	Metadata    struct {
		Features []taskflow.Feature `json:"features"`
	} `json:"metadata"`
}

// parseJSON reads a PRD that is already structured.
func parseJSON(content []byte) (taskflow.ParsedPRD, error) {
	var doc jsonPRD
	if err := json.Unmarshal(content, &doc); err != nil {
		return taskflow.ParsedPRD{}, fmt.Errorf("ingest: parse json prd: %w", err)
	}

	features := doc.Features
	if len(features) == 0 {
		features = doc.Metadata.Features
	}

	return taskflow.ParsedPRD{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Metadata:    taskflow.PRDMetadata{Features: features},
	}, nil
}
