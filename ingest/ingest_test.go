package ingest

import (
	"context"
	"strings"
	"testing"

	taskflow "github.com/taskflow-ai/taskflow"
)

const samplePRD = `# Payments Revamp

We are rebuilding the payments flow to support multiple processors.

## Overview

This section describes context only and must not become a feature.

## Gateway abstraction

Introduce a processor-agnostic charge API.

- priority: critical
- estimate: 16h
- tags: backend, payments

## Retry pipeline

- depends on: Gateway abstraction
- priority: high
- Handle transient processor failures with backoff.

### Webhook verification

- depends on: Gateway abstraction, Retry pipeline
- estimate: 2 days

## Non-goals

- Multi-currency settlement
`

func TestParsePRD_Markdown(t *testing.T) {
	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(samplePRD), "md", taskflow.ParseOptions{})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}

	if prd.Title != "Payments Revamp" {
		t.Errorf("expected title from H1, got %q", prd.Title)
	}
	if !strings.Contains(prd.Description, "rebuilding the payments flow") {
		t.Errorf("expected intro in description, got %q", prd.Description)
	}

	features := prd.Metadata.Features
	if len(features) != 3 {
		t.Fatalf("expected 3 features (meta sections excluded), got %d: %+v", len(features), features)
	}

	gw := features[0]
	if gw.Name != "Gateway abstraction" {
		t.Errorf("expected first feature 'Gateway abstraction', got %q", gw.Name)
	}
	if gw.Priority != taskflow.PriorityCritical {
		t.Errorf("expected critical priority, got %q", gw.Priority)
	}
	if gw.EstimatedHours != 16 {
		t.Errorf("expected 16h estimate, got %v", gw.EstimatedHours)
	}
	if len(gw.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", gw.Tags)
	}

	retry := features[1]
	if len(retry.DependsOn) != 1 || retry.DependsOn[0] != "Gateway abstraction" {
		t.Errorf("expected dependency on gateway, got %v", retry.DependsOn)
	}
	if retry.Priority != taskflow.PriorityHigh {
		t.Errorf("expected high priority, got %q", retry.Priority)
	}
	if !strings.Contains(retry.Description, "transient processor failures") {
		t.Errorf("expected free-form list line in description, got %q", retry.Description)
	}

	webhook := features[2]
	if len(webhook.DependsOn) != 2 {
		t.Errorf("expected 2 dependencies, got %v", webhook.DependsOn)
	}
	if webhook.EstimatedHours != 16 {
		t.Errorf("expected 2 days = 16h, got %v", webhook.EstimatedHours)
	}
}

func TestParsePRD_DefaultsAndCap(t *testing.T) {
	md := "# Doc\n\n## A\n\n## B\n\n## C\n"
	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(md), "markdown", taskflow.ParseOptions{
		DefaultPriority: taskflow.PriorityLow,
		MaxFeatures:     2,
	})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}
	if len(prd.Metadata.Features) != 2 {
		t.Fatalf("expected cap at 2 features, got %d", len(prd.Metadata.Features))
	}
	for _, f := range prd.Metadata.Features {
		if f.Priority != taskflow.PriorityLow {
			t.Errorf("expected default priority low, got %q", f.Priority)
		}
		if f.Type != taskflow.TypeFeature {
			t.Errorf("expected default type feature, got %q", f.Type)
		}
	}
}

func TestParsePRD_JSON(t *testing.T) {
	doc := `{
		"title": "API v2",
		"description": "Second version.",
		"features": [
			{"name": "Auth", "priority": "high", "estimated_hours": 8},
			{"name": "Rate limiting", "depends_on": ["Auth"]}
		]
	}`
	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(doc), "json", taskflow.ParseOptions{})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}
	if prd.Title != "API v2" {
		t.Errorf("expected title 'API v2', got %q", prd.Title)
	}
	if len(prd.Metadata.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(prd.Metadata.Features))
	}
	if prd.Metadata.Features[1].DependsOn[0] != "Auth" {
		t.Errorf("expected dependency preserved, got %v", prd.Metadata.Features[1].DependsOn)
	}
}

func TestParsePRD_PlainText(t *testing.T) {
	txt := "Mobile App MVP\n" +
		"Ship the first iOS build.\n" +
		"1. Login screen - must have, ~8h\n" +
		"2. Feed view - should have\n" +
		"- depends on: Login screen\n"

	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(txt), "txt", taskflow.ParseOptions{})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}
	if prd.Title != "Mobile App MVP" {
		t.Errorf("expected title from first line, got %q", prd.Title)
	}
	features := prd.Metadata.Features
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d: %+v", len(features), features)
	}
	if features[0].Priority != taskflow.PriorityCritical {
		t.Errorf("expected 'must have' to map to critical, got %q", features[0].Priority)
	}
	if features[0].EstimatedHours != 8 {
		t.Errorf("expected ~8h estimate, got %v", features[0].EstimatedHours)
	}
	if len(features[1].DependsOn) != 1 || features[1].DependsOn[0] != "Login screen" {
		t.Errorf("expected attribute line to attach to previous feature, got %v", features[1].DependsOn)
	}
}

func TestParsePRD_HTML(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Checkout PRD</title></head><body>
		<nav>ignore this navigation</nav>
		<article>
			<h1>Checkout PRD</h1>
			<p>Rework the checkout funnel end to end so that payment capture is reliable.</p>
			<p>1. Cart persistence - critical, 12h</p>
			<p>2. One-click purchase - nice to have</p>
		</article>
	</body></html>`

	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(html), "html", taskflow.ParseOptions{})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}
	if !strings.Contains(prd.Title, "Checkout PRD") {
		t.Errorf("expected readability title, got %q", prd.Title)
	}
	if len(prd.Metadata.Features) != 2 {
		t.Fatalf("expected 2 features, got %d: %+v", len(prd.Metadata.Features), prd.Metadata.Features)
	}
	if prd.Metadata.Features[1].Priority != taskflow.PriorityLow {
		t.Errorf("expected 'nice to have' to map to low, got %q", prd.Metadata.Features[1].Priority)
	}
}

func TestParsePRD_UnsupportedAndEmpty(t *testing.T) {
	p := New()
	if _, err := p.ParsePRD(context.Background(), []byte("x"), "docx", taskflow.ParseOptions{}); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := p.ParsePRD(context.Background(), nil, "md", taskflow.ParseOptions{}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestHoursFromText(t *testing.T) {
	cases := map[string]float64{
		"~16h":            16,
		"3 hours":         3,
		"2 days":          16,
		"takes 1.5h":      1.5,
		"no estimate":     0,
		"version 2 of it": 0,
	}
	for in, want := range cases {
		if got := hoursFromText(in); got != want {
			t.Errorf("hoursFromText(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTasksFromParsedPRD(t *testing.T) {
	p := New()
	prd, err := p.ParsePRD(context.Background(), []byte(samplePRD), "md", taskflow.ParseOptions{})
	if err != nil {
		t.Fatalf("ParsePRD: %v", err)
	}

	tasks := taskflow.TasksFromPRD(prd)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	// Feature-name dependencies resolve to task IDs.
	byName := map[string]taskflow.Task{}
	for _, task := range tasks {
		byName[task.Name] = task
	}
	retry := byName["Retry pipeline"]
	if len(retry.Dependencies) != 1 || retry.Dependencies[0] != byName["Gateway abstraction"].ID {
		t.Errorf("expected resolved dependency ID, got %v", retry.Dependencies)
	}
}
