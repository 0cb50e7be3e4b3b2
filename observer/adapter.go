package observer

import (
	"context"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedAdapter wraps a taskflow.Adapter with OTEL instrumentation.
type ObservedAdapter struct {
	inner taskflow.Adapter
	inst  *Instruments
	model string
}

var _ taskflow.Adapter = (*ObservedAdapter)(nil)

// WrapAdapter returns an instrumented adapter that emits traces, metrics,
// and logs for every call. model is the configured model name used for cost
// attribution.
func WrapAdapter(inner taskflow.Adapter, model string, inst *Instruments) *ObservedAdapter {
	return &ObservedAdapter{inner: inner, inst: inst, model: model}
}

func (o *ObservedAdapter) Name() string { return o.inner.Name() }

func (o *ObservedAdapter) EstimateCost(promptTokens, completionTokens int) float64 {
	return o.inner.EstimateCost(promptTokens, completionTokens)
}

func (o *ObservedAdapter) Complete(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions) (taskflow.CompletionResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	resp, err := o.inner.Complete(ctx, messages, opts)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.record(ctx, span, "complete", status, durationMs, resp.Usage)
	return resp, err
}

func (o *ObservedAdapter) Stream(ctx context.Context, messages []taskflow.ChatMessage, opts taskflow.CompletionOptions, ch chan<- taskflow.StreamChunk) (taskflow.CompletionResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.stream", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	// Wrap the channel to count chunks. Buffer generously so the inner
	// adapter never blocks on send while nobody reads ch until Stream
	// returns.
	bufSize := max(cap(ch), 64)
	wrappedCh := make(chan taskflow.StreamChunk, bufSize)
	chunks := 0
	done := make(chan struct{})
	go func() {
		defer close(ch)
		defer close(done)
		for chunk := range wrappedCh {
			chunks++
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	resp, err := o.inner.Stream(ctx, messages, opts, wrappedCh)
	<-done // wait for the forwarder before reading chunks

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.SetAttributes(AttrStreamChunks.Int(chunks))
	o.record(ctx, span, "stream", status, durationMs, resp.Usage)
	return resp, err
}

func (o *ObservedAdapter) Test(ctx context.Context) (time.Duration, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.test", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()

	latency, err := o.inner.Test(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int64("llm.latency_ms", latency.Milliseconds()))
	return latency, err
}

func (o *ObservedAdapter) record(ctx context.Context, span trace.Span, method, status string, durationMs float64, usage *taskflow.Usage) {
	var promptTokens, completionTokens int
	if usage != nil {
		promptTokens = usage.PromptTokens
		completionTokens = usage.CompletionTokens
	}
	cost := o.inst.Cost.Calculate(o.model, promptTokens, completionTokens)

	attrs := metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	)

	span.SetAttributes(
		AttrTokensInput.Int(promptTokens),
		AttrTokensOutput.Int(completionTokens),
		AttrCostUSD.Float64(cost),
	)

	o.inst.TokenUsage.Add(ctx, int64(promptTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "input"),
	))
	o.inst.TokenUsage.Add(ctx, int64(completionTokens), metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "output"),
	))
	o.inst.CostTotal.Add(ctx, cost, attrs)
	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMs, attrs)

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("llm call completed"))
	rec.AddAttributes(
		otellog.String("llm.model", o.model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("llm.method", method),
		otellog.Int("llm.tokens.input", promptTokens),
		otellog.Int("llm.tokens.output", completionTokens),
		otellog.Float64("llm.cost_usd", cost),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}
