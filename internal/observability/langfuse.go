package observability

import (
	"context"
	"log"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/config"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// Observation levels
const (
	levelDefault = model.ObservationLevel("DEFAULT")
	levelError   = model.ObservationLevel("ERROR")
)

// Tracer records one Langfuse trace per generation and one observation per
// candidate attempt. A nil *Tracer and everything it returns are no-ops.
type Tracer struct {
	client *langfuse.Langfuse
}

// NewTracer returns nil unless Langfuse is enabled and both keys are set.
// The SDK reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY itself.
func NewTracer(ctx context.Context, cfg *config.Config) *Tracer {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" || cfg.LangfusePublicKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or keys not set)")
		return nil
	}
	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	return &Tracer{client: langfuse.New(ctx)}
}

// GenerationTrace groups the attempts of one generation
type GenerationTrace struct {
	client *langfuse.Langfuse
	trace  *model.Trace
	ctx    context.Context
}

// StartGeneration opens a trace. Failures are logged and tracing is skipped.
func (t *Tracer) StartGeneration(ctx context.Context, name string, metadata map[string]interface{}) *GenerationTrace {
	if t == nil {
		return nil
	}
	trace, err := t.client.Trace(&model.Trace{Name: name, Metadata: metadata})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return nil
	}
	return &GenerationTrace{client: t.client, trace: trace, ctx: ctx}
}

// ID returns the trace ID, empty when tracing is off
func (g *GenerationTrace) ID() string {
	if g == nil {
		return ""
	}
	return g.trace.ID
}

// StartAttempt opens an observation for one candidate model
func (g *GenerationTrace) StartAttempt(
	modelName string, attempt int, parameters map[string]interface{}, input interface{},
) *Attempt {
	if g == nil {
		return nil
	}
	now := time.Now()
	gen, err := g.client.Generation(&model.Generation{
		TraceID:         g.trace.ID,
		Name:            "attempt-" + modelName,
		StartTime:       &now,
		Model:           modelName,
		ModelParameters: model.M(parameters),
		Input:           input,
		Metadata:        map[string]interface{}{"attempt": attempt},
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return nil
	}
	return &Attempt{client: g.client, generation: gen}
}

// End flushes everything queued for the trace. It runs even when the
// request context is already cancelled.
func (g *GenerationTrace) End() {
	if g == nil {
		return
	}
	g.client.Flush(context.WithoutCancel(g.ctx))
}

// Attempt is the observation for one candidate model
type Attempt struct {
	client     *langfuse.Langfuse
	generation *model.Generation
}

// Succeed closes the observation with the full streamed text
func (a *Attempt) Succeed(output string) {
	a.end(output, levelDefault, "")
}

// Fail closes the observation with the discarded partial text and the error
func (a *Attempt) Fail(partial string, err error) {
	a.end(partial, levelError, err.Error())
}

func (a *Attempt) end(output string, level model.ObservationLevel, status string) {
	if a == nil {
		return
	}
	now := time.Now()
	a.generation.Output = output
	a.generation.Level = level
	a.generation.StatusMessage = status
	a.generation.EndTime = &now
	if _, err := a.client.GenerationEnd(a.generation); err != nil {
		log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
	}
}
