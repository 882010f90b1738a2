// Package classify turns video metadata into validated classification records
// by asking a language model.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/edufilter/internal/classify/prompt"
	"github.com/vietddude/edufilter/internal/classify/validate"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/infra/gemini"
	"github.com/vietddude/edufilter/internal/metrics"
)

// Diagnostic reasons for provider failures.
const (
	ReasonInvalidStructure = "Invalid response structure."
	ReasonProcessing       = "Error processing request."
)

// Generator sends a prompt to a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) gemini.Result
}

// Classifier classifies a single video with one model call.
type Classifier struct {
	gen       Generator
	prompts   prompt.Builder
	validator validate.Validator
	model     string
	log       *slog.Logger
}

// NewClassifier creates a classifier. model is only used as a metrics label.
func NewClassifier(gen Generator, prompts prompt.Builder, validator validate.Validator, model string) *Classifier {
	return &Classifier{
		gen:       gen,
		prompts:   prompts,
		validator: validator,
		model:     model,
		log:       slog.Default().With("component", "classifier"),
	}
}

// Classify never fails: provider and parsing problems are folded into a
// default record whose reason names the problem.
func (c *Classifier) Classify(ctx context.Context, meta domain.VideoMetadata) domain.ClassificationRecord {
	rec, _ := c.ClassifyOutcome(ctx, meta)
	return rec
}

// ClassifyOutcome is Classify that also reports whether the record came from
// the model (true) or is a default record (false).
func (c *Classifier) ClassifyOutcome(ctx context.Context, meta domain.VideoMetadata) (domain.ClassificationRecord, bool) {
	start := time.Now()
	res := c.gen.Generate(ctx, c.prompts.Build(meta))
	metrics.ModelLatency.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	switch r := res.(type) {
	case gemini.Success:
		metrics.ModelCallsTotal.WithLabelValues(c.model, "success").Inc()
		return c.validator.Check(r.Text)

	case gemini.MalformedEnvelope:
		metrics.ModelCallsTotal.WithLabelValues(c.model, "malformed").Inc()
		c.log.Warn("Model returned unexpected envelope", "title", meta.Title, "detail", r.Detail)
		return c.validator.Default(ReasonInvalidStructure), false

	case gemini.TransportError:
		metrics.ModelCallsTotal.WithLabelValues(c.model, "transport_error").Inc()
		c.log.Warn("Model call failed", "title", meta.Title, "status", r.Status, "error", r.Err)
		if r.Status != 0 {
			return c.validator.Default(fmt.Sprintf("HTTP error! status: %d", r.Status)), false
		}
		return c.validator.Default(ReasonProcessing), false

	default:
		c.log.Error("Unknown provider result", "type", fmt.Sprintf("%T", res))
		return c.validator.Default(ReasonProcessing), false
	}
}
