package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vietddude/edufilter/internal/classify/prompt"
	"github.com/vietddude/edufilter/internal/classify/validate"
	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/infra/gemini"
)

// fakeGenerator answers every prompt through respond and remembers prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) gemini.Result
}

func (f *fakeGenerator) Generate(_ context.Context, p string) gemini.Result {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	return f.respond(p)
}

func fixed(r gemini.Result) *fakeGenerator {
	return &fakeGenerator{respond: func(string) gemini.Result { return r }}
}

func newTestClassifier(gen Generator) *Classifier {
	return NewClassifier(gen, prompt.NewBuilder(0), validate.New(domain.LabelUncertain), "test-model")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		result gemini.Result
		want   domain.ClassificationRecord
	}{
		{
			name:   "valid model output",
			result: gemini.Success{Text: `{"label":"educational","confidence":0.9,"reason":"Teaches algebra."}`},
			want:   domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0.9, Reason: "Teaches algebra."},
		},
		{
			name:   "fenced model output",
			result: gemini.Success{Text: "```json\n{\"label\":\"non-educational\",\"confidence\":0.7,\"reason\":\"Prank.\"}\n```"},
			want:   domain.ClassificationRecord{Label: domain.LabelNonEducational, Confidence: 0.7, Reason: "Prank."},
		},
		{
			name:   "model text is not json",
			result: gemini.Success{Text: "I think it is educational"},
			want:   domain.DefaultRecord(domain.LabelUncertain, validate.ReasonMalformedJSON),
		},
		{
			name:   "unexpected envelope",
			result: gemini.MalformedEnvelope{Detail: "no candidates"},
			want:   domain.DefaultRecord(domain.LabelUncertain, ReasonInvalidStructure),
		},
		{
			name:   "upstream status",
			result: gemini.TransportError{Status: 503, Err: errors.New("unavailable")},
			want:   domain.DefaultRecord(domain.LabelUncertain, "HTTP error! status: 503"),
		},
		{
			name:   "connection failure",
			result: gemini.TransportError{Err: errors.New("dial tcp: refused")},
			want:   domain.DefaultRecord(domain.LabelUncertain, ReasonProcessing),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(fixed(tt.result))
			got := c.Classify(context.Background(), domain.VideoMetadata{Title: "Intro"})
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify_SendsBuiltPrompt(t *testing.T) {
	gen := fixed(gemini.Success{Text: `{"label":"educational","confidence":1,"reason":"ok"}`})
	c := newTestClassifier(gen)

	meta := domain.VideoMetadata{Title: "Linear Algebra 101", ChannelName: "MathChannel", IsEducationalChannel: true}
	c.Classify(context.Background(), meta)

	if len(gen.prompts) != 1 {
		t.Fatalf("expected exactly one model call, got %d", len(gen.prompts))
	}
	if gen.prompts[0] != prompt.NewBuilder(0).Build(meta) {
		t.Error("classifier did not send the builder's prompt")
	}
	if !strings.Contains(gen.prompts[0], "Linear Algebra 101") {
		t.Error("prompt is missing the title")
	}
}

func TestClassify_ConfiguredDefaultLabel(t *testing.T) {
	c := NewClassifier(fixed(gemini.MalformedEnvelope{}), prompt.NewBuilder(0), validate.New(domain.LabelNonEducational), "m")
	got := c.Classify(context.Background(), domain.VideoMetadata{})
	if got.Label != domain.LabelNonEducational || got.Confidence != 0 {
		t.Errorf("unexpected default record %+v", got)
	}
}

func TestClassify_EmptyModelTextIsMalformedJSON(t *testing.T) {
	rec, answered := newTestClassifier(fixed(gemini.Success{Text: ""})).ClassifyOutcome(context.Background(), domain.VideoMetadata{Title: "t"})

	want := domain.DefaultRecord(domain.LabelUncertain, validate.ReasonMalformedJSON)
	if rec != want || answered {
		t.Errorf("got %+v answered=%v, want %+v answered=false", rec, answered, want)
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name     string
		result   gemini.Result
		answered bool
	}{
		{"model says uncertain at zero confidence", gemini.Success{Text: `{"label":"uncertain","confidence":0,"reason":"Unclear topic."}`}, true},
		{"invalid label", gemini.Success{Text: `{"label":"maybe","confidence":0.5,"reason":"x"}`}, false},
		{"bad envelope", gemini.MalformedEnvelope{Detail: "no candidates"}, false},
		{"http status", gemini.TransportError{Status: 503}, false},
		{"connection", gemini.TransportError{Err: errors.New("refused")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, answered := newTestClassifier(fixed(tt.result)).ClassifyOutcome(context.Background(), domain.VideoMetadata{})
			if answered != tt.answered {
				t.Errorf("answered = %v, want %v", answered, tt.answered)
			}
		})
	}
}
