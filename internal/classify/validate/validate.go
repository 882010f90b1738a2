// Package validate coerces raw model output into a ClassificationRecord.
// Model text is untrusted: every path returns a well-formed record.
package validate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// Diagnostic reasons attached to default records.
const (
	ReasonMalformedJSON     = "Malformed JSON response."
	ReasonInvalidFormat     = "Invalid response format."
	ReasonInvalidLabel      = "Invalid or missing label."
	ReasonInvalidConfidence = "Invalid or missing confidence."
	ReasonInvalidReason     = "Invalid or missing reason."
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// Validator checks model responses. DefaultLabel is used for every rejected
// response; the zero value falls back to "uncertain".
type Validator struct {
	DefaultLabel domain.Label
}

// New creates a validator with the given fallback label.
func New(defaultLabel domain.Label) Validator {
	return Validator{DefaultLabel: defaultLabel}
}

// Default returns the fallback record carrying reason.
func (v Validator) Default(reason string) domain.ClassificationRecord {
	label := v.DefaultLabel
	if label == "" {
		label = domain.LabelUncertain
	}
	return domain.DefaultRecord(label, reason)
}

// Validate parses raw and returns either the model's record, with confidence
// clamped to [0,1], or the default record with a diagnostic reason.
func (v Validator) Validate(raw string) domain.ClassificationRecord {
	rec, _ := v.Check(raw)
	return rec
}

// Check is Validate that also reports whether raw was accepted.
func (v Validator) Check(raw string) (domain.ClassificationRecord, bool) {
	payload := StripFence(raw)

	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return v.Default(ReasonMalformedJSON), false
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return v.Default(ReasonInvalidFormat), false
	}

	labelStr, ok := obj["label"].(string)
	label := domain.Label(labelStr)
	if !ok || !label.IsValid() {
		return v.Default(ReasonInvalidLabel), false
	}

	confidence, ok := obj["confidence"].(float64)
	if !ok {
		return v.Default(ReasonInvalidConfidence), false
	}

	reason, ok := obj["reason"].(string)
	if !ok || strings.TrimSpace(reason) == "" {
		return v.Default(ReasonInvalidReason), false
	}

	return domain.ClassificationRecord{
		Label:      label,
		Confidence: clamp(confidence),
		Reason:     reason,
	}, true
}

// StripFence removes a surrounding markdown code fence, if any.
func StripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
