package validate

import (
	"testing"

	"github.com/vietddude/edufilter/internal/core/domain"
)

func TestValidate_ValidRecords(t *testing.T) {
	v := Validator{}
	tests := []struct {
		name string
		raw  string
		want domain.ClassificationRecord
	}{
		{
			name: "plain json",
			raw:  `{"label":"educational","confidence":0.9,"reason":"A clear, step-by-step tutorial."}`,
			want: domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0.9, Reason: "A clear, step-by-step tutorial."},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"label\":\"non-educational\",\"confidence\":0.75,\"reason\":\"Prank video\"}\n```",
			want: domain.ClassificationRecord{Label: domain.LabelNonEducational, Confidence: 0.75, Reason: "Prank video"},
		},
		{
			name: "bare fence with whitespace",
			raw:  "  ```\n{\"label\":\"uncertain\",\"confidence\":0.5,\"reason\":\"Not enough info\"}\n```  ",
			want: domain.ClassificationRecord{Label: domain.LabelUncertain, Confidence: 0.5, Reason: "Not enough info"},
		},
		{
			name: "confidence above one is clamped",
			raw:  `{"label":"educational","confidence":1.7,"reason":"Lecture"}`,
			want: domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 1, Reason: "Lecture"},
		},
		{
			name: "negative confidence is clamped",
			raw:  `{"label":"educational","confidence":-3,"reason":"Lecture"}`,
			want: domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0, Reason: "Lecture"},
		},
		{
			name: "extra fields ignored",
			raw:  `{"label":"educational","confidence":0.2,"reason":"ok","extra":[1,2]}`,
			want: domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0.2, Reason: "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Validate(tt.raw); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{"not json", "not a json", ReasonMalformedJSON},
		{"empty", "", ReasonMalformedJSON},
		{"truncated", `{"label":"educational"`, ReasonMalformedJSON},
		{"array", `[1,2,3]`, ReasonInvalidFormat},
		{"null", `null`, ReasonInvalidFormat},
		{"missing label", `{"confidence":0.9,"reason":"x"}`, ReasonInvalidLabel},
		{"unknown label", `{"label":"funny","confidence":0.9,"reason":"x"}`, ReasonInvalidLabel},
		{"label wrong type", `{"label":1,"confidence":0.9,"reason":"x"}`, ReasonInvalidLabel},
		{"missing confidence", `{"label":"educational","reason":"x"}`, ReasonInvalidConfidence},
		{"string confidence", `{"label":"educational","confidence":"0.9","reason":"x"}`, ReasonInvalidConfidence},
		{"missing reason", `{"label":"educational","confidence":0.9}`, ReasonInvalidReason},
		{"empty reason", `{"label":"educational","confidence":0.9,"reason":"  "}`, ReasonInvalidReason},
		{"reason wrong type", `{"label":"educational","confidence":0.9,"reason":false}`, ReasonInvalidReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validator{}.Validate(tt.raw)
			want := domain.ClassificationRecord{Label: domain.LabelUncertain, Confidence: 0, Reason: tt.reason}
			if got != want {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestValidate_ConfiguredDefaultLabel(t *testing.T) {
	v := New(domain.LabelNonEducational)
	got := v.Validate("garbage")

	if got.Label != domain.LabelNonEducational {
		t.Errorf("expected configured default label, got %s", got.Label)
	}
	if got.Confidence != 0 || got.Reason != ReasonMalformedJSON {
		t.Errorf("unexpected default record: %+v", got)
	}
}

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"{}":                    "{}",
		"```json\n{}\n```":      "{}",
		"```\n{\"a\":1}\n```":   `{"a":1}`,
		"no fence ```inline```": "no fence ```inline```",
	}
	for in, want := range tests {
		if got := StripFence(in); got != want {
			t.Errorf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}
