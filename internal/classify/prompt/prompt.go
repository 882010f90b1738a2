// Package prompt turns video metadata into a bounded-length classification prompt.
package prompt

import (
	"encoding/json"
	"strings"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// DefaultBudget is the maximum combined length, in characters, of the
// description and transcript snippets embedded in a prompt.
const DefaultBudget = 4000

// Builder renders prompts. The zero value uses DefaultBudget.
type Builder struct {
	Budget int
}

// NewBuilder creates a builder with the given snippet budget.
func NewBuilder(budget int) Builder {
	return Builder{Budget: budget}
}

func (b Builder) budget() int {
	if b.Budget <= 0 {
		return DefaultBudget
	}
	return b.Budget
}

// Truncate bounds description+transcript to the budget. The transcript is
// shortened first, down to empty if necessary, and only then the description.
// Both fields keep their prefix.
func (b Builder) Truncate(m domain.VideoMetadata) domain.VideoMetadata {
	limit := b.budget()
	desc := []rune(m.DescriptionSnippet)
	transcript := []rune(m.TranscriptSnippet)

	if len(desc)+len(transcript) <= limit {
		return m
	}

	transcriptRoom := max(limit-len(desc), 0)
	if len(transcript) > transcriptRoom {
		transcript = transcript[:transcriptRoom]
	}
	if len(desc) > limit {
		desc = desc[:limit]
	}

	m.DescriptionSnippet = string(desc)
	m.TranscriptSnippet = string(transcript)
	return m
}

type promptFields struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Channel           string `json:"channel"`
	TranscriptSnippet string `json:"transcript_snippet"`
}

// Build renders the classification prompt for m.
func (b Builder) Build(m domain.VideoMetadata) string {
	m = b.Truncate(m)

	fields, _ := json.Marshal(promptFields{
		Title:             m.Title,
		Description:       m.DescriptionSnippet,
		Channel:           m.ChannelName,
		TranscriptSnippet: m.TranscriptSnippet,
	})

	var sb strings.Builder
	sb.WriteString(`Classify the following YouTube video as "educational", "non-educational", or "uncertain" based ONLY on these fields:`)
	sb.WriteString("\n\n")
	sb.Write(fields)
	sb.WriteString("\n\nRules:\n\n")
	sb.WriteString(`- "educational": teaches facts/skills/concepts; tutorials, lectures, explainer content.`)
	sb.WriteString("\n")
	sb.WriteString(`- "non-educational": entertainment-only (pranks, mukbang, reaction, gameplay with no instruction), clickbait, sensationalist, ASMR, challenges.`)
	sb.WriteString("\n")
	if m.IsEducationalChannel {
		sb.WriteString(`- The channel is known to publish educational content. Prefer "educational" unless the fields clearly show otherwise.`)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(`Return JSON only: {"label":"educational"|"non-educational"|"uncertain","confidence":0.00-1.00,"reason":"short justification, <=20 words"}`)
	return sb.String()
}
