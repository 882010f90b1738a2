package domain

import "time"

// Label is the classification outcome for a video.
type Label string

const (
	LabelEducational    Label = "educational"
	LabelNonEducational Label = "non-educational"
	LabelUncertain      Label = "uncertain"
)

// Labels lists every label the validator accepts.
var Labels = []Label{LabelEducational, LabelNonEducational, LabelUncertain}

// IsValid reports whether l is one of the known labels.
func (l Label) IsValid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// ClassificationRecord is the validated result exchanged between server and agent.
// It is a value type; a record is replaced, never modified.
type ClassificationRecord struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DefaultRecord builds the degraded record returned when classification fails.
func DefaultRecord(label Label, reason string) ClassificationRecord {
	return ClassificationRecord{Label: label, Confidence: 0, Reason: reason}
}

// CacheEntry is the agent-side cached classification of a single video.
type CacheEntry struct {
	VideoID  string               `json:"video_id"`
	Record   ClassificationRecord `json:"record"`
	StoredAt time.Time            `json:"stored_at"`
}

// FreshAt reports whether the entry is still within ttl at now.
func (e *CacheEntry) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}
