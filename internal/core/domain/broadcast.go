package domain

// Broadcast carries freshly classified videos to consumers.
type Broadcast struct {
	Classifications map[string]ClassificationRecord `json:"classifications"`
}
