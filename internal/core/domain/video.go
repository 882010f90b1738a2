package domain

// VideoMetadata is the scraped metadata used to classify a video.
// Every text field is optional.
type VideoMetadata struct {
	Title                string `json:"title,omitempty"`
	DescriptionSnippet   string `json:"descriptionSnippet,omitempty"`
	ChannelName          string `json:"channelName,omitempty"`
	TranscriptSnippet    string `json:"transcriptSnippet,omitempty"`
	IsEducationalChannel bool   `json:"isEducationalChannel,omitempty"`
}

// VideoRequest is one entry of a classify batch.
type VideoRequest struct {
	VideoID string `json:"videoId"`
	VideoMetadata
}

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Videos         []VideoRequest `json:"videos"`
	InstallationID string         `json:"installationId,omitempty"`
}

// ClassifyResponse is the body returned by POST /v1/classify.
type ClassifyResponse struct {
	Classifications map[string]ClassificationRecord `json:"classifications"`
}
