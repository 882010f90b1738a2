// Package gemini calls the Google Generative Language API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Scope is the OAuth scope used when no API key is configured.
const Scope = "https://www.googleapis.com/auth/generative-language"

// Config holds provider settings.
type Config struct {
	APIKey          string
	CredentialsFile string // service account JSON; ignored when APIKey is set
	Model           string
	Endpoint        string // overrides the public endpoint, e.g. a local stand-in
	Timeout         time.Duration
	NoAuth          bool // skip credentials entirely (local stand-in servers only)
}

// Client issues generateContent calls for a single model.
type Client struct {
	svc     *generativelanguage.Service
	model   string
	timeout time.Duration
}

// NewClient creates a client. Authentication order: API key, credentials
// file, then Google application default credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.NoAuth:
		opts = append(opts, option.WithoutAuthentication())
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, Scope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	default:
		ts, err := google.DefaultTokenSource(ctx, Scope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create generative language service: %w", err)
	}

	return &Client{
		svc:     svc,
		model:   modelResource(cfg.Model),
		timeout: cfg.Timeout,
	}, nil
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// Model returns the model resource name the client calls.
func (c *Client) Model() string { return c.model }

// Generate sends prompt as a single user turn and returns the tagged result.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
	}

	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return classifyError(err)
	}
	return envelope(resp)
}

func classifyError(err error) Result {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return TransportError{Status: apiErr.Code, Err: err}
	}

	// A 2xx body that is not the expected JSON shape.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return MalformedEnvelope{Detail: err.Error()}
	}

	return TransportError{Err: err}
}

func envelope(resp *generativelanguage.GenerateContentResponse) Result {
	if resp == nil || len(resp.Candidates) == 0 {
		return MalformedEnvelope{Detail: "no candidates"}
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return MalformedEnvelope{Detail: "candidate has no content parts"}
	}
	// An empty text part is left to the validator, which rejects it as malformed JSON.
	return Success{Text: cand.Content.Parts[0].Text}
}
