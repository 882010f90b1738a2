package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/edufilter/internal/core/clock"
	"github.com/vietddude/edufilter/internal/core/config"
	"github.com/vietddude/edufilter/internal/core/domain"
)

// fakeGemini answers generateContent with an educational label for prompts
// mentioning "Lecture" and a prose answer otherwise.
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		answer := "not sure"
		if len(body.Contents) > 0 && len(body.Contents[0].Parts) > 0 &&
			strings.Contains(body.Contents[0].Parts[0].Text, "Lecture") {
			answer = `{"label":"educational","confidence":0.95,"reason":"University lecture."}`
		}

		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": answer}}},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, yaml string) *config.AppConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

func TestServerAndAgent_EndToEnd(t *testing.T) {
	ctx := context.Background()
	model := fakeGemini(t)

	cfg := testConfig(t, "gemini:\n  no_auth: true\n  endpoint: "+model.URL+"/\n")
	server, err := NewServer(ctx, cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	api := httptest.NewServer(server.Handler())
	defer api.Close()

	cfg.Agent.BackendURL = api.URL + "/v1/classify"
	cfg.Agent.FlushDelay = 100 * time.Millisecond

	stores, err := OpenAgentStores(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenAgentStores failed: %v", err)
	}
	clk := clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	var out bytes.Buffer
	a, err := newAgent(cfg, stores, &out, clk)
	if err != nil {
		t.Fatalf("newAgent failed: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sub, cancel := a.Subscribe(1)
	defer cancel()

	a.Request(ctx, domain.VideoRequest{VideoID: "abc", VideoMetadata: domain.VideoMetadata{Title: "Physics Lecture 3"}})
	a.Request(ctx, domain.VideoRequest{VideoID: "xyz", VideoMetadata: domain.VideoMetadata{Title: "Funny cats"}})
	clk.Advance(100 * time.Millisecond)

	var b domain.Broadcast
	select {
	case b = <-sub:
	default:
		t.Fatal("no broadcast after flush")
	}
	if b.Classifications["abc"].Label != domain.LabelEducational {
		t.Errorf("abc = %+v", b.Classifications["abc"])
	}
	if got := b.Classifications["xyz"]; got.Label != domain.LabelUncertain || got.Reason != "Malformed JSON response." {
		t.Errorf("xyz = %+v", got)
	}
	if !strings.Contains(out.String(), `"abc"`) {
		t.Errorf("broadcast not written to output: %q", out.String())
	}

	// Second request for abc is served from the cache.
	rec, hit := a.Request(ctx, domain.VideoRequest{VideoID: "abc"})
	if !hit || rec.Label != domain.LabelEducational {
		t.Errorf("expected cache hit, got %+v, %v", rec, hit)
	}

	st, err := a.Status(ctx, 10)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.CacheEntries != 2 || st.BackoffActive || st.QueueState != "idle" || len(st.Audit) == 0 {
		t.Errorf("unexpected status %+v", st)
	}

	if err := a.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestAgent_BackendDownStartsBackoff(t *testing.T) {
	ctx := context.Background()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	cfg := testConfig(t, "agent:\n  backend_url: "+down.URL+"\n")
	stores, _ := OpenAgentStores(ctx, cfg)
	clk := clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	a, err := newAgent(cfg, stores, nil, clk)
	if err != nil {
		t.Fatalf("newAgent failed: %v", err)
	}
	defer a.Stop(ctx)

	a.Request(ctx, domain.VideoRequest{VideoID: "abc"})
	if err := a.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}

	st, _ := a.Status(ctx, 0)
	if !st.BackoffActive {
		t.Error("expected backoff after failed call")
	}
	if !st.BackoffUntil.Equal(clk.Now().Add(5 * time.Minute)) {
		t.Errorf("unexpected backoff end %v", st.BackoffUntil)
	}
	if len(st.Audit) == 0 || !strings.Contains(st.Audit[0].Message, "status: 502") {
		t.Errorf("failure not audited with status: %+v", st.Audit)
	}
}

func TestServer_RateLimitWithoutRedis(t *testing.T) {
	ctx := context.Background()
	model := fakeGemini(t)
	cfg := testConfig(t, "gemini:\n  no_auth: true\n  endpoint: "+model.URL+"/\nrate_limit:\n  requests_per_minute: 1\n")

	server, err := NewServer(ctx, cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(`{"videos":[],"installationId":"i"}`))
		req.Header.Set("Content-Type", "application/json")
		server.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("unexpected status codes %v", codes)
	}
}

func TestReadStatusAndResetCache_FreshMemoryStores(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	st, err := ReadStatus(ctx, cfg, 5)
	if err != nil {
		t.Fatalf("ReadStatus failed: %v", err)
	}
	if st.BackoffActive || st.CacheEntries != 0 || st.QueueState != "idle" || len(st.Audit) != 0 {
		t.Errorf("unexpected status %+v", st)
	}

	n, err := ResetCache(ctx, cfg)
	if err != nil {
		t.Fatalf("ResetCache failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 removed entries, got %d", n)
	}
}

func TestAgent_WriteCachedSharesOutput(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	stores, err := OpenAgentStores(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenAgentStores failed: %v", err)
	}
	var out bytes.Buffer
	a, err := newAgent(cfg, stores, &out, clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("newAgent failed: %v", err)
	}
	defer a.Stop(ctx)

	rec := domain.ClassificationRecord{Label: domain.LabelEducational, Confidence: 0.9, Reason: "Cached."}
	if err := a.WriteCached(ctx, "abc", rec); err != nil {
		t.Fatalf("WriteCached failed: %v", err)
	}

	var b domain.Broadcast
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &b); err != nil {
		t.Fatalf("output is not one JSON line: %q", out.String())
	}
	if b.Classifications["abc"] != rec {
		t.Errorf("unexpected broadcast %+v", b)
	}
}

func TestAgent_WriteCachedWithoutOutput(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	stores, _ := OpenAgentStores(ctx, cfg)
	a, err := newAgent(cfg, stores, nil, clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("newAgent failed: %v", err)
	}
	defer a.Stop(ctx)

	if err := a.WriteCached(ctx, "abc", domain.ClassificationRecord{}); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}
