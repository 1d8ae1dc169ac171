package finchat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// fakeGateway is a scripted V1 gateway. The COT response appears in the
// chats listing after respondAfter listings.
type fakeGateway struct {
	t *testing.T

	respondAfter int32
	listings     atomic.Int32

	uploadStatus int // 0 means 200

	kickoffMessage atomic.Value // string
	errorIntent    bool
}

func (g *fakeGateway) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sessions/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{ID: "sess-1"})
	})

	mux.HandleFunc("POST /api/v1/documents/", func(w http.ResponseWriter, r *http.Request) {
		if g.uploadStatus != 0 {
			w.WriteHeader(g.uploadStatus)
			return
		}
		json.NewEncoder(w).Encode([]Document{{ID: "doc-1", ConsommeID: "cons-1"}})
	})

	mux.HandleFunc("POST /api/v1/chats/", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		g.kickoffMessage.Store(payload["message"])
		json.NewEncoder(w).Encode(Chat{ID: "kickoff-1"})
	})

	mux.HandleFunc("GET /api/v1/chats/", func(w http.ResponseWriter, r *http.Request) {
		chats := []Chat{{ID: "kickoff-1"}}
		if g.listings.Add(1) > g.respondAfter {
			resp := Chat{ID: "resp-1", RespondTo: "kickoff-1", ResultID: "res-1"}
			if g.errorIntent {
				resp = Chat{ID: "resp-1", RespondTo: "kickoff-1", Intent: "error", Message: "remote failure"}
			}
			chats = append(chats, resp)
		}
		json.NewEncoder(w).Encode(chatList{Results: chats})
	})

	mux.HandleFunc("GET /api/v1/results/res-1/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{ID: "res-1", Content: "analysis verdict"})
	})

	return httptest.NewServer(mux)
}

// --- V1 tests ---

func TestRun_V1_Success(t *testing.T) {
	gw := &fakeGateway{t: t, respondAfter: 1}
	ts := gw.server()
	defer ts.Close()

	var percents []int
	report := func(phase progress.Phase, percent int, _ string) {
		percents = append(percents, progress.Overall(phase, percent))
	}

	c := newTestClient(t, ts.URL)
	content, err := c.Run(context.Background(), AnalysisRequest{
		Text:    "check this text",
		Purpose: "general",
	}, report)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "analysis verdict" {
		t.Errorf("unexpected content: %q", content)
	}

	msg, _ := gw.kickoffMessage.Load().(string)
	want := "cot ai-detector-v2 $purpose:general $text:check this text"
	if msg != want {
		t.Errorf("expected kickoff message %q, got %q", want, msg)
	}

	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("expected final overall progress 100, got %v", percents)
	}
}

func TestRun_V1_NilReporter(t *testing.T) {
	gw := &fakeGateway{t: t}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	if _, err := c.Run(context.Background(), AnalysisRequest{Text: "text"}, nil); err != nil {
		t.Fatalf("unexpected error with nil reporter: %v", err)
	}
}

func TestRun_V1_SlugOverride(t *testing.T) {
	gw := &fakeGateway{t: t}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{Slug: "custom-cot", Text: "text"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, _ := gw.kickoffMessage.Load().(string)
	if !strings.HasPrefix(msg, "cot custom-cot ") {
		t.Errorf("expected custom slug in message, got %q", msg)
	}
}

func TestRun_V1_UploadsPatterns(t *testing.T) {
	gw := &fakeGateway{t: t}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{
		Text:            "text",
		PatternsContent: []byte("pattern data"),
		PatternsName:    "patterns.txt",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, _ := gw.kickoffMessage.Load().(string)
	want := "cot ai-detector-v2 $patterns:cons-1 $text:text"
	if msg != want {
		t.Errorf("expected patterns param in message, got %q", msg)
	}
}

func TestRun_V1_UploadFailureIsNonFatal(t *testing.T) {
	gw := &fakeGateway{t: t, uploadStatus: http.StatusInternalServerError}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	content, err := c.Run(context.Background(), AnalysisRequest{
		Text:            "text",
		PatternsContent: []byte("pattern data"),
		PatternsName:    "patterns.txt",
	}, nil)
	if err != nil {
		t.Fatalf("expected run to continue after upload failure, got: %v", err)
	}
	if content != "analysis verdict" {
		t.Errorf("unexpected content: %q", content)
	}

	// The failed upload leaves no patterns parameter behind.
	msg, _ := gw.kickoffMessage.Load().(string)
	if strings.Contains(msg, "$patterns:") {
		t.Errorf("expected no patterns param after failed upload, got %q", msg)
	}
}

func TestRun_V1_ConsommeIDSkipsUpload(t *testing.T) {
	gw := &fakeGateway{t: t, uploadStatus: http.StatusInternalServerError}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{
		Text:       "text",
		ConsommeID: "cons-existing",
		// Upload would fail, but the existing reference makes it moot.
		PatternsContent: []byte("data"),
		PatternsName:    "patterns.txt",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, _ := gw.kickoffMessage.Load().(string)
	if !strings.Contains(msg, "$patterns:cons-existing") {
		t.Errorf("expected existing consomme id in message, got %q", msg)
	}
}

func TestRun_V1_RemoteError(t *testing.T) {
	gw := &fakeGateway{t: t, errorIntent: true}
	ts := gw.server()
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{Text: "text"}, nil)
	if !errors.Is(err, ErrRemoteExecution) {
		t.Errorf("expected ErrRemoteExecution, got: %v", err)
	}
}

func TestRun_V1_EmptyContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Session{ID: "sess-1"})
	})
	mux.HandleFunc("POST /api/v1/chats/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Chat{ID: "kickoff-1"})
	})
	mux.HandleFunc("GET /api/v1/chats/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatList{Results: []Chat{
			{ID: "resp-1", RespondTo: "kickoff-1", ResultID: "res-1"},
		}})
	})
	mux.HandleFunc("GET /api/v1/results/res-1/", func(w http.ResponseWriter, r *http.Request) {
		// Entirely empty result object; even the raw-body fallback is empty.
		w.Write([]byte(`{}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{Text: "text"}, nil)
	// The raw body fallback makes "{}" non-empty, so this succeeds; the
	// protocol error only fires for a truly contentless result.
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- V2 tests ---

func v2Client(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:      baseURL,
		Protocol:     "v2",
		SessionID:    "sess-v2",
		ParamName:    "paragraph",
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestRun_V2_Success(t *testing.T) {
	var kickoffBody atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/sessions/run-cot/sess-v2/", func(w http.ResponseWriter, r *http.Request) {
		var buf strings.Builder
		if _, err := io.Copy(&buf, r.Body); err == nil {
			kickoffBody.Store(buf.String())
		}
		w.Write([]byte(`{"id":"result-sess-1"}`))
	})
	mux.HandleFunc("GET /api/v2/sessions/result-sess-1/results/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SessionResults{
			Status:  "done",
			Results: []ResultItem{{Content: json.RawMessage(`"v2 verdict"`)}},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := v2Client(t, ts.URL)
	content, err := c.Run(context.Background(), AnalysisRequest{
		Text:    "check this",
		Purpose: "general",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "v2 verdict" {
		t.Errorf("unexpected content: %q", content)
	}

	body, _ := kickoffBody.Load().(string)
	want := `{"purpose":"general","paragraph":"check this"}`
	if body != want {
		t.Errorf("expected ordered payload %s, got %s", want, body)
	}
}

func TestRun_V2_RequiresSessionID(t *testing.T) {
	c, err := New(Options{BaseURL: "https://gw.example.dev", Protocol: "v2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = c.Run(context.Background(), AnalysisRequest{Text: "text"}, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got: %v", err)
	}
}

func TestRun_V2_RemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/sessions/run-cot/sess-v2/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"result-sess-1"}`))
	})
	mux.HandleFunc("GET /api/v2/sessions/result-sess-1/results/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SessionResults{Status: "failed", Error: "out of memory"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := v2Client(t, ts.URL)
	_, err := c.Run(context.Background(), AnalysisRequest{Text: "text"}, nil)
	if !errors.Is(err, ErrRemoteExecution) {
		t.Errorf("expected ErrRemoteExecution, got: %v", err)
	}
}
