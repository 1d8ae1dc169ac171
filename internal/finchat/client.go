package finchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Options configures a gateway client.
type Options struct {
	BaseURL  string
	APIToken string

	// Protocol selects the gateway contract: "v1" or "v2".
	Protocol string

	// COTSlug names the analysis procedure for V1 kickoffs.
	COTSlug string

	// SessionID is the pre-existing COT session used by V2 kickoffs.
	SessionID string

	// ParamName is the V2 field carrying the analyzed text, "text" or
	// "paragraph" depending on the target analysis type.
	ParamName string

	HTTPTimeout  time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	PollTimeout  time.Duration
}

// Client runs COT analyses against the remote gateway. It performs
// synchronous calls without automatic retries; only the V1 polling loop
// retries transient failures in place.
type Client struct {
	baseURL   string
	token     string
	protocol  string
	slug      string
	sessionID string
	paramName string

	interval    time.Duration
	maxAttempts int
	pollTimeout time.Duration

	client *http.Client
}

// New creates a gateway client. Returns ErrNotConfigured when the base
// URL is missing.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 200
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 1200 * time.Second
	}
	httpTimeout := opts.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	paramName := opts.ParamName
	if paramName == "" {
		paramName = "text"
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = "v1"
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.APIToken,
		protocol:    protocol,
		slug:        opts.COTSlug,
		sessionID:   opts.SessionID,
		paramName:   paramName,
		interval:    interval,
		maxAttempts: maxAttempts,
		pollTimeout: pollTimeout,
		client:      &http.Client{Timeout: httpTimeout},
	}, nil
}

// CreateSession creates a fresh gateway session. An empty clientID is
// replaced with a generated "client-<12 hex>" identifier, which the
// gateway requires.
func (c *Client) CreateSession(ctx context.Context, clientID string) (*Session, error) {
	if clientID == "" {
		clientID = "client-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	}

	var session Session
	err := c.postJSON(ctx, c.baseURL+"/api/v1/sessions/",
		map[string]string{"client_id": clientID}, &session)
	if err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: no session id returned", ErrProtocol)
	}
	return &session, nil
}

// DocumentUpload describes a supporting document, either on disk (Path)
// or in memory (Content plus Name).
type DocumentUpload struct {
	Path    string
	Content []byte
	Name    string
}

// UploadDocument uploads a document via multipart form and attaches it
// to the session. The gateway answers with a list; the first document is
// returned.
func (c *Client) UploadDocument(ctx context.Context, sessionID string, doc DocumentUpload) (*Document, error) {
	name := doc.Name
	content := doc.Content
	if doc.Path != "" {
		b, err := os.ReadFile(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		content = b
		name = filepath.Base(doc.Path)
	}
	if len(content) == 0 || name == "" {
		return nil, fmt.Errorf("document upload requires a path or content with a name")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("session", sessionID); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	part, err := mw.CreateFormFile("files", name)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents/", &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// The documents endpoint returns a list for file uploads but a single
	// object for consomme-id attachment.
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("decoding documents response: %w", err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("%w: empty documents response", ErrProtocol)
		}
		return &docs[0], nil
	}

	var document Document
	if err := json.Unmarshal(trimmed, &document); err != nil {
		return nil, fmt.Errorf("decoding documents response: %w", err)
	}
	return &document, nil
}

// RunCOT kicks off a V1 COT invocation. Parameters are encoded into the
// message string in slice order.
func (c *Client) RunCOT(ctx context.Context, sessionID, slug string, params []Param) (*Chat, error) {
	payload := map[string]string{
		"session": sessionID,
		"message": BuildCOTMessage(slug, params),
	}

	var chat Chat
	if err := c.postJSON(ctx, c.baseURL+"/api/v1/chats/", payload, &chat); err != nil {
		return nil, err
	}
	if chat.ID == "" {
		return nil, fmt.Errorf("%w: no chat id returned", ErrProtocol)
	}
	return &chat, nil
}

// ListChats returns all chat records for a session.
func (c *Client) ListChats(ctx context.Context, sessionID string) ([]Chat, error) {
	params := url.Values{
		"session_id": {sessionID},
		"page_size":  {"500"},
	}
	u := fmt.Sprintf("%s/api/v1/chats/?%s", c.baseURL, params.Encode())

	var list chatList
	if err := c.getJSON(ctx, u, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// GetResult fetches a result object by id. The undecoded body is kept on
// the Result for the extraction fallback chain.
func (c *Client) GetResult(ctx context.Context, resultID string) (*Result, error) {
	u := fmt.Sprintf("%s/api/v1/results/%s/", c.baseURL, url.PathEscape(resultID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding result response: %w", err)
	}
	result.Raw = raw
	return &result, nil
}

// kickoffV2 posts the ordered V2 payload and returns the fresh result
// session id.
func (c *Client) kickoffV2(ctx context.Context, sessionID string, params []Param) (string, error) {
	body, err := encodeOrderedJSON(params)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	u := fmt.Sprintf("%s/api/v2/sessions/run-cot/%s/", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding run-cot response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: no session id returned from COT execution", ErrProtocol)
	}
	return resp.ID, nil
}

// fetchSessionResults reads the V2 session-results endpoint once.
func (c *Client) fetchSessionResults(ctx context.Context, sessionID string) (*SessionResults, error) {
	u := fmt.Sprintf("%s/api/v2/sessions/%s/results/", c.baseURL, url.PathEscape(sessionID))

	var results SessionResults
	if err := c.getJSON(ctx, u, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// --- transport helpers ---

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}
	return raw, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
