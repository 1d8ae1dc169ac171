package finchat

import (
	"encoding/json"

	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// AnalysisRequest holds the parameters of one COT invocation. Immutable
// once constructed.
type AnalysisRequest struct {
	Slug    string
	Text    string
	Purpose string

	// PatternsPath points at a local supporting document to upload before
	// kickoff. Ignored when ConsommeID already references a remote copy.
	PatternsPath string

	// PatternsContent/PatternsName carry an in-memory document, e.g. a
	// file part received over HTTP. Used when PatternsPath is empty.
	PatternsContent []byte
	PatternsName    string

	// ConsommeID references a previously uploaded document.
	ConsommeID string
}

// ProgressFunc receives phase-local progress in [0, 100] plus a short
// step description. Callbacks are invoked from the polling goroutine.
type ProgressFunc func(phase progress.Phase, percent int, message string)

// Param is one ordered key/value analysis parameter. Slices of Param
// preserve insertion order because the gateway's V1 message parser is
// order-sensitive.
type Param struct {
	Key   string
	Value string
}

// --- gateway wire types ---

// Session is a gateway-side execution context. One session per run.
type Session struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
}

// Document is an uploaded supporting document.
type Document struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	FileURL    string `json:"file_url"`
	ConsommeID string `json:"consomme_id"`
}

// Chat is one record from the V1 chats listing. A COT response chat
// points back at the kickoff chat via RespondTo.
type Chat struct {
	ID        string       `json:"id"`
	RespondTo string       `json:"respond_to"`
	Intent    string       `json:"intent"`
	Message   string       `json:"message"`
	ResultID  string       `json:"result_id"`
	Metadata  ChatMetadata `json:"metadata"`
}

// ChatMetadata carries the V1 numeric progress signal.
type ChatMetadata struct {
	CurrentProgress int    `json:"current_progress"`
	TotalProgress   int    `json:"total_progress"`
	CurrentStep     string `json:"current_step"`
}

type chatList struct {
	Results []Chat `json:"results"`
}

// Result is a V1 result object. Raw keeps the undecoded body for the
// last resort of the content extraction chain.
type Result struct {
	ID                string         `json:"id"`
	Content           string         `json:"content"`
	ContentTranslated string         `json:"content_translated"`
	Metadata          map[string]any `json:"metadata"`

	Raw json.RawMessage `json:"-"`
}

// SessionResults is the V2 session-results response.
type SessionResults struct {
	Status  string       `json:"status"`
	Error   string       `json:"error"`
	Results []ResultItem `json:"results"`
}

// ResultItem is one V2 result. Content is kept raw because the gateway
// returns it in several shapes: a scalar string, a list of typed text
// items, or an arbitrary JSON object.
type ResultItem struct {
	Content json.RawMessage `json:"content"`
}
