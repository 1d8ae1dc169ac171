package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/aichecker/internal/api/response"
	"github.com/kiranshivaraju/aichecker/internal/jobs"
)

// maxUploadBytes bounds the optional supporting-document part.
const maxUploadBytes = 10 << 20

// Submitter defines the interface the analyze handler depends on.
type Submitter interface {
	Submit(req jobs.SubmitRequest) (uuid.UUID, error)
}

type analyzeResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/mcp/analyze.
// It accepts a JSON body with a text field (or the legacy
// sentence+paragraph pair) or a multipart form with an optional file
// part, creates a job, and answers 202 immediately; the analysis runs in
// the background.
func NewAnalyzeHandler(svc Submitter, configured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !configured {
			response.Error(w, http.StatusInternalServerError, "NOT_CONFIGURED",
				"Gateway not configured. Set FINCHAT_BASE_URL.", nil)
			return
		}

		sub, ok := parseSubmission(w, r)
		if !ok {
			return
		}

		if strings.TrimSpace(sub.Text) == "" {
			response.Error(w, http.StatusBadRequest, "NO_TEXT", "No text provided", nil)
			return
		}

		jobID, err := svc.Submit(sub)
		if err != nil {
			if errors.Is(err, jobs.ErrEmptyText) {
				response.Error(w, http.StatusBadRequest, "NO_TEXT", "No text provided", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to start analysis", nil)
			return
		}

		response.Accepted(w, analyzeResponse{
			JobID:  jobID.String(),
			Status: jobs.StatusPending,
		})
	}
}

// parseSubmission extracts the submission from either a JSON body or a
// multipart form. It writes the error response itself and returns
// ok=false when the body is unusable.
func parseSubmission(w http.ResponseWriter, r *http.Request) (jobs.SubmitRequest, bool) {
	var sub jobs.SubmitRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Invalid multipart form", nil)
			return sub, false
		}
		sub.Text = combineText(
			r.FormValue("text"),
			r.FormValue("sentence"),
			r.FormValue("paragraph"),
		)
		sub.Purpose = r.FormValue("purpose")

		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()
			content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"Failed to read uploaded file", nil)
				return sub, false
			}
			sub.FileName = header.Filename
			sub.FileContent = content
		}
		return sub, true
	}

	var req struct {
		Text      string `json:"text"`
		Sentence  string `json:"sentence"`
		Paragraph string `json:"paragraph"`
		Purpose   string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return sub, false
	}
	sub.Text = combineText(req.Text, req.Sentence, req.Paragraph)
	sub.Purpose = req.Purpose
	return sub, true
}

// combineText prefers the direct text field, falling back to the legacy
// sentence+paragraph pair joined by a blank line.
func combineText(text, sentence, paragraph string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	switch {
	case sentence != "" && paragraph != "":
		return sentence + "\n\n" + paragraph
	case sentence != "":
		return sentence
	default:
		return paragraph
	}
}
