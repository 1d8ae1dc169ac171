package finchat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// Run performs one complete analysis round-trip and returns the plain
// text content, or a classified error. The protocol version is fixed at
// client construction. The progress callback may be nil.
func (c *Client) Run(ctx context.Context, req AnalysisRequest, report ProgressFunc) (string, error) {
	if report == nil {
		report = func(progress.Phase, int, string) {}
	}
	if c.protocol == "v2" {
		return c.runV2(ctx, req, report)
	}
	return c.runV1(ctx, req, report)
}

func (c *Client) runV1(ctx context.Context, req AnalysisRequest, report ProgressFunc) (string, error) {
	slug := req.Slug
	if slug == "" {
		slug = c.slug
	}

	report(progress.PhaseSession, 0, "Creating session...")
	session, err := c.CreateSession(ctx, "")
	if err != nil {
		return "", err
	}
	report(progress.PhaseSession, 100, "Session created")

	// Upload failure is non-fatal: the analysis proceeds without the
	// optional patterns reference.
	consommeID := req.ConsommeID
	if consommeID == "" && (req.PatternsPath != "" || len(req.PatternsContent) > 0) {
		report(progress.PhaseUpload, 0, "Uploading patterns document...")
		doc, err := c.UploadDocument(ctx, session.ID, DocumentUpload{
			Path:    req.PatternsPath,
			Content: req.PatternsContent,
			Name:    req.PatternsName,
		})
		if err != nil {
			slog.Warn("patterns upload failed, continuing without attachment",
				"session_id", session.ID, "error", err)
		} else {
			consommeID = doc.ConsommeID
			report(progress.PhaseUpload, 100, "Patterns document uploaded")
		}
	}

	// Parameter order is mandated by the gateway's message parser:
	// purpose before patterns before text.
	var params []Param
	if req.Purpose != "" {
		params = append(params, Param{Key: "purpose", Value: req.Purpose})
	}
	if consommeID != "" {
		params = append(params, Param{Key: "patterns", Value: consommeID})
	}
	params = append(params, Param{Key: "text", Value: req.Text})

	report(progress.PhaseKickoff, 0, "Starting COT execution...")
	chat, err := c.RunCOT(ctx, session.ID, slug, params)
	if err != nil {
		return "", err
	}
	report(progress.PhaseKickoff, 100, "COT started, polling for results...")

	resultID, err := c.pollCompletion(ctx, session.ID, chat.ID, report)
	if err != nil {
		return "", err
	}

	report(progress.PhaseFinalize, 0, "Fetching result...")
	result, err := c.GetResult(ctx, resultID)
	if err != nil {
		return "", err
	}

	content := ExtractContent(result)
	if content == "" {
		return "", fmt.Errorf("%w: result %s has no content", ErrProtocol, resultID)
	}
	report(progress.PhaseFinalize, 100, "Completed")
	return content, nil
}

func (c *Client) runV2(ctx context.Context, req AnalysisRequest, report ProgressFunc) (string, error) {
	if c.sessionID == "" {
		return "", fmt.Errorf("%w: v2 requires a session id", ErrNotConfigured)
	}

	// Extra parameters come first, then the text under the configured
	// field name; the V2 endpoint expects this ordering.
	var params []Param
	if req.Purpose != "" {
		params = append(params, Param{Key: "purpose", Value: req.Purpose})
	}
	if req.ConsommeID != "" {
		params = append(params, Param{Key: "patterns", Value: req.ConsommeID})
	}
	params = append(params, Param{Key: c.paramName, Value: req.Text})

	report(progress.PhaseKickoff, 0, "Starting COT execution...")
	resultSessionID, err := c.kickoffV2(ctx, c.sessionID, params)
	if err != nil {
		return "", err
	}
	report(progress.PhaseKickoff, 100, "COT started, polling for results...")

	results, err := c.pollSessionResults(ctx, resultSessionID, report)
	if err != nil {
		return "", err
	}

	content := ExtractItemContent(results.Results[0].Content)
	if content == "" {
		return "", fmt.Errorf("%w: session %s returned empty content", ErrProtocol, resultSessionID)
	}
	report(progress.PhaseFinalize, 100, "Completed")
	return content, nil
}
