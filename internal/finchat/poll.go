package finchat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// pollStatus is the observed state of one V1 polling attempt.
type pollStatus int

const (
	pollWaiting pollStatus = iota // no response chat yet
	pollRunning                   // response chat present, not terminal
	pollDone                      // response chat carries a result id
	pollErrored                   // response chat carries an error intent
)

// pollState is the transient per-attempt record derived from one chats
// listing.
type pollState struct {
	status   pollStatus
	resultID string
	message  string

	// hasProgress is set when the response chat carried numeric progress
	// metadata; percent is then the derived 0-100 value.
	hasProgress bool
	percent     int
	step        string
}

// evaluateChats inspects one chats listing for the response to the given
// kickoff chat and classifies the attempt. Pure; no I/O.
func evaluateChats(chats []Chat, kickoffID string) pollState {
	var response *Chat
	for i := range chats {
		if chats[i].RespondTo == kickoffID {
			response = &chats[i]
			break
		}
	}

	if response == nil {
		return pollState{status: pollWaiting}
	}

	if response.Intent == "error" {
		msg := response.Message
		if msg == "" {
			msg = "COT execution failed"
		}
		return pollState{status: pollErrored, message: msg}
	}

	if response.ResultID != "" {
		return pollState{status: pollDone, resultID: response.ResultID}
	}

	st := pollState{status: pollRunning, step: response.Metadata.CurrentStep}
	if st.step == "" {
		st.step = "Processing..."
	}
	if response.Metadata.TotalProgress > 0 {
		st.hasProgress = true
		st.percent = response.Metadata.CurrentProgress * 100 / response.Metadata.TotalProgress
	}
	return st
}

// pollCompletion drives the V1 polling loop until the response chat
// reaches a terminal state. Transient listing failures are retried in
// place against the same attempt ceiling; a failure on the final attempt
// surfaces. Exhausting the ceiling yields ErrTimeout.
func (c *Client) pollCompletion(ctx context.Context, sessionID, kickoffID string, report ProgressFunc) (string, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		chats, err := c.ListChats(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt == c.maxAttempts {
				return "", err
			}
			slog.Warn("polling attempt failed, retrying",
				"attempt", attempt, "session_id", sessionID, "error", err)
			if serr := sleepCtx(ctx, c.interval); serr != nil {
				return "", serr
			}
			continue
		}

		st := evaluateChats(chats, kickoffID)
		switch st.status {
		case pollDone:
			report(progress.PhasePolling, 100, "completed")
			return st.resultID, nil

		case pollErrored:
			return "", fmt.Errorf("%w: %s", ErrRemoteExecution, st.message)

		case pollRunning:
			if st.hasProgress {
				report(progress.PhasePolling, st.percent, st.step)
			} else {
				// No numeric signal: report the step without moving progress.
				report(progress.PhasePolling, 0, st.step)
			}

		case pollWaiting:
			report(progress.PhasePolling, 0, "Waiting for response...")
		}

		if err := sleepCtx(ctx, c.interval); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrTimeout, c.maxAttempts)
}
