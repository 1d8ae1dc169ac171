package finchat

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/aichecker/internal/progress"
)

// typicalRunDuration is the assumed V2 run length used to estimate
// progress, since the V2 results endpoint exposes no numeric signal.
const typicalRunDuration = 600 * time.Second

// estimateCap keeps the heuristic estimate below completion until the
// gateway actually reports results.
const estimateCap = 90

// terminal V2 status sets.
var (
	v2SuccessStatuses = map[string]bool{
		"idle":      true,
		"done":      true,
		"completed": true,
		"success":   true,
	}
	v2ErrorStatuses = map[string]bool{
		"error":  true,
		"failed": true,
	}
)

// pollSessionResults drives the V2 polling loop against the
// session-results endpoint. The wall-clock budget is enforced by the
// loop itself, independent of attempt count. An explicit error status
// fails immediately regardless of elapsed time.
func (c *Client) pollSessionResults(ctx context.Context, sessionID string, report ProgressFunc) (*SessionResults, error) {
	start := time.Now()
	deadline := start.Add(c.pollTimeout)

	for attempt := 1; ; attempt++ {
		res, err := c.fetchSessionResults(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		if v2ErrorStatuses[res.Status] {
			msg := res.Error
			if msg == "" {
				msg = "Unknown error"
			}
			return nil, fmt.Errorf("%w: %s", ErrRemoteExecution, msg)
		}

		if v2SuccessStatuses[res.Status] && len(res.Results) > 0 {
			report(progress.PhasePolling, 100, "Completed")
			return res, nil
		}

		// Still loading. V2 exposes no numeric progress, so the value is
		// estimated from wall-clock time against a typical run duration.
		elapsed := time.Since(start)
		estimated := progress.Estimate(elapsed, typicalRunDuration, estimateCap)
		if res.Status == "loading" {
			report(progress.PhasePolling, estimated, fmt.Sprintf("Processing (%d)...", attempt))
		} else {
			report(progress.PhasePolling, estimated, fmt.Sprintf("Status: %s (%d)", res.Status, attempt))
		}

		if time.Now().Add(c.interval).After(deadline) {
			return nil, fmt.Errorf("%w after %s (%d attempts)", ErrTimeout, c.pollTimeout, attempt)
		}
		if err := sleepCtx(ctx, c.interval); err != nil {
			return nil, err
		}
	}
}
