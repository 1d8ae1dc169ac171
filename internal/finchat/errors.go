package finchat

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for gateway client failures. Callers classify with
// errors.Is instead of inspecting message strings.
var (
	// ErrNotConfigured means the gateway base URL is missing.
	ErrNotConfigured = errors.New("finchat gateway not configured")

	// ErrProtocol means the gateway answered but violated its contract,
	// typically by omitting a mandatory identifier.
	ErrProtocol = errors.New("finchat protocol error")

	// ErrRemoteExecution means the gateway explicitly reported that the
	// COT run failed; the remote message is carried in the wrap.
	ErrRemoteExecution = errors.New("cot execution failed")

	// ErrTimeout means the polling budget was exhausted before the run
	// reached a terminal remote state.
	ErrTimeout = errors.New("cot execution timed out")

	// ErrNetwork covers transport failures and unexpected gateway status
	// codes. During V1 polling these are retried in place.
	ErrNetwork = errors.New("finchat gateway unreachable")
)

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
