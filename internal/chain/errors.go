package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoProvider means no RPC endpoint (or signing key, for writes) is
// configured or reachable. Fatal for writes; reads degrade to cached data.
var ErrNoProvider = errors.New("no provider available")

// ErrUserRejected means the wallet declined to sign. Informational, not a
// bug to log.
var ErrUserRejected = errors.New("transaction rejected by wallet")

// walletRejectionCode is the EIP-1193 userRejectedRequest code.
const walletRejectionCode = 4001

// WrongNetworkError reports a connection to an unexpected chain. Surfaced to
// the caller so the UI can prompt a network switch; never silently retried.
type WrongNetworkError struct {
	Got  uint64
	Want uint64
}

func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("connected to chain %d, expected chain %d", e.Got, e.Want)
}

// RevertError carries a contract-level rejection with the revert reason
// verbatim when the node supplied one.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "transaction reverted"
	}
	return "transaction reverted: " + e.Reason
}

// ReadError wraps a failed RPC read. Recoverable: callers serve stale cached
// data or retry.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("chain read %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Classify maps a raw wallet or node error onto the client taxonomy. Errors
// already in the taxonomy pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var wrongNetwork *WrongNetworkError
	var revert *RevertError
	var read *ReadError
	if errors.Is(err, ErrNoProvider) || errors.Is(err, ErrUserRejected) ||
		errors.As(err, &wrongNetwork) || errors.As(err, &revert) || errors.As(err, &read) {
		return err
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == walletRejectionCode {
		return fmt.Errorf("%w: %s", ErrUserRejected, rpcErr.Error())
	}

	message := err.Error()
	lowered := strings.ToLower(message)

	if strings.Contains(lowered, "user denied") || strings.Contains(lowered, "user rejected") {
		return fmt.Errorf("%w: %s", ErrUserRejected, message)
	}

	if idx := strings.Index(lowered, "execution reverted"); idx >= 0 {
		reason := strings.TrimLeft(message[idx+len("execution reverted"):], ": ")
		return &RevertError{Reason: reason}
	}

	return err
}
