package hub

import "errors"

// ErrorKind classifies hub failures for propagation policy and HTTP mapping.
type ErrorKind string

const (
	// KindNotFound covers unknown sources and snapshots. Safe to retry with
	// corrected input.
	KindNotFound ErrorKind = "not_found"
	// KindPrecondition covers gate failures: the caller must take a
	// corrective action (validate, publish, confirm) rather than retry.
	KindPrecondition ErrorKind = "precondition_failed"
	// KindPersistence covers durable-store write failures on the operations
	// whose durability callers depend on (publish, replay).
	KindPersistence ErrorKind = "persistence_failed"
)

// Error codes branched on by callers. These are part of the wire contract and
// must stay stable.
const (
	CodeInvalidSourceSpec    = "invalid_source_spec"
	CodeSourceNotFound       = "source_not_found"
	CodeSourceDisabled       = "source_disabled"
	CodeSnapshotNotFound     = "snapshot_not_found"
	CodeSnapshotNotValidated = "snapshot_not_validated"
	CodeQualityBelowMinimum  = "quality_below_threshold"
	CodeSnapshotNotPublished = "snapshot_not_published"
	CodeHighDiffConfirmation = "high_diff_requires_confirmation"
	CodeTrustDBPersistFailed = "trustdb_persist_failed"
	CodeReplayPersistFailed  = "replay_persist_failed"
)

// HubError carries a machine-readable reason code alongside the message.
// Operator UIs branch on Code, so it is always one of the constants above.
type HubError struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

func (e *HubError) Error() string {
	if e.Message != "" && e.Message != e.Code {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func (e *HubError) Unwrap() error { return e.cause }

func notFoundError(code, message string) *HubError {
	return &HubError{Code: code, Kind: KindNotFound, Message: message}
}

func preconditionError(code, message string) *HubError {
	return &HubError{Code: code, Kind: KindPrecondition, Message: message}
}

func persistenceError(code, message string, cause error) *HubError {
	if cause != nil {
		message = message + ": " + cause.Error()
	}
	return &HubError{Code: code, Kind: KindPersistence, Message: message, cause: cause}
}

// AsHubError unwraps err to a *HubError if one is in the chain.
func AsHubError(err error) (*HubError, bool) {
	var he *HubError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsCode reports whether err carries the given hub error code.
func IsCode(err error, code string) bool {
	he, ok := AsHubError(err)
	return ok && he.Code == code
}
