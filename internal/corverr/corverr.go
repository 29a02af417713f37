// Package corverr defines the sentinel error kinds shared across Corvid's
// components, mirroring the error taxonomy the core design is built around:
// CONFIG, TRANSPORT, RATE_LIMIT, PARSE, JUDGE_FAIL, BUDGET_EXCEEDED, and
// PROVIDER_FAIL.
package corverr

import "errors"

// Kind tags an error with its place in the taxonomy so callers can branch on
// errors.Is without string matching.
type Kind struct {
	name string
}

func (k Kind) String() string { return k.name }
func (k Kind) Error() string  { return k.name }

var (
	// Config marks a missing or invalid required setting; fatal at startup.
	Config = Kind{"config error"}
	// Transport marks a network/broker/RPC failure; retriable.
	Transport = Kind{"transport error"}
	// RateLimit marks model-provider throttling; retried with backoff.
	RateLimit = Kind{"rate limit"}
	// ModelClientFail marks a non-retriable model-provider request error
	// (a 4xx other than throttling); retrying the identical request cannot
	// succeed, so it fails immediately.
	ModelClientFail = Kind{"model request rejected"}
	// Parse marks a malformed webhook/diff/JSON payload.
	Parse = Kind{"parse error"}
	// JudgeFail marks an unavailable or nonsensical judge response.
	JudgeFail = Kind{"judge unavailable"}
	// BudgetExceeded marks an enforcer denial.
	BudgetExceeded = Kind{"budget exceeded"}
	// ProviderFail marks a VCS call failure at publish time.
	ProviderFail = Kind{"provider call failed"}
)

// Is implements errors.Is support by comparing Kind values directly, since
// Kind is comparable and sentinel Kind values are compared by identity.
func (k Kind) Is(target error) bool {
	var other Kind
	if errors.As(target, &other) {
		return other.name == k.name
	}
	return false
}

// Wrap ties an underlying error to a taxonomy Kind, preserving Unwrap so
// errors.Is(err, corverr.RateLimit) and errors.Is(err, underlying) both work.
type Wrap struct {
	Kind Kind
	Err  error
}

func (w *Wrap) Error() string { return w.Kind.name + ": " + w.Err.Error() }
func (w *Wrap) Unwrap() error { return w.Err }
func (w *Wrap) Is(target error) bool {
	var other Kind
	if errors.As(target, &other) {
		return other.name == w.Kind.name
	}
	return false
}

// New wraps err under the given taxonomy Kind. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Wrap{Kind: kind, Err: err}
}
