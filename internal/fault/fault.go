// Package fault classifies raw failures from the document service into a
// small taxonomy the retry layer can act on.
//
// Classification yields a single *Error carrying the failure kind, its
// retryability, an optional short machine code, and the original cause.
// Callers dispatch on Kind, never on concrete error types, so new failure
// sources only need a classification rule, not new call sites.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// Kind identifies the failure category of a classified error.
type Kind uint8

const (
	// KindUnknown covers failure modes the taxonomy has not seen.
	// Unseen failures are often transient, so unknown defaults to
	// retryable rather than failing operations that one more attempt
	// would have saved.
	KindUnknown Kind = iota

	// KindNetwork covers transport-level failures: refused or reset
	// connections, timeouts, unresolved hosts.
	KindNetwork

	// KindAuthentication covers rejected credentials and expired
	// sessions (HTTP 401/403). Replaying bad credentials cannot
	// succeed, so these never retry.
	KindAuthentication

	// KindNotFound covers missing nodes and HTTP 404. Never retryable.
	KindNotFound

	// KindOverloaded covers HTTP 429/503 and rate-limit responses.
	// Retryable: the backoff between attempts is what gives the
	// service room to recover.
	KindOverloaded
)

// String returns the stable name of the kind. These names appear in log
// records and in the metrics store's error_kind column, so they must not
// change between releases.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network_transient"
	case KindAuthentication:
		return "authentication_failed"
	case KindNotFound:
		return "resource_not_found"
	case KindOverloaded:
		return "service_overloaded"
	default:
		return "unknown_operational"
	}
}

// Retryable reports the default retryability of the kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindAuthentication, KindNotFound:
		return false
	default:
		return true
	}
}

// Error is a classified failure. Fields are fixed at construction;
// WithAttempts returns an annotated copy rather than mutating.
type Error struct {
	Kind      Kind
	Retryable bool
	Code      string // short machine token such as "http_429" or "connection_refused"
	Attempts  int    // attempts consumed before the error surfaced; 0 until the retry layer reports it

	msg   string
	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	switch {
	case e.msg != "":
		b.WriteString(": ")
		b.WriteString(e.msg)
	case e.cause != nil:
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	return b.String()
}

// Unwrap exposes the original failure to errors.Is and errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithAttempts returns a copy of the error annotated with the number of
// attempts consumed. The receiver is left untouched.
func (e *Error) WithAttempts(n int) *Error {
	c := *e
	c.Attempts = n
	return &c
}

// New builds a classified error with the kind's default retryability.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Retryable: kind.Retryable(), msg: msg}
}

// NotFound builds the terminal classification for a missing node id. The
// id is part of the message so the caller sees which lookup failed.
func NotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Code: "node_missing", msg: fmt.Sprintf("node %q not found", id)}
}

// Invalid wraps a request that can never succeed as submitted, such as
// moving a node into its own subtree. Replaying the identical request
// cannot change the outcome, so the error is never retried.
func Invalid(err error) *Error {
	return &Error{Kind: KindUnknown, Retryable: false, Code: "invalid_request", cause: err}
}

// IsKind reports whether err is (or wraps) a classified error of the
// given kind.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

// statusCoder is implemented by transport errors that carry an HTTP
// status, such as the workflowy client's response errors.
type statusCoder interface{ HTTPStatus() int }

// Message markers for failures that arrive as flattened strings rather
// than typed values. Matched case-insensitively against err.Error().
var (
	overloadedMarkers = []string{
		"rate limit", "too many requests", "overload",
		"quota exceeded", "service unavailable", "try again later",
	}
	authMarkers = []string{
		"unauthorized", "authentication", "forbidden",
		"invalid credentials", "login", "session expired",
	}
	notFoundMarkers = []string{
		"not found", "does not exist", "no such node",
	}
)

// Classify maps a raw failure onto the taxonomy. The first matching rule
// wins: an already classified error passes through unchanged, then
// transport-level failures, then service overload, authentication,
// missing resource, and finally the retryable unknown fallback.
//
// Classify(Classify(err)) == Classify(err) for every err.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if code, ok := transportCode(err); ok {
		return &Error{Kind: KindNetwork, Retryable: true, Code: code, cause: err}
	}

	status := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.HTTPStatus()
	}
	msg := strings.ToLower(err.Error())

	switch {
	case status == 429 || status == 503 || containsAny(msg, overloadedMarkers):
		return &Error{Kind: KindOverloaded, Retryable: true, Code: httpCode(status), cause: err}
	case status == 401 || status == 403 || containsAny(msg, authMarkers):
		return &Error{Kind: KindAuthentication, Retryable: false, Code: httpCode(status), cause: err}
	case status == 404 || containsAny(msg, notFoundMarkers):
		return &Error{Kind: KindNotFound, Retryable: false, Code: httpCode(status), cause: err}
	}

	return &Error{Kind: KindUnknown, Retryable: true, Code: httpCode(status), cause: err}
}

// transportCode recognizes network-level failures and names them. Typed
// checks run first; the string fallbacks catch failures the HTTP stack
// has already flattened into wrapped messages.
func transportCode(err error) (string, bool) {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused", true
	case errors.Is(err, syscall.ECONNRESET):
		return "connection_reset", true
	case errors.Is(err, syscall.EPIPE):
		return "broken_pipe", true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "timeout", true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "unresolved_host", true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout", true
		}
		return "connection_failed", true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused", true
	case strings.Contains(msg, "connection reset"):
		return "connection_reset", true
	case strings.Contains(msg, "no such host"):
		return "unresolved_host", true
	case strings.Contains(msg, "network is unreachable"):
		return "network_unreachable", true
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return "timeout", true
	}
	return "", false
}

func httpCode(status int) string {
	if status == 0 {
		return ""
	}
	return fmt.Sprintf("http_%d", status)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
