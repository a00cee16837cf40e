package errors

import "fmt"

// Kind classifies a crawl failure. The distinction matters to callers:
// a blocked account must not be retried the way a transport hiccup can be.
type Kind string

const (
	KindUnsupportedPlatform Kind = "unsupported_platform"
	KindInvalidJob          Kind = "invalid_job"
	KindLoginFailed         Kind = "login_failed"
	KindAccountBlocked      Kind = "account_blocked"
	KindDataFetch           Kind = "data_fetch"
	KindTransport           Kind = "transport"
	KindPoolExhausted       Kind = "pool_exhausted"
	KindUnknown             Kind = "unknown"
)

// Error represents a crawl error with classification and, for malformed
// responses, the raw body for diagnosis.
type Error struct {
	Kind    Kind
	Message string
	Body    string // raw response body, set on data_fetch errors
	Code    int    // HTTP status code when applicable
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewDataFetch creates a data_fetch error carrying the raw response body.
func NewDataFetch(body string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindDataFetch, Message: fmt.Sprintf(format, args...), Body: body}
}

// IsRetryable reports whether an error kind may be worth retrying by the
// caller. A blocked account never is: the session, not the request, is
// compromised, and blind retries make it worse.
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindTransport:
		return true
	case KindAccountBlocked, KindLoginFailed, KindInvalidJob,
		KindUnsupportedPlatform, KindDataFetch, KindPoolExhausted:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
