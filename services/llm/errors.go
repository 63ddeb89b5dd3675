package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RateLimitError is returned when the provider throttles us (429).
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("rate limited: %v", e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

// QuotaError is returned when the account ran out of credits (402). Retrying does not help.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return fmt.Sprintf("quota exhausted: %v", e.Err) }
func (e *QuotaError) Unwrap() error { return e.Err }

// InvalidResponseError is returned when the output is not valid JSON or breaks the requested schema.
type InvalidResponseError struct {
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string { return fmt.Sprintf("invalid model output: %v", e.Err) }
func (e *InvalidResponseError) Unwrap() error { return e.Err }

// UnavailableError covers network failures and 5xx answers.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return fmt.Sprintf("provider unavailable: %v", e.Err) }
func (e *UnavailableError) Unwrap() error { return e.Err }

// RequestError is any other 4xx: the request itself is wrong.
type RequestError struct {
	Status int
	Err    error
}

func (e *RequestError) Error() string { return fmt.Sprintf("request rejected (%d): %v", e.Status, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// statusError classifies a failed call by its HTTP status. A zero status means the call never got an answer.
func statusError(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Err: err}
	case status == http.StatusPaymentRequired:
		return &QuotaError{Err: err}
	case status >= 400 && status < 500:
		return &RequestError{Status: status, Err: err}
	default:
		return &UnavailableError{Err: err}
	}
}
