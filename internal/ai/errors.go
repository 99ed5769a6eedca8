package ai

import (
	"fmt"
	"time"
)

// Provider failures surface as one of the typed errors below, each wrapping
// the *APIError parsed from the response body. Callers branch with errors.As;
// the retry loop treats RateLimitError and ServerError as transient and
// everything else as final.

// AuthError covers 401 and 403: the credential was rejected.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("credentials rejected: %s", e.APIError.Error())
}

func (e *AuthError) Unwrap() error { return e.APIError }

// RateLimitError covers 429. RetryAfter is zero when the provider sent no
// usable Retry-After header.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry in %ds: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

func (e *RateLimitError) Unwrap() error { return e.APIError }

// BadRequestError covers 400: the request itself was malformed or failed
// validation.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("request rejected: %s", e.APIError.Error())
}

func (e *BadRequestError) Unwrap() error { return e.APIError }

// ModelNotFoundError means the requested model does not exist or is not
// enabled for this account.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model unavailable: %s", e.APIError.Error())
}

func (e *ModelNotFoundError) Unwrap() error { return e.APIError }

// QuotaExceededError means a spend or usage cap was hit; retrying will not
// help until the account changes.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota or billing limit reached: %s", e.APIError.Error())
}

func (e *QuotaExceededError) Unwrap() error { return e.APIError }

// ServerError covers 5xx responses.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string {
	return fmt.Sprintf("provider failure: %s", e.APIError.Error())
}

func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError means no HTTP conversation happened at all, typically a
// local Ollama that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "endpoint unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("cannot reach %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
