package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// Common errors returned by the retry policy.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Class buckets an API error by how the caller should react to it.
type Class string

const (
	// ClassRateLimit marks HTTP 429 responses; retry with backoff.
	ClassRateLimit Class = "rate_limit"

	// ClassTransient marks 5xx responses and network-level failures; retry.
	ClassTransient Class = "transient"

	// ClassPermanent marks 4xx responses (auth, not-found) and anything else
	// that retrying cannot fix.
	ClassPermanent Class = "permanent"

	// ClassMalformed marks responses whose payload could not be decoded.
	// Retrying will decode the same garbage again.
	ClassMalformed Class = "malformed"
)

// Retryable reports whether an error of this class is worth another attempt.
func (c Class) Retryable() bool {
	return c == ClassRateLimit || c == ClassTransient
}

// Classify maps an error from the API client into a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ClassMalformed
	}

	var apiErr *gitlab.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch code := apiErr.Response.StatusCode; {
		case code == http.StatusTooManyRequests:
			return ClassRateLimit
		case code >= 500:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	// url.Error and friends wrap transport failures that are usually worth
	// one more try.
	return ClassTransient
}

// IsMalformed reports whether err indicates an undecodable API payload.
func IsMalformed(err error) bool {
	return err != nil && Classify(err) == ClassMalformed
}

// RetryAfterHint extracts a server-supplied Retry-After duration, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var apiErr *gitlab.ErrorResponse
	if !errors.As(err, &apiErr) || apiErr.Response == nil {
		return 0, false
	}
	raw := apiErr.Response.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	seconds, err2 := strconv.Atoi(raw)
	if err2 != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
