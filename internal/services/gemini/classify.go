package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrorKind buckets a failure by how the caller should react to it.
type ErrorKind int

const (
	// KindOther is an error with no special handling: report and move on.
	KindOther ErrorKind = iota
	// KindTransient failures (rate limits, quota pressure) deserve backoff
	// and another attempt.
	KindTransient
	// KindFatal failures (model or endpoint not found) will never succeed on
	// retry and should abort immediately.
	KindFatal
	// KindCancelled means the caller gave up; it is not a defect.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// Classify inspects an error from the Gemini API boundary and reports how it
// should be handled. Rate-limit detection is deliberately broad: the upstream
// wraps quota failures in several shapes, so status codes, nested error
// payloads, and message keywords are all consulted.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound {
			return KindFatal
		}
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return KindTransient
		}
		if api := statusErr.API; api != nil {
			if api.Code == http.StatusTooManyRequests || strings.EqualFold(api.Status, "RESOURCE_EXHAUSTED") {
				return KindTransient
			}
		}
	}

	message := strings.ToLower(err.Error())
	for _, keyword := range []string{"429", "quota", "resource_exhausted"} {
		if strings.Contains(message, keyword) {
			return KindTransient
		}
	}
	return KindOther
}

// IsRateLimit reports whether the error looks like quota or rate-limit
// pressure worth backing off for.
func IsRateLimit(err error) bool {
	return Classify(err) == KindTransient
}

// IsNotFound reports whether the error is a hard 404 from the API.
func IsNotFound(err error) bool {
	return Classify(err) == KindFatal
}
