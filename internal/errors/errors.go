// Package errors defines the failure taxonomy for the hosted
// generative-language API: every remote failure is classified into a fixed
// set of machine-readable codes, each paired with a human-readable message
// suitable for showing in the transcript.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Code is a machine-readable classification of a remote failure.
type Code string

const (
	CodeAPIKeyInvalid    Code = "API_KEY_INVALID"
	CodeQuotaExceeded    Code = "QUOTA_EXCEEDED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeUnknown          Code = "UNKNOWN_ERROR"
)

// humanMessages are the user-facing texts per code. They end up verbatim in
// the transcript's error notices.
var humanMessages = map[Code]string{
	CodeAPIKeyInvalid:    "The API key is invalid or has expired. Set GEMINI_API_KEY and try again.",
	CodeQuotaExceeded:    "The API quota has been exhausted. Please try again later.",
	CodePermissionDenied: "Access denied. The API key does not have sufficient permissions.",
	CodeRateLimited:      "Too many requests. Please wait a moment and try again.",
	CodeUnknown:          "Something went wrong while processing your message. Please try again.",
}

// ChatError is a classified remote failure.
type ChatError struct {
	Code    Code
	Message string
	Err     error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}

// Is matches two ChatErrors by code, so callers can compare against
// New(code) sentinels with errors.Is.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	return ok && t.Code == e.Code
}

// New creates a ChatError with the canonical human message for the code.
func New(code Code) *ChatError {
	return &ChatError{Code: code, Message: humanMessages[code]}
}

// Wrap creates a ChatError for the code, keeping the cause.
func Wrap(code Code, err error) *ChatError {
	return &ChatError{Code: code, Message: humanMessages[code], Err: err}
}

// Classify maps an arbitrary failure from the remote boundary onto the
// taxonomy. Structured status from the transport takes precedence; matching
// on the error text is a fallback for errors that arrive unwrapped (plain
// transport failures, proxies), and is known to be fragile.
func Classify(err error) *ChatError {
	if err == nil {
		return nil
	}

	var cerr *ChatError
	if errors.As(err, &cerr) {
		return cerr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return Wrap(classifyStatus(apiErr), err)
	}

	return Wrap(classifyText(err.Error()), err)
}

// classifyStatus maps the structured HTTP code / RPC status of an API
// error onto the taxonomy.
func classifyStatus(apiErr genai.APIError) Code {
	switch apiErr.Status {
	case "UNAUTHENTICATED":
		return CodeAPIKeyInvalid
	case "PERMISSION_DENIED":
		return CodePermissionDenied
	case "RESOURCE_EXHAUSTED":
		// The API reports both quota exhaustion and rate limiting as
		// RESOURCE_EXHAUSTED; the message text disambiguates.
		if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			return CodeQuotaExceeded
		}
		return CodeRateLimited
	}

	switch apiErr.Code {
	case 401:
		return CodeAPIKeyInvalid
	case 403:
		return CodePermissionDenied
	case 429:
		return CodeRateLimited
	case 400:
		if containsAny(apiErr.Message, "API key", "API_KEY_INVALID") {
			return CodeAPIKeyInvalid
		}
	}

	return classifyText(apiErr.Message)
}

// classifyText is the substring fallback.
func classifyText(msg string) Code {
	switch {
	case containsAny(msg, "API_KEY_INVALID", "API key"):
		return CodeAPIKeyInvalid
	case containsAny(msg, "QUOTA_EXCEEDED", "quota"):
		return CodeQuotaExceeded
	case containsAny(msg, "PERMISSION_DENIED"):
		return CodePermissionDenied
	case containsAny(msg, "429", "rate limit", "too many requests"):
		return CodeRateLimited
	default:
		return CodeUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether the error classifies as a rate limit.
func IsRateLimited(err error) bool {
	return Classify(err) != nil && Classify(err).Code == CodeRateLimited
}

// IsAPIKeyInvalid reports whether the error classifies as a credential
// failure.
func IsAPIKeyInvalid(err error) bool {
	return Classify(err) != nil && Classify(err).Code == CodeAPIKeyInvalid
}
