package ebay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is matched by every ConfigurationError via errors.Is.
var ErrNotConfigured = errors.New("eBay app ID not configured")

// ErrEmptyKeywords is returned when a search is attempted without keywords.
var ErrEmptyKeywords = errors.New("search keywords are required")

// ConfigurationError means a required setting is missing. Retrying will not
// help until configuration is fixed.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return ErrNotConfigured.Error()
	}
	return fmt.Sprintf("%s (set %s)", ErrNotConfigured.Error(), e.Setting)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// UpstreamError covers transport failures, non-2xx responses and bodies that
// could not be decoded. StatusCode is zero when no response was received.
type UpstreamError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "eBay API returned status %d", e.StatusCode)
	} else {
		b.WriteString("eBay API request failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether eBay rejected the call for exceeding the quota.
func (e *UpstreamError) RateLimited() bool {
	return strings.Contains(e.Message, "exceeded the number of times")
}
