// Package security provides the application's security features.
//
// TextSanitizerService strips markup from user-supplied free text such
// as report descriptions and display names before it is stored or
// forwarded. It uses bluemonday's strict policy, which removes all
// HTML and leaves plain text.
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService defines sanitization for user-supplied text.
// Applied to report descriptions, addresses, and display names before
// they leave the gateway.
type TextSanitizerService interface {
	// Sanitize strips all HTML from the input and returns plain text
	// with surrounding whitespace trimmed.
	// Returns the empty string for empty input.
	// The same input always yields the same output.
	Sanitize(raw string) string
}

// textSanitizer implements TextSanitizerService.
// It holds a bluemonday policy and sanitizes concurrently safely.
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer creates a new TextSanitizerService instance.
// The strict policy allows no elements or attributes at all, so any
// tag, script, or event handler in the input is removed.
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize strips all HTML from the input and returns plain text.
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
