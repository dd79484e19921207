package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateBody validates outreach email body content.
func ValidateBody(body string) error {
	if len(body) == 0 {
		return errors.New("body cannot be empty")
	}
	if len(body) > 100000 { // ~100KB limit
		return errors.New("body exceeds maximum length")
	}
	if !utf8.ValidString(body) {
		return errors.New("body must be valid UTF-8")
	}
	return nil
}

// ValidateSubject validates an email subject line.
func ValidateSubject(subject string) error {
	if len(subject) > 256 {
		return errors.New("subject exceeds maximum length")
	}
	if !utf8.ValidString(subject) {
		return errors.New("subject must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a thread ID.
func ValidateThreadID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid thread ID format")
	}
	return nil
}

// ValidateInfluencerID validates an influencer ID.
func ValidateInfluencerID(id string) error {
	if len(id) == 0 {
		return errors.New("influencer ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("influencer ID exceeds maximum length")
	}
	return nil
}

// ValidateRecipients validates a compose recipient list: at least one
// recipient, each well-formed, no duplicates.
func ValidateRecipients(ids []string) error {
	if len(ids) == 0 {
		return errors.New("at least one recipient is required")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if err := ValidateInfluencerID(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return errors.New("duplicate recipient: " + id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
