package model

import (
	"time"
)

// EligibilityStatus is the outcome of an outreach eligibility check.
type EligibilityStatus string

const (
	// StatusAllowed means a new outgoing message may be sent now.
	StatusAllowed EligibilityStatus = "allowed"
	// StatusCooldown means sending is temporarily blocked with a known expiry.
	StatusCooldown EligibilityStatus = "cooldown"
	// StatusBlocked means sending is blocked until the influencer replies.
	StatusBlocked EligibilityStatus = "blocked"
)

// Eligibility is the result of evaluating one brand/influencer relationship.
// RetryAfter is set only when Status is StatusCooldown.
type Eligibility struct {
	Status     EligibilityStatus `json:"status"`
	Reason     string            `json:"reason"`
	RetryAfter *time.Time        `json:"retry_after,omitempty"`
}

// Sendable reports whether a new outgoing message may be sent.
func (e Eligibility) Sendable() bool {
	return e.Status == StatusAllowed
}

// RecipientEligibility pairs a recipient with its evaluation result.
type RecipientEligibility struct {
	InfluencerID string      `json:"influencer_id"`
	Eligibility  Eligibility `json:"eligibility"`
}

// Partition splits a compose recipient set into sendable and policy-blocked
// recipients. Both slices preserve the input order of the recipient set.
type Partition struct {
	Allowed []string               `json:"allowed"`
	Blocked []RecipientEligibility `json:"blocked"`
}

// ComposeRequest is the request to send one outreach email to many recipients.
type ComposeRequest struct {
	InfluencerIDs []string `json:"influencer_ids"`
	Subject       string   `json:"subject,omitempty"`
	Body          string   `json:"body"`
}

// SendOutcome reports a delivery failure for one allowed recipient.
type SendOutcome struct {
	InfluencerID string `json:"influencer_id"`
	Error        string `json:"error"`
}

// ComposeResponse aggregates per-recipient results of a compose.
// Sent, Skipped and Failed are disjoint: Skipped holds policy rejections,
// Failed holds delivery errors for recipients that passed policy.
type ComposeResponse struct {
	Sent    []string               `json:"sent"`
	Skipped []RecipientEligibility `json:"skipped"`
	Failed  []SendOutcome          `json:"failed"`
}

// DraftRequest asks the draft assistant for suggested outreach copy.
type DraftRequest struct {
	InfluencerID string `json:"influencer_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	Brief        string `json:"brief"`
	Tone         string `json:"tone,omitempty"`
	Model        string `json:"model,omitempty"`
}

// DraftResponse is a suggested subject and body for an outreach email.
type DraftResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Model   string `json:"model"`
}
