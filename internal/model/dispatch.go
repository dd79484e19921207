package model

import (
	"time"
)

// EmailDispatch is the envelope handed to the email relay for delivery.
// The relay owns actual SMTP delivery; the platform only records the
// outgoing message and queues the dispatch.
type EmailDispatch struct {
	MessageID    string    `json:"message_id"`
	ThreadID     string    `json:"thread_id"`
	BrandID      string    `json:"brand_id"`
	InfluencerID string    `json:"influencer_id"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}
