// Package model defines data structures for the outreach platform.
package model

import (
	"time"
)

// Direction indicates who sent a message within a thread.
type Direction string

const (
	// DirectionOutgoing is a message from the brand to the influencer.
	DirectionOutgoing Direction = "outgoing"
	// DirectionIncoming is a reply from the influencer to the brand.
	DirectionIncoming Direction = "incoming"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming
}

// Message is one email relayed between a brand and an influencer.
// Messages are append-only: once persisted they are never mutated.
type Message struct {
	// Identity
	ID           string `json:"id"`
	ThreadID     string `json:"thread_id"`
	BrandID      string `json:"brand_id"`
	InfluencerID string `json:"influencer_id"`

	// Content
	Direction Direction `json:"direction"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`

	// JetStream metadata (populated on read)
	Sequence uint64 `json:"sequence,omitempty"`
}

// Thread is the full message history between one brand and one influencer.
type Thread struct {
	ID           string    `json:"id"`
	BrandID      string    `json:"brand_id"`
	InfluencerID string    `json:"influencer_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	LastMessage  *Message  `json:"last_message,omitempty"`
}

// ListThreadsResponse is the response for listing a brand's threads.
type ListThreadsResponse struct {
	Threads []Thread `json:"threads"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
}

// ListMessagesResponse is the response for listing a thread's messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// RecordReplyRequest is the relay webhook payload recording an influencer reply.
type RecordReplyRequest struct {
	BrandID      string `json:"brand_id"`
	InfluencerID string `json:"influencer_id"`
	Subject      string `json:"subject,omitempty"`
	Body         string `json:"body"`
}
