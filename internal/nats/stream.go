package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/brandreach/outreach-platform/internal/model"
)

const (
	// StreamName is the name of the outreach stream.
	StreamName = "OUTREACH"

	// SubjectPrefix is the prefix for all outreach subjects.
	SubjectPrefix = "outreach"

	// DispatchSubject is the subject the email relay consumes deliveries from.
	DispatchSubject = "outreach.relay.dispatch"
)

// StreamManager handles JetStream stream operations for the outreach log.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the outreach stream exists with proper configuration.
// The stream is the durable append-only record of every relayed message, so
// deletes and purges are denied.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,     // 1 year
		MaxBytes:    100 * 1024 * 1024 * 1024, // 100GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "All brand/influencer outreach messages and relay dispatches",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a thread message.
func MessageSubject(brandID, influencerID string, direction model.Direction) string {
	return fmt.Sprintf("%s.threads.%s.%s.msg.%s", SubjectPrefix, brandID, influencerID, direction)
}

// threadsFilter matches every thread message and nothing else (relay
// dispatches live under a separate subject).
func threadsFilter() string {
	return fmt.Sprintf("%s.threads.>", SubjectPrefix)
}

// PublishMessage appends a thread message to the outreach log.
func (m *StreamManager) PublishMessage(ctx context.Context, msg *model.Message) (uint64, error) {
	subject := MessageSubject(msg.BrandID, msg.InfluencerID, msg.Direction)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// PublishDispatch queues an email delivery for the relay.
func (m *StreamManager) PublishDispatch(ctx context.Context, d *model.EmailDispatch) (uint64, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal dispatch: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, DispatchSubject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish dispatch: %w", err)
	}

	return ack.Sequence, nil
}

// ReplayMessages reads thread messages from the log in stream order,
// starting after a sequence. Used to rebuild the in-memory index at startup.
func (m *StreamManager) ReplayMessages(ctx context.Context, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: threadsFilter(),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}

	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	var messages []model.Message
	var lastSequence uint64

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	for msg := range batch.Messages() {
		var message model.Message
		if err := json.Unmarshal(msg.Data(), &message); err != nil {
			continue
		}

		meta, err := msg.Metadata()
		if err == nil {
			message.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		messages = append(messages, message)
	}

	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, 0, false, fmt.Errorf("batch error: %w", batch.Error())
	}

	hasMore := len(messages) == limit

	return messages, lastSequence, hasMore, nil
}
