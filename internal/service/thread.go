// Package service provides business logic for the outreach platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/pkg/logger"
	"github.com/brandreach/outreach-platform/pkg/metrics"
)

// ErrThreadNotFound is returned when a thread does not exist or belongs to
// another brand.
var ErrThreadNotFound = errors.New("thread not found")

// MessagePublisher appends a message to the durable outreach log.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) (uint64, error)
}

// ThreadService owns the per-(brand, influencer) message threads.
type ThreadService struct {
	publisher MessagePublisher
	logger    *logger.Logger

	// In-memory index of the append-only log (would be replaced with a
	// database in production). The JetStream log remains the durable record.
	mu       sync.RWMutex
	threads  map[string]*model.Thread   // thread ID -> thread
	byPair   map[string]string          // brand/influencer pair -> thread ID
	messages map[string][]model.Message // thread ID -> messages ascending
}

// NewThreadService creates a new thread service. publisher may be nil, in
// which case messages are indexed in memory only.
func NewThreadService(publisher MessagePublisher, log *logger.Logger) *ThreadService {
	return &ThreadService{
		publisher: publisher,
		logger:    log,
		threads:   make(map[string]*model.Thread),
		byPair:    make(map[string]string),
		messages:  make(map[string][]model.Message),
	}
}

func pairKey(brandID, influencerID string) string {
	return brandID + "/" + influencerID
}

// Append records a message on the (brand, influencer) thread, creating the
// thread on first contact. The message is published to the durable log
// before it enters the index: a message that fails to publish never shows
// up in history, so the log and the index cannot diverge. Once indexed the
// message is never mutated again, which keeps concurrent readers safe.
func (s *ThreadService) Append(ctx context.Context, brandID, influencerID string, direction model.Direction, subject, body string, at time.Time) (*model.Message, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid message direction %q", direction)
	}

	msg := &model.Message{
		ID:           uuid.Must(uuid.NewV7()).String(),
		ThreadID:     s.ensureThread(brandID, influencerID, at),
		BrandID:      brandID,
		InfluencerID: influencerID,
		Direction:    direction,
		Subject:      subject,
		Body:         body,
		CreatedAt:    at,
	}

	if s.publisher != nil {
		seq, err := s.publisher.PublishMessage(ctx, msg)
		if err != nil {
			s.logger.Error("failed to publish message to outreach log",
				zap.String("thread_id", msg.ThreadID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to publish message: %w", err)
		}
		msg.Sequence = seq
	}

	s.index(msg)

	metrics.MessagesTotal.WithLabelValues(brandID, string(direction)).Inc()

	return msg, nil
}

// ensureThread returns the thread ID for a pair, creating the thread on
// first contact. An empty thread evaluates the same as an absent one, so a
// thread created here whose first publish then fails stays harmless.
func (s *ThreadService) ensureThread(brandID, influencerID string, at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(brandID, influencerID)
	if threadID, exists := s.byPair[key]; exists {
		return threadID
	}

	threadID := uuid.Must(uuid.NewV7()).String()
	s.byPair[key] = threadID
	s.threads[threadID] = &model.Thread{
		ID:           threadID,
		BrandID:      brandID,
		InfluencerID: influencerID,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	metrics.ThreadsTotal.WithLabelValues(brandID).Inc()

	return threadID
}

// index inserts a fully built message into the in-memory index. msg must
// not be written to after this call.
func (s *ThreadService) index(msg *model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.threads[msg.ThreadID]
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], *msg)
	thread.MessageCount++
	thread.LastMessage = msg
	if msg.CreatedAt.After(thread.UpdatedAt) {
		thread.UpdatedAt = msg.CreatedAt
	}
}

// MessageReplayer reads thread messages back from the durable log in
// stream order.
type MessageReplayer interface {
	ReplayMessages(ctx context.Context, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error)
}

// rebuildBatchSize is the replay page size used by RebuildFromLog.
const rebuildBatchSize = 500

// RebuildFromLog repopulates the in-memory index from the durable log.
// Called once at startup, before the service takes traffic; without it a
// restart would forget every history and the unanswered-send cap would
// evaluate against nothing. Returns the number of messages restored.
func (s *ThreadService) RebuildFromLog(ctx context.Context, replayer MessageReplayer) (int, error) {
	var afterSequence uint64
	restored := 0

	for {
		msgs, lastSequence, hasMore, err := replayer.ReplayMessages(ctx, afterSequence, rebuildBatchSize)
		if err != nil {
			return restored, fmt.Errorf("failed to replay outreach log: %w", err)
		}
		for _, msg := range msgs {
			s.restore(msg)
		}
		restored += len(msgs)
		if !hasMore || len(msgs) == 0 {
			return restored, nil
		}
		afterSequence = lastSequence
	}
}

// restore inserts one replayed message, preserving its identity and thread
// ID from the log. Metrics are not bumped: counters report activity since
// process start, not replayed history.
func (s *ThreadService) restore(msg model.Message) {
	if msg.ThreadID == "" || !msg.Direction.Valid() {
		return // skip malformed log entries
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(msg.BrandID, msg.InfluencerID)
	threadID, exists := s.byPair[key]
	if !exists {
		threadID = msg.ThreadID
		s.byPair[key] = threadID
		s.threads[threadID] = &model.Thread{
			ID:           threadID,
			BrandID:      msg.BrandID,
			InfluencerID: msg.InfluencerID,
			CreatedAt:    msg.CreatedAt,
			UpdatedAt:    msg.CreatedAt,
		}
	}
	msg.ThreadID = threadID

	thread := s.threads[threadID]
	s.messages[threadID] = append(s.messages[threadID], msg)
	thread.MessageCount++
	thread.LastMessage = &msg
	if msg.CreatedAt.After(thread.UpdatedAt) {
		thread.UpdatedAt = msg.CreatedAt
	}
}

// History returns a copy of the full message history between a brand and an
// influencer, ascending by creation time. An empty slice means no thread
// exists yet, which is a valid first-contact state rather than an error.
func (s *ThreadService) History(brandID, influencerID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threadID, exists := s.byPair[pairKey(brandID, influencerID)]
	if !exists {
		return nil
	}

	msgs := s.messages[threadID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Get retrieves a thread by ID, scoped to the owning brand.
func (s *ThreadService) Get(brandID, threadID string) (*model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, exists := s.threads[threadID]
	if !exists || thread.BrandID != brandID {
		return nil, ErrThreadNotFound
	}

	copied := *thread
	return &copied, nil
}

// Messages returns a thread's history by thread ID, scoped to the brand.
func (s *ThreadService) Messages(brandID, threadID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, exists := s.threads[threadID]
	if !exists || thread.BrandID != brandID {
		return nil, ErrThreadNotFound
	}

	msgs := s.messages[threadID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// List retrieves a brand's threads ordered by most recent activity.
func (s *ThreadService) List(brandID string, limit, offset int) *model.ListThreadsResponse {
	s.mu.RLock()

	var threads []model.Thread
	for _, thread := range s.threads {
		if thread.BrandID == brandID {
			threads = append(threads, *thread)
		}
	}
	s.mu.RUnlock()

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})

	// Simple pagination
	total := len(threads)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &model.ListThreadsResponse{
		Threads: threads[start:end],
		Total:   total,
		HasMore: end < total,
	}
}
