package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandreach/outreach-platform/internal/model"
)

// fakePublisher records published messages.
type fakePublisher struct {
	mu        sync.Mutex
	published []*model.Message
	err       error
}

func (f *fakePublisher) PublishMessage(_ context.Context, msg *model.Message) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.published = append(f.published, msg)
	return uint64(len(f.published)), nil
}

func TestAppendCreatesThreadOnFirstContact(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewThreadService(pub, testLogger())
	ctx := context.Background()

	msg, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "Hi", "hello", testStart)
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.NotEmpty(t, msg.ThreadID)
	require.Equal(t, uint64(1), msg.Sequence)

	thread, err := svc.Get("brand-1", msg.ThreadID)
	require.NoError(t, err)
	require.Equal(t, "inf-a", thread.InfluencerID)
	require.Equal(t, 1, thread.MessageCount)

	// Second message reuses the thread.
	msg2, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionIncoming, "", "reply", testStart.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, msg.ThreadID, msg2.ThreadID)

	require.Len(t, pub.published, 2)
}

func TestAppendRejectsInvalidDirection(t *testing.T) {
	svc := NewThreadService(nil, testLogger())

	_, err := svc.Append(context.Background(), "brand-1", "inf-a", model.Direction("sideways"), "", "x", testStart)
	require.Error(t, err)
}

func TestAppendPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("stream down")}
	svc := NewThreadService(pub, testLogger())

	_, err := svc.Append(context.Background(), "brand-1", "inf-a", model.DirectionOutgoing, "", "x", testStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stream down")

	// A message that never made the durable log must not show up in
	// history either, or it would count toward the unanswered-send cap.
	require.Empty(t, svc.History("brand-1", "inf-a"))

	// Once the log recovers the same send goes through as a first message.
	pub.err = nil
	msg, err := svc.Append(context.Background(), "brand-1", "inf-a", model.DirectionOutgoing, "", "x", testStart)
	require.NoError(t, err)
	require.Equal(t, uint64(1), msg.Sequence)
	require.Len(t, svc.History("brand-1", "inf-a"), 1)
}

func TestConcurrentAppendAndRead(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewThreadService(pub, testLogger())
	ctx := context.Background()

	seed, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "", "seed", testStart)
	require.NoError(t, err)

	// Writers keep appending while readers list, fetch, and serialize
	// threads. Run with -race to catch unsynchronized message mutation.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "", "more", testStart.Add(time.Duration(n*25+j)*time.Second))
				assert.NoError(t, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				resp := svc.List("brand-1", 20, 0)
				_, err := json.Marshal(resp)
				assert.NoError(t, err)
				_, err = svc.Get("brand-1", seed.ThreadID)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, svc.History("brand-1", "inf-a"), 201)
}

// fakeReplayer serves a canned log in fixed-size pages.
type fakeReplayer struct {
	log      []model.Message
	pageSize int
	err      error
}

func (f *fakeReplayer) ReplayMessages(_ context.Context, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	if f.err != nil {
		return nil, 0, false, f.err
	}
	if f.pageSize > 0 && f.pageSize < limit {
		limit = f.pageSize
	}
	start := int(afterSequence)
	if start >= len(f.log) {
		return nil, afterSequence, false, nil
	}
	end := start + limit
	if end > len(f.log) {
		end = len(f.log)
	}
	return f.log[start:end], uint64(end), end < len(f.log), nil
}

func TestRebuildFromLog(t *testing.T) {
	threadA := uuid.Must(uuid.NewV7()).String()
	threadB := uuid.Must(uuid.NewV7()).String()
	log := []model.Message{
		{ID: "m1", ThreadID: threadA, BrandID: "brand-1", InfluencerID: "inf-a", Direction: model.DirectionOutgoing, Body: "pitch", CreatedAt: testStart, Sequence: 1},
		{ID: "m2", ThreadID: threadB, BrandID: "brand-1", InfluencerID: "inf-b", Direction: model.DirectionOutgoing, Body: "pitch", CreatedAt: testStart.Add(time.Hour), Sequence: 2},
		{ID: "m3", ThreadID: threadA, BrandID: "brand-1", InfluencerID: "inf-a", Direction: model.DirectionIncoming, Body: "interested!", CreatedAt: testStart.Add(2 * time.Hour), Sequence: 3},
		{ID: "m4", ThreadID: threadA, BrandID: "brand-1", InfluencerID: "inf-a", Direction: model.DirectionOutgoing, Body: "great", CreatedAt: testStart.Add(3 * time.Hour), Sequence: 4},
		{ID: "m5", ThreadID: threadB, BrandID: "brand-1", InfluencerID: "inf-b", Direction: model.DirectionOutgoing, Body: "follow-up", CreatedAt: testStart.Add(49 * time.Hour), Sequence: 5},
	}

	svc := NewThreadService(nil, testLogger())
	restored, err := svc.RebuildFromLog(context.Background(), &fakeReplayer{log: log, pageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 5, restored)

	// Histories come back in full, under the thread IDs from the log.
	require.Len(t, svc.History("brand-1", "inf-a"), 3)
	require.Len(t, svc.History("brand-1", "inf-b"), 2)

	thread, err := svc.Get("brand-1", threadB)
	require.NoError(t, err)
	require.Equal(t, "inf-b", thread.InfluencerID)
	require.Equal(t, 2, thread.MessageCount)
	require.Equal(t, "m5", thread.LastMessage.ID)

	// New traffic lands on the restored thread rather than forking a new one.
	msg, err := svc.Append(context.Background(), "brand-1", "inf-a", model.DirectionOutgoing, "", "x", testStart.Add(50*time.Hour))
	require.NoError(t, err)
	require.Equal(t, threadA, msg.ThreadID)
}

func TestRebuildFromLogReplayError(t *testing.T) {
	svc := NewThreadService(nil, testLogger())

	_, err := svc.RebuildFromLog(context.Background(), &fakeReplayer{err: errors.New("stream gone")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to replay outreach log")
}

func TestHistoryReturnsCopy(t *testing.T) {
	svc := NewThreadService(nil, testLogger())
	ctx := context.Background()

	_, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "", "one", testStart)
	require.NoError(t, err)

	history := svc.History("brand-1", "inf-a")
	require.Len(t, history, 1)

	// Mutating the returned slice must not affect the store.
	history[0].Body = "tampered"
	require.Equal(t, "one", svc.History("brand-1", "inf-a")[0].Body)

	// No thread yet is a valid empty history.
	require.Empty(t, svc.History("brand-1", "inf-z"))
}

func TestThreadScopedToBrand(t *testing.T) {
	svc := NewThreadService(nil, testLogger())
	ctx := context.Background()

	msg, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "", "x", testStart)
	require.NoError(t, err)

	_, err = svc.Get("brand-2", msg.ThreadID)
	require.ErrorIs(t, err, ErrThreadNotFound)

	_, err = svc.Messages("brand-2", msg.ThreadID)
	require.ErrorIs(t, err, ErrThreadNotFound)
}

func TestListOrdersByRecentActivity(t *testing.T) {
	svc := NewThreadService(nil, testLogger())
	ctx := context.Background()

	_, err := svc.Append(ctx, "brand-1", "inf-a", model.DirectionOutgoing, "", "x", testStart)
	require.NoError(t, err)
	_, err = svc.Append(ctx, "brand-1", "inf-b", model.DirectionOutgoing, "", "y", testStart.Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Append(ctx, "brand-2", "inf-c", model.DirectionOutgoing, "", "z", testStart)
	require.NoError(t, err)

	resp := svc.List("brand-1", 20, 0)
	require.Equal(t, 2, resp.Total)
	require.False(t, resp.HasMore)
	require.Equal(t, "inf-b", resp.Threads[0].InfluencerID)
	require.Equal(t, "inf-a", resp.Threads[1].InfluencerID)

	paged := svc.List("brand-1", 1, 0)
	require.Len(t, paged.Threads, 1)
	require.True(t, paged.HasMore)
}
