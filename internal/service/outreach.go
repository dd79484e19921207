package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/internal/outreach"
	"github.com/brandreach/outreach-platform/pkg/logger"
	"github.com/brandreach/outreach-platform/pkg/metrics"
)

// ErrAllRecipientsBlocked is returned when every compose recipient is
// policy-blocked and nothing was sent.
var ErrAllRecipientsBlocked = errors.New("all recipients are blocked by the outreach policy")

// ErrNoRecipients is returned when a compose names no recipients.
var ErrNoRecipients = errors.New("at least one recipient is required")

// Relay queues an email delivery with the external relay.
type Relay interface {
	PublishDispatch(ctx context.Context, d *model.EmailDispatch) (uint64, error)
}

// OutreachService orchestrates multi-recipient composes: it re-derives
// eligibility per recipient from the full thread history, sends to the
// allowed set only, and reports policy skips and delivery failures
// separately.
type OutreachService struct {
	threads *ThreadService
	relay   Relay
	policy  outreach.Policy
	logger  *logger.Logger

	// now is injectable so eligibility stays deterministic under test.
	now func() time.Time
}

// NewOutreachService creates a new outreach service.
func NewOutreachService(threads *ThreadService, relay Relay, policy outreach.Policy, log *logger.Logger) *OutreachService {
	return &OutreachService{
		threads: threads,
		relay:   relay,
		policy:  policy,
		logger:  log,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *OutreachService) WithClock(now func() time.Time) *OutreachService {
	s.now = now
	return s
}

// Eligibility evaluates one brand/influencer relationship right now.
func (s *OutreachService) Eligibility(ctx context.Context, brandID, influencerID string) model.Eligibility {
	result := s.policy.Evaluate(s.threads.History(brandID, influencerID), s.now())
	metrics.RecordEligibility(string(result.Status))
	return result
}

// Compose sends one outreach email to many recipients. Each allowed
// recipient is its own unit of work: deliveries run concurrently and one
// failure never blocks or rolls back the others. When every recipient is
// blocked, the returned response carries the per-recipient reasons and the
// error is ErrAllRecipientsBlocked.
func (s *OutreachService) Compose(ctx context.Context, brandID string, req *model.ComposeRequest) (*model.ComposeResponse, error) {
	if len(req.InfluencerIDs) == 0 {
		return nil, ErrNoRecipients
	}

	now := s.now()
	partition := s.policy.Partition(req.InfluencerIDs, func(influencerID string) []model.Message {
		return s.threads.History(brandID, influencerID)
	}, now)

	for _, blocked := range partition.Blocked {
		metrics.RecordEligibility(string(blocked.Eligibility.Status))
		metrics.ComposeRecipientsTotal.WithLabelValues("skipped").Inc()
	}
	for range partition.Allowed {
		metrics.RecordEligibility(string(model.StatusAllowed))
	}

	resp := &model.ComposeResponse{
		Sent:    []string{},
		Skipped: partition.Blocked,
		Failed:  []model.SendOutcome{},
	}
	if resp.Skipped == nil {
		resp.Skipped = []model.RecipientEligibility{}
	}

	if len(partition.Allowed) == 0 {
		return resp, ErrAllRecipientsBlocked
	}

	// One independent send per allowed recipient; results keep input order.
	type sendResult struct {
		influencerID string
		err          error
	}
	results := make([]sendResult, len(partition.Allowed))

	var wg sync.WaitGroup
	for i, influencerID := range partition.Allowed {
		wg.Add(1)
		go func(i int, influencerID string) {
			defer wg.Done()
			results[i] = sendResult{
				influencerID: influencerID,
				err:          s.sendOne(ctx, brandID, influencerID, req, now),
			}
		}(i, influencerID)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			s.logger.Error("outreach send failed",
				zap.String("brand_id", brandID),
				zap.String("influencer_id", r.influencerID),
				zap.Error(r.err),
			)
			metrics.ComposeRecipientsTotal.WithLabelValues("failed").Inc()
			resp.Failed = append(resp.Failed, model.SendOutcome{
				InfluencerID: r.influencerID,
				Error:        r.err.Error(),
			})
			continue
		}
		metrics.ComposeRecipientsTotal.WithLabelValues("sent").Inc()
		resp.Sent = append(resp.Sent, r.influencerID)
	}

	return resp, nil
}

// sendOne persists the outgoing message on the recipient's thread and
// queues delivery with the relay.
func (s *OutreachService) sendOne(ctx context.Context, brandID, influencerID string, req *model.ComposeRequest, at time.Time) error {
	msg, err := s.threads.Append(ctx, brandID, influencerID, model.DirectionOutgoing, req.Subject, req.Body, at)
	if err != nil {
		return err
	}

	if s.relay == nil {
		return nil
	}

	dispatch := &model.EmailDispatch{
		MessageID:    msg.ID,
		ThreadID:     msg.ThreadID,
		BrandID:      brandID,
		InfluencerID: influencerID,
		Subject:      req.Subject,
		Body:         req.Body,
		CreatedAt:    at,
	}
	if _, err := s.relay.PublishDispatch(ctx, dispatch); err != nil {
		metrics.RelayDispatchesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.RelayDispatchesTotal.WithLabelValues("queued").Inc()

	return nil
}

// RecordReply records an influencer reply on its thread, permanently
// unlocking outreach for that relationship.
func (s *OutreachService) RecordReply(ctx context.Context, req *model.RecordReplyRequest) (*model.Message, error) {
	return s.threads.Append(ctx, req.BrandID, req.InfluencerID, model.DirectionIncoming, req.Subject, req.Body, s.now())
}
