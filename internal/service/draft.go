package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brandreach/outreach-platform/internal/llm"
	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/pkg/logger"
	"github.com/brandreach/outreach-platform/pkg/metrics"
)

// ErrDraftUnavailable is returned when no LLM provider is configured.
var ErrDraftUnavailable = errors.New("draft assistant is not configured")

// ErrUnknownModel is returned when a draft names a model the configured
// provider does not offer.
var ErrUnknownModel = errors.New("unknown draft model")

const draftPrompt = `You write short, professional cold-outreach emails from a brand to a social media influencer proposing a paid collaboration.
Write one email for the brief below. Reply with the subject on the first line prefixed "Subject: ", then a blank line, then the body. Do not add commentary.

Brief: %s`

// DraftService generates suggested outreach copy with an LLM.
type DraftService struct {
	client llm.Client
	logger *logger.Logger
}

// NewDraftService creates a new draft service. client may be nil when no
// provider is configured; Draft then returns ErrDraftUnavailable.
func NewDraftService(client llm.Client, log *logger.Logger) *DraftService {
	return &DraftService{
		client: client,
		logger: log,
	}
}

// Available reports whether an LLM provider is configured.
func (s *DraftService) Available() bool {
	return s.client != nil
}

// Draft generates a suggested subject and body for an outreach email.
func (s *DraftService) Draft(ctx context.Context, req *model.DraftRequest) (*model.DraftResponse, error) {
	if s.client == nil {
		return nil, ErrDraftUnavailable
	}
	if req.Model != "" && !s.supportsModel(req.Model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.Model)
	}

	brief := req.Brief
	if req.CampaignName != "" {
		brief = "Campaign: " + req.CampaignName + ". " + brief
	}
	if req.Tone != "" {
		brief += " Tone: " + req.Tone + "."
	}

	resp, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model: req.Model,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(draftPrompt, brief)},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		metrics.RecordDraft(req.Model, "error", 0, 0, 0)
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}

	metrics.RecordDraft(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	subject, body := splitDraft(resp.Content)
	return &model.DraftResponse{
		Subject: subject,
		Body:    body,
		Model:   resp.Model,
	}, nil
}

func (s *DraftService) supportsModel(name string) bool {
	for _, m := range s.client.Models() {
		if m == name {
			return true
		}
	}
	return false
}

// splitDraft separates the "Subject: ..." first line from the body. Content
// without the expected prefix becomes the body with an empty subject.
func splitDraft(content string) (subject, body string) {
	content = strings.TrimSpace(content)
	line, rest, found := strings.Cut(content, "\n")
	if !found {
		if after, ok := strings.CutPrefix(line, "Subject:"); ok {
			return strings.TrimSpace(after), ""
		}
		return "", line
	}

	if after, ok := strings.CutPrefix(line, "Subject:"); ok {
		return strings.TrimSpace(after), strings.TrimSpace(rest)
	}
	return "", content
}
