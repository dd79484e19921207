package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brandreach/outreach-platform/internal/llm"
	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/internal/service"
	"github.com/brandreach/outreach-platform/pkg/logger"
)

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "Subject: Hi\n\nBody.", Model: req.Model}, nil
}

func (stubLLM) Name() string     { return "stub" }
func (stubLLM) Models() []string { return []string{"stub-small"} }

func postDraft(t *testing.T, h *DraftHandler, req *model.DraftRequest) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	rec := httptest.NewRecorder()
	h.Draft(rec, httptest.NewRequest(http.MethodPost, "/api/v1/outreach/draft", &buf))
	return rec
}

func TestDraftRejectsUnknownModel(t *testing.T) {
	log := &logger.Logger{Logger: zap.NewNop()}
	h := NewDraftHandler(service.NewDraftService(stubLLM{}, log), log)

	rec := postDraft(t, h, &model.DraftRequest{Brief: "fitness", Model: "gpt-99"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "gpt-99")

	ok := postDraft(t, h, &model.DraftRequest{Brief: "fitness", Model: "stub-small"})
	require.Equal(t, http.StatusOK, ok.Code)
}
