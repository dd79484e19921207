package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/internal/service"
	"github.com/brandreach/outreach-platform/pkg/logger"
)

// DraftHandler handles the draft assistant endpoint.
type DraftHandler struct {
	drafts *service.DraftService
	logger *logger.Logger
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(drafts *service.DraftService, log *logger.Logger) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		logger: log,
	}
}

// Draft handles POST /api/v1/outreach/draft
func (h *DraftHandler) Draft(w http.ResponseWriter, r *http.Request) {
	var req model.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Brief == "" {
		writeError(w, http.StatusBadRequest, "brief is required")
		return
	}

	resp, err := h.drafts.Draft(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDraftUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "draft assistant is not configured")
			return
		}
		if errors.Is(err, service.ErrUnknownModel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("draft generation failed")
		writeError(w, http.StatusBadGateway, "failed to generate draft")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
