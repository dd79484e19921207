package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brandreach/outreach-platform/internal/middleware"
	"github.com/brandreach/outreach-platform/internal/model"
	"github.com/brandreach/outreach-platform/internal/service"
	"github.com/brandreach/outreach-platform/pkg/logger"
)

// OutreachHandler handles compose and eligibility endpoints.
type OutreachHandler struct {
	outreach *service.OutreachService
	logger   *logger.Logger
}

// NewOutreachHandler creates a new outreach handler.
func NewOutreachHandler(svc *service.OutreachService, log *logger.Logger) *OutreachHandler {
	return &OutreachHandler{
		outreach: svc,
		logger:   log,
	}
}

// Compose handles POST /api/v1/outreach
func (h *OutreachHandler) Compose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brandID := middleware.GetBrandID(ctx)

	var req model.ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateRecipients(req.InfluencerIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateSubject(req.Subject); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateBody(req.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.outreach.Compose(ctx, brandID, &req)
	if err != nil {
		if errors.Is(err, service.ErrAllRecipientsBlocked) {
			// The first blocked reason is the dominant error; the full
			// per-recipient breakdown rides along.
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   resp.Skipped[0].Eligibility.Reason,
				"skipped": resp.Skipped,
			})
			return
		}
		if errors.Is(err, service.ErrNoRecipients) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("compose failed")
		writeError(w, http.StatusInternalServerError, "failed to send outreach")
		return
	}

	// Partial success is expected behavior: sends to allowed recipients
	// proceed and skipped/failed recipients are reported individually.
	writeJSON(w, http.StatusOK, resp)
}

// Eligibility handles GET /api/v1/influencers/:id/eligibility
func (h *OutreachHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	brandID := middleware.GetBrandID(ctx)
	influencerID := chi.URLParam(r, "id")

	if err := middleware.ValidateInfluencerID(influencerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.outreach.Eligibility(ctx, brandID, influencerID))
}

// RecordReply handles POST /api/v1/replies (relay webhook).
func (h *OutreachHandler) RecordReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.RecordReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.BrandID == "" {
		writeError(w, http.StatusBadRequest, "brand_id is required")
		return
	}
	if err := middleware.ValidateInfluencerID(req.InfluencerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateBody(req.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.outreach.RecordReply(ctx, &req)
	if err != nil {
		h.logger.Error("failed to record reply")
		writeError(w, http.StatusInternalServerError, "failed to record reply")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
