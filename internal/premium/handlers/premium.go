package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"outpost-server/internal/premium"
	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
)

type PremiumHandler struct {
	service *premium.Service
}

func NewPremiumHandler(service *premium.Service) *PremiumHandler {
	return &PremiumHandler{service: service}
}

type grantRequest struct {
	Kind         string `json:"kind"`
	SubjectID    string `json:"subject_id"`
	DurationDays int    `json:"duration_days"`
	GrantedBy    string `json:"granted_by"`
	Reason       string `json:"reason"`
}

func (h *PremiumHandler) Grant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "premium_grant")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.DurationDays < 0 {
		response.Error(w, r, logger, errors.Validation("duration_days must not be negative"))
		return
	}

	// duration_days of zero (or omitted) grants a permanent entitlement.
	var expiresAt *time.Time
	if req.DurationDays > 0 {
		t := time.Now().Add(time.Duration(req.DurationDays) * 24 * time.Hour)
		expiresAt = &t
	}

	grant, err := h.service.Grant(ctx, premium.Kind(req.Kind), req.SubjectID, expiresAt, req.GrantedBy, req.Reason)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, grant)
}

type revokeRequest struct {
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id"`
}

func (h *PremiumHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "premium_revoke")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	deleted, err := h.service.Revoke(ctx, premium.Kind(req.Kind), req.SubjectID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]int64{"revoked": deleted})
}

func (h *PremiumHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "premium_list")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		response.Error(w, r, logger, errors.Validation("subject_id is required"))
		return
	}

	grants, err := h.service.ListBySubject(ctx, subjectID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if grants == nil {
		grants = []premium.Grant{}
	}

	response.Success(w, http.StatusOK, grants)
}
