package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
	"outpost-server/internal/world"
)

type WorldHandler struct {
	service *world.Service
}

func NewWorldHandler(service *world.Service) *WorldHandler {
	return &WorldHandler{service: service}
}

func (h *WorldHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "world_summary")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	populationID := r.PathValue("id")
	if populationID == "" {
		response.Error(w, r, logger, errors.Validation("population ID is required"))
		return
	}

	settlements, err := h.service.Summary(ctx, populationID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if settlements == nil {
		settlements = []world.Settlement{}
	}

	response.Success(w, http.StatusOK, settlements)
}

type createSettlementRequest struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func (h *WorldHandler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "world_create_settlement")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	populationID := r.PathValue("id")
	if populationID == "" {
		response.Error(w, r, logger, errors.Validation("population ID is required"))
		return
	}

	var req createSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.Name == "" {
		response.Error(w, r, logger, errors.Validation("name is required"))
		return
	}

	settlement, err := h.service.CreateSettlement(ctx, populationID, req.Name, req.Level)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, settlement)
}
