package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
	"outpost-server/internal/spawn"
)

type SpawnHandler struct {
	service *spawn.Service
}

func NewSpawnHandler(service *spawn.Service) *SpawnHandler {
	return &SpawnHandler{service: service}
}

type claimRequest struct {
	ActorID    string `json:"actor_id"`
	ChannelRef string `json:"channel_ref"`
	Slot       int    `json:"slot"`
}

func (h *SpawnHandler) Claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "spawn_claim")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ActorID == "" || req.ChannelRef == "" {
		response.Error(w, r, logger, errors.Validation("actor_id and channel_ref are required"))
		return
	}

	event, err := h.service.Claim(ctx, req.ActorID, req.ChannelRef, req.Slot)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, event)
}

type triggerRequest struct {
	ActorID      string `json:"actor_id"`
	PopulationID string `json:"population_id"`
}

func (h *SpawnHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "spawn_trigger")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ActorID == "" || req.PopulationID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id and population_id are required"))
		return
	}

	event, err := h.service.TriggerSpawn(ctx, req.PopulationID, req.ActorID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, event)
}
