package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"outpost-server/internal/population"
	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
)

type PopulationHandler struct {
	service *population.Service
}

func NewPopulationHandler(service *population.Service) *PopulationHandler {
	return &PopulationHandler{service: service}
}

type registerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *PopulationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "population_register")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ID == "" {
		response.Error(w, r, logger, errors.Validation("id is required"))
		return
	}

	pop, err := h.service.Register(ctx, req.ID, req.Name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, pop)
}

type bindChannelRequest struct {
	ChannelRef string `json:"channel_ref"`
}

func (h *PopulationHandler) BindSpawnChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "population_bind_spawn_channel")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	populationID := r.PathValue("id")
	if populationID == "" {
		response.Error(w, r, logger, errors.Validation("population ID is required"))
		return
	}

	var req bindChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ChannelRef == "" {
		response.Error(w, r, logger, errors.Validation("channel_ref is required"))
		return
	}

	if err := h.service.BindSpawnChannel(ctx, populationID, req.ChannelRef); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"channel_ref": req.ChannelRef})
}
