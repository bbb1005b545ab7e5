package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"outpost-server/internal/crafting"
	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
)

type CraftingHandler struct {
	service *crafting.Service
}

func NewCraftingHandler(service *crafting.Service) *CraftingHandler {
	return &CraftingHandler{service: service}
}

type craftRequest struct {
	ActorID    string `json:"actor_id"`
	ArtifactID int    `json:"artifact_id"`
}

func (h *CraftingHandler) Craft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "crafting_craft")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req craftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ActorID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id is required"))
		return
	}

	item, err := h.service.Craft(ctx, req.ActorID, req.ArtifactID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, item)
}

type fuseRequest struct {
	ActorID     string `json:"actor_id"`
	ArtifactID1 int    `json:"artifact_id_1"`
	ArtifactID2 int    `json:"artifact_id_2"`
}

func (h *CraftingHandler) Fuse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "crafting_fuse")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req fuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ActorID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id is required"))
		return
	}

	result, err := h.service.Fuse(ctx, req.ActorID, req.ArtifactID1, req.ArtifactID2)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *CraftingHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "crafting_inventory")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actorID := r.URL.Query().Get("actor_id")
	if actorID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id is required"))
		return
	}

	items, err := h.service.Inventory(ctx, actorID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if items == nil {
		items = []crafting.InventoryItem{}
	}

	response.Success(w, http.StatusOK, items)
}
