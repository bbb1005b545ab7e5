package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"outpost-server/internal/battle"
	"outpost-server/internal/shared/errors"
	"outpost-server/internal/shared/response"
)

type BattleHandler struct {
	service *battle.Service
}

func NewBattleHandler(service *battle.Service) *BattleHandler {
	return &BattleHandler{service: service}
}

type createBattleRequest struct {
	Kind         string `json:"kind"`
	PopulationID string `json:"population_id"`
	ChallengerID string `json:"challenger_id"`
	OpponentRef  string `json:"opponent_ref"`
}

func (h *BattleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "battle_create")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.PopulationID == "" || req.ChallengerID == "" {
		response.Error(w, r, logger, errors.Validation("population_id and challenger_id are required"))
		return
	}

	var (
		created *battle.Battle
		err     error
	)

	switch battle.Kind(req.Kind) {
	case battle.KindPvE:
		created, err = h.service.CreatePvE(ctx, req.PopulationID, req.ChallengerID)
	case battle.KindPvP:
		created, err = h.service.CreatePvP(ctx, req.PopulationID, req.ChallengerID, req.OpponentRef)
	default:
		response.Error(w, r, logger, errors.Validationf("unknown battle kind %q", req.Kind))
		return
	}

	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

type resolveActionRequest struct {
	ActorID string `json:"actor_id"`
	Action  string `json:"action"`
}

func (h *BattleHandler) ResolveAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "battle_resolve_action")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	battleID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid battle ID format", err))
		return
	}

	var req resolveActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if req.ActorID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id is required"))
		return
	}

	action, ok := battle.ParseAction(req.Action)
	if !ok {
		response.Error(w, r, logger, errors.Validationf("unknown action %q", req.Action))
		return
	}

	entry, err := h.service.ResolveAction(ctx, battleID, req.ActorID, action)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, entry)
}

func (h *BattleHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "battle_log")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	battleID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid battle ID format", err))
		return
	}

	entries, err := h.service.GetLog(ctx, battleID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if entries == nil {
		entries = []battle.LogEntry{}
	}

	response.Success(w, http.StatusOK, entries)
}

func (h *BattleHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "battle_recent")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	actorID := r.URL.Query().Get("actor_id")
	if actorID == "" {
		response.Error(w, r, logger, errors.Validation("actor_id is required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	battles, err := h.service.RecentByActor(ctx, actorID, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if battles == nil {
		battles = []battle.Battle{}
	}

	response.Success(w, http.StatusOK, battles)
}
