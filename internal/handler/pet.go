package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/petpals/internal/auth"
	"github.com/dukerupert/petpals/internal/engine"
	"github.com/dukerupert/petpals/internal/model"
)

// PetHandler serves the engine's commands and queries as JSON.
type PetHandler struct {
	engines *engine.Registry
	logger  *slog.Logger
}

func NewPetHandler(engines *engine.Registry, logger *slog.Logger) *PetHandler {
	return &PetHandler{engines: engines, logger: logger}
}

func (h *PetHandler) engine(r *http.Request) *engine.Engine {
	return h.engines.For(r.Context(), auth.UserID(r.Context()))
}

type adoptRequest struct {
	Species string `json:"species" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=64"`
	Cost    int64  `json:"cost" validate:"gte=0"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type earnRequest struct {
	Amount   int64  `json:"amount" validate:"gte=0,lte=10000"`
	Activity string `json:"activity" validate:"required"`
}

type purchaseRequest struct {
	ItemID string `json:"item_id" validate:"required,max=64,excludesall=/"`
	Cost   int64  `json:"cost" validate:"gte=0"`
}

func (h *PetHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.engine(r).User(r.Context())
	if err != nil {
		writeError(w, h.logger, "load user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *PetHandler) List(w http.ResponseWriter, r *http.Request) {
	pets, err := h.engine(r).Pets(r.Context())
	if err != nil {
		writeError(w, h.logger, "list pets", err)
		return
	}
	writeJSON(w, http.StatusOK, pets)
}

func (h *PetHandler) Adopt(w http.ResponseWriter, r *http.Request) {
	var req adoptRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	pv, err := h.engine(r).AdoptPet(r.Context(), strings.TrimSpace(req.Species), strings.TrimSpace(req.Name), req.Cost)
	if err != nil {
		writeError(w, h.logger, "adopt pet", err)
		return
	}
	writeJSON(w, http.StatusCreated, pv)
}

func (h *PetHandler) Get(w http.ResponseWriter, r *http.Request) {
	pv, err := h.engine(r).Pet(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get pet", err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (h *PetHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	pv, err := h.engine(r).RenamePet(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, h.logger, "rename pet", err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (h *PetHandler) Mood(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine(r).Mood(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get mood", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *PetHandler) Quest(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine(r).QuestDisplay(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get quest", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *PetHandler) Sleep(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine(r).SleepState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get sleep state", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *PetHandler) PetLevel(w http.ResponseWriter, r *http.Request) {
	lvl, err := h.engine(r).PetLevel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "get pet level", err)
		return
	}
	writeJSON(w, http.StatusOK, lvl)
}

func (h *PetHandler) UserLevel(w http.ResponseWriter, r *http.Request) {
	lvl, err := h.engine(r).UserLevel(r.Context())
	if err != nil {
		writeError(w, h.logger, "get level", err)
		return
	}
	writeJSON(w, http.StatusOK, lvl)
}

func (h *PetHandler) Feed(w http.ResponseWriter, r *http.Request) {
	pv, err := h.engine(r).Feed(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "feed pet", err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (h *PetHandler) Earn(w http.ResponseWriter, r *http.Request) {
	var req earnRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.engine(r).EarnAdventureCoins(r.Context(), r.PathValue("id"), req.Amount, model.Activity(req.Activity))
	if err != nil {
		writeError(w, h.logger, "earn coins", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PetHandler) Interact(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine(r).InteractSleep(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "interact", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PetHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.engine(r).Purchase(r.Context(), req.ItemID, req.Cost)
	if err != nil {
		writeError(w, h.logger, "purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PetHandler) Streak(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine(r).Streak(r.Context())
	if err != nil {
		writeError(w, h.logger, "get streak", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *PetHandler) Hearts(w http.ResponseWriter, r *http.Request) {
	grid, err := h.engine(r).WeeklyHearts(r.Context(), r.URL.Query().Get("week"))
	if err != nil {
		writeError(w, h.logger, "get weekly hearts", err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (h *PetHandler) Period(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine(r).Period(r.Context())
	if err != nil {
		writeError(w, h.logger, "get period", err)
		return
	}
	if p == nil {
		writeMessage(w, http.StatusNotFound, "no active period")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
