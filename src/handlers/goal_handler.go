package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/services"
	"github.com/DavidDevlo/FINTide/src/utils"
)

type GoalHandler struct {
	service *services.GoalService
}

func NewGoalHandler(service *services.GoalService) *GoalHandler {
	return &GoalHandler{service: service}
}

func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title              string `json:"title"`
		TargetAmountCents  int64  `json:"targetAmountCents"`
		CurrentAmountCents int64  `json:"currentAmountCents"`
		ColorHex           string `json:"colorHex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	goal := &model.Goal{
		Title:              payload.Title,
		TargetAmountCents:  payload.TargetAmountCents,
		CurrentAmountCents: payload.CurrentAmountCents,
		ColorHex:           payload.ColorHex,
	}
	if err := h.service.Create(goal); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, goal, http.StatusCreated)
}

func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		goals []model.Goal
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		goals, err = h.service.Search(q)
	} else {
		goals, err = h.service.List()
	}
	if err != nil {
		logger.L.Error("Failed to list goals", "error", err)
		utils.SendJSONError(w, "Failed to list goals", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, goals, http.StatusOK)
}

func (h *GoalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid goal id", http.StatusBadRequest)
		return
	}
	goal, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load goal", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load goal", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, goal, http.StatusOK)
}

func (h *GoalHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid goal id", http.StatusBadRequest)
		return
	}
	var payload struct {
		Title    string `json:"title"`
		ColorHex string `json:"colorHex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.Rename(id, payload.Title, payload.ColorHex); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Goal updated"}, http.StatusOK)
}

// HandleSetAmount replaces the accumulated progress.
func (h *GoalHandler) HandleSetAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid goal id", http.StatusBadRequest)
		return
	}
	var payload struct {
		AmountCents int64 `json:"amountCents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.SetAmount(id, payload.AmountCents); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Amount updated"}, http.StatusOK)
}

// HandleAddAmount applies a delta (possibly negative) to the progress.
func (h *GoalHandler) HandleAddAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid goal id", http.StatusBadRequest)
		return
	}
	var payload struct {
		DeltaCents int64 `json:"deltaCents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.AddAmount(id, payload.DeltaCents); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	goal, err := h.service.Get(id)
	if err != nil {
		logger.L.Error("Failed to reload goal after contribution", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load goal", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, goal, http.StatusOK)
}

func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid goal id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(id); err != nil {
		logger.L.Error("Failed to delete goal", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete goal", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Goal deleted"}, http.StatusOK)
}
