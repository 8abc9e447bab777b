package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/services"
	"github.com/DavidDevlo/FINTide/src/utils"
)

type MovementHandler struct {
	service *services.MovementService
}

func NewMovementHandler(service *services.MovementService) *MovementHandler {
	return &MovementHandler{service: service}
}

type movementPayload struct {
	Title          string `json:"title"`
	Type           string `json:"type"`
	AmountCents    int64  `json:"amountCents"`
	Date           int64  `json:"date"`
	StripeColorHex string `json:"stripeColorHex"`
}

func (h *MovementHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	mov := &model.Movement{
		Title:          payload.Title,
		Type:           payload.Type,
		AmountCents:    payload.AmountCents,
		Date:           payload.Date,
		StripeColorHex: payload.StripeColorHex,
	}
	if err := h.service.Create(mov); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, mov, http.StatusCreated)
}

// HandleList supports ?q= search, ?type= filtering, and ?from=&to= epoch-ms
// ranges; with no parameters it returns the whole active ledger.
func (h *MovementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		movs []model.Movement
		err  error
	)
	switch {
	case query.Get("q") != "":
		movs, err = h.service.Search(query.Get("q"))
	case query.Get("type") != "":
		movs, err = h.service.ListByType(query.Get("type"))
	case query.Get("from") != "" || query.Get("to") != "":
		var from, to int64
		to = int64(1) << 62
		if v := query.Get("from"); v != "" {
			if from, err = strconv.ParseInt(v, 10, 64); err != nil {
				utils.SendJSONError(w, "from must be epoch milliseconds", http.StatusBadRequest)
				return
			}
		}
		if v := query.Get("to"); v != "" {
			if to, err = strconv.ParseInt(v, 10, 64); err != nil {
				utils.SendJSONError(w, "to must be epoch milliseconds", http.StatusBadRequest)
				return
			}
		}
		movs, err = h.service.ListBetween(from, to)
	default:
		movs, err = h.service.List()
	}
	if err != nil {
		logger.L.Error("Failed to list movements", "error", err)
		utils.SendJSONError(w, "Failed to list movements", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, movs, http.StatusOK)
}

func (h *MovementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid movement id", http.StatusBadRequest)
		return
	}
	mov, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Movement not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load movement", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load movement", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, mov, http.StatusOK)
}

func (h *MovementHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid movement id", http.StatusBadRequest)
		return
	}
	var payload movementPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	err = h.service.Update(id, payload.Title, payload.Type, payload.AmountCents, payload.Date, payload.StripeColorHex)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Movement not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	mov, err := h.service.Get(id)
	if err != nil {
		logger.L.Error("Failed to reload movement after update", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load movement", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, mov, http.StatusOK)
}

// HandleSetAmount changes only the amount of one entry.
func (h *MovementHandler) HandleSetAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid movement id", http.StatusBadRequest)
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
			utils.SendJSONError(w, "Movement not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Amount updated"}, http.StatusOK)
}

func (h *MovementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid movement id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(id); err != nil {
		logger.L.Error("Failed to delete movement", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete movement", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Movement deleted"}, http.StatusOK)
}
