package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/services"
	"github.com/DavidDevlo/FINTide/src/utils"
)

type SubscriptionHandler struct {
	service *services.SubscriptionService
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type subscriptionPayload struct {
	Title          string `json:"title"`
	AmountCents    *int64 `json:"amountCents"`
	VariableAmount bool   `json:"variableAmount"`
	Frequency      string `json:"frequency"`
	IntervalDays   *int   `json:"intervalDays"`
	NextDueAt      int64  `json:"nextDueAt"`
	AutoPay        bool   `json:"autoPay"`
	ColorHex       string `json:"colorHex"`
}

func (h *SubscriptionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload subscriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub := &model.Subscription{
		Title:          payload.Title,
		AmountCents:    payload.AmountCents,
		VariableAmount: payload.VariableAmount,
		Frequency:      payload.Frequency,
		IntervalDays:   payload.IntervalDays,
		NextDueAt:      payload.NextDueAt,
		AutoPay:        payload.AutoPay,
		ColorHex:       payload.ColorHex,
	}
	if err := h.service.Create(sub); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, sub, http.StatusCreated)
}

func (h *SubscriptionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		subs, err := h.service.Search(q)
		if err != nil {
			logger.L.Error("Failed to search subscriptions", "error", err)
			utils.SendJSONError(w, "Failed to search subscriptions", http.StatusInternalServerError)
			return
		}
		utils.SendJSON(w, subs, http.StatusOK)
		return
	}
	subs, err := h.service.List()
	if err != nil {
		logger.L.Error("Failed to list subscriptions", "error", err)
		utils.SendJSONError(w, "Failed to list subscriptions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, subs, http.StatusOK)
}

func (h *SubscriptionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	sub, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load subscription", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, sub, http.StatusOK)
}

func (h *SubscriptionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	var payload subscriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	err = h.service.Update(id, payload.Title, payload.AmountCents, payload.VariableAmount,
		payload.Frequency, payload.IntervalDays, payload.NextDueAt, payload.AutoPay, payload.ColorHex)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Subscription not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub, err := h.service.Get(id)
	if err != nil {
		logger.L.Error("Failed to reload subscription after update", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load subscription", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, sub, http.StatusOK)
}

// HandlePay records a payment. The body may carry an override amount and an
// explicit payment timestamp; both are optional.
func (h *SubscriptionHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	var payload struct {
		AmountCents *int64 `json:"amountCents"`
		PaidAt      *int64 `json:"paidAt"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	paidAt := time.Now().UnixMilli()
	if payload.PaidAt != nil {
		paidAt = *payload.PaidAt
	}

	sub, err := h.service.MarkPaid(id, payload.AmountCents, paidAt)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			utils.SendJSONError(w, "Subscription not found", http.StatusNotFound)
		case errors.Is(err, services.ErrAmountRequired):
			utils.SendJSONError(w, "Amount required for variable-amount subscription", http.StatusBadRequest)
		case errors.Is(err, services.ErrNegativeAmount):
			utils.SendJSONError(w, "Amount must not be negative", http.StatusBadRequest)
		default:
			logger.L.Error("Failed to record payment", "id", id, "error", err)
			utils.SendJSONError(w, "Failed to record payment", http.StatusInternalServerError)
		}
		return
	}
	utils.SendJSON(w, sub, http.StatusOK)
}

func (h *SubscriptionHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	if err := h.service.Cancel(id); err != nil {
		logger.L.Error("Failed to cancel subscription", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to cancel subscription", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Subscription cancelled"}, http.StatusOK)
}

func (h *SubscriptionHandler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	if err := h.service.Reactivate(id); err != nil {
		logger.L.Error("Failed to reactivate subscription", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to reactivate subscription", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Subscription reactivated"}, http.StatusOK)
}

func (h *SubscriptionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(id); err != nil {
		logger.L.Error("Failed to delete subscription", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete subscription", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Subscription deleted"}, http.StatusOK)
}

func (h *SubscriptionHandler) HandleDueSoon(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			utils.SendJSONError(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		windowDays = parsed
	}
	subs, err := h.service.DueSoon(windowDays)
	if err != nil {
		logger.L.Error("Failed to list due subscriptions", "error", err)
		utils.SendJSONError(w, "Failed to list due subscriptions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, subs, http.StatusOK)
}
