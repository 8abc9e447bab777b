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

type CardHandler struct {
	service *services.CardService
}

func NewCardHandler(service *services.CardService) *CardHandler {
	return &CardHandler{service: service}
}

func (h *CardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		HolderName string  `json:"holderName"`
		Nickname   *string `json:"nickname"`
		Brand      string  `json:"brand"`
		PanLast4   string  `json:"panLast4"`
		ExpMonth   int     `json:"expMonth"`
		ExpYear    int     `json:"expYear"`
		ColorHex   string  `json:"colorHex"`
		CardType   string  `json:"cardType"`
		IsPhysical bool    `json:"isPhysical"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	card := &model.PaymentCard{
		HolderName: payload.HolderName,
		Nickname:   payload.Nickname,
		Brand:      payload.Brand,
		PanLast4:   payload.PanLast4,
		ExpMonth:   payload.ExpMonth,
		ExpYear:    payload.ExpYear,
		ColorHex:   payload.ColorHex,
		CardType:   payload.CardType,
		IsPhysical: payload.IsPhysical,
	}
	if err := h.service.Create(card); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, card, http.StatusCreated)
}

func (h *CardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		cards []model.PaymentCard
		err   error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		cards, err = h.service.Search(q)
	} else {
		cards, err = h.service.List()
	}
	if err != nil {
		logger.L.Error("Failed to list cards", "error", err)
		utils.SendJSONError(w, "Failed to list cards", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, cards, http.StatusOK)
}

func (h *CardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}
	card, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load card", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to load card", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, card, http.StatusOK)
}

// HandleSetMeta updates the nickname and color.
func (h *CardHandler) HandleSetMeta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}
	var payload struct {
		Nickname *string `json:"nickname"`
		ColorHex string  `json:"colorHex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.SetMeta(id, payload.Nickname, payload.ColorHex); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Card updated"}, http.StatusOK)
}

// HandleSetDefault makes the card the single default one.
func (h *CardHandler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}
	if err := h.service.SetDefault(id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			utils.SendJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to set default card", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to set default card", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Default card updated"}, http.StatusOK)
}

func (h *CardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(id); err != nil {
		logger.L.Error("Failed to delete card", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete card", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Card deleted"}, http.StatusOK)
}
