package handlers

import (
	"net/http"

	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/services"
	"github.com/DavidDevlo/FINTide/src/utils"
)

type SummaryHandler struct {
	service *services.SummaryService
}

func NewSummaryHandler(service *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// HandleGetSummary serves the dashboard rollup with an ETag so unchanged
// summaries cost the client nothing.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary()
	if err != nil {
		logger.L.Error("Failed to compute summary", "error", err)
		utils.SendJSONError(w, "Failed to compute summary", http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(summary)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.SendJSON(w, summary, http.StatusOK)
}
