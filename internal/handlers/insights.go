package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/response"
)

type insightsService interface {
	Insights(ctx context.Context, widgetID string, req dto.InsightsRequest) (dto.InsightsResponse, error)
}

type insightsHandlers struct {
	ResponseHandler response.ResponseHandler
	InsightsSvc     insightsService
}

func NewInsightsHandlers(deps *Deps) *insightsHandlers {
	return &insightsHandlers{
		ResponseHandler: deps.ResponseHandler,
		InsightsSvc:     deps.InsightsSvc,
	}
}

// Insights serves POST /dashboard/widgets/{widgetId}/insights. The body is
// optional.
func (h *insightsHandlers) Insights(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetId")

	var req dto.InsightsRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.ResponseHandler.HandleError(w, r, err)
			return
		}
	}

	resp, err := h.InsightsSvc.Insights(r.Context(), widgetID, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}
