package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/crm-dashboard/internal/dashboard"
	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/response"
)

type dashboardService interface {
	GetDashboard(ctx context.Context) (dto.DashboardResponse, error)
	AddWidget(ctx context.Context, req dashboard.BuildRequest) (dto.WidgetResponse, error)
	AddReferenceWidget(ctx context.Context, req dto.AddReferenceWidgetRequest) (dto.WidgetResponse, error)
	UpdateWidget(ctx context.Context, widgetID string, req dashboard.BuildRequest) (dto.WidgetResponse, error)
	RemoveWidget(ctx context.Context, widgetID string) error
	UpdateLayout(ctx context.Context, req dto.UpdateLayoutRequest) (dto.LayoutResponse, error)
	Save(ctx context.Context) (dto.SaveResponse, error)
	SaveAs(ctx context.Context, req dto.SaveAsRequest) (dto.SaveAsResponse, error)
	Folders(ctx context.Context) []models.Folder
	ListViews(ctx context.Context, folderID string) ([]*models.View, error)
}

type dashboardHandlers struct {
	ResponseHandler response.ResponseHandler
	DashboardSvc    dashboardService
}

func NewDashboardHandlers(deps *Deps) *dashboardHandlers {
	return &dashboardHandlers{
		ResponseHandler: deps.ResponseHandler,
		DashboardSvc:    deps.DashboardSvc,
	}
}

func (h *dashboardHandlers) DashboardRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetDashboard)
	r.Put("/layout", h.UpdateLayout)
	r.Post("/widgets", h.AddWidget)
	r.Post("/widgets/reference", h.AddReferenceWidget) // must be before /{widgetId}
	r.Put("/widgets/{widgetId}", h.UpdateWidget)
	r.Delete("/widgets/{widgetId}", h.RemoveWidget)
	r.Post("/save", h.Save)
	r.Post("/save-as", h.SaveAs)
	r.Get("/folders", h.Folders)
	r.Get("/views", h.ListViews)
	return r
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewValidationError("invalid request body")
	}
	return nil
}

func (h *dashboardHandlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	resp, err := h.DashboardSvc.GetDashboard(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLayoutRequest
	if err := decode(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	resp, err := h.DashboardSvc.UpdateLayout(r.Context(), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) AddWidget(w http.ResponseWriter, r *http.Request) {
	var req dashboard.BuildRequest
	if err := decode(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	resp, err := h.DashboardSvc.AddWidget(r.Context(), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *dashboardHandlers) AddReferenceWidget(w http.ResponseWriter, r *http.Request) {
	var req dto.AddReferenceWidgetRequest
	if err := decode(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	resp, err := h.DashboardSvc.AddReferenceWidget(r.Context(), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *dashboardHandlers) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetId")
	var req dashboard.BuildRequest
	if err := decode(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	resp, err := h.DashboardSvc.UpdateWidget(r.Context(), widgetID, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetId")
	if err := h.DashboardSvc.RemoveWidget(r.Context(), widgetID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *dashboardHandlers) Save(w http.ResponseWriter, r *http.Request) {
	resp, err := h.DashboardSvc.Save(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) SaveAs(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveAsRequest
	if err := decode(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	resp, err := h.DashboardSvc.SaveAs(r.Context(), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *dashboardHandlers) Folders(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, h.DashboardSvc.Folders(r.Context()))
}

func (h *dashboardHandlers) ListViews(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folderId")
	if folderID == "" {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("folderId is required"))
		return
	}
	views, err := h.DashboardSvc.ListViews(r.Context(), folderID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, views)
}
