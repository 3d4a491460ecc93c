package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/response"
)

type schemaService interface {
	Schema(ctx context.Context) dto.SchemaResponse
}

type schemaHandlers struct {
	ResponseHandler response.ResponseHandler
	SchemaSvc       schemaService
}

func NewSchemaHandlers(deps *Deps) *schemaHandlers {
	return &schemaHandlers{
		ResponseHandler: deps.ResponseHandler,
		SchemaSvc:       deps.SchemaSvc,
	}
}

func (h *schemaHandlers) SchemaRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSchema)
	return r
}

func (h *schemaHandlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, h.SchemaSvc.Schema(r.Context()))
}
