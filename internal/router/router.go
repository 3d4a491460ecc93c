package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/crm-dashboard/internal/handlers"
	"github.com/GregMSThompson/crm-dashboard/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	dsh := handlers.NewDashboardHandlers(deps)
	ish := handlers.NewInsightsHandlers(deps)
	sch := handlers.NewSchemaHandlers(deps)

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth.FirebaseAuth)
		}

		dashboard := dsh.DashboardRoutes()
		if deps.InsightsSvc != nil {
			dashboard.Post("/widgets/{widgetId}/insights", ish.Insights)
		}

		r.Mount("/dashboard", dashboard)
		r.Mount("/schema", sch.SchemaRoutes())
	})
	return r
}
