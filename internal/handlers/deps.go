package handlers

import (
	"log/slog"

	"github.com/GregMSThompson/crm-dashboard/internal/middleware"
	"github.com/GregMSThompson/crm-dashboard/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	Auth            *middleware.Middleware
	DashboardSvc    dashboardService
	InsightsSvc     insightsService
	SchemaSvc       schemaService
}
