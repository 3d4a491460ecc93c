package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/GregMSThompson/crm-dashboard/internal/bootstrap"
	"github.com/GregMSThompson/crm-dashboard/internal/config"
	"github.com/GregMSThompson/crm-dashboard/internal/handlers"
	"github.com/GregMSThompson/crm-dashboard/internal/middleware"
	"github.com/GregMSThompson/crm-dashboard/internal/response"
	"github.com/GregMSThompson/crm-dashboard/internal/router"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
	"github.com/GregMSThompson/crm-dashboard/internal/services"
	"github.com/GregMSThompson/crm-dashboard/internal/store"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// config
	cfg, err := config.New()
	exitOnError("config load failed", err, logger.New("info", logger.NewCloudRunHandler))

	// bootstrap
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// stores
	var (
		wstore services.WidgetStore
		vstore services.ViewStore
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		wstore = store.NewPostgresWidgetStore(bs.Postgres)
		vstore = store.NewPostgresViewStore(bs.Postgres)
	default:
		wstore = store.NewWidgetStore(bs.Firestore)
		vstore = store.NewViewStore(bs.Firestore)
	}

	// services
	dserv := services.NewDashboardService(wstore, vstore, bs.BI, schema.DefaultCatalog())

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Auth = middleware.NewMiddleware(bs.Firebase, cfg.AuthDisabled)
	deps.DashboardSvc = dserv
	deps.SchemaSvc = dserv
	if bs.VertexAdapter != nil {
		deps.InsightsSvc = services.NewInsightsService(bs.VertexAdapter, dserv)
	}

	// router
	r := router.NewRouter(deps)
	bs.Log.Info("listening", "port", cfg.Port, "store", cfg.StoreBackend)
	err = http.ListenAndServe(":"+cfg.Port, r)
	exitOnError("server start failed", err, bs.Log)
}
