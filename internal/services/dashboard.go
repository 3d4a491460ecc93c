package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GregMSThompson/crm-dashboard/internal/codec"
	"github.com/GregMSThompson/crm-dashboard/internal/dashboard"
	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

// WidgetStore persists the dashboard as a set of widget records.
type WidgetStore interface {
	ReplaceAll(ctx context.Context, records []models.WidgetRecord) error
	List(ctx context.Context) ([]models.WidgetRecord, error)
}

type ViewStore interface {
	SaveView(ctx context.Context, v *models.View) error
	ListViews(ctx context.Context, folderID string) ([]*models.View, error)
}

// biClient verifies reference widgets against the BI platform.
type biClient interface {
	GetWidget(ctx context.Context, dashboardOid, widgetOid string) (dto.BIWidget, error)
}

// DefaultFolders are the Save As destinations.
var DefaultFolders = []models.Folder{
	{ID: "folder-1", Name: "My Saved CRM Views", Color: "#1DE4EB"},
	{ID: "folder-2", Name: "Team CRM Views", Color: "#F2B900"},
}

// dashboardService owns the one dashboard state. mu guards state and the
// loaded flag; saveMu keeps one save in flight.
type dashboardService struct {
	store      WidgetStore
	views      ViewStore
	bi         biClient
	catalog    *schema.Catalog
	builder    *dashboard.Builder
	rehydrator *codec.Rehydrator
	validate   *validator.Validate
	folders    []models.Folder
	clockNow   func() time.Time
	newID      func() string

	mu       sync.Mutex
	state    dashboard.State
	loaded   bool
	warnings []codec.Warning

	saveMu sync.Mutex
}

// NewDashboardService wires the dashboard controller. bi may be nil, in
// which case reference widgets are accepted unverified.
func NewDashboardService(store WidgetStore, views ViewStore, bi biClient, catalog *schema.Catalog) *dashboardService {
	return &dashboardService{
		store:      store,
		views:      views,
		bi:         bi,
		catalog:    catalog,
		builder:    dashboard.NewBuilder(catalog.Default()),
		rehydrator: codec.NewRehydrator(catalog),
		validate:   validator.New(),
		folders:    DefaultFolders,
		clockNow:   time.Now,
		newID:      uuid.NewString,
		state:      dashboard.NewState(nil, nil),
	}
}

// --- Load ---

// GetDashboard loads the stored dashboard on first use. A failed load is
// logged and yields an empty dashboard; the next call retries.
func (s *dashboardService) GetDashboard(ctx context.Context) (dto.DashboardResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		logger.FromContext(ctx).Error("dashboard load failed", "error", err)
		return dto.DashboardResponse{
			Widgets: []*models.Widget{},
			Layout:  []models.LayoutItem{},
		}, nil
	}
	return dto.DashboardResponse{
		Widgets:  s.state.Widgets,
		Layout:   s.state.Layout,
		Warnings: s.warnings,
	}, nil
}

// ensureLoaded must be called with mu held.
func (s *dashboardService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	log := logger.FromContext(ctx)

	records, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	decoded := s.rehydrator.DecodeRecords(records)
	codec.LogWarnings(ctx, "dropped widget element on load", decoded.Warnings)

	s.state = dashboard.NewState(decoded.Widgets, decoded.Layout)
	s.warnings = decoded.Warnings
	s.loaded = true
	log.Info("dashboard loaded", "records", len(records), "widgets", len(s.state.Widgets), "warnings", len(decoded.Warnings))
	return nil
}

// mutate applies fn to the loaded state under mu.
func (s *dashboardService) mutate(ctx context.Context, fn func(dashboard.State) (dashboard.State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Widget returns one widget of the loaded dashboard.
func (s *dashboardService) Widget(ctx context.Context, widgetID string) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	w, ok := s.state.Widget(widgetID)
	if !ok {
		return nil, errs.NewNotFoundError("widget not found")
	}
	return w, nil
}

// --- Widgets ---

func (s *dashboardService) AddWidget(ctx context.Context, req dashboard.BuildRequest) (dto.WidgetResponse, error) {
	w, err := s.builder.BuildWithID(s.newID(), req)
	if err != nil {
		return dto.WidgetResponse{}, err
	}
	return s.add(ctx, w)
}

func (s *dashboardService) AddReferenceWidget(ctx context.Context, req dto.AddReferenceWidgetRequest) (dto.WidgetResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.WidgetResponse{}, errs.NewValidationError(err.Error())
	}

	title := strings.TrimSpace(req.Title)
	if s.bi != nil {
		remote, err := s.bi.GetWidget(ctx, req.DashboardOid, req.WidgetOid)
		if err != nil {
			return dto.WidgetResponse{}, err
		}
		if title == "" {
			title = remote.Title
		}
	}

	return s.add(ctx, &models.Widget{
		ID:           s.newID(),
		Title:        title,
		WidgetOid:    req.WidgetOid,
		DashboardOid: req.DashboardOid,
	})
}

func (s *dashboardService) add(ctx context.Context, w *models.Widget) (dto.WidgetResponse, error) {
	var layout models.LayoutItem
	err := s.mutate(ctx, func(st dashboard.State) (dashboard.State, error) {
		next := st.AddWidget(w)
		layout, _ = next.LayoutFor(w.ID)
		return next, nil
	})
	if err != nil {
		return dto.WidgetResponse{}, err
	}
	logger.FromContext(ctx).Info("widget added", "widget_id", w.ID, "reference", w.IsReference())
	return dto.WidgetResponse{Widget: w, Layout: &layout}, nil
}

// UpdateWidget rebuilds a built widget from the form, keeping its id and
// grid slot.
func (s *dashboardService) UpdateWidget(ctx context.Context, widgetID string, req dashboard.BuildRequest) (dto.WidgetResponse, error) {
	var resp dto.WidgetResponse
	err := s.mutate(ctx, func(st dashboard.State) (dashboard.State, error) {
		cur, ok := st.Widget(widgetID)
		if !ok {
			return st, errs.NewNotFoundError("widget not found")
		}
		if cur.IsReference() {
			return st, errs.NewValidationError("reference widgets cannot be edited")
		}
		w, err := s.builder.BuildWithID(widgetID, req)
		if err != nil {
			return st, err
		}
		next, _ := st.ReplaceWidget(w)
		layout, _ := next.LayoutFor(widgetID)
		resp = dto.WidgetResponse{Widget: w, Layout: &layout}
		return next, nil
	})
	return resp, err
}

func (s *dashboardService) RemoveWidget(ctx context.Context, widgetID string) error {
	return s.mutate(ctx, func(st dashboard.State) (dashboard.State, error) {
		if _, ok := st.Widget(widgetID); !ok {
			return st, errs.NewNotFoundError("widget not found")
		}
		return st.RemoveWidget(widgetID), nil
	})
}

func (s *dashboardService) UpdateLayout(ctx context.Context, req dto.UpdateLayoutRequest) (dto.LayoutResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.LayoutResponse{}, errs.NewValidationError(err.Error())
	}
	var resp dto.LayoutResponse
	err := s.mutate(ctx, func(st dashboard.State) (dashboard.State, error) {
		next := st.UpdateLayout(req.Layout)
		resp.Layout = next.Layout
		return next, nil
	})
	return resp, err
}

// --- Save ---

// snapshot encodes the current state into records in widget order.
func (s *dashboardService) snapshot(ctx context.Context) ([]models.WidgetRecord, []codec.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, nil, err
	}
	now := s.clockNow().UTC()
	records := make([]models.WidgetRecord, 0, len(s.state.Widgets))
	var warnings []codec.Warning
	for i, w := range s.state.Widgets {
		var layout *models.LayoutItem
		if l, ok := s.state.LayoutFor(w.ID); ok {
			layout = &l
		}
		rec, ws := codec.EncodeWidget(w, layout, i, now)
		records = append(records, rec)
		warnings = append(warnings, ws...)
	}
	return records, warnings, nil
}

// Save replaces the stored dashboard with the current state. Saves run one
// at a time; each is a single store transaction.
func (s *dashboardService) Save(ctx context.Context) (dto.SaveResponse, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	log := logger.FromContext(ctx)
	records, warnings, err := s.snapshot(ctx)
	if err != nil {
		log.Error("dashboard save failed", "error", err)
		return dto.SaveResponse{}, err
	}
	codec.LogWarnings(ctx, "dropped widget element on save", warnings)

	if err := s.store.ReplaceAll(ctx, records); err != nil {
		log.Error("dashboard save failed", "records", len(records), "error", err)
		return dto.SaveResponse{}, err
	}
	log.Info("dashboard saved", "records", len(records))
	return dto.SaveResponse{Saved: len(records), Warnings: warnings}, nil
}

// SaveAs stores the current state as a named view in a folder.
func (s *dashboardService) SaveAs(ctx context.Context, req dto.SaveAsRequest) (dto.SaveAsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.SaveAsResponse{}, errs.NewValidationError(err.Error())
	}
	if !s.hasFolder(req.FolderID) {
		return dto.SaveAsResponse{}, errs.NewNotFoundError("folder not found")
	}

	records, warnings, err := s.snapshot(ctx)
	if err != nil {
		return dto.SaveAsResponse{}, err
	}
	codec.LogWarnings(ctx, "dropped widget element on save as", warnings)

	v := &models.View{
		ViewID:    s.newID(),
		FolderID:  req.FolderID,
		Name:      strings.TrimSpace(req.Name),
		Theme:     req.Theme,
		Widgets:   records,
		CreatedAt: s.clockNow().UTC(),
	}
	if err := s.views.SaveView(ctx, v); err != nil {
		return dto.SaveAsResponse{}, err
	}
	logger.FromContext(ctx).Info("dashboard view saved", "view_id", v.ViewID, "folder_id", v.FolderID)
	return dto.SaveAsResponse{View: v, Warnings: warnings}, nil
}

func (s *dashboardService) hasFolder(id string) bool {
	for _, f := range s.folders {
		if f.ID == id {
			return true
		}
	}
	return false
}

// --- Lookups ---

func (s *dashboardService) Folders(_ context.Context) []models.Folder {
	return append([]models.Folder{}, s.folders...)
}

func (s *dashboardService) ListViews(ctx context.Context, folderID string) ([]*models.View, error) {
	if !s.hasFolder(folderID) {
		return nil, errs.NewNotFoundError("folder not found")
	}
	return s.views.ListViews(ctx, folderID)
}

// Schema lists the builder choices and every registered data source.
func (s *dashboardService) Schema(_ context.Context) dto.SchemaResponse {
	resp := dto.SchemaResponse{Builder: s.builder.Options()}
	for _, title := range s.catalog.Titles() {
		reg, _ := s.catalog.Lookup(title)
		resp.DataSources = append(resp.DataSources, dto.DataSourceSchema{
			DataSource: reg.DataSource(),
			Dimensions: reg.Dimensions(),
		})
	}
	return resp
}
