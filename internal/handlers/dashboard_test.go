package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GregMSThompson/crm-dashboard/internal/dashboard"
	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
)

// --- Stub service ---

type stubDashboardService struct {
	getResp   dto.DashboardResponse
	getErr    error
	widget    dto.WidgetResponse
	widgetErr error
	removeErr error
	layoutErr error
	saveResp  dto.SaveResponse
	saveErr   error
	saveAsErr error
	views     []*models.View
	viewsErr  error

	lastBuild     dashboard.BuildRequest
	lastReference dto.AddReferenceWidgetRequest
	lastWidgetID  string
	lastLayout    dto.UpdateLayoutRequest
	lastSaveAs    dto.SaveAsRequest
	lastFolderID  string
	saveCalls     int
}

func (s *stubDashboardService) GetDashboard(_ context.Context) (dto.DashboardResponse, error) {
	return s.getResp, s.getErr
}

func (s *stubDashboardService) AddWidget(_ context.Context, req dashboard.BuildRequest) (dto.WidgetResponse, error) {
	s.lastBuild = req
	return s.widget, s.widgetErr
}

func (s *stubDashboardService) AddReferenceWidget(_ context.Context, req dto.AddReferenceWidgetRequest) (dto.WidgetResponse, error) {
	s.lastReference = req
	return s.widget, s.widgetErr
}

func (s *stubDashboardService) UpdateWidget(_ context.Context, widgetID string, req dashboard.BuildRequest) (dto.WidgetResponse, error) {
	s.lastWidgetID = widgetID
	s.lastBuild = req
	return s.widget, s.widgetErr
}

func (s *stubDashboardService) RemoveWidget(_ context.Context, widgetID string) error {
	s.lastWidgetID = widgetID
	return s.removeErr
}

func (s *stubDashboardService) UpdateLayout(_ context.Context, req dto.UpdateLayoutRequest) (dto.LayoutResponse, error) {
	s.lastLayout = req
	return dto.LayoutResponse{Layout: req.Layout}, s.layoutErr
}

func (s *stubDashboardService) Save(_ context.Context) (dto.SaveResponse, error) {
	s.saveCalls++
	return s.saveResp, s.saveErr
}

func (s *stubDashboardService) SaveAs(_ context.Context, req dto.SaveAsRequest) (dto.SaveAsResponse, error) {
	s.lastSaveAs = req
	return dto.SaveAsResponse{View: &models.View{ViewID: "v1", FolderID: req.FolderID, Name: req.Name}}, s.saveAsErr
}

func (s *stubDashboardService) Folders(_ context.Context) []models.Folder {
	return []models.Folder{{ID: "folder-1", Name: "My Saved CRM Views"}}
}

func (s *stubDashboardService) ListViews(_ context.Context, folderID string) ([]*models.View, error) {
	s.lastFolderID = folderID
	return s.views, s.viewsErr
}

func newDashboardHandlers(svc *stubDashboardService) (*dashboardHandlers, *stubResponseHandler) {
	resp := &stubResponseHandler{}
	return NewDashboardHandlers(&Deps{ResponseHandler: resp, DashboardSvc: svc}), resp
}

// --- Tests ---

func TestGetDashboard_OK(t *testing.T) {
	svc := &stubDashboardService{
		getResp: dto.DashboardResponse{Widgets: []*models.Widget{{ID: "w1"}}},
	}
	h, resp := newDashboardHandlers(svc)

	rr := httptest.NewRecorder()
	h.GetDashboard(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected WriteSuccess with 200, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	got, ok := resp.writeSuccessData.(dto.DashboardResponse)
	if !ok || len(got.Widgets) != 1 {
		t.Fatalf("unexpected payload: %#v", resp.writeSuccessData)
	}
}

func TestGetDashboard_ServiceError(t *testing.T) {
	h, resp := newDashboardHandlers(&stubDashboardService{getErr: errors.New("db failure")})

	rr := httptest.NewRecorder()
	h.GetDashboard(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError to be called")
	}
}

func TestAddWidget_OK(t *testing.T) {
	svc := &stubDashboardService{widget: dto.WidgetResponse{Widget: &models.Widget{ID: "w1"}}}
	h, resp := newDashboardHandlers(svc)

	body := `{"chartType":"pie","measure":"Revenue","aggregation":"sum","category":"Country"}`
	rr := httptest.NewRecorder()
	h.AddWidget(rr, httptest.NewRequest(http.MethodPost, "/dashboard/widgets", strings.NewReader(body)))

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected WriteSuccess with 201, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	if svc.lastBuild.ChartType != "pie" || svc.lastBuild.Category != "Country" {
		t.Errorf("unexpected request passed to service: %+v", svc.lastBuild)
	}
}

func TestAddWidget_InvalidJSON(t *testing.T) {
	h, resp := newDashboardHandlers(&stubDashboardService{})

	rr := httptest.NewRecorder()
	h.AddWidget(rr, httptest.NewRequest(http.MethodPost, "/dashboard/widgets", strings.NewReader("not-json")))

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError on invalid JSON")
	}
	var verr *errs.ValidationError
	if !errors.As(resp.handleError, &verr) {
		t.Fatalf("expected ValidationError, got %T", resp.handleError)
	}
	if resp.writeSuccessCalled {
		t.Fatal("WriteSuccess should not be called on invalid JSON")
	}
}

func TestAddReferenceWidget_OK(t *testing.T) {
	svc := &stubDashboardService{widget: dto.WidgetResponse{Widget: &models.Widget{ID: "w2"}}}
	h, resp := newDashboardHandlers(svc)

	body := `{"widgetOid":"abc","dashboardOid":"def","title":"Pipeline"}`
	rr := httptest.NewRecorder()
	h.AddReferenceWidget(rr, httptest.NewRequest(http.MethodPost, "/dashboard/widgets/reference", strings.NewReader(body)))

	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.writeSuccessStatus)
	}
	if svc.lastReference.WidgetOid != "abc" || svc.lastReference.DashboardOid != "def" {
		t.Errorf("unexpected reference request: %+v", svc.lastReference)
	}
}

func TestUpdateWidget_OK(t *testing.T) {
	svc := &stubDashboardService{widget: dto.WidgetResponse{Widget: &models.Widget{ID: "w1"}}}
	h, resp := newDashboardHandlers(svc)

	req := httptest.NewRequest(http.MethodPut, "/dashboard/widgets/w1", strings.NewReader(`{"chartType":"line"}`))
	req = withChiParam(req, "widgetId", "w1")
	rr := httptest.NewRecorder()
	h.UpdateWidget(rr, req)

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected WriteSuccess 200, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	if svc.lastWidgetID != "w1" {
		t.Errorf("expected widgetId=w1, got %s", svc.lastWidgetID)
	}
}

func TestUpdateWidget_NotFound(t *testing.T) {
	h, resp := newDashboardHandlers(&stubDashboardService{widgetErr: errs.NewNotFoundError("widget not found")})

	req := httptest.NewRequest(http.MethodPut, "/dashboard/widgets/missing", strings.NewReader(`{}`))
	req = withChiParam(req, "widgetId", "missing")
	rr := httptest.NewRecorder()
	h.UpdateWidget(rr, req)

	var nf *errs.NotFoundError
	if !errors.As(resp.handleError, &nf) {
		t.Fatalf("expected NotFoundError, got %v", resp.handleError)
	}
}

func TestRemoveWidget_OK(t *testing.T) {
	svc := &stubDashboardService{}
	h, resp := newDashboardHandlers(svc)

	req := withChiParam(httptest.NewRequest(http.MethodDelete, "/dashboard/widgets/w1", nil), "widgetId", "w1")
	rr := httptest.NewRecorder()
	h.RemoveWidget(rr, req)

	if resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.writeSuccessStatus)
	}
	if svc.lastWidgetID != "w1" {
		t.Errorf("expected widgetId=w1, got %s", svc.lastWidgetID)
	}
}

func TestUpdateLayout_OK(t *testing.T) {
	svc := &stubDashboardService{}
	h, resp := newDashboardHandlers(svc)

	body := `{"layout":[{"i":"w1","x":6,"y":0,"w":6,"h":4}]}`
	rr := httptest.NewRecorder()
	h.UpdateLayout(rr, httptest.NewRequest(http.MethodPut, "/dashboard/layout", strings.NewReader(body)))

	if resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.writeSuccessStatus)
	}
	if len(svc.lastLayout.Layout) != 1 || svc.lastLayout.Layout[0].X != 6 {
		t.Errorf("unexpected layout passed to service: %+v", svc.lastLayout)
	}
}

func TestSave_OK(t *testing.T) {
	svc := &stubDashboardService{saveResp: dto.SaveResponse{Saved: 3}}
	h, resp := newDashboardHandlers(svc)

	rr := httptest.NewRecorder()
	h.Save(rr, httptest.NewRequest(http.MethodPost, "/dashboard/save", nil))

	if svc.saveCalls != 1 {
		t.Fatalf("expected one save, got %d", svc.saveCalls)
	}
	if got := resp.writeSuccessData.(dto.SaveResponse); got.Saved != 3 {
		t.Errorf("expected 3 saved, got %d", got.Saved)
	}
}

func TestSave_StoreError(t *testing.T) {
	h, resp := newDashboardHandlers(&stubDashboardService{saveErr: errs.NewDatabaseError("replace widgets", "write failed", nil)})

	rr := httptest.NewRecorder()
	h.Save(rr, httptest.NewRequest(http.MethodPost, "/dashboard/save", nil))

	if !resp.handleErrorCalled || resp.writeSuccessCalled {
		t.Fatal("expected HandleError only")
	}
}

func TestSaveAs_OK(t *testing.T) {
	svc := &stubDashboardService{}
	h, resp := newDashboardHandlers(svc)

	body := `{"folderId":"folder-2","name":"Q3 pipeline","theme":"dark"}`
	rr := httptest.NewRecorder()
	h.SaveAs(rr, httptest.NewRequest(http.MethodPost, "/dashboard/save-as", strings.NewReader(body)))

	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.writeSuccessStatus)
	}
	if svc.lastSaveAs.FolderID != "folder-2" || svc.lastSaveAs.Theme != "dark" {
		t.Errorf("unexpected save-as request: %+v", svc.lastSaveAs)
	}
}

func TestListViews_RequiresFolder(t *testing.T) {
	svc := &stubDashboardService{}
	h, resp := newDashboardHandlers(svc)

	rr := httptest.NewRecorder()
	h.ListViews(rr, httptest.NewRequest(http.MethodGet, "/dashboard/views", nil))

	var verr *errs.ValidationError
	if !errors.As(resp.handleError, &verr) {
		t.Fatalf("expected ValidationError, got %v", resp.handleError)
	}
	if svc.lastFolderID != "" {
		t.Fatal("service should not be called without a folder")
	}
}

func TestListViews_OK(t *testing.T) {
	svc := &stubDashboardService{views: []*models.View{{ViewID: "v1"}}}
	h, resp := newDashboardHandlers(svc)

	rr := httptest.NewRecorder()
	h.ListViews(rr, httptest.NewRequest(http.MethodGet, "/dashboard/views?folderId=folder-1", nil))

	if svc.lastFolderID != "folder-1" {
		t.Fatalf("expected folder-1, got %q", svc.lastFolderID)
	}
	if resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.writeSuccessStatus)
	}
}

func TestFolders_OK(t *testing.T) {
	h, resp := newDashboardHandlers(&stubDashboardService{})

	rr := httptest.NewRecorder()
	h.Folders(rr, httptest.NewRequest(http.MethodGet, "/dashboard/folders", nil))

	folders, ok := resp.writeSuccessData.([]models.Folder)
	if !ok || len(folders) != 1 {
		t.Fatalf("unexpected folders payload: %#v", resp.writeSuccessData)
	}
}
