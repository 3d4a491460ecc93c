package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/GregMSThompson/crm-dashboard/internal/dashboard"
	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
	"github.com/GregMSThompson/crm-dashboard/pkg/helpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Fakes ---

type fakeWidgetStore struct {
	mu           sync.Mutex
	records      []models.WidgetRecord
	listErr      error
	replaceErr   error
	listCalls    int
	replaceCalls int
}

func (f *fakeWidgetStore) ReplaceAll(_ context.Context, records []models.WidgetRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.records = append([]models.WidgetRecord{}, records...)
	return nil
}

func (f *fakeWidgetStore) List(_ context.Context) ([]models.WidgetRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.WidgetRecord{}, f.records...), nil
}

type fakeViewStore struct {
	saved   []*models.View
	saveErr error
}

func (f *fakeViewStore) SaveView(_ context.Context, v *models.View) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, v)
	return nil
}

func (f *fakeViewStore) ListViews(_ context.Context, folderID string) ([]*models.View, error) {
	var out []*models.View
	for _, v := range f.saved {
		if v.FolderID == folderID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeBI struct {
	widget  dto.BIWidget
	err     error
	lastOid string
}

func (f *fakeBI) GetWidget(_ context.Context, _, widgetOid string) (dto.BIWidget, error) {
	f.lastOid = widgetOid
	return f.widget, f.err
}

func newTestService(store *fakeWidgetStore) (*dashboardService, *fakeViewStore) {
	views := &fakeViewStore{}
	svc := NewDashboardService(store, views, nil, schema.DefaultCatalog())
	svc.clockNow = func() time.Time { return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, views
}

// --- Load ---

func TestGetDashboard_LoadsOnce(t *testing.T) {
	store := &fakeWidgetStore{records: []models.WidgetRecord{
		{WidgetID: "r", Title: "Pipeline", Position: 0, WidgetOid: "wo", DashboardOid: "do"},
	}}
	svc, _ := newTestService(store)
	ctx := helpers.TestCtx()

	first, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	_, err = svc.GetDashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	require.Len(t, first.Widgets, 1)
	assert.Equal(t, "r", first.Widgets[0].ID)
	require.Len(t, first.Layout, 1, "missing layout gets a default slot")
	assert.Equal(t, dashboard.DefaultHeight, first.Layout[0].H)
}

func TestGetDashboard_LoadFailureYieldsEmpty(t *testing.T) {
	store := &fakeWidgetStore{listErr: errors.New("unavailable")}
	svc, _ := newTestService(store)
	ctx := helpers.TestCtx()

	resp, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.Widgets)
	assert.NotNil(t, resp.Layout)

	_, err = svc.Save(ctx)
	assert.Error(t, err, "saving over an unloaded dashboard would wipe it")
	assert.Zero(t, store.replaceCalls)

	store.listErr = nil
	store.records = []models.WidgetRecord{{WidgetID: "r", WidgetOid: "wo", DashboardOid: "do"}}
	resp, err = svc.GetDashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, resp.Widgets, 1)
}

func TestGetDashboard_DropsUnresolvable(t *testing.T) {
	store := &fakeWidgetStore{records: []models.WidgetRecord{
		{
			WidgetID:  "w1",
			ChartType: models.ChartBar,
			JAQL: &models.JAQL{
				Category: []models.ColumnRef{{JAQL: models.ColumnPointer{Table: "Nonexistent", Column: "X"}}},
				Value:    []models.MeasureRef{{Agg: models.AggSum, JAQL: models.ColumnPointer{Table: "Opportunities", Column: "Value"}}},
			},
		},
		{WidgetID: "broken"},
	}}
	svc, _ := newTestService(store)

	resp, err := svc.GetDashboard(helpers.TestCtx())
	require.NoError(t, err)
	require.Len(t, resp.Widgets, 1)
	assert.Empty(t, resp.Widgets[0].DataOptions.Category)
	assert.Len(t, resp.Widgets[0].DataOptions.Value, 1)
	assert.Len(t, resp.Warnings, 2)
}

func TestGetDashboard_MalformedStoredElementDoesNotLock(t *testing.T) {
	jaql, err := models.JAQLFromMap(map[string]any{
		"category": []any{
			map[string]any{"jaql": map[string]any{"table": "Industries", "column": "Industry"}},
			"junk",
		},
		"value": []any{
			map[string]any{"agg": "sum", "jaql": map[string]any{"table": "Opportunities", "column": "Value"}},
		},
	})
	require.NoError(t, err)
	store := &fakeWidgetStore{records: []models.WidgetRecord{{WidgetID: "w1", ChartType: models.ChartBar, JAQL: jaql}}}
	svc, _ := newTestService(store)
	ctx := helpers.TestCtx()

	resp, err := svc.GetDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Widgets, 1)
	assert.Len(t, resp.Widgets[0].DataOptions.Category, 1)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "category", resp.Warnings[0].Field)
	assert.Equal(t, 1, resp.Warnings[0].Index)

	_, err = svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)
	saved, err := svc.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Saved)
	assert.Len(t, store.records, 2)
}

// --- Widgets ---

func TestAddWidget_AppendsAtBottom(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	first, err := svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)
	second, err := svc.AddWidget(ctx, dashboard.BuildRequest{Measure: dashboard.MeasureOpportunities})
	require.NoError(t, err)

	assert.Equal(t, "id-1", first.Widget.ID)
	assert.Equal(t, "id-2", second.Widget.ID)
	assert.Equal(t, models.LayoutItem{I: "id-1", X: 0, Y: 0, W: 6, H: 8}, *first.Layout)
	assert.Equal(t, models.LayoutItem{I: "id-2", X: 0, Y: 8, W: 6, H: 8}, *second.Layout)
}

func TestAddWidget_Invalid(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})

	_, err := svc.AddWidget(helpers.TestCtx(), dashboard.BuildRequest{ChartType: "radar"})
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestAddReferenceWidget(t *testing.T) {
	store := &fakeWidgetStore{}
	svc, _ := newTestService(store)
	bi := &fakeBI{widget: dto.BIWidget{Oid: "wo", Title: "Pipeline"}}
	svc.bi = bi
	ctx := helpers.TestCtx()

	resp, err := svc.AddReferenceWidget(ctx, dto.AddReferenceWidgetRequest{WidgetOid: "wo", DashboardOid: "do"})
	require.NoError(t, err)
	assert.Equal(t, "wo", bi.lastOid)
	assert.Equal(t, "Pipeline", resp.Widget.Title)
	assert.True(t, resp.Widget.IsReference())

	bi.err = errs.NewNotFoundError("widget not found on BI platform")
	_, err = svc.AddReferenceWidget(ctx, dto.AddReferenceWidgetRequest{WidgetOid: "gone", DashboardOid: "do"})
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.AddReferenceWidget(ctx, dto.AddReferenceWidgetRequest{WidgetOid: "wo"})
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)

	got, _ := svc.GetDashboard(ctx)
	assert.Len(t, got.Widgets, 1)
}

func TestUpdateWidget(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	added, err := svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)
	ref, err := svc.AddReferenceWidget(ctx, dto.AddReferenceWidgetRequest{WidgetOid: "wo", DashboardOid: "do", Title: "Hosted"})
	require.NoError(t, err)

	edited, err := svc.UpdateWidget(ctx, added.Widget.ID, dashboard.BuildRequest{ChartType: models.ChartPie, Category: dashboard.CategoryCountry})
	require.NoError(t, err)
	assert.Equal(t, added.Widget.ID, edited.Widget.ID)
	assert.Equal(t, models.ChartPie, edited.Widget.ChartType)
	assert.Equal(t, *added.Layout, *edited.Layout)

	_, err = svc.UpdateWidget(ctx, ref.Widget.ID, dashboard.BuildRequest{})
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateWidget(ctx, "missing", dashboard.BuildRequest{})
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRemoveWidget(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	added, err := svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveWidget(ctx, added.Widget.ID))

	var nf *errs.NotFoundError
	assert.ErrorAs(t, svc.RemoveWidget(ctx, added.Widget.ID), &nf)

	got, _ := svc.GetDashboard(ctx)
	assert.Empty(t, got.Widgets)
	assert.Empty(t, got.Layout)
}

func TestUpdateLayout(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	added, err := svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)

	resp, err := svc.UpdateLayout(ctx, dto.UpdateLayoutRequest{Layout: []models.LayoutItem{
		{I: added.Widget.ID, X: 6, Y: 2, W: 6, H: 4},
		{I: "ghost", X: 0, Y: 0, W: 1, H: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, []models.LayoutItem{{I: added.Widget.ID, X: 6, Y: 2, W: 6, H: 4}}, resp.Layout)
}

// --- Save ---

func TestSave_ReplacesStoredSet(t *testing.T) {
	store := &fakeWidgetStore{records: []models.WidgetRecord{
		{WidgetID: "old", WidgetOid: "wo", DashboardOid: "do"},
	}}
	svc, _ := newTestService(store)
	ctx := helpers.TestCtx()

	require.NoError(t, svc.RemoveWidget(ctx, "old"))
	a, err := svc.AddWidget(ctx, dashboard.BuildRequest{Aggregation: dashboard.AggregationAverage, BreakBy: dashboard.CategoryStatus})
	require.NoError(t, err)
	b, err := svc.AddReferenceWidget(ctx, dto.AddReferenceWidgetRequest{WidgetOid: "w2", DashboardOid: "d2", Title: "Hosted"})
	require.NoError(t, err)

	saved, err := svc.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Saved)
	assert.Empty(t, saved.Warnings)

	reloaded, _ := newTestService(store)
	got, err := reloaded.GetDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, got.Widgets, 2)

	gotA, gotB := got.Widgets[0], got.Widgets[1]
	assert.Equal(t, a.Widget.ID, gotA.ID)
	assert.Equal(t, a.Widget.Title, gotA.Title)
	assert.True(t, a.Widget.DataOptions.Value[0].Same(gotA.DataOptions.Value[0]))
	assert.True(t, a.Widget.DataOptions.BreakBy[0].Same(gotA.DataOptions.BreakBy[0]))
	assert.Equal(t, b.Widget, gotB)
	assert.Equal(t, []models.LayoutItem{*a.Layout, *b.Layout}, got.Layout)
}

func TestSave_StoreError(t *testing.T) {
	store := &fakeWidgetStore{replaceErr: errs.NewDatabaseError("replace", "failed to replace widgets", errors.New("aborted"))}
	svc, _ := newTestService(store)

	_, err := svc.Save(helpers.TestCtx())
	var de *errs.DatabaseError
	assert.ErrorAs(t, err, &de)
}

func TestSave_ConcurrentSavesNeverMerge(t *testing.T) {
	store := &fakeWidgetStore{}
	svc, _ := newTestService(store)
	ctx := helpers.TestCtx()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			if _, err := svc.AddWidget(ctx, dashboard.BuildRequest{}); err != nil {
				return err
			}
			_, err := svc.Save(ctx)
			return err
		})
	}
	require.NoError(t, g.Wait())

	_, err := svc.Save(ctx)
	require.NoError(t, err)

	current, _ := svc.GetDashboard(ctx)
	stored, _ := store.List(ctx)
	require.Len(t, stored, len(current.Widgets))
	for i, w := range current.Widgets {
		assert.Equal(t, w.ID, stored[i].WidgetID)
		assert.Equal(t, i, stored[i].Position)
	}
}

func TestSaveAs(t *testing.T) {
	svc, views := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	_, err := svc.AddWidget(ctx, dashboard.BuildRequest{})
	require.NoError(t, err)

	_, err = svc.SaveAs(ctx, dto.SaveAsRequest{FolderID: "folder-9", Name: "Q3"})
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.SaveAs(ctx, dto.SaveAsRequest{FolderID: "folder-1"})
	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)

	resp, err := svc.SaveAs(ctx, dto.SaveAsRequest{FolderID: "folder-1", Name: " Q3 review ", Theme: "dark"})
	require.NoError(t, err)
	assert.Equal(t, "Q3 review", resp.View.Name)
	require.Len(t, views.saved, 1)
	require.Len(t, views.saved[0].Widgets, 1)
	assert.NotNil(t, views.saved[0].Widgets[0].JAQL)

	listed, err := svc.ListViews(ctx, "folder-1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestFoldersAndSchema(t *testing.T) {
	svc, _ := newTestService(&fakeWidgetStore{})
	ctx := helpers.TestCtx()

	folders := svc.Folders(ctx)
	require.Len(t, folders, 2)
	assert.Equal(t, "My Saved CRM Views", folders[0].Name)

	s := svc.Schema(ctx)
	require.Len(t, s.DataSources, 2)
	assert.Equal(t, schema.BestCRMTitle, s.DataSources[0].DataSource.Title)
	assert.Equal(t, schema.BestCRM3Title, s.DataSources[1].DataSource.Title)
	assert.Len(t, s.Builder.Categories, 5)
}
