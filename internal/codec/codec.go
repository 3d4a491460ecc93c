package codec

import (
	"sort"
	"time"

	"github.com/GregMSThompson/crm-dashboard/internal/models"
)

// EncodeWidget builds the storage record of one widget. Reference widgets
// are stored by their OIDs only; built widgets are sanitized.
func EncodeWidget(w *models.Widget, layout *models.LayoutItem, position int, savedAt time.Time) (models.WidgetRecord, []Warning) {
	rec := models.WidgetRecord{
		WidgetID: w.ID,
		Title:    w.Title,
		Position: position,
		SavedAt:  savedAt,
	}
	if layout != nil {
		l := *layout
		rec.Layout = &l
	}

	if w.IsReference() {
		rec.WidgetOid = w.WidgetOid
		rec.DashboardOid = w.DashboardOid
		return rec, nil
	}

	jaql, warnings := Sanitize(w.DataOptions)
	rec.JAQL = jaql
	rec.ChartType = w.ChartType
	if w.DataSource != nil {
		rec.DataSourceTitle = w.DataSource.Title
	}
	return rec, withWidget(w.ID, warnings)
}

// Decoded is the dashboard rebuilt from a set of stored records.
type Decoded struct {
	Widgets  []*models.Widget
	Layout   []models.LayoutItem
	Warnings []Warning
}

// DecodeRecords rehydrates records in position order. Layout entries are
// collected only for widgets that survived rehydration.
func (r *Rehydrator) DecodeRecords(records []models.WidgetRecord) Decoded {
	sorted := make([]models.WidgetRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	var out Decoded
	for _, rec := range sorted {
		w, warnings := r.Rehydrate(rec)
		out.Warnings = append(out.Warnings, warnings...)
		if w == nil {
			continue
		}
		out.Widgets = append(out.Widgets, w)
		if rec.Layout != nil {
			l := *rec.Layout
			l.I = w.ID
			out.Layout = append(out.Layout, l)
		}
	}
	return out
}
