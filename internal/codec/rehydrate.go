package codec

import (
	"errors"

	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
)

// Rehydrator rebuilds live widgets from stored records by resolving their
// (table, column) pointers against the schema catalog.
type Rehydrator struct {
	catalog *schema.Catalog
}

func NewRehydrator(catalog *schema.Catalog) *Rehydrator {
	return &Rehydrator{catalog: catalog}
}

// Rehydrate returns nil and a warning when the record is neither a reference
// nor a built record. Unresolvable elements are dropped, never fatal.
func (r *Rehydrator) Rehydrate(rec models.WidgetRecord) (*models.Widget, []Warning) {
	if rec.IsReference() {
		return &models.Widget{
			ID:           rec.WidgetID,
			Title:        rec.Title,
			WidgetOid:    rec.WidgetOid,
			DashboardOid: rec.DashboardOid,
		}, nil
	}
	if rec.JAQL == nil {
		return nil, withWidget(rec.WidgetID, []Warning{{Reason: ReasonEmptyRecord}})
	}

	var warnings []Warning
	registry, ok := r.catalog.Lookup(rec.DataSourceTitle)
	// records written before the title was stored use the default registry
	if !ok && rec.DataSourceTitle != "" {
		warnings = append(warnings, Warning{Field: "dataSourceTitle", Table: rec.DataSourceTitle, Reason: ReasonUnknownDataSource})
	}

	opts, w := rehydrateOptions(registry, rec.JAQL)
	warnings = append(warnings, w...)

	ds := registry.DataSource()
	return &models.Widget{
		ID:          rec.WidgetID,
		Title:       rec.Title,
		WidgetType:  models.WidgetTypeChart,
		ChartType:   rec.ChartType,
		DataSource:  &ds,
		DataOptions: opts,
	}, withWidget(rec.WidgetID, warnings)
}

func rehydrateOptions(registry *schema.Registry, j *models.JAQL) (*models.DataOptions, []Warning) {
	var warnings []Warning
	opts := &models.DataOptions{Extra: copyExtra(j.Extra)}

	for _, m := range j.Malformed {
		warnings = append(warnings, Warning{Field: m.Field, Index: m.Index, Reason: ReasonMalformedElement})
	}

	if j.Category != nil {
		var w []Warning
		opts.Category, w = resolveColumns(registry, fieldCategory, j.Category)
		warnings = append(warnings, w...)
	}
	if j.BreakBy != nil {
		var w []Warning
		opts.BreakBy, w = resolveColumns(registry, fieldBreakBy, j.BreakBy)
		warnings = append(warnings, w...)
	}
	if j.Value != nil {
		opts.Value = make([]*models.Measure, 0, len(j.Value))
		for i, ref := range j.Value {
			attr, reason := resolve(registry, ref.JAQL)
			if attr == nil {
				warnings = append(warnings, dropped(fieldValue, i, ref.JAQL, reason))
				continue
			}
			m, ok := measureFor(ref.Agg, attr, ref.Title)
			if !ok {
				warnings = append(warnings, dropped(fieldValue, i, ref.JAQL, ReasonUnknownAggregation))
				continue
			}
			opts.Value = append(opts.Value, m)
		}
	}

	return opts, warnings
}

func resolveColumns(registry *schema.Registry, field string, refs []models.ColumnRef) ([]*schema.Attribute, []Warning) {
	var warnings []Warning
	out := make([]*schema.Attribute, 0, len(refs))
	for i, ref := range refs {
		attr, reason := resolve(registry, ref.JAQL)
		if attr == nil {
			warnings = append(warnings, dropped(field, i, ref.JAQL, reason))
			continue
		}
		out = append(out, attr)
	}
	return out, warnings
}

func resolve(registry *schema.Registry, ptr models.ColumnPointer) (*schema.Attribute, Reason) {
	attr, err := registry.FindAttribute(ptr.Table, ptr.Column)
	switch {
	case errors.Is(err, schema.ErrUnknownTable):
		return nil, ReasonUnknownTable
	case err != nil:
		return nil, ReasonUnknownColumn
	}
	if ptr.Level == "" {
		return attr, ""
	}
	projected, err := attr.AtLevel(ptr.Level)
	if err != nil {
		return nil, ReasonUnknownLevel
	}
	return projected, ""
}

func measureFor(agg models.Aggregation, attr *schema.Attribute, title string) (*models.Measure, bool) {
	canonical, ok := agg.Canonical()
	if !ok {
		return nil, false
	}
	switch canonical {
	case models.AggSum:
		return models.Sum(attr, title), true
	case models.AggAvg:
		return models.Average(attr, title), true
	case models.AggCount:
		return models.Count(attr, title), true
	}
	return nil, false
}

func dropped(field string, index int, ptr models.ColumnPointer, reason Reason) Warning {
	return Warning{Field: field, Index: index, Table: ptr.Table, Column: ptr.Column, Reason: reason}
}
