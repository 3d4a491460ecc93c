package codec

import (
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
)

const (
	fieldCategory = "category"
	fieldValue    = "value"
	fieldBreakBy  = "breakBy"
)

// Sanitize converts live data options into their compact storage form.
// Elements whose expression does not parse are dropped and reported; every
// other key is copied through as is. A nil input yields nil.
func Sanitize(opts *models.DataOptions) (*models.JAQL, []Warning) {
	if opts == nil {
		return nil, nil
	}

	var warnings []Warning
	out := &models.JAQL{Extra: copyExtra(opts.Extra)}

	if opts.Category != nil {
		var w []Warning
		out.Category, w = sanitizeAttributes(fieldCategory, opts.Category)
		warnings = append(warnings, w...)
	}
	if opts.BreakBy != nil {
		var w []Warning
		out.BreakBy, w = sanitizeAttributes(fieldBreakBy, opts.BreakBy)
		warnings = append(warnings, w...)
	}
	if opts.Value != nil {
		out.Value = make([]models.MeasureRef, 0, len(opts.Value))
		for i, m := range opts.Value {
			if m == nil || m.Attribute == nil {
				warnings = append(warnings, Warning{Field: fieldValue, Index: i, Reason: ReasonMissingAttribute})
				continue
			}
			ptr, ok := pointerFor(m.Attribute)
			if !ok {
				warnings = append(warnings, Warning{Field: fieldValue, Index: i, Reason: ReasonBadExpression})
				continue
			}
			if m.Aggregation == "" {
				warnings = append(warnings, Warning{Field: fieldValue, Index: i, Table: ptr.Table, Column: ptr.Column, Reason: ReasonMissingAggregation})
				continue
			}
			out.Value = append(out.Value, models.MeasureRef{
				Agg:   m.Aggregation,
				JAQL:  ptr,
				Title: m.Title,
			})
		}
	}

	return out, warnings
}

func sanitizeAttributes(field string, attrs []*schema.Attribute) ([]models.ColumnRef, []Warning) {
	var warnings []Warning
	out := make([]models.ColumnRef, 0, len(attrs))
	for i, a := range attrs {
		if a == nil {
			warnings = append(warnings, Warning{Field: field, Index: i, Reason: ReasonMissingAttribute})
			continue
		}
		ptr, ok := pointerFor(a)
		if !ok {
			warnings = append(warnings, Warning{Field: field, Index: i, Reason: ReasonBadExpression})
			continue
		}
		out = append(out, models.ColumnRef{JAQL: ptr})
	}
	return out, warnings
}

func pointerFor(a *schema.Attribute) (models.ColumnPointer, bool) {
	table, column, ok := schema.ParseExpression(a.Expression)
	if !ok {
		return models.ColumnPointer{}, false
	}
	return models.ColumnPointer{Table: table, Column: column, Level: a.Level}, true
}

func copyExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if models.IsDataKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}
