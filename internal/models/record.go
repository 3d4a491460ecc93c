package models

import (
	"encoding/json"
	"time"
)

// ColumnPointer is the compact storage form of an attribute reference.
type ColumnPointer struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Level  string `json:"level,omitempty"`
}

// ColumnRef stores a category or breakBy attribute.
type ColumnRef struct {
	JAQL ColumnPointer `json:"jaql"`
}

// MeasureRef stores a value measure.
type MeasureRef struct {
	Agg   Aggregation   `json:"agg"`
	JAQL  ColumnPointer `json:"jaql"`
	Title string        `json:"title,omitempty"`
}

// MalformedElement marks a stored element that could not be decoded. Index
// is -1 when the field itself is not an array.
type MalformedElement struct {
	Field string
	Index int
}

// JAQL is the sanitized, JSON-safe form of a widget's DataOptions.
type JAQL struct {
	Category []ColumnRef    `json:"-"`
	Value    []MeasureRef   `json:"-"`
	BreakBy  []ColumnRef    `json:"-"`
	Extra    map[string]any `json:"-"`

	// Malformed lists elements skipped while decoding. It is never encoded.
	Malformed []MalformedElement `json:"-"`
}

func (j JAQL) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if j.Category != nil {
		known[keyCategory] = j.Category
	}
	if j.Value != nil {
		known[keyValue] = j.Value
	}
	if j.BreakBy != nil {
		known[keyBreakBy] = j.BreakBy
	}
	return marshalFlat(known, j.Extra)
}

// UnmarshalJSON decodes category, value and breakBy element by element. An
// element that does not decode is skipped and listed in Malformed so one bad
// stored element never loses the rest of the record.
func (j *JAQL) UnmarshalJSON(data []byte) error {
	var category, value, breakBy json.RawMessage
	extra, err := unmarshalFlat(data, map[string]any{
		keyCategory: &category,
		keyValue:    &value,
		keyBreakBy:  &breakBy,
	})
	if err != nil {
		return err
	}
	j.Extra = extra
	j.Malformed = nil
	j.Category = decodeElements[ColumnRef](keyCategory, category, &j.Malformed)
	j.Value = decodeElements[MeasureRef](keyValue, value, &j.Malformed)
	j.BreakBy = decodeElements[ColumnRef](keyBreakBy, breakBy, &j.Malformed)
	return nil
}

func decodeElements[T any](field string, raw json.RawMessage, malformed *[]MalformedElement) []T {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		*malformed = append(*malformed, MalformedElement{Field: field, Index: -1})
		return nil
	}
	if items == nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			*malformed = append(*malformed, MalformedElement{Field: field, Index: i})
			continue
		}
		out = append(out, v)
	}
	return out
}

// AsMap flattens the JAQL into a generic map for document stores.
func (j *JAQL) AsMap() (map[string]any, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JAQLFromMap is the inverse of AsMap.
func JAQLFromMap(m map[string]any) (*JAQL, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var j JAQL
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// WidgetRecord is one row of the crm_widgets table. A reference record has
// WidgetOid and DashboardOid and no JAQL; a built record has JAQL.
type WidgetRecord struct {
	WidgetID        string      `json:"widget_id"`
	Title           string      `json:"title"`
	Layout          *LayoutItem `json:"layout,omitempty"`
	Position        int         `json:"position"`
	ChartType       string      `json:"chartType,omitempty"`
	DataSourceTitle string      `json:"dataSourceTitle,omitempty"`
	JAQL            *JAQL       `json:"jaql,omitempty"`
	WidgetOid       string      `json:"widgetOid,omitempty"`
	DashboardOid    string      `json:"dashboardOid,omitempty"`
	SavedAt         time.Time   `json:"savedAt"`
}

func (r *WidgetRecord) IsReference() bool {
	return r.WidgetOid != "" && r.DashboardOid != ""
}
