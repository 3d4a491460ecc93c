package models

import (
	"encoding/json"

	"github.com/GregMSThompson/crm-dashboard/internal/schema"
)

// WidgetTypeChart tags every locally built widget.
const WidgetTypeChart = "chart"

// Chart types offered by the widget builder.
const (
	ChartPie    = "pie"
	ChartLine   = "line"
	ChartArea   = "area"
	ChartBar    = "bar"
	ChartColumn = "column"
)

// Aggregation is the aggregation function applied by a measure.
type Aggregation string

const (
	AggSum     Aggregation = "sum"
	AggAvg     Aggregation = "avg"
	AggAverage Aggregation = "average" // alias of avg
	AggCount   Aggregation = "count"
)

// Canonical folds aliases onto the tag live measures carry.
func (a Aggregation) Canonical() (Aggregation, bool) {
	switch a {
	case AggSum, AggCount:
		return a, true
	case AggAvg, AggAverage:
		return AggAvg, true
	default:
		return "", false
	}
}

// Measure is an attribute wrapped with an aggregation and an optional title.
type Measure struct {
	Attribute   *schema.Attribute `json:"attribute"`
	Aggregation Aggregation       `json:"aggregation"`
	Title       string            `json:"title,omitempty"`
}

func Sum(attr *schema.Attribute, title string) *Measure {
	return &Measure{Attribute: attr, Aggregation: AggSum, Title: title}
}

func Average(attr *schema.Attribute, title string) *Measure {
	return &Measure{Attribute: attr, Aggregation: AggAvg, Title: title}
}

func Count(attr *schema.Attribute, title string) *Measure {
	return &Measure{Attribute: attr, Aggregation: AggCount, Title: title}
}

// Same compares measures by column, level, aggregation and title.
func (m *Measure) Same(o *Measure) bool {
	if m == nil || o == nil {
		return m == o
	}
	ma, _ := m.Aggregation.Canonical()
	oa, _ := o.Aggregation.Canonical()
	return m.Attribute.Same(o.Attribute) && ma == oa && m.Title == o.Title
}

// DataOptions is the live chart configuration of a built widget. Keys other
// than category, value and breakBy are style passthrough and live in Extra.
type DataOptions struct {
	Category []*schema.Attribute `json:"-"`
	Value    []*Measure          `json:"-"`
	BreakBy  []*schema.Attribute `json:"-"`
	Extra    map[string]any      `json:"-"`
}

const (
	keyCategory = "category"
	keyValue    = "value"
	keyBreakBy  = "breakBy"
)

// IsDataKey reports whether key is one of the three data-bearing keys.
func IsDataKey(key string) bool {
	return key == keyCategory || key == keyValue || key == keyBreakBy
}

func (o DataOptions) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if o.Category != nil {
		known[keyCategory] = o.Category
	}
	if o.Value != nil {
		known[keyValue] = o.Value
	}
	if o.BreakBy != nil {
		known[keyBreakBy] = o.BreakBy
	}
	return marshalFlat(known, o.Extra)
}

func (o *DataOptions) UnmarshalJSON(data []byte) error {
	extra, err := unmarshalFlat(data, map[string]any{
		keyCategory: &o.Category,
		keyValue:    &o.Value,
		keyBreakBy:  &o.BreakBy,
	})
	if err != nil {
		return err
	}
	o.Extra = extra
	return nil
}

// Widget is either a built chart (DataOptions set) or a reference to a widget
// hosted by the BI platform (WidgetOid and DashboardOid set).
type Widget struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	WidgetType   string             `json:"widgetType,omitempty"`
	ChartType    string             `json:"chartType,omitempty"`
	DataSource   *schema.DataSource `json:"dataSource,omitempty"`
	DataOptions  *DataOptions       `json:"dataOptions,omitempty"`
	WidgetOid    string             `json:"widgetOid,omitempty"`
	DashboardOid string             `json:"dashboardOid,omitempty"`
}

func (w *Widget) IsReference() bool {
	return w.WidgetOid != "" && w.DashboardOid != ""
}

// LayoutItem is one widget's grid placement.
type LayoutItem struct {
	I      string `json:"i" firestore:"i"`
	X      int    `json:"x" firestore:"x"`
	Y      int    `json:"y" firestore:"y"`
	W      int    `json:"w" firestore:"w"`
	H      int    `json:"h" firestore:"h"`
	Static bool   `json:"static,omitempty" firestore:"static,omitempty"`
}

// marshalFlat encodes known fields and passthrough keys as one object.
// Known fields win on key collisions.
func marshalFlat(known, extra map[string]any) ([]byte, error) {
	out := make(map[string]any, len(known)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

// unmarshalFlat decodes the known keys into their targets and returns the rest.
func unmarshalFlat(data []byte, targets map[string]any) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var extra map[string]any
	for k, v := range raw {
		if target, ok := targets[k]; ok {
			if err := json.Unmarshal(v, target); err != nil {
				return nil, err
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, err
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = val
	}
	return extra, nil
}
