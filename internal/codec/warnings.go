package codec

import (
	"context"
	"fmt"

	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

// Reason says why an element was dropped.
type Reason string

const (
	ReasonBadExpression      Reason = "unparsable expression"
	ReasonMissingAttribute   Reason = "missing attribute"
	ReasonMissingAggregation Reason = "missing aggregation"
	ReasonUnknownTable       Reason = "unknown table"
	ReasonUnknownColumn      Reason = "unknown column"
	ReasonUnknownLevel       Reason = "unknown date level"
	ReasonUnknownAggregation Reason = "unknown aggregation"
	ReasonUnknownDataSource  Reason = "unknown data source"
	ReasonEmptyRecord        Reason = "record has neither jaql nor widget reference"
	ReasonMalformedElement   Reason = "malformed stored element"
)

// Warning describes one element dropped while sanitizing or rehydrating.
// Dropping is never an error; partial configurations degrade gracefully.
type Warning struct {
	WidgetID string `json:"widgetId,omitempty"`
	Field    string `json:"field,omitempty"`
	Index    int    `json:"index"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Reason   Reason `json:"reason"`
}

func (w Warning) String() string {
	if w.Table != "" || w.Column != "" {
		return fmt.Sprintf("%s[%d] %s.%s: %s", w.Field, w.Index, w.Table, w.Column, w.Reason)
	}
	return fmt.Sprintf("%s[%d]: %s", w.Field, w.Index, w.Reason)
}

func withWidget(id string, warnings []Warning) []Warning {
	for i := range warnings {
		warnings[i].WidgetID = id
	}
	return warnings
}

// LogWarnings writes each warning at WARN level on the context logger.
func LogWarnings(ctx context.Context, msg string, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn(msg,
			"widget_id", w.WidgetID,
			"field", w.Field,
			"index", w.Index,
			"table", w.Table,
			"column", w.Column,
			"reason", string(w.Reason))
	}
}
