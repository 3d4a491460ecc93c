package dto

// Insight verbosity levels.
const (
	VerbosityLow  = "Low"
	VerbosityHigh = "High"
)

type InsightsRequest struct {
	Verbosity string `json:"verbosity" validate:"omitempty,oneof=Low High"`
}

type InsightsResponse struct {
	WidgetID  string `json:"widgetId"`
	Verbosity string `json:"verbosity"`
	Summary   string `json:"summary"`
}
