package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/GregMSThompson/crm-dashboard/internal/dto"
	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/pkg/helpers"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

type vertexClient interface {
	GenerateContent(ctx context.Context, req dto.VertexGenerateRequest) (dto.VertexGenerateResponse, error)
}

// widgetSource resolves a widget id on the live dashboard.
type widgetSource interface {
	Widget(ctx context.Context, widgetID string) (*models.Widget, error)
}

type insightsService struct {
	vertex  vertexClient
	widgets widgetSource
}

func NewInsightsService(vertex vertexClient, widgets widgetSource) *insightsService {
	return &insightsService{vertex: vertex, widgets: widgets}
}

// Insights asks the model for a narrative reading of one widget.
func (s *insightsService) Insights(ctx context.Context, widgetID string, req dto.InsightsRequest) (dto.InsightsResponse, error) {
	log := logger.FromContext(ctx)

	verbosity := req.Verbosity
	switch verbosity {
	case "":
		verbosity = dto.VerbosityLow
	case dto.VerbosityLow, dto.VerbosityHigh:
	default:
		return dto.InsightsResponse{}, errs.NewValidationError("verbosity must be Low or High")
	}

	w, err := s.widgets.Widget(ctx, widgetID)
	if err != nil {
		return dto.InsightsResponse{}, err
	}

	maxTokens := int32(256)
	if verbosity == dto.VerbosityHigh {
		maxTokens = 1024
	}
	resp, err := s.vertex.GenerateContent(ctx, dto.VertexGenerateRequest{
		System:          insightsPrompt(verbosity),
		UserMessage:     describeWidget(w),
		Temperature:     helpers.Ptr(float32(0.2)),
		MaxOutputTokens: &maxTokens,
	})
	if err != nil {
		log.Error("insight generation failed", "widget_id", widgetID, "error", err)
		return dto.InsightsResponse{}, errs.NewExternalServiceError("vertex", "insight generation failed", true, err)
	}

	return dto.InsightsResponse{
		WidgetID:  widgetID,
		Verbosity: verbosity,
		Summary:   strings.TrimSpace(resp.Text),
	}, nil
}

func insightsPrompt(verbosity string) string {
	length := "Answer in at most two sentences."
	if verbosity == dto.VerbosityHigh {
		length = "Answer in a short paragraph followed by up to five bullet points."
	}
	return "You are a sales analyst for a CRM dashboard. " +
		"Explain what the described chart shows and what a sales manager should look at. " +
		length
}

// describeWidget renders the widget's symbolic configuration for the prompt.
func describeWidget(w *models.Widget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chart title: %s\n", w.Title)

	if w.IsReference() {
		fmt.Fprintf(&b, "Hosted BI widget %s on dashboard %s.\n", w.WidgetOid, w.DashboardOid)
		return b.String()
	}
	if w.DataSource != nil {
		fmt.Fprintf(&b, "Data source: %s\n", w.DataSource.Title)
	}
	fmt.Fprintf(&b, "Chart type: %s\n", w.ChartType)
	if w.DataOptions == nil {
		return b.String()
	}
	for _, m := range w.DataOptions.Value {
		fmt.Fprintf(&b, "Measure: %s(%s)", m.Aggregation, m.Attribute.Expression)
		if m.Title != "" {
			fmt.Fprintf(&b, " titled %q", m.Title)
		}
		b.WriteString("\n")
	}
	for _, a := range w.DataOptions.Category {
		fmt.Fprintf(&b, "Category: %s\n", attributeLabel(a.Name, a.Level))
	}
	for _, a := range w.DataOptions.BreakBy {
		fmt.Fprintf(&b, "Broken down by: %s\n", attributeLabel(a.Name, a.Level))
	}
	return b.String()
}

func attributeLabel(name, level string) string {
	if level == "" {
		return name
	}
	return name + " (" + level + ")"
}
