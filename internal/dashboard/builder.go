package dashboard

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
)

// Form values of the add-widget builder.
const (
	MeasureRevenue       = "Revenue"
	MeasureOpportunities = "Opportunities"

	AggregationSum     = "sum"
	AggregationAverage = "average"

	CategoryIndustry         = "Industry"
	CategoryCountry          = "Country"
	CategoryAccountExecutive = "AccountExecutive"
	CategoryStatus           = "Status"
	CategoryCloseDate        = "CloseDate"

	BreakByNone = "None"
)

// BuildRequest is the add-widget form. Empty fields take the form defaults.
type BuildRequest struct {
	ChartType   string `json:"chartType" validate:"omitempty,oneof=pie line area bar column"`
	Measure     string `json:"measure" validate:"omitempty,oneof=Revenue Opportunities"`
	Aggregation string `json:"aggregation" validate:"omitempty,oneof=sum average"`
	Category    string `json:"category" validate:"omitempty,oneof=Industry Country AccountExecutive Status CloseDate"`
	BreakBy     string `json:"breakBy" validate:"omitempty,oneof=None Industry Country Status"`
	Title       string `json:"title" validate:"max=200"`
}

// Option is one selectable form value.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options lists the choices the builder accepts.
type Options struct {
	ChartTypes   []string `json:"chartTypes"`
	Measures     []Option `json:"measures"`
	Aggregations []Option `json:"aggregations"`
	Categories   []Option `json:"categories"`
	BreakBys     []Option `json:"breakBys"`
}

var (
	categoryOptions = []Option{
		{CategoryIndustry, "Industry"},
		{CategoryCountry, "Country"},
		{CategoryAccountExecutive, "Account Executive"},
		{CategoryStatus, "Status"},
		{CategoryCloseDate, "Close Date"},
	}
	// high cardinality dimensions are not offered as a breakdown
	breakByOptions = []Option{
		{BreakByNone, "None"},
		{CategoryIndustry, "Industry"},
		{CategoryCountry, "Country"},
		{CategoryStatus, "Status"},
	}
)

// Builder turns add-widget form submissions into built chart widgets over
// one registry.
type Builder struct {
	registry *schema.Registry
	validate *validator.Validate
	newID    func() string
}

func NewBuilder(registry *schema.Registry) *Builder {
	return &Builder{
		registry: registry,
		validate: validator.New(),
		newID:    uuid.NewString,
	}
}

func (b *Builder) Options() Options {
	return Options{
		ChartTypes: []string{models.ChartPie, models.ChartLine, models.ChartArea, models.ChartBar, models.ChartColumn},
		Measures: []Option{
			{MeasureRevenue, "Revenue"},
			{MeasureOpportunities, "# of Opportunities"},
		},
		Aggregations: []Option{
			{AggregationSum, "Sum"},
			{AggregationAverage, "Average"},
		},
		Categories: categoryOptions,
		BreakBys:   breakByOptions,
	}
}

// Build creates a widget with a fresh id.
func (b *Builder) Build(req BuildRequest) (*models.Widget, error) {
	return b.BuildWithID(b.newID(), req)
}

// BuildWithID creates a widget with the given id, used when editing an
// existing widget in place.
func (b *Builder) BuildWithID(id string, req BuildRequest) (*models.Widget, error) {
	if err := b.validate.Struct(req); err != nil {
		return nil, errs.NewValidationError(err.Error())
	}
	req = withDefaults(req)
	if req.BreakBy != BreakByNone && req.BreakBy == req.Category {
		return nil, errs.NewValidationError("breakBy must differ from category")
	}

	measure, err := b.measure(req)
	if err != nil {
		return nil, err
	}
	category, err := b.category(req.Category)
	if err != nil {
		return nil, err
	}

	opts := &models.DataOptions{
		Category: []*schema.Attribute{category},
		Value:    []*models.Measure{measure},
		BreakBy:  []*schema.Attribute{},
	}
	if req.BreakBy != BreakByNone {
		breakBy, err := b.category(req.BreakBy)
		if err != nil {
			return nil, err
		}
		opts.BreakBy = append(opts.BreakBy, breakBy)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle(req)
	}

	ds := b.registry.DataSource()
	return &models.Widget{
		ID:          id,
		Title:       title,
		WidgetType:  models.WidgetTypeChart,
		ChartType:   req.ChartType,
		DataSource:  &ds,
		DataOptions: opts,
	}, nil
}

func withDefaults(req BuildRequest) BuildRequest {
	if req.Measure == "" {
		req.Measure = MeasureRevenue
	}
	if req.Aggregation == "" {
		req.Aggregation = AggregationSum
	}
	if req.Category == "" {
		req.Category = CategoryIndustry
	}
	if req.BreakBy == "" {
		req.BreakBy = BreakByNone
	}
	if req.Category == CategoryCloseDate {
		req.BreakBy = BreakByNone
		if req.ChartType == "" {
			req.ChartType = models.ChartLine
		}
	}
	if req.ChartType == "" {
		req.ChartType = models.ChartBar
	}
	// pie charts cannot show a breakdown
	if req.ChartType == models.ChartPie {
		req.BreakBy = BreakByNone
	}
	return req
}

func (b *Builder) measure(req BuildRequest) (*models.Measure, error) {
	if req.Measure == MeasureOpportunities {
		id, err := b.registry.FindAttribute(schema.TableOpportunities, "Opportunity Id")
		if err != nil {
			return nil, fmt.Errorf("opportunity id attribute: %w", err)
		}
		return models.Count(id, "# of Opportunities"), nil
	}

	value, err := b.registry.FindAttribute(schema.TableOpportunities, "Value")
	if err != nil {
		return nil, fmt.Errorf("value attribute: %w", err)
	}
	if req.Aggregation == AggregationAverage {
		return models.Average(value, "Avg Revenue"), nil
	}
	return models.Sum(value, "Total Revenue"), nil
}

func (b *Builder) category(name string) (*schema.Attribute, error) {
	var table, column string
	switch name {
	case CategoryIndustry:
		table, column = schema.TableIndustries, "Industry"
	case CategoryCountry:
		table, column = schema.TableCountries, "Country"
	case CategoryAccountExecutive:
		table, column = schema.TableAccountExecutives, "Account Executive"
	case CategoryStatus:
		table, column = schema.TableStatus, "Status"
	case CategoryCloseDate:
		closeDate, err := b.registry.FindAttribute(schema.TableOpportunities, "Close Date")
		if err != nil {
			return nil, fmt.Errorf("close date attribute: %w", err)
		}
		return closeDate.AtLevel(schema.LevelMonths)
	default:
		return nil, errs.NewValidationError("unknown category " + name)
	}
	attr, err := b.registry.FindAttribute(table, column)
	if err != nil {
		return nil, fmt.Errorf("%s attribute: %w", name, err)
	}
	return attr, nil
}

// DefaultTitle is the title the form proposes for a request.
func DefaultTitle(req BuildRequest) string {
	req = withDefaults(req)

	parts := []string{"# of Opportunities"}
	if req.Measure == MeasureRevenue {
		parts = []string{req.Aggregation + " of Revenue"}
	}
	parts = append(parts, "by "+label(categoryOptions, req.Category))
	if req.BreakBy != BreakByNone {
		parts = append(parts, "and broken down by "+label(breakByOptions, req.BreakBy))
	}
	return strings.Join(parts, " ")
}

func label(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
