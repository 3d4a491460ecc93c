package dto

import (
	"github.com/GregMSThompson/crm-dashboard/internal/codec"
	"github.com/GregMSThompson/crm-dashboard/internal/dashboard"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/internal/schema"
)

// DashboardResponse is the loaded dashboard. Warnings list configuration
// elements dropped while rehydrating.
type DashboardResponse struct {
	Widgets  []*models.Widget    `json:"widgets"`
	Layout   []models.LayoutItem `json:"layout"`
	Warnings []codec.Warning     `json:"warnings,omitempty"`
}

type WidgetResponse struct {
	Widget *models.Widget     `json:"widget"`
	Layout *models.LayoutItem `json:"layout,omitempty"`
}

type UpdateLayoutRequest struct {
	Layout []models.LayoutItem `json:"layout" validate:"dive"`
}

type LayoutResponse struct {
	Layout []models.LayoutItem `json:"layout"`
}

type AddReferenceWidgetRequest struct {
	WidgetOid    string `json:"widgetOid" validate:"required,max=64"`
	DashboardOid string `json:"dashboardOid" validate:"required,max=64"`
	Title        string `json:"title" validate:"max=200"`
}

type SaveResponse struct {
	Saved    int             `json:"saved"`
	Warnings []codec.Warning `json:"warnings,omitempty"`
}

type SaveAsRequest struct {
	FolderID string `json:"folderId" validate:"required"`
	Name     string `json:"name" validate:"required,max=120"`
	Theme    string `json:"theme" validate:"omitempty,oneof=light dark"`
}

type SaveAsResponse struct {
	View     *models.View    `json:"view"`
	Warnings []codec.Warning `json:"warnings,omitempty"`
}

type DataSourceSchema struct {
	DataSource schema.DataSource   `json:"dataSource"`
	Dimensions []*schema.Dimension `json:"dimensions"`
}

type SchemaResponse struct {
	Builder     dashboard.Options  `json:"builder"`
	DataSources []DataSourceSchema `json:"dataSources"`
}
