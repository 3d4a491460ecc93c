package models

import "time"

// Folder groups saved dashboard views.
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// View is a named "Save As" snapshot of the dashboard.
type View struct {
	ViewID    string         `json:"viewId"`
	FolderID  string         `json:"folderId"`
	Name      string         `json:"name"`
	Theme     string         `json:"theme"`
	Widgets   []WidgetRecord `json:"widgets"`
	CreatedAt time.Time      `json:"createdAt"`
}
