package dashboard

import (
	"github.com/GregMSThompson/crm-dashboard/internal/models"
)

// Default grid slot for a newly added widget.
const (
	DefaultWidth  = 6
	DefaultHeight = 8
)

// State is the dashboard's widgets and grid layout. Transitions return a new
// State and never mutate the receiver.
type State struct {
	Widgets []*models.Widget    `json:"widgets"`
	Layout  []models.LayoutItem `json:"layout"`
}

// NewState builds a state from loaded widgets and layout. Widgets without a
// layout entry are stacked at the bottom; entries naming no widget are dropped.
func NewState(widgets []*models.Widget, layout []models.LayoutItem) State {
	s := State{
		Widgets: append([]*models.Widget{}, widgets...),
		Layout:  []models.LayoutItem{},
	}
	known := s.ids()
	placed := map[string]bool{}
	for _, l := range layout {
		if !known[l.I] || placed[l.I] {
			continue
		}
		placed[l.I] = true
		s.Layout = append(s.Layout, l)
	}
	for _, w := range s.Widgets {
		if !placed[w.ID] {
			s.Layout = append(s.Layout, slot(w.ID, bottom(s.Layout)))
		}
	}
	return s
}

func (s State) ids() map[string]bool {
	out := make(map[string]bool, len(s.Widgets))
	for _, w := range s.Widgets {
		out[w.ID] = true
	}
	return out
}

func (s State) clone() State {
	return State{
		Widgets: append([]*models.Widget{}, s.Widgets...),
		Layout:  append([]models.LayoutItem{}, s.Layout...),
	}
}

func slot(id string, y int) models.LayoutItem {
	return models.LayoutItem{I: id, X: 0, Y: y, W: DefaultWidth, H: DefaultHeight}
}

// bottom is the first free row below every layout item.
func bottom(layout []models.LayoutItem) int {
	y := 0
	for _, l := range layout {
		if l.Y+l.H > y {
			y = l.Y + l.H
		}
	}
	return y
}

// Widget returns the widget with the given id.
func (s State) Widget(id string) (*models.Widget, bool) {
	for _, w := range s.Widgets {
		if w.ID == id {
			return w, true
		}
	}
	return nil, false
}

// LayoutFor returns the layout entry of the given widget.
func (s State) LayoutFor(id string) (models.LayoutItem, bool) {
	for _, l := range s.Layout {
		if l.I == id {
			return l, true
		}
	}
	return models.LayoutItem{}, false
}

// AddWidget appends w with a default slot at the bottom of the grid.
func (s State) AddWidget(w *models.Widget) State {
	next := s.clone()
	next.Layout = append(next.Layout, slot(w.ID, bottom(s.Layout)))
	next.Widgets = append(next.Widgets, w)
	return next
}

// RemoveWidget drops the widget and its layout entry. Unknown ids are a no-op.
func (s State) RemoveWidget(id string) State {
	next := State{
		Widgets: make([]*models.Widget, 0, len(s.Widgets)),
		Layout:  make([]models.LayoutItem, 0, len(s.Layout)),
	}
	for _, w := range s.Widgets {
		if w.ID != id {
			next.Widgets = append(next.Widgets, w)
		}
	}
	for _, l := range s.Layout {
		if l.I != id {
			next.Layout = append(next.Layout, l)
		}
	}
	return next
}

// ReplaceWidget swaps the widget sharing w's id, keeping its position and
// layout. The second return is false when no such widget exists.
func (s State) ReplaceWidget(w *models.Widget) (State, bool) {
	next := s.clone()
	for i, cur := range next.Widgets {
		if cur.ID == w.ID {
			next.Widgets[i] = w
			return next, true
		}
	}
	return s, false
}

// UpdateLayout applies grid positions reported by the client. Entries for
// unknown widgets are ignored and static entries keep their position.
func (s State) UpdateLayout(items []models.LayoutItem) State {
	next := s.clone()
	incoming := make(map[string]models.LayoutItem, len(items))
	for _, it := range items {
		incoming[it.I] = it
	}
	for i, cur := range next.Layout {
		if cur.Static {
			continue
		}
		if it, ok := incoming[cur.I]; ok {
			it.Static = false
			next.Layout[i] = it
		}
	}
	return next
}
