package schema

import (
	"errors"
	"fmt"
	"regexp"
)

// AttributeType tags the kind of column an attribute points at.
type AttributeType string

const (
	TextAttribute    AttributeType = "text-attribute"
	NumericAttribute AttributeType = "numeric-attribute"
	DateDimension    AttributeType = "datedimension"
)

// Date dimension granularities.
const (
	LevelYears    = "Years"
	LevelQuarters = "Quarters"
	LevelMonths   = "Months"
	LevelWeeks    = "Weeks"
	LevelDays     = "Days"
)

var dateLevels = map[string]bool{
	LevelYears:    true,
	LevelQuarters: true,
	LevelMonths:   true,
	LevelWeeks:    true,
	LevelDays:     true,
}

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrUnknownLevel  = errors.New("unknown date level")
)

// DataSource identifies the cube an attribute belongs to.
type DataSource struct {
	Title string `json:"title" firestore:"title"`
	Type  string `json:"type,omitempty" firestore:"type,omitempty"`
	Live  bool   `json:"live" firestore:"live"`
}

// Attribute is a named, typed reference to one warehouse column.
type Attribute struct {
	Name       string        `json:"name"`
	Type       AttributeType `json:"type"`
	Expression string        `json:"expression"`
	DataSource DataSource    `json:"dataSource"`
	// Level is set only on date dimension projections (e.g. CloseDate.Months).
	Level string `json:"level,omitempty"`
}

// IsDate reports whether the attribute is a date dimension.
func (a *Attribute) IsDate() bool {
	return a.Type == DateDimension
}

// AtLevel returns a copy of a date dimension projected to the given granularity.
func (a *Attribute) AtLevel(level string) (*Attribute, error) {
	if !a.IsDate() {
		return nil, fmt.Errorf("%s is not a date dimension", a.Name)
	}
	if !dateLevels[level] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
	out := *a
	out.Level = level
	return &out, nil
}

// Same reports whether two attributes reference the same column at the same level.
func (a *Attribute) Same(b *Attribute) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Expression == b.Expression && a.Level == b.Level
}

// Dimension groups the attributes of one logical table.
type Dimension struct {
	Name       string       `json:"name"`
	Attributes []*Attribute `json:"attributes"`
}

// Field returns the attribute with the given display name.
func (d *Dimension) Field(name string) *Attribute {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

var expressionPattern = regexp.MustCompile(`^\[([^.\[\]]+)\.([^.\[\]]+)\]$`)

// ParseExpression splits a "[Table.Column]" expression. Anything else,
// including expressions with more than one dot, does not parse.
func ParseExpression(expr string) (table, column string, ok bool) {
	m := expressionPattern.FindStringSubmatch(expr)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Expression builds the symbolic expression for a table column.
func Expression(table, column string) string {
	return "[" + table + "." + column + "]"
}
