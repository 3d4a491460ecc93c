package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		table  string
		column string
		ok     bool
	}{
		{name: "simple", expr: "[Opportunities.Value]", table: "Opportunities", column: "Value", ok: true},
		{name: "spaces", expr: "[Account Executives.Account Executive]", table: "Account Executives", column: "Account Executive", ok: true},
		{name: "calendar column", expr: "[Opportunities.Close Date (Calendar)]", table: "Opportunities", column: "Close Date (Calendar)", ok: true},
		{name: "not bracketed", expr: "NotBracketed"},
		{name: "only table", expr: "[OnlyTable]"},
		{name: "too many dots", expr: "[A.B.C]"},
		{name: "empty column", expr: "[A.]"},
		{name: "empty table", expr: "[.B]"},
		{name: "trailing text", expr: "[A.B] extra"},
		{name: "empty", expr: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, column, ok := ParseExpression(tt.expr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.table, table)
			assert.Equal(t, tt.column, column)
		})
	}
}

func TestFindAttribute(t *testing.T) {
	r := BestCRM()

	a, err := r.FindAttribute(TableOpportunities, "Value")
	require.NoError(t, err)
	assert.Equal(t, "[Opportunities.Value]", a.Expression)
	assert.Equal(t, NumericAttribute, a.Type)

	byName, err := r.FindAttribute(TableOpportunities, "Close Date")
	require.NoError(t, err)
	byColumn, err := r.FindAttribute(TableOpportunities, "Close Date (Calendar)")
	require.NoError(t, err)
	assert.Same(t, byName, byColumn)
	assert.True(t, byName.IsDate())
}

func TestFindAttribute_Unknown(t *testing.T) {
	r := BestCRM()

	_, err := r.FindAttribute("Nonexistent", "X")
	assert.True(t, errors.Is(err, ErrUnknownTable))

	_, err = r.FindAttribute(TableOpportunities, "X")
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	// table names are case-sensitive
	_, err = r.FindAttribute("opportunities", "Value")
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestBestCRM3_LacksAvatars(t *testing.T) {
	_, err := BestCRM().FindAttribute(TableManagers, "Avatar")
	require.NoError(t, err)

	_, err = BestCRM3().FindAttribute(TableManagers, "Avatar")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.Equal(t, BestCRM3Title, BestCRM3().MustAttribute(TableManagers, "Sales Manager").DataSource.Title)
}

func TestNewRegistry_RejectsMismatchedTable(t *testing.T) {
	_, err := NewRegistry(DataSource{Title: "x"}, &Dimension{
		Name:       "Orders",
		Attributes: []*Attribute{{Name: "Id", Expression: "[Order.Id]"}},
	})
	assert.Error(t, err)
}

func TestNewRegistry_RejectsDuplicateExpression(t *testing.T) {
	_, err := NewRegistry(DataSource{Title: "x"}, &Dimension{
		Name: "Orders",
		Attributes: []*Attribute{
			{Name: "Id", Expression: "[Orders.Id]"},
			{Name: "Other", Expression: "[Orders.Id]"},
		},
	})
	assert.Error(t, err)
}

func TestNewRegistry_RejectsNameShadowingColumn(t *testing.T) {
	tests := []struct {
		name  string
		attrs []*Attribute
	}{
		{"alias before column", []*Attribute{
			{Name: "Total", Expression: "[Orders.Amount]"},
			{Name: "Grand Total", Expression: "[Orders.Total]"},
		}},
		{"column before alias", []*Attribute{
			{Name: "Grand Total", Expression: "[Orders.Total]"},
			{Name: "Total", Expression: "[Orders.Amount]"},
		}},
		{"two aliases", []*Attribute{
			{Name: "Total", Expression: "[Orders.Amount]"},
			{Name: "Total", Expression: "[Orders.Net]"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(DataSource{Title: "x"}, &Dimension{Name: "Orders", Attributes: tt.attrs})
			assert.Error(t, err)
		})
	}

	r, err := NewRegistry(DataSource{Title: "x"}, &Dimension{Name: "Orders", Attributes: []*Attribute{
		{Name: "Total", Expression: "[Orders.Amount]"},
		{Name: "Net", Expression: "[Orders.Net]"},
	}})
	require.NoError(t, err)
	a, err := r.FindAttribute("Orders", "Total")
	require.NoError(t, err)
	assert.Equal(t, "[Orders.Amount]", a.Expression)
}

func TestAtLevel(t *testing.T) {
	closeDate := BestCRM().MustAttribute(TableOpportunities, "Close Date")

	months, err := closeDate.AtLevel(LevelMonths)
	require.NoError(t, err)
	assert.Equal(t, LevelMonths, months.Level)
	assert.Empty(t, closeDate.Level, "projection must not mutate the registry entry")
	assert.False(t, months.Same(closeDate))

	_, err = closeDate.AtLevel("Fortnights")
	assert.True(t, errors.Is(err, ErrUnknownLevel))

	_, err = BestCRM().MustAttribute(TableOpportunities, "Value").AtLevel(LevelMonths)
	assert.Error(t, err)
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	r, ok := c.Lookup(BestCRM3Title)
	assert.True(t, ok)
	assert.Same(t, BestCRM3(), r)

	r, ok = c.Lookup("")
	assert.False(t, ok)
	assert.Same(t, BestCRM(), r)

	assert.Equal(t, []string{BestCRMTitle, BestCRM3Title}, c.Titles())
}
