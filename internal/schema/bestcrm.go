package schema

// Data source titles.
const (
	BestCRMTitle  = "BestCRM"
	BestCRM3Title = "BestCRM3"
)

// Table names as they appear in expressions.
const (
	TableAccountExecutives = "Account Executives"
	TableAccounts          = "Accounts"
	TableCountries         = "Countries"
	TableIndustries        = "Industries"
	TableManagers          = "Managers"
	TableOpportunities     = "Opportunities"
	TableOutreaches        = "Outreaches"
	TableStatus            = "Status"
)

type declaration struct {
	table  string
	fields []field
}

type field struct {
	name   string
	column string
	typ    AttributeType
}

func text(name string) field    { return field{name: name, column: name, typ: TextAttribute} }
func numeric(name string) field { return field{name: name, column: name, typ: NumericAttribute} }
func date(name string) field {
	return field{name: name, column: name + " (Calendar)", typ: DateDimension}
}

func (d declaration) build(ds DataSource) *Dimension {
	dim := &Dimension{Name: d.table}
	for _, f := range d.fields {
		dim.Attributes = append(dim.Attributes, &Attribute{
			Name:       f.name,
			Type:       f.typ,
			Expression: Expression(d.table, f.column),
			DataSource: DataSource{Title: ds.Title, Live: false},
		})
	}
	return dim
}

func build(ds DataSource, decls []declaration) *Registry {
	dims := make([]*Dimension, 0, len(decls))
	for _, d := range decls {
		dims = append(dims, d.build(ds))
	}
	return MustRegistry(ds, dims...)
}

var bestCRMDeclarations = []declaration{
	{table: TableAccountExecutives, fields: []field{text("Account Executive"), text("Avatar")}},
	{table: TableAccounts, fields: []field{text("Account Name")}},
	{table: TableCountries, fields: []field{text("Country"), text("Region")}},
	{table: TableIndustries, fields: []field{text("Industry")}},
	{table: TableManagers, fields: []field{text("Avatar"), text("Sales Manager")}},
	{table: TableOpportunities, fields: []field{
		numeric("isMTD"),
		numeric("isQTD"),
		numeric("isYTD"),
		text("Opportunity Id"),
		text("Opportunity Name"),
		numeric("Value"),
		date("Close Date"),
		date("Creation Date"),
	}},
	{table: TableOutreaches, fields: []field{text("Outreach Message")}},
	{table: TableStatus, fields: []field{text("Status")}},
}

// BestCRM3 is the same cube without the avatar columns.
var bestCRM3Declarations = []declaration{
	{table: TableAccountExecutives, fields: []field{text("Account Executive")}},
	{table: TableAccounts, fields: []field{text("Account Name")}},
	{table: TableCountries, fields: []field{text("Country"), text("Region")}},
	{table: TableIndustries, fields: []field{text("Industry")}},
	{table: TableManagers, fields: []field{text("Sales Manager")}},
	{table: TableOpportunities, fields: []field{
		numeric("isMTD"),
		numeric("isQTD"),
		numeric("isYTD"),
		text("Opportunity Id"),
		text("Opportunity Name"),
		numeric("Value"),
		date("Close Date"),
		date("Creation Date"),
	}},
	{table: TableOutreaches, fields: []field{text("Outreach Message")}},
	{table: TableStatus, fields: []field{text("Status")}},
}

var (
	bestCRM  = build(DataSource{Title: BestCRMTitle, Type: "elasticube"}, bestCRMDeclarations)
	bestCRM3 = build(DataSource{Title: BestCRM3Title, Type: "elasticube"}, bestCRM3Declarations)
)

// BestCRM returns the registry of the BestCRM cube.
func BestCRM() *Registry { return bestCRM }

// BestCRM3 returns the registry of the BestCRM3 cube.
func BestCRM3() *Registry { return bestCRM3 }

// DefaultCatalog serves BestCRM by default and knows BestCRM3.
func DefaultCatalog() *Catalog {
	return NewCatalog(bestCRM, bestCRM3)
}
