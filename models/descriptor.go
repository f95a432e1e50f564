package models

import "net/url"

// Button is a sub-category selector on the publisher's site.
type Button struct {
	Name   string // query parameter name
	Value  string // query parameter value
	Option string // caller-facing key, e.g. VINIFERAS
	Label  string // classification label written to Botao
}

// Descriptor is the static configuration of one dataset.
type Descriptor struct {
	Category  Category
	Option    string
	SiteURL   string
	CSVURLs   []string
	Buttons   []Button
	FirstYear int
	LastYear  int
}

// RowRole is the structural role of a scraped table row.
type RowRole string

const (
	RoleHeader  RowRole = "header"
	RoleData    RowRole = "data"
	RoleSubitem RowRole = "subitem"
	RoleTotal   RowRole = "total"
)

// RawRow is one table row before transformation.
type RawRow struct {
	Cells          []string
	Role           RowRole
	Classification string
}

// Source names where a result came from.
type Source string

const (
	SourceSite Source = "site"
	SourceCSV  Source = "csv"
)

// Attempt tracks one façade call for logging.
type Attempt struct {
	Category Category
	Source   Source
	Count    int
	Outcome  string
}

// PageURL is the category's landing page, used for health checks.
func (d Descriptor) PageURL() string {
	return d.QueryURL(url.Values{"opcao": {d.Option}})
}

// QueryURL returns SiteURL with params merged into any query it already
// carries. params win on conflicting keys.
func (d Descriptor) QueryURL(params url.Values) string {
	u, err := url.Parse(d.SiteURL)
	if err != nil {
		return d.SiteURL + "?" + params.Encode()
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String()
}
