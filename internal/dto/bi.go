package dto

// BIWidget is the subset of a BI platform widget the service reads.
type BIWidget struct {
	Oid       string `json:"oid"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Dashboard string `json:"dashboardid"`
}
