// Package domain defines the core types, constants, and validation for the
// bookinglens retrieval pipeline. It acts as the validation gate at pipeline
// entry points.
package domain

// Record is one booking row from the cleaned dataset. Only the fields below
// participate in retrieval; everything else in the source CSV is ignored.
type Record struct {
	Hotel        string  `json:"hotel"`
	Country      string  `json:"country"`
	LeadTime     int     `json:"lead_time"`
	ADR          float64 `json:"adr"`
	IsCanceled   int     `json:"is_canceled"`
	ArrivalMonth string  `json:"arrival_month"`
}

// Question is a user query against the indexed bookings.
type Question struct {
	Text string `json:"text"`
}

// Payload keys stored alongside each indexed passage.
const (
	PayloadText          = "text"
	PayloadSchemaVersion = "schema_version"
)
