package domain

import (
	"strconv"
	"strings"
)

// PassageSchemaVersion tags indexed passages so a change to field order or
// formatting can be detected and stale entries re-embedded.
const PassageSchemaVersion = 1

// Placeholder substitutes missing string fields so passage building stays
// total over partially-filled records.
const Placeholder = "Unknown"

// BuildPassage renders a booking record as one retrievable text passage.
// The field order is fixed (hotel, country, lead_time, adr, is_canceled,
// arrival_month); changing it invalidates previously stored embeddings.
func BuildPassage(r Record) string {
	fields := []string{
		orPlaceholder(r.Hotel),
		orPlaceholder(r.Country),
		strconv.Itoa(r.LeadTime),
		strconv.FormatFloat(r.ADR, 'f', -1, 64),
		strconv.Itoa(r.IsCanceled),
		orPlaceholder(r.ArrivalMonth),
	}
	return strings.Join(fields, " ")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
