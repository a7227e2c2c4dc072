// Package dataset loads booking records from CSV exports. Columns are
// resolved by header name, so extra columns and column order do not
// matter.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bookinglens/bookinglens/engine/domain"
)

var requiredColumns = []string{
	"hotel",
	"country",
	"lead_time",
	"adr",
	"is_canceled",
	"arrival_date_month",
}

// Load reads booking records from the CSV file at path.
func Load(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses booking records from CSV data. The first row must be a
// header containing at least the booking columns; anything else is
// ignored. An empty country is recorded as the placeholder value.
func Read(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset: missing column %q", name)
		}
	}

	var records []domain.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (domain.Record, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	leadTime, err := strconv.Atoi(field("lead_time"))
	if err != nil {
		return domain.Record{}, fmt.Errorf("lead_time: %w", err)
	}
	adr, err := strconv.ParseFloat(field("adr"), 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("adr: %w", err)
	}
	isCanceled, err := strconv.Atoi(field("is_canceled"))
	if err != nil {
		return domain.Record{}, fmt.Errorf("is_canceled: %w", err)
	}

	country := field("country")
	if country == "" {
		country = domain.Placeholder
	}

	return domain.Record{
		Hotel:        field("hotel"),
		Country:      country,
		LeadTime:     leadTime,
		ADR:          adr,
		IsCanceled:   isCanceled,
		ArrivalMonth: field("arrival_date_month"),
	}, nil
}
