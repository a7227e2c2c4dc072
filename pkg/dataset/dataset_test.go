package dataset

import (
	"strings"
	"testing"
)

const sample = `hotel,is_canceled,lead_time,arrival_date_month,country,adr
Resort Hotel,0,342,July,PRT,0
City Hotel,1,85,August,,75.5
`

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.Hotel != "Resort Hotel" || first.Country != "PRT" || first.LeadTime != 342 {
		t.Errorf("first record = %+v", first)
	}
	if first.ADR != 0 || first.IsCanceled != 0 || first.ArrivalMonth != "July" {
		t.Errorf("first record = %+v", first)
	}
}

func TestRead_EmptyCountryPlaceholder(t *testing.T) {
	records, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[1].Country != "Unknown" {
		t.Errorf("country = %q, want Unknown", records[1].Country)
	}
}

func TestRead_ExtraColumnsIgnored(t *testing.T) {
	data := `hotel,country,lead_time,adr,is_canceled,arrival_date_month,agent,babies
City Hotel,ESP,10,99.9,0,May,240,0
`
	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].Country != "ESP" || records[0].ADR != 99.9 {
		t.Errorf("record = %+v", records[0])
	}
}

func TestRead_MissingColumn(t *testing.T) {
	data := "hotel,country,lead_time,adr,is_canceled\nA,B,1,2,0\n"
	if _, err := Read(strings.NewReader(data)); err == nil {
		t.Fatal("expected error for missing arrival_date_month")
	}
}

func TestRead_BadNumeric(t *testing.T) {
	data := `hotel,country,lead_time,adr,is_canceled,arrival_date_month
A,PRT,not-a-number,10,0,May
`
	_, err := Read(strings.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line-numbered parse error, got %v", err)
	}
}

func TestRead_HeaderOnly(t *testing.T) {
	data := "hotel,country,lead_time,adr,is_canceled,arrival_date_month\n"
	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestRead_Empty(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}
