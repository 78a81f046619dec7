package views

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	tests := []struct {
		name     string
		date     time.Time
		loc      *time.Location
		locale   string
		expected string
	}{
		{"pt-BR", time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC), sp, "pt-BR", "25 mar 2021"},
		{"zone shifts day", time.Date(2021, 3, 26, 1, 0, 0, 0, time.UTC), sp, "pt-BR", "25 mar 2021"},
		{"pt falls to pt-BR", time.Date(2021, 2, 5, 12, 0, 0, 0, time.UTC), time.UTC, "pt", "05 fev 2021"},
		{"english", time.Date(2021, 12, 5, 12, 0, 0, 0, time.UTC), time.UTC, "en-US", "Dec 5, 2021"},
		{"unknown locale", time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC), time.UTC, "xx-invalid-", "01 ago 2021"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDate(&tt.date, tt.loc, tt.locale)
			if got != tt.expected {
				t.Errorf("FormatDate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatDateNil(t *testing.T) {
	if got := FormatDate(nil, time.UTC, "pt-BR"); got != "" {
		t.Errorf("FormatDate(nil) = %q, want empty", got)
	}
}
