package intake

import (
	"testing"
	"time"
)

func TestParseReportedDate(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		message string
		want    string
		ok      bool
	}{
		{"month name and year", "I did it in June 2024", "2024-06-01", true},
		{"abbreviated month", "sep 2025", "2025-09-01", true},
		{"month with comma", "January, 2023", "2023-01-01", true},
		{"iso date", "2025-11-03", "2025-11-03", true},
		{"day first slash date", "12/01/2025", "2025-01-12", true},
		{"month slash year", "6/2024", "2024-06-01", true},
		{"last month", "it was last month", "2026-02-01", true},
		{"bare year", "sometime in 2023", "2023-01-01", true},
		{"future year rejected", "in 2099 maybe", "", false},
		{"no date", "I am not sure", "", false},
		{"invalid calendar falls back to year", "2025-19-45", "2025-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseReportedDate(tt.message, now)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("date = %q, want %q", got, tt.want)
			}
		})
	}
}
