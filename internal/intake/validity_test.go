package intake

import (
	"testing"
	"time"
)

func TestClassifyAtBoundaries(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	daysAgo := func(n int) string {
		return now.AddDate(0, 0, -n).Format(isoDate)
	}

	tests := []struct {
		name string
		kind string
		date string
		want string
	}{
		// Semen Analysis has a 90-day window.
		{"just expired", "Semen Analysis", daysAgo(91), ValidityExpired},
		{"at window edge", "Semen Analysis", daysAgo(90), ValidityCloseToExpiry},
		{"close to expiry", "Semen Analysis", daysAgo(65), ValidityCloseToExpiry},
		{"comfortably valid", "Semen Analysis", daysAgo(10), ValidityValid},
		{"karyotype never expires", "Male Karyotype", daysAgo(5000), ValidityNoRepeat},
		{"hsg two year window", "HSG", daysAgo(400), ValidityValid},
		{"amh expired", "AMH", daysAgo(400), ValidityExpired},
		{"missing date", "AMH", "", ValidityDateUnknown},
		{"unparseable date", "AMH", "sometime last spring", ValidityDateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAt(tt.kind, tt.date, now); got != tt.want {
				t.Fatalf("ClassifyAt(%q, %q) = %q, want %q", tt.kind, tt.date, got, tt.want)
			}
		})
	}
}

func TestValidityWindowFallbacks(t *testing.T) {
	if got := ValidityWindowDays("AMH blood test"); got != 365 {
		t.Fatalf("first-word fallback = %d, want 365", got)
	}
	if got := ValidityWindowDays("Completely Unknown Panel"); got != defaultWindowDays {
		t.Fatalf("default window = %d, want %d", got, defaultWindowDays)
	}
	if got := ValidityWindowDays("Hormonal blood tests"); got != 180 {
		t.Fatalf("panel label window = %d, want 180", got)
	}
}
