package intake

import (
	"testing"
	"time"
)

func TestDetectTestKind(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"semen_analysis_2025.pdf", "Semen Analysis"},
		{"Sperm-Report.PDF", "Semen Analysis"},
		{"hsg_scan.pdf", "HSG"},
		{"tubal_patency.jpg", "HSG"},
		{"amh-jan.pdf", "AMH"},
		{"thyroid_panel.pdf", "TSH"},
		{"pelvic_ultrasound.png", "Pelvic Ultrasound"},
		{"karyotype_report.pdf", "Genetic tests"},
		{"holiday_photo.jpg", UnknownTestKind},
	}

	for _, tt := range tests {
		if got := DetectTestKind(tt.filename); got != tt.want {
			t.Fatalf("DetectTestKind(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestKindReported(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.FemaleTests = []string{"Hormonal blood tests", "Tube testing"}
	rec.MaleTests = []string{"Semen analysis"}

	tests := []struct {
		kind string
		want bool
	}{
		{"AMH", true},                // member of the hormonal panel
		{"HSG", true},                // member of tube testing
		{"Semen Analysis", true},     // member of the semen panel label
		{"Pelvic Ultrasound", false}, // ultrasound panel never reported
		{"Genetic tests", false},
	}

	for _, tt := range tests {
		if got := KindReported(rec, tt.kind); got != tt.want {
			t.Fatalf("KindReported(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
