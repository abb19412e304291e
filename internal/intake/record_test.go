package intake

import (
	"testing"
	"time"
)

func TestApplyClearsAmbiguousAgesWhenBothKnown(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.AmbiguousAges = []int{30, 33}

	rec.Apply(Update{FemaleAge: intPtr(30), MaleAge: intPtr(33)})

	if rec.AmbiguousAges != nil {
		t.Fatalf("buffer survived both ages being set: %v", rec.AmbiguousAges)
	}
}

func TestApplyClearsPendingWhenDurationKnown(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.PendingDuration = floatPtr(2)

	rec.Apply(Update{YearsTrying: floatPtr(2)})

	if rec.PendingDuration != nil {
		t.Fatalf("pending buffer survived duration being set")
	}
}

func TestReviewedFlagsAreMonotonic(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.TreatmentsReviewed = true
	rec.TestsReviewed = true
	rec.ReportsChecked = true

	rec.Apply(Update{
		TreatmentsReviewed: boolPtr(false),
		TestsReviewed:      boolPtr(false),
		ReportsChecked:     boolPtr(false),
	})

	if !rec.TreatmentsReviewed || !rec.TestsReviewed || !rec.ReportsChecked {
		t.Fatalf("a reviewed flag was reset to false")
	}
}

func TestApplyRejectsUnknownEnumValues(t *testing.T) {
	rec := NewRecord("s", time.Now())

	bogusType := TreatmentType("Surgery")
	bogusReg := Regularity("Mostly")
	rec.Apply(Update{TreatmentType: &bogusType, Regularity: &bogusReg})

	if rec.TreatmentType != TreatmentUnknown {
		t.Fatalf("unknown treatment type accepted: %v", rec.TreatmentType)
	}
	if rec.Regularity != RegularityUnknown {
		t.Fatalf("unknown regularity accepted: %v", rec.Regularity)
	}
}

func TestTestDatesAreWriteOnce(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.Apply(Update{TestDates: map[string]string{"AMH": "2025-01-01"}})
	rec.Apply(Update{TestDates: map[string]string{"AMH": "2026-06-06"}})

	if rec.TestDates["AMH"] != "2025-01-01" {
		t.Fatalf("test date overwritten: %v", rec.TestDates["AMH"])
	}
}

func TestDocumentDatesOnlyFillEmptySlots(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.Documents = []Document{
		{TestKind: "AMH", TestDate: "2025-01-01"},
		{TestKind: "TSH"},
	}

	rec.Apply(Update{DocumentDates: map[int]string{0: "2026-01-01", 1: "2026-02-01", 7: "2026-03-01"}})

	if rec.Documents[0].TestDate != "2025-01-01" {
		t.Fatalf("existing document date overwritten")
	}
	if rec.Documents[1].TestDate != "2026-02-01" {
		t.Fatalf("empty document date not filled")
	}
}

func TestPartnerFlow(t *testing.T) {
	rec := NewRecord("s", time.Now())
	if rec.PartnerFlow() {
		t.Fatalf("empty record must not be partner flow")
	}

	rec.PartnerType = PartnerTypePartner
	if !rec.PartnerFlow() {
		t.Fatalf("declared partner must be partner flow")
	}

	rec = NewRecord("s", time.Now())
	rec.PartnerPresent = boolPtr(true)
	rec.PartnerType = PartnerTypeDonor
	if rec.PartnerFlow() {
		t.Fatalf("donor flow must not be partner flow")
	}
}

func TestReportedTestsOrderAndFiltering(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.FemaleTests = []string{"Hormonal blood tests", TestNone, "Ultrasound scans"}
	rec.MaleTests = []string{"Semen analysis"}

	got := rec.ReportedTests()
	want := []string{"Hormonal blood tests", "Ultrasound scans", "Semen analysis"}
	if len(got) != len(want) {
		t.Fatalf("reported tests = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reported tests = %v, want %v", got, want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rec := NewRecord("s", time.Now())
	rec.FemaleAge = intPtr(30)
	rec.FemaleTests = []string{"AMH"}
	rec.TestDates = map[string]string{"AMH": "2025-01-01"}

	cp := rec.Clone()
	*cp.FemaleAge = 99
	cp.FemaleTests[0] = "changed"
	cp.TestDates["AMH"] = "changed"

	if *rec.FemaleAge != 30 || rec.FemaleTests[0] != "AMH" || rec.TestDates["AMH"] != "2025-01-01" {
		t.Fatalf("clone shares memory with original")
	}
}
