package intake

import (
	"fmt"
	"strings"
)

// SectionA renders the "My Understanding" confirmation document from the
// record. Deterministic templating only; the same record always renders the
// same text.
func SectionA(r *Record) string {
	var b strings.Builder
	b.WriteString("Section A: My Understanding\n\n")

	fmt.Fprintf(&b, "- Age: %s\n", ageLine(r))
	fmt.Fprintf(&b, "- Duration trying to conceive: %s\n", durationLine(r))

	if r.Regularity != RegularityUnknown {
		fmt.Fprintf(&b, "- Menstrual history: %s\n", menstrualLine(r))
	}
	if r.Difficulty != DifficultyUnknown {
		fmt.Fprintf(&b, "- Intercourse difficulty: %s\n", difficultyLine(r.Difficulty))
	}

	fmt.Fprintf(&b, "- Previous pregnancies: %s\n", pregnancyLine(r))
	fmt.Fprintf(&b, "- Fertility treatments: %s\n", treatmentLine(r))
	fmt.Fprintf(&b, "- Tests done: %s\n", testsLine(r.FemaleTests))
	if r.PartnerFlow() {
		fmt.Fprintf(&b, "- Partner tests done: %s\n", testsLine(r.MaleTests))
	}
	fmt.Fprintf(&b, "- Reports available: %s\n", reportsLine(r.ReportsAvailability))

	b.WriteString("\nPlease let me know if I’ve understood this correctly so far.")
	return b.String()
}

func ageLine(r *Record) string {
	line := "Unclear"
	if r.FemaleAge != nil {
		line = fmt.Sprintf("%d", *r.FemaleAge)
	}
	switch {
	case r.PartnerFlow():
		if r.MaleAge != nil {
			line += fmt.Sprintf(" (Partner: %d)", *r.MaleAge)
		} else {
			line += " (Partner: Unclear)"
		}
	case r.PartnerType == PartnerTypeDonor:
		line += " (Donor sperm planning)"
	}
	return line
}

func durationLine(r *Record) string {
	if r.YearsTrying == nil {
		return "Unclear"
	}
	return formatNumber(*r.YearsTrying) + " years"
}

func menstrualLine(r *Record) string {
	reg := string(r.Regularity)
	if r.Regularity == RegularityNotSure {
		reg = "Not sure"
	}
	if r.CycleLength != "" {
		return reg + ", " + r.CycleLength
	}
	return reg
}

func difficultyLine(d Difficulty) string {
	switch d {
	case DifficultyNone:
		return "None"
	case DifficultySometimes:
		return "Sometimes"
	case DifficultyRarely:
		return "Rarely"
	case DifficultyNotApplicable:
		return "Not applicable"
	}
	return "Unclear"
}

func pregnancyLine(r *Record) string {
	switch {
	case r.HasPriorPregnancies == nil:
		return "Unclear"
	case !*r.HasPriorPregnancies:
		return "None reported"
	}
	source := "Unknown source"
	switch r.PregnancySource {
	case PregnancySourceNatural:
		source = "Natural"
	case PregnancySourceTreatment:
		source = "After treatment"
	case PregnancySourceUnsure:
		source = "Unsure source"
	}
	outcome := "outcome unknown"
	switch r.PregnancyOutcome {
	case PregnancyOutcomeMiscarriage:
		outcome = "miscarriage"
	case PregnancyOutcomeEctopic:
		outcome = "ectopic"
	case PregnancyOutcomeChemical:
		outcome = "chemical pregnancy"
	case PregnancyOutcomeLiveBirth:
		outcome = "live birth"
	case PregnancyOutcomeOngoing:
		outcome = "ongoing"
	}
	return fmt.Sprintf("%s pregnancy, %s", source, outcome)
}

func treatmentLine(r *Record) string {
	switch {
	case r.HadTreatments == nil:
		return "Pending"
	case !*r.HadTreatments:
		return "None so far"
	}
	switch r.TreatmentType {
	case TreatmentIVF:
		if r.IVFCycles != nil {
			return fmt.Sprintf("IVF (%d cycles)", *r.IVFCycles)
		}
		return "IVF"
	case TreatmentIUI:
		if r.IUICycles != nil {
			return fmt.Sprintf("IUI (%d cycles)", *r.IUICycles)
		}
		return "IUI"
	case TreatmentMedications:
		return "Medications only"
	}
	return "Yes (Type unclear)"
}

func testsLine(tests []string) string {
	if len(tests) == 0 {
		return "None"
	}
	if len(tests) == 1 && tests[0] == TestNone {
		return "None"
	}
	return strings.Join(tests, ", ")
}

func reportsLine(a ReportsAvailability) string {
	switch a {
	case ReportsYes:
		return "Yes"
	case ReportsSome:
		return "Some"
	default:
		return "No"
	}
}

// ValiditySummary renders the report-validity overview shown once document
// collection finishes. Documents render in upload order.
func ValiditySummary(docs []Document) string {
	var b strings.Builder
	b.WriteString("Report Validity Summary\n\n")
	for _, doc := range docs {
		date := doc.TestDate
		if date == "" {
			date = "Date unknown"
		}
		status := doc.Validity
		if status == "" {
			status = "Pending"
		}
		fmt.Fprintf(&b, "• %s (%s) → %s\n", doc.TestKind, date, status)
	}
	b.WriteString("\nNotes:\n")
	b.WriteString("Different laboratories may use different reference ranges.\n")
	b.WriteString("I will review the specific values in the next step before drawing conclusions.")
	return b.String()
}
