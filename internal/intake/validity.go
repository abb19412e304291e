package intake

import (
	"strings"
	"time"
)

// Validity classifications returned by Classify.
const (
	ValidityValid         = "Valid"
	ValidityNoRepeat      = "Valid (no repetition required)"
	ValidityCloseToExpiry = "Close to expiry"
	ValidityExpired       = "Expired"
	ValidityDateUnknown   = "Date unknown"
)

// permanentWindowDays marks windows treated as "result never goes stale"
// (karyotypes, carrier screens, blood groups). Anything at or above this
// threshold classifies as the no-repetition variant and never expires.
const permanentWindowDays = 30000

// defaultWindowDays applies to test kinds missing from the table.
const defaultWindowDays = 180

// validityWindows maps a test kind to the number of days its result stays
// current. Values follow the clinic's reference table.
var validityWindows = map[string]int{
	// Male tests
	"Semen Analysis":                   90,
	"Semen Culture":                    90,
	"Sperm DNA Fragmentation":          180,
	"Sperm Vitality Test":              90,
	"Antisperm Antibodies":             180,
	"Male Hormonal Profile":            180,
	"Male Karyotype":                   36500,
	"Y-Chromosome Microdeletion":       36500,
	"Genetic Carrier Screening (Male)": 36500,
	"HIV (Male)":                       180,
	"HBsAg (Male)":                     180,
	"HCV (Male)":                       180,
	"Blood Group & Rh (Male)":          36500,

	// Female tests
	"AMH":                                365,
	"FSH":                                180,
	"LH":                                 180,
	"Estradiol E2":                       180,
	"Prolactin":                          180,
	"TSH":                                180,
	"Thyroid Antibodies":                 365,
	"AFC":                                180,
	"HSG":                                730,
	"Tubal Patency Test":                 730,
	"Pelvic Ultrasound":                  180,
	"HIV (Female)":                       180,
	"HBsAg (Female)":                     180,
	"HCV (Female)":                       180,
	"Blood Group & Rh (Female)":          36500,
	"Female Karyotype":                   36500,
	"Genetic Carrier Screening (Female)": 36500,

	// Panel labels used by the intake question options
	"Hormonal blood tests": 180,
	"Genetic tests":        36500,
	"Ultrasound scans":     180,
	"Tube testing":         730,
	"Semen analysis":       90,
}

// ValidityWindowDays returns the freshness window for a test kind, falling
// back to the first word of the label and then the 180-day default, so minor
// label variations ("AMH blood test") still resolve.
func ValidityWindowDays(testKind string) int {
	if days, ok := validityWindows[testKind]; ok {
		return days
	}
	if first, _, found := strings.Cut(testKind, " "); found {
		if days, ok := validityWindows[first]; ok {
			return days
		}
	}
	return defaultWindowDays
}

// ClassifyAt classifies a reported test date against the freshness window for
// its kind, evaluated at the supplied reference time. The date is the ISO
// string stored on the record; anything unparseable classifies as Date
// unknown rather than failing.
func ClassifyAt(testKind, testDate string, now time.Time) string {
	if testDate == "" {
		return ValidityDateUnknown
	}
	parsed, err := time.Parse(isoDate, testDate)
	if err != nil {
		return ValidityDateUnknown
	}

	window := ValidityWindowDays(testKind)
	elapsed := int(now.Sub(parsed).Hours() / 24)

	switch {
	case elapsed > window:
		return ValidityExpired
	case elapsed > window-30 && window < permanentWindowDays:
		return ValidityCloseToExpiry
	case window >= permanentWindowDays:
		return ValidityNoRepeat
	default:
		return ValidityValid
	}
}

// Classify evaluates against the current wall clock.
func Classify(testKind, testDate string) string {
	return ClassifyAt(testKind, testDate, time.Now().UTC())
}
