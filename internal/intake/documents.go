package intake

import "strings"

// UnknownTestKind is returned when a filename matches no known test.
const UnknownTestKind = "UNKNOWN_TEST"

// filenameKinds maps filename keywords to canonical test kinds, checked in
// order so more specific keywords win.
var filenameKinds = []struct {
	keyword string
	kind    string
}{
	{"semen", "Semen Analysis"},
	{"sperm", "Semen Analysis"},
	{"hsg", "HSG"},
	{"tube", "HSG"},
	{"patency", "HSG"},
	{"amh", "AMH"},
	{"tsh", "TSH"},
	{"fsh", "FSH"},
	{"lh", "LH"},
	{"prolactin", "Prolactin"},
	{"estradiol", "Estradiol E2"},
	{"afc", "AFC"},
	{"antral", "AFC"},
	{"scan", "Pelvic Ultrasound"},
	{"ultrasound", "Pelvic Ultrasound"},
	{"karyotype", "Genetic tests"},
	{"genetic", "Genetic tests"},
	{"thyroid", "TSH"},
}

// DetectTestKind identifies the test kind from an uploaded report's filename.
// Returns UnknownTestKind when nothing matches; callers reject those uploads
// at the boundary.
func DetectTestKind(filename string) string {
	fname := strings.ToLower(filename)
	for _, entry := range filenameKinds {
		if strings.Contains(fname, entry.keyword) {
			return entry.kind
		}
	}
	return UnknownTestKind
}

// panelKindsByLabel maps each intake panel label to the specific test kinds an
// upload under that label may carry. Used to check that a document's kind was
// actually reported during intake before accepting it.
var panelKindsByLabel = map[string][]string{
	"Hormonal blood tests": {"AMH", "TSH", "FSH", "LH", "Prolactin", "Estradiol E2", "Thyroid Antibodies", "Male Hormonal Profile"},
	"Ultrasound scans":     {"Pelvic Ultrasound", "AFC"},
	"Tube testing":         {"HSG", "Tubal Patency Test"},
	"Semen analysis":       {"Semen Analysis", "Semen Culture"},
	"Genetic tests":        {"Genetic tests", "Male Karyotype", "Female Karyotype", "Y-Chromosome Microdeletion"},
}

// KindReported reports whether a document of the given kind is covered by any
// test label reported during intake (either an exact label match or a member
// of a reported panel).
func KindReported(rec *Record, kind string) bool {
	for _, label := range rec.ReportedTests() {
		if strings.EqualFold(label, kind) {
			return true
		}
		for _, member := range panelKindsByLabel[label] {
			if strings.EqualFold(member, kind) {
				return true
			}
		}
	}
	return false
}
