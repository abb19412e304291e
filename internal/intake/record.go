package intake

import (
	"time"
)

// Phase identifies which major stage of the conversation a session is in.
type Phase string

const (
	PhaseIntake    Phase = "intake"
	PhaseDocuments Phase = "document_collection"
	PhaseComplete  Phase = "complete"
)

// Status is the intake sub-status within PhaseIntake.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusSummarized Status = "summarized"
	StatusConfirmed  Status = "confirmed"
)

// PartnerType describes how the male gametes enter the picture.
type PartnerType string

const (
	PartnerTypeUnknown PartnerType = ""
	PartnerTypePartner PartnerType = "Partner"
	PartnerTypeDonor   PartnerType = "Donor"
	PartnerTypeUnsure  PartnerType = "Unsure"
)

// Regularity is the reported menstrual cycle regularity.
type Regularity string

const (
	RegularityUnknown   Regularity = ""
	RegularityRegular   Regularity = "Regular"
	RegularityIrregular Regularity = "Irregular"
	RegularityNotSure   Regularity = "NotSure"
)

// Difficulty is the intercourse-difficulty screening answer.
type Difficulty string

const (
	DifficultyUnknown       Difficulty = ""
	DifficultyNone          Difficulty = "None"
	DifficultySometimes     Difficulty = "Sometimes"
	DifficultyRarely        Difficulty = "Rarely"
	DifficultyNotApplicable Difficulty = "NotApplicable"
)

// TreatmentType is the primary prior fertility treatment reported.
type TreatmentType string

const (
	TreatmentUnknown     TreatmentType = ""
	TreatmentIVF         TreatmentType = "IVF"
	TreatmentIUI         TreatmentType = "IUI"
	TreatmentMedications TreatmentType = "Medications"
	TreatmentNone        TreatmentType = "None"
)

// TransferType describes the most recent IVF embryo transfer.
type TransferType string

const (
	TransferUnknown TransferType = ""
	TransferFresh   TransferType = "Fresh"
	TransferFrozen  TransferType = "Frozen"
)

// PregnancySource describes how a prior pregnancy came about.
type PregnancySource string

const (
	PregnancySourceUnknown   PregnancySource = ""
	PregnancySourceNatural   PregnancySource = "Natural"
	PregnancySourceTreatment PregnancySource = "Treatment"
	PregnancySourceUnsure    PregnancySource = "Unsure"
)

// PregnancyOutcome is the outcome of the prior pregnancy.
type PregnancyOutcome string

const (
	PregnancyOutcomeUnknown     PregnancyOutcome = ""
	PregnancyOutcomeMiscarriage PregnancyOutcome = "Miscarriage"
	PregnancyOutcomeEctopic     PregnancyOutcome = "Ectopic"
	PregnancyOutcomeChemical    PregnancyOutcome = "Chemical"
	PregnancyOutcomeLiveBirth   PregnancyOutcome = "LiveBirth"
	PregnancyOutcomeOngoing     PregnancyOutcome = "Ongoing"
)

// ReportsAvailability records whether the patient holds copies of their reports.
type ReportsAvailability string

const (
	ReportsUnknown ReportsAvailability = ""
	ReportsYes     ReportsAvailability = "Yes"
	ReportsNo      ReportsAvailability = "No"
	ReportsSome    ReportsAvailability = "Some"
)

// Confirmation is the tri-state answer to the Section A summary.
type Confirmation string

const (
	ConfirmationPending   Confirmation = ""
	ConfirmationConfirmed Confirmation = "Confirmed"
	ConfirmationRejected  Confirmation = "Rejected"
)

// TestNone is the single-element list value meaning "no tests done".
const TestNone = "None"

// Document describes one uploaded report during the document-collection phase.
type Document struct {
	TestKind   string    `json:"test_kind"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	// TestDate is the reported date of the underlying test, ISO "2006-01-02".
	// Empty until the patient supplies it.
	TestDate string `json:"test_date,omitempty"`
	Validity string `json:"validity,omitempty"`
}

// Record is the flat per-session case record built up across turns. Optional
// fields use pointers: nil means "unknown / unanswered", which is distinct
// from an explicit false or zero answer.
type Record struct {
	SessionID string `json:"session_id"`

	Phase      Phase  `json:"phase"`
	Status     Status `json:"status"`
	IntroShown bool   `json:"intro_shown"`

	// Partner context
	PartnerPresent *bool       `json:"partner_present,omitempty"`
	PartnerType    PartnerType `json:"partner_type,omitempty"`

	// Ages. AmbiguousAges holds an ordered pair of numbers whose ownership
	// could not be determined; it is mutually exclusive with the named ages.
	FemaleAge     *int  `json:"female_age,omitempty"`
	MaleAge       *int  `json:"male_age,omitempty"`
	AmbiguousAges []int `json:"ambiguous_ages,omitempty"`

	// Relationship
	FirstMarriage *bool    `json:"first_marriage,omitempty"`
	YearsMarried  *float64 `json:"years_married,omitempty"`

	// Timeline. PendingDuration buffers a bare number awaiting a
	// years-vs-months clarification; mutually exclusive with YearsTrying.
	YearsTrying     *float64 `json:"years_trying,omitempty"`
	PendingDuration *float64 `json:"pending_duration,omitempty"`

	// Pregnancy history
	HasPriorPregnancies *bool            `json:"has_prior_pregnancies,omitempty"`
	PregnancySource     PregnancySource  `json:"pregnancy_source,omitempty"`
	PregnancyOutcome    PregnancyOutcome `json:"pregnancy_outcome,omitempty"`

	// Menstrual history
	Regularity  Regularity `json:"menstrual_regularity,omitempty"`
	CycleLength string     `json:"cycle_length,omitempty"`
	Predictable *bool      `json:"cycle_predictable,omitempty"`
	MenarcheAge *int       `json:"menarche_age,omitempty"`

	// Sexual history
	Difficulty Difficulty `json:"intercourse_difficulty,omitempty"`

	// Treatments
	TreatmentsReviewed bool          `json:"treatments_reviewed"`
	HadTreatments      *bool         `json:"had_treatments,omitempty"`
	TreatmentType      TreatmentType `json:"treatment_type,omitempty"`
	IVFCycles          *int          `json:"ivf_cycles,omitempty"`
	IUICycles          *int          `json:"iui_cycles,omitempty"`
	LastTransferType   TransferType  `json:"last_transfer_type,omitempty"`
	LastOutcome        string        `json:"last_outcome,omitempty"`

	// Tests
	TestsReviewed     bool              `json:"tests_reviewed"`
	FemaleTests       []string          `json:"female_tests,omitempty"`
	MaleTests         []string          `json:"male_tests,omitempty"`
	TestDates         map[string]string `json:"test_dates,omitempty"`
	ActiveDateInquiry string            `json:"active_date_inquiry,omitempty"`

	// Reports
	ReportsAvailability ReportsAvailability `json:"reports_availability,omitempty"`
	ReportsChecked      bool                `json:"reports_checked"`

	Confirmation Confirmation `json:"confirmation,omitempty"`

	// Document collection (phase 2)
	Documents       []Document `json:"documents,omitempty"`
	UploadsFinished bool       `json:"uploads_finished"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord returns an empty record for a fresh session.
func NewRecord(sessionID string, now time.Time) *Record {
	return &Record{
		SessionID: sessionID,
		Phase:     PhaseIntake,
		Status:    StatusCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PartnerFlow reports whether the conversation follows the partner branch of
// the ladder (as opposed to the donor / exploring branches).
func (r *Record) PartnerFlow() bool {
	if r.PartnerType == PartnerTypePartner {
		return true
	}
	return r.PartnerPresent != nil && *r.PartnerPresent && r.PartnerType != PartnerTypeDonor
}

// PartnerPlausible reports whether a partner could be present, which gates
// buffering two unanchored numbers as an ambiguous age pair.
func (r *Record) PartnerPlausible() bool {
	if r.PartnerType == PartnerTypeDonor {
		return false
	}
	return r.PartnerPresent == nil || *r.PartnerPresent
}

// HasRealFemaleTests reports whether any female test beyond "None" was reported.
func (r *Record) HasRealFemaleTests() bool {
	return hasRealTests(r.FemaleTests)
}

// HasRealMaleTests reports whether any male test beyond "None" was reported.
func (r *Record) HasRealMaleTests() bool {
	return hasRealTests(r.MaleTests)
}

func hasRealTests(tests []string) bool {
	for _, t := range tests {
		if t != TestNone {
			return true
		}
	}
	return false
}

// ReportedTests returns every reported test label in the fixed concatenation
// order female-then-male, excluding the "None" placeholder.
func (r *Record) ReportedTests() []string {
	var out []string
	for _, t := range r.FemaleTests {
		if t != TestNone {
			out = append(out, t)
		}
	}
	for _, t := range r.MaleTests {
		if t != TestNone {
			out = append(out, t)
		}
	}
	return out
}

// FirstUndatedDocument returns the index of the earliest-uploaded document
// still missing a test date, or -1 if all documents are dated.
func (r *Record) FirstUndatedDocument() int {
	for i := range r.Documents {
		if r.Documents[i].TestDate == "" {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the record. Stores hand out clones so callers
// can never mutate shared state outside an Update callback.
func (r *Record) Clone() *Record {
	cp := *r
	cp.PartnerPresent = clonePtr(r.PartnerPresent)
	cp.FemaleAge = clonePtr(r.FemaleAge)
	cp.MaleAge = clonePtr(r.MaleAge)
	cp.AmbiguousAges = append([]int(nil), r.AmbiguousAges...)
	cp.FirstMarriage = clonePtr(r.FirstMarriage)
	cp.YearsMarried = clonePtr(r.YearsMarried)
	cp.YearsTrying = clonePtr(r.YearsTrying)
	cp.PendingDuration = clonePtr(r.PendingDuration)
	cp.HasPriorPregnancies = clonePtr(r.HasPriorPregnancies)
	cp.Predictable = clonePtr(r.Predictable)
	cp.MenarcheAge = clonePtr(r.MenarcheAge)
	cp.HadTreatments = clonePtr(r.HadTreatments)
	cp.IVFCycles = clonePtr(r.IVFCycles)
	cp.IUICycles = clonePtr(r.IUICycles)
	cp.FemaleTests = append([]string(nil), r.FemaleTests...)
	cp.MaleTests = append([]string(nil), r.MaleTests...)
	if r.TestDates != nil {
		cp.TestDates = make(map[string]string, len(r.TestDates))
		for k, v := range r.TestDates {
			cp.TestDates[k] = v
		}
	}
	cp.Documents = append([]Document(nil), r.Documents...)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Apply merges a partial update into the record, enforcing the record
// invariants: buffers are mutually exclusive with their resolved fields,
// reviewed flags are monotonic, and enum fields only accept known values.
func (r *Record) Apply(u Update) {
	if u.PartnerPresent != nil {
		r.PartnerPresent = u.PartnerPresent
	}
	if u.PartnerType != nil && validPartnerType(*u.PartnerType) {
		r.PartnerType = *u.PartnerType
	}

	if u.FemaleAge != nil {
		r.FemaleAge = u.FemaleAge
	}
	if u.MaleAge != nil {
		r.MaleAge = u.MaleAge
	}
	if u.AmbiguousAges != nil {
		r.AmbiguousAges = append([]int(nil), u.AmbiguousAges...)
	}
	if u.ClearAmbiguousAges || (r.FemaleAge != nil && r.MaleAge != nil) {
		r.AmbiguousAges = nil
	}

	if u.FirstMarriage != nil {
		r.FirstMarriage = u.FirstMarriage
	}
	if u.YearsMarried != nil {
		r.YearsMarried = u.YearsMarried
	}

	if u.YearsTrying != nil {
		r.YearsTrying = u.YearsTrying
	}
	if u.PendingDuration != nil {
		r.PendingDuration = u.PendingDuration
	}
	if u.ClearPendingDuration || r.YearsTrying != nil {
		r.PendingDuration = nil
	}

	if u.HasPriorPregnancies != nil {
		r.HasPriorPregnancies = u.HasPriorPregnancies
	}
	if u.PregnancySource != nil && validPregnancySource(*u.PregnancySource) {
		r.PregnancySource = *u.PregnancySource
	}
	if u.PregnancyOutcome != nil && validPregnancyOutcome(*u.PregnancyOutcome) {
		r.PregnancyOutcome = *u.PregnancyOutcome
	}

	if u.Regularity != nil && validRegularity(*u.Regularity) {
		r.Regularity = *u.Regularity
	}
	if u.CycleLength != nil {
		r.CycleLength = *u.CycleLength
	}
	if u.Predictable != nil {
		r.Predictable = u.Predictable
	}
	if u.MenarcheAge != nil {
		r.MenarcheAge = u.MenarcheAge
	}

	if u.Difficulty != nil && validDifficulty(*u.Difficulty) {
		r.Difficulty = *u.Difficulty
	}

	if u.TreatmentsReviewed != nil && *u.TreatmentsReviewed {
		r.TreatmentsReviewed = true
	}
	if u.HadTreatments != nil {
		r.HadTreatments = u.HadTreatments
	}
	if u.TreatmentType != nil && validTreatmentType(*u.TreatmentType) {
		r.TreatmentType = *u.TreatmentType
	}
	if u.IVFCycles != nil {
		r.IVFCycles = u.IVFCycles
	}
	if u.IUICycles != nil {
		r.IUICycles = u.IUICycles
	}
	if u.LastTransferType != nil && validTransferType(*u.LastTransferType) {
		r.LastTransferType = *u.LastTransferType
	}
	if u.LastOutcome != nil {
		r.LastOutcome = *u.LastOutcome
	}

	if u.TestsReviewed != nil && *u.TestsReviewed {
		r.TestsReviewed = true
	}
	if u.FemaleTests != nil {
		r.FemaleTests = append([]string(nil), u.FemaleTests...)
	}
	if u.MaleTests != nil {
		r.MaleTests = append([]string(nil), u.MaleTests...)
	}
	for label, date := range u.TestDates {
		if r.TestDates == nil {
			r.TestDates = make(map[string]string)
		}
		// A date, once set, is never overwritten by later guesses.
		if r.TestDates[label] == "" {
			r.TestDates[label] = date
		}
		if r.ActiveDateInquiry == label {
			r.ActiveDateInquiry = ""
		}
	}
	if u.ActiveDateInquiry != nil {
		r.ActiveDateInquiry = *u.ActiveDateInquiry
	}

	if u.ReportsAvailability != nil && validReportsAvailability(*u.ReportsAvailability) {
		r.ReportsAvailability = *u.ReportsAvailability
	}
	if u.ReportsChecked != nil && *u.ReportsChecked {
		r.ReportsChecked = true
	}

	if u.Confirmation != nil {
		switch *u.Confirmation {
		case ConfirmationConfirmed:
			r.Confirmation = ConfirmationConfirmed
			r.Status = StatusConfirmed
		case ConfirmationRejected:
			// A rejection reopens collection so corrections can land; the
			// confirmation question will be asked again once complete.
			r.Confirmation = ConfirmationRejected
			r.Status = StatusCollecting
		}
	}

	for idx, date := range u.DocumentDates {
		if idx < 0 || idx >= len(r.Documents) {
			continue
		}
		if r.Documents[idx].TestDate == "" {
			r.Documents[idx].TestDate = date
		}
	}
	if u.UploadsFinished != nil && *u.UploadsFinished {
		r.UploadsFinished = true
	}
}

func validPartnerType(t PartnerType) bool {
	switch t {
	case PartnerTypePartner, PartnerTypeDonor, PartnerTypeUnsure:
		return true
	}
	return false
}

func validRegularity(reg Regularity) bool {
	switch reg {
	case RegularityRegular, RegularityIrregular, RegularityNotSure:
		return true
	}
	return false
}

func validDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyNone, DifficultySometimes, DifficultyRarely, DifficultyNotApplicable:
		return true
	}
	return false
}

func validTreatmentType(t TreatmentType) bool {
	switch t {
	case TreatmentIVF, TreatmentIUI, TreatmentMedications, TreatmentNone:
		return true
	}
	return false
}

func validTransferType(t TransferType) bool {
	switch t {
	case TransferFresh, TransferFrozen:
		return true
	}
	return false
}

func validPregnancySource(s PregnancySource) bool {
	switch s {
	case PregnancySourceNatural, PregnancySourceTreatment, PregnancySourceUnsure:
		return true
	}
	return false
}

func validPregnancyOutcome(o PregnancyOutcome) bool {
	switch o {
	case PregnancyOutcomeMiscarriage, PregnancyOutcomeEctopic, PregnancyOutcomeChemical,
		PregnancyOutcomeLiveBirth, PregnancyOutcomeOngoing:
		return true
	}
	return false
}

func validReportsAvailability(a ReportsAvailability) bool {
	switch a {
	case ReportsYes, ReportsNo, ReportsSome:
		return true
	}
	return false
}
