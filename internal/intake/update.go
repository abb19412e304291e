package intake

// Update is a partial update produced by the extractor (or the hint source)
// for one conversation turn. Nil fields are "no change". Updates never remove
// information except through the explicit Clear* flags, which exist for the
// two clarification buffers.
type Update struct {
	PartnerPresent *bool        `json:"partner_present,omitempty"`
	PartnerType    *PartnerType `json:"partner_type,omitempty"`

	FemaleAge          *int  `json:"female_age,omitempty"`
	MaleAge            *int  `json:"male_age,omitempty"`
	AmbiguousAges      []int `json:"ambiguous_ages,omitempty"`
	ClearAmbiguousAges bool  `json:"-"`

	FirstMarriage *bool    `json:"first_marriage,omitempty"`
	YearsMarried  *float64 `json:"years_married,omitempty"`

	YearsTrying          *float64 `json:"years_trying,omitempty"`
	PendingDuration      *float64 `json:"pending_duration,omitempty"`
	ClearPendingDuration bool     `json:"-"`

	HasPriorPregnancies *bool             `json:"has_prior_pregnancies,omitempty"`
	PregnancySource     *PregnancySource  `json:"pregnancy_source,omitempty"`
	PregnancyOutcome    *PregnancyOutcome `json:"pregnancy_outcome,omitempty"`

	Regularity  *Regularity `json:"menstrual_regularity,omitempty"`
	CycleLength *string     `json:"cycle_length,omitempty"`
	Predictable *bool       `json:"cycle_predictable,omitempty"`
	MenarcheAge *int        `json:"menarche_age,omitempty"`

	Difficulty *Difficulty `json:"intercourse_difficulty,omitempty"`

	TreatmentsReviewed *bool          `json:"treatments_reviewed,omitempty"`
	HadTreatments      *bool          `json:"had_treatments,omitempty"`
	TreatmentType      *TreatmentType `json:"treatment_type,omitempty"`
	IVFCycles          *int           `json:"ivf_cycles,omitempty"`
	IUICycles          *int           `json:"iui_cycles,omitempty"`
	LastTransferType   *TransferType  `json:"last_transfer_type,omitempty"`
	LastOutcome        *string        `json:"last_outcome,omitempty"`

	TestsReviewed     *bool             `json:"tests_reviewed,omitempty"`
	FemaleTests       []string          `json:"female_tests,omitempty"`
	MaleTests         []string          `json:"male_tests,omitempty"`
	TestDates         map[string]string `json:"test_dates,omitempty"`
	ActiveDateInquiry *string           `json:"-"`

	ReportsAvailability *ReportsAvailability `json:"reports_availability,omitempty"`
	ReportsChecked      *bool                `json:"reports_checked,omitempty"`

	Confirmation *Confirmation `json:"confirmation,omitempty"`

	DocumentDates   map[int]string `json:"-"`
	UploadsFinished *bool          `json:"uploads_finished,omitempty"`
}

// IsEmpty reports whether the update carries no changes at all.
func (u Update) IsEmpty() bool {
	return u.PartnerPresent == nil && u.PartnerType == nil &&
		u.FemaleAge == nil && u.MaleAge == nil && u.AmbiguousAges == nil && !u.ClearAmbiguousAges &&
		u.FirstMarriage == nil && u.YearsMarried == nil &&
		u.YearsTrying == nil && u.PendingDuration == nil && !u.ClearPendingDuration &&
		u.HasPriorPregnancies == nil && u.PregnancySource == nil && u.PregnancyOutcome == nil &&
		u.Regularity == nil && u.CycleLength == nil && u.Predictable == nil && u.MenarcheAge == nil &&
		u.Difficulty == nil &&
		u.TreatmentsReviewed == nil && u.HadTreatments == nil && u.TreatmentType == nil &&
		u.IVFCycles == nil && u.IUICycles == nil && u.LastTransferType == nil && u.LastOutcome == nil &&
		u.TestsReviewed == nil && u.FemaleTests == nil && u.MaleTests == nil &&
		len(u.TestDates) == 0 && u.ActiveDateInquiry == nil &&
		u.ReportsAvailability == nil && u.ReportsChecked == nil &&
		u.Confirmation == nil &&
		len(u.DocumentDates) == 0 && u.UploadsFinished == nil
}

func boolPtr(v bool) *bool                            { return &v }
func intPtr(v int) *int                               { return &v }
func floatPtr(v float64) *float64                     { return &v }
func strPtr(v string) *string                         { return &v }
func partnerTypePtr(v PartnerType) *PartnerType       { return &v }
func regularityPtr(v Regularity) *Regularity          { return &v }
func difficultyPtr(v Difficulty) *Difficulty          { return &v }
func treatmentTypePtr(v TreatmentType) *TreatmentType { return &v }
func transferTypePtr(v TransferType) *TransferType    { return &v }
func pregnancySourcePtr(v PregnancySource) *PregnancySource {
	return &v
}
func pregnancyOutcomePtr(v PregnancyOutcome) *PregnancyOutcome {
	return &v
}
func reportsPtr(v ReportsAvailability) *ReportsAvailability {
	return &v
}
func confirmationPtr(v Confirmation) *Confirmation { return &v }
