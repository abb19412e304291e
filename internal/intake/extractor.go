package intake

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/fertility-intake-platform/internal/observability/metrics"
	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

// ---------- package-level compiled regexes ----------

var (
	noPartnerRE = regexp.MustCompile(`(?i)\b(?:no|without|don'?t have a?|do not have a?)\s+(?:partner|husband|spouse)\b`)
	donorRE     = regexp.MustCompile(`(?i)\bdonor\b`)
	undecidedRE = regexp.MustCompile(`(?i)\b(?:not sure|unsure|undecided|exploring|still deciding)\b`)
	// Explicit declarations only. A mention like "partner is 34" is an age
	// anchor, not a role answer, and must not flip the branch on its own.
	hasPartnerRE = regexp.MustCompile(`(?i)\b(?:i have a partner|my (?:husband|wife|partner|spouse)|we(?:'re| are) married)\b`)

	cycleTermRE = regexp.MustCompile(`(?i)\b(?:cycle|cycles|period|periods|day|days)\b`)

	explicitFemaleAgeRE = regexp.MustCompile(`(?i)\bfemale\s*(?:is|:)?\s*(\d{2})\b`)
	explicitMaleAgeRE   = regexp.MustCompile(`(?i)\bmale\s*(?:is|:)?\s*(\d{2})\b`)
	selfAgeRE           = regexp.MustCompile(`(?i)\b(?:i am|i'm|im|me|my age|myself)\s*(?:is)?\s*(\d{2})\b`)
	partnerAgeRE        = regexp.MustCompile(`(?i)\b(?:husband|wife|partner|spouse|he|she)(?:'s)?\s*(?:age)?\s*(?:is)?\s*(\d{2})\b`)
	bareNumberRE        = regexp.MustCompile(`\b\d{1,2}(?:\.\d+)?\b`)

	firstIsMineRE  = regexp.MustCompile(`(?i)\bfirst\s+(?:one\s+)?is\s+mine\b`)
	secondIsMineRE = regexp.MustCompile(`(?i)\bsecond\s+(?:one\s+)?is\s+mine\b`)

	yesRE = regexp.MustCompile(`(?i)\b(?:yes|yeah|yep|sure|correct)\b`)
	noRE  = regexp.MustCompile(`(?i)\b(?:no|nope|never|not really)\b`)

	yearsValueRE  = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:years?|yrs?)\b`)
	monthsValueRE = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*months?\b`)
	yearsWordRE   = regexp.MustCompile(`(?i)\byears?\b`)
	monthsWordRE  = regexp.MustCompile(`(?i)\bmonths?\b`)
	zeroTryingRE  = regexp.MustCompile(`(?i)\b(?:zero|not yet|never|just started|haven'?t (?:really )?started)\b`)
	tryingTermRE  = regexp.MustCompile(`(?i)\b(?:trying|conceive|conceiving|ttc)\b`)

	pregnantRE = regexp.MustCompile(`(?i)\b(?:pregnan\w*|miscarr\w*|ectopic|live birth)\b`)

	cycleRangeRE  = regexp.MustCompile(`(?i)\b(\d{2})\s*(?:[-–—]|to)\s*(\d{2})\s*days\b`)
	cycleLengthRE = regexp.MustCompile(`(?i)\b(\d{2})\s*days\b`)
	variesRE      = regexp.MustCompile(`(?i)\b(?:varies|variable)\b`)
	menarcheAgeRE = regexp.MustCompile(`(?i)\b(?:age|at|around)\s*(\d{1,2})\b`)

	ivfRE         = regexp.MustCompile(`(?i)\bivf\b`)
	iuiRE         = regexp.MustCompile(`(?i)\biui\b`)
	cyclesCountRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*cycles?\b`)
)

// ---------- keyword tables ----------

var femaleTestKeywords = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)\b(?:hormonal|amh|tsh|fsh|lh|prolactin|blood tests?)\b`), "Hormonal blood tests"},
	{regexp.MustCompile(`(?i)\b(?:ultrasound|scans?|sonography)\b`), "Ultrasound scans"},
	{regexp.MustCompile(`(?i)\b(?:tubes?|hsg|laparoscopy|hycosy|patency)\b`), "Tube testing"},
}

var maleTestKeywords = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)\b(?:semen|sperm)\b`), "Semen analysis"},
	{regexp.MustCompile(`(?i)\b(?:hormonal|blood tests?)\b`), "Hormonal blood tests"},
	{regexp.MustCompile(`(?i)\b(?:genetic|karyotype)\b`), "Genetic tests"},
}

var (
	noneOfTheAboveRE = regexp.MustCompile(`(?i)\bnone(?:\s+of\s+the\s+above)?\b`)
	maleContextRE    = regexp.MustCompile(`(?i)\b(?:semen|sperm|his|him|husband|male|for my partner)\b`)

	reportsYesRE  = regexp.MustCompile(`(?i)\b(?:i have them|have copies|with me)\b`)
	reportsNoRE   = regexp.MustCompile(`(?i)\b(?:need to collect|don'?t have|do not have|lost them)\b`)
	reportsSomeRE = regexp.MustCompile(`(?i)\bsome(?:\s+reports)?(?:\s+only)?\b`)

	confirmYesRE = regexp.MustCompile(`(?i)\b(?:that'?s correct|looks right|all correct|confirmed?|accurate)\b`)
	confirmNoRE  = regexp.MustCompile(`(?i)\b(?:like to correct|not correct|not right|misunderstood|needs? correction)\b`)

	uploadsDoneRE = regexp.MustCompile(`(?i)\b(?:done uploading|finished uploading|that'?s all|no more (?:reports|files|uploads)|all uploaded)\b`)
)

// scanState tracks which tokens earlier rules consumed within a single
// extraction call, so a number claimed as an age or years-married is not
// re-read as a duration further down the ladder.
type scanState struct {
	numberConsumed bool
}

// HintSource is an optional, lower-priority source of candidate field values,
// typically backed by a generative model. Implementations must treat the
// record as read-only. Errors and malformed output are swallowed by the
// extractor; the deterministic rules always run and always win conflicts.
type HintSource interface {
	Hint(ctx context.Context, message string, rec *Record) (Update, error)
}

// NoopHintSource never proposes anything. Used in tests and when no API key
// is configured.
type NoopHintSource struct{}

func (NoopHintSource) Hint(context.Context, string, *Record) (Update, error) {
	return Update{}, nil
}

// Extractor turns one free-text patient message plus the current record into
// a partial update. It is safe for concurrent use.
type Extractor struct {
	hints       HintSource
	hintTimeout time.Duration
	logger      *logging.Logger
	metrics     *metrics.IntakeMetrics
	now         func() time.Time
}

// ExtractorOption configures the extractor.
type ExtractorOption func(*Extractor)

// WithHintSource attaches an optional hint source.
func WithHintSource(h HintSource, timeout time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.hints = h
		if timeout > 0 {
			e.hintTimeout = timeout
		}
	}
}

// WithMetrics attaches intake metrics.
func WithMetrics(m *metrics.IntakeMetrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

// WithClock overrides the wall clock, used by tests and the "last month"
// date rule.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor builds an extractor with the supplied options.
func NewExtractor(logger *logging.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Extractor{
		logger:      logger,
		hintTimeout: 4 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the partial update for one turn. It never fails: on any
// internal problem it returns whatever was safely extracted so far, or an
// empty update.
func (e *Extractor) Extract(ctx context.Context, message string, rec *Record) (upd Update) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extractor panic recovered", "panic", r)
			upd = Update{}
		}
	}()

	message = strings.TrimSpace(message)
	if message == "" || rec == nil {
		return Update{}
	}

	upd = e.consultHints(ctx, message, rec)

	st := &scanState{}
	e.extractPartnerStatus(message, rec, &upd)
	e.extractAges(message, rec, &upd, st)
	e.resolveAmbiguousAges(message, rec, &upd)
	e.extractRelationship(message, rec, &upd, st)
	e.extractDuration(message, rec, &upd, st)
	e.extractPregnancy(message, rec, &upd)
	e.extractMenstrual(message, rec, &upd, st)
	e.extractSexualHistory(message, rec, &upd)
	e.extractTreatments(message, rec, &upd, st)
	e.extractTests(message, rec, &upd)
	e.extractReportsAndConfirmation(message, rec, &upd)
	e.extractDates(message, rec, &upd)

	return upd
}

// consultHints asks the optional hint source for candidate values. Anything
// it returns is lower priority than the deterministic rules, which overwrite
// matching fields afterwards. Failures of any kind degrade to "no hint".
func (e *Extractor) consultHints(ctx context.Context, message string, rec *Record) Update {
	if e.hints == nil {
		return Update{}
	}
	hintCtx, cancel := context.WithTimeout(ctx, e.hintTimeout)
	defer cancel()

	hint, err := e.hints.Hint(hintCtx, message, rec)
	if err != nil {
		e.metrics.ObserveHint("failed")
		e.logger.Debug("hint source unavailable", "error", err)
		return Update{}
	}

	// Hints may not touch the clarification buffers or un-review anything;
	// those transitions belong to the deterministic rules alone.
	hint.AmbiguousAges = nil
	hint.ClearAmbiguousAges = false
	hint.PendingDuration = nil
	hint.ClearPendingDuration = false
	hint.Confirmation = nil
	hint.DocumentDates = nil
	hint.ActiveDateInquiry = nil

	if hint.IsEmpty() {
		e.metrics.ObserveHint("empty")
	} else {
		e.metrics.ObserveHint("applied")
	}
	return hint
}

// ---------- rule 1: partner status ----------

func (e *Extractor) extractPartnerStatus(msg string, rec *Record, upd *Update) {
	if noPartnerRE.MatchString(msg) {
		upd.PartnerPresent = boolPtr(false)
		return
	}
	if donorRE.MatchString(msg) {
		upd.PartnerPresent = boolPtr(false)
		upd.PartnerType = partnerTypePtr(PartnerTypeDonor)
		return
	}
	// Undecided wording only counts while the role question is still open;
	// "not sure" reappears later as a menstrual-history answer.
	if rec.PartnerType == PartnerTypeUnknown && rec.PartnerPresent == nil && undecidedRE.MatchString(msg) {
		upd.PartnerType = partnerTypePtr(PartnerTypeUnsure)
		return
	}
	if hasPartnerRE.MatchString(msg) {
		upd.PartnerPresent = boolPtr(true)
		upd.PartnerType = partnerTypePtr(PartnerTypePartner)
	}
}

// ---------- rule 2: ages ----------

func (e *Extractor) extractAges(msg string, rec *Record, upd *Update, st *scanState) {
	// Cycle/day terminology means any numbers here are about menstrual
	// cycles, not ages.
	if cycleTermRE.MatchString(msg) {
		return
	}

	// (a) explicit "Female is N / Male is N" phrasing, including the
	// ambiguity clarification options.
	matched := false
	if m := explicitFemaleAgeRE.FindStringSubmatch(msg); m != nil {
		if age, ok := plausibleAdultAge(m[1]); ok {
			upd.FemaleAge = intPtr(age)
			matched = true
		}
	}
	if m := explicitMaleAgeRE.FindStringSubmatch(msg); m != nil {
		if age, ok := plausibleAdultAge(m[1]); ok {
			upd.MaleAge = intPtr(age)
			matched = true
		}
	}
	if matched {
		st.numberConsumed = true
		return
	}

	// (b) pronoun-anchored ages: "I am 32, husband is 34". Anchored values
	// may overwrite, so corrections after the summary still land.
	if m := selfAgeRE.FindStringSubmatch(msg); m != nil {
		if age, ok := plausibleAdultAge(m[1]); ok {
			upd.FemaleAge = intPtr(age)
			matched = true
		}
	}
	if m := partnerAgeRE.FindStringSubmatch(msg); m != nil {
		if age, ok := plausibleAdultAge(m[1]); ok {
			upd.MaleAge = intPtr(age)
			matched = true
		}
	}
	if matched {
		st.numberConsumed = true
		return
	}

	ages := plausibleAdultAges(msg)

	// (c) two unanchored numbers: ownership unknown, buffer them — but only
	// when a partner could plausibly be in the picture.
	if len(ages) == 2 && rec.FemaleAge == nil && rec.MaleAge == nil && rec.PartnerPlausible() {
		upd.AmbiguousAges = ages
		st.numberConsumed = true
		return
	}

	// (d) a single unanchored number, assigned by conversational context.
	if len(ages) == 1 {
		switch {
		case rec.PartnerType == PartnerTypeDonor && rec.FemaleAge == nil:
			upd.FemaleAge = intPtr(ages[0])
		case rec.PartnerFlow() && rec.FemaleAge != nil && rec.MaleAge == nil:
			upd.MaleAge = intPtr(ages[0])
		case rec.FemaleAge == nil:
			upd.FemaleAge = intPtr(ages[0])
		default:
			return
		}
		st.numberConsumed = true
	}
}

func plausibleAdultAge(raw string) (int, bool) {
	age, err := strconv.Atoi(raw)
	if err != nil || age < 18 || age > 60 {
		return 0, false
	}
	return age, true
}

func plausibleAdultAges(msg string) []int {
	var ages []int
	for _, raw := range bareNumberRE.FindAllString(msg, -1) {
		if strings.Contains(raw, ".") {
			continue
		}
		if age, ok := plausibleAdultAge(raw); ok {
			ages = append(ages, age)
		}
	}
	return ages
}

// ---------- rule 3: ambiguous-age resolution ----------

func (e *Extractor) resolveAmbiguousAges(msg string, rec *Record, upd *Update) {
	if len(rec.AmbiguousAges) != 2 {
		return
	}
	switch {
	case firstIsMineRE.MatchString(msg):
		upd.FemaleAge = intPtr(rec.AmbiguousAges[0])
		upd.MaleAge = intPtr(rec.AmbiguousAges[1])
	case secondIsMineRE.MatchString(msg):
		upd.FemaleAge = intPtr(rec.AmbiguousAges[1])
		upd.MaleAge = intPtr(rec.AmbiguousAges[0])
	default:
		return
	}
	upd.ClearAmbiguousAges = true
}

// ---------- rule 4: relationship context ----------

func (e *Extractor) extractRelationship(msg string, rec *Record, upd *Update, st *scanState) {
	if !rec.PartnerFlow() || rec.FemaleAge == nil {
		return
	}

	if rec.FirstMarriage == nil {
		if yesRE.MatchString(msg) && !noRE.MatchString(msg) {
			upd.FirstMarriage = boolPtr(true)
		} else if noRE.MatchString(msg) {
			upd.FirstMarriage = boolPtr(false)
		}
		return
	}

	if rec.YearsMarried == nil {
		if m := yearsValueRE.FindStringSubmatch(msg); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				upd.YearsMarried = floatPtr(v)
				st.numberConsumed = true
			}
			return
		}
		// Bare-number fallback: the selector just asked "how long married".
		if !st.numberConsumed {
			if v, ok := singleBareNumber(msg); ok {
				upd.YearsMarried = floatPtr(v)
				st.numberConsumed = true
			}
		}
	}
}

// ---------- rule 5: duration of trying ----------

func (e *Extractor) extractDuration(msg string, rec *Record, upd *Update, st *scanState) {
	// Past the duration stage, numbers belong to later topics unless the
	// patient is explicitly talking about trying to conceive.
	if rec.YearsTrying != nil && !tryingTermRE.MatchString(msg) {
		return
	}

	if rec.YearsTrying == nil && zeroTryingRE.MatchString(msg) {
		upd.YearsTrying = floatPtr(0)
		upd.ClearPendingDuration = true
		return
	}

	if m := yearsValueRE.FindStringSubmatch(msg); m != nil && !st.numberConsumed {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			upd.YearsTrying = floatPtr(v)
			upd.ClearPendingDuration = true
			st.numberConsumed = true
		}
		return
	}
	if m := monthsValueRE.FindStringSubmatch(msg); m != nil && !st.numberConsumed {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			upd.YearsTrying = floatPtr(v / 12.0)
			upd.ClearPendingDuration = true
			st.numberConsumed = true
		}
		return
	}

	// A unit word on its own resolves a buffered bare value.
	if rec.PendingDuration != nil {
		if yearsWordRE.MatchString(msg) {
			upd.YearsTrying = floatPtr(*rec.PendingDuration)
			upd.ClearPendingDuration = true
			return
		}
		if monthsWordRE.MatchString(msg) {
			upd.YearsTrying = floatPtr(*rec.PendingDuration / 12.0)
			upd.ClearPendingDuration = true
			return
		}
	}

	// A bare number with no unit waits for the years/months clarification.
	if rec.YearsTrying == nil && rec.PendingDuration == nil && !st.numberConsumed && rec.FemaleAge != nil {
		if v, ok := singleBareNumber(msg); ok {
			upd.PendingDuration = floatPtr(v)
			st.numberConsumed = true
		}
	}
}

func singleBareNumber(msg string) (float64, bool) {
	raws := bareNumberRE.FindAllString(msg, -1)
	if len(raws) != 1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(raws[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ---------- rule 6: pregnancy history ----------

func (e *Extractor) extractPregnancy(msg string, rec *Record, upd *Update) {
	// Yes/no only counts once duration is settled and the question is open.
	if rec.YearsTrying != nil && rec.HasPriorPregnancies == nil {
		if noRE.MatchString(msg) {
			upd.HasPriorPregnancies = boolPtr(false)
		} else if yesRE.MatchString(msg) || pregnantRE.MatchString(msg) {
			upd.HasPriorPregnancies = boolPtr(true)
		}
	}

	// Source and outcome keywords are honored whenever they appear so the
	// patient can correct the record after the fact.
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "natural") {
		upd.PregnancySource = pregnancySourcePtr(PregnancySourceNatural)
	} else if strings.Contains(lower, "after treatment") || strings.Contains(lower, "with treatment") {
		upd.PregnancySource = pregnancySourcePtr(PregnancySourceTreatment)
	} else if boolVal(rec.HasPriorPregnancies) && rec.PregnancySource == PregnancySourceUnknown && undecidedRE.MatchString(msg) {
		upd.PregnancySource = pregnancySourcePtr(PregnancySourceUnsure)
	}

	switch {
	case strings.Contains(lower, "miscarriage"):
		upd.PregnancyOutcome = pregnancyOutcomePtr(PregnancyOutcomeMiscarriage)
	case strings.Contains(lower, "ectopic"):
		upd.PregnancyOutcome = pregnancyOutcomePtr(PregnancyOutcomeEctopic)
	case strings.Contains(lower, "chemical"):
		upd.PregnancyOutcome = pregnancyOutcomePtr(PregnancyOutcomeChemical)
	case strings.Contains(lower, "live birth") || strings.Contains(lower, "delivered"):
		upd.PregnancyOutcome = pregnancyOutcomePtr(PregnancyOutcomeLiveBirth)
	case strings.Contains(lower, "ongoing") && boolVal(rec.HasPriorPregnancies):
		upd.PregnancyOutcome = pregnancyOutcomePtr(PregnancyOutcomeOngoing)
	}
}

func boolVal(p *bool) bool { return p != nil && *p }

// ---------- rule 7: menstrual history ----------

// pregnancyComplete reports whether the pregnancy block is resolved, which
// gates the menstrual sequence.
func pregnancyComplete(rec *Record) bool {
	if rec.HasPriorPregnancies == nil {
		return false
	}
	if !*rec.HasPriorPregnancies {
		return true
	}
	return rec.PregnancySource != PregnancySourceUnknown && rec.PregnancyOutcome != PregnancyOutcomeUnknown
}

func (e *Extractor) extractMenstrual(msg string, rec *Record, upd *Update, st *scanState) {
	lower := strings.ToLower(msg)

	// Regularity. "irregular" must be checked before "regular".
	if rec.Regularity == RegularityUnknown {
		switch {
		case strings.Contains(lower, "irregular"):
			upd.Regularity = regularityPtr(RegularityIrregular)
		case strings.Contains(lower, "regular"):
			upd.Regularity = regularityPtr(RegularityRegular)
		case pregnancyComplete(rec):
			// Plain yes/no/not-sure at the regularity question.
			if undecidedRE.MatchString(msg) {
				upd.Regularity = regularityPtr(RegularityNotSure)
			} else if yesRE.MatchString(msg) {
				upd.Regularity = regularityPtr(RegularityRegular)
			} else if noRE.MatchString(msg) {
				upd.Regularity = regularityPtr(RegularityIrregular)
			}
		}
	}

	regularity := rec.Regularity
	if upd.Regularity != nil {
		regularity = *upd.Regularity
	}

	// Cycle length: free text, gated on regularity being settled. Skipped for
	// irregular cycles, mirroring the ladder.
	if regularity != RegularityUnknown && regularity != RegularityIrregular && rec.CycleLength == "" {
		if m := cycleRangeRE.FindStringSubmatch(msg); m != nil {
			upd.CycleLength = strPtr(m[1] + "-" + m[2] + " days")
		} else if m := cycleLengthRE.FindStringSubmatch(msg); m != nil {
			upd.CycleLength = strPtr(m[1] + " days")
		} else if variesRE.MatchString(msg) {
			upd.CycleLength = strPtr("Irregular / varies")
		} else if upd.Regularity == nil && undecidedRE.MatchString(msg) {
			upd.CycleLength = strPtr("Not sure")
		}
	}

	// Predictability, gated on length (or irregular cycles, where the length
	// question is skipped).
	lengthKnown := rec.CycleLength != "" || regularity == RegularityIrregular
	if lengthKnown && rec.Predictable == nil && upd.CycleLength == nil {
		if strings.Contains(lower, "predictab") || yesRE.MatchString(msg) {
			if noRE.MatchString(msg) || strings.Contains(lower, "unpredictab") {
				upd.Predictable = boolPtr(false)
			} else {
				upd.Predictable = boolPtr(true)
			}
		} else if noRE.MatchString(msg) {
			upd.Predictable = boolPtr(false)
		}
	}

	// Menarche age, gated on predictability.
	if rec.Predictable != nil && rec.MenarcheAge == nil && !st.numberConsumed {
		if m := menarcheAgeRE.FindStringSubmatch(msg); m != nil {
			if age, err := strconv.Atoi(m[1]); err == nil && age >= 8 && age <= 20 {
				upd.MenarcheAge = intPtr(age)
				st.numberConsumed = true
				return
			}
		}
		if v, ok := singleBareNumber(msg); ok {
			age := int(v)
			if float64(age) == v && age >= 8 && age <= 20 {
				upd.MenarcheAge = intPtr(age)
				st.numberConsumed = true
			}
		}
	}
}

// ---------- rule 8: sexual history ----------

func (e *Extractor) extractSexualHistory(msg string, rec *Record, upd *Update) {
	lower := strings.ToLower(msg)

	// Full option phrases are unambiguous and may land at any point, so
	// late corrections still work.
	switch {
	case strings.Contains(lower, "without difficulty") || strings.Contains(lower, "no difficulty"):
		upd.Difficulty = difficultyPtr(DifficultyNone)
		return
	case strings.Contains(lower, "sometimes difficult"):
		upd.Difficulty = difficultyPtr(DifficultySometimes)
		return
	case strings.Contains(lower, "with difficulty"):
		upd.Difficulty = difficultyPtr(DifficultyRarely)
		return
	case strings.Contains(lower, "not applicable"):
		upd.Difficulty = difficultyPtr(DifficultyNotApplicable)
		return
	}

	// Bare keywords and plain yes/no bind only while the screening question
	// is the open item; "sometimes" also describes irregular cycles.
	if rec.MenarcheAge == nil || rec.Difficulty != DifficultyUnknown {
		return
	}
	switch {
	case strings.Contains(lower, "sometimes"):
		upd.Difficulty = difficultyPtr(DifficultySometimes)
	case strings.Contains(lower, "rarely"):
		upd.Difficulty = difficultyPtr(DifficultyRarely)
	case yesRE.MatchString(msg) && !noRE.MatchString(msg):
		upd.Difficulty = difficultyPtr(DifficultyNone)
	case noRE.MatchString(msg):
		upd.Difficulty = difficultyPtr(DifficultySometimes)
	}
}

// ---------- rule 9: treatments ----------

func (e *Extractor) extractTreatments(msg string, rec *Record, upd *Update, st *scanState) {
	lower := strings.ToLower(msg)

	switch {
	case ivfRE.MatchString(msg):
		upd.TreatmentType = treatmentTypePtr(TreatmentIVF)
		upd.HadTreatments = boolPtr(true)
		upd.TreatmentsReviewed = boolPtr(true)
	case iuiRE.MatchString(msg):
		upd.TreatmentType = treatmentTypePtr(TreatmentIUI)
		upd.HadTreatments = boolPtr(true)
		upd.TreatmentsReviewed = boolPtr(true)
	case strings.Contains(lower, "medication") || strings.Contains(lower, "clomid") || strings.Contains(lower, "letrozole"):
		upd.TreatmentType = treatmentTypePtr(TreatmentMedications)
		upd.HadTreatments = boolPtr(true)
		upd.TreatmentsReviewed = boolPtr(true)
	case strings.Contains(lower, "no treatment") || strings.Contains(lower, "no treatments so far") || strings.Contains(lower, "nothing tried"):
		upd.TreatmentType = treatmentTypePtr(TreatmentNone)
		upd.HadTreatments = boolPtr(false)
		upd.TreatmentsReviewed = boolPtr(true)
	}

	// Cycle counts attach to the just-detected type, or to the previously
	// recorded one.
	treatmentType := rec.TreatmentType
	if upd.TreatmentType != nil {
		treatmentType = *upd.TreatmentType
	}

	if m := cyclesCountRE.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			switch treatmentType {
			case TreatmentIVF:
				upd.IVFCycles = intPtr(n)
				st.numberConsumed = true
			case TreatmentIUI:
				upd.IUICycles = intPtr(n)
				st.numberConsumed = true
			}
		}
	} else if rec.TreatmentsReviewed && !st.numberConsumed {
		// Bare number answering "how many cycles?".
		if v, ok := singleBareNumber(msg); ok && v == float64(int(v)) {
			switch {
			case treatmentType == TreatmentIVF && rec.IVFCycles == nil:
				upd.IVFCycles = intPtr(int(v))
				st.numberConsumed = true
			case treatmentType == TreatmentIUI && rec.IUICycles == nil:
				upd.IUICycles = intPtr(int(v))
				st.numberConsumed = true
			}
		}
	}

	// IVF drill-down opens only once the cycle count is on record.
	if treatmentType == TreatmentIVF && (rec.IVFCycles != nil || upd.IVFCycles != nil) {
		if strings.Contains(lower, "frozen") {
			upd.LastTransferType = transferTypePtr(TransferFrozen)
		} else if strings.Contains(lower, "fresh") {
			upd.LastTransferType = transferTypePtr(TransferFresh)
		}
		switch {
		case strings.Contains(lower, "negative") || strings.Contains(lower, "failed") || strings.Contains(lower, "did not work"):
			upd.LastOutcome = strPtr("Negative")
		case strings.Contains(lower, "miscarriage"):
			upd.LastOutcome = strPtr("Miscarriage")
		case strings.Contains(lower, "ongoing"):
			upd.LastOutcome = strPtr("Ongoing")
		}
	}
}

// ---------- rule 10: tests ----------

func (e *Extractor) extractTests(msg string, rec *Record, upd *Update) {
	// "Female tests already reviewed" means this answer describes the male
	// partner, unless the female panel question is still open.
	maleTarget := rec.TestsReviewed || maleContextRE.MatchString(msg)

	if maleTarget {
		if rec.MaleTests != nil {
			return
		}
		var labels []string
		for _, entry := range maleTestKeywords {
			if entry.pattern.MatchString(msg) {
				labels = appendUnique(labels, entry.label)
			}
		}
		if len(labels) == 0 && rec.TestsReviewed && noneOfTheAboveRE.MatchString(msg) {
			labels = []string{TestNone}
		}
		if len(labels) > 0 {
			upd.MaleTests = labels
		}
		return
	}

	if rec.FemaleTests != nil {
		return
	}
	var labels []string
	for _, entry := range femaleTestKeywords {
		if entry.pattern.MatchString(msg) {
			labels = appendUnique(labels, entry.label)
		}
	}
	if len(labels) == 0 && rec.TreatmentsReviewed && noneOfTheAboveRE.MatchString(msg) {
		labels = []string{TestNone}
	}
	if len(labels) > 0 {
		upd.FemaleTests = labels
		upd.TestsReviewed = boolPtr(true)
	}
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

// ---------- rule 11: reports availability and confirmation ----------

func (e *Extractor) extractReportsAndConfirmation(msg string, rec *Record, upd *Update) {
	// Reports availability. Phrases like "don't have" and "I have them" show
	// up in answers to many earlier questions ("I don't have a partner"), so
	// every case waits for the availability question to be the open rung.
	if reportsQuestionOpen(rec) {
		switch {
		case reportsYesRE.MatchString(msg):
			upd.ReportsAvailability = reportsPtr(ReportsYes)
			upd.ReportsChecked = boolPtr(true)
		case reportsNoRE.MatchString(msg):
			upd.ReportsAvailability = reportsPtr(ReportsNo)
			upd.ReportsChecked = boolPtr(true)
		case reportsSomeRE.MatchString(msg):
			upd.ReportsAvailability = reportsPtr(ReportsSome)
			upd.ReportsChecked = boolPtr(true)
		case yesRE.MatchString(msg) && !noRE.MatchString(msg):
			upd.ReportsAvailability = reportsPtr(ReportsYes)
			upd.ReportsChecked = boolPtr(true)
		case noRE.MatchString(msg):
			upd.ReportsAvailability = reportsPtr(ReportsNo)
			upd.ReportsChecked = boolPtr(true)
		}
	}

	// Confirmation. A bare "yes" only counts once the summary has actually
	// been shown; before that point it means something else. An earlier
	// rejection leaves the answer open for the regenerated summary.
	if rec.Status == StatusSummarized && rec.Confirmation != ConfirmationConfirmed {
		switch {
		case confirmNoRE.MatchString(msg) || noRE.MatchString(msg):
			upd.Confirmation = confirmationPtr(ConfirmationRejected)
		case confirmYesRE.MatchString(msg) || yesRE.MatchString(msg):
			upd.Confirmation = confirmationPtr(ConfirmationConfirmed)
		}
	}
}

// reportsQuestionOpen reports whether the availability question is the open
// rung, which is when bare yes/no answers may be attributed to it.
func reportsQuestionOpen(rec *Record) bool {
	if !rec.TestsReviewed || rec.ReportsChecked {
		return false
	}
	if rec.PartnerFlow() && rec.MaleTests == nil {
		return false
	}
	if !rec.HasRealFemaleTests() && !rec.HasRealMaleTests() {
		return false
	}
	return datesCollected(rec)
}

func datesCollected(rec *Record) bool {
	for _, label := range rec.ReportedTests() {
		if rec.TestDates[label] == "" {
			return false
		}
	}
	return true
}

// ---------- rule 12: date collection ----------

func (e *Extractor) extractDates(msg string, rec *Record, upd *Update) {
	switch rec.Phase {
	case PhaseIntake:
		if rec.ActiveDateInquiry == "" {
			return
		}
		if date, ok := parseReportedDate(msg, e.now()); ok {
			upd.TestDates = map[string]string{rec.ActiveDateInquiry: date}
		}
	case PhaseDocuments:
		if uploadsDoneRE.MatchString(msg) {
			upd.UploadsFinished = boolPtr(true)
		}
		idx := rec.FirstUndatedDocument()
		if idx < 0 {
			return
		}
		if date, ok := parseReportedDate(msg, e.now()); ok {
			upd.DocumentDates = map[int]string{idx: date}
		}
	}
}
