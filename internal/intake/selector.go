package intake

import (
	"fmt"
	"strings"
)

// Sentinel prompts the service layer intercepts before replying.
const (
	// PromptSummaryReady asks the service to render the Section A summary as
	// the question text and mark the record summarized.
	PromptSummaryReady = "SUMMARY_READY"
	// PromptConversationComplete is the terminal signal: no open rung remains.
	PromptConversationComplete = "CONVERSATION_COMPLETE"
)

// Fields a step can be tagged with, consumed by the service layer.
const (
	FieldIntro        = "intro"
	FieldTestDate     = "test_date"
	FieldConfirmation = "confirmation"
	FieldUpload       = "upload"
	FieldDocumentDate = "document_date"
)

// Step is one question the interview asks next. Empty Options means free
// text. Field and Subject tag what the step is after so the service can set
// up the next turn (e.g. which test the date question refers to); they are
// never shown to the patient.
type Step struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	MultiSelect bool     `json:"multi_select,omitempty"`
	Field       string   `json:"-"`
	Subject     string   `json:"-"`
}

// rung is one gated check of the question ladder: when fires, build runs and
// the ladder stops. Adding or reordering a question is a table edit.
type rung struct {
	name  string
	when  func(*Record) bool
	build func(*Record) Step
}

const introPrompt = "Hello. I am Dr. Malpani’s AI assistant.\n" +
	"To help us understand your case, I’ll walk through your fertility history step by step.\n" +
	"I may pause or clarify at times — that’s how doctors avoid missing important details.\n\n" +
	"Which of the following best describes your situation?"

const noPregnancyEmpathy = "I understand. Thank you for sharing that.\n\n" +
	"Are your menstrual cycles regular?"

var intakeLadder = []rung{
	{
		name: "intro",
		when: func(r *Record) bool { return !r.IntroShown },
		build: func(r *Record) Step {
			return Step{
				Prompt: introPrompt,
				Options: []string{
					"I have a partner",
					"I am planning to conceive using a donor",
					"I’m exploring options / not sure yet",
				},
				Field: FieldIntro,
			}
		},
	},
	{
		name: "ages",
		when: func(r *Record) bool {
			if len(r.AmbiguousAges) == 2 {
				return true
			}
			if r.PartnerFlow() {
				return r.FemaleAge == nil || r.MaleAge == nil
			}
			return r.FemaleAge == nil
		},
		build: buildAgeStep,
	},
	{
		name: "first_marriage",
		when: func(r *Record) bool { return r.PartnerFlow() && r.FirstMarriage == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "Is this the first marriage for both of you?", Options: []string{"Yes", "No"}}
		},
	},
	{
		name: "years_married",
		when: func(r *Record) bool { return r.PartnerFlow() && r.YearsMarried == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "How long have you been married?"}
		},
	},
	{
		name: "duration_clarify",
		when: func(r *Record) bool { return r.PendingDuration != nil },
		build: func(r *Record) Step {
			val := formatNumber(*r.PendingDuration)
			return Step{
				Prompt:  fmt.Sprintf("Could you clarify the time period for '%s'?", val),
				Options: []string{val + " years", val + " months", "Something else"},
			}
		},
	},
	{
		name: "duration",
		when: func(r *Record) bool { return r.YearsTrying == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "How long have you been trying to conceive?"}
		},
	},
	{
		name: "pregnancy",
		when: func(r *Record) bool { return r.HasPriorPregnancies == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "Has there ever been a pregnancy before?", Options: []string{"Yes", "No"}}
		},
	},
	{
		// Fixed empathetic variant of the pregnancy-to-menstrual transition.
		name: "no_pregnancy_regularity",
		when: func(r *Record) bool {
			return r.HasPriorPregnancies != nil && !*r.HasPriorPregnancies && r.Regularity == RegularityUnknown
		},
		build: func(r *Record) Step {
			return Step{Prompt: noPregnancyEmpathy, Options: []string{"Yes", "No", "Not sure"}}
		},
	},
	{
		name: "pregnancy_source",
		when: func(r *Record) bool {
			return boolVal(r.HasPriorPregnancies) && r.PregnancySource == PregnancySourceUnknown
		},
		build: func(r *Record) Step {
			return Step{
				Prompt:  "Was it a natural pregnancy or with treatment?",
				Options: []string{"Natural pregnancy", "Pregnancy after treatment", "I’m not sure"},
			}
		},
	},
	{
		name: "pregnancy_outcome",
		when: func(r *Record) bool {
			return boolVal(r.HasPriorPregnancies) && r.PregnancyOutcome == PregnancyOutcomeUnknown
		},
		build: func(r *Record) Step {
			return Step{
				Prompt:  "What was the outcome?",
				Options: []string{"Miscarriage", "Ectopic pregnancy", "Chemical pregnancy", "Live birth", "Ongoing"},
			}
		},
	},
	{
		name: "regularity",
		when: func(r *Record) bool { return r.Regularity == RegularityUnknown },
		build: func(r *Record) Step {
			return Step{Prompt: "Are your menstrual cycles regular?", Options: []string{"Yes", "No", "Not sure"}}
		},
	},
	{
		// Skipped for irregular cycles; the patient already told us it varies.
		name: "cycle_length",
		when: func(r *Record) bool {
			return r.Regularity != RegularityIrregular && r.CycleLength == ""
		},
		build: func(r *Record) Step {
			return Step{
				Prompt:  "About how many days apart do your periods usually come?",
				Options: []string{"21–25 days", "26–30 days", "31–35 days", "Irregular / varies", "Not sure"},
			}
		},
	},
	{
		name: "predictability",
		when: func(r *Record) bool { return r.Predictable == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "Do your periods usually come predictably each month?", Options: []string{"Yes", "No"}}
		},
	},
	{
		name: "menarche",
		when: func(r *Record) bool { return r.MenarcheAge == nil },
		build: func(r *Record) Step {
			return Step{Prompt: "At what age did you get your first period?"}
		},
	},
	{
		name: "sexual_history",
		when: func(r *Record) bool { return r.Difficulty == DifficultyUnknown },
		build: func(r *Record) Step {
			return Step{
				Prompt: "Are you and your partner generally able to have regular sexual intercourse without difficulty?",
				Options: []string{
					"Yes, without difficulty",
					"Sometimes difficult",
					"Rarely / with difficulty",
					"Not applicable (using donor / no partner)",
				},
			}
		},
	},
	{
		name: "treatments",
		when: func(r *Record) bool { return !r.TreatmentsReviewed },
		build: func(r *Record) Step {
			return Step{
				Prompt:  "Have you tried any fertility treatments before?",
				Options: []string{"IVF", "IUI", "Medications only", "No treatments so far"},
			}
		},
	},
	{
		name: "treatment_cycles",
		when: func(r *Record) bool {
			if !boolVal(r.HadTreatments) {
				return false
			}
			switch r.TreatmentType {
			case TreatmentIVF:
				return r.IVFCycles == nil
			case TreatmentIUI:
				return r.IUICycles == nil
			}
			return false
		},
		build: func(r *Record) Step {
			return Step{Prompt: "How many cycles have you undergone?"}
		},
	},
	{
		name: "ivf_transfer",
		when: func(r *Record) bool {
			return r.TreatmentType == TreatmentIVF && r.IVFCycles != nil && r.LastTransferType == TransferUnknown
		},
		build: func(r *Record) Step {
			return Step{Prompt: "Was your most recent embryo transfer fresh or frozen?", Options: []string{"Fresh", "Frozen"}}
		},
	},
	{
		name: "ivf_outcome",
		when: func(r *Record) bool {
			return r.TreatmentType == TreatmentIVF && r.IVFCycles != nil && r.LastOutcome == ""
		},
		build: func(r *Record) Step {
			return Step{Prompt: "What was the outcome of your most recent cycle?", Options: []string{"Negative", "Miscarriage", "Ongoing"}}
		},
	},
	{
		name: "female_tests",
		when: func(r *Record) bool { return !r.TestsReviewed },
		build: func(r *Record) Step {
			return Step{
				Prompt: "Which of the following tests have been done for you? You can select all that apply.",
				Options: []string{
					"Hormonal blood tests (AMH, TSH, FSH/LH)",
					"Ultrasound scans",
					"Tube testing (HSG / Laparoscopy / HyCoSy)",
					"None of the above",
				},
				MultiSelect: true,
			}
		},
	},
	{
		name: "male_tests",
		when: func(r *Record) bool { return r.PartnerFlow() && r.MaleTests == nil },
		build: func(r *Record) Step {
			return Step{
				Prompt: "Which of the following tests have been done for your partner? You can select all that apply.",
				Options: []string{
					"Semen analysis",
					"Hormonal blood tests",
					"Genetic tests",
					"None of the above",
				},
				MultiSelect: true,
			}
		},
	},
	{
		// Loops until every reported test carries a date.
		name: "test_dates",
		when: func(r *Record) bool { return firstUndatedTest(r) != "" },
		build: func(r *Record) Step {
			label := firstUndatedTest(r)
			return Step{
				Prompt:  fmt.Sprintf("When was the %s done? A month and year is enough, e.g. 'June 2024' or 'last month'.", strings.ToLower(label)),
				Field:   FieldTestDate,
				Subject: label,
			}
		},
	},
	{
		name: "reports",
		when: func(r *Record) bool {
			return (r.HasRealFemaleTests() || r.HasRealMaleTests()) && !r.ReportsChecked
		},
		build: func(r *Record) Step {
			return Step{
				Prompt:  "Do you currently have copies of these reports?",
				Options: []string{"Yes, I have them", "No, I would need to collect them", "Some reports only"},
			}
		},
	},
	{
		name: "confirmation",
		when: func(r *Record) bool { return r.Status != StatusConfirmed },
		build: func(r *Record) Step {
			return Step{
				Prompt:  PromptSummaryReady,
				Options: []string{"Yes, that’s correct", "No, I’d like to correct something"},
				Field:   FieldConfirmation,
			}
		},
	},
}

// NextStep walks the intake ladder top to bottom and returns the first open
// question. Pure: it never mutates the record, so calling it twice in a row
// yields the identical step.
func NextStep(r *Record) Step {
	for _, rg := range intakeLadder {
		if rg.when(r) {
			return rg.build(r)
		}
	}
	return Step{Prompt: PromptConversationComplete}
}

func buildAgeStep(r *Record) Step {
	if len(r.AmbiguousAges) == 2 {
		a, b := r.AmbiguousAges[0], r.AmbiguousAges[1]
		return Step{
			Prompt: "Just to confirm, please select one option so I record this correctly:",
			Options: []string{
				fmt.Sprintf("Female is %d, Male is %d", a, b),
				fmt.Sprintf("Female is %d, Male is %d", b, a),
			},
		}
	}
	if r.PartnerFlow() {
		switch {
		case r.FemaleAge != nil && r.MaleAge == nil:
			return Step{Prompt: "And how old is your partner?"}
		case r.MaleAge != nil && r.FemaleAge == nil:
			return Step{Prompt: "And how old are you?"}
		default:
			return Step{Prompt: "Please tell me the ages of both people involved."}
		}
	}
	return Step{Prompt: "How old are you?"}
}

// firstUndatedTest returns the first reported test label, female panel before
// male, that has no date on record yet.
func firstUndatedTest(r *Record) string {
	for _, label := range r.ReportedTests() {
		if r.TestDates[label] == "" {
			return label
		}
	}
	return ""
}

func formatNumber(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%g", v)
}
