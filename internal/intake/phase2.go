package intake

import (
	"fmt"
	"strings"
)

// PromptValidityReady asks the service to run the validity engine over every
// uploaded document, mark the phase complete, and reply with the validity
// summary.
const PromptValidityReady = "VALIDITY_READY"

// documentLadder mirrors the intake ladder for the document-collection phase:
// collect uploads until the patient signals they are done, then chase a date
// for every document that is missing one.
var documentLadder = []rung{
	{
		name: "uploads",
		when: func(r *Record) bool { return !r.UploadsFinished },
		build: func(r *Record) Step {
			return Step{
				Prompt: uploadPrompt(r),
				Field:  FieldUpload,
			}
		},
	},
	{
		name: "document_dates",
		when: func(r *Record) bool { return r.FirstUndatedDocument() >= 0 },
		build: func(r *Record) Step {
			doc := r.Documents[r.FirstUndatedDocument()]
			return Step{
				Prompt:  fmt.Sprintf("When was the %s done? A month and year is enough.", strings.ToLower(doc.TestKind)),
				Field:   FieldDocumentDate,
				Subject: doc.TestKind,
			}
		},
	},
	{
		name: "validity",
		when: func(r *Record) bool { return len(r.Documents) > 0 },
		build: func(r *Record) Step {
			return Step{Prompt: PromptValidityReady}
		},
	},
}

// NextDocumentStep walks the document-collection ladder. Pure, like NextStep.
// Sessions with no reported tests skip the phase entirely.
func NextDocumentStep(r *Record) Step {
	if len(r.ReportedTests()) == 0 {
		return Step{Prompt: PromptConversationComplete}
	}
	for _, rg := range documentLadder {
		if rg.when(r) {
			return rg.build(r)
		}
	}
	return Step{Prompt: PromptConversationComplete}
}

func uploadPrompt(r *Record) string {
	var b strings.Builder
	b.WriteString("Thank you for confirming. We can now collect your reports.\n\n")
	b.WriteString("Please upload the reports you have for:\n")
	for _, label := range r.ReportedTests() {
		fmt.Fprintf(&b, "• %s\n", label)
	}
	b.WriteString("\nUpload them one at a time, and tell me when you are done uploading.")
	return b.String()
}
