package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

func newTestEngine() (*Engine, *MemorySessionStore) {
	store := NewMemorySessionStore(0)
	ext := newTestExtractor()
	eng := NewEngine(store, ext, logging.New("error"), WithEngineClock(testClock))
	return eng, store
}

func TestEngineOpeningTurns(t *testing.T) {
	eng, _ := newTestEngine()
	ctx := context.Background()

	res, err := eng.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if !strings.Contains(res.Step.Prompt, "Which of the following best describes your situation?") {
		t.Fatalf("opening prompt = %q", res.Step.Prompt)
	}
	if res.Phase != PhaseIntake || res.Status != StatusCollecting {
		t.Fatalf("fresh session phase=%v status=%v", res.Phase, res.Status)
	}

	// "partner is 34" anchors the male age but is not a role declaration, so
	// the conversation must not detour into the marriage questions.
	res, err = eng.HandleMessage(ctx, res.SessionID, "I am 32, partner is 34")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if res.Step.Prompt != "How long have you been trying to conceive?" {
		t.Fatalf("after ages, prompt = %q", res.Step.Prompt)
	}

	rec, _, err := eng.State(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if rec.FemaleAge == nil || *rec.FemaleAge != 32 || rec.MaleAge == nil || *rec.MaleAge != 34 {
		t.Fatalf("ages = %v / %v", rec.FemaleAge, rec.MaleAge)
	}

	res, err = eng.HandleMessage(ctx, res.SessionID, "2 years")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if res.Step.Prompt != "Has there ever been a pregnancy before?" {
		t.Fatalf("after duration, prompt = %q", res.Step.Prompt)
	}
	if len(res.Step.Options) != 2 {
		t.Fatalf("pregnancy options = %v", res.Step.Options)
	}

	rec, _, _ = eng.State(ctx, res.SessionID)
	if rec.YearsTrying == nil || *rec.YearsTrying != 2.0 {
		t.Fatalf("years trying = %v", rec.YearsTrying)
	}
}

func TestEngineEmptyMessageReasksOpenQuestion(t *testing.T) {
	eng, _ := newTestEngine()
	ctx := context.Background()

	res, err := eng.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	first, _ := eng.HandleMessage(ctx, res.SessionID, "")
	second, _ := eng.HandleMessage(ctx, res.SessionID, "")
	if first.Step.Prompt != second.Step.Prompt {
		t.Fatalf("empty turns diverged: %q vs %q", first.Step.Prompt, second.Step.Prompt)
	}
}

// Walks a full partner-flow conversation from the first hello to the validity
// summary, uploading one report along the way.
func TestEngineFullConversation(t *testing.T) {
	eng, _ := newTestEngine()
	ctx := context.Background()

	start, err := eng.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	id := start.SessionID

	say := func(msg, wantInPrompt string) TurnResult {
		t.Helper()
		res, err := eng.HandleMessage(ctx, id, msg)
		if err != nil {
			t.Fatalf("message %q: %v", msg, err)
		}
		if !strings.Contains(res.Step.Prompt, wantInPrompt) {
			t.Fatalf("after %q, prompt = %q, want substring %q", msg, res.Step.Prompt, wantInPrompt)
		}
		return res
	}

	say("I have a partner", "Please tell me the ages of both people involved.")
	say("I am 32 and my husband is 34", "Is this the first marriage for both of you?")
	say("Yes", "How long have you been married?")
	say("5 years", "How long have you been trying to conceive?")
	say("We have been trying for 2 years", "Has there ever been a pregnancy before?")
	say("No", "Are your menstrual cycles regular?")
	say("Yes", "About how many days apart do your periods usually come?")
	say("26–30 days", "Do your periods usually come predictably each month?")
	say("Yes", "At what age did you get your first period?")
	say("13", "able to have regular sexual intercourse")
	say("Yes, without difficulty", "Have you tried any fertility treatments before?")
	say("No treatments so far", "Which of the following tests have been done for you?")
	say("Hormonal blood tests", "Which of the following tests have been done for your partner?")
	say("Semen analysis", "When was the hormonal blood tests done?")
	say("June 2024", "When was the semen analysis done?")
	say("January 2025", "Do you currently have copies of these reports?")

	res := say("Yes, I have them", "Section A: My Understanding")
	if res.Status != StatusSummarized {
		t.Fatalf("status after summary = %v", res.Status)
	}
	for _, want := range []string{
		"- Age: 32 (Partner: 34)",
		"- Duration trying to conceive: 2 years",
		"- Tests done: Hormonal blood tests",
		"- Partner tests done: Semen analysis",
	} {
		if !strings.Contains(res.Step.Prompt, want) {
			t.Fatalf("summary missing %q:\n%s", want, res.Step.Prompt)
		}
	}

	res = say("Yes, that's correct", "Please upload the reports you have for:")
	if res.Phase != PhaseDocuments || res.Status != StatusConfirmed {
		t.Fatalf("after confirmation phase=%v status=%v", res.Phase, res.Status)
	}

	up, err := eng.UploadDocument(ctx, id, "amh_results.pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(up.Step.Prompt, "Please upload the reports") {
		t.Fatalf("after upload, prompt = %q", up.Step.Prompt)
	}

	say("I am done uploading", "When was the amh done?")

	res = say("February 2026", "Report Validity Summary")
	if res.Phase != PhaseComplete {
		t.Fatalf("phase after validity = %v", res.Phase)
	}
	// Test clock is 2026-03-15; an AMH from February is well inside its
	// one-year window.
	if !strings.Contains(res.Step.Prompt, "AMH (2026-02-01) → "+ValidityValid) {
		t.Fatalf("validity line missing:\n%s", res.Step.Prompt)
	}

	// The session is terminal from here on.
	res, err = eng.HandleMessage(ctx, id, "hello?")
	if err != nil {
		t.Fatalf("post-completion message: %v", err)
	}
	if res.Step.Prompt != PromptConversationComplete {
		t.Fatalf("post-completion prompt = %q", res.Step.Prompt)
	}
}

// seedSummarized stores a donor-flow record with every rung answered and the
// summary already shown.
func seedSummarized(t *testing.T, store *MemorySessionStore, id string) {
	t.Helper()
	_, err := store.Update(context.Background(), id, func(rec *Record) error {
		rec.IntroShown = true
		rec.PartnerPresent = boolPtr(false)
		rec.PartnerType = PartnerTypeDonor
		rec.FemaleAge = intPtr(32)
		rec.YearsTrying = floatPtr(2)
		rec.HasPriorPregnancies = boolPtr(false)
		rec.Regularity = RegularityRegular
		rec.CycleLength = "26-30 days"
		rec.Predictable = boolPtr(true)
		rec.MenarcheAge = intPtr(13)
		rec.Difficulty = DifficultyNotApplicable
		rec.TreatmentsReviewed = true
		rec.HadTreatments = boolPtr(false)
		rec.TreatmentType = TreatmentNone
		rec.TestsReviewed = true
		rec.FemaleTests = []string{TestNone}
		rec.Status = StatusSummarized
		return nil
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestEngineRejectionReopensCollection(t *testing.T) {
	eng, store := newTestEngine()
	ctx := context.Background()
	seedSummarized(t, store, "reject-1")

	res, err := eng.HandleMessage(ctx, "reject-1", "No, I'd like to correct something")
	if err != nil {
		t.Fatalf("rejection: %v", err)
	}
	if res.Step.Prompt != correctionPrompt {
		t.Fatalf("rejection prompt = %q", res.Step.Prompt)
	}
	if res.Status != StatusCollecting {
		t.Fatalf("status after rejection = %v", res.Status)
	}
	rec, err := store.Get(ctx, "reject-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Confirmation != ConfirmationRejected {
		t.Fatalf("confirmation on record = %v, want Rejected", rec.Confirmation)
	}

	// The correction lands and the summary is regenerated from the new value.
	res, err = eng.HandleMessage(ctx, "reject-1", "Actually, I am 33")
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if !strings.Contains(res.Step.Prompt, "- Age: 33") {
		t.Fatalf("regenerated summary missing corrected age:\n%s", res.Step.Prompt)
	}
	if res.Status != StatusSummarized {
		t.Fatalf("status after correction = %v", res.Status)
	}

	// With no tests reported there is nothing to upload; confirming closes
	// the conversation outright.
	res, err = eng.HandleMessage(ctx, "reject-1", "Yes")
	if err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if res.Phase != PhaseComplete || res.Step.Prompt != PromptConversationComplete {
		t.Fatalf("no-tests confirmation: phase=%v prompt=%q", res.Phase, res.Step.Prompt)
	}
}

func TestEngineUploadRejections(t *testing.T) {
	eng, store := newTestEngine()
	ctx := context.Background()

	_, err := store.Update(ctx, "docs-1", func(rec *Record) error {
		rec.Phase = PhaseDocuments
		rec.Status = StatusConfirmed
		rec.TestsReviewed = true
		rec.FemaleTests = []string{"Hormonal blood tests"}
		return nil
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if _, err := eng.UploadDocument(ctx, "docs-1", "holiday_photo.jpg"); !errors.Is(err, ErrUnknownTestKind) {
		t.Fatalf("unidentifiable upload err = %v", err)
	}
	if _, err := eng.UploadDocument(ctx, "docs-1", "pelvic_ultrasound.png"); !errors.Is(err, ErrUnreportedTest) {
		t.Fatalf("unreported upload err = %v", err)
	}

	// A rejected upload leaves the record untouched.
	rec, err := store.Get(ctx, "docs-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Documents) != 0 {
		t.Fatalf("rejected uploads were stored: %v", rec.Documents)
	}

	// Uploads are only accepted during document collection.
	_, err = store.Update(ctx, "intake-1", func(rec *Record) error { return nil })
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if _, err := eng.UploadDocument(ctx, "intake-1", "amh.pdf"); err == nil {
		t.Fatalf("upload during intake must fail")
	}
}

func TestEngineEndSession(t *testing.T) {
	eng, store := newTestEngine()
	ctx := context.Background()

	res, err := eng.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := eng.EndSession(ctx, res.SessionID); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := store.Get(ctx, res.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session survived EndSession: %v", err)
	}
}
