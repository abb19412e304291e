package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/fertility-intake-platform/internal/observability/metrics"
	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

// Upload rejection errors, mapped to 422 responses at the HTTP boundary.
var (
	ErrUnknownTestKind = errors.New("intake: could not identify the test from the filename")
	ErrUnreportedTest  = errors.New("intake: test was not reported during the interview")
)

const correctionPrompt = "Of course. What should I correct? Please tell me the detail that is wrong and the right value."

// TurnResult is what one conversation turn produces.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`
	Status    Status `json:"status"`
	Step      Step   `json:"step"`
}

// Engine is the turn controller: it receives one patient message, runs the
// extractor, merges the update into the stored record, walks the question
// ladder, and owns every phase and status transition. The selector itself
// stays pure.
type Engine struct {
	store   SessionStore
	archive *ArchiveStore
	ext     *Extractor
	logger  *logging.Logger
	metrics *metrics.IntakeMetrics
	now     func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithArchive attaches a Postgres archive for completed records.
func WithArchive(a *ArchiveStore) EngineOption {
	return func(e *Engine) { e.archive = a }
}

// WithEngineMetrics attaches intake metrics.
func WithEngineMetrics(m *metrics.IntakeMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineClock overrides the wall clock.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds the turn controller.
func NewEngine(store SessionStore, ext *Extractor, logger *logging.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:  store,
		ext:    ext,
		logger: logger.WithComponent("intake_engine"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates a fresh session and returns the opening step.
func (e *Engine) StartSession(ctx context.Context) (TurnResult, error) {
	return e.HandleMessage(ctx, uuid.NewString(), "")
}

// HandleMessage runs one conversation turn. An empty message re-asks the
// current open question without changing the record's answers.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (TurnResult, error) {
	start := e.now()

	var step Step
	rec, err := e.store.Update(ctx, sessionID, func(rec *Record) error {
		step = e.runTurn(ctx, message, rec)
		return nil
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("intake: handle message: %w", err)
	}

	e.metrics.ObserveTurn(string(rec.Phase), string(rec.Status))
	e.metrics.ObserveTurnLatency(string(rec.Phase), e.now().Sub(start).Seconds())

	if rec.Phase == PhaseComplete {
		e.archiveRecord(ctx, rec)
	}

	return TurnResult{SessionID: rec.SessionID, Phase: rec.Phase, Status: rec.Status, Step: step}, nil
}

// runTurn mutates the record for one turn and returns the reply step. Runs
// inside the store's exclusive-access callback.
func (e *Engine) runTurn(ctx context.Context, message string, rec *Record) Step {
	switch rec.Phase {
	case PhaseComplete:
		return Step{Prompt: PromptConversationComplete}

	case PhaseDocuments:
		rec.Apply(e.ext.Extract(ctx, message, rec))
		return e.documentStep(rec)

	default:
		upd := e.ext.Extract(ctx, message, rec)
		rejected := upd.Confirmation != nil && *upd.Confirmation == ConfirmationRejected
		rec.Apply(upd)

		if rejected {
			// Apply reopened collection; ask what to fix before re-walking
			// the ladder next turn.
			return Step{Prompt: correctionPrompt}
		}

		if rec.Status == StatusConfirmed {
			rec.Phase = PhaseDocuments
			return e.documentStep(rec)
		}

		step := NextStep(rec)
		e.applyStepEffects(rec, &step)
		return step
	}
}

// applyStepEffects performs the record mutations a chosen step implies. The
// selector is pure; this is the one place its side effects live.
func (e *Engine) applyStepEffects(rec *Record, step *Step) {
	switch {
	case step.Field == FieldIntro:
		rec.IntroShown = true
	case step.Field == FieldTestDate:
		rec.ActiveDateInquiry = step.Subject
	case step.Prompt == PromptSummaryReady:
		step.Prompt = SectionA(rec)
		rec.Status = StatusSummarized
	}
}

// documentStep walks the phase-2 ladder, running the validity engine and
// closing the session when both collection loops are exhausted.
func (e *Engine) documentStep(rec *Record) Step {
	step := NextDocumentStep(rec)
	switch step.Prompt {
	case PromptValidityReady:
		for i := range rec.Documents {
			doc := &rec.Documents[i]
			doc.Validity = ClassifyAt(doc.TestKind, doc.TestDate, e.now())
			e.metrics.ObserveValidity(doc.Validity)
		}
		rec.Phase = PhaseComplete
		step = Step{Prompt: ValiditySummary(rec.Documents)}
	case PromptConversationComplete:
		rec.Phase = PhaseComplete
	}
	return step
}

// UploadDocument registers one uploaded report during the document-collection
// phase. Uploads whose filename matches no known test, or a test never
// reported in the interview, are rejected without touching the record.
func (e *Engine) UploadDocument(ctx context.Context, sessionID, filename string) (TurnResult, error) {
	var step Step
	rec, err := e.store.Update(ctx, sessionID, func(rec *Record) error {
		if rec.Phase != PhaseDocuments {
			return fmt.Errorf("intake: session %s is not collecting documents", sessionID)
		}

		kind := DetectTestKind(filename)
		if kind == UnknownTestKind {
			return ErrUnknownTestKind
		}
		if !KindReported(rec, kind) {
			return ErrUnreportedTest
		}

		rec.Documents = append(rec.Documents, Document{
			TestKind:   kind,
			Filename:   filename,
			UploadedAt: e.now(),
		})
		step = e.documentStep(rec)
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	if rec.Phase == PhaseComplete {
		e.archiveRecord(ctx, rec)
	}
	return TurnResult{SessionID: rec.SessionID, Phase: rec.Phase, Status: rec.Status, Step: step}, nil
}

// State returns the record snapshot plus the currently open question without
// advancing the conversation.
func (e *Engine) State(ctx context.Context, sessionID string) (*Record, Step, error) {
	rec, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, Step{}, err
	}

	var step Step
	switch rec.Phase {
	case PhaseComplete:
		step = Step{Prompt: PromptConversationComplete}
	case PhaseDocuments:
		step = NextDocumentStep(rec)
	default:
		step = NextStep(rec)
		if step.Prompt == PromptSummaryReady {
			step.Prompt = SectionA(rec)
		}
	}
	return rec, step, nil
}

// EndSession drops the session record.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.store.Delete(ctx, sessionID)
}

func (e *Engine) archiveRecord(ctx context.Context, rec *Record) {
	if e.archive == nil {
		return
	}
	if err := e.archive.Archive(ctx, rec); err != nil {
		// The session record still lives in the session store until expiry;
		// archival failure must not fail the patient's turn.
		e.logger.Error("failed to archive completed record", "session_id", rec.SessionID, "error", err)
	}
}
