package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

const hintSystemPrompt = `You are a clinical intake data extractor for a fertility clinic.
Given the current case record and one patient message, return a JSON object with
only the fields the message clearly establishes. Field names and formats:

  female_age, male_age: integer
  years_trying, years_married: number (years; convert months by dividing by 12)
  first_marriage, has_prior_pregnancies, cycle_predictable: boolean
  partner_type: "Partner" | "Donor" | "Unsure"
  pregnancy_source: "Natural" | "Treatment" | "Unsure"
  pregnancy_outcome: "Miscarriage" | "Ectopic" | "Chemical" | "LiveBirth" | "Ongoing"
  menstrual_regularity: "Regular" | "Irregular" | "NotSure"
  cycle_length: free text, e.g. "26-30 days"
  menarche_age: integer
  treatment_type: "IVF" | "IUI" | "Medications" | "None"
  ivf_cycles, iui_cycles: integer

Never guess. Omit anything uncertain. Return ONLY raw valid JSON.`

// GeminiHintSource proposes record updates from a generative model. It is
// strictly best-effort: the deterministic extractor treats its output as the
// lowest-priority source and drops it wholesale on any error.
type GeminiHintSource struct {
	model  *genai.GenerativeModel
	client *genai.Client
	logger *logging.Logger
}

// NewGeminiHintSource dials the Gemini API. Callers should skip construction
// entirely when no API key is configured and fall back to NoopHintSource.
func NewGeminiHintSource(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiHintSource, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("intake: create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelID)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(hintSystemPrompt)},
	}

	return &GeminiHintSource{
		model:  model,
		client: client,
		logger: logger.WithComponent("gemini_hint"),
	}, nil
}

// Close releases the underlying API client.
func (g *GeminiHintSource) Close() error {
	return g.client.Close()
}

// Hint implements HintSource.
func (g *GeminiHintSource) Hint(ctx context.Context, message string, rec *Record) (Update, error) {
	state, err := json.Marshal(rec)
	if err != nil {
		return Update{}, fmt.Errorf("intake: encode record for hint: %w", err)
	}

	prompt := fmt.Sprintf("Record: %s\nMessage: %s", state, message)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Update{}, fmt.Errorf("intake: gemini hint: %w", err)
	}

	raw := responseText(resp)
	if raw == "" {
		return Update{}, fmt.Errorf("intake: gemini hint: empty response")
	}

	var upd Update
	if err := json.Unmarshal([]byte(raw), &upd); err != nil {
		g.logger.Debug("hint output not valid JSON", "error", err)
		return Update{}, fmt.Errorf("intake: decode gemini hint: %w", err)
	}
	return upd, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	raw := strings.TrimSpace(b.String())
	// Models sometimes fence JSON despite the mime-type setting.
	if strings.Contains(raw, "```") {
		if _, after, found := strings.Cut(raw, "```json"); found {
			raw = after
		} else if _, after, found := strings.Cut(raw, "```"); found {
			raw = after
		}
		raw, _, _ = strings.Cut(raw, "```")
		raw = strings.TrimSpace(raw)
	}
	return raw
}
