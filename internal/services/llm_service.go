package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"carassist-backend/internal/config"
	"carassist-backend/internal/llm"
	"carassist-backend/internal/models"
)

// Prompt templates for the three pipeline modes. All of them instruct the
// model to answer in the user's own language, since the catalog audience is
// mixed-language.
const guardSystemPrompt = `You are a relevance filter for a car shopping assistant.
Decide whether the user's message is about choosing, searching or buying a car.
Respond with a single JSON object and nothing else:
{"relevant": true}
or
{"relevant": false, "rejection_response": "<a short, polite reply in the user's language explaining that you only help with car shopping>"}`

const extractSystemPrompt = `You convert a car shopping request into structured search criteria.
Respond with a single JSON object and nothing else:
{
  "ready_to_search": <bool>,
  "clarification_question": "<required when ready_to_search is false; one short question in the user's language asking for the missing details>",
  "summary": "<one sentence in the user's language restating what the user is looking for>",
  "criteria": {
    "price_max": <int or null, required for ready_to_search>,
    "price_min": <int or null>,
    "body_type": <"sedan"|"crossover"|"suv"|"hatchback"|"minivan"|"pickup"|"coupe"|"wagon" or null>,
    "engine_type": <"petrol"|"diesel"|"hybrid"|"electric" or null>,
    "brand": <string or null>,
    "seats": <int or null>,
    "transmission": <"automatic"|"manual" or null>,
    "drive": <"fwd"|"rwd"|"awd" or null>,
    "year_min": <int or null>,
    "year_max": <int or null>
  }
}
Set ready_to_search to true only when price_max is known AND at least two
other criteria fields are filled. Otherwise set it to false and ask for what
is missing.`

const formatSystemPrompt = `You are a friendly car shopping assistant presenting search results.
You are given the user's request summary, the total number of matches and up
to 10 matching cars. Write a short natural-language answer in the user's
language: mention how many cars matched and describe the most interesting
options with brand, model, year and price. If there are zero matches, say so
warmly in your own words and suggest loosening the criteria. Plain prose
only, no markdown tables.`

const titleSystemPrompt = `Produce a very short title (at most 6 words, no quotes, no trailing
punctuation) for a car shopping conversation that starts with the given
message. Use the language of the message.`

// defaultClarificationQuestion is the fallback used when the extraction
// reply cannot be parsed. Never shown as an error; the pipeline treats it
// as a normal clarification turn.
const defaultClarificationQuestion = "Could you tell me a bit more? A budget plus a couple of preferences (body type, fuel, brand, transmission...) is enough for me to search."

// LLMService turns raw provider completions into typed domain results for
// the three pipeline modes: Guard (relevance), Extract (criteria) and
// Format (answer text). It owns the prompt templates and the JSON-repair
// fallback; provider-level failures pass through untouched.
type LLMService struct {
	provider llm.Provider
	cfg      *config.Config
}

// NewLLMService creates a new LLMService over the given provider.
func NewLLMService(provider llm.Provider, cfg *config.Config) *LLMService {
	return &LLMService{provider: provider, cfg: cfg}
}

// Guard classifies whether a message belongs to the assistant's domain.
//
// On a malformed reply the result is fail-open (relevant=true): blocking a
// legitimate request costs more than letting an off-topic one through.
func (s *LLMService) Guard(ctx context.Context, userMessage string) (models.GuardResult, error) {
	res, err := s.provider.Chat(ctx, guardSystemPrompt, userMessage, s.cfg.GuardTemperature)
	if err != nil {
		return models.GuardResult{}, err
	}

	var envelope struct {
		Relevant          *bool  `json:"relevant"`
		RejectionResponse string `json:"rejection_response"`
	}
	if err := json.Unmarshal([]byte(repairJSON(res.Content)), &envelope); err != nil || envelope.Relevant == nil {
		log.Printf("WARN [LLMService] Guard reply was not parseable, failing open: %.120q", res.Content)
		return models.GuardResult{Relevant: true}, nil
	}

	return models.GuardResult{
		Relevant:          *envelope.Relevant,
		RejectionResponse: strings.TrimSpace(envelope.RejectionResponse),
	}, nil
}

// extractPayload mirrors the JSON shape requested from the model.
type extractPayload struct {
	ReadyToSearch         bool                   `json:"ready_to_search"`
	ClarificationQuestion string                 `json:"clarification_question"`
	Summary               string                 `json:"summary"`
	Criteria              *models.SearchCriteria `json:"criteria"`
}

// Extract converts free text into search criteria plus readiness flags.
//
// The readiness rule is enforced here regardless of what the model claims:
// a search proceeds only when price_max is present and at least two other
// criteria fields are filled. A malformed reply degrades to a not-ready
// result with a generic clarification question; it never errors.
func (s *LLMService) Extract(ctx context.Context, userMessage string) (models.ExtractResult, error) {
	res, err := s.provider.Chat(ctx, extractSystemPrompt, userMessage, s.cfg.ExtractTemperature)
	if err != nil {
		return models.ExtractResult{}, err
	}

	var payload extractPayload
	if err := json.Unmarshal([]byte(repairJSON(res.Content)), &payload); err != nil {
		log.Printf("WARN [LLMService] Extract reply was not parseable, asking for clarification: %.120q", res.Content)
		return models.ExtractResult{
			ReadyToSearch:         false,
			ClarificationQuestion: defaultClarificationQuestion,
		}, nil
	}

	return normalizeExtract(payload), nil
}

// normalizeExtract applies the readiness rule to whatever the model
// produced and guarantees the ExtractResult invariant: ready implies valid
// criteria, not-ready implies a clarification question.
func normalizeExtract(payload extractPayload) models.ExtractResult {
	criteria := payload.Criteria
	ready := payload.ReadyToSearch &&
		criteria != nil &&
		criteria.PriceMax != nil &&
		criteria.FilledExtras() >= 2

	result := models.ExtractResult{
		ReadyToSearch: ready,
		Criteria:      criteria,
		Summary:       strings.TrimSpace(payload.Summary),
	}
	if !ready {
		question := strings.TrimSpace(payload.ClarificationQuestion)
		if question == "" {
			question = defaultClarificationQuestion
		}
		result.ClarificationQuestion = question
	}
	return result
}

// Format produces the natural-language answer for a finished search.
// Returns the text plus the provider finish reason ("stop" or "length").
func (s *LLMService) Format(ctx context.Context, criteriaSummary string, result models.CarSearchResult) (string, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n", criteriaSummary)
	fmt.Fprintf(&b, "Total matches: %d\n", result.TotalCount)
	if len(result.Items) == 0 {
		b.WriteString("Matching cars: none\n")
	} else {
		b.WriteString("Matching cars:\n")
		for _, car := range result.Items {
			fmt.Fprintf(&b, "- %d %s %s, %s, %s, %s, %s, %d seats, %d\n",
				car.Year, car.Brand, car.Model, car.BodyType, car.EngineType,
				car.Transmission, car.Drive, car.Seats, car.Price)
		}
	}

	res, err := s.provider.Chat(ctx, formatSystemPrompt, b.String(), s.cfg.FormatTemperature)
	if err != nil {
		return "", "", err
	}

	text := strings.TrimSpace(res.Content)
	if text == "" {
		return "", "", errors.New("formatting produced empty text")
	}
	return text, res.FinishReason, nil
}

// Title produces a short chat title from the first user message.
func (s *LLMService) Title(ctx context.Context, firstMessage string) (string, error) {
	res, err := s.provider.Chat(ctx, titleSystemPrompt, firstMessage, s.cfg.FormatTemperature)
	if err != nil {
		return "", err
	}

	title := strings.Trim(strings.TrimSpace(res.Content), `"'«»`)
	if title == "" {
		return "", errors.New("title generation produced empty text")
	}
	return title, nil
}

// repairJSON salvages a JSON object from a completion that wrapped it in
// markdown fences or surrounding prose. Returns the input unchanged when no
// object boundaries are found; the caller's json.Unmarshal then fails and
// triggers the mode's fallback.
func repairJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
