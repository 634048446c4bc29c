package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"trailblaze-events-scraper/internal/models"
)

// ChatCompleter is the slice of the OpenAI client the extractor needs.
// Satisfied by *openai.Client; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIExtractorConfig controls models, retries, and chunk sizing for the
// AI extraction fallback.
type AIExtractorConfig struct {
	PrimaryModel        string
	FallbackModel       string
	Temperature         float32
	FallbackTemperature float32
	MaxTokens           int
	// ContextLimit is the primary model's context window in tokens;
	// ContextFraction is how much of it one chunk may consume before
	// being split.
	ContextLimit    int
	ContextFraction float64
	PlainRetries    int
	RetryDelay      time.Duration
	Source          string
}

// DefaultAIExtractorConfig returns the production extraction settings
func DefaultAIExtractorConfig() AIExtractorConfig {
	return AIExtractorConfig{
		PrimaryModel:        "gpt-4o-mini",
		FallbackModel:       "gpt-4o",
		Temperature:         0.1,
		FallbackTemperature: 0.0,
		MaxTokens:           4000,
		ContextLimit:        128000,
		ContextFraction:     0.6,
		PlainRetries:        3,
		RetryDelay:          2 * time.Second,
		Source:              models.SourceAERC,
	}
}

// AIExtractor extracts raw event records from an HTML chunk via a
// generative model. It is the fallback path, used when the DOM parser
// yields zero events for a chunk. One client, one ordered strategy
// list: schema-constrained prompt, plain prompt with bounded retries,
// then a single fallback-model attempt at lower temperature.
type AIExtractor struct {
	client ChatCompleter
	config AIExtractorConfig
}

// NewAIExtractor creates an AI extractor using the OPENAI_API_KEY
// environment variable.
func NewAIExtractor(config AIExtractorConfig) *AIExtractor {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}
	return NewAIExtractorWithClient(openai.NewClient(apiKey), config)
}

// NewAIExtractorWithClient creates an AI extractor around an existing
// chat client.
func NewAIExtractorWithClient(client ChatCompleter, config AIExtractorConfig) *AIExtractor {
	defaults := DefaultAIExtractorConfig()
	if config.PrimaryModel == "" {
		config.PrimaryModel = defaults.PrimaryModel
	}
	if config.FallbackModel == "" {
		config.FallbackModel = defaults.FallbackModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.ContextLimit == 0 {
		config.ContextLimit = defaults.ContextLimit
	}
	if config.ContextFraction == 0 {
		config.ContextFraction = defaults.ContextFraction
	}
	if config.PlainRetries == 0 {
		config.PlainRetries = defaults.PlainRetries
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.Source == "" {
		config.Source = defaults.Source
	}
	return &AIExtractor{client: client, config: config}
}

// Extract pulls raw event records out of one HTML chunk. Chunks whose
// token estimate exceeds the configured fraction of the model context
// are split recursively along structural boundaries and processed
// independently. Returns AIExtractionError once every strategy is
// exhausted.
func (a *AIExtractor) Extract(ctx context.Context, chunk string, chunkIndex int) ([]models.RawEvent, error) {
	budget := int(float64(a.config.ContextLimit) * a.config.ContextFraction)
	if EstimateTokens(chunk) > budget {
		pieces := SplitOversizeChunk(chunk, budget*4)
		log.Printf("AI extractor: chunk %d over token budget, split into %d pieces", chunkIndex, len(pieces))
		var all []models.RawEvent
		for _, piece := range pieces {
			events, err := a.Extract(ctx, piece, chunkIndex)
			if err != nil {
				return nil, err
			}
			all = append(all, events...)
		}
		return all, nil
	}

	if events, err := a.attempt(ctx, a.config.PrimaryModel, a.config.Temperature, a.schemaSystemPrompt(), chunk); err == nil {
		return events, nil
	} else {
		log.Printf("AI extractor: schema attempt failed for chunk %d: %v", chunkIndex, err)
	}

	events, err := a.plainAttemptWithRetries(ctx, chunk, chunkIndex)
	if err == nil {
		return events, nil
	}

	log.Printf("AI extractor: primary model exhausted for chunk %d, trying fallback model %s", chunkIndex, a.config.FallbackModel)
	events, err = a.attempt(ctx, a.config.FallbackModel, a.config.FallbackTemperature, a.schemaSystemPrompt(), chunk)
	if err == nil {
		return events, nil
	}

	return nil, &AIExtractionError{ChunkIndex: chunkIndex, ChunkSize: len(chunk), Err: err}
}

// plainAttemptWithRetries retries a plain-text prompt against the
// primary model with bounded exponential backoff. Only this chunk's
// loop waits; other chunks progress independently.
func (a *AIExtractor) plainAttemptWithRetries(ctx context.Context, chunk string, chunkIndex int) ([]models.RawEvent, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.config.RetryDelay

	var events []models.RawEvent
	operation := func() error {
		var err error
		events, err = a.attempt(ctx, a.config.PrimaryModel, a.config.Temperature, a.plainSystemPrompt(), chunk)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(a.config.PlainRetries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("plain-prompt retries exhausted for chunk %d: %w", chunkIndex, err)
	}
	return events, nil
}

// attempt makes one model request and parses/repairs the response.
// A response that cannot be repaired into JSON counts as a failure.
func (a *AIExtractor) attempt(ctx context.Context, model string, temperature float32, systemPrompt, chunk string) ([]models.RawEvent, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   a.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: a.buildUserPrompt(chunk)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices from model")
	}

	objects, err := ParseEventArray(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	events := make([]models.RawEvent, 0, len(objects))
	for _, obj := range objects {
		events = append(events, a.MapAIEvent(obj))
	}
	return events, nil
}

// schemaSystemPrompt describes the exact response schema. Three fields
// are mandatory: rideName, date, location.
func (a *AIExtractor) schemaSystemPrompt() string {
	return `You are an expert at extracting structured data about endurance riding events from calendar HTML.

Analyze the provided HTML and extract every distinct ride event.

OUTPUT FORMAT:
Return ONLY a JSON array with this exact structure, no prose:
[
  {
    "rideName": "Ride Name",
    "date": "YYYY-MM-DD",
    "location": "Venue, City, State",
    "region": "two-letter region code if shown",
    "tag": "the ride id number if shown",
    "rideManager": "Manager Name",
    "rideManagerContact": {
      "name": "Manager Name",
      "email": "email if shown",
      "phone": "phone if shown"
    },
    "controlJudges": [
      {"role": "Control Judge", "name": "Judge Name"}
    ],
    "distances": [
      {"distance": "50", "date": "YYYY-MM-DD", "startTime": "HH:MM"}
    ],
    "mapLink": "map URL if shown",
    "website": "event website URL if shown",
    "flyer": "entry/flyer URL if shown",
    "hasIntroRide": false,
    "isCancelled": false,
    "description": "any remaining detail text"
  }
]

MANDATORY FIELDS: rideName, date, location. Every extracted event must carry all three.

EXTRACTION RULES:
- One JSON object per logical event row
- Dates always normalized to YYYY-MM-DD
- Do not invent details that are not in the HTML
- Leave optional fields out when the HTML does not show them
- Multi-day events list one distances entry per day`
}

// plainSystemPrompt is the retry prompt: same contract, lighter framing.
func (a *AIExtractor) plainSystemPrompt() string {
	return `Extract endurance ride events from the HTML you are given. Respond with a JSON array only. Each element must have "rideName", "date" (YYYY-MM-DD), and "location", plus any of: "region", "tag", "rideManager", "rideManagerContact", "controlJudges", "distances", "mapLink", "website", "flyer", "hasIntroRide", "isCancelled". No markdown, no explanation.`
}

func (a *AIExtractor) buildUserPrompt(chunk string) string {
	return "Extract all endurance ride events from this calendar HTML:\n\n" + chunk
}

// MapAIEvent maps the model's field names onto the common raw event
// shape shared with the DOM parser.
func (a *AIExtractor) MapAIEvent(obj map[string]any) models.RawEvent {
	event := models.RawEvent{models.RawKeySource: a.config.Source}
	details := make(map[string]any)

	name := stringField(obj, "rideName", "name")
	event[models.RawKeyName] = strings.TrimSpace(cancelMarkerRe.ReplaceAllString(name, ""))

	if date := stringField(obj, "date", "dateStart", "date_start"); date != "" {
		event[models.RawKeyDateStart] = normalizeAIDate(date)
	}
	if location := stringField(obj, "location"); location != "" {
		event[models.RawKeyLocation] = location
	}
	if region := strings.ToUpper(stringField(obj, "region")); models.ValidateRegion(region) {
		event[models.RawKeyRegion] = region
	}
	if tag := stringField(obj, "tag", "id", "rideId", "ride_id"); tag != "" {
		event[models.RawKeyRideID] = tag
	}
	if manager := stringField(obj, "rideManager", "ride_manager"); manager != "" {
		event[models.RawKeyRideManager] = manager
	}

	if contact, ok := obj["rideManagerContact"].(map[string]any); ok {
		if email := stringField(contact, "email"); email != "" {
			event[models.RawKeyManagerEmail] = email
		}
		if phone := stringField(contact, "phone"); phone != "" {
			event[models.RawKeyManagerPhone] = phone
		}
		if !event.Has(models.RawKeyRideManager) {
			if name := stringField(contact, "name"); name != "" {
				event[models.RawKeyRideManager] = name
			}
		}
	}

	if judges := mapAIJudges(obj["controlJudges"]); len(judges) > 0 {
		event[models.RawKeyJudges] = judges
	}

	if distances, structured, maxDate := mapAIDistances(obj["distances"]); len(distances) > 0 {
		event[models.RawKeyDistances] = distances
		if structured != nil {
			details["distances"] = structured
		}
		if maxDate != "" && maxDate > event.String(models.RawKeyDateStart) {
			event[models.RawKeyDateEnd] = maxDate
		}
	}

	if mapLink := stringField(obj, "mapLink", "map_link"); mapLink != "" {
		event[models.RawKeyMapLink] = mapLink
	}
	if website := stringField(obj, "website", "websiteUrl"); website != "" {
		event[models.RawKeyWebsite] = website
	}
	if flyer := stringField(obj, "flyer", "flyerUrl"); flyer != "" {
		event[models.RawKeyFlyer] = flyer
	}
	if description := stringField(obj, "description"); description != "" {
		event[models.RawKeyDescription] = description
	}

	if boolField(obj, "hasIntroRide", "has_intro_ride") {
		event[models.RawKeyHasIntroRide] = true
	}

	// Cancellation: same keyword scan as the DOM path over the name,
	// plus any explicit flag in either spelling.
	if DetectCancellation(name) ||
		boolField(obj, "isCancelled", "isCanceled", "cancelled", "canceled", "is_canceled") {
		event[models.RawKeyIsCanceled] = true
	}

	if len(details) > 0 {
		event[models.RawKeyEventDetails] = details
	}

	return event
}

// mapAIJudges flattens the model's judge objects into "role: name"
// strings, tolerating bare-string entries.
func mapAIJudges(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var judges []string
	for _, item := range list {
		switch j := item.(type) {
		case map[string]any:
			name := stringField(j, "name")
			if name == "" {
				continue
			}
			role := stringField(j, "role")
			if role == "" {
				role = "Control Judge"
			}
			judges = append(judges, role+": "+name)
		case string:
			if strings.TrimSpace(j) != "" {
				judges = append(judges, strings.TrimSpace(j))
			}
		}
	}
	return judges
}

// mapAIDistances flattens the model's distance objects into the common
// string list, keeping the structured form for the event-details bag
// and reporting the maximum per-distance date.
func mapAIDistances(v any) ([]string, []map[string]any, string) {
	list, ok := v.([]any)
	if !ok {
		return nil, nil, ""
	}

	var flat []string
	var structured []map[string]any
	maxDate := ""
	seen := make(map[string]bool)

	for _, item := range list {
		switch d := item.(type) {
		case map[string]any:
			distance := stringField(d, "distance")
			if distance == "" {
				continue
			}
			structured = append(structured, d)
			if date := normalizeAIDate(stringField(d, "date")); date != "" && date > maxDate {
				maxDate = date
			}
			if !seen[distance] {
				seen[distance] = true
				flat = append(flat, distance)
			}
		case string:
			d = strings.TrimSpace(d)
			if d != "" && !seen[d] {
				seen[d] = true
				flat = append(flat, d)
			}
		}
	}

	return flat, structured, maxDate
}

// normalizeAIDate coerces a model-provided date to YYYY-MM-DD, falling
// back to the literal-shape parser for non-ISO output.
func normalizeAIDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", date); err == nil {
		return date
	}
	if start, _, ok := parseDateText(date); ok {
		return start
	}
	return date
}

// EstimateTokens approximates the token count of a text at four bytes
// per token, the standard rough heuristic for English-plus-markup.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// SplitOversizeChunk cuts a chunk into pieces no larger than maxBytes,
// preferring structural boundaries: table rows first, then event divs,
// then any closing tag, then a plain byte midpoint as last resort.
func SplitOversizeChunk(chunk string, maxBytes int) []string {
	if len(chunk) <= maxBytes || maxBytes <= 0 {
		return []string{chunk}
	}

	boundaries := []string{"</tr>", "</div>", ">"}
	for _, boundary := range boundaries {
		if idx := splitPoint(chunk, boundary); idx > 0 {
			left := chunk[:idx]
			right := chunk[idx:]
			return append(SplitOversizeChunk(left, maxBytes), SplitOversizeChunk(right, maxBytes)...)
		}
	}

	mid := len(chunk) / 2
	return append(SplitOversizeChunk(chunk[:mid], maxBytes), SplitOversizeChunk(chunk[mid:], maxBytes)...)
}

// splitPoint finds the boundary occurrence nearest the middle of the
// chunk, returning the index just past it, or -1 when the boundary
// would produce an empty side.
func splitPoint(chunk, boundary string) int {
	mid := len(chunk) / 2
	idx := strings.LastIndex(chunk[:mid], boundary)
	if idx < 0 {
		idx = strings.Index(chunk[mid:], boundary)
		if idx < 0 {
			return -1
		}
		idx += mid
	}
	cut := idx + len(boundary)
	if cut <= 0 || cut >= len(chunk) {
		return -1
	}
	return cut
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func boolField(obj map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := obj[key].(bool); ok && v {
			return true
		}
	}
	return false
}
