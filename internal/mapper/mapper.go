package mapper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/estateforge/prospect-engine/internal/cache"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/observability"
)

const mapperSystemPrompt = `You are a real-estate data extraction engine. You read property brochure text and emit one JSON object matching the requested schema. Use only facts present in the text. Never invent prices, dates, unit counts or amenities. Omit fields you cannot support with the text. Respond with the JSON object only, no prose.`

const schemaExample = `{
  "name": "Marina Heights",
  "nameLocalized": "مرتفعات المارينا",
  "tagline": "Waterfront living redefined",
  "description": "A 40-storey residential tower...",
  "developer": "Example Properties",
  "location": {
    "area": "Dubai Marina",
    "city": "Dubai",
    "country": "UAE",
    "landmarks": ["5 min to Marina Mall"],
    "connectivity": ["Sheikh Zayed Road"]
  },
  "specs": {
    "totalFloors": 40,
    "totalUnits": 320,
    "propertyType": "apartment",
    "completionDate": "Q4 2027",
    "handoverDate": "Q1 2028"
  },
  "unitTypes": [
    {"name": "1 Bedroom", "bedrooms": 1, "sizeMin": 720, "sizeMax": 850, "sizeUnit": "sqft", "priceMin": 1200000, "priceMax": 1500000, "currency": "AED"}
  ],
  "amenities": [
    {"name": "Infinity Pool", "category": "leisure"}
  ],
  "highlights": [
    {"title": "Full marina views", "description": "Every unit faces the water"}
  ],
  "paymentPlan": {
    "name": "60/40",
    "milestones": [
      {"label": "Booking", "percentage": 10, "trigger": "on booking"},
      {"label": "During construction", "percentage": 50, "trigger": "monthly"},
      {"label": "Handover", "percentage": 40, "trigger": "on handover"}
    ]
  },
  "faq": [
    {"question": "When is handover?", "answer": "Q1 2028."}
  ],
  "pricing": {"startingPrice": 1200000, "currency": "AED", "priceNote": "Starting from"}
}`

// Options tunes the mapper.
type Options struct {
	TextBudget int
	Model      string
	CacheTTL   time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TextBudget: 15000,
		CacheTTL:   time.Hour,
	}
}

// Mapper turns brochure content into a StructuredProject.
type Mapper struct {
	llm    llm.Completer
	cache  cache.Client
	logger *observability.Logger
	opts   Options
}

// NewMapper creates a mapper. The cache is optional; pass nil to disable
// response caching.
func NewMapper(completer llm.Completer, c cache.Client, logger *observability.Logger, opts Options) *Mapper {
	if opts.TextBudget <= 0 {
		opts.TextBudget = DefaultOptions().TextBudget
	}
	return &Mapper{
		llm:    completer,
		cache:  c,
		logger: logger.WithStage("mapper"),
		opts:   opts,
	}
}

// Map sends one structured prompt and parses the model's answer. Schema
// misses route through tolerant reconstruction; only unusable output is a
// hard failure (Success=false).
func (m *Mapper) Map(ctx context.Context, content *extract.ContentResult) *AIMapperResult {
	prompt := m.buildPrompt(content)

	response, cached := m.cachedResponse(ctx, prompt)
	if !cached {
		var err error
		response, err = m.llm.Complete(ctx, llm.Request{
			System: mapperSystemPrompt,
			Prompt: prompt,
			Model:  m.opts.Model,
		})
		if err != nil {
			m.logger.Error().Err(err).Msg("Mapping call failed")
			return &AIMapperResult{
				Success: false,
				Errors:  []string{fmt.Sprintf("model call failed: %v", err)},
			}
		}
		m.storeResponse(ctx, prompt, response)
	}

	return m.parse(response)
}

// parse cleans the response text and decodes it, falling back to
// reconstruction when strict validation fails.
func (m *Mapper) parse(response string) *AIMapperResult {
	result := &AIMapperResult{RawResponse: response}

	raw, err := llm.CarveObject(response)
	if err != nil {
		result.Errors = []string{fmt.Sprintf("clean response: %v", err)}
		return result
	}

	var rawMap map[string]any
	if err := json.Unmarshal([]byte(raw), &rawMap); err != nil {
		result.Errors = []string{fmt.Sprintf("parse response: %v", err)}
		return result
	}

	var project StructuredProject
	if err := json.Unmarshal([]byte(raw), &project); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("decode schema: %v", err))
	} else if verr := project.Validate(); verr != nil {
		result.Errors = append(result.Errors, verr.Error())
	} else {
		// Strict decoding drops unknown keys, so a response that names its
		// fields differently can pass validation with most of its content
		// missing. Run the tolerant pass over the raw object anyway and
		// merge whatever it recovers into the gaps.
		if salvaged := Reconstruct(rawMap); salvaged != nil && mergeSalvaged(&project, salvaged) {
			project.Confidence = reconstructedConfidence(&project)
			m.logger.Warn().
				Float64("confidence", project.Confidence).
				Msg("Alias fallback recovered fields the schema decode missed")
		} else {
			project.Confidence = completenessConfidence(&project)
		}
		result.Success = true
		result.Data = &project
		result.Confidence = project.Confidence
		return result
	}

	salvaged := Reconstruct(rawMap)
	if salvaged == nil {
		m.logger.Warn().Strs("errors", result.Errors).Msg("Mapping produced no usable data")
		return result
	}

	salvaged.Confidence = reconstructedConfidence(salvaged)
	m.logger.Warn().
		Float64("confidence", salvaged.Confidence).
		Msg("Schema validation failed, returning reconstructed partial")

	result.Success = true
	result.Data = salvaged
	result.Confidence = salvaged.Confidence
	return result
}

// buildPrompt assembles the text (budget-truncated), table dump and
// metadata into one instruction.
func (m *Mapper) buildPrompt(content *extract.ContentResult) string {
	text := truncateText(content.Text, m.opts.TextBudget)

	var sb strings.Builder
	sb.WriteString("Extract the property project data from this brochure as a JSON object with this exact shape:\n\n")
	sb.WriteString(schemaExample)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Include only facts stated in the brochure text below.\n")
	sb.WriteString("- All monetary and size values must be plain numbers, never formatted strings.\n")
	sb.WriteString("- Payment plan percentages should sum to 100 when the brochure gives a full schedule.\n")
	sb.WriteString("- nameLocalized and other *Localized fields only if the brochure itself contains Arabic text.\n")

	if content.Metadata.Title != "" {
		fmt.Fprintf(&sb, "\nDocument title: %s\n", content.Metadata.Title)
	}
	fmt.Fprintf(&sb, "Pages: %d\n", content.PageCount)

	if len(content.Tables) > 0 {
		sb.WriteString("\nTables found in the brochure:\n")
		for _, t := range content.Tables {
			if t.Header != "" {
				fmt.Fprintf(&sb, "[%s]\n", t.Header)
			}
			for _, row := range t.Rows {
				sb.WriteString(strings.Join(row, " | "))
				sb.WriteByte('\n')
			}
		}
	}

	sb.WriteString("\nBrochure text:\n")
	sb.WriteString(text)
	return sb.String()
}

// truncateText cuts the brochure text to the byte budget without splitting a
// UTF-8 rune; brochures routinely mix Arabic into the copy.
func truncateText(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	for budget > 0 && !utf8.RuneStart(s[budget]) {
		budget--
	}
	return s[:budget]
}

func (m *Mapper) cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return cache.Key("mapper", hex.EncodeToString(sum[:16]))
}

func (m *Mapper) cachedResponse(ctx context.Context, prompt string) (string, bool) {
	if m.cache == nil {
		return "", false
	}
	data, err := m.cache.Get(ctx, m.cacheKey(prompt))
	if err != nil {
		return "", false
	}
	m.logger.Debug().Msg("Mapper cache hit")
	return string(data), true
}

func (m *Mapper) storeResponse(ctx context.Context, prompt, response string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, m.cacheKey(prompt), []byte(response), m.opts.CacheTTL); err != nil {
		m.logger.Debug().Err(err).Msg("Mapper cache store failed")
	}
}
