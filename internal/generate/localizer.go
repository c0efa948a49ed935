// Package generate produces the localized copy and SEO bundle for a mapped
// project. Both generators run after the mapper and are independent of each
// other.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/observability"
)

// substantialLocalizedLen is the description length above which the mapper
// is considered to have already localized the record, switching the
// localizer to enhancement mode.
const substantialLocalizedLen = 40

const localizerSystemPrompt = `You are a professional real-estate translator producing polished marketing copy. Respond with exactly one JSON object and nothing else.`

// IndexedText carries the source index alongside the translation so the
// merge does not depend on the model preserving list order.
type IndexedText struct {
	Index int    `json:"i"`
	Text  string `json:"text"`
}

// IndexedFAQ is the localized question/answer pair with its source index.
type IndexedFAQ struct {
	Index    int    `json:"i"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LocalizedContent is the localizer output, merged onto the project by
// ApplyLocalization.
type LocalizedContent struct {
	Name        string        `json:"name,omitempty"`
	Tagline     string        `json:"tagline,omitempty"`
	Description string        `json:"description,omitempty"`
	Amenities   []IndexedText `json:"amenities,omitempty"`
	Highlights  []IndexedText `json:"highlights,omitempty"`
	FAQ         []IndexedFAQ  `json:"faq,omitempty"`
}

// LocalizerOptions tunes the target locale and model.
type LocalizerOptions struct {
	Locale string
	Model  string
}

// Localizer translates project copy into the target locale.
type Localizer struct {
	llm    llm.Completer
	logger *observability.Logger
	opts   LocalizerOptions
}

// NewLocalizer creates a localizer. The default locale is Arabic.
func NewLocalizer(completer llm.Completer, logger *observability.Logger, opts LocalizerOptions) *Localizer {
	if opts.Locale == "" {
		opts.Locale = "ar"
	}
	return &Localizer{
		llm:    completer,
		logger: logger.WithStage("localize"),
		opts:   opts,
	}
}

// Localize produces translations for the project's user-facing copy. When
// the mapper already delivered a substantial localized description, only
// the still-missing fields are requested. Errors are stage-soft; the
// caller continues without localization.
func (l *Localizer) Localize(ctx context.Context, p *mapper.StructuredProject) (*LocalizedContent, error) {
	enhance := len([]rune(strings.TrimSpace(p.DescriptionLocalized))) >= substantialLocalizedLen

	response, err := l.llm.Complete(ctx, llm.Request{
		System: localizerSystemPrompt,
		Prompt: l.buildPrompt(p, enhance),
		Model:  l.opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("localization call: %w", err)
	}

	raw, err := llm.CarveObject(response)
	if err != nil {
		return nil, fmt.Errorf("localization: %w", err)
	}

	var content LocalizedContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("localization: parse response: %w", err)
	}

	l.logger.Info().
		Bool("enhance", enhance).
		Int("amenities", len(content.Amenities)).
		Int("highlights", len(content.Highlights)).
		Msg("Localization complete")

	return &content, nil
}

func (l *Localizer) buildPrompt(p *mapper.StructuredProject, enhance bool) string {
	var sb strings.Builder

	localeName := l.opts.Locale
	if localeName == "ar" {
		localeName = "Arabic"
	}

	if enhance {
		fmt.Fprintf(&sb, "The project below already has %s copy for its description. Polish it lightly and translate only the fields that are still missing a %s version.\n\n", localeName, localeName)
	} else {
		fmt.Fprintf(&sb, "Translate the marketing copy of this real-estate project into %s. Keep the tone premium but factual.\n\n", localeName)
	}

	sb.WriteString("Respond with one JSON object:\n")
	sb.WriteString(`{
  "name": "localized project name",
  "tagline": "localized tagline",
  "description": "localized description",
  "amenities": [{"i": 0, "text": "localized amenity name"}],
  "highlights": [{"i": 0, "text": "localized highlight title"}],
  "faq": [{"i": 0, "question": "localized question", "answer": "localized answer"}]
}`)
	sb.WriteString("\n\nEach \"i\" must echo the index of the source item below. Omit fields with no source content.\n\n")

	fmt.Fprintf(&sb, "name: %s\n", p.Name)
	if p.Tagline != "" {
		fmt.Fprintf(&sb, "tagline: %s\n", p.Tagline)
	}
	if p.Description != "" {
		fmt.Fprintf(&sb, "description: %s\n", p.Description)
	}
	if p.DescriptionLocalized != "" {
		fmt.Fprintf(&sb, "existing localized description: %s\n", p.DescriptionLocalized)
	}
	for i, a := range p.Amenities {
		fmt.Fprintf(&sb, "amenity[%d]: %s\n", i, a.Name)
	}
	for i, h := range p.Highlights {
		fmt.Fprintf(&sb, "highlight[%d]: %s\n", i, h.Title)
	}
	for i, f := range p.FAQ {
		fmt.Fprintf(&sb, "faq[%d]: Q: %s A: %s\n", i, f.Question, f.Answer)
	}

	return sb.String()
}

// ApplyLocalization merges localized copy onto the project. Echoed indexes
// win; an item with an out-of-range index falls back to its position in the
// response list.
func ApplyLocalization(p *mapper.StructuredProject, c *LocalizedContent) {
	if c == nil {
		return
	}

	if c.Name != "" {
		p.NameLocalized = c.Name
	}
	if c.Tagline != "" {
		p.TaglineLocalized = c.Tagline
	}
	if c.Description != "" {
		p.DescriptionLocalized = c.Description
	}

	for pos, item := range c.Amenities {
		if i, ok := resolveIndex(item.Index, pos, len(p.Amenities)); ok && item.Text != "" {
			p.Amenities[i].NameLocalized = item.Text
		}
	}
	for pos, item := range c.Highlights {
		if i, ok := resolveIndex(item.Index, pos, len(p.Highlights)); ok && item.Text != "" {
			p.Highlights[i].TitleLocalized = item.Text
		}
	}
	for pos, item := range c.FAQ {
		i, ok := resolveIndex(item.Index, pos, len(p.FAQ))
		if !ok {
			continue
		}
		if item.Question != "" {
			p.FAQ[i].QuestionLocalized = item.Question
		}
		if item.Answer != "" {
			p.FAQ[i].AnswerLocalized = item.Answer
		}
	}
}

func resolveIndex(echoed, pos, n int) (int, bool) {
	if echoed >= 0 && echoed < n {
		return echoed, true
	}
	if pos < n {
		return pos, true
	}
	return 0, false
}
