package generate

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/observability"
)

// seoDescriptionLimit is the meta-description length search engines display.
const seoDescriptionLimit = 160

const seoSystemPrompt = `You are an SEO specialist for real-estate listings. Respond with exactly one JSON object and nothing else.`

// SEOContent is the generated search bundle.
type SEOContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// SEOOptions tunes the generator.
type SEOOptions struct {
	Model string
}

// SEOGenerator produces the title/description/keyword triple.
type SEOGenerator struct {
	llm    llm.Completer
	logger *observability.Logger
	opts   SEOOptions
}

// NewSEOGenerator creates an SEO generator.
func NewSEOGenerator(completer llm.Completer, logger *observability.Logger, opts SEOOptions) *SEOGenerator {
	return &SEOGenerator{
		llm:    completer,
		logger: logger.WithStage("seo"),
		opts:   opts,
	}
}

// Generate builds SEO copy for the project. Any failure falls back to a
// deterministic bundle derived from the project itself, never blocking the
// pipeline.
func (g *SEOGenerator) Generate(ctx context.Context, p *mapper.StructuredProject) SEOContent {
	response, err := g.llm.Complete(ctx, llm.Request{
		System: seoSystemPrompt,
		Prompt: g.buildPrompt(p),
		Model:  g.opts.Model,
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("SEO call failed, using fallback")
		return Fallback(p)
	}

	raw, err := llm.CarveObject(response)
	if err != nil {
		g.logger.Warn().Err(err).Msg("SEO response unusable, using fallback")
		return Fallback(p)
	}

	var content SEOContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil || strings.TrimSpace(content.Title) == "" {
		g.logger.Warn().Err(err).Msg("SEO response unusable, using fallback")
		return Fallback(p)
	}

	if content.Keywords == nil {
		content.Keywords = []string{}
	}
	content.Description = truncate(content.Description, seoDescriptionLimit)
	return content
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
// Arabic copy is multi-byte throughout, so a plain slice would leave a
// mangled trailing character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func (g *SEOGenerator) buildPrompt(p *mapper.StructuredProject) string {
	var sb strings.Builder
	sb.WriteString("Write SEO metadata for this property listing page. Respond with one JSON object:\n")
	sb.WriteString(`{"title": "max 60 chars", "description": "max 160 chars", "keywords": ["5-10 search phrases"]}`)
	sb.WriteString("\n\nProject: ")
	sb.WriteString(p.Name)
	if p.Developer != "" {
		sb.WriteString("\nDeveloper: ")
		sb.WriteString(p.Developer)
	}
	if !p.Location.IsZero() {
		sb.WriteString("\nLocation: ")
		sb.WriteString(strings.TrimSpace(p.Location.Area + " " + p.Location.City))
	}
	if p.Description != "" {
		sb.WriteString("\nAbout: ")
		sb.WriteString(p.Description)
	}
	return sb.String()
}

// Fallback is the deterministic SEO bundle used whenever generation fails.
func Fallback(p *mapper.StructuredProject) SEOContent {
	desc := truncate(p.Description, seoDescriptionLimit)
	return SEOContent{
		Title:       p.Name,
		Description: desc,
		Keywords:    []string{},
	}
}
