package classify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/observability"
)

const classifySystemPrompt = `You are a real-estate marketing image analyst. You receive one image from a property brochure and must classify it for use on a property page. Respond with exactly one JSON object and nothing else.`

const classifyPromptTemplate = `Classify this brochure image. Respond with one JSON object:

{
  "category": "hero|exterior|interior|amenity|floor_plan|location_map|lifestyle|branding|unknown",
  "subcategory": "for interior: living|bedroom|kitchen|bathroom; for amenity: podium|rooftop|community; otherwise omit",
  "role": "hero|section|gallery",
  "quality": "high|medium|low",
  "description": "one factual sentence about what the image shows",
  "alt": "short alt text for the image",
  "isHeroCandidate": true or false,
  "confidence": 0.0 to 1.0 (how certain the classification is),
  "sectionScore": 0.0 to 1.0 (how well the image fits the assigned role)
}

Rules:
- isHeroCandidate is true only for striking full-building or skyline shots.
- Logos, watermarked covers and brand artwork are "branding".
- Schematic unit layouts are "floor_plan"; maps and aerial locators are "location_map".
- Do not invent details not visible in the image.`

// Options tunes batching and the model used for vision calls.
type Options struct {
	BatchSize  int
	BatchPause time.Duration
	Model      string
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:  3,
		BatchPause: time.Second,
	}
}

// Classifier runs batched vision calls over extracted images.
type Classifier struct {
	llm    llm.Completer
	logger *observability.Logger
	opts   Options
}

// NewClassifier creates a classifier.
func NewClassifier(completer llm.Completer, logger *observability.Logger, opts Options) *Classifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Classifier{
		llm:    completer,
		logger: logger.WithStage("classify"),
		opts:   opts,
	}
}

// Classify labels every image and assembles the manifest. Images are
// processed in fixed-size batches, concurrently within a batch with a pause
// between batches to respect upstream rate limits. A failed classification
// of one image never aborts the batch; the image gets safe defaults instead.
func (c *Classifier) Classify(ctx context.Context, images []extract.Image) (*Result, error) {
	classified := make([]ClassifiedImage, len(images))

	for start := 0; start < len(images); start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > len(images) {
			end = len(images)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				classified[i] = c.classifyOne(gctx, images[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(images) && c.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.BatchPause):
			}
		}
	}

	c.logger.Info().
		Int("images", len(classified)).
		Msg("Image classification complete")

	return &Result{
		Classified: classified,
		Manifest:   BuildManifest(classified),
	}, nil
}

// classifyOne sends one image to the vision model and parses the verdict.
// Any failure collapses to safe defaults rather than an error.
func (c *Classifier) classifyOne(ctx context.Context, img extract.Image) ClassifiedImage {
	out := defaultClassification(img)

	// Send the image bytes inline. A blob-store URL is usually internal and
	// not reachable from the model provider; ImageRef is only a fallback for
	// images extracted without retained bytes.
	req := llm.Request{
		System: classifySystemPrompt,
		Prompt: classifyPromptTemplate,
		Model:  c.opts.Model,
	}
	if len(img.Data) > 0 {
		req.ImageData = img.Data
		req.ImageMIME = "image/jpeg"
	} else {
		req.ImageRef = img.URL
	}

	content, err := c.llm.Complete(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Int("page", img.Page).Msg("Vision call failed, using defaults")
		return out
	}

	applyVerdict(&out, content)
	return out
}

// defaultClassification is the safe fallback when the model cannot be
// reached or its output cannot be parsed.
func defaultClassification(img extract.Image) ClassifiedImage {
	return ClassifiedImage{
		Image:      img,
		Category:   CategoryUnknown,
		Role:       RoleGallery,
		Quality:    QualityMedium,
		Confidence: 0,
	}
}

// verdict mirrors the JSON object the prompt asks for. Fields are validated
// individually so one bad field does not discard the rest.
type verdict struct {
	Category        string  `json:"category"`
	Subcategory     string  `json:"subcategory"`
	Role            string  `json:"role"`
	Quality         string  `json:"quality"`
	Description     string  `json:"description"`
	Alt             string  `json:"alt"`
	IsHeroCandidate bool    `json:"isHeroCandidate"`
	Confidence      float64 `json:"confidence"`
	SectionScore    float64 `json:"sectionScore"`
}

func applyVerdict(out *ClassifiedImage, content string) {
	raw, err := llm.CarveObject(content)
	if err != nil {
		return
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return
	}

	if cat, ok := parseCategory(v.Category); ok {
		out.Category = cat
	}
	out.Subcategory = normalizeSubcategory(out.Category, v.Subcategory)
	if role, ok := parseRole(v.Role); ok {
		out.Role = role
	}
	if q, ok := parseQuality(v.Quality); ok {
		out.Quality = q
	}
	out.Description = strings.TrimSpace(v.Description)
	out.Alt = strings.TrimSpace(v.Alt)
	out.IsHeroCandidate = v.IsHeroCandidate
	out.Confidence = clamp01(v.Confidence)
	out.SectionScore = clamp01(v.SectionScore)
}

func parseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryHero:
		return CategoryHero, true
	case CategoryExterior:
		return CategoryExterior, true
	case CategoryInterior:
		return CategoryInterior, true
	case CategoryAmenity:
		return CategoryAmenity, true
	case CategoryFloorPlan:
		return CategoryFloorPlan, true
	case CategoryLocationMap:
		return CategoryLocationMap, true
	case CategoryLifestyle:
		return CategoryLifestyle, true
	case CategoryBranding:
		return CategoryBranding, true
	case CategoryUnknown:
		return CategoryUnknown, true
	}
	return "", false
}

func parseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleHero:
		return RoleHero, true
	case RoleSection:
		return RoleSection, true
	case RoleGallery:
		return RoleGallery, true
	}
	return "", false
}

func parseQuality(s string) (Quality, bool) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityHigh:
		return QualityHigh, true
	case QualityMedium:
		return QualityMedium, true
	case QualityLow:
		return QualityLow, true
	}
	return "", false
}

// normalizeSubcategory keeps only subcategories meaningful for the category.
func normalizeSubcategory(cat Category, s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch cat {
	case CategoryInterior:
		switch s {
		case RoomLiving, RoomBedroom, RoomKitchen, RoomBathroom:
			return s
		}
		return ""
	case CategoryAmenity:
		switch s {
		case TierPodium, TierRooftop, TierCommunity:
			return s
		}
		return ""
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
