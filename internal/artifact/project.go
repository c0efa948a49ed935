package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/estateforge/prospect-engine/internal/classify"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/generate"
	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/observability"
	"github.com/estateforge/prospect-engine/internal/storage"
)

// ProjectStore is the persistence surface project creation needs.
type ProjectStore interface {
	Create(ctx context.Context, p *storage.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*storage.Project, error)
	ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// MiniSiteStore is the persistence surface mini-site creation needs.
type MiniSiteStore interface {
	Create(ctx context.Context, m *storage.MiniSite) error
	ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Builder materializes Project and MiniSite artifacts.
type Builder struct {
	projects  ProjectStore
	minisites MiniSiteStore
	logger    *observability.Logger
}

// NewBuilder creates an artifact builder.
func NewBuilder(projects ProjectStore, minisites MiniSiteStore, logger *observability.Logger) *Builder {
	return &Builder{
		projects:  projects,
		minisites: minisites,
		logger:    logger.WithStage("artifact"),
	}
}

// Inputs is everything the builder projects from.
type Inputs struct {
	Prospect  *storage.Prospect
	Project   *mapper.StructuredProject
	Manifest  *classify.Manifest
	Extracted []extract.Image
	SEO       generate.SEOContent
}

// GalleryImage is one page-ready gallery entry. Source records whether the
// image came out of the PDF or from model-asserted URLs.
type GalleryImage struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Source string `json:"source"`
}

// AmenityView is one rendered amenity.
type AmenityView struct {
	Name          string `json:"name"`
	NameLocalized string `json:"nameLocalized,omitempty"`
	Icon          string `json:"icon"`
}

// AmenityGroup is one category bucket of amenities.
type AmenityGroup struct {
	Category string        `json:"category"`
	Items    []AmenityView `json:"items"`
}

// UnitView is one page-ready unit row with formatted ranges.
type UnitView struct {
	Name       string `json:"name"`
	Bedrooms   int    `json:"bedrooms,omitempty"`
	SizeRange  string `json:"sizeRange,omitempty"`
	PriceRange string `json:"priceRange,omitempty"`
}

// PricingView is the page-header price summary.
type PricingView struct {
	StartingPrice float64 `json:"startingPrice,omitempty"`
	Label         string  `json:"label,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	Note          string  `json:"note,omitempty"`
}

// ProjectPayload is the property-page projection stored on the Project row.
type ProjectPayload struct {
	Name                 string              `json:"name"`
	NameLocalized        string              `json:"nameLocalized,omitempty"`
	Tagline              string              `json:"tagline,omitempty"`
	TaglineLocalized     string              `json:"taglineLocalized,omitempty"`
	Description          string              `json:"description,omitempty"`
	DescriptionLocalized string              `json:"descriptionLocalized,omitempty"`
	Developer            string              `json:"developer,omitempty"`
	Location             mapper.Location     `json:"location"`
	Specs                mapper.Specs        `json:"specs"`
	Hero                 *GalleryImage       `json:"hero,omitempty"`
	Gallery              []GalleryImage      `json:"gallery,omitempty"`
	AmenityGroups        []AmenityGroup      `json:"amenityGroups,omitempty"`
	Units                []UnitView          `json:"units,omitempty"`
	PaymentPlan          mapper.PaymentPlan  `json:"paymentPlan"`
	Highlights           []mapper.Highlight  `json:"highlights,omitempty"`
	FAQ                  []mapper.FAQ        `json:"faq,omitempty"`
	Pricing              PricingView         `json:"pricing"`
	SEO                  generate.SEOContent `json:"seo"`
}

// BuildProject materializes the Project artifact. The prospect's projectId
// and projectSlug are written exactly once; a prospect that already has a
// project returns the existing record unchanged.
func (b *Builder) BuildProject(ctx context.Context, in Inputs) (*storage.Project, error) {
	prospect := in.Prospect
	if prospect.ProjectID != nil {
		existing, err := b.projects.GetByID(ctx, *prospect.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("load existing project: %w", err)
		}
		b.logger.Info().
			Str("project_id", existing.ID.String()).
			Msg("Project already materialized, reusing")
		return existing, nil
	}

	slug, err := UniqueSlug(ctx, b.projects, Slugify(in.Project.Name))
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(BuildProjectPayload(in))
	if err != nil {
		return nil, fmt.Errorf("marshal project payload: %w", err)
	}

	project := &storage.Project{
		ID:            uuid.New(),
		Slug:          slug,
		Name:          in.Project.Name,
		NameLocalized: in.Project.NameLocalized,
		Developer:     in.Project.Developer,
		ProspectID:    prospect.ID,
		Payload:       payload,
		SEOTitle:      in.SEO.Title,
		SEODesc:       in.SEO.Description,
	}
	if err := b.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	prospect.ProjectID = &project.ID
	prospect.ProjectSlug = &project.Slug

	b.logger.Info().
		Str("project_id", project.ID.String()).
		Str("slug", slug).
		Msg("Project materialized")
	return project, nil
}

// BuildProjectPayload projects the structured record into page-ready shape.
func BuildProjectPayload(in Inputs) ProjectPayload {
	p := in.Project

	payload := ProjectPayload{
		Name:                 p.Name,
		NameLocalized:        p.NameLocalized,
		Tagline:              p.Tagline,
		TaglineLocalized:     p.TaglineLocalized,
		Description:          p.Description,
		DescriptionLocalized: p.DescriptionLocalized,
		Developer:            p.Developer,
		Location:             p.Location,
		Specs:                p.Specs,
		AmenityGroups:        groupAmenities(p.Amenities),
		Units:                unitViews(p.UnitTypes),
		PaymentPlan:          p.PaymentPlan,
		Highlights:           p.Highlights,
		FAQ:                  p.FAQ,
		Pricing:              pricingView(p.Pricing),
		SEO:                  in.SEO,
	}

	heroURL := ""
	if in.Manifest != nil && in.Manifest.Hero != nil {
		h := in.Manifest.Hero
		payload.Hero = &GalleryImage{
			URL:    h.URL,
			Alt:    h.Alt,
			Width:  h.Width,
			Height: h.Height,
			Source: "pdf",
		}
		heroURL = h.URL
	}
	payload.Gallery = mergeGallery(in.Extracted, in.Manifest, heroURL)

	return payload
}

// mergeGallery combines extracted-PDF images with the classifier's gallery
// list. Extracted images come first, ordered by pixel area descending, and
// win URL-level deduplication. The hero never re-enters the gallery.
func mergeGallery(extracted []extract.Image, manifest *classify.Manifest, heroURL string) []GalleryImage {
	byArea := make([]extract.Image, len(extracted))
	copy(byArea, extracted)
	sort.SliceStable(byArea, func(i, j int) bool {
		return byArea[i].Width*byArea[i].Height > byArea[j].Width*byArea[j].Height
	})

	seen := map[string]bool{heroURL: true}
	var gallery []GalleryImage

	altByURL := make(map[string]string)
	if manifest != nil {
		for _, img := range manifest.Gallery {
			if img.Alt != "" {
				altByURL[img.URL] = img.Alt
			}
		}
		// Branding and floor plans stay out even when extraction saw them.
		for _, img := range manifest.Branding {
			seen[img.URL] = true
		}
		for _, img := range manifest.FloorPlans {
			seen[img.URL] = true
		}
	}

	for _, img := range byArea {
		if img.URL == "" || seen[img.URL] {
			continue
		}
		seen[img.URL] = true
		gallery = append(gallery, GalleryImage{
			URL:    img.URL,
			Alt:    altByURL[img.URL],
			Width:  img.Width,
			Height: img.Height,
			Source: "pdf",
		})
	}

	if manifest != nil {
		for _, img := range manifest.Gallery {
			if img.URL == "" || seen[img.URL] {
				continue
			}
			seen[img.URL] = true
			gallery = append(gallery, GalleryImage{
				URL:    img.URL,
				Alt:    img.Alt,
				Width:  img.Width,
				Height: img.Height,
				Source: "ai",
			})
		}
	}

	return gallery
}

// groupAmenities buckets amenities by category, inferring icons by keyword
// when the mapper supplied none. Group order follows first appearance.
func groupAmenities(amenities []mapper.Amenity) []AmenityGroup {
	var groups []AmenityGroup
	index := make(map[string]int)

	for _, a := range amenities {
		category := strings.ToLower(strings.TrimSpace(a.Category))
		if category == "" {
			category = "general"
		}

		icon := a.Icon
		if icon == "" {
			icon = InferIcon(a.Name)
		}
		view := AmenityView{Name: a.Name, NameLocalized: a.NameLocalized, Icon: icon}

		i, ok := index[category]
		if !ok {
			groups = append(groups, AmenityGroup{Category: category})
			i = len(groups) - 1
			index[category] = i
		}
		groups[i].Items = append(groups[i].Items, view)
	}

	return groups
}

func unitViews(units []mapper.UnitType) []UnitView {
	var out []UnitView
	for _, u := range units {
		out = append(out, UnitView{
			Name:       u.Name,
			Bedrooms:   u.Bedrooms,
			SizeRange:  formatSizeRange(u),
			PriceRange: formatPriceRange(u),
		})
	}
	return out
}

func pricingView(p mapper.Pricing) PricingView {
	view := PricingView{
		StartingPrice: p.StartingPrice,
		Currency:      p.Currency,
		Note:          p.PriceNote,
	}
	if p.StartingPrice > 0 {
		view.Label = FormatPrice(p.StartingPrice, p.Currency)
	}
	return view
}

// FormatPrice renders an amount compactly: 700000 AED becomes "0.7M AED".
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "AED"
	}
	return formatAmount(amount) + " " + currency
}

func formatAmount(amount float64) string {
	switch {
	case amount >= 1e9:
		return trimTrailingZero(amount/1e9) + "B"
	case amount >= 1e5:
		return trimTrailingZero(amount/1e6) + "M"
	case amount >= 1e3:
		return trimTrailingZero(amount/1e3) + "K"
	default:
		return trimTrailingZero(amount)
	}
}

func trimTrailingZero(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

func formatPriceRange(u mapper.UnitType) string {
	switch {
	case u.PriceMin > 0 && u.PriceMax > u.PriceMin:
		return formatAmount(u.PriceMin) + " - " + FormatPrice(u.PriceMax, u.Currency)
	case u.PriceMin > 0:
		return FormatPrice(u.PriceMin, u.Currency)
	default:
		return ""
	}
}

func formatSizeRange(u mapper.UnitType) string {
	unit := u.SizeUnit
	if unit == "" {
		unit = "sqft"
	}
	switch {
	case u.SizeMin > 0 && u.SizeMax > u.SizeMin:
		return fmt.Sprintf("%s - %s %s", trimTrailingZero(u.SizeMin), trimTrailingZero(u.SizeMax), unit)
	case u.SizeMin > 0:
		return fmt.Sprintf("%s %s", trimTrailingZero(u.SizeMin), unit)
	default:
		return ""
	}
}
