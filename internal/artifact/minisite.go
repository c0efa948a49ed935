package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/storage"
)

// ErrNoProject is returned when mini-site creation runs before a project
// exists. A mini-site always references exactly one project.
var ErrNoProject = errors.New("artifact: prospect has no project, refusing to create orphan mini-site")

const defaultTemplate = "classic"

// MiniSiteResult reports the mini-site identifiers. Created is false when
// the idempotency guard returned an existing mini-site.
type MiniSiteResult struct {
	ID      uuid.UUID
	Slug    string
	Created bool
}

// HeroBlock is the mini-site masthead.
type HeroBlock struct {
	Title          string `json:"title"`
	TitleLocalized string `json:"titleLocalized,omitempty"`
	Subtitle       string `json:"subtitle,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// AboutBlock is the description section.
type AboutBlock struct {
	Heading       string `json:"heading"`
	Body          string `json:"body,omitempty"`
	BodyLocalized string `json:"bodyLocalized,omitempty"`
	Developer     string `json:"developer,omitempty"`
}

// FeatureItem is one highlighted feature.
type FeatureItem struct {
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

// PricingBlock carries the price story and unit table.
type PricingBlock struct {
	StartingLabel string             `json:"startingLabel,omitempty"`
	Units         []UnitView         `json:"units,omitempty"`
	PaymentPlan   mapper.PaymentPlan `json:"paymentPlan"`
}

// LocationBlock positions the development.
type LocationBlock struct {
	Area        string   `json:"area,omitempty"`
	City        string   `json:"city,omitempty"`
	Landmarks   []string `json:"landmarks,omitempty"`
	MapImageURL string   `json:"mapImageUrl,omitempty"`
}

// MiniSitePayload is the template-page projection stored on the MiniSite row.
type MiniSitePayload struct {
	Hero     HeroBlock      `json:"hero"`
	About    AboutBlock     `json:"about"`
	Features []FeatureItem  `json:"features,omitempty"`
	Pricing  PricingBlock   `json:"pricing"`
	Location LocationBlock  `json:"location"`
	FAQ      []mapper.FAQ   `json:"faq,omitempty"`
	Gallery  []GalleryImage `json:"gallery,omitempty"`
}

// BuildMiniSite materializes the MiniSite artifact. Calling it twice for
// the same prospect never creates two mini-sites: an already-set miniSiteId
// short-circuits to the existing identifiers. Requires the project to exist
// first.
func (b *Builder) BuildMiniSite(ctx context.Context, in Inputs) (*MiniSiteResult, error) {
	prospect := in.Prospect

	if prospect.MiniSiteID != nil {
		result := &MiniSiteResult{ID: *prospect.MiniSiteID}
		if prospect.MiniSiteSlug != nil {
			result.Slug = *prospect.MiniSiteSlug
		}
		b.logger.Info().
			Str("minisite_id", result.ID.String()).
			Msg("Mini-site already materialized, reusing")
		return result, nil
	}

	if prospect.ProjectID == nil {
		return nil, ErrNoProject
	}

	slug, err := UniqueSlug(ctx, b.minisites, Slugify(in.Project.Name))
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(BuildMiniSitePayload(in))
	if err != nil {
		return nil, fmt.Errorf("marshal mini-site payload: %w", err)
	}

	site := &storage.MiniSite{
		ID:         uuid.New(),
		Slug:       slug,
		ProjectID:  *prospect.ProjectID,
		ProspectID: prospect.ID,
		Template:   defaultTemplate,
		Payload:    payload,
	}
	if err := b.minisites.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("create mini-site: %w", err)
	}

	prospect.MiniSiteID = &site.ID
	prospect.MiniSiteSlug = &site.Slug

	b.logger.Info().
		Str("minisite_id", site.ID.String()).
		Str("slug", slug).
		Msg("Mini-site materialized")
	return &MiniSiteResult{ID: site.ID, Slug: site.Slug, Created: true}, nil
}

// BuildMiniSitePayload projects the structured record into template blocks.
func BuildMiniSitePayload(in Inputs) MiniSitePayload {
	p := in.Project

	payload := MiniSitePayload{
		Hero: HeroBlock{
			Title:          p.Name,
			TitleLocalized: p.NameLocalized,
			Subtitle:       p.Tagline,
		},
		About: AboutBlock{
			Heading:       "About " + p.Name,
			Body:          p.Description,
			BodyLocalized: p.DescriptionLocalized,
			Developer:     p.Developer,
		},
		Pricing: PricingBlock{
			Units:       unitViews(p.UnitTypes),
			PaymentPlan: p.PaymentPlan,
		},
		Location: LocationBlock{
			Area:      p.Location.Area,
			City:      p.Location.City,
			Landmarks: p.Location.Landmarks,
		},
		FAQ: p.FAQ,
	}

	if p.Pricing.StartingPrice > 0 {
		payload.Pricing.StartingLabel = "From " + FormatPrice(p.Pricing.StartingPrice, p.Pricing.Currency)
	}

	for _, h := range p.Highlights {
		payload.Features = append(payload.Features, FeatureItem{
			Title: h.Title,
			Icon:  InferIcon(h.Title),
		})
	}
	for _, a := range p.Amenities {
		icon := a.Icon
		if icon == "" {
			icon = InferIcon(a.Name)
		}
		payload.Features = append(payload.Features, FeatureItem{Title: a.Name, Icon: icon})
	}

	heroURL := ""
	if in.Manifest != nil {
		if in.Manifest.Hero != nil {
			payload.Hero.ImageURL = in.Manifest.Hero.URL
			heroURL = in.Manifest.Hero.URL
		}
		if len(in.Manifest.LocationMaps) > 0 {
			payload.Location.MapImageURL = in.Manifest.LocationMaps[0].URL
		}
	}
	payload.Gallery = mergeGallery(in.Extracted, in.Manifest, heroURL)

	return payload
}
