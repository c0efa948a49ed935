// Package classify assigns brochure images to page slots using a
// vision-capable model and assembles the manifest the artifact stage
// renders from.
package classify

import "github.com/estateforge/prospect-engine/internal/extract"

// Category is the primary image bucket.
type Category string

const (
	CategoryHero        Category = "hero"
	CategoryExterior    Category = "exterior"
	CategoryInterior    Category = "interior"
	CategoryAmenity     Category = "amenity"
	CategoryFloorPlan   Category = "floor_plan"
	CategoryLocationMap Category = "location_map"
	CategoryLifestyle   Category = "lifestyle"
	CategoryBranding    Category = "branding"
	CategoryUnknown     Category = "unknown"
)

// Role is the slot the classifier thinks the image should fill.
type Role string

const (
	RoleHero    Role = "hero"
	RoleSection Role = "section"
	RoleGallery Role = "gallery"
)

// Quality is the classifier's visual-quality grade.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Interior sub-list keys. Unrecognized rooms land in living.
const (
	RoomLiving   = "living"
	RoomBedroom  = "bedroom"
	RoomKitchen  = "kitchen"
	RoomBathroom = "bathroom"
)

// Amenity tiers. Unspecified subcategories default to podium.
const (
	TierPodium    = "podium"
	TierRooftop   = "rooftop"
	TierCommunity = "community"
)

// ClassifiedImage extends an extracted image with the model's judgement.
// Confidence (classification certainty) and SectionScore (fitness for the
// assigned slot) are independent dimensions; hero selection uses their
// product, so both are retained.
type ClassifiedImage struct {
	extract.Image

	Category             Category `json:"category"`
	Subcategory          string   `json:"subcategory,omitempty"`
	Role                 Role     `json:"role"`
	Quality              Quality  `json:"quality"`
	Description          string   `json:"description,omitempty"`
	DescriptionLocalized string   `json:"descriptionLocalized,omitempty"`
	Alt                  string   `json:"alt,omitempty"`
	Confidence           float64  `json:"confidence"`
	SectionScore         float64  `json:"sectionScore"`
	IsHeroCandidate      bool     `json:"isHeroCandidate"`
}

// InteriorSections splits interior shots by room.
type InteriorSections struct {
	Living   []ClassifiedImage `json:"living,omitempty"`
	Bedroom  []ClassifiedImage `json:"bedroom,omitempty"`
	Kitchen  []ClassifiedImage `json:"kitchen,omitempty"`
	Bathroom []ClassifiedImage `json:"bathroom,omitempty"`
}

// AmenityTiers splits amenity shots by level.
type AmenityTiers struct {
	Podium    []ClassifiedImage `json:"podium,omitempty"`
	Rooftop   []ClassifiedImage `json:"rooftop,omitempty"`
	Community []ClassifiedImage `json:"community,omitempty"`
}

// Manifest is the denormalized index over a set of classified images.
// Invariant: the hero, when present, appears in no other list.
type Manifest struct {
	Hero         *ClassifiedImage  `json:"hero,omitempty"`
	Exterior     []ClassifiedImage `json:"exterior,omitempty"`
	Interior     InteriorSections  `json:"interior"`
	Amenities    AmenityTiers      `json:"amenities"`
	FloorPlans   []ClassifiedImage `json:"floorPlans,omitempty"`
	LocationMaps []ClassifiedImage `json:"locationMaps,omitempty"`
	Lifestyle    []ClassifiedImage `json:"lifestyle,omitempty"`
	Branding     []ClassifiedImage `json:"branding,omitempty"`
	Gallery      []ClassifiedImage `json:"gallery,omitempty"`
}

// Result is the classifier output.
type Result struct {
	Classified []ClassifiedImage `json:"classified"`
	Manifest   Manifest          `json:"manifest"`
}
