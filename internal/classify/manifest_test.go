package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateforge/prospect-engine/internal/extract"
)

func img(url string) extract.Image {
	return extract.Image{URL: url, Width: 800, Height: 600, Format: "jpeg"}
}

func TestSelectHeroUsesConfidenceTimesSectionScore(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("a"), Category: CategoryExterior, Quality: QualityHigh, IsHeroCandidate: true, Confidence: 0.9, SectionScore: 0.5},
		{Image: img("b"), Category: CategoryExterior, Quality: QualityHigh, IsHeroCandidate: true, Confidence: 0.7, SectionScore: 0.9},
		{Image: img("c"), Category: CategoryExterior, Quality: QualityMedium, IsHeroCandidate: true, Confidence: 1.0, SectionScore: 1.0},
	}

	hero := selectHero(images)
	require.NotNil(t, hero)
	// b: 0.63 beats a: 0.45; c is excluded for quality despite the top product.
	assert.Equal(t, "b", hero.URL)
}

func TestSelectHeroFallsBackToBestExterior(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("interior"), Category: CategoryInterior, Quality: QualityHigh, Confidence: 0.95},
		{Image: img("ext-low"), Category: CategoryExterior, Quality: QualityLow, Confidence: 0.6},
		{Image: img("ext-best"), Category: CategoryExterior, Quality: QualityMedium, Confidence: 0.8},
	}

	hero := selectHero(images)
	require.NotNil(t, hero)
	assert.Equal(t, "ext-best", hero.URL)
}

func TestSelectHeroNone(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("plan"), Category: CategoryFloorPlan, Quality: QualityHigh, Confidence: 0.9},
	}
	assert.Nil(t, selectHero(images))
}

func TestBuildManifestExcludesHeroFromAllLists(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("hero"), Category: CategoryExterior, Quality: QualityHigh, IsHeroCandidate: true, Confidence: 0.9, SectionScore: 0.9},
		{Image: img("pool"), Category: CategoryAmenity, Subcategory: TierRooftop, Quality: QualityHigh, Confidence: 0.8},
		{Image: img("bedroom"), Category: CategoryInterior, Subcategory: RoomBedroom, Quality: QualityMedium, Confidence: 0.7},
	}

	m := BuildManifest(images)
	require.NotNil(t, m.Hero)
	assert.Equal(t, "hero", m.Hero.URL)

	for _, list := range [][]ClassifiedImage{
		m.Exterior, m.Interior.Living, m.Interior.Bedroom, m.Interior.Kitchen, m.Interior.Bathroom,
		m.Amenities.Podium, m.Amenities.Rooftop, m.Amenities.Community,
		m.FloorPlans, m.LocationMaps, m.Lifestyle, m.Branding, m.Gallery,
	} {
		for _, entry := range list {
			assert.NotEqual(t, "hero", entry.URL)
		}
	}

	assert.Len(t, m.Amenities.Rooftop, 1)
	assert.Len(t, m.Interior.Bedroom, 1)
}

func TestBuildManifestAmenityDefaultsToPodium(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("gym"), Category: CategoryAmenity, Quality: QualityMedium, Confidence: 0.6},
	}
	m := BuildManifest(images)
	assert.Len(t, m.Amenities.Podium, 1)
	assert.Empty(t, m.Amenities.Rooftop)
}

func TestBuildManifestGalleryExcludesBrandingAndFloorPlans(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("logo"), Category: CategoryBranding, Quality: QualityHigh, Confidence: 0.95},
		{Image: img("plan"), Category: CategoryFloorPlan, Quality: QualityHigh, Confidence: 0.95},
		{Image: img("lobby"), Category: CategoryInterior, Quality: QualityMedium, Confidence: 0.5},
	}

	m := BuildManifest(images)
	require.Len(t, m.Gallery, 1)
	assert.Equal(t, "lobby", m.Gallery[0].URL)
	assert.Len(t, m.Branding, 1)
	assert.Len(t, m.FloorPlans, 1)
}

func TestBuildManifestGallerySortedByQualityWeightedConfidence(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("low"), Category: CategoryLifestyle, Quality: QualityLow, Confidence: 0.9},     // 0.36
		{Image: img("high"), Category: CategoryExterior, Quality: QualityHigh, Confidence: 0.6},    // 0.60
		{Image: img("medium"), Category: CategoryInterior, Quality: QualityMedium, Confidence: 0.8}, // 0.56
	}

	m := BuildManifest(images)
	// No hero candidates, so the best exterior becomes hero and leaves the gallery.
	require.NotNil(t, m.Hero)
	assert.Equal(t, "high", m.Hero.URL)

	require.Len(t, m.Gallery, 2)
	assert.Equal(t, "medium", m.Gallery[0].URL)
	assert.Equal(t, "low", m.Gallery[1].URL)
}

// A brochure's worth of images: the striking exterior becomes the hero and
// the gallery holds everything except branding, floor plans and the hero.
func TestBuildManifestFullBrochure(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("tower"), Category: CategoryExterior, Quality: QualityHigh, IsHeroCandidate: true, Confidence: 0.95, SectionScore: 0.9},
		{Image: img("pool"), Category: CategoryAmenity, Subcategory: TierPodium, Quality: QualityHigh, Confidence: 0.9},
		{Image: img("gym"), Category: CategoryAmenity, Subcategory: TierPodium, Quality: QualityMedium, Confidence: 0.8},
		{Image: img("living"), Category: CategoryInterior, Subcategory: RoomLiving, Quality: QualityHigh, Confidence: 0.85},
		{Image: img("bedroom"), Category: CategoryInterior, Subcategory: RoomBedroom, Quality: QualityMedium, Confidence: 0.8},
		{Image: img("kitchen"), Category: CategoryInterior, Subcategory: RoomKitchen, Quality: QualityMedium, Confidence: 0.75},
		{Image: img("map"), Category: CategoryLocationMap, Quality: QualityMedium, Confidence: 0.9},
		{Image: img("lifestyle"), Category: CategoryLifestyle, Quality: QualityMedium, Confidence: 0.7},
		{Image: img("skyline"), Category: CategoryExterior, Quality: QualityMedium, Confidence: 0.65},
		{Image: img("logo"), Category: CategoryBranding, Quality: QualityHigh, Confidence: 0.99},
	}

	m := BuildManifest(images)
	require.NotNil(t, m.Hero)
	assert.Equal(t, "tower", m.Hero.URL)
	assert.Len(t, m.Gallery, 8)
}

func TestBuildManifestDeduplicatesByURL(t *testing.T) {
	images := []ClassifiedImage{
		{Image: img("dup"), Category: CategoryInterior, Quality: QualityMedium, Confidence: 0.7},
		{Image: img("dup"), Category: CategoryInterior, Quality: QualityMedium, Confidence: 0.7},
	}
	m := BuildManifest(images)
	assert.Len(t, m.Interior.Living, 1)
	assert.Len(t, m.Gallery, 1)
}
