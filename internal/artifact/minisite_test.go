package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateforge/prospect-engine/internal/classify"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/observability"
)

func TestBuildMiniSiteRequiresProject(t *testing.T) {
	b := NewBuilder(&fakeProjectStore{}, &fakeMiniSiteStore{}, observability.NopLogger())

	_, err := b.BuildMiniSite(context.Background(), testInputs())
	assert.ErrorIs(t, err, ErrNoProject)
}

// Calling create twice for the same prospect must never create two
// mini-sites; the second call returns the existing identifiers.
func TestBuildMiniSiteIdempotent(t *testing.T) {
	projects := &fakeProjectStore{}
	minisites := &fakeMiniSiteStore{}
	b := NewBuilder(projects, minisites, observability.NopLogger())

	in := testInputs()
	_, err := b.BuildProject(context.Background(), in)
	require.NoError(t, err)

	first, err := b.BuildMiniSite(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "marina-heights", first.Slug)
	require.NotNil(t, in.Prospect.MiniSiteID)

	second, err := b.BuildMiniSite(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Slug, second.Slug)
	assert.Len(t, minisites.created, 1)
}

func TestBuildMiniSiteSlugNamespaceIsSeparate(t *testing.T) {
	projects := &fakeProjectStore{}
	// The project namespace already holding the slug must not affect the
	// mini-site namespace.
	projects.slugs = []string{"marina-heights"}
	minisites := &fakeMiniSiteStore{}
	b := NewBuilder(projects, minisites, observability.NopLogger())

	in := testInputs()
	_, err := b.BuildProject(context.Background(), in)
	require.NoError(t, err)

	site, err := b.BuildMiniSite(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "marina-heights", site.Slug)
}

func TestBuildMiniSitePayloadBlocks(t *testing.T) {
	in := testInputs()
	in.Project.Tagline = "Waterfront living"
	in.Project.Description = "A tower on the marina."
	in.Manifest = &classify.Manifest{
		Hero:         &classify.ClassifiedImage{Image: extract.Image{URL: "hero-url"}},
		LocationMaps: []classify.ClassifiedImage{{Image: extract.Image{URL: "map-url"}}},
	}

	payload := BuildMiniSitePayload(in)

	assert.Equal(t, "Marina Heights", payload.Hero.Title)
	assert.Equal(t, "Waterfront living", payload.Hero.Subtitle)
	assert.Equal(t, "hero-url", payload.Hero.ImageURL)
	assert.Equal(t, "About Marina Heights", payload.About.Heading)
	assert.Equal(t, "map-url", payload.Location.MapImageURL)
	assert.Equal(t, "From 0.7M AED", payload.Pricing.StartingLabel)
	require.Len(t, payload.Features, 3)
	assert.Equal(t, "pool", payload.Features[0].Icon)
}
