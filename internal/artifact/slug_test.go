package artifact

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	slugs []string
}

func (f *fakeProber) ListSlugsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for _, s := range f.slugs {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "marina-heights", Slugify("Marina Heights"))
	assert.Equal(t, "the-one-tower-2", Slugify("  The One: Tower #2! "))
	assert.Equal(t, "creek-vista", Slugify("Creek   Vista"))
	assert.Equal(t, "project", Slugify("!!!"))
	assert.Equal(t, "project", Slugify(""))
}

func TestUniqueSlugNoCollision(t *testing.T) {
	slug, err := UniqueSlug(context.Background(), &fakeProber{}, "marina-heights")
	require.NoError(t, err)
	assert.Equal(t, "marina-heights", slug)
}

func TestUniqueSlugAppendsTwoOnFirstCollision(t *testing.T) {
	probe := &fakeProber{slugs: []string{"marina-heights"}}
	slug, err := UniqueSlug(context.Background(), probe, "marina-heights")
	require.NoError(t, err)
	assert.Equal(t, "marina-heights-2", slug)
}

func TestUniqueSlugPicksLowestUnusedSuffix(t *testing.T) {
	probe := &fakeProber{slugs: []string{"marina-heights", "marina-heights-2", "marina-heights-4"}}
	slug, err := UniqueSlug(context.Background(), probe, "marina-heights")
	require.NoError(t, err)
	assert.Equal(t, "marina-heights-3", slug)
}

func TestUniqueSlugIgnoresLongerPrefixMatches(t *testing.T) {
	// A sibling project sharing the prefix does not force a suffix.
	probe := &fakeProber{slugs: []string{"marina-heights-tower"}}
	slug, err := UniqueSlug(context.Background(), probe, "marina-heights")
	require.NoError(t, err)
	assert.Equal(t, "marina-heights", slug)
}

func TestInferIcon(t *testing.T) {
	assert.Equal(t, "pool", InferIcon("Infinity Pool"))
	assert.Equal(t, "dumbbell", InferIcon("State-of-the-art GYM"))
	assert.Equal(t, "shield", InferIcon("24/7 Security"))
	assert.Equal(t, "blocks", InferIcon("Kids Play Area"))
	assert.Equal(t, "star", InferIcon("Something Unmatched"))
}
