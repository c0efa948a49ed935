package extract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateforge/prospect-engine/internal/observability"
)

type recordingStore struct {
	uploads [][]byte
}

func (s *recordingStore) Upload(ctx context.Context, data []byte, name, contentType, folder string) (string, string, error) {
	s.uploads = append(s.uploads, data)
	return "http://blob.local/" + folder + "/" + name, folder + "/" + name, nil
}

func (s *recordingStore) Delete(ctx context.Context, key string) error { return nil }

func TestQualifiesFiltersSmallImages(t *testing.T) {
	opts := DefaultImageOptions()

	tests := []struct {
		name          string
		width, height int
		want          bool
	}{
		{"icon", 64, 64, false},
		{"narrow banner", 1200, 150, false},
		{"tall strip", 150, 1200, false},
		{"min size but small area", 200, 200, false},
		{"qualifying photo", 400, 300, true},
		{"full page render", 1600, 1200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, opts.Qualifies(tt.width, tt.height))
		})
	}
}

func TestProcessOneRetainsEncodedBytes(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	store := &recordingStore{}
	extractor := NewImageExtractor(store, observability.NopLogger(), DefaultImageOptions())

	report := &ImageReport{}
	item := extractor.processOne(context.Background(), &buf, 1, "page01-obj1", "prospects/test", report)

	assert.Equal(t, ImageOK, item.Status)
	require.Len(t, report.Images, 1)
	require.Len(t, store.uploads, 1)

	// The in-memory copy feeds the vision classifier and must match the
	// uploaded object exactly.
	got := report.Images[0]
	assert.Equal(t, store.uploads[0], got.Data)
	assert.NotEmpty(t, got.Data)
	assert.Equal(t, "jpeg", got.Format)
	assert.Equal(t, 640, got.Width)
	assert.Equal(t, 480, got.Height)
}

func TestDownsamplePreservesAspectRatio(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4000, 2000))

	dst := downsample(src, 1920)
	bounds := dst.Bounds()
	assert.Equal(t, 1920, bounds.Dx())
	assert.Equal(t, 960, bounds.Dy())

	portrait := image.NewRGBA(image.Rect(0, 0, 1000, 3000))
	dst = downsample(portrait, 1920)
	bounds = dst.Bounds()
	assert.Equal(t, 640, bounds.Dx())
	assert.Equal(t, 1920, bounds.Dy())
}
