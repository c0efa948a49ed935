package classify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/observability"
)

type stubCompleter struct {
	mu       sync.Mutex
	fallback string
	err      error
	calls    int
	requests []llm.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.fallback, nil
}

func newTestClassifier(completer llm.Completer) *Classifier {
	return NewClassifier(completer, observability.NopLogger(), Options{BatchSize: 2})
}

func TestClassifyParsesVerdicts(t *testing.T) {
	stub := &stubCompleter{
		fallback: `{"category": "interior", "subcategory": "bedroom", "role": "section",
			"quality": "high", "description": "A bedroom.", "alt": "bedroom",
			"isHeroCandidate": false, "confidence": 0.85, "sectionScore": 0.7}`,
	}

	result, err := newTestClassifier(stub).Classify(context.Background(), []extract.Image{img("a"), img("b"), img("c")})
	require.NoError(t, err)
	require.Len(t, result.Classified, 3)
	assert.Equal(t, 3, stub.calls)

	first := result.Classified[0]
	assert.Equal(t, CategoryInterior, first.Category)
	assert.Equal(t, RoomBedroom, first.Subcategory)
	assert.Equal(t, RoleSection, first.Role)
	assert.Equal(t, QualityHigh, first.Quality)
	assert.InDelta(t, 0.85, first.Confidence, 0.001)
	assert.InDelta(t, 0.7, first.SectionScore, 0.001)

	assert.Len(t, result.Manifest.Interior.Bedroom, 3)
}

func TestClassifyFailedCallUsesDefaults(t *testing.T) {
	stub := &stubCompleter{err: errors.New("model unavailable")}

	result, err := newTestClassifier(stub).Classify(context.Background(), []extract.Image{img("a"), img("b")})
	require.NoError(t, err)
	require.Len(t, result.Classified, 2)

	for _, c := range result.Classified {
		assert.Equal(t, CategoryUnknown, c.Category)
		assert.Equal(t, RoleGallery, c.Role)
		assert.Equal(t, QualityMedium, c.Quality)
		assert.Zero(t, c.Confidence)
	}
}

func TestApplyVerdictGarbageKeepsDefaults(t *testing.T) {
	out := defaultClassification(img("a"))
	applyVerdict(&out, "I could not look at this image, sorry.")

	assert.Equal(t, CategoryUnknown, out.Category)
	assert.Equal(t, RoleGallery, out.Role)
	assert.Equal(t, QualityMedium, out.Quality)
	assert.Zero(t, out.Confidence)
}

func TestApplyVerdictInvalidFieldsFallBackIndividually(t *testing.T) {
	out := defaultClassification(img("a"))
	applyVerdict(&out, `{"category": "spaceship", "role": "section", "quality": "excellent",
		"confidence": 7.5, "sectionScore": -2}`)

	assert.Equal(t, CategoryUnknown, out.Category) // unrecognized category
	assert.Equal(t, RoleSection, out.Role)         // valid role kept
	assert.Equal(t, QualityMedium, out.Quality)    // unrecognized quality
	assert.Equal(t, 1.0, out.Confidence)           // clamped
	assert.Equal(t, 0.0, out.SectionScore)         // clamped
}

func TestApplyVerdictSubcategoryRequiresMatchingCategory(t *testing.T) {
	out := defaultClassification(img("a"))
	applyVerdict(&out, `{"category": "exterior", "subcategory": "bedroom", "role": "gallery", "quality": "high"}`)

	assert.Equal(t, CategoryExterior, out.Category)
	assert.Empty(t, out.Subcategory)
}

func TestClassifySendsImageBytesInline(t *testing.T) {
	stub := &stubCompleter{fallback: "{}"}

	withBytes := img("http://minio.internal/prospects/x/page01-obj1.jpg")
	withBytes.Data = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	urlOnly := img("data:image/jpeg;base64,AAAA")

	// BatchSize 1 keeps the recorded request order deterministic.
	classifier := NewClassifier(stub, observability.NopLogger(), Options{BatchSize: 1})
	_, err := classifier.Classify(context.Background(), []extract.Image{withBytes, urlOnly})
	require.NoError(t, err)
	require.Len(t, stub.requests, 2)

	// The blob-store URL is internal; its bytes must travel with the request.
	assert.Equal(t, withBytes.Data, stub.requests[0].ImageData)
	assert.Equal(t, "image/jpeg", stub.requests[0].ImageMIME)
	assert.Empty(t, stub.requests[0].ImageRef)

	// Without retained bytes the URL is passed through as-is.
	assert.Empty(t, stub.requests[1].ImageData)
	assert.Equal(t, urlOnly.URL, stub.requests[1].ImageRef)
}

func TestClassifyEmptyInput(t *testing.T) {
	stub := &stubCompleter{fallback: "{}"}
	result, err := newTestClassifier(stub).Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Classified)
	assert.Zero(t, stub.calls)
}
