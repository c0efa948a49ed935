package mapper

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateforge/prospect-engine/internal/cache"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/observability"
)

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	return s.response, s.err
}

func testMapper() *Mapper {
	return NewMapper(nil, nil, observability.NopLogger(), Options{})
}

const completeResponse = `{
	"name": "Marina Heights",
	"developer": "Example Properties",
	"location": {"area": "Dubai Marina", "city": "Dubai"},
	"specs": {"completionDate": "Q4 2027"},
	"unitTypes": [{"name": "1 Bedroom", "bedrooms": 1, "priceMin": 1200000, "currency": "AED"}],
	"amenities": [{"name": "Infinity Pool"}],
	"paymentPlan": {"milestones": [
		{"label": "Booking", "percentage": 20},
		{"label": "Construction", "percentage": 40},
		{"label": "Handover", "percentage": 40}
	]},
	"pricing": {"startingPrice": 1200000, "currency": "AED"}
}`

func TestParseCompleteResponse(t *testing.T) {
	result := testMapper().parse(completeResponse)

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Marina Heights", result.Data.Name)
	// Every weighted field present: 0.20+0.15+0.20+0.15+0.15+0.10+0.05.
	assert.InDelta(t, 1.0, result.Confidence, 0.001)

	var total float64
	for _, m := range result.Data.PaymentPlan.Milestones {
		total += m.Percentage
	}
	assert.Equal(t, 100.0, total)
}

func TestParseInvalidJSONIsHardFailure(t *testing.T) {
	result := testMapper().parse("I'm sorry, I cannot extract data from this document.")

	assert.False(t, result.Success)
	assert.Nil(t, result.Data)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.Errors)
}

func TestParseSchemaFailureReconstructsPartial(t *testing.T) {
	// Misses the schema entirely but carries recoverable aliases.
	response := `{
		"project_name": "Marina Heights",
		"developer_name": "Example Properties",
		"location": "Dubai Marina",
		"facilities": ["Infinity Pool", "Gym"],
		"starting_price": "1,200,000"
	}`

	result := testMapper().parse(response)

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Marina Heights", result.Data.Name)
	assert.Equal(t, "Example Properties", result.Data.Developer)
	assert.Equal(t, "Dubai Marina", result.Data.Location.Area)
	assert.Len(t, result.Data.Amenities, 2)
	assert.Equal(t, 1200000.0, result.Data.Pricing.StartingPrice)

	assert.GreaterOrEqual(t, result.Confidence, 0.3)
	assert.LessOrEqual(t, result.Confidence, 0.5)
	assert.NotEmpty(t, result.Errors)
}

// A response whose top level satisfies the strict schema but hides its real
// content behind alias keys must not pass as a high-confidence near-empty
// project: the tolerant pass fills the gaps and the confidence drops to the
// reconstructed band.
func TestParseValidSchemaWithAliasedContentMerges(t *testing.T) {
	response := `{
		"name": "Marina Heights",
		"location": {"area": "Dubai Marina"},
		"units": [
			{"type": "1 Bedroom", "beds": 1, "size": 720, "priceFrom": 700000},
			{"type": "2 Bedroom", "beds": 2, "size": 1100, "priceFrom": 1100000}
		],
		"priceFrom": 700000,
		"paymentPlan": {"downPayment": 20, "duringConstruction": 40, "onHandover": 40}
	}`

	result := testMapper().parse(response)

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	p := result.Data

	require.Len(t, p.UnitTypes, 2)
	assert.Equal(t, "1 Bedroom", p.UnitTypes[0].Name)
	assert.Equal(t, 1, p.UnitTypes[0].Bedrooms)
	assert.Equal(t, 700000.0, p.UnitTypes[0].PriceMin)

	require.Len(t, p.PaymentPlan.Milestones, 3)
	var total float64
	for _, m := range p.PaymentPlan.Milestones {
		total += m.Percentage
	}
	assert.Equal(t, 100.0, total)

	assert.Equal(t, 700000.0, p.Pricing.StartingPrice)

	// Recovered content came from the fallback path, not the schema.
	assert.GreaterOrEqual(t, result.Confidence, 0.3)
	assert.LessOrEqual(t, result.Confidence, 0.5)
}

// When the strict decode already captured everything, a clean response keeps
// its completeness-based confidence; the merge pass must not downgrade it.
func TestParseCompleteResponseKeepsFullConfidence(t *testing.T) {
	result := testMapper().parse(completeResponse)
	require.True(t, result.Success)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
}

func TestReconstructFlatPaymentPlan(t *testing.T) {
	raw := map[string]any{
		"name":        "Marina Heights",
		"paymentPlan": map[string]any{"downPayment": 10.0, "duringConstruction": 50.0, "onHandover": 40.0},
	}

	p := Reconstruct(raw)
	require.NotNil(t, p)
	require.Len(t, p.PaymentPlan.Milestones, 3)
	assert.Equal(t, "Down payment", p.PaymentPlan.Milestones[0].Label)
	assert.Equal(t, 10.0, p.PaymentPlan.Milestones[0].Percentage)
	assert.Equal(t, "During construction", p.PaymentPlan.Milestones[1].Label)
	assert.Equal(t, "On handover", p.PaymentPlan.Milestones[2].Label)

	// Flat keys at the top level when no plan object exists at all.
	raw = map[string]any{
		"name":         "Marina Heights",
		"down_payment": 20.0,
		"handover":     80.0,
	}
	p = Reconstruct(raw)
	require.NotNil(t, p)
	require.Len(t, p.PaymentPlan.Milestones, 2)
	assert.Equal(t, 20.0, p.PaymentPlan.Milestones[0].Percentage)
	assert.Equal(t, 80.0, p.PaymentPlan.Milestones[1].Percentage)
}

func TestParseNoUsableDataIsHardFailure(t *testing.T) {
	result := testMapper().parse(`{"something": "else", "entirely": true}`)

	assert.False(t, result.Success)
	assert.Nil(t, result.Data)
	assert.Zero(t, result.Confidence)
}

func TestCompletenessConfidenceWeights(t *testing.T) {
	base := &StructuredProject{Name: "X", Location: Location{Area: "Y"}}
	assert.InDelta(t, 0.20, completenessConfidence(base), 0.001)

	base.Developer = "Dev"
	assert.InDelta(t, 0.35, completenessConfidence(base), 0.001)

	base.UnitTypes = []UnitType{{Name: "1BR"}}
	assert.InDelta(t, 0.55, completenessConfidence(base), 0.001)

	base.PaymentPlan.Milestones = []Milestone{
		{Label: "Booking", Percentage: 20},
		{Label: "Handover", Percentage: 80},
	}
	assert.InDelta(t, 0.70, completenessConfidence(base), 0.001)

	base.Pricing.StartingPrice = 700000
	assert.InDelta(t, 0.85, completenessConfidence(base), 0.001)

	base.Amenities = []Amenity{{Name: "Pool"}}
	assert.InDelta(t, 0.95, completenessConfidence(base), 0.001)

	base.Specs.CompletionDate = "Q4 2027"
	assert.InDelta(t, 1.0, completenessConfidence(base), 0.001)
}

func TestCompletenessNameWithoutLocationScoresNothing(t *testing.T) {
	p := &StructuredProject{Name: "X"}
	assert.Zero(t, completenessConfidence(p))
}

func TestCompletenessHalvesNonSummingPaymentPlan(t *testing.T) {
	p := &StructuredProject{
		PaymentPlan: PaymentPlan{Milestones: []Milestone{{Label: "Booking", Percentage: 10}}},
	}
	assert.InDelta(t, weightPaymentPlan/2, completenessConfidence(p), 0.001)

	p.PaymentPlan.Milestones = []Milestone{
		{Label: "During construction", Percentage: 33},
		{Label: "More construction", Percentage: 33},
		{Label: "Handover", Percentage: 34},
	}
	assert.InDelta(t, weightPaymentPlan, completenessConfidence(p), 0.001)
}

// The text budget is in bytes but the cut must land on a rune boundary, or
// Arabic brochure text ends the prompt with a broken character.
func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	m := NewMapper(nil, nil, observability.NopLogger(), Options{TextBudget: 101})
	content := &extract.ContentResult{
		Text:      strings.Repeat("مشروع سكني في دبي ", 20),
		PageCount: 1,
	}

	prompt := m.buildPrompt(content)
	assert.True(t, utf8.ValidString(prompt))

	assert.Equal(t, "abc", truncateText("abc", 100))
	for limit := 98; limit <= 104; limit++ {
		got := truncateText(content.Text, limit)
		assert.True(t, utf8.ValidString(got), "limit %d produced invalid UTF-8", limit)
		assert.LessOrEqual(t, len(got), limit)
	}
}

func TestMapUsesResponseCache(t *testing.T) {
	stub := &stubCompleter{response: completeResponse}
	mem := cache.NewMemoryClient(16)
	defer mem.Close()

	m := NewMapper(stub, mem, observability.NopLogger(), DefaultOptions())
	content := &extract.ContentResult{Text: "brochure text", PageCount: 2}

	first := m.Map(context.Background(), content)
	second := m.Map(context.Background(), content)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, 1, stub.calls)
}

func TestValidateRejectsBadRanges(t *testing.T) {
	p := &StructuredProject{
		Name:      "X",
		UnitTypes: []UnitType{{Name: "1BR", PriceMin: -5}},
	}
	assert.Error(t, p.Validate())

	p = &StructuredProject{
		Name:        "X",
		PaymentPlan: PaymentPlan{Milestones: []Milestone{{Percentage: 120}}},
	}
	assert.Error(t, p.Validate())

	assert.Error(t, (&StructuredProject{}).Validate())
	assert.NoError(t, (&StructuredProject{Name: "X"}).Validate())
}
