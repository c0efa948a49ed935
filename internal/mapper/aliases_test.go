package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestReconstructRequiresName(t *testing.T) {
	assert.Nil(t, Reconstruct(decodeRaw(t, `{"developer": "Someone"}`)))
}

func TestReconstructNestedNameVariant(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{"project": {"title": "Marina Heights", "overview": "Nice place"}}`))
	require.NotNil(t, p)
	assert.Equal(t, "Marina Heights", p.Name)
	assert.Equal(t, "Nice place", p.Description)
}

func TestReconstructCamelAndSnakeCase(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{
		"projectName": "Marina Heights",
		"name_ar": "مرتفعات المارينا",
		"developer_name": "Example Properties",
		"completion_date": "Q4 2027",
		"price_from": 700000
	}`))
	require.NotNil(t, p)
	assert.Equal(t, "مرتفعات المارينا", p.NameLocalized)
	assert.Equal(t, "Example Properties", p.Developer)
	assert.Equal(t, "Q4 2027", p.Specs.CompletionDate)
	assert.Equal(t, 700000.0, p.Pricing.StartingPrice)
}

func TestReconstructAmenitiesFromStringsAndObjects(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{
		"name": "X",
		"amenities": ["Pool", {"name": "Gym", "category": "fitness"}, {"title": "Spa"}, {"category": "no-name"}]
	}`))
	require.NotNil(t, p)
	require.Len(t, p.Amenities, 3)
	assert.Equal(t, "Pool", p.Amenities[0].Name)
	assert.Equal(t, "fitness", p.Amenities[1].Category)
	assert.Equal(t, "Spa", p.Amenities[2].Name)
}

func TestReconstructUnitsWithAliasedRanges(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{
		"name": "X",
		"units": [
			{"unit_type": "1 Bedroom", "beds": 1, "min_size": 720, "max_size": 850, "price_from": "1,200,000"},
			{"no_name_field": true}
		]
	}`))
	require.NotNil(t, p)
	require.Len(t, p.UnitTypes, 1)

	u := p.UnitTypes[0]
	assert.Equal(t, "1 Bedroom", u.Name)
	assert.Equal(t, 1, u.Bedrooms)
	assert.Equal(t, 720.0, u.SizeMin)
	assert.Equal(t, 850.0, u.SizeMax)
	assert.Equal(t, 1200000.0, u.PriceMin)
}

func TestReconstructPaymentPlanAsBareArray(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{
		"name": "X",
		"payment_plan": [
			{"stage": "Booking", "percent": 10},
			{"stage": "Handover", "percent": 90}
		]
	}`))
	require.NotNil(t, p)
	require.Len(t, p.PaymentPlan.Milestones, 2)
	assert.Equal(t, "Booking", p.PaymentPlan.Milestones[0].Label)
	assert.Equal(t, 10.0, p.PaymentPlan.Milestones[0].Percentage)
}

func TestReconstructLocationString(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{"name": "X", "location": "Dubai Marina"}`))
	require.NotNil(t, p)
	assert.Equal(t, "Dubai Marina", p.Location.Area)
}

func TestReconstructLocationObjectWithLandmarks(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{
		"name": "X",
		"location": {"district": "Marina", "city": "Dubai", "nearby_landmarks": ["Mall", "Beach"]}
	}`))
	require.NotNil(t, p)
	assert.Equal(t, "Marina", p.Location.Area)
	assert.Equal(t, "Dubai", p.Location.City)
	assert.Equal(t, []string{"Mall", "Beach"}, p.Location.Landmarks)
}

func TestReconstructedRecordValidates(t *testing.T) {
	p := Reconstruct(decodeRaw(t, `{"project_name": "Marina Heights", "facilities": ["Pool"]}`))
	require.NotNil(t, p)
	assert.NoError(t, p.Validate())
}
