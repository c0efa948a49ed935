package mapper

import (
	"strconv"
	"strings"
)

// Alias tables for the tolerant reconstruction path. Models that miss the
// schema still tend to use one of a small set of plausible field names, in
// snake_case, camelCase or nested under a wrapper object. Paths are dotted
// for nesting and tried in order.
var (
	nameAliases = []string{
		"name", "projectName", "project_name", "title",
		"project.name", "project.title",
	}
	nameLocalizedAliases = []string{
		"nameLocalized", "name_localized", "nameAr", "name_ar", "arabicName", "arabic_name",
	}
	taglineAliases = []string{
		"tagline", "slogan", "subtitle", "project.tagline",
	}
	descriptionAliases = []string{
		"description", "about", "overview", "summary",
		"project.description", "project.overview",
	}
	developerAliases = []string{
		"developer", "developerName", "developer_name", "builder",
		"developer.name", "project.developer",
	}
	locationAliases = []string{
		"location", "project.location", "address",
	}
	locationAreaAliases = []string{
		"area", "district", "neighborhood", "community",
	}
	landmarkAliases = []string{
		"landmarks", "nearbyLandmarks", "nearby_landmarks", "nearby", "pointsOfInterest", "points_of_interest",
	}
	connectivityAliases = []string{
		"connectivity", "transport", "accessibility",
	}
	amenityListAliases = []string{
		"amenities", "facilities", "features", "project.amenities",
	}
	highlightListAliases = []string{
		"highlights", "keyHighlights", "key_highlights", "sellingPoints", "selling_points", "usps",
	}
	unitListAliases = []string{
		"unitTypes", "unit_types", "units", "apartments", "project.units",
	}
	paymentPlanAliases = []string{
		"paymentPlan", "payment_plan", "paymentPlans", "payment_plans", "installments",
	}
	milestoneListAliases = []string{
		"milestones", "schedule", "steps", "plan",
	}
	startingPriceAliases = []string{
		"pricing.startingPrice", "pricing.starting_price",
		"startingPrice", "starting_price", "priceFrom", "price_from", "startingFrom", "starting_from", "price",
	}
	currencyAliases = []string{
		"pricing.currency", "currency",
	}
	completionDateAliases = []string{
		"specs.completionDate", "specs.completion_date",
		"completionDate", "completion_date", "completion", "deliveryDate", "delivery_date",
	}
	handoverDateAliases = []string{
		"specs.handoverDate", "specs.handover_date",
		"handoverDate", "handover_date", "handover",
	}
)

// Reconstruct salvages a minimal-but-valid StructuredProject from a decoded
// JSON object that failed strict validation. Returns nil when not even a
// project name is recoverable.
func Reconstruct(raw map[string]any) *StructuredProject {
	name := firstString(raw, nameAliases)
	if name == "" {
		return nil
	}

	p := &StructuredProject{
		Name:          name,
		NameLocalized: firstString(raw, nameLocalizedAliases),
		Tagline:       firstString(raw, taglineAliases),
		Description:   firstString(raw, descriptionAliases),
		Developer:     firstString(raw, developerAliases),
	}

	p.Location = reconstructLocation(raw)
	p.Amenities = reconstructAmenities(firstSlice(raw, amenityListAliases))
	p.Highlights = reconstructHighlights(firstSlice(raw, highlightListAliases))
	p.UnitTypes = reconstructUnits(firstSlice(raw, unitListAliases))
	p.PaymentPlan = reconstructPaymentPlan(raw)

	if price, ok := firstNumber(raw, startingPriceAliases); ok && price > 0 {
		p.Pricing.StartingPrice = price
	}
	p.Pricing.Currency = firstString(raw, currencyAliases)
	p.Specs.CompletionDate = firstString(raw, completionDateAliases)
	p.Specs.HandoverDate = firstString(raw, handoverDateAliases)

	return p
}

func reconstructLocation(raw map[string]any) Location {
	var loc Location

	switch v := dig(raw, locationAliases).(type) {
	case string:
		loc.Area = strings.TrimSpace(v)
	case map[string]any:
		loc.Area = firstString(v, locationAreaAliases)
		loc.City = firstString(v, []string{"city", "emirate"})
		loc.Country = firstString(v, []string{"country"})
		loc.Landmarks = stringList(firstSlice(v, landmarkAliases))
		loc.Connectivity = stringList(firstSlice(v, connectivityAliases))
	}

	if len(loc.Landmarks) == 0 {
		loc.Landmarks = stringList(firstSlice(raw, landmarkAliases))
	}
	return loc
}

func reconstructAmenities(items []any) []Amenity {
	var out []Amenity
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, Amenity{Name: s})
			}
		case map[string]any:
			name := firstString(v, []string{"name", "title", "amenity"})
			if name == "" {
				continue
			}
			out = append(out, Amenity{
				Name:     name,
				Category: firstString(v, []string{"category", "type", "group"}),
				Icon:     firstString(v, []string{"icon"}),
			})
		}
	}
	return out
}

func reconstructHighlights(items []any) []Highlight {
	var out []Highlight
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, Highlight{Title: s})
			}
		case map[string]any:
			title := firstString(v, []string{"title", "name", "highlight"})
			if title == "" {
				continue
			}
			out = append(out, Highlight{
				Title:       title,
				Description: firstString(v, []string{"description", "detail", "text"}),
			})
		}
	}
	return out
}

func reconstructUnits(items []any) []UnitType {
	var out []UnitType
	for _, item := range items {
		v, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(v, []string{"name", "type", "unitType", "unit_type", "title"})
		if name == "" {
			continue
		}
		u := UnitType{Name: name}
		if n, ok := firstNumber(v, []string{"bedrooms", "beds", "br"}); ok {
			u.Bedrooms = int(n)
		}
		u.SizeMin, _ = firstNumber(v, []string{"sizeMin", "size_min", "minSize", "min_size", "sizeFrom", "size_from", "size"})
		u.SizeMax, _ = firstNumber(v, []string{"sizeMax", "size_max", "maxSize", "max_size", "sizeTo", "size_to"})
		u.SizeUnit = firstString(v, []string{"sizeUnit", "size_unit", "unit"})
		u.PriceMin, _ = firstNumber(v, []string{"priceMin", "price_min", "priceFrom", "price_from", "minPrice", "min_price", "price"})
		u.PriceMax, _ = firstNumber(v, []string{"priceMax", "price_max", "priceTo", "price_to", "maxPrice", "max_price"})
		u.Currency = firstString(v, []string{"currency"})
		out = append(out, u)
	}
	return out
}

func reconstructPaymentPlan(raw map[string]any) PaymentPlan {
	var plan PaymentPlan

	node := dig(raw, paymentPlanAliases)
	var items []any
	switch v := node.(type) {
	case map[string]any:
		plan.Name = firstString(v, []string{"name", "title"})
		items = firstSlice(v, milestoneListAliases)
	case []any:
		items = v
	}

	for _, item := range items {
		v, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pct, ok := firstNumber(v, []string{"percentage", "percent", "pct", "value"})
		if !ok {
			continue
		}
		plan.Milestones = append(plan.Milestones, Milestone{
			Label:      firstString(v, []string{"label", "name", "stage", "milestone"}),
			Percentage: pct,
			Trigger:    firstString(v, []string{"trigger", "when", "due", "on"}),
		})
	}

	// Models also emit the plan as three flat percentages instead of a
	// milestone list: {"downPayment": 20, "duringConstruction": 40, ...}.
	if len(plan.Milestones) == 0 {
		if planMap, ok := node.(map[string]any); ok {
			plan.Milestones = flatMilestones(planMap)
		}
		if len(plan.Milestones) == 0 {
			plan.Milestones = flatMilestones(raw)
		}
	}
	return plan
}

var flatMilestoneKeys = []struct {
	label   string
	aliases []string
}{
	{"Down payment", []string{"downPayment", "down_payment", "booking", "onBooking", "on_booking"}},
	{"During construction", []string{"duringConstruction", "during_construction", "construction", "preHandover", "pre_handover"}},
	{"On handover", []string{"onHandover", "on_handover", "handover", "onCompletion", "on_completion"}},
}

// flatMilestones reads flat percentage keys off an object and labels them.
func flatMilestones(m map[string]any) []Milestone {
	var out []Milestone
	for _, k := range flatMilestoneKeys {
		if pct, ok := firstNumber(m, k.aliases); ok && pct > 0 && pct <= 100 {
			out = append(out, Milestone{Label: k.label, Percentage: pct})
		}
	}
	return out
}

// mergeSalvaged fills gaps in a strictly decoded project with fields the
// tolerant pass recovered from alias keys. Reports whether any substantive
// field was filled; cosmetic fills alone do not count.
func mergeSalvaged(dst, src *StructuredProject) bool {
	changed := false

	if dst.NameLocalized == "" {
		dst.NameLocalized = src.NameLocalized
	}
	if dst.Tagline == "" {
		dst.Tagline = src.Tagline
	}
	if dst.Description == "" && src.Description != "" {
		dst.Description = src.Description
		changed = true
	}
	if dst.Developer == "" && src.Developer != "" {
		dst.Developer = src.Developer
		changed = true
	}
	if dst.Location.IsZero() && !src.Location.IsZero() {
		dst.Location = src.Location
		changed = true
	}
	if len(dst.UnitTypes) == 0 && len(src.UnitTypes) > 0 {
		dst.UnitTypes = src.UnitTypes
		changed = true
	}
	if len(dst.Amenities) == 0 && len(src.Amenities) > 0 {
		dst.Amenities = src.Amenities
		changed = true
	}
	if len(dst.Highlights) == 0 {
		dst.Highlights = src.Highlights
	}
	if len(dst.PaymentPlan.Milestones) == 0 && len(src.PaymentPlan.Milestones) > 0 {
		dst.PaymentPlan = src.PaymentPlan
		changed = true
	}
	if dst.Pricing.StartingPrice == 0 && src.Pricing.StartingPrice > 0 {
		dst.Pricing.StartingPrice = src.Pricing.StartingPrice
		if dst.Pricing.Currency == "" {
			dst.Pricing.Currency = src.Pricing.Currency
		}
		changed = true
	}
	if dst.Specs.CompletionDate == "" {
		dst.Specs.CompletionDate = src.Specs.CompletionDate
	}
	if dst.Specs.HandoverDate == "" {
		dst.Specs.HandoverDate = src.Specs.HandoverDate
	}

	return changed
}

// dig walks dotted alias paths in order and returns the first present value.
func dig(m map[string]any, aliases []string) any {
	for _, path := range aliases {
		cur := any(m)
		found := true
		for _, part := range strings.Split(path, ".") {
			obj, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = obj[part]
			if !ok {
				found = false
				break
			}
		}
		if found && cur != nil {
			return cur
		}
	}
	return nil
}

func firstString(m map[string]any, aliases []string) string {
	if s, ok := dig(m, aliases).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstSlice(m map[string]any, aliases []string) []any {
	if s, ok := dig(m, aliases).([]any); ok {
		return s
	}
	return nil
}

// firstNumber accepts JSON numbers and numeric strings (commas stripped).
func firstNumber(m map[string]any, aliases []string) (float64, bool) {
	switch v := dig(m, aliases).(type) {
	case float64:
		return v, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func stringList(items []any) []string {
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
