package artifact

import "strings"

// iconKeywords maps amenity-name keywords to icon identifiers, used when
// the mapper supplied no icon. First match wins, checked in listed order.
var iconKeywords = []struct {
	keyword string
	icon    string
}{
	{"pool", "pool"},
	{"swim", "pool"},
	{"gym", "dumbbell"},
	{"fitness", "dumbbell"},
	{"yoga", "dumbbell"},
	{"spa", "spa"},
	{"sauna", "spa"},
	{"steam", "spa"},
	{"garden", "tree"},
	{"park", "tree"},
	{"landscap", "tree"},
	{"parking", "car"},
	{"valet", "car"},
	{"security", "shield"},
	{"cctv", "shield"},
	{"concierge", "bell"},
	{"lobby", "bell"},
	{"kids", "blocks"},
	{"play", "blocks"},
	{"children", "blocks"},
	{"bbq", "flame"},
	{"barbecue", "flame"},
	{"cinema", "film"},
	{"theater", "film"},
	{"theatre", "film"},
	{"retail", "shopping-bag"},
	{"shop", "shopping-bag"},
	{"cafe", "coffee"},
	{"restaurant", "utensils"},
	{"beach", "umbrella"},
	{"jogging", "footprints"},
	{"running", "footprints"},
	{"track", "footprints"},
	{"tennis", "racket"},
	{"padel", "racket"},
	{"basketball", "ball"},
	{"lounge", "sofa"},
	{"cowork", "laptop"},
	{"business", "laptop"},
	{"pet", "paw"},
	{"mosque", "landmark"},
	{"prayer", "landmark"},
}

const defaultIcon = "star"

// InferIcon picks an icon for an amenity by keyword.
func InferIcon(name string) string {
	lower := strings.ToLower(name)
	for _, kw := range iconKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.icon
		}
	}
	return defaultIcon
}
