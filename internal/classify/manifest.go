package classify

import "sort"

// qualityWeight orders gallery entries: a high-quality medium-confidence
// shot still beats a low-quality confident one.
func qualityWeight(q Quality) float64 {
	switch q {
	case QualityHigh:
		return 1.0
	case QualityMedium:
		return 0.7
	case QualityLow:
		return 0.4
	}
	return 0.7
}

func galleryScore(img ClassifiedImage) float64 {
	return qualityWeight(img.Quality) * img.Confidence
}

// BuildManifest assembles the category index over a classified set.
// The selected hero is excluded, by URL, from every other list.
func BuildManifest(images []ClassifiedImage) Manifest {
	var m Manifest

	m.Hero = selectHero(images)
	heroURL := ""
	if m.Hero != nil {
		heroURL = m.Hero.URL
	}

	seen := make(map[string]bool)
	for _, img := range images {
		if img.URL == heroURL || seen[img.URL] {
			continue
		}
		seen[img.URL] = true

		switch img.Category {
		case CategoryExterior, CategoryHero:
			m.Exterior = append(m.Exterior, img)
		case CategoryInterior:
			switch img.Subcategory {
			case RoomBedroom:
				m.Interior.Bedroom = append(m.Interior.Bedroom, img)
			case RoomKitchen:
				m.Interior.Kitchen = append(m.Interior.Kitchen, img)
			case RoomBathroom:
				m.Interior.Bathroom = append(m.Interior.Bathroom, img)
			default:
				m.Interior.Living = append(m.Interior.Living, img)
			}
		case CategoryAmenity:
			switch img.Subcategory {
			case TierRooftop:
				m.Amenities.Rooftop = append(m.Amenities.Rooftop, img)
			case TierCommunity:
				m.Amenities.Community = append(m.Amenities.Community, img)
			default:
				m.Amenities.Podium = append(m.Amenities.Podium, img)
			}
		case CategoryFloorPlan:
			m.FloorPlans = append(m.FloorPlans, img)
		case CategoryLocationMap:
			m.LocationMaps = append(m.LocationMaps, img)
		case CategoryLifestyle:
			m.Lifestyle = append(m.Lifestyle, img)
		case CategoryBranding:
			m.Branding = append(m.Branding, img)
		}

		// Branding and floor plans never belong in the general gallery.
		if img.Category != CategoryBranding && img.Category != CategoryFloorPlan {
			m.Gallery = append(m.Gallery, img)
		}
	}

	sort.SliceStable(m.Gallery, func(i, j int) bool {
		return galleryScore(m.Gallery[i]) > galleryScore(m.Gallery[j])
	})

	return m
}

// selectHero picks the image with the highest confidence x sectionScore
// among high-quality hero candidates. When none qualify, it falls back to
// the highest-confidence exterior or hero shot.
func selectHero(images []ClassifiedImage) *ClassifiedImage {
	var best *ClassifiedImage
	bestScore := -1.0
	for i := range images {
		img := &images[i]
		if !img.IsHeroCandidate || img.Quality != QualityHigh {
			continue
		}
		score := img.Confidence * img.SectionScore
		if score > bestScore {
			best, bestScore = img, score
		}
	}
	if best != nil {
		hero := *best
		return &hero
	}

	bestScore = -1.0
	for i := range images {
		img := &images[i]
		if img.Category != CategoryExterior && img.Category != CategoryHero {
			continue
		}
		if img.Confidence > bestScore {
			best, bestScore = img, img.Confidence
		}
	}
	if best != nil {
		hero := *best
		return &hero
	}
	return nil
}
