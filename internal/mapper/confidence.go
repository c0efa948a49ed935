package mapper

import "strings"

// Completeness weights. Name and location anchor the record, so they carry
// the largest shares.
const (
	weightNameLocation   = 0.20
	weightDeveloper      = 0.15
	weightUnits          = 0.20
	weightPaymentPlan    = 0.15
	weightStartingPrice  = 0.15
	weightAmenities      = 0.10
	weightCompletionDate = 0.05
)

// Bounds for the partial-reconstruction path.
const (
	reconstructedMinConfidence = 0.3
	reconstructedMaxConfidence = 0.5
)

// completenessConfidence scores how much of the schema the model filled in.
func completenessConfidence(p *StructuredProject) float64 {
	var score float64

	if strings.TrimSpace(p.Name) != "" && !p.Location.IsZero() {
		score += weightNameLocation
	}
	if strings.TrimSpace(p.Developer) != "" {
		score += weightDeveloper
	}
	if len(p.UnitTypes) > 0 {
		score += weightUnits
	}
	if len(p.PaymentPlan.Milestones) > 0 {
		// A plan whose milestones do not add up is suspect; half credit.
		if milestonesSumTo100(p.PaymentPlan.Milestones) {
			score += weightPaymentPlan
		} else {
			score += weightPaymentPlan / 2
		}
	}
	if p.Pricing.StartingPrice > 0 {
		score += weightStartingPrice
	}
	if len(p.Amenities) > 0 {
		score += weightAmenities
	}
	if p.Specs.CompletionDate != "" || p.Specs.HandoverDate != "" {
		score += weightCompletionDate
	}

	return score
}

// milestonesSumTo100 tolerates one point of rounding drift, common in
// brochures that print 33/33/34 style splits.
func milestonesSumTo100(milestones []Milestone) bool {
	var total float64
	for _, m := range milestones {
		total += m.Percentage
	}
	return total >= 99 && total <= 101
}

// reconstructedConfidence maps a salvaged record into the reduced band.
// The completeness score scales position within the band.
func reconstructedConfidence(p *StructuredProject) float64 {
	span := reconstructedMaxConfidence - reconstructedMinConfidence
	return reconstructedMinConfidence + span*completenessConfidence(p)
}
