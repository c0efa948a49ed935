// Package mapper turns extracted brochure text into the canonical
// structured project record, with a tolerant reconstruction path for
// model output that misses the schema.
package mapper

import (
	"fmt"
	"strings"
)

// Location describes where the development sits.
type Location struct {
	Area         string   `json:"area,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	Landmarks    []string `json:"landmarks,omitempty"`
	Connectivity []string `json:"connectivity,omitempty"`
}

// IsZero reports whether no location facts were captured.
func (l Location) IsZero() bool {
	return l.Area == "" && l.City == "" && l.Country == "" &&
		len(l.Landmarks) == 0 && len(l.Connectivity) == 0
}

// Specs holds building-level facts.
type Specs struct {
	TotalFloors    int    `json:"totalFloors,omitempty"`
	TotalUnits     int    `json:"totalUnits,omitempty"`
	PropertyType   string `json:"propertyType,omitempty"`
	CompletionDate string `json:"completionDate,omitempty"`
	HandoverDate   string `json:"handoverDate,omitempty"`
}

// UnitType is one sellable configuration. Monetary and size fields are
// plain numbers; formatting happens at artifact time.
type UnitType struct {
	Name     string  `json:"name"`
	Bedrooms int     `json:"bedrooms,omitempty"`
	SizeMin  float64 `json:"sizeMin,omitempty"`
	SizeMax  float64 `json:"sizeMax,omitempty"`
	SizeUnit string  `json:"sizeUnit,omitempty"`
	PriceMin float64 `json:"priceMin,omitempty"`
	PriceMax float64 `json:"priceMax,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// Amenity is one listed facility.
type Amenity struct {
	Name          string `json:"name"`
	NameLocalized string `json:"nameLocalized,omitempty"`
	Category      string `json:"category,omitempty"`
	Icon          string `json:"icon,omitempty"`
}

// Highlight is one selling point.
type Highlight struct {
	Title          string `json:"title"`
	TitleLocalized string `json:"titleLocalized,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Milestone is one payment-plan step. Percentages should sum to 100 by
// construction but the schema does not enforce it.
type Milestone struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	Trigger    string  `json:"trigger,omitempty"`
}

// PaymentPlan is the milestone schedule.
type PaymentPlan struct {
	Name       string      `json:"name,omitempty"`
	Milestones []Milestone `json:"milestones,omitempty"`
}

// FAQ is one question/answer pair.
type FAQ struct {
	Question          string `json:"question"`
	Answer            string `json:"answer"`
	QuestionLocalized string `json:"questionLocalized,omitempty"`
	AnswerLocalized   string `json:"answerLocalized,omitempty"`
}

// Pricing summarizes the price story for the page header.
type Pricing struct {
	StartingPrice float64 `json:"startingPrice,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	PriceNote     string  `json:"priceNote,omitempty"`
}

// StructuredProject is the canonical interchange record between the mapper
// and the artifact builder.
type StructuredProject struct {
	Name                 string      `json:"name"`
	NameLocalized        string      `json:"nameLocalized,omitempty"`
	Tagline              string      `json:"tagline,omitempty"`
	TaglineLocalized     string      `json:"taglineLocalized,omitempty"`
	Description          string      `json:"description,omitempty"`
	DescriptionLocalized string      `json:"descriptionLocalized,omitempty"`
	Developer            string      `json:"developer,omitempty"`
	Location             Location    `json:"location"`
	Specs                Specs       `json:"specs"`
	UnitTypes            []UnitType  `json:"unitTypes,omitempty"`
	Amenities            []Amenity   `json:"amenities,omitempty"`
	Highlights           []Highlight `json:"highlights,omitempty"`
	PaymentPlan          PaymentPlan `json:"paymentPlan"`
	FAQ                  []FAQ       `json:"faq,omitempty"`
	Pricing              Pricing     `json:"pricing"`
	Confidence           float64     `json:"confidence"`
}

// Validate checks the strict schema the mapper prompt asks for. A failure
// here routes the raw object through reconstruction, it is not terminal.
func (p *StructuredProject) Validate() error {
	var problems []string

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	for i, u := range p.UnitTypes {
		if strings.TrimSpace(u.Name) == "" {
			problems = append(problems, fmt.Sprintf("unitTypes[%d]: name is required", i))
		}
		if u.PriceMin < 0 || u.PriceMax < 0 || u.SizeMin < 0 || u.SizeMax < 0 {
			problems = append(problems, fmt.Sprintf("unitTypes[%d]: negative range", i))
		}
	}
	for i, a := range p.Amenities {
		if strings.TrimSpace(a.Name) == "" {
			problems = append(problems, fmt.Sprintf("amenities[%d]: name is required", i))
		}
	}
	for i, m := range p.PaymentPlan.Milestones {
		if m.Percentage < 0 || m.Percentage > 100 {
			problems = append(problems, fmt.Sprintf("paymentPlan.milestones[%d]: percentage out of range", i))
		}
	}
	if p.Pricing.StartingPrice < 0 {
		problems = append(problems, "pricing.startingPrice is negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("structured project invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AIMapperResult is the mapper outcome handed to the orchestrator.
type AIMapperResult struct {
	Success     bool               `json:"success"`
	Data        *StructuredProject `json:"data,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
	Confidence  float64            `json:"confidence"`
	RawResponse string             `json:"rawResponse,omitempty"`
}
