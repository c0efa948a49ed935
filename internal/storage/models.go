// Package storage provides database models and repositories for the prospect engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProspectStatus represents the lifecycle state of a prospect.
type ProspectStatus string

const (
	StatusUploaded   ProspectStatus = "uploaded"
	StatusExtracting ProspectStatus = "extracting"
	StatusExtracted  ProspectStatus = "extracted"
	StatusMapping    ProspectStatus = "mapping"
	StatusMapped     ProspectStatus = "mapped"
	StatusValidating ProspectStatus = "validating"
	StatusReady      ProspectStatus = "ready"
	StatusPublishing ProspectStatus = "publishing"
	StatusPublished  ProspectStatus = "published"
	StatusFailed     ProspectStatus = "failed"
)

// forwardTransitions encodes the legal forward edges of the prospect state
// machine. StatusFailed is reachable from any state; retry and reprocess
// reset to uploaded first, both handled explicitly by the orchestrator.
var forwardTransitions = map[ProspectStatus][]ProspectStatus{
	StatusUploaded:   {StatusExtracting},
	StatusExtracting: {StatusExtracted},
	StatusExtracted:  {StatusMapping},
	StatusMapping:    {StatusMapped},
	StatusMapped:     {StatusValidating},
	StatusValidating: {StatusReady, StatusPublishing},
	StatusReady:      {StatusPublishing},
	StatusPublishing: {StatusPublished},
}

// CanTransition reports whether moving from one status to another is a legal
// forward transition. Any state may move to failed.
func CanTransition(from, to ProspectStatus) bool {
	if to == StatusFailed {
		return true
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Prospect is the working record tracking one source document through the
// pipeline. Raw stage outputs are persisted incrementally as JSON so a later
// inspection or reprocess has the full history.
type Prospect struct {
	ID           uuid.UUID
	SourceURL    string
	SourceSHA256 string
	Status       ProspectStatus

	// Raw pipeline outputs, persisted per stage.
	ExtractedText    string
	PageCount        int
	Metadata         json.RawMessage
	ExtractedBlocks  json.RawMessage
	ExtractedTables  json.RawMessage
	ExtractedImages  json.RawMessage
	ClassifiedImages json.RawMessage
	ImageManifest    json.RawMessage

	// Structured project payload produced by the mapper.
	GeneratedTitle       string
	GeneratedDescription string
	GeneratedSections    json.RawMessage
	Confidence           float64

	// Links to materialized artifacts, set at most once.
	ProjectID    *uuid.UUID
	ProjectSlug  *string
	MiniSiteID   *uuid.UUID
	MiniSiteSlug *string

	LastError  *string
	RetryCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project is the property-page-shaped artifact derived from a prospect.
type Project struct {
	ID            uuid.UUID
	Slug          string
	Name          string
	NameLocalized string
	Developer     string
	ProspectID    uuid.UUID
	Payload       json.RawMessage // page-ready projection (amenity groups, units, gallery, ...)
	SEOTitle      string
	SEODesc       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MiniSite is the templated marketing-page artifact. It always references
// exactly one project.
type MiniSite struct {
	ID         uuid.UUID
	Slug       string
	ProjectID  uuid.UUID
	ProspectID uuid.UUID
	Template   string
	Payload    json.RawMessage // hero/about/features/pricing/location/faq blocks
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProspectSnapshot captures the mutable prospect fields before a reprocess so
// a failed rerun can be rolled back verbatim.
type ProspectSnapshot struct {
	Status            ProspectStatus
	GeneratedTitle    string
	GeneratedDesc     string
	GeneratedSections json.RawMessage
	Confidence        float64
	ProjectID         *uuid.UUID
	ProjectSlug       *string
	MiniSiteID        *uuid.UUID
	MiniSiteSlug      *string
	LastError         *string
}

// Snapshot captures the rollback-relevant fields of a prospect.
func (p *Prospect) Snapshot() ProspectSnapshot {
	return ProspectSnapshot{
		Status:            p.Status,
		GeneratedTitle:    p.GeneratedTitle,
		GeneratedDesc:     p.GeneratedDescription,
		GeneratedSections: p.GeneratedSections,
		Confidence:        p.Confidence,
		ProjectID:         p.ProjectID,
		ProjectSlug:       p.ProjectSlug,
		MiniSiteID:        p.MiniSiteID,
		MiniSiteSlug:      p.MiniSiteSlug,
		LastError:         p.LastError,
	}
}

// Restore writes a snapshot back onto the prospect.
func (p *Prospect) Restore(s ProspectSnapshot) {
	p.Status = s.Status
	p.GeneratedTitle = s.GeneratedTitle
	p.GeneratedDescription = s.GeneratedDesc
	p.GeneratedSections = s.GeneratedSections
	p.Confidence = s.Confidence
	p.ProjectID = s.ProjectID
	p.ProjectSlug = s.ProjectSlug
	p.MiniSiteID = s.MiniSiteID
	p.MiniSiteSlug = s.MiniSiteSlug
	p.LastError = s.LastError
}
