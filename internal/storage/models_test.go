package storage

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardEdges(t *testing.T) {
	legal := [][2]ProspectStatus{
		{StatusUploaded, StatusExtracting},
		{StatusExtracting, StatusExtracted},
		{StatusExtracted, StatusMapping},
		{StatusMapping, StatusMapped},
		{StatusMapped, StatusValidating},
		{StatusValidating, StatusReady},
		{StatusValidating, StatusPublishing},
		{StatusReady, StatusPublishing},
		{StatusPublishing, StatusPublished},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestCanTransitionRejectsBackwardAndSkips(t *testing.T) {
	illegal := [][2]ProspectStatus{
		{StatusExtracted, StatusExtracting},
		{StatusPublished, StatusUploaded},
		{StatusUploaded, StatusPublished},
		{StatusMapping, StatusReady},
		{StatusFailed, StatusExtracting},
		{StatusPublished, StatusPublishing},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestCanTransitionFailedFromAnywhere(t *testing.T) {
	from := []ProspectStatus{
		StatusUploaded, StatusExtracting, StatusExtracted, StatusMapping,
		StatusMapped, StatusValidating, StatusReady, StatusPublishing,
		StatusPublished, StatusFailed,
	}
	for _, s := range from {
		assert.True(t, CanTransition(s, StatusFailed), string(s))
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	projectID := uuid.New()
	projectSlug := "marina-heights"
	miniSiteID := uuid.New()
	miniSiteSlug := "marina-heights"
	lastErr := "stale"

	p := &Prospect{
		Status:               StatusPublished,
		GeneratedTitle:       "Marina Heights | Dubai",
		GeneratedDescription: "Waterfront apartments.",
		GeneratedSections:    json.RawMessage(`{"name":"Marina Heights"}`),
		Confidence:           0.85,
		ProjectID:            &projectID,
		ProjectSlug:          &projectSlug,
		MiniSiteID:           &miniSiteID,
		MiniSiteSlug:         &miniSiteSlug,
		LastError:            &lastErr,
	}

	snapshot := p.Snapshot()

	p.Status = StatusUploaded
	p.GeneratedTitle = ""
	p.GeneratedDescription = ""
	p.GeneratedSections = nil
	p.Confidence = 0
	p.ProjectID = nil
	p.ProjectSlug = nil
	p.MiniSiteID = nil
	p.MiniSiteSlug = nil
	p.LastError = nil

	p.Restore(snapshot)

	assert.Equal(t, StatusPublished, p.Status)
	assert.Equal(t, "Marina Heights | Dubai", p.GeneratedTitle)
	assert.Equal(t, "Waterfront apartments.", p.GeneratedDescription)
	assert.JSONEq(t, `{"name":"Marina Heights"}`, string(p.GeneratedSections))
	assert.Equal(t, 0.85, p.Confidence)
	assert.Equal(t, &projectID, p.ProjectID)
	assert.Equal(t, &projectSlug, p.ProjectSlug)
	assert.Equal(t, &miniSiteID, p.MiniSiteID)
	assert.Equal(t, &miniSiteSlug, p.MiniSiteSlug)
	assert.Equal(t, &lastErr, p.LastError)
}

// Snapshot does not cover raw stage outputs; those are append-only and a
// reprocess overwrites them with fresh data anyway.
func TestSnapshotLeavesStageOutputsAlone(t *testing.T) {
	p := &Prospect{ExtractedText: "brochure text", PageCount: 12}
	snapshot := p.Snapshot()
	p.ExtractedText = "new text"
	p.Restore(snapshot)
	assert.Equal(t, "new text", p.ExtractedText)
}
