package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/estateforge/prospect-engine/internal/artifact"
	"github.com/estateforge/prospect-engine/internal/classify"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/generate"
	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/observability"
	"github.com/estateforge/prospect-engine/internal/storage"
)

// ErrRetryNotFailed rejects retry on a prospect that has not failed.
var ErrRetryNotFailed = errors.New("pipeline: retry is only permitted from failed status")

// ErrNotRunnable rejects process on a prospect whose status cannot enter a
// run. Failed prospects go through Retry; finished ones through Reprocess.
var ErrNotRunnable = errors.New("pipeline: prospect is not in a runnable status")

// Stage collaborators. Narrow interfaces so tests can substitute fakes.
type (
	// ProspectStore persists pipeline checkpoints.
	ProspectStore interface {
		GetByID(ctx context.Context, id uuid.UUID) (*storage.Prospect, error)
		Update(ctx context.Context, p *storage.Prospect) error
	}

	// MiniSiteDeleter removes a mini-site during reprocess.
	MiniSiteDeleter interface {
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// DocumentFetcher downloads and signature-checks the source PDF.
	DocumentFetcher interface {
		Fetch(ctx context.Context, url string) (*FetchResult, error)
	}

	// ContentExtractor parses the PDF text layer.
	ContentExtractor interface {
		Extract(buf []byte) (*extract.ContentResult, error)
	}

	// ImageExtractor pulls and uploads embedded raster images.
	ImageExtractor interface {
		Extract(ctx context.Context, buf []byte, ownerID string) *extract.ImageReport
	}

	// ImageClassifier labels extracted images and builds the manifest.
	ImageClassifier interface {
		Classify(ctx context.Context, images []extract.Image) (*classify.Result, error)
	}

	// ProjectMapper produces the structured project record.
	ProjectMapper interface {
		Map(ctx context.Context, content *extract.ContentResult) *mapper.AIMapperResult
	}

	// CopyLocalizer translates user-facing copy.
	CopyLocalizer interface {
		Localize(ctx context.Context, p *mapper.StructuredProject) (*generate.LocalizedContent, error)
	}

	// SEOGenerator produces the search bundle.
	SEOGenerator interface {
		Generate(ctx context.Context, p *mapper.StructuredProject) generate.SEOContent
	}

	// ArtifactBuilder materializes Project and MiniSite records.
	ArtifactBuilder interface {
		BuildProject(ctx context.Context, in artifact.Inputs) (*storage.Project, error)
		BuildMiniSite(ctx context.Context, in artifact.Inputs) (*artifact.MiniSiteResult, error)
	}
)

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Prospects  ProspectStore
	MiniSites  MiniSiteDeleter
	Fetcher    DocumentFetcher
	Content    ContentExtractor
	Images     ImageExtractor
	Classifier ImageClassifier
	Mapper     ProjectMapper
	Localizer  CopyLocalizer
	SEO        SEOGenerator
	Builder    ArtifactBuilder
	Events     *Publisher
	Logger     *observability.Logger
}

// Orchestrator drives one prospect through the full pipeline. The unit of
// retry and rollback is the whole run; mid-run cancellation is not
// supported beyond context propagation into the stages.
type Orchestrator struct {
	deps   Deps
	guard  *Guard
	logger *observability.Logger
}

// NewOrchestrator creates the pipeline orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		guard:  NewGuard(),
		logger: deps.Logger.WithStage("pipeline"),
	}
}

// Process runs the pipeline for a prospect. Concurrent invocations for the
// same prospect id are rejected with ErrAlreadyRunning.
func (o *Orchestrator) Process(ctx context.Context, id uuid.UUID) error {
	if !o.guard.TryAcquire(id) {
		return ErrAlreadyRunning
	}
	defer o.guard.Release(id)

	p, err := o.deps.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Reject before the run starts so a published or failed record is never
	// demoted to failed by the rejection itself.
	if !storage.CanTransition(p.Status, storage.StatusExtracting) {
		return fmt.Errorf("%w: %s", ErrNotRunnable, p.Status)
	}
	return o.execute(ctx, p)
}

// Retry re-runs the pipeline from scratch. Permitted only from failed;
// extraction is re-run wholesale rather than resumed from checkpoints.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) error {
	if !o.guard.TryAcquire(id) {
		return ErrAlreadyRunning
	}
	defer o.guard.Release(id)

	p, err := o.deps.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != storage.StatusFailed {
		return ErrRetryNotFailed
	}

	p.RetryCount++
	p.LastError = nil
	p.Status = storage.StatusUploaded
	if err := o.deps.Prospects.Update(ctx, p); err != nil {
		return fmt.Errorf("pipeline: reset for retry: %w", err)
	}
	return o.execute(ctx, p)
}

// Reprocess deletes the existing mini-site, resets the record and re-runs
// the pipeline. The prior status, generated content and artifact links are
// snapshotted first and restored verbatim when the rerun fails, so a
// failed reprocess never leaves the record worse off.
func (o *Orchestrator) Reprocess(ctx context.Context, id uuid.UUID) error {
	if !o.guard.TryAcquire(id) {
		return ErrAlreadyRunning
	}
	defer o.guard.Release(id)

	p, err := o.deps.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}

	snapshot := p.Snapshot()

	if p.MiniSiteID != nil {
		if err := o.deps.MiniSites.Delete(ctx, *p.MiniSiteID); err != nil {
			return fmt.Errorf("pipeline: delete mini-site for reprocess: %w", err)
		}
	}

	p.Status = storage.StatusUploaded
	p.GeneratedTitle = ""
	p.GeneratedDescription = ""
	p.GeneratedSections = nil
	p.Confidence = 0
	p.ProjectID = nil
	p.ProjectSlug = nil
	p.MiniSiteID = nil
	p.MiniSiteSlug = nil
	p.LastError = nil
	if err := o.deps.Prospects.Update(ctx, p); err != nil {
		return fmt.Errorf("pipeline: reset for reprocess: %w", err)
	}

	if err := o.run(ctx, p); err != nil {
		p.Restore(snapshot)
		if uerr := o.deps.Prospects.Update(ctx, p); uerr != nil {
			o.logger.Error().Err(uerr).
				Str("prospect_id", p.ID.String()).
				Msg("Snapshot restore failed after reprocess error")
		}
		return err
	}
	return nil
}

// execute runs the pipeline and marks the prospect failed on error.
func (o *Orchestrator) execute(ctx context.Context, p *storage.Prospect) error {
	if err := o.run(ctx, p); err != nil {
		o.fail(ctx, p, err)
		return err
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, p *storage.Prospect) error {
	log := o.logger.WithProspect(p.ID.String())

	if err := o.transition(ctx, p, storage.StatusExtracting, 5, "Fetching document"); err != nil {
		return err
	}

	fetched, err := o.deps.Fetcher.Fetch(ctx, p.SourceURL)
	if err != nil {
		return err
	}
	if p.SourceSHA256 == "" {
		p.SourceSHA256 = fetched.SHA256
	}

	o.progress(ctx, p, 15, "Extracting content")
	content, err := o.deps.Content.Extract(fetched.Data)
	if err != nil {
		return err
	}
	p.ExtractedText = content.Text
	p.PageCount = content.PageCount
	p.Metadata = marshalJSON(content.Metadata)
	p.ExtractedBlocks = marshalJSON(content.Blocks)
	p.ExtractedTables = marshalJSON(content.Tables)
	if err := o.checkpoint(ctx, p); err != nil {
		return err
	}
	o.progress(ctx, p, 25, "Content extracted")

	report := o.deps.Images.Extract(ctx, fetched.Data, p.ID.String())
	p.ExtractedImages = marshalJSON(report)
	if err := o.transition(ctx, p, storage.StatusExtracted, 40,
		fmt.Sprintf("Extracted %d images", len(report.Images))); err != nil {
		return err
	}

	if err := o.transition(ctx, p, storage.StatusMapping, 45, "Classifying images"); err != nil {
		return err
	}
	classified, err := o.deps.Classifier.Classify(ctx, report.Images)
	if err != nil {
		return err
	}
	p.ClassifiedImages = marshalJSON(classified.Classified)
	p.ImageManifest = marshalJSON(classified.Manifest)
	if err := o.checkpoint(ctx, p); err != nil {
		return err
	}
	o.progress(ctx, p, 55, "Images classified")

	o.progress(ctx, p, 60, "Mapping structured data")
	result := o.deps.Mapper.Map(ctx, content)
	if !result.Success || result.Data == nil {
		return fmt.Errorf("pipeline: mapping failed: %s", strings.Join(result.Errors, "; "))
	}
	project := result.Data
	p.Confidence = result.Confidence
	p.GeneratedTitle = project.Name
	p.GeneratedDescription = project.Description
	p.GeneratedSections = marshalJSON(project)
	if err := o.transition(ctx, p, storage.StatusMapped, 65, "Structured data mapped"); err != nil {
		return err
	}

	if err := o.transition(ctx, p, storage.StatusValidating, 70, "Generating localized copy and SEO"); err != nil {
		return err
	}

	// Localization and SEO are independent of each other and run in
	// parallel. Both are stage-soft: the run continues on failure.
	var (
		wg         sync.WaitGroup
		localized  *generate.LocalizedContent
		localizErr error
		seoContent generate.SEOContent
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		localized, localizErr = o.deps.Localizer.Localize(ctx, project)
	}()
	go func() {
		defer wg.Done()
		seoContent = o.deps.SEO.Generate(ctx, project)
	}()
	wg.Wait()

	if localizErr != nil {
		log.Warn().Err(localizErr).Msg("Localization failed, continuing without it")
	} else {
		generate.ApplyLocalization(project, localized)
	}
	if seoContent.Title != "" {
		p.GeneratedTitle = seoContent.Title
	}
	if seoContent.Description != "" {
		p.GeneratedDescription = seoContent.Description
	}
	p.GeneratedSections = marshalJSON(project)
	if err := o.transition(ctx, p, storage.StatusReady, 82, "Generation complete"); err != nil {
		return err
	}

	if err := o.transition(ctx, p, storage.StatusPublishing, 85, "Creating project artifact"); err != nil {
		return err
	}
	inputs := artifact.Inputs{
		Prospect:  p,
		Project:   project,
		Manifest:  &classified.Manifest,
		Extracted: report.Images,
		SEO:       seoContent,
	}

	// Project creation must complete before the mini-site is attempted;
	// the mini-site holds a hard reference to the project.
	created, err := o.deps.Builder.BuildProject(ctx, inputs)
	if err != nil {
		return err
	}
	if err := o.checkpoint(ctx, p); err != nil {
		return err
	}
	o.progressData(ctx, p, 92, "Project created", map[string]any{
		"projectId":   created.ID.String(),
		"projectSlug": created.Slug,
	})

	site, err := o.deps.Builder.BuildMiniSite(ctx, inputs)
	if err != nil {
		return err
	}
	if err := o.checkpoint(ctx, p); err != nil {
		return err
	}
	o.progressData(ctx, p, 97, "Mini-site created", map[string]any{
		"miniSiteId":   site.ID.String(),
		"miniSiteSlug": site.Slug,
	})

	if err := o.transition(ctx, p, storage.StatusPublished, 100, "Processing complete"); err != nil {
		return err
	}

	log.Info().
		Float64("confidence", p.Confidence).
		Str("project_slug", created.Slug).
		Msg("Pipeline run complete")
	return nil
}

// transition moves the prospect to the next status, persists it and emits
// a progress event.
func (o *Orchestrator) transition(ctx context.Context, p *storage.Prospect, to storage.ProspectStatus, progress int, msg string) error {
	if !storage.CanTransition(p.Status, to) {
		return fmt.Errorf("pipeline: illegal transition %s -> %s", p.Status, to)
	}
	p.Status = to
	if err := o.deps.Prospects.Update(ctx, p); err != nil {
		return fmt.Errorf("pipeline: persist status %s: %w", to, err)
	}
	o.deps.Events.Publish(ctx, Event{
		ProspectID: p.ID,
		Status:     to,
		Progress:   progress,
		Message:    msg,
	})
	return nil
}

// checkpoint persists stage outputs without a status change.
func (o *Orchestrator) checkpoint(ctx context.Context, p *storage.Prospect) error {
	if err := o.deps.Prospects.Update(ctx, p); err != nil {
		return fmt.Errorf("pipeline: persist checkpoint: %w", err)
	}
	return nil
}

func (o *Orchestrator) progress(ctx context.Context, p *storage.Prospect, progress int, msg string) {
	o.progressData(ctx, p, progress, msg, nil)
}

func (o *Orchestrator) progressData(ctx context.Context, p *storage.Prospect, progress int, msg string, data map[string]any) {
	o.deps.Events.Publish(ctx, Event{
		ProspectID: p.ID,
		Status:     p.Status,
		Progress:   progress,
		Message:    msg,
		Data:       data,
	})
}

// fail records the terminal failure on the prospect.
func (o *Orchestrator) fail(ctx context.Context, p *storage.Prospect, cause error) {
	msg := cause.Error()
	p.Status = storage.StatusFailed
	p.LastError = &msg
	if err := o.deps.Prospects.Update(ctx, p); err != nil {
		o.logger.Error().Err(err).
			Str("prospect_id", p.ID.String()).
			Msg("Failed to persist failure state")
	}
	o.deps.Events.Publish(ctx, Event{
		ProspectID: p.ID,
		Status:     storage.StatusFailed,
		Progress:   100,
		Message:    "Processing failed: " + msg,
	})
	o.logger.Error().Err(cause).
		Str("prospect_id", p.ID.String()).
		Msg("Pipeline run failed")
}

func marshalJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
