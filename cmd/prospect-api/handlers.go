package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateforge/prospect-engine/internal/app"
	"github.com/estateforge/prospect-engine/internal/observability"
	"github.com/estateforge/prospect-engine/internal/pipeline"
	"github.com/estateforge/prospect-engine/internal/storage"
)

type handlers struct {
	engine *app.App
	logger *observability.Logger
}

func newHandlers(engine *app.App) *handlers {
	return &handlers{engine: engine, logger: engine.Logger.WithStage("api")}
}

type createProspectRequest struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256,omitempty"`
}

type prospectResponse struct {
	ID           uuid.UUID              `json:"id"`
	SourceURL    string                 `json:"sourceUrl"`
	Status       storage.ProspectStatus `json:"status"`
	PageCount    int                    `json:"pageCount,omitempty"`
	Confidence   float64                `json:"confidence,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Description  string                 `json:"description,omitempty"`
	ProjectID    *uuid.UUID             `json:"projectId,omitempty"`
	ProjectSlug  *string                `json:"projectSlug,omitempty"`
	MiniSiteID   *uuid.UUID             `json:"miniSiteId,omitempty"`
	MiniSiteSlug *string                `json:"miniSiteSlug,omitempty"`
	LastError    *string                `json:"lastError,omitempty"`
	RetryCount   int                    `json:"retryCount"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

func toProspectResponse(p *storage.Prospect) prospectResponse {
	return prospectResponse{
		ID:           p.ID,
		SourceURL:    p.SourceURL,
		Status:       p.Status,
		PageCount:    p.PageCount,
		Confidence:   p.Confidence,
		Title:        p.GeneratedTitle,
		Description:  p.GeneratedDescription,
		ProjectID:    p.ProjectID,
		ProjectSlug:  p.ProjectSlug,
		MiniSiteID:   p.MiniSiteID,
		MiniSiteSlug: p.MiniSiteSlug,
		LastError:    p.LastError,
		RetryCount:   p.RetryCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.engine.DB.PingContext(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// createProspect registers a source document and starts processing in the
// background. A sha256 supplied by a caller that already hashed the file
// short-circuits to the existing prospect.
func (h *handlers) createProspect(w http.ResponseWriter, r *http.Request) {
	var req createProspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.engine.Fetcher.ValidateURL(r.Context(), req.URL); err != nil {
		if errors.Is(err, pipeline.ErrUnsafeURL) {
			writeError(w, http.StatusBadRequest, "URL points to a private or internal address")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid url: %v", err))
		return
	}

	if req.SHA256 != "" {
		existing, err := h.engine.Repos.Prospects.GetBySHA256(r.Context(), req.SHA256)
		if err == nil {
			writeJSON(w, http.StatusOK, toProspectResponse(existing))
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error().Err(err).Msg("Dedup lookup failed")
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
	}

	prospect := &storage.Prospect{
		ID:           uuid.New(),
		SourceURL:    req.URL,
		SourceSHA256: req.SHA256,
		Status:       storage.StatusUploaded,
	}
	if err := h.engine.Repos.Prospects.Create(r.Context(), prospect); err != nil {
		h.logger.Error().Err(err).Msg("Prospect create failed")
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}

	h.startRun(prospect.ID, h.engine.Orchestrator.Process)
	writeJSON(w, http.StatusAccepted, toProspectResponse(prospect))
}

func (h *handlers) getProspect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	prospect, err := h.engine.Repos.Prospects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prospect not found")
			return
		}
		h.logger.Error().Err(err).Msg("Prospect lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toProspectResponse(prospect))
}

func (h *handlers) processProspect(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.engine.Orchestrator.Process)
}

func (h *handlers) retryProspect(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	prospect, err := h.engine.Repos.Prospects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "prospect not found")
		return
	}
	if prospect.Status != storage.StatusFailed {
		writeError(w, http.StatusConflict, "retry is only permitted from failed status")
		return
	}

	h.startRun(id, h.engine.Orchestrator.Retry)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

func (h *handlers) reprocessProspect(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.engine.Orchestrator.Reprocess)
}

// trigger starts a background run for an existing prospect.
func (h *handlers) trigger(w http.ResponseWriter, r *http.Request, run func(context.Context, uuid.UUID) error) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if _, err := h.engine.Repos.Prospects.GetByID(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "prospect not found")
		return
	}

	h.startRun(id, run)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

// startRun launches a pipeline run that outlives the triggering request.
func (h *handlers) startRun(id uuid.UUID, run func(context.Context, uuid.UUID) error) {
	go func() {
		if err := run(context.Background(), id); err != nil {
			if errors.Is(err, pipeline.ErrAlreadyRunning) {
				h.logger.Warn().Str("prospect_id", id.String()).Msg("Run already in flight, trigger ignored")
				return
			}
			h.logger.Error().Err(err).Str("prospect_id", id.String()).Msg("Background run failed")
		}
	}()
}

// streamEvents pushes progress events for one prospect as server-sent
// events until the client disconnects.
func (h *handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe, err := h.engine.Broker.Subscribe(r.Context(), pipeline.EventChannel(id))
	if err != nil {
		h.logger.Error().Err(err).Msg("Event subscribe failed")
		writeError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Snapshot the current state first so late subscribers see something.
	if prospect, err := h.engine.Repos.Prospects.GetByID(r.Context(), id); err == nil {
		if payload, err := json.Marshal(toProspectResponse(prospect)); err == nil {
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *handlers) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prospect id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
