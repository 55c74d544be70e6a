// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/revlumen/leadfeed/internal/cache"
	"github.com/revlumen/leadfeed/internal/database"
	"github.com/revlumen/leadfeed/internal/feed"
	"github.com/revlumen/leadfeed/internal/ingest"
	"github.com/revlumen/leadfeed/internal/models"
	"github.com/revlumen/leadfeed/internal/packs"
	"github.com/revlumen/leadfeed/internal/projection"
	"github.com/revlumen/leadfeed/internal/stage"
)

// StageRunner executes stage invocations, satisfied by *stage.Executor.
type StageRunner interface {
	Run(ctx context.Context, req stage.Request) (*stage.Result, error)
}

// FeedService answers ranked feed queries, satisfied by *feed.Service.
type FeedService interface {
	GetRanked(ctx context.Context, workspaceID string, pack *packs.Pack, q feed.Query) ([]models.RankedLead, error)
}

// Backfiller rebuilds projections across workspaces.
type Backfiller interface {
	BackfillAll(ctx context.Context, asOf time.Time) (*projection.BackfillSummary, error)
}

// PackResolver maps (workspace, pack) references to loaded packs.
type PackResolver interface {
	Resolve(ctx context.Context, workspaceID, packID string) (*packs.Pack, error)
}

// EventPublisher forwards accepted events to the broker. Satisfied by
// *ingest.Publisher when the NATS transport is compiled in and enabled.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *ingest.CompanyEvent) error
}

// Store is the handler-facing persistence surface.
type Store interface {
	Ping(ctx context.Context) error
	GetJobRun(ctx context.Context, id string) (*models.JobRun, error)
	ListJobRuns(ctx context.Context, workspaceID string, limit int) ([]models.JobRun, error)
	InsertOutreachEntry(ctx context.Context, entry *models.OutreachEntry) error
	ListOutreachEntries(ctx context.Context, workspaceID, companyID string, limit int) ([]models.OutreachEntry, error)
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
}

// feedCacheTTL bounds how stale a cached feed read can get when an
// invalidating write is missed (e.g. a scheduler hitting another replica).
const feedCacheTTL = 30 * time.Second

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	store    Store
	runner   StageRunner
	feed     FeedService
	backfill Backfiller
	resolver PackResolver
	packs    *packs.Store
	queue    *ingest.Queue
	cache    *cache.Cache

	publisher    EventPublisher
	publishTopic string

	defaultFloor int
	defaultLimit int
}

// NewHandlers creates the handler set. defaultFloor and defaultLimit seed
// feed queries that omit the corresponding parameter.
func NewHandlers(store Store, runner StageRunner, feedSvc FeedService, backfill Backfiller, resolver PackResolver, packStore *packs.Store, queue *ingest.Queue, defaultFloor, defaultLimit int) *Handlers {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Handlers{
		store:        store,
		runner:       runner,
		feed:         feedSvc,
		backfill:     backfill,
		resolver:     resolver,
		packs:        packStore,
		queue:        queue,
		cache:        cache.New(feedCacheTTL),
		defaultFloor: defaultFloor,
		defaultLimit: defaultLimit,
	}
}

// SetEventPublisher routes HTTP-accepted events through the broker instead
// of the in-process queue, making them durable and visible to every
// consumer replica. Called once from NATS wiring at startup.
func (h *Handlers) SetEventPublisher(pub EventPublisher, topic string) {
	h.publisher = pub
	h.publishTopic = topic
}

// HealthLive reports process liveness.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady reports readiness, including database reachability.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeDatabase, "database not reachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, start)
}

// StagesRun executes one pipeline stage synchronously.
// POST /api/v1/stages/run
func (h *Handlers) StagesRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req StageRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeMalformedBody, "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	kind, err := stage.ParseKind(req.Kind)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	var asOf time.Time
	if req.AsOf != "" {
		asOf, _ = time.Parse("2006-01-02", req.AsOf)
	}

	result, err := h.runner.Run(r.Context(), stage.Request{
		Kind:           kind,
		WorkspaceID:    req.WorkspaceID,
		PackID:         req.PackID,
		IdempotencyKey: req.IdempotencyKey,
		CompanySubset:  req.Companies,
		AsOf:           asOf,
	})
	if err != nil {
		if errors.Is(err, stage.ErrRateLimited) {
			respondError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "stage invocation quota exhausted for this workspace", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeStage, "stage execution failed", err)
		return
	}

	// Any stage run can change what a feed query returns.
	h.cache.Clear()

	respondSuccess(w, http.StatusOK, result, start)
}

// Backfill rebuilds the lead feed for every workspace.
// POST /api/v1/backfill
func (h *Handlers) Backfill(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BackfillRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeMalformedBody, "invalid JSON body", err)
			return
		}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondValidationError(w, apiErr)
			return
		}
	}

	var asOf time.Time
	if req.AsOf != "" {
		asOf, _ = time.Parse("2006-01-02", req.AsOf)
	}

	summary, err := h.backfill.BackfillAll(r.Context(), asOf)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "backfill failed", err)
		return
	}

	h.cache.Clear()
	respondSuccess(w, http.StatusOK, summary, start)
}

// Leads returns the ranked lead feed ordered by composite. Without an as_of
// parameter the read reflects the current feed; as_of=YYYY-MM-DD answers from
// snapshot history bounded to that date.
// GET /api/v1/leads
func (h *Handlers) Leads(w http.ResponseWriter, r *http.Request) {
	h.leads(w, r, false)
}

// LeadsRecent returns the ranked lead feed ordered by last-seen recency.
// GET /api/v1/leads/recent
func (h *Handlers) LeadsRecent(w http.ResponseWriter, r *http.Request) {
	h.leads(w, r, true)
}

func (h *Handlers) leads(w http.ResponseWriter, r *http.Request, recentFirst bool) {
	start := time.Now()

	req := LeadsRequest{
		WorkspaceID:       r.URL.Query().Get("workspace"),
		PackID:            r.URL.Query().Get("pack"),
		Limit:             getIntParam(r, "limit", h.defaultLimit),
		CompositeFloor:    getIntParam(r, "min_composite", h.defaultFloor),
		OutreachThreshold: getIntParam(r, "min_outreach_score", 0),
		AsOf:              r.URL.Query().Get("as_of"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	// An as_of bound forces the snapshot-history path; the projection only
	// holds the current feed.
	var asOf time.Time
	if req.AsOf != "" {
		asOf, _ = time.Parse("2006-01-02", req.AsOf)
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}

	pack, err := h.resolver.Resolve(r.Context(), workspaceID, req.PackID)
	if err != nil {
		if errors.Is(err, packs.ErrPackNotFound) {
			respondError(w, http.StatusNotFound, ErrCodePackUnavailable, "no pack available for this workspace", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "pack resolution failed", err)
		return
	}

	query := feed.Query{
		Limit:             req.Limit,
		CompositeFloor:    req.CompositeFloor,
		OutreachThreshold: req.OutreachThreshold,
		RecentFirst:       recentFirst,
		AsOf:              asOf,
	}

	cacheKey := cache.GenerateKey("leads", struct {
		WorkspaceID string
		PackID      string
		Query       feed.Query
	}{workspaceID, pack.ID, query})
	if cached, ok := h.cache.Get(cacheKey); ok {
		respondSuccess(w, http.StatusOK, cached, start)
		return
	}

	leads, err := h.feed.GetRanked(r.Context(), workspaceID, pack, query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "feed query failed", err)
		return
	}

	data := map[string]interface{}{
		"workspace_id": workspaceID,
		"pack_id":      pack.ID,
		"count":        len(leads),
		"leads":        leads,
	}
	h.cache.Set(cacheKey, data)
	respondSuccess(w, http.StatusOK, data, start)
}

// OutreachCreate logs a manual outreach entry.
// POST /api/v1/outreach
func (h *Handlers) OutreachCreate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req OutreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeMalformedBody, "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}

	entry := models.OutreachEntry{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		CompanyID:   req.CompanyID,
		Status:      req.Status,
		Note:        req.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.InsertOutreachEntry(r.Context(), &entry); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "failed to record outreach", err)
		return
	}

	// Outreach status is denormalized into feed rows.
	h.cache.Clear()

	respondSuccess(w, http.StatusCreated, entry, start)
}

// OutreachList returns a company's outreach history, newest first.
// GET /api/v1/outreach?company=...
func (h *Handlers) OutreachList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	companyID := r.URL.Query().Get("company")
	if companyID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "company is required", nil)
		return
	}
	workspaceID := r.URL.Query().Get("workspace")
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}

	entries, err := h.store.ListOutreachEntries(r.Context(), workspaceID, companyID, getIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "failed to list outreach", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"company_id": companyID,
		"count":      len(entries),
		"entries":    entries,
	}, start)
}

// EventsIngest accepts company events over HTTP. Events go to the broker
// when a publisher is configured, otherwise to the in-process queue for
// the next ingest stage run. Structurally invalid events are rejected up
// front; a full queue asks the producer to retry later.
// POST /api/v1/events
func (h *Handlers) EventsIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req IngestEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeMalformedBody, "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	queued := 0
	rejected := make([]map[string]string, 0)
	for i := range req.Events {
		ev := req.Events[i]
		if err := ev.Validate(); err != nil {
			rejected = append(rejected, map[string]string{
				"id":     ev.ID,
				"reason": err.Error(),
			})
			continue
		}
		if h.publisher != nil {
			if err := h.publisher.PublishEvent(r.Context(), h.publishTopic, &ev); err != nil {
				respondError(w, http.StatusServiceUnavailable, ErrCodeInternal, "failed to publish event, retry later", err)
				return
			}
			queued++
			continue
		}
		if err := h.queue.Enqueue(ev); err != nil {
			if errors.Is(err, ingest.ErrQueueFull) {
				respondError(w, http.StatusServiceUnavailable, ErrCodeQueueFull, "ingest queue is full, retry later", nil)
				return
			}
			respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to queue event", err)
			return
		}
		queued++
	}

	respondSuccess(w, http.StatusAccepted, map[string]interface{}{
		"queued":   queued,
		"rejected": rejected,
	}, start)
}

// JobGet returns one job run by ID.
// GET /api/v1/jobs/{id}
func (h *Handlers) JobGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := chi.URLParam(r, "id")
	run, err := h.store.GetJobRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, "job run not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "failed to load job run", err)
		return
	}
	respondSuccess(w, http.StatusOK, run, start)
}

// JobsList returns a workspace's recent job runs.
// GET /api/v1/jobs
func (h *Handlers) JobsList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	workspaceID := r.URL.Query().Get("workspace")
	if workspaceID == "" {
		workspaceID = models.DefaultWorkspaceID
	}

	runs, err := h.store.ListJobRuns(r.Context(), workspaceID, getIntParam(r, "limit", 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "failed to list job runs", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"workspace_id": workspaceID,
		"count":        len(runs),
		"runs":         runs,
	}, start)
}

// Workspaces lists all workspaces.
// GET /api/v1/workspaces
func (h *Handlers) Workspaces(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	workspaces, err := h.store.ListWorkspaces(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabase, "failed to list workspaces", err)
		return
	}
	respondSuccess(w, http.StatusOK, workspaces, start)
}

// Packs lists the loaded pack identifiers and the system default.
// GET /api/v1/packs
func (h *Handlers) Packs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ids, err := h.packs.IDs()
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to load packs", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"packs":   ids,
		"default": packs.DefaultPackID,
	}, start)
}
