package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// BackendMemory is the storage backend label reported on publish jobs and
// replay runs when no database is configured. Durable deployments report the
// configured database type instead.
const BackendMemory = "memory"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository is the hub's single entry point for all lifecycle operations:
// source registry, snapshot ingestion, validation, diffing, publishing,
// promotion, querying, audit and evidence replay.
//
// Writes for one (namespace, source) are serialized through a per-key mutex so
// gate checks and their effects cannot interleave.
type Repository struct {
	meta    MetaStore
	index   IndexStore
	fetcher *ingest.Fetcher
	backend string
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRepository wires the stores and fetcher together. backend is the label
// recorded on publish jobs and replay runs.
func NewRepository(meta MetaStore, index IndexStore, fetcher *ingest.Fetcher, backend string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		meta:    meta,
		index:   index,
		fetcher: fetcher,
		backend: backend,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *Repository) sourceLock(namespace, sourceID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := namespace + "::" + sourceID
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// appendAudit records an audit event. Audit writes are best effort for all
// operations: a failed append is logged and counted, never propagated. Replay
// runs and publish jobs are the durable trail and keep their own persistence
// guarantees.
func (r *Repository) appendAudit(ctx context.Context, namespace, actor, action, targetRef string, detail map[string]any) {
	if actor == "" {
		actor = "api"
	}
	err := r.meta.AppendAuditEvent(ctx, &AuditEventRecord{
		EventID:   uuid.NewString(),
		Namespace: namespace,
		Actor:     actor,
		Action:    action,
		TargetRef: targetRef,
		EventJSON: detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		auditWriteFailures.Inc()
		r.logger.Warn("audit append failed",
			"namespace", namespace, "action", action, "target", targetRef, "error", err)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// UpsertSource registers or updates a source definition. The (namespace,
// source_id) identity and original created_at survive updates.
func (r *Repository) UpsertSource(ctx context.Context, namespace, sourceID string, spec SourceSpec) (Source, error) {
	if spec.Entrypoint == "" {
		return Source{}, preconditionError(CodeInvalidSourceSpec, "entrypoint is required")
	}

	existing, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil {
		return Source{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}

	rec := &SourceRecord{
		ID:               uuid.NewString(),
		Namespace:        namespace,
		SourceID:         sourceID,
		Name:             spec.Name,
		Category:         spec.Category,
		TrustLevel:       string(spec.TrustLevel),
		License:          spec.License,
		Entrypoint:       spec.Entrypoint,
		UpdateFrequency:  spec.UpdateFrequency,
		FetchMethod:      spec.FetchMethod,
		ParserProfile:    spec.ParserProfile,
		ValidatorProfile: spec.ValidatorProfile,
		Enabled:          true,
		AllowedUseNotes:  spec.AllowedUseNotes,
		AccessMode:       spec.AccessMode,
		RobotsTosFlags:   spec.RobotsTosFlags,
	}
	if rec.TrustLevel == "" {
		rec.TrustLevel = string(TrustUnknown)
	}
	if spec.Enabled != nil {
		rec.Enabled = *spec.Enabled
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}

	if err := r.meta.UpsertSource(ctx, rec); err != nil {
		return Source{}, fmt.Errorf("upsert source %s: %w", sourceID, err)
	}

	stored, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil || stored == nil {
		if err == nil {
			err = fmt.Errorf("source %s missing after upsert", sourceID)
		}
		return Source{}, err
	}

	r.appendAudit(ctx, namespace, "", "upsert_source", "source:"+sourceID, map[string]any{
		"entrypoint": spec.Entrypoint,
		"enabled":    stored.Enabled,
	})
	return sourceToAPI(stored), nil
}

// GetSource returns the registered source.
func (r *Repository) GetSource(ctx context.Context, namespace, sourceID string) (Source, error) {
	rec, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil {
		return Source{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if rec == nil {
		return Source{}, notFoundError(CodeSourceNotFound, "source not found: "+sourceID)
	}
	return sourceToAPI(rec), nil
}

// UpsertSourceSchedule stores the recurring-fetch policy for a registered
// source. The hub records the schedule; acting on it belongs to an external
// scheduler.
func (r *Repository) UpsertSourceSchedule(ctx context.Context, namespace, sourceID string, spec ScheduleSpec) (Schedule, error) {
	src, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil {
		return Schedule{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if src == nil {
		return Schedule{}, notFoundError(CodeSourceNotFound, "source not found: "+sourceID)
	}

	existing, err := r.meta.GetSchedule(ctx, namespace, sourceID)
	if err != nil {
		return Schedule{}, fmt.Errorf("load schedule %s: %w", sourceID, err)
	}

	rec := &ScheduleRecord{
		ID:           uuid.NewString(),
		Namespace:    namespace,
		SourceID:     sourceID,
		ScheduleType: spec.ScheduleType,
		ScheduleSpec: spec.ScheduleSpec,
		WindowPolicy: spec.WindowPolicy,
		Enabled:      true,
	}
	if spec.Enabled != nil {
		rec.Enabled = *spec.Enabled
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}

	if err := r.meta.UpsertSchedule(ctx, rec); err != nil {
		return Schedule{}, fmt.Errorf("upsert schedule %s: %w", sourceID, err)
	}

	r.appendAudit(ctx, namespace, "", "upsert_source_schedule", "source:"+sourceID, map[string]any{
		"schedule_type": spec.ScheduleType,
		"schedule_spec": spec.ScheduleSpec,
	})
	return scheduleToAPI(rec), nil
}

// GetSourceSchedule returns the stored schedule for a source.
func (r *Repository) GetSourceSchedule(ctx context.Context, namespace, sourceID string) (Schedule, error) {
	rec, err := r.meta.GetSchedule(ctx, namespace, sourceID)
	if err != nil {
		return Schedule{}, fmt.Errorf("load schedule %s: %w", sourceID, err)
	}
	if rec == nil {
		return Schedule{}, notFoundError(CodeSourceNotFound, "schedule not found for source: "+sourceID)
	}
	return scheduleToAPI(rec), nil
}

// FetchNow performs one immediate fetch of the source and records an immutable
// snapshot. Refetching unchanged content still inserts a row, marked skipped,
// so the fetch attempt itself is part of the history.
func (r *Repository) FetchNow(ctx context.Context, namespace, sourceID, actor string) (Snapshot, error) {
	lock := r.sourceLock(namespace, sourceID)
	lock.Lock()
	defer lock.Unlock()

	src, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if src == nil {
		return Snapshot{}, notFoundError(CodeSourceNotFound, "source not found: "+sourceID)
	}
	if !src.Enabled {
		return Snapshot{}, preconditionError(CodeSourceDisabled, "source is disabled: "+sourceID)
	}

	payload, err := r.fetcher.Fetch(ctx, src.Entrypoint, src.DatasetVariant())
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch source %s: %w", sourceID, err)
	}

	hash, err := ContentHash(payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("hash payload for %s: %w", sourceID, err)
	}

	latest, err := r.meta.LatestSnapshot(ctx, namespace, sourceID, "")
	if err != nil {
		return Snapshot{}, fmt.Errorf("load latest snapshot for %s: %w", sourceID, err)
	}

	status := SnapshotStatusSuccess
	if latest != nil && latest.ContentHash == hash {
		status = SnapshotStatusSkipped
	}

	now := time.Now().UTC()
	snapshotID := uuid.NewString()
	rec := &SnapshotRecord{
		SnapshotID:   snapshotID,
		Namespace:    namespace,
		SourceID:     sourceID,
		VersionTag:   now.Format("2006-01-02"),
		FetchedAt:    now,
		Etag:         hash[:16],
		LastModified: now,
		ContentHash:  hash,
		RawURI:       fmt.Sprintf("trust-store://raw/%s/%s/%s.json", namespace, sourceID, snapshotID),
		ParsedURI:    fmt.Sprintf("trust-store://parsed/%s/%s/%s.json", namespace, sourceID, snapshotID),
		Status:       status,
		RowCount:     payload.RowCount(),
		Payload:      PayloadColumn{Payload: payload},
	}
	if err := r.meta.InsertSnapshot(ctx, rec); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot for %s: %w", sourceID, err)
	}

	fetchTotal.WithLabelValues(status).Inc()
	r.appendAudit(ctx, namespace, actor, "fetch_snapshot", "snapshot:"+snapshotID, map[string]any{
		"source_id":    sourceID,
		"status":       status,
		"content_hash": hash,
		"row_count":    rec.RowCount,
	})
	return snapshotToAPI(rec), nil
}

// GetSnapshot returns one snapshot by id.
func (r *Repository) GetSnapshot(ctx context.Context, namespace, snapshotID string) (Snapshot, error) {
	rec, err := r.meta.GetSnapshot(ctx, namespace, snapshotID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	if rec == nil {
		return Snapshot{}, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+snapshotID)
	}
	return snapshotToAPI(rec), nil
}

// ValidateSnapshot scores a snapshot's quality and, when an earlier snapshot
// of the same source exists, records the row-count diff against it. The diff
// is returned alongside the report; it is nil for a source's first snapshot.
func (r *Repository) ValidateSnapshot(ctx context.Context, namespace, snapshotID string) (QualityReport, *DiffReport, error) {
	snap, err := r.meta.GetSnapshot(ctx, namespace, snapshotID)
	if err != nil {
		return QualityReport{}, nil, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	if snap == nil {
		return QualityReport{}, nil, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+snapshotID)
	}

	lock := r.sourceLock(namespace, snap.SourceID)
	lock.Lock()
	defer lock.Unlock()

	quality := ComputeQuality(snap.Payload.Payload)
	report := &QualityReportRecord{
		ID:                  uuid.NewString(),
		Namespace:           namespace,
		SnapshotID:          snapshotID,
		RowCount:            quality.RowCount,
		NullRatio:           quality.NullRatio,
		PrimaryKeyConflicts: quality.PrimaryKeyConflicts,
		QualityScore:        quality.QualityScore,
		ValidatorVersion:    ValidatorVersion,
	}
	if existing, err := r.meta.GetQualityReport(ctx, namespace, snapshotID); err != nil {
		return QualityReport{}, nil, fmt.Errorf("load quality report %s: %w", snapshotID, err)
	} else if existing != nil {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
	}
	if err := r.meta.UpsertQualityReport(ctx, report); err != nil {
		return QualityReport{}, nil, fmt.Errorf("store quality report %s: %w", snapshotID, err)
	}

	var diffAPI *DiffReport
	base, err := r.meta.LatestSnapshot(ctx, namespace, snap.SourceID, snapshotID)
	if err != nil {
		return QualityReport{}, nil, fmt.Errorf("load base snapshot for %s: %w", snapshotID, err)
	}
	if base != nil {
		diffRec, err := r.storeDiff(ctx, namespace, base, snap)
		if err != nil {
			return QualityReport{}, nil, err
		}
		d := diffToAPI(diffRec)
		diffAPI = &d
	}

	r.appendAudit(ctx, namespace, "", "validate_snapshot", "snapshot:"+snapshotID, map[string]any{
		"quality_score": quality.QualityScore,
		"row_count":     quality.RowCount,
	})
	return qualityToAPI(report), diffAPI, nil
}

func (r *Repository) storeDiff(ctx context.Context, namespace string, base, newSnap *SnapshotRecord) (*DiffReportRecord, error) {
	summary := ComputeDiff(base.RowCount, newSnap.RowCount)
	rec := &DiffReportRecord{
		ID:             uuid.NewString(),
		Namespace:      namespace,
		BaseSnapshotID: base.SnapshotID,
		NewSnapshotID:  newSnap.SnapshotID,
		BaseRowCount:   summary.BaseRowCount,
		NewRowCount:    summary.NewRowCount,
		Delta:          summary.Delta,
		ChangeRatio:    summary.ChangeRatio,
		Severity:       summary.Severity,
		RiskHint:       summary.RiskHint,
	}
	if existing, err := r.meta.GetDiffReport(ctx, namespace, newSnap.SnapshotID); err != nil {
		return nil, fmt.Errorf("load diff report %s: %w", newSnap.SnapshotID, err)
	} else if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	if err := r.meta.UpsertDiffReport(ctx, rec); err != nil {
		return nil, fmt.Errorf("store diff report %s: %w", newSnap.SnapshotID, err)
	}
	return rec, nil
}

// GetQualityReport returns a snapshot's validation result.
func (r *Repository) GetQualityReport(ctx context.Context, namespace, snapshotID string) (QualityReport, error) {
	rec, err := r.meta.GetQualityReport(ctx, namespace, snapshotID)
	if err != nil {
		return QualityReport{}, fmt.Errorf("load quality report %s: %w", snapshotID, err)
	}
	if rec == nil {
		return QualityReport{}, notFoundError(CodeSnapshotNotValidated, "no quality report for snapshot: "+snapshotID)
	}
	return qualityToAPI(rec), nil
}

// DiffSnapshots compares two snapshots of the namespace explicitly and stores
// the result keyed by the new snapshot.
func (r *Repository) DiffSnapshots(ctx context.Context, namespace, baseSnapshotID, newSnapshotID string) (DiffReport, error) {
	base, err := r.meta.GetSnapshot(ctx, namespace, baseSnapshotID)
	if err != nil {
		return DiffReport{}, fmt.Errorf("load snapshot %s: %w", baseSnapshotID, err)
	}
	if base == nil {
		return DiffReport{}, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+baseSnapshotID)
	}
	newSnap, err := r.meta.GetSnapshot(ctx, namespace, newSnapshotID)
	if err != nil {
		return DiffReport{}, fmt.Errorf("load snapshot %s: %w", newSnapshotID, err)
	}
	if newSnap == nil {
		return DiffReport{}, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+newSnapshotID)
	}

	rec, err := r.storeDiff(ctx, namespace, base, newSnap)
	if err != nil {
		return DiffReport{}, err
	}

	r.appendAudit(ctx, namespace, "", "diff_snapshots", "snapshot:"+newSnapshotID, map[string]any{
		"base_snapshot_id": baseSnapshotID,
		"severity":         rec.Severity,
	})
	return diffToAPI(rec), nil
}

// PublishSnapshot loads a validated snapshot into the query indices. The index
// replace and the publish-job row are both required: either failure surfaces
// as a persistence error and the snapshot stays unpublished.
func (r *Repository) PublishSnapshot(ctx context.Context, namespace, snapshotID, actor string) (PublishJob, error) {
	snap, err := r.meta.GetSnapshot(ctx, namespace, snapshotID)
	if err != nil {
		return PublishJob{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	if snap == nil {
		return PublishJob{}, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+snapshotID)
	}

	lock := r.sourceLock(namespace, snap.SourceID)
	lock.Lock()
	defer lock.Unlock()

	quality, err := r.meta.GetQualityReport(ctx, namespace, snapshotID)
	if err != nil {
		return PublishJob{}, fmt.Errorf("load quality report %s: %w", snapshotID, err)
	}
	if quality == nil {
		return PublishJob{}, preconditionError(CodeSnapshotNotValidated, "snapshot has no quality report: "+snapshotID)
	}
	if quality.QualityScore < QualityThreshold {
		return PublishJob{}, preconditionError(CodeQualityBelowMinimum,
			fmt.Sprintf("quality score %d is below threshold %d", quality.QualityScore, QualityThreshold))
	}

	if err := r.index.ReplaceSnapshot(ctx, namespace, snap.SourceID, snapshotID, snap.FetchedAt, snap.Payload.Payload); err != nil {
		return PublishJob{}, persistenceError(CodeTrustDBPersistFailed, "replace index rows for "+snapshotID, err)
	}

	job := &PublishJobRecord{
		PublishJobID:   uuid.NewString(),
		Namespace:      namespace,
		SnapshotID:     snapshotID,
		SourceID:       snap.SourceID,
		Status:         "success",
		StorageBackend: r.backend,
	}
	if err := r.meta.InsertPublishJob(ctx, job); err != nil {
		return PublishJob{}, persistenceError(CodeTrustDBPersistFailed, "record publish job for "+snapshotID, err)
	}

	publishTotal.Inc()
	r.appendAudit(ctx, namespace, actor, "publish_snapshot", "snapshot:"+snapshotID, map[string]any{
		"source_id":       snap.SourceID,
		"publish_job_id":  job.PublishJobID,
		"storage_backend": r.backend,
	})
	return PublishJob{
		PublishJobID:   job.PublishJobID,
		Namespace:      namespace,
		SnapshotID:     snapshotID,
		Status:         job.Status,
		StorageBackend: job.StorageBackend,
	}, nil
}

// PromoteActive points a source's single active release at a published
// snapshot. A high-severity diff for the snapshot blocks promotion unless the
// caller explicitly confirms.
func (r *Repository) PromoteActive(ctx context.Context, namespace, sourceID, snapshotID, activatedBy, note string, confirm bool) (ActiveRelease, error) {
	lock := r.sourceLock(namespace, sourceID)
	lock.Lock()
	defer lock.Unlock()

	src, err := r.meta.GetSource(ctx, namespace, sourceID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("load source %s: %w", sourceID, err)
	}
	if src == nil {
		return ActiveRelease{}, notFoundError(CodeSourceNotFound, "source not found: "+sourceID)
	}

	snap, err := r.meta.GetSnapshot(ctx, namespace, snapshotID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	if snap == nil || snap.SourceID != sourceID {
		return ActiveRelease{}, preconditionError(CodeSnapshotNotPublished,
			"snapshot is not published for source "+sourceID+": "+snapshotID)
	}

	published, err := r.meta.IsPublished(ctx, namespace, snapshotID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("check publish state %s: %w", snapshotID, err)
	}
	if !published {
		return ActiveRelease{}, preconditionError(CodeSnapshotNotPublished, "snapshot is not published: "+snapshotID)
	}

	quality, err := r.meta.GetQualityReport(ctx, namespace, snapshotID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("load quality report %s: %w", snapshotID, err)
	}
	if quality == nil {
		return ActiveRelease{}, preconditionError(CodeSnapshotNotValidated, "snapshot has no quality report: "+snapshotID)
	}
	if quality.QualityScore < QualityThreshold {
		return ActiveRelease{}, preconditionError(CodeQualityBelowMinimum,
			fmt.Sprintf("quality score %d is below threshold %d", quality.QualityScore, QualityThreshold))
	}

	diff, err := r.meta.GetDiffReport(ctx, namespace, snapshotID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("load diff report %s: %w", snapshotID, err)
	}
	if diff != nil && diff.Severity == SeverityHigh && !confirm {
		return ActiveRelease{}, preconditionError(CodeHighDiffConfirmation,
			fmt.Sprintf("diff severity is high (change ratio %.4f); pass confirm_high_diff to promote", diff.ChangeRatio))
	}

	rec := &ActiveReleaseRecord{
		ID:               uuid.NewString(),
		Namespace:        namespace,
		SourceID:         sourceID,
		ActiveSnapshotID: snapshotID,
		ActivatedBy:      activatedBy,
		ActivatedAt:      time.Now().UTC(),
		ActivationNote:   note,
	}
	if rec.ActivatedBy == "" {
		rec.ActivatedBy = "api"
	}
	if existing, err := r.meta.GetActiveRelease(ctx, namespace, sourceID); err != nil {
		return ActiveRelease{}, fmt.Errorf("load active release %s: %w", sourceID, err)
	} else if existing != nil {
		rec.ID = existing.ID
	}
	if err := r.meta.UpsertActiveRelease(ctx, rec); err != nil {
		return ActiveRelease{}, persistenceError(CodeTrustDBPersistFailed, "store active release for "+sourceID, err)
	}

	promoteTotal.Inc()
	r.appendAudit(ctx, namespace, activatedBy, "promote_active", "source:"+sourceID, map[string]any{
		"snapshot_id":       snapshotID,
		"confirm_high_diff": confirm,
		"note":              note,
	})
	return activeReleaseToAPI(rec), nil
}

// GetActiveRelease returns the source's active-release pointer.
func (r *Repository) GetActiveRelease(ctx context.Context, namespace, sourceID string) (ActiveRelease, error) {
	rec, err := r.meta.GetActiveRelease(ctx, namespace, sourceID)
	if err != nil {
		return ActiveRelease{}, fmt.Errorf("load active release %s: %w", sourceID, err)
	}
	if rec == nil {
		return ActiveRelease{}, notFoundError(CodeSourceNotFound, "no active release for source: "+sourceID)
	}
	return activeReleaseToAPI(rec), nil
}

// QueryAdminDivision queries active admin-division rows in the namespace.
func (r *Repository) QueryAdminDivision(ctx context.Context, namespace, name, parentHint string) ([]Candidate, error) {
	return r.index.QueryAdminDivision(ctx, namespace, name, parentHint)
}

// QueryRoad queries active road rows in the namespace.
func (r *Repository) QueryRoad(ctx context.Context, namespace, name, adcodeHint string) ([]Candidate, error) {
	return r.index.QueryRoad(ctx, namespace, name, adcodeHint)
}

// QueryPOI queries active POI rows in the namespace.
func (r *Repository) QueryPOI(ctx context.Context, namespace, name, adcodeHint string, topK int) ([]Candidate, error) {
	if topK <= 0 {
		topK = defaultPOITopK
	}
	return r.index.QueryPOI(ctx, namespace, name, adcodeHint, topK)
}

// ListAuditEvents returns the namespace's audit trail, newest first.
func (r *Repository) ListAuditEvents(ctx context.Context, namespace string, limit int) ([]AuditEvent, error) {
	recs, err := r.meta.ListAuditEvents(ctx, namespace, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	out := make([]AuditEvent, 0, len(recs))
	for i := range recs {
		out = append(out, auditEventToAPI(&recs[i]))
	}
	return out, nil
}

// ListReplayRuns returns persisted replay runs, newest first, optionally
// filtered by snapshot id.
func (r *Repository) ListReplayRuns(ctx context.Context, namespace, snapshotID string, limit int) ([]ReplayRun, error) {
	recs, err := r.meta.ListReplayRuns(ctx, namespace, snapshotID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list replay runs: %w", err)
	}
	out := make([]ReplayRun, 0, len(recs))
	for i := range recs {
		out = append(out, replayRunToAPI(&recs[i]))
	}
	return out, nil
}

// PruneAuditEvents removes audit events older than the cutoff.
func (r *Repository) PruneAuditEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.meta.PruneAuditEvents(ctx, cutoff)
}

// BootstrapSampleSources registers the built-in fixture-backed sample sources
// in the namespace. Useful for demos and smoke tests against an empty hub.
func (r *Repository) BootstrapSampleSources(ctx context.Context, namespace string) ([]Source, error) {
	samples := []struct {
		sourceID string
		spec     SourceSpec
	}{
		{
			sourceID: "gov_admin_division",
			spec: SourceSpec{
				Name:            "Civil affairs administrative divisions",
				Category:        "admin_division",
				TrustLevel:      TrustAuthoritative,
				License:         "government-open",
				Entrypoint:      "fixture://admin_v1",
				UpdateFrequency: "yearly",
				FetchMethod:     "fixture",
			},
		},
		{
			sourceID: "osm_china_extract",
			spec: SourceSpec{
				Name:            "OpenStreetMap China extract",
				Category:        "poi_road",
				TrustLevel:      TrustCommunityDerived,
				License:         "ODbL-1.0",
				Entrypoint:      "fixture://osm_china_v1",
				UpdateFrequency: "monthly",
				FetchMethod:     "fixture",
				ParserProfile:   map[string]any{"dataset_variant": "osm_china_v1"},
			},
		},
	}

	out := make([]Source, 0, len(samples))
	for _, sample := range samples {
		src, err := r.UpsertSource(ctx, namespace, sample.sourceID, sample.spec)
		if err != nil {
			return nil, fmt.Errorf("bootstrap source %s: %w", sample.sourceID, err)
		}
		out = append(out, src)
	}

	r.appendAudit(ctx, namespace, "", "bootstrap_samples", "namespace:"+namespace, map[string]any{
		"count": len(out),
	})
	return out, nil
}
