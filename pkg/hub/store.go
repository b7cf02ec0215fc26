package hub

import (
	"context"
	"time"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// MetaStore persists the hub's registry and lifecycle state: sources,
// schedules, snapshots, reports, releases, audit events and replay runs.
// Two implementations exist — in-memory and GORM-backed — selected at
// construction; the repository never mirrors writes across both.
//
// Lookup methods return (nil, nil) when no row exists.
type MetaStore interface {
	UpsertSource(ctx context.Context, rec *SourceRecord) error
	GetSource(ctx context.Context, namespace, sourceID string) (*SourceRecord, error)

	UpsertSchedule(ctx context.Context, rec *ScheduleRecord) error
	GetSchedule(ctx context.Context, namespace, sourceID string) (*ScheduleRecord, error)

	InsertSnapshot(ctx context.Context, rec *SnapshotRecord) error
	GetSnapshot(ctx context.Context, namespace, snapshotID string) (*SnapshotRecord, error)
	// LatestSnapshot returns the newest snapshot for a source by fetched_at,
	// skipping excludeSnapshotID when non-empty.
	LatestSnapshot(ctx context.Context, namespace, sourceID, excludeSnapshotID string) (*SnapshotRecord, error)

	UpsertQualityReport(ctx context.Context, rec *QualityReportRecord) error
	GetQualityReport(ctx context.Context, namespace, snapshotID string) (*QualityReportRecord, error)

	UpsertDiffReport(ctx context.Context, rec *DiffReportRecord) error
	// GetDiffReport looks up the diff keyed by its new-snapshot id.
	GetDiffReport(ctx context.Context, namespace, newSnapshotID string) (*DiffReportRecord, error)

	InsertPublishJob(ctx context.Context, rec *PublishJobRecord) error
	IsPublished(ctx context.Context, namespace, snapshotID string) (bool, error)

	UpsertActiveRelease(ctx context.Context, rec *ActiveReleaseRecord) error
	GetActiveRelease(ctx context.Context, namespace, sourceID string) (*ActiveReleaseRecord, error)

	AppendAuditEvent(ctx context.Context, rec *AuditEventRecord) error
	ListAuditEvents(ctx context.Context, namespace string, limit int) ([]AuditEventRecord, error)
	// PruneAuditEvents deletes audit events created before cutoff and returns
	// how many were removed.
	PruneAuditEvents(ctx context.Context, cutoff time.Time) (int64, error)

	InsertReplayRun(ctx context.Context, rec *ReplayRunRecord) error
	ListReplayRuns(ctx context.Context, namespace, snapshotID string, limit int) ([]ReplayRunRecord, error)
}

// IndexStore holds the published, query-optimized index rows. Queries only
// ever see rows belonging to the active release of their source; both
// implementations enforce that join internally so the freshness invariant
// cannot be bypassed.
type IndexStore interface {
	// ReplaceSnapshot atomically replaces all four index collections for
	// (namespace, sourceID) with rows derived from the payload. Latest wins;
	// nothing is additive.
	ReplaceSnapshot(ctx context.Context, namespace, sourceID, snapshotID string, fetchedAt time.Time, payload ingest.Payload) error

	QueryAdminDivision(ctx context.Context, namespace, name, parentHint string) ([]Candidate, error)
	QueryRoad(ctx context.Context, namespace, name, adcodeHint string) ([]Candidate, error)
	QueryPOI(ctx context.Context, namespace, name, adcodeHint string, topK int) ([]Candidate, error)
}

// queryRowLimit caps admin-division and road query results.
const queryRowLimit = 50
