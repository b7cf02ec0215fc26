package hub

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// newTestStores creates in-memory SQLite backed meta and index stores sharing
// one database.
func newTestStores(t *testing.T) (*GormMetaStore, *GormIndexStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	meta, err := NewGormMetaStore(db)
	require.NoError(t, err)
	index, err := NewGormIndexStore(db)
	require.NoError(t, err)
	return meta, index
}

func TestGormMetaStore_SourceUpsert(t *testing.T) {
	meta, _ := newTestStores(t)
	ctx := context.Background()

	rec := &SourceRecord{
		ID:         "id-1",
		Namespace:  "default",
		SourceID:   "gov-admin",
		Name:       "gov admin divisions",
		TrustLevel: "authoritative",
		Entrypoint: "fixture://admin_v1",
		Enabled:    true,
	}
	require.NoError(t, meta.UpsertSource(ctx, rec))

	got, err := meta.GetSource(ctx, "default", "gov-admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
	createdAt := got.CreatedAt

	// Conflict on (namespace, source_id) updates in place, preserving id and
	// created_at.
	update := &SourceRecord{
		ID:         "id-2",
		Namespace:  "default",
		SourceID:   "gov-admin",
		Name:       "renamed",
		TrustLevel: "authoritative",
		Entrypoint: "fixture://admin_v2",
		Enabled:    false,
	}
	require.NoError(t, meta.UpsertSource(ctx, update))

	got, err = meta.GetSource(ctx, "default", "gov-admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.Enabled)
	assert.Equal(t, createdAt.Unix(), got.CreatedAt.Unix())

	// Missing lookups return nil, nil.
	got, err = meta.GetSource(ctx, "default", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGormMetaStore_InsertDisabledSource(t *testing.T) {
	meta, _ := newTestStores(t)
	ctx := context.Background()

	// A source registered disabled must come back disabled.
	require.NoError(t, meta.UpsertSource(ctx, &SourceRecord{
		ID:         "id-1",
		Namespace:  "default",
		SourceID:   "paused",
		Entrypoint: "fixture://admin_v1",
		Enabled:    false,
	}))

	got, err := meta.GetSource(ctx, "default", "paused")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Enabled)

	require.NoError(t, meta.UpsertSchedule(ctx, &ScheduleRecord{
		ID:           "sched-1",
		Namespace:    "default",
		SourceID:     "paused",
		ScheduleType: "cron",
		ScheduleSpec: "0 3 * * *",
		Enabled:      false,
	}))

	sched, err := meta.GetSchedule(ctx, "default", "paused")
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.False(t, sched.Enabled)
}

func TestGormMetaStore_SnapshotsAndLatest(t *testing.T) {
	meta, _ := newTestStores(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"snap-1", "snap-2", "snap-3"} {
		require.NoError(t, meta.InsertSnapshot(ctx, &SnapshotRecord{
			SnapshotID:  id,
			Namespace:   "default",
			SourceID:    "gov-admin",
			FetchedAt:   base.Add(time.Duration(i) * time.Minute),
			ContentHash: "hash-" + id,
			Status:      SnapshotStatusSuccess,
			Payload:     PayloadColumn{Payload: ingest.Payload{}},
		}))
	}

	latest, err := meta.LatestSnapshot(ctx, "default", "gov-admin", "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "snap-3", latest.SnapshotID)

	latest, err = meta.LatestSnapshot(ctx, "default", "gov-admin", "snap-3")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "snap-2", latest.SnapshotID)

	// Namespace isolation.
	latest, err = meta.LatestSnapshot(ctx, "other", "gov-admin", "")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestGormMetaStore_PublishAndActiveRelease(t *testing.T) {
	meta, _ := newTestStores(t)
	ctx := context.Background()

	published, err := meta.IsPublished(ctx, "default", "snap-1")
	require.NoError(t, err)
	assert.False(t, published)

	require.NoError(t, meta.InsertPublishJob(ctx, &PublishJobRecord{
		PublishJobID: "job-1",
		Namespace:    "default",
		SnapshotID:   "snap-1",
		SourceID:     "gov-admin",
		Status:       "success",
	}))

	published, err = meta.IsPublished(ctx, "default", "snap-1")
	require.NoError(t, err)
	assert.True(t, published)

	// The active pointer is unique per (namespace, source): upserting twice
	// leaves a single row pointing at the newer snapshot.
	require.NoError(t, meta.UpsertActiveRelease(ctx, &ActiveReleaseRecord{
		ID: "rel-1", Namespace: "default", SourceID: "gov-admin",
		ActiveSnapshotID: "snap-1", ActivatedBy: "alice", ActivatedAt: time.Now().UTC(),
	}))
	require.NoError(t, meta.UpsertActiveRelease(ctx, &ActiveReleaseRecord{
		ID: "rel-1", Namespace: "default", SourceID: "gov-admin",
		ActiveSnapshotID: "snap-2", ActivatedBy: "bob", ActivatedAt: time.Now().UTC(),
	}))

	rel, err := meta.GetActiveRelease(ctx, "default", "gov-admin")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "snap-2", rel.ActiveSnapshotID)
	assert.Equal(t, "bob", rel.ActivatedBy)
}

func TestGormMetaStore_AuditPrune(t *testing.T) {
	meta, _ := newTestStores(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	require.NoError(t, meta.AppendAuditEvent(ctx, &AuditEventRecord{
		EventID: "ev-old", Namespace: "default", Actor: "a", Action: "fetch_snapshot", CreatedAt: old,
	}))
	require.NoError(t, meta.AppendAuditEvent(ctx, &AuditEventRecord{
		EventID: "ev-new", Namespace: "default", Actor: "a", Action: "fetch_snapshot", CreatedAt: recent,
	}))

	removed, err := meta.PruneAuditEvents(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	events, err := meta.ListAuditEvents(ctx, "default", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-new", events[0].EventID)
}

func TestGormIndexStore_ReplaceAndActiveJoin(t *testing.T) {
	meta, index := newTestStores(t)
	ctx := context.Background()
	now := time.Now().UTC()

	payload := ingest.FixturePayload("admin_v1")
	require.NoError(t, index.ReplaceSnapshot(ctx, "default", "gov-admin", "snap-1", now, payload))

	// No active release yet: the join hides everything.
	cands, err := index.QueryRoad(ctx, "default", "文三路", "")
	require.NoError(t, err)
	assert.Empty(t, cands)

	require.NoError(t, meta.UpsertActiveRelease(ctx, &ActiveReleaseRecord{
		ID: "rel-1", Namespace: "default", SourceID: "gov-admin",
		ActiveSnapshotID: "snap-1", ActivatedBy: "alice", ActivatedAt: now,
	}))

	cands, err = index.QueryRoad(ctx, "default", "文三路", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "snap-1", cands[0].SnapshotID)

	admins, err := index.QueryAdminDivision(ctx, "default", "西湖", "")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "西湖区", admins[0].Name)

	// Parent hint filters.
	admins, err = index.QueryAdminDivision(ctx, "default", "西湖", "999999")
	require.NoError(t, err)
	assert.Empty(t, admins)

	pois, err := index.QueryPOI(ctx, "default", "银泰", "", 5)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "西溪银泰城", pois[0].Name)

	// Replacing with a new snapshot removes the old rows; queries follow the
	// pointer once it moves.
	v2 := ingest.FixturePayload("admin_v2")
	require.NoError(t, index.ReplaceSnapshot(ctx, "default", "gov-admin", "snap-2", now, v2))

	cands, err = index.QueryRoad(ctx, "default", "文三路", "")
	require.NoError(t, err)
	assert.Empty(t, cands, "old snapshot rows are gone and snap-2 is not active")

	require.NoError(t, meta.UpsertActiveRelease(ctx, &ActiveReleaseRecord{
		ID: "rel-1", Namespace: "default", SourceID: "gov-admin",
		ActiveSnapshotID: "snap-2", ActivatedBy: "alice", ActivatedAt: now,
	}))
	cands, err = index.QueryRoad(ctx, "default", "良睦路", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "snap-2", cands[0].SnapshotID)
}

func TestGormIndexStore_CaseInsensitiveMatch(t *testing.T) {
	meta, index := newTestStores(t)
	ctx := context.Background()
	now := time.Now().UTC()

	payload := ingest.Payload{
		Roads: []ingest.Road{{RoadID: "r1", Name: "Main Street", NormalizedName: "main street"}},
	}
	require.NoError(t, index.ReplaceSnapshot(ctx, "default", "osm", "snap-1", now, payload))
	require.NoError(t, meta.UpsertActiveRelease(ctx, &ActiveReleaseRecord{
		ID: "rel-1", Namespace: "default", SourceID: "osm",
		ActiveSnapshotID: "snap-1", ActivatedBy: "alice", ActivatedAt: now,
	}))

	cands, err := index.QueryRoad(ctx, "default", "MAIN", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Main Street", cands[0].Name)
}

func TestGormRepository_EndToEnd(t *testing.T) {
	meta, index := newTestStores(t)
	repo := NewRepository(meta, index, ingest.NewFetcher(time.Second), "sqlite", nil)
	ctx := context.Background()

	registerFixtureSource(t, repo, "default", "gov-admin", "admin_v1")
	snap, err := repo.FetchNow(ctx, "default", "gov-admin", "")
	require.NoError(t, err)
	_, _, err = repo.ValidateSnapshot(ctx, "default", snap.SnapshotID)
	require.NoError(t, err)
	job, err := repo.PublishSnapshot(ctx, "default", snap.SnapshotID, "")
	require.NoError(t, err)
	// The backend label names the configured engine, not a generic marker.
	assert.Equal(t, "sqlite", job.StorageBackend)
	_, err = repo.PromoteActive(ctx, "default", "gov-admin", snap.SnapshotID, "alice", "", false)
	require.NoError(t, err)

	cands, err := repo.QueryAdminDivision(ctx, "default", "杭州", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "杭州市", cands[0].Name)

	ev, err := repo.ReplayValidationEvidenceBySnapshot(ctx, "default", snap.SnapshotID, ValidationInput{City: "杭州"})
	require.NoError(t, err)
	assert.True(t, ev.Signals.AdminDivisionValid.Value)

	runs, err := repo.ListReplayRuns(ctx, "default", "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}
