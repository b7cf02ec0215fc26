package hub

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// MemoryStore is the in-memory implementation of both MetaStore and
// IndexStore. It backs tests and the degraded no-durable-store mode; external
// behavior matches the GORM stores except for durability.
type MemoryStore struct {
	mu sync.RWMutex

	sources        map[string]*SourceRecord   // key: ns::sourceID
	schedules      map[string]*ScheduleRecord // key: ns::sourceID
	snapshots      map[string]*SnapshotRecord // key: snapshotID
	qualityReports map[string]*QualityReportRecord // key: ns::snapshotID
	diffReports    map[string]*DiffReportRecord    // key: ns::newSnapshotID
	publishJobs    []PublishJobRecord
	published      mapset.Set[string] // ns::snapshotID
	activeReleases map[string]*ActiveReleaseRecord // key: ns::sourceID
	auditEvents    []AuditEventRecord
	replayRuns     []ReplayRunRecord

	adminRows []AdminDivisionRow
	roadRows  []RoadRow
	poiRows   []POIRow
	placeRows []PlaceNameRow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:        make(map[string]*SourceRecord),
		schedules:      make(map[string]*ScheduleRecord),
		snapshots:      make(map[string]*SnapshotRecord),
		qualityReports: make(map[string]*QualityReportRecord),
		diffReports:    make(map[string]*DiffReportRecord),
		published:      mapset.NewSet[string](),
		activeReleases: make(map[string]*ActiveReleaseRecord),
	}
}

func sourceKey(namespace, id string) string { return namespace + "::" + id }

// UpsertSource stores the record, keyed by (namespace, source_id). Creation
// and update timestamps are filled in like the GORM store's auto columns.
func (s *MemoryStore) UpsertSource(_ context.Context, rec *SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.sources[sourceKey(rec.Namespace, rec.SourceID)] = &cp
	return nil
}

// GetSource returns the source or (nil, nil).
func (s *MemoryStore) GetSource(_ context.Context, namespace, sourceID string) (*SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sources[sourceKey(namespace, sourceID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// UpsertSchedule stores the schedule, keyed by (namespace, source_id).
func (s *MemoryStore) UpsertSchedule(_ context.Context, rec *ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.schedules[sourceKey(rec.Namespace, rec.SourceID)] = &cp
	return nil
}

// GetSchedule returns the schedule or (nil, nil).
func (s *MemoryStore) GetSchedule(_ context.Context, namespace, sourceID string) (*ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.schedules[sourceKey(namespace, sourceID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// InsertSnapshot appends an immutable snapshot row.
func (s *MemoryStore) InsertSnapshot(_ context.Context, rec *SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.snapshots[rec.SnapshotID] = &cp
	return nil
}

// GetSnapshot returns the snapshot if it belongs to the namespace.
func (s *MemoryStore) GetSnapshot(_ context.Context, namespace, snapshotID string) (*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.snapshots[snapshotID]
	if !ok || rec.Namespace != namespace {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// LatestSnapshot returns the newest snapshot for the source by fetched_at.
func (s *MemoryStore) LatestSnapshot(_ context.Context, namespace, sourceID, excludeSnapshotID string) (*SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *SnapshotRecord
	for _, rec := range s.snapshots {
		if rec.Namespace != namespace || rec.SourceID != sourceID || rec.SnapshotID == excludeSnapshotID {
			continue
		}
		if latest == nil || rec.FetchedAt.After(latest.FetchedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// UpsertQualityReport stores the report, keyed by (namespace, snapshot_id).
func (s *MemoryStore) UpsertQualityReport(_ context.Context, rec *QualityReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.qualityReports[sourceKey(rec.Namespace, rec.SnapshotID)] = &cp
	return nil
}

// GetQualityReport returns the report or (nil, nil).
func (s *MemoryStore) GetQualityReport(_ context.Context, namespace, snapshotID string) (*QualityReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.qualityReports[sourceKey(namespace, snapshotID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// UpsertDiffReport stores the diff, keyed by (namespace, new_snapshot_id).
func (s *MemoryStore) UpsertDiffReport(_ context.Context, rec *DiffReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.diffReports[sourceKey(rec.Namespace, rec.NewSnapshotID)] = &cp
	return nil
}

// GetDiffReport returns the diff or (nil, nil).
func (s *MemoryStore) GetDiffReport(_ context.Context, namespace, newSnapshotID string) (*DiffReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.diffReports[sourceKey(namespace, newSnapshotID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// InsertPublishJob records a publish and marks the snapshot as published.
func (s *MemoryStore) InsertPublishJob(_ context.Context, rec *PublishJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.publishJobs = append(s.publishJobs, cp)
	s.published.Add(sourceKey(rec.Namespace, rec.SnapshotID))
	return nil
}

// IsPublished reports whether the snapshot has ever been published.
func (s *MemoryStore) IsPublished(_ context.Context, namespace, snapshotID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published.Contains(sourceKey(namespace, snapshotID)), nil
}

// UpsertActiveRelease replaces the single pointer for (namespace, source_id).
func (s *MemoryStore) UpsertActiveRelease(_ context.Context, rec *ActiveReleaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.activeReleases[sourceKey(rec.Namespace, rec.SourceID)] = &cp
	return nil
}

// GetActiveRelease returns the pointer or (nil, nil).
func (s *MemoryStore) GetActiveRelease(_ context.Context, namespace, sourceID string) (*ActiveReleaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.activeReleases[sourceKey(namespace, sourceID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// AppendAuditEvent appends to the namespace-scoped audit log.
func (s *MemoryStore) AppendAuditEvent(_ context.Context, rec *AuditEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.auditEvents = append(s.auditEvents, *rec)
	return nil
}

// ListAuditEvents returns the namespace's audit events, newest first.
func (s *MemoryStore) ListAuditEvents(_ context.Context, namespace string, limit int) ([]AuditEventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AuditEventRecord
	for _, ev := range s.auditEvents {
		if ev.Namespace == namespace {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneAuditEvents drops events older than cutoff.
func (s *MemoryStore) PruneAuditEvents(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.auditEvents[:0]
	var removed int64
	for _, ev := range s.auditEvents {
		if ev.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.auditEvents = kept
	return removed, nil
}

// InsertReplayRun appends a replay run.
func (s *MemoryStore) InsertReplayRun(_ context.Context, rec *ReplayRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.replayRuns = append(s.replayRuns, *rec)
	return nil
}

// ListReplayRuns returns replay runs for the namespace, newest first,
// optionally filtered by snapshot id.
func (s *MemoryStore) ListReplayRuns(_ context.Context, namespace, snapshotID string, limit int) ([]ReplayRunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReplayRunRecord
	for _, run := range s.replayRuns {
		if run.Namespace != namespace {
			continue
		}
		if snapshotID != "" && run.SnapshotID != snapshotID {
			continue
		}
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReplaceSnapshot swaps all four index collections for (namespace, sourceID).
func (s *MemoryStore) ReplaceSnapshot(_ context.Context, namespace, sourceID, snapshotID string, fetchedAt time.Time, payload ingest.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := func(ns, sid string) bool { return ns != namespace || sid != sourceID }

	adminRows := s.adminRows[:0]
	for _, row := range s.adminRows {
		if keep(row.Namespace, row.SourceID) {
			adminRows = append(adminRows, row)
		}
	}
	for _, row := range payload.AdminDivisions {
		adminRows = append(adminRows, AdminDivisionRow{
			Namespace:    namespace,
			SourceID:     sourceID,
			SnapshotID:   snapshotID,
			Adcode:       row.Adcode,
			Name:         row.Name,
			Level:        row.Level,
			ParentAdcode: row.ParentAdcode,
			NameAliases:  JSONStringSlice(row.NameAliases),
			ValidFrom:    fetchedAt,
		})
	}
	s.adminRows = adminRows

	roadRows := s.roadRows[:0]
	for _, row := range s.roadRows {
		if keep(row.Namespace, row.SourceID) {
			roadRows = append(roadRows, row)
		}
	}
	for _, row := range payload.Roads {
		roadRows = append(roadRows, RoadRow{
			Namespace:      namespace,
			SourceID:       sourceID,
			SnapshotID:     snapshotID,
			RoadID:         row.RoadID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			AdminAdcode:    row.AdminAdcode,
			GeometryRef:    row.GeometryRef,
		})
	}
	s.roadRows = roadRows

	poiRows := s.poiRows[:0]
	for _, row := range s.poiRows {
		if keep(row.Namespace, row.SourceID) {
			poiRows = append(poiRows, row)
		}
	}
	for _, row := range payload.POIs {
		poiRows = append(poiRows, POIRow{
			Namespace:      namespace,
			SourceID:       sourceID,
			SnapshotID:     snapshotID,
			POIID:          row.POIID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			Category:       row.Category,
			AdminAdcode:    row.AdminAdcode,
			Centroid:       row.Centroid,
		})
	}
	s.poiRows = poiRows

	placeRows := s.placeRows[:0]
	for _, row := range s.placeRows {
		if keep(row.Namespace, row.SourceID) {
			placeRows = append(placeRows, row)
		}
	}
	for _, row := range payload.Places {
		placeRows = append(placeRows, PlaceNameRow{
			Namespace:      namespace,
			SourceID:       sourceID,
			SnapshotID:     snapshotID,
			PlaceID:        row.PlaceID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			Type:           row.Type,
			AdminAdcode:    row.AdminAdcode,
			Centroid:       row.Centroid,
			ConfidenceHint: row.ConfidenceHint,
		})
	}
	s.placeRows = placeRows

	return nil
}

// activeSnapshotIDs returns the set of snapshot ids currently active in the
// namespace. Queries filter on it so published-but-unpromoted rows stay
// invisible.
func (s *MemoryStore) activeSnapshotIDs(namespace string) mapset.Set[string] {
	ids := mapset.NewSet[string]()
	for _, rel := range s.activeReleases {
		if rel.Namespace == namespace {
			ids.Add(rel.ActiveSnapshotID)
		}
	}
	return ids
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// QueryAdminDivision scans active admin-division rows for a case-insensitive
// substring match on name or aliases, optionally filtered by parent adcode.
func (s *MemoryStore) QueryAdminDivision(_ context.Context, namespace, name, parentHint string) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.activeSnapshotIDs(namespace)
	var out []Candidate
	for _, row := range s.adminRows {
		if row.Namespace != namespace || !active.Contains(row.SnapshotID) {
			continue
		}
		if !containsFold(row.Name, name) && !containsFold(strings.Join(row.NameAliases, ""), name) {
			continue
		}
		if parentHint != "" && parentHint != row.ParentAdcode {
			continue
		}
		out = append(out, Candidate{
			Namespace:    namespace,
			SourceID:     row.SourceID,
			SnapshotID:   row.SnapshotID,
			RecordID:     row.Adcode,
			Name:         row.Name,
			Level:        row.Level,
			ParentAdcode: row.ParentAdcode,
			NameAliases:  row.NameAliases,
		})
		if len(out) >= queryRowLimit {
			break
		}
	}
	return out, nil
}

// QueryRoad scans active road rows for a case-insensitive substring match on
// name or normalized name, optionally filtered by admin adcode.
func (s *MemoryStore) QueryRoad(_ context.Context, namespace, name, adcodeHint string) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.activeSnapshotIDs(namespace)
	var out []Candidate
	for _, row := range s.roadRows {
		if row.Namespace != namespace || !active.Contains(row.SnapshotID) {
			continue
		}
		if !containsFold(row.Name, name) && !containsFold(row.NormalizedName, name) {
			continue
		}
		if adcodeHint != "" && adcodeHint != row.AdminAdcode {
			continue
		}
		out = append(out, Candidate{
			Namespace:      namespace,
			SourceID:       row.SourceID,
			SnapshotID:     row.SnapshotID,
			RecordID:       row.RoadID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			AdminAdcode:    row.AdminAdcode,
		})
		if len(out) >= queryRowLimit {
			break
		}
	}
	return out, nil
}

// QueryPOI scans active POI rows, capped at topK results.
func (s *MemoryStore) QueryPOI(_ context.Context, namespace, name, adcodeHint string, topK int) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK < 1 {
		topK = 1
	}
	active := s.activeSnapshotIDs(namespace)
	var out []Candidate
	for _, row := range s.poiRows {
		if row.Namespace != namespace || !active.Contains(row.SnapshotID) {
			continue
		}
		if !containsFold(row.Name, name) && !containsFold(row.NormalizedName, name) {
			continue
		}
		if adcodeHint != "" && adcodeHint != row.AdminAdcode {
			continue
		}
		out = append(out, Candidate{
			Namespace:      namespace,
			SourceID:       row.SourceID,
			SnapshotID:     row.SnapshotID,
			RecordID:       row.POIID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			Category:       row.Category,
			AdminAdcode:    row.AdminAdcode,
			Centroid:       row.Centroid,
		})
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}
