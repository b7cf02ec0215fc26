package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMetaStore is the durable MetaStore backed by a relational database
// through GORM. The same *gorm.DB is shared with GormIndexStore so publish and
// promote run inside one transactional boundary.
type GormMetaStore struct {
	db *gorm.DB
}

// NewGormMetaStore migrates the meta tables and returns the store.
func NewGormMetaStore(db *gorm.DB) (*GormMetaStore, error) {
	if err := db.AutoMigrate(
		&SourceRecord{},
		&ScheduleRecord{},
		&SnapshotRecord{},
		&QualityReportRecord{},
		&DiffReportRecord{},
		&PublishJobRecord{},
		&ActiveReleaseRecord{},
		&AuditEventRecord{},
		&ReplayRunRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrate meta tables: %w", err)
	}
	return &GormMetaStore{db: db}, nil
}

func getRecord[T any](ctx context.Context, db *gorm.DB, conds ...any) (*T, error) {
	var rec T
	if err := db.WithContext(ctx).First(&rec, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertSource inserts or updates the source keyed by (namespace, source_id),
// preserving id and created_at on conflict.
func (s *GormMetaStore) UpsertSource(ctx context.Context, rec *SourceRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "trust_level", "license", "entrypoint",
			"update_frequency", "fetch_method", "parser_profile",
			"validator_profile", "enabled", "allowed_use_notes",
			"access_mode", "robots_tos_flags", "updated_at",
		}),
	}).Create(rec).Error
}

// GetSource returns the source or (nil, nil).
func (s *GormMetaStore) GetSource(ctx context.Context, namespace, sourceID string) (*SourceRecord, error) {
	return getRecord[SourceRecord](ctx, s.db, "namespace = ? AND source_id = ?", namespace, sourceID)
}

// UpsertSchedule inserts or updates the schedule keyed by
// (namespace, source_id).
func (s *GormMetaStore) UpsertSchedule(ctx context.Context, rec *ScheduleRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"schedule_type", "schedule_spec", "window_policy", "enabled", "updated_at",
		}),
	}).Create(rec).Error
}

// GetSchedule returns the schedule or (nil, nil).
func (s *GormMetaStore) GetSchedule(ctx context.Context, namespace, sourceID string) (*ScheduleRecord, error) {
	return getRecord[ScheduleRecord](ctx, s.db, "namespace = ? AND source_id = ?", namespace, sourceID)
}

// InsertSnapshot appends an immutable snapshot row.
func (s *GormMetaStore) InsertSnapshot(ctx context.Context, rec *SnapshotRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// GetSnapshot returns the snapshot or (nil, nil).
func (s *GormMetaStore) GetSnapshot(ctx context.Context, namespace, snapshotID string) (*SnapshotRecord, error) {
	return getRecord[SnapshotRecord](ctx, s.db, "namespace = ? AND snapshot_id = ?", namespace, snapshotID)
}

// LatestSnapshot returns the newest snapshot for a source by fetched_at.
func (s *GormMetaStore) LatestSnapshot(ctx context.Context, namespace, sourceID, excludeSnapshotID string) (*SnapshotRecord, error) {
	q := s.db.WithContext(ctx).
		Where("namespace = ? AND source_id = ?", namespace, sourceID)
	if excludeSnapshotID != "" {
		q = q.Where("snapshot_id <> ?", excludeSnapshotID)
	}
	var rec SnapshotRecord
	if err := q.Order("fetched_at DESC").First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertQualityReport inserts or replaces the report keyed by
// (namespace, snapshot_id).
func (s *GormMetaStore) UpsertQualityReport(ctx context.Context, rec *QualityReportRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}, {Name: "snapshot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"row_count", "null_ratio", "primary_key_conflicts",
			"quality_score", "validator_version", "updated_at",
		}),
	}).Create(rec).Error
}

// GetQualityReport returns the report or (nil, nil).
func (s *GormMetaStore) GetQualityReport(ctx context.Context, namespace, snapshotID string) (*QualityReportRecord, error) {
	return getRecord[QualityReportRecord](ctx, s.db, "namespace = ? AND snapshot_id = ?", namespace, snapshotID)
}

// UpsertDiffReport inserts or replaces the diff keyed by
// (namespace, new_snapshot_id).
func (s *GormMetaStore) UpsertDiffReport(ctx context.Context, rec *DiffReportRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}, {Name: "new_snapshot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_snapshot_id", "base_row_count", "new_row_count", "delta",
			"change_ratio", "severity", "risk_hint", "updated_at",
		}),
	}).Create(rec).Error
}

// GetDiffReport returns the diff or (nil, nil).
func (s *GormMetaStore) GetDiffReport(ctx context.Context, namespace, newSnapshotID string) (*DiffReportRecord, error) {
	return getRecord[DiffReportRecord](ctx, s.db, "namespace = ? AND new_snapshot_id = ?", namespace, newSnapshotID)
}

// InsertPublishJob appends a publish job row.
func (s *GormMetaStore) InsertPublishJob(ctx context.Context, rec *PublishJobRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// IsPublished reports whether any publish job exists for the snapshot.
func (s *GormMetaStore) IsPublished(ctx context.Context, namespace, snapshotID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&PublishJobRecord{}).
		Where("namespace = ? AND snapshot_id = ?", namespace, snapshotID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertActiveRelease replaces the single pointer for (namespace, source_id).
func (s *GormMetaStore) UpsertActiveRelease(ctx context.Context, rec *ActiveReleaseRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "namespace"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_snapshot_id", "activated_by", "activated_at", "activation_note",
		}),
	}).Create(rec).Error
}

// GetActiveRelease returns the pointer or (nil, nil).
func (s *GormMetaStore) GetActiveRelease(ctx context.Context, namespace, sourceID string) (*ActiveReleaseRecord, error) {
	return getRecord[ActiveReleaseRecord](ctx, s.db, "namespace = ? AND source_id = ?", namespace, sourceID)
}

// AppendAuditEvent appends to the namespace-scoped audit log.
func (s *GormMetaStore) AppendAuditEvent(ctx context.Context, rec *AuditEventRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListAuditEvents returns the namespace's audit events, newest first.
func (s *GormMetaStore) ListAuditEvents(ctx context.Context, namespace string, limit int) ([]AuditEventRecord, error) {
	q := s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []AuditEventRecord
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// PruneAuditEvents deletes events created before cutoff, returning the count.
func (s *GormMetaStore) PruneAuditEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&AuditEventRecord{})
	return res.RowsAffected, res.Error
}

// InsertReplayRun appends a replay run.
func (s *GormMetaStore) InsertReplayRun(ctx context.Context, rec *ReplayRunRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListReplayRuns returns replay runs for the namespace, newest first,
// optionally filtered by snapshot id.
func (s *GormMetaStore) ListReplayRuns(ctx context.Context, namespace, snapshotID string, limit int) ([]ReplayRunRecord, error) {
	q := s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Order("created_at DESC")
	if snapshotID != "" {
		q = q.Where("snapshot_id = ?", snapshotID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []ReplayRunRecord
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
