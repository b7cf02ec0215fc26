package hub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// GormIndexStore is the durable IndexStore. It shares its *gorm.DB with
// GormMetaStore and resolves the freshness invariant with a join against
// trust_active_releases, so a promote is visible to queries the moment its
// pointer row commits.
type GormIndexStore struct {
	db *gorm.DB
}

// NewGormIndexStore migrates the index tables and returns the store.
func NewGormIndexStore(db *gorm.DB) (*GormIndexStore, error) {
	if err := db.AutoMigrate(
		&AdminDivisionRow{},
		&RoadRow{},
		&POIRow{},
		&PlaceNameRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate index tables: %w", err)
	}
	return &GormIndexStore{db: db}, nil
}

// ReplaceSnapshot swaps all four index collections for (namespace, sourceID)
// in one transaction. Latest wins; nothing is additive.
func (s *GormIndexStore) ReplaceSnapshot(ctx context.Context, namespace, sourceID, snapshotID string, fetchedAt time.Time, payload ingest.Payload) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&AdminDivisionRow{}, &RoadRow{}, &POIRow{}, &PlaceNameRow{}} {
			if err := tx.Where("namespace = ? AND source_id = ?", namespace, sourceID).Delete(model).Error; err != nil {
				return err
			}
		}

		if len(payload.AdminDivisions) > 0 {
			rows := make([]AdminDivisionRow, 0, len(payload.AdminDivisions))
			for _, row := range payload.AdminDivisions {
				rows = append(rows, AdminDivisionRow{
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
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if len(payload.Roads) > 0 {
			rows := make([]RoadRow, 0, len(payload.Roads))
			for _, row := range payload.Roads {
				rows = append(rows, RoadRow{
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
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if len(payload.POIs) > 0 {
			rows := make([]POIRow, 0, len(payload.POIs))
			for _, row := range payload.POIs {
				rows = append(rows, POIRow{
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
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if len(payload.Places) > 0 {
			rows := make([]PlaceNameRow, 0, len(payload.Places))
			for _, row := range payload.Places {
				rows = append(rows, PlaceNameRow{
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
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func likePattern(name string) string {
	return "%" + strings.ToLower(name) + "%"
}

// activeScope restricts table t to rows whose snapshot is the active release
// of its source within the namespace.
func activeScope(db *gorm.DB, table, namespace string) *gorm.DB {
	return db.Table(table).
		Joins(fmt.Sprintf(
			"JOIN trust_active_releases ar ON ar.namespace = %s.namespace AND ar.source_id = %s.source_id AND ar.active_snapshot_id = %s.snapshot_id",
			table, table, table)).
		Where(table+".namespace = ?", namespace)
}

// QueryAdminDivision matches active admin-division rows case-insensitively on
// name or aliases, optionally filtered by parent adcode.
func (s *GormIndexStore) QueryAdminDivision(ctx context.Context, namespace, name, parentHint string) ([]Candidate, error) {
	pattern := likePattern(name)
	q := activeScope(s.db.WithContext(ctx), "admin_division", namespace).
		Where("LOWER(admin_division.name) LIKE ? OR LOWER(admin_division.name_aliases) LIKE ?", pattern, pattern)
	if parentHint != "" {
		q = q.Where("admin_division.parent_adcode = ?", parentHint)
	}
	var rows []AdminDivisionRow
	if err := q.Select("admin_division.*").Limit(queryRowLimit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
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
	}
	return out, nil
}

// QueryRoad matches active road rows case-insensitively on name or normalized
// name, optionally filtered by admin adcode.
func (s *GormIndexStore) QueryRoad(ctx context.Context, namespace, name, adcodeHint string) ([]Candidate, error) {
	pattern := likePattern(name)
	q := activeScope(s.db.WithContext(ctx), "road_index", namespace).
		Where("LOWER(road_index.name) LIKE ? OR LOWER(road_index.normalized_name) LIKE ?", pattern, pattern)
	if adcodeHint != "" {
		q = q.Where("road_index.admin_adcode = ?", adcodeHint)
	}
	var rows []RoadRow
	if err := q.Select("road_index.*").Limit(queryRowLimit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, Candidate{
			Namespace:      namespace,
			SourceID:       row.SourceID,
			SnapshotID:     row.SnapshotID,
			RecordID:       row.RoadID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			AdminAdcode:    row.AdminAdcode,
		})
	}
	return out, nil
}

// QueryPOI matches active POI rows, capped at topK results.
func (s *GormIndexStore) QueryPOI(ctx context.Context, namespace, name, adcodeHint string, topK int) ([]Candidate, error) {
	if topK < 1 {
		topK = 1
	}
	pattern := likePattern(name)
	q := activeScope(s.db.WithContext(ctx), "poi_index", namespace).
		Where("LOWER(poi_index.name) LIKE ? OR LOWER(poi_index.normalized_name) LIKE ?", pattern, pattern)
	if adcodeHint != "" {
		q = q.Where("poi_index.admin_adcode = ?", adcodeHint)
	}
	var rows []POIRow
	if err := q.Select("poi_index.*").Limit(topK).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
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
	}
	return out, nil
}
