package hub

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// JSONAny is a custom GORM type for map[string]any stored as JSON text.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONStringSlice is a custom GORM type for []string stored as JSON text.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// PayloadColumn stores an ingest.Payload as a JSON text column.
type PayloadColumn struct {
	ingest.Payload
}

// Scan implements the sql.Scanner interface for PayloadColumn.
func (p *PayloadColumn) Scan(value any) error {
	if value == nil {
		*p = PayloadColumn{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for PayloadColumn: %T", value)
	}
	return json.Unmarshal(bytes, &p.Payload)
}

// Value implements the driver.Valuer interface for PayloadColumn.
func (p PayloadColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// SourceRecord is a registered external dataset definition. One row per
// (namespace, source_id); never deleted.
type SourceRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Namespace        string    `gorm:"column:namespace;uniqueIndex:idx_source_ns_id,priority:1;not null"`
	SourceID         string    `gorm:"column:source_id;uniqueIndex:idx_source_ns_id,priority:2;not null"`
	Name             string    `gorm:"column:name"`
	Category         string    `gorm:"column:category"`
	TrustLevel       string    `gorm:"column:trust_level;default:unknown"`
	License          string    `gorm:"column:license"`
	Entrypoint       string    `gorm:"column:entrypoint"`
	UpdateFrequency  string    `gorm:"column:update_frequency"`
	FetchMethod      string    `gorm:"column:fetch_method"`
	ParserProfile    JSONAny   `gorm:"column:parser_profile;type:text"`
	ValidatorProfile JSONAny   `gorm:"column:validator_profile;type:text"`
	Enabled          bool      `gorm:"column:enabled;not null"`
	AllowedUseNotes  string    `gorm:"column:allowed_use_notes"`
	AccessMode       string    `gorm:"column:access_mode"`
	RobotsTosFlags   JSONAny   `gorm:"column:robots_tos_flags;type:text"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (SourceRecord) TableName() string { return "trust_sources" }

// DatasetVariant returns the parser profile's dataset_variant, or "".
func (s *SourceRecord) DatasetVariant() string {
	if s.ParserProfile == nil {
		return ""
	}
	v, _ := s.ParserProfile["dataset_variant"].(string)
	return v
}

// ScheduleRecord is the recurring-fetch policy for a source. Acting on it is
// the external scheduler's job; the hub only stores it.
type ScheduleRecord struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Namespace    string    `gorm:"column:namespace;uniqueIndex:idx_schedule_ns_id,priority:1;not null"`
	SourceID     string    `gorm:"column:source_id;uniqueIndex:idx_schedule_ns_id,priority:2;not null"`
	ScheduleType string    `gorm:"column:schedule_type"`
	ScheduleSpec string    `gorm:"column:schedule_spec"`
	WindowPolicy string    `gorm:"column:window_policy"`
	Enabled      bool      `gorm:"column:enabled;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (ScheduleRecord) TableName() string { return "trust_source_schedules" }

// SnapshotRecord is one immutable, content-addressed capture of a source.
// Append-only: re-fetching identical content inserts a new row marked skipped.
type SnapshotRecord struct {
	SnapshotID   string        `gorm:"primaryKey;column:snapshot_id;type:varchar(36)"`
	Namespace    string        `gorm:"column:namespace;index:idx_snapshot_ns_source,priority:1;not null"`
	SourceID     string        `gorm:"column:source_id;index:idx_snapshot_ns_source,priority:2;not null"`
	VersionTag   string        `gorm:"column:version_tag"`
	FetchedAt    time.Time     `gorm:"column:fetched_at;index"`
	Etag         string        `gorm:"column:etag"`
	LastModified time.Time     `gorm:"column:last_modified"`
	ContentHash  string        `gorm:"column:content_hash;index"`
	RawURI       string        `gorm:"column:raw_uri"`
	ParsedURI    string        `gorm:"column:parsed_uri"`
	Status       string        `gorm:"column:status;not null"` // success, skipped
	RowCount     int           `gorm:"column:row_count"`
	Payload      PayloadColumn `gorm:"column:payload;type:text"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (SnapshotRecord) TableName() string { return "trust_snapshots" }

// QualityReportRecord is the validation result for one snapshot. Overwritable:
// re-validating the same snapshot replaces the row.
type QualityReportRecord struct {
	ID                  string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Namespace           string    `gorm:"column:namespace;uniqueIndex:idx_quality_ns_snapshot,priority:1;not null"`
	SnapshotID          string    `gorm:"column:snapshot_id;uniqueIndex:idx_quality_ns_snapshot,priority:2;not null"`
	RowCount            int       `gorm:"column:row_count"`
	NullRatio           float64   `gorm:"column:null_ratio"`
	PrimaryKeyConflicts int       `gorm:"column:primary_key_conflicts"`
	QualityScore        int       `gorm:"column:quality_score;not null"`
	ValidatorVersion    string    `gorm:"column:validator_version"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (QualityReportRecord) TableName() string { return "trust_quality_reports" }

// DiffReportRecord compares two snapshots of the same source by row count.
// Keyed by the new snapshot so the promotion gate can look it up directly.
type DiffReportRecord struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Namespace      string    `gorm:"column:namespace;uniqueIndex:idx_diff_ns_new,priority:1;not null"`
	BaseSnapshotID string    `gorm:"column:base_snapshot_id;not null"`
	NewSnapshotID  string    `gorm:"column:new_snapshot_id;uniqueIndex:idx_diff_ns_new,priority:2;not null"`
	BaseRowCount   int       `gorm:"column:base_row_count"`
	NewRowCount    int       `gorm:"column:new_row_count"`
	Delta          int       `gorm:"column:delta"`
	ChangeRatio    float64   `gorm:"column:change_ratio"`
	Severity       string    `gorm:"column:severity;not null"` // low, medium, high
	RiskHint       string    `gorm:"column:risk_hint"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (DiffReportRecord) TableName() string { return "trust_diff_reports" }

// PublishJobRecord marks a snapshot as published into the query indices.
// "Snapshot is published" means at least one row exists here for it.
type PublishJobRecord struct {
	PublishJobID   string    `gorm:"primaryKey;column:publish_job_id;type:varchar(36)"`
	Namespace      string    `gorm:"column:namespace;index:idx_publish_ns_snapshot,priority:1;not null"`
	SnapshotID     string    `gorm:"column:snapshot_id;index:idx_publish_ns_snapshot,priority:2;not null"`
	SourceID       string    `gorm:"column:source_id"`
	Status         string    `gorm:"column:status;not null"`
	StorageBackend string    `gorm:"column:storage_backend"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (PublishJobRecord) TableName() string { return "trust_publish_jobs" }

// ActiveReleaseRecord is the single active-snapshot pointer per
// (namespace, source). Upserted by promote; never more than one row per key.
type ActiveReleaseRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Namespace        string    `gorm:"column:namespace;uniqueIndex:idx_active_ns_source,priority:1;not null"`
	SourceID         string    `gorm:"column:source_id;uniqueIndex:idx_active_ns_source,priority:2;not null"`
	ActiveSnapshotID string    `gorm:"column:active_snapshot_id;not null"`
	ActivatedBy      string    `gorm:"column:activated_by;not null"`
	ActivatedAt      time.Time `gorm:"column:activated_at"`
	ActivationNote   string    `gorm:"column:activation_note"`
}

// TableName returns the GORM table name.
func (ActiveReleaseRecord) TableName() string { return "trust_active_releases" }

// AuditEventRecord is an immutable, namespace-scoped audit log entry.
type AuditEventRecord struct {
	EventID   string    `gorm:"primaryKey;column:event_id;type:varchar(36)"`
	Namespace string    `gorm:"column:namespace;index:idx_audit_ns_time,priority:1;not null"`
	Actor     string    `gorm:"column:actor;not null"`
	Action    string    `gorm:"column:action;not null"`
	TargetRef string    `gorm:"column:target_ref"`
	EventJSON JSONAny   `gorm:"column:event_json;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;index:idx_audit_ns_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (AuditEventRecord) TableName() string { return "trust_audit_events" }

// ReplayRunRecord is a persisted evidence computation against a fixed
// snapshot. Append-only.
type ReplayRunRecord struct {
	ReplayID       string    `gorm:"primaryKey;column:replay_id;type:varchar(36)"`
	Namespace      string    `gorm:"column:namespace;index:idx_replay_ns_time,priority:1;not null"`
	SnapshotID     string    `gorm:"column:snapshot_id;index"`
	RequestPayload JSONAny   `gorm:"column:request_payload;type:text"`
	ReplayResult   JSONAny   `gorm:"column:replay_result;type:text"`
	SchemaVersion  string    `gorm:"column:schema_version"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_replay_ns_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ReplayRunRecord) TableName() string { return "trust_replay_runs" }

// AdminDivisionRow is a published admin-division index row.
type AdminDivisionRow struct {
	ID           uint            `gorm:"primaryKey;autoIncrement;column:id"`
	Namespace    string          `gorm:"column:namespace;index:idx_admin_ns_source,priority:1;not null"`
	SourceID     string          `gorm:"column:source_id;index:idx_admin_ns_source,priority:2;not null"`
	SnapshotID   string          `gorm:"column:snapshot_id;index;not null"`
	Adcode       string          `gorm:"column:adcode"`
	Name         string          `gorm:"column:name"`
	Level        string          `gorm:"column:level"`
	ParentAdcode string          `gorm:"column:parent_adcode"`
	NameAliases  JSONStringSlice `gorm:"column:name_aliases;type:text"`
	ValidFrom    time.Time       `gorm:"column:valid_from"`
	ValidTo      *time.Time      `gorm:"column:valid_to"`
}

// TableName returns the GORM table name.
func (AdminDivisionRow) TableName() string { return "admin_division" }

// RoadRow is a published road index row.
type RoadRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement;column:id"`
	Namespace      string `gorm:"column:namespace;index:idx_road_ns_source,priority:1;not null"`
	SourceID       string `gorm:"column:source_id;index:idx_road_ns_source,priority:2;not null"`
	SnapshotID     string `gorm:"column:snapshot_id;index;not null"`
	RoadID         string `gorm:"column:road_id"`
	Name           string `gorm:"column:name"`
	NormalizedName string `gorm:"column:normalized_name"`
	AdminAdcode    string `gorm:"column:admin_adcode"`
	GeometryRef    string `gorm:"column:geometry_ref"`
}

// TableName returns the GORM table name.
func (RoadRow) TableName() string { return "road_index" }

// POIRow is a published POI index row.
type POIRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement;column:id"`
	Namespace      string `gorm:"column:namespace;index:idx_poi_ns_source,priority:1;not null"`
	SourceID       string `gorm:"column:source_id;index:idx_poi_ns_source,priority:2;not null"`
	SnapshotID     string `gorm:"column:snapshot_id;index;not null"`
	POIID          string `gorm:"column:poi_id"`
	Name           string `gorm:"column:name"`
	NormalizedName string `gorm:"column:normalized_name"`
	Category       string `gorm:"column:category"`
	AdminAdcode    string `gorm:"column:admin_adcode"`
	Centroid       string `gorm:"column:centroid"`
}

// TableName returns the GORM table name.
func (POIRow) TableName() string { return "poi_index" }

// PlaceNameRow is a published place-name index row.
type PlaceNameRow struct {
	ID             uint    `gorm:"primaryKey;autoIncrement;column:id"`
	Namespace      string  `gorm:"column:namespace;index:idx_place_ns_source,priority:1;not null"`
	SourceID       string  `gorm:"column:source_id;index:idx_place_ns_source,priority:2;not null"`
	SnapshotID     string  `gorm:"column:snapshot_id;index;not null"`
	PlaceID        string  `gorm:"column:place_id"`
	Name           string  `gorm:"column:name"`
	NormalizedName string  `gorm:"column:normalized_name"`
	Type           string  `gorm:"column:type"`
	AdminAdcode    string  `gorm:"column:admin_adcode"`
	Centroid       string  `gorm:"column:centroid"`
	ConfidenceHint float64 `gorm:"column:confidence_hint"`
}

// TableName returns the GORM table name.
func (PlaceNameRow) TableName() string { return "place_name_index" }
