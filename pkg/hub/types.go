package hub

import (
	"time"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// TrustLevel classifies how much a source's data can be relied on.
type TrustLevel string

const (
	TrustAuthoritative    TrustLevel = "authoritative"
	TrustOpenLicense      TrustLevel = "open_license"
	TrustCommunityDerived TrustLevel = "community_derived"
	TrustUnknown          TrustLevel = "unknown"
)

// Snapshot statuses.
const (
	SnapshotStatusSuccess = "success"
	SnapshotStatusSkipped = "skipped"
)

// Diff severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Diff risk hints.
const (
	RiskHintNormal         = "normal"
	RiskHintReviewRequired = "review_required"
)

// SourceSpec is the caller-supplied source definition for upsert_source.
type SourceSpec struct {
	Name             string         `json:"name,omitempty"`
	Category         string         `json:"category,omitempty"`
	TrustLevel       TrustLevel     `json:"trust_level,omitempty"`
	License          string         `json:"license,omitempty"`
	Entrypoint       string         `json:"entrypoint"`
	UpdateFrequency  string         `json:"update_frequency,omitempty"`
	FetchMethod      string         `json:"fetch_method,omitempty"`
	ParserProfile    map[string]any `json:"parser_profile,omitempty"`
	ValidatorProfile map[string]any `json:"validator_profile,omitempty"`
	Enabled          *bool          `json:"enabled,omitempty"`
	AllowedUseNotes  string         `json:"allowed_use_notes,omitempty"`
	AccessMode       string         `json:"access_mode,omitempty"`
	RobotsTosFlags   map[string]any `json:"robots_tos_flags,omitempty"`
}

// ScheduleSpec is the caller-supplied recurring-fetch policy.
type ScheduleSpec struct {
	ScheduleType string `json:"schedule_type"` // cron, interval
	ScheduleSpec string `json:"schedule_spec"`
	WindowPolicy string `json:"window_policy,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
}

// Source is the API-facing registered source.
type Source struct {
	Namespace        string         `json:"namespace"`
	SourceID         string         `json:"source_id"`
	Name             string         `json:"name,omitempty"`
	Category         string         `json:"category,omitempty"`
	TrustLevel       TrustLevel     `json:"trust_level"`
	License          string         `json:"license,omitempty"`
	Entrypoint       string         `json:"entrypoint"`
	UpdateFrequency  string         `json:"update_frequency,omitempty"`
	FetchMethod      string         `json:"fetch_method,omitempty"`
	ParserProfile    map[string]any `json:"parser_profile,omitempty"`
	ValidatorProfile map[string]any `json:"validator_profile,omitempty"`
	Enabled          bool           `json:"enabled"`
	AllowedUseNotes  string         `json:"allowed_use_notes,omitempty"`
	AccessMode       string         `json:"access_mode,omitempty"`
	RobotsTosFlags   map[string]any `json:"robots_tos_flags,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

// Schedule is the API-facing source schedule.
type Schedule struct {
	Namespace    string `json:"namespace"`
	SourceID     string `json:"source_id"`
	ScheduleType string `json:"schedule_type"`
	ScheduleSpec string `json:"schedule_spec"`
	WindowPolicy string `json:"window_policy,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// Snapshot is the API-facing immutable capture of one fetch.
type Snapshot struct {
	Namespace   string         `json:"namespace"`
	SnapshotID  string         `json:"snapshot_id"`
	SourceID    string         `json:"source_id"`
	VersionTag  string         `json:"version_tag"`
	FetchedAt   string         `json:"fetched_at"`
	Etag        string         `json:"etag"`
	ContentHash string         `json:"content_hash"`
	RawURI      string         `json:"raw_uri"`
	ParsedURI   string         `json:"parsed_uri"`
	Status      string         `json:"status"`
	RowCount    int            `json:"row_count"`
	Payload     ingest.Payload `json:"payload"`
}

// QualityReport is the API-facing validation result.
type QualityReport struct {
	Namespace           string  `json:"namespace"`
	SnapshotID          string  `json:"snapshot_id"`
	RowCount            int     `json:"row_count"`
	NullRatio           float64 `json:"null_ratio"`
	PrimaryKeyConflicts int     `json:"primary_key_conflicts"`
	QualityScore        int     `json:"quality_score"`
	ValidatorVersion    string  `json:"validator_version"`
}

// DiffReport is the API-facing row-count comparison of two snapshots.
type DiffReport struct {
	Namespace      string  `json:"namespace"`
	BaseSnapshotID string  `json:"base_snapshot_id"`
	NewSnapshotID  string  `json:"new_snapshot_id"`
	BaseRowCount   int     `json:"base_row_count"`
	NewRowCount    int     `json:"new_row_count"`
	Delta          int     `json:"delta"`
	ChangeRatio    float64 `json:"change_ratio"`
	Severity       string  `json:"severity"`
	RiskHint       string  `json:"risk_hint"`
}

// PublishJob is the result of publishing a snapshot into the query indices.
type PublishJob struct {
	PublishJobID   string `json:"publish_job_id"`
	Namespace      string `json:"namespace"`
	SnapshotID     string `json:"snapshot_id"`
	Status         string `json:"status"`
	StorageBackend string `json:"storage_backend"`
}

// ActiveRelease is the API-facing active-snapshot pointer.
type ActiveRelease struct {
	Namespace        string `json:"namespace"`
	SourceID         string `json:"source_id"`
	ActiveSnapshotID string `json:"active_snapshot_id"`
	ActivatedBy      string `json:"activated_by"`
	ActivatedAt      string `json:"activated_at"`
	ActivationNote   string `json:"activation_note,omitempty"`
}

// AuditEvent is the API-facing audit log entry.
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	Namespace string         `json:"namespace"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	TargetRef string         `json:"target_ref"`
	EventJSON map[string]any `json:"event_json"`
	CreatedAt string         `json:"created_at"`
}

// Candidate is one query match, tagged with its provenance. RecordID holds
// the collection-specific primary key (adcode, road_id, poi_id or place_id).
type Candidate struct {
	Namespace      string   `json:"namespace"`
	SourceID       string   `json:"source_id"`
	SnapshotID     string   `json:"snapshot_id"`
	RecordID       string   `json:"record_id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name,omitempty"`
	Level          string   `json:"level,omitempty"`
	ParentAdcode   string   `json:"parent_adcode,omitempty"`
	NameAliases    []string `json:"name_aliases,omitempty"`
	Category       string   `json:"category,omitempty"`
	AdminAdcode    string   `json:"admin_adcode,omitempty"`
	Centroid       string   `json:"centroid,omitempty"`
}

// ValidationInput is a free-text address fragment set. Road falls back to
// Street and POI falls back to Detail during normalization.
type ValidationInput struct {
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
	District string `json:"district,omitempty"`
	Road     string `json:"road,omitempty"`
	Street   string `json:"street,omitempty"`
	POI      string `json:"poi,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// normalized collapses the fallback fields into the canonical five inputs.
func (v ValidationInput) normalized() normalizedInput {
	road := v.Road
	if road == "" {
		road = v.Street
	}
	poi := v.POI
	if poi == "" {
		poi = v.Detail
	}
	return normalizedInput{
		Province: v.Province,
		City:     v.City,
		District: v.District,
		Road:     road,
		POI:      poi,
	}
}

type normalizedInput struct {
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
	Road     string `json:"road"`
	POI      string `json:"poi"`
}

// EvidenceRef is one provenance-tagged match supporting a validation
// conclusion.
type EvidenceRef struct {
	Namespace  string  `json:"namespace"`
	SourceID   string  `json:"source_id"`
	SnapshotID string  `json:"snapshot_id"`
	RecordID   string  `json:"record_id"`
	MatchType  string  `json:"match_type"`
	Score      float64 `json:"score"`
}

// SignalPresence reports whether one evidence class was found.
type SignalPresence struct {
	Value         bool        `json:"value"`
	EvidenceCount int         `json:"evidence_count,omitempty"`
	TopCandidates []Candidate `json:"top_candidates,omitempty"`
}

// EvidenceSignals is the structured signal block of an Evidence result.
type EvidenceSignals struct {
	AdminDivisionValid SignalPresence `json:"admin_division_valid"`
	RoadExists         SignalPresence `json:"road_exists"`
	POIExists          SignalPresence `json:"poi_exists"`
	AmbiguityLevel     string         `json:"ambiguity_level"`
}

// GovernanceEvidenceItem is the envelope shape consumed by downstream
// address-governance pipelines.
type GovernanceEvidenceItem struct {
	Source        string  `json:"source"`
	SchemaVersion string  `json:"schema_version"`
	Namespace     string  `json:"namespace"`
	SourceID      string  `json:"source_id"`
	SnapshotID    string  `json:"snapshot_id"`
	RecordID      string  `json:"record_id"`
	MatchType     string  `json:"match_type"`
	Score         float64 `json:"score"`
}

// GovernanceEvidence wraps the governance items list.
type GovernanceEvidence struct {
	Items []GovernanceEvidenceItem `json:"items"`
}

// Evidence is the full validation evidence result. Replay fields are only
// set by replay_validation_evidence_by_snapshot.
type Evidence struct {
	SchemaVersion       string             `json:"schema_version"`
	Namespace           string             `json:"namespace"`
	SnapshotID          string             `json:"snapshot_id,omitempty"`
	Signals             EvidenceSignals    `json:"signals"`
	ValidationScoreHint float64            `json:"validation_score_hint"`
	EvidenceRefs        []EvidenceRef      `json:"evidence_refs"`
	Evidence            GovernanceEvidence `json:"evidence"`
	InputMapping        map[string]string  `json:"input_mapping"`
	ReplayID            string             `json:"replay_id,omitempty"`
	ReplayedAt          string             `json:"replayed_at,omitempty"`
	StorageBackend      string             `json:"storage_backend,omitempty"`
}

// ReplayRun is the API-facing persisted evidence computation.
type ReplayRun struct {
	Namespace      string         `json:"namespace"`
	ReplayID       string         `json:"replay_id"`
	SnapshotID     string         `json:"snapshot_id"`
	RequestPayload map[string]any `json:"request_payload"`
	ReplayResult   map[string]any `json:"replay_result"`
	SchemaVersion  string         `json:"schema_version"`
	CreatedAt      string         `json:"created_at"`
}

func sourceToAPI(rec *SourceRecord) Source {
	return Source{
		Namespace:        rec.Namespace,
		SourceID:         rec.SourceID,
		Name:             rec.Name,
		Category:         rec.Category,
		TrustLevel:       TrustLevel(rec.TrustLevel),
		License:          rec.License,
		Entrypoint:       rec.Entrypoint,
		UpdateFrequency:  rec.UpdateFrequency,
		FetchMethod:      rec.FetchMethod,
		ParserProfile:    rec.ParserProfile,
		ValidatorProfile: rec.ValidatorProfile,
		Enabled:          rec.Enabled,
		AllowedUseNotes:  rec.AllowedUseNotes,
		AccessMode:       rec.AccessMode,
		RobotsTosFlags:   rec.RobotsTosFlags,
		CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func scheduleToAPI(rec *ScheduleRecord) Schedule {
	return Schedule{
		Namespace:    rec.Namespace,
		SourceID:     rec.SourceID,
		ScheduleType: rec.ScheduleType,
		ScheduleSpec: rec.ScheduleSpec,
		WindowPolicy: rec.WindowPolicy,
		Enabled:      rec.Enabled,
	}
}

func snapshotToAPI(rec *SnapshotRecord) Snapshot {
	return Snapshot{
		Namespace:   rec.Namespace,
		SnapshotID:  rec.SnapshotID,
		SourceID:    rec.SourceID,
		VersionTag:  rec.VersionTag,
		FetchedAt:   rec.FetchedAt.UTC().Format(time.RFC3339),
		Etag:        rec.Etag,
		ContentHash: rec.ContentHash,
		RawURI:      rec.RawURI,
		ParsedURI:   rec.ParsedURI,
		Status:      rec.Status,
		RowCount:    rec.RowCount,
		Payload:     rec.Payload.Payload,
	}
}

func qualityToAPI(rec *QualityReportRecord) QualityReport {
	return QualityReport{
		Namespace:           rec.Namespace,
		SnapshotID:          rec.SnapshotID,
		RowCount:            rec.RowCount,
		NullRatio:           rec.NullRatio,
		PrimaryKeyConflicts: rec.PrimaryKeyConflicts,
		QualityScore:        rec.QualityScore,
		ValidatorVersion:    rec.ValidatorVersion,
	}
}

func diffToAPI(rec *DiffReportRecord) DiffReport {
	return DiffReport{
		Namespace:      rec.Namespace,
		BaseSnapshotID: rec.BaseSnapshotID,
		NewSnapshotID:  rec.NewSnapshotID,
		BaseRowCount:   rec.BaseRowCount,
		NewRowCount:    rec.NewRowCount,
		Delta:          rec.Delta,
		ChangeRatio:    rec.ChangeRatio,
		Severity:       rec.Severity,
		RiskHint:       rec.RiskHint,
	}
}

func activeReleaseToAPI(rec *ActiveReleaseRecord) ActiveRelease {
	return ActiveRelease{
		Namespace:        rec.Namespace,
		SourceID:         rec.SourceID,
		ActiveSnapshotID: rec.ActiveSnapshotID,
		ActivatedBy:      rec.ActivatedBy,
		ActivatedAt:      rec.ActivatedAt.UTC().Format(time.RFC3339),
		ActivationNote:   rec.ActivationNote,
	}
}

func auditEventToAPI(rec *AuditEventRecord) AuditEvent {
	return AuditEvent{
		EventID:   rec.EventID,
		Namespace: rec.Namespace,
		Actor:     rec.Actor,
		Action:    rec.Action,
		TargetRef: rec.TargetRef,
		EventJSON: rec.EventJSON,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func replayRunToAPI(rec *ReplayRunRecord) ReplayRun {
	return ReplayRun{
		Namespace:      rec.Namespace,
		ReplayID:       rec.ReplayID,
		SnapshotID:     rec.SnapshotID,
		RequestPayload: rec.RequestPayload,
		ReplayResult:   rec.ReplayResult,
		SchemaVersion:  rec.SchemaVersion,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
