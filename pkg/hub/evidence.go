package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// defaultPOITopK is the POI query default when the caller sends no top_k.
const defaultPOITopK = 5

// evidencePOITopK caps the POI lookup inside an evidence computation.
const evidencePOITopK = 3

const evidenceSourceName = "trust_data_hub"

// BuildValidationEvidence computes replayable validation evidence for a
// free-text address fragment set against the namespace's active releases.
// The admin, road and POI lookups are independent and run concurrently.
func (r *Repository) BuildValidationEvidence(ctx context.Context, namespace string, input ValidationInput) (Evidence, error) {
	norm := input.normalized()
	adminName := firstNonEmpty(norm.City, norm.District, norm.Province)

	var adminCands, roadCands, poiCands []Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		adminCands, err = r.index.QueryAdminDivision(gctx, namespace, adminName, "")
		return err
	})
	if norm.Road != "" {
		g.Go(func() error {
			var err error
			roadCands, err = r.index.QueryRoad(gctx, namespace, norm.Road, "")
			return err
		})
	}
	if norm.POI != "" {
		g.Go(func() error {
			var err error
			poiCands, err = r.index.QueryPOI(gctx, namespace, norm.POI, "", evidencePOITopK)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Evidence{}, fmt.Errorf("query evidence candidates: %w", err)
	}

	return assembleEvidence(namespace, "", adminCands, roadCands, poiCands), nil
}

// BuildValidationEvidenceBySnapshot computes evidence against one fixed
// snapshot's stored payload instead of the live indices, so the result is
// reproducible regardless of later promotions. Any stored snapshot qualifies;
// it does not have to be published.
func (r *Repository) BuildValidationEvidenceBySnapshot(ctx context.Context, namespace, snapshotID string, input ValidationInput) (Evidence, error) {
	snap, err := r.meta.GetSnapshot(ctx, namespace, snapshotID)
	if err != nil {
		return Evidence{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	if snap == nil {
		return Evidence{}, notFoundError(CodeSnapshotNotFound, "snapshot not found: "+snapshotID)
	}

	norm := input.normalized()
	adminName := firstNonEmpty(norm.City, norm.District, norm.Province)

	adminCands := scanPayloadAdmin(snap, adminName)
	var roadCands, poiCands []Candidate
	if norm.Road != "" {
		roadCands = scanPayloadRoads(snap, norm.Road)
	}
	if norm.POI != "" {
		poiCands = scanPayloadPOIs(snap, norm.POI)
	}

	ev := assembleEvidence(namespace, snapshotID, adminCands, roadCands, poiCands)
	return ev, nil
}

// ReplayValidationEvidenceBySnapshot computes snapshot-pinned evidence and
// persists it as a replay run. Unlike audit appends, replay persistence is
// required: if the run cannot be stored, the whole operation fails so no
// unrecorded evidence ever reaches a caller.
func (r *Repository) ReplayValidationEvidenceBySnapshot(ctx context.Context, namespace, snapshotID string, input ValidationInput) (Evidence, error) {
	ev, err := r.BuildValidationEvidenceBySnapshot(ctx, namespace, snapshotID, input)
	if err != nil {
		return Evidence{}, err
	}

	now := time.Now().UTC()
	ev.ReplayID = uuid.NewString()
	ev.ReplayedAt = now.Format(time.RFC3339)
	ev.StorageBackend = r.backend

	request, err := toJSONAny(input)
	if err != nil {
		return Evidence{}, fmt.Errorf("encode replay request: %w", err)
	}
	result, err := toJSONAny(ev)
	if err != nil {
		return Evidence{}, fmt.Errorf("encode replay result: %w", err)
	}

	rec := &ReplayRunRecord{
		ReplayID:       ev.ReplayID,
		Namespace:      namespace,
		SnapshotID:     snapshotID,
		RequestPayload: request,
		ReplayResult:   result,
		SchemaVersion:  ValidationSchemaVersion,
		CreatedAt:      now,
	}
	if err := r.meta.InsertReplayRun(ctx, rec); err != nil {
		return Evidence{}, persistenceError(CodeReplayPersistFailed, "store replay run for "+snapshotID, err)
	}

	replayRunsTotal.Inc()
	r.appendAudit(ctx, namespace, "", "validation_replay", "snapshot:"+snapshotID, map[string]any{
		"replay_id": ev.ReplayID,
	})
	return ev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func toJSONAny(v any) (JSONAny, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m JSONAny
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func scanPayloadAdmin(snap *SnapshotRecord, name string) []Candidate {
	if name == "" {
		return nil
	}
	var out []Candidate
	for _, row := range snap.Payload.AdminDivisions {
		match := containsFold(row.Name, name)
		for _, alias := range row.NameAliases {
			if match {
				break
			}
			match = containsFold(alias, name)
		}
		if !match {
			continue
		}
		out = append(out, Candidate{
			Namespace:    snap.Namespace,
			SourceID:     snap.SourceID,
			SnapshotID:   snap.SnapshotID,
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
	return out
}

func scanPayloadRoads(snap *SnapshotRecord, name string) []Candidate {
	var out []Candidate
	for _, row := range snap.Payload.Roads {
		if !containsFold(row.Name, name) && !containsFold(row.NormalizedName, name) {
			continue
		}
		out = append(out, Candidate{
			Namespace:      snap.Namespace,
			SourceID:       snap.SourceID,
			SnapshotID:     snap.SnapshotID,
			RecordID:       row.RoadID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			AdminAdcode:    row.AdminAdcode,
		})
		if len(out) >= queryRowLimit {
			break
		}
	}
	return out
}

func scanPayloadPOIs(snap *SnapshotRecord, name string) []Candidate {
	var out []Candidate
	for _, row := range snap.Payload.POIs {
		if !containsFold(row.Name, name) && !containsFold(row.NormalizedName, name) {
			continue
		}
		out = append(out, Candidate{
			Namespace:      snap.Namespace,
			SourceID:       snap.SourceID,
			SnapshotID:     snap.SnapshotID,
			RecordID:       row.POIID,
			Name:           row.Name,
			NormalizedName: row.NormalizedName,
			Category:       row.Category,
			AdminAdcode:    row.AdminAdcode,
			Centroid:       row.Centroid,
		})
		if len(out) >= queryRowLimit {
			break
		}
	}
	return out
}

func topCandidates(cands []Candidate) []Candidate {
	if len(cands) > 3 {
		return cands[:3]
	}
	return cands
}

func assembleEvidence(namespace, snapshotID string, adminCands, roadCands, poiCands []Candidate) Evidence {
	hasAdmin := len(adminCands) > 0
	hasRoad := len(roadCands) > 0
	hasPOI := len(poiCands) > 0

	var refs []EvidenceRef
	appendRefs := func(cands []Candidate, matchType string, score float64, limit int) {
		for i, c := range cands {
			if i >= limit {
				break
			}
			refs = append(refs, EvidenceRef{
				Namespace:  c.Namespace,
				SourceID:   c.SourceID,
				SnapshotID: c.SnapshotID,
				RecordID:   c.RecordID,
				MatchType:  matchType,
				Score:      score,
			})
		}
	}
	appendRefs(adminCands, "admin_division", 0.9, 1)
	appendRefs(roadCands, "road", 0.7, 2)
	appendRefs(poiCands, "poi", 0.7, 2)

	ambiguity := "low"
	if len(adminCands) > 1 {
		ambiguity = "medium"
	}

	score := 0.3
	if hasAdmin {
		score += 0.35
	}
	if hasRoad {
		score += 0.2
	}
	if hasPOI {
		score += 0.15
	}
	if score > 1.0 {
		score = 1.0
	}

	items := make([]GovernanceEvidenceItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, GovernanceEvidenceItem{
			Source:        evidenceSourceName,
			SchemaVersion: ValidationSchemaVersion,
			Namespace:     ref.Namespace,
			SourceID:      ref.SourceID,
			SnapshotID:    ref.SnapshotID,
			RecordID:      ref.RecordID,
			MatchType:     ref.MatchType,
			Score:         ref.Score,
		})
	}

	if refs == nil {
		refs = []EvidenceRef{}
	}
	return Evidence{
		SchemaVersion: ValidationSchemaVersion,
		Namespace:     namespace,
		SnapshotID:    snapshotID,
		Signals: EvidenceSignals{
			AdminDivisionValid: SignalPresence{Value: hasAdmin, EvidenceCount: len(adminCands), TopCandidates: topCandidates(adminCands)},
			RoadExists:         SignalPresence{Value: hasRoad, EvidenceCount: len(roadCands), TopCandidates: topCandidates(roadCands)},
			POIExists:          SignalPresence{Value: hasPOI, EvidenceCount: len(poiCands), TopCandidates: topCandidates(poiCands)},
			AmbiguityLevel:     ambiguity,
		},
		ValidationScoreHint: round3(score),
		EvidenceRefs:        refs,
		Evidence:            GovernanceEvidence{Items: items},
		// Documents which request fields feed each signal, not the values.
		InputMapping: map[string]string{
			"road": "road|street",
			"poi":  "poi|detail",
		},
	}
}
