package hub

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// promoteFixture runs the full lifecycle for a fixture source and returns the
// promoted snapshot id.
func promoteFixture(t *testing.T, repo *Repository, ns, sourceID, variant string) string {
	t.Helper()
	ctx := context.Background()
	registerFixtureSource(t, repo, ns, sourceID, variant)
	snap, err := repo.FetchNow(ctx, ns, sourceID, "")
	require.NoError(t, err)
	_, _, err = repo.ValidateSnapshot(ctx, ns, snap.SnapshotID)
	require.NoError(t, err)
	_, err = repo.PublishSnapshot(ctx, ns, snap.SnapshotID, "")
	require.NoError(t, err)
	_, err = repo.PromoteActive(ctx, ns, sourceID, snap.SnapshotID, "alice", "", false)
	require.NoError(t, err)
	return snap.SnapshotID
}

func TestBuildValidationEvidence_FullMatch(t *testing.T) {
	repo := newTestRepository(t)
	snapshotID := promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	ev, err := repo.BuildValidationEvidence(context.Background(), "default", ValidationInput{
		City:     "杭州",
		District: "西湖区",
		Road:     "文三路",
		POI:      "西溪银泰城",
	})
	require.NoError(t, err)

	assert.Equal(t, ValidationSchemaVersion, ev.SchemaVersion)
	assert.True(t, ev.Signals.AdminDivisionValid.Value)
	assert.True(t, ev.Signals.RoadExists.Value)
	assert.True(t, ev.Signals.POIExists.Value)
	assert.Equal(t, "low", ev.Signals.AmbiguityLevel)
	assert.InDelta(t, 1.0, ev.ValidationScoreHint, 1e-9)

	// One admin ref at 0.9, one road and one poi ref at 0.7.
	require.Len(t, ev.EvidenceRefs, 3)
	assert.Equal(t, "admin_division", ev.EvidenceRefs[0].MatchType)
	assert.InDelta(t, 0.9, ev.EvidenceRefs[0].Score, 1e-9)
	assert.Equal(t, "road", ev.EvidenceRefs[1].MatchType)
	assert.InDelta(t, 0.7, ev.EvidenceRefs[1].Score, 1e-9)
	assert.Equal(t, "poi", ev.EvidenceRefs[2].MatchType)

	// Governance envelope mirrors the refs.
	require.Len(t, ev.Evidence.Items, 3)
	assert.Equal(t, "trust_data_hub", ev.Evidence.Items[0].Source)
	assert.Equal(t, snapshotID, ev.Evidence.Items[0].SnapshotID)

	// The mapping names the request fields each signal reads, not the values.
	assert.Equal(t, "road|street", ev.InputMapping["road"])
	assert.Equal(t, "poi|detail", ev.InputMapping["poi"])
}

func TestBuildValidationEvidence_StreetAndDetailFallback(t *testing.T) {
	repo := newTestRepository(t)
	promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	ev, err := repo.BuildValidationEvidence(context.Background(), "default", ValidationInput{
		City:   "杭州",
		Street: "文三路",
		Detail: "西溪银泰城",
	})
	require.NoError(t, err)
	assert.True(t, ev.Signals.RoadExists.Value)
	assert.True(t, ev.Signals.POIExists.Value)
	assert.Equal(t, "road|street", ev.InputMapping["road"])
	assert.Equal(t, "poi|detail", ev.InputMapping["poi"])
}

func TestBuildValidationEvidence_POICandidateCap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p := ingest.Payload{AdminDivisions: []ingest.AdminDivision{
		{Adcode: "330100", Name: "杭州市", Level: "city"},
	}}
	for i := 0; i < 5; i++ {
		p.POIs = append(p.POIs, ingest.POI{
			POIID:    fmt.Sprintf("p-%03d", i),
			Name:     fmt.Sprintf("银泰城%d号店", i),
			Category: "mall",
		})
	}
	entry := writePayloadFile(t, "malls.json", p)
	_, err := repo.UpsertSource(ctx, "default", "malls", SourceSpec{Entrypoint: entry})
	require.NoError(t, err)
	snap, err := repo.FetchNow(ctx, "default", "malls", "")
	require.NoError(t, err)
	_, _, err = repo.ValidateSnapshot(ctx, "default", snap.SnapshotID)
	require.NoError(t, err)
	_, err = repo.PublishSnapshot(ctx, "default", snap.SnapshotID, "")
	require.NoError(t, err)
	_, err = repo.PromoteActive(ctx, "default", "malls", snap.SnapshotID, "alice", "", false)
	require.NoError(t, err)

	ev, err := repo.BuildValidationEvidence(ctx, "default", ValidationInput{City: "杭州", POI: "银泰城"})
	require.NoError(t, err)
	assert.True(t, ev.Signals.POIExists.Value)
	assert.Equal(t, 3, ev.Signals.POIExists.EvidenceCount)
	assert.Len(t, ev.Signals.POIExists.TopCandidates, 3)
}

func TestBuildValidationEvidence_NoMatch(t *testing.T) {
	repo := newTestRepository(t)
	promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	ev, err := repo.BuildValidationEvidence(context.Background(), "default", ValidationInput{
		City: "不存在的城市",
		Road: "不存在的路",
	})
	require.NoError(t, err)
	assert.False(t, ev.Signals.AdminDivisionValid.Value)
	assert.False(t, ev.Signals.RoadExists.Value)
	assert.InDelta(t, 0.3, ev.ValidationScoreHint, 1e-9)
	assert.Empty(t, ev.EvidenceRefs)
}

func TestBuildValidationEvidenceBySnapshot(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	snapshotID := promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	input := ValidationInput{City: "杭州", Road: "文三路"}
	ev, err := repo.BuildValidationEvidenceBySnapshot(ctx, "default", snapshotID, input)
	require.NoError(t, err)
	assert.Equal(t, snapshotID, ev.SnapshotID)
	assert.True(t, ev.Signals.AdminDivisionValid.Value)
	assert.True(t, ev.Signals.RoadExists.Value)

	_, err = repo.BuildValidationEvidenceBySnapshot(ctx, "default", "missing", input)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeSnapshotNotFound))
}

func TestBuildValidationEvidenceBySnapshot_UnpublishedSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	registerFixtureSource(t, repo, "default", "gov-admin", "admin_v1")
	snap, err := repo.FetchNow(ctx, "default", "gov-admin", "")
	require.NoError(t, err)

	// Any stored snapshot can be evaluated; publication is not required.
	ev, err := repo.BuildValidationEvidenceBySnapshot(ctx, "default", snap.SnapshotID, ValidationInput{City: "杭州"})
	require.NoError(t, err)
	assert.Equal(t, snap.SnapshotID, ev.SnapshotID)
	assert.True(t, ev.Signals.AdminDivisionValid.Value)
}

func TestBuildValidationEvidenceBySnapshot_NoAdminInput(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	snapshotID := promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	// Without a city, district or province there is no admin signal, even
	// though the snapshot holds admin rows.
	ev, err := repo.BuildValidationEvidenceBySnapshot(ctx, "default", snapshotID, ValidationInput{Road: "文三路"})
	require.NoError(t, err)
	assert.False(t, ev.Signals.AdminDivisionValid.Value)
	assert.Zero(t, ev.Signals.AdminDivisionValid.EvidenceCount)
	assert.True(t, ev.Signals.RoadExists.Value)
}

func TestReplayValidationEvidence_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	snapshotID := promoteFixture(t, repo, "default", "gov-admin", "admin_v1")

	input := ValidationInput{City: "杭州", Road: "文三路", POI: "西溪银泰城"}

	base, err := repo.BuildValidationEvidenceBySnapshot(ctx, "default", snapshotID, input)
	require.NoError(t, err)

	replayed, err := repo.ReplayValidationEvidenceBySnapshot(ctx, "default", snapshotID, input)
	require.NoError(t, err)
	assert.NotEmpty(t, replayed.ReplayID)
	assert.NotEmpty(t, replayed.ReplayedAt)
	assert.Equal(t, BackendMemory, replayed.StorageBackend)

	// Everything except the replay metadata matches the direct computation.
	replayed.ReplayID = ""
	replayed.ReplayedAt = ""
	replayed.StorageBackend = ""
	assert.Equal(t, base, replayed)

	runs, err := repo.ListReplayRuns(ctx, "default", snapshotID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, snapshotID, runs[0].SnapshotID)
	assert.Equal(t, ValidationSchemaVersion, runs[0].SchemaVersion)

	// Re-running the same input against the same snapshot reproduces the
	// signals even after later promotions change the live indices.
	promoteFixture(t, repo, "default", "gov-admin-v2", "admin_v2")
	again, err := repo.ReplayValidationEvidenceBySnapshot(ctx, "default", snapshotID, input)
	require.NoError(t, err)
	assert.Equal(t, base.Signals, again.Signals)
	assert.Equal(t, base.EvidenceRefs, again.EvidenceRefs)
}
