package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

func adminRows(adcodes ...string) []ingest.AdminDivision {
	out := make([]ingest.AdminDivision, 0, len(adcodes))
	for _, code := range adcodes {
		out = append(out, ingest.AdminDivision{Adcode: code, Name: "n" + code, Level: "district"})
	}
	return out
}

func TestComputeQuality(t *testing.T) {
	tests := []struct {
		name          string
		payload       ingest.Payload
		wantScore     int
		wantNullRatio float64
		wantConflicts int
	}{
		{
			name:          "clean payload scores 100",
			payload:       ingest.Payload{AdminDivisions: adminRows("330100", "330106")},
			wantScore:     100,
			wantNullRatio: 0,
		},
		{
			name:          "empty payload scores 100",
			payload:       ingest.Payload{},
			wantScore:     100,
			wantNullRatio: 0,
		},
		{
			name: "missing adcodes raise null ratio",
			payload: ingest.Payload{
				AdminDivisions: adminRows("330100", "", "", ""),
			},
			wantScore:     50, // null ratio 0.75 capped at -40, plus "" dup conflicts at -10
			wantNullRatio: 0.75,
			wantConflicts: 2,
		},
		{
			name: "duplicate adcodes cost 5 each",
			payload: ingest.Payload{
				AdminDivisions: adminRows("330100", "330100", "330106", "330106"),
			},
			wantScore:     90,
			wantNullRatio: 0,
			wantConflicts: 2,
		},
		{
			name: "conflict penalty caps at 30",
			payload: ingest.Payload{
				AdminDivisions: adminRows("a", "a", "a", "a", "a", "a", "a", "a", "a"),
			},
			wantScore:     70,
			wantNullRatio: 0,
			wantConflicts: 8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeQuality(tt.payload)
			assert.Equal(t, tt.wantScore, got.QualityScore)
			assert.InDelta(t, tt.wantNullRatio, got.NullRatio, 1e-9)
			assert.Equal(t, tt.wantConflicts, got.PrimaryKeyConflicts)
		})
	}
}

func TestComputeQuality_NullRatioUsesTotalRowCount(t *testing.T) {
	// Roads and POIs count toward the denominator even though only admin
	// divisions are checked for missing keys.
	p := ingest.Payload{
		AdminDivisions: adminRows("330100", ""),
		Roads:          []ingest.Road{{RoadID: "r1", Name: "x"}, {RoadID: "r2", Name: "y"}},
	}
	got := ComputeQuality(p)
	assert.Equal(t, 4, got.RowCount)
	assert.InDelta(t, 0.25, got.NullRatio, 1e-9)
	assert.Equal(t, 75, got.QualityScore)
}

func TestComputeDiff(t *testing.T) {
	tests := []struct {
		name         string
		base, new    int
		wantRatio    float64
		wantSeverity string
		wantRisk     string
	}{
		{"no change", 100, 100, 0, SeverityLow, RiskHintNormal},
		{"small growth is low", 100, 110, 0.1, SeverityLow, RiskHintNormal},
		{"forty percent growth is medium", 100, 140, 0.4, SeverityMedium, RiskHintNormal},
		{"over half is high", 100, 151, 0.51, SeverityHigh, RiskHintReviewRequired},
		{"shrink counts too", 100, 40, 0.6, SeverityHigh, RiskHintReviewRequired},
		{"empty base uses denominator one", 0, 3, 3, SeverityHigh, RiskHintReviewRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiff(tt.base, tt.new)
			assert.InDelta(t, tt.wantRatio, got.ChangeRatio, 1e-9)
			assert.Equal(t, tt.wantSeverity, got.Severity)
			assert.Equal(t, tt.wantRisk, got.RiskHint)
			assert.Equal(t, tt.new-tt.base, got.Delta)
		})
	}
}

func TestContentHash_FieldOrderIndependent(t *testing.T) {
	a := ingest.Payload{
		AdminDivisions: []ingest.AdminDivision{{Adcode: "330100", Name: "杭州市", Level: "city"}},
		Roads:          []ingest.Road{{RoadID: "r1", Name: "文三路"}},
	}
	b := ingest.Payload{
		Roads:          []ingest.Road{{RoadID: "r1", Name: "文三路"}},
		AdminDivisions: []ingest.AdminDivision{{Adcode: "330100", Name: "杭州市", Level: "city"}},
	}

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestContentHash_ChangesWithContent(t *testing.T) {
	a := ingest.Payload{AdminDivisions: adminRows("330100")}
	b := ingest.Payload{AdminDivisions: adminRows("330106")}

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}
