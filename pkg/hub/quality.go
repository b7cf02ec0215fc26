package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/addressgov/trust-data-hub/pkg/hub/ingest"
)

// ValidationSchemaVersion tags all evidence and replay payloads.
const ValidationSchemaVersion = "trust.validation.v1"

// ValidatorVersion tags quality reports.
const ValidatorVersion = "v0.1"

// QualityThreshold is the minimum quality score for publish and promote.
const QualityThreshold = 60

// QualityResult is the deterministic validation outcome for one payload.
type QualityResult struct {
	RowCount            int
	NullRatio           float64
	PrimaryKeyConflicts int
	QualityScore        int
}

// ComputeQuality scores a payload. NullRatio is the fraction of
// admin-division rows missing their adcode primary key, measured against the
// total row count; conflicts count duplicate adcodes in scan order. The
// formula trades sophistication for auditability: every score is reproducible
// from two integers and a ratio.
func ComputeQuality(p ingest.Payload) QualityResult {
	rowCount := p.RowCount()

	missing := 0
	conflicts := 0
	seen := make(map[string]struct{}, len(p.AdminDivisions))
	for _, row := range p.AdminDivisions {
		if row.Adcode == "" {
			missing++
		}
		if _, dup := seen[row.Adcode]; dup {
			conflicts++
		}
		seen[row.Adcode] = struct{}{}
	}

	nullRatio := 0.0
	if rowCount > 0 {
		nullRatio = round4(float64(missing) / float64(rowCount))
	}

	score := 100
	score -= min(int(nullRatio*100), 40)
	score -= min(conflicts*5, 30)
	if score < 0 {
		score = 0
	}

	return QualityResult{
		RowCount:            rowCount,
		NullRatio:           nullRatio,
		PrimaryKeyConflicts: conflicts,
		QualityScore:        score,
	}
}

// DiffSummary is the row-count comparison of two snapshots.
type DiffSummary struct {
	BaseRowCount int
	NewRowCount  int
	Delta        int
	ChangeRatio  float64
	Severity     string
	RiskHint     string
}

// ComputeDiff classifies the row-count change between a base and a new
// snapshot. This single formula serves both the automatic post-validate diff
// and the explicit diff operation.
func ComputeDiff(baseRowCount, newRowCount int) DiffSummary {
	delta := newRowCount - baseRowCount
	denom := baseRowCount
	if denom < 1 {
		denom = 1
	}
	ratio := round4(math.Abs(float64(delta)) / float64(denom))

	severity := SeverityLow
	switch {
	case ratio > 0.5:
		severity = SeverityHigh
	case ratio > 0.2:
		severity = SeverityMedium
	}

	riskHint := RiskHintNormal
	if severity == SeverityHigh {
		riskHint = RiskHintReviewRequired
	}

	return DiffSummary{
		BaseRowCount: baseRowCount,
		NewRowCount:  newRowCount,
		Delta:        delta,
		ChangeRatio:  ratio,
		Severity:     severity,
		RiskHint:     riskHint,
	}
}

// ContentHash returns the SHA-256 hex digest of the payload's canonical
// (key-sorted) JSON serialization. Two payloads with equal content always
// hash identically regardless of field declaration order.
func ContentHash(p ingest.Payload) (string, error) {
	structured, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serialize payload: %w", err)
	}
	// Round-trip through generic maps so json.Marshal emits sorted keys.
	var generic any
	if err := json.Unmarshal(structured, &generic); err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
