package audit

import (
	"context"
	"testing"
	"time"
)

type fakePruner struct {
	calls  int
	cutoff time.Time
}

func (f *fakePruner) PruneAuditEvents(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 3, nil
}

func TestNewRetentionWorker(t *testing.T) {
	worker := NewRetentionWorker(nil, 30, nil)

	if worker == nil {
		t.Fatal("expected non-nil worker")
	}

	expectedRetention := 30 * 24 // hours
	actualHours := int(worker.retention.Hours())
	if actualHours != expectedRetention {
		t.Errorf("expected retention %d hours, got %d", expectedRetention, actualHours)
	}

	expectedInterval := 24 // hours
	actualIntervalHours := int(worker.interval.Hours())
	if actualIntervalHours != expectedInterval {
		t.Errorf("expected interval %d hours, got %d", expectedInterval, actualIntervalHours)
	}
}

func TestNewRetentionWorker_ZeroRetention(t *testing.T) {
	// Worker with zero retention should be disabled (Run returns immediately).
	worker := NewRetentionWorker(&fakePruner{}, 0, nil)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected disabled worker to return immediately")
	}
}

func TestRetentionWorker_Cleanup(t *testing.T) {
	pruner := &fakePruner{}
	worker := NewRetentionWorker(pruner, 7, nil)

	worker.cleanup(context.Background())

	if pruner.calls != 1 {
		t.Fatalf("expected 1 prune call, got %d", pruner.calls)
	}
	wantCutoff := time.Now().Add(-7 * 24 * time.Hour)
	if diff := pruner.cutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff %v too far from expected %v", pruner.cutoff, wantCutoff)
	}
}
