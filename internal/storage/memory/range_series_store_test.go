package memory

import (
	"context"
	"errors"
	"testing"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

func TestRangeSeriesStore_InsertBatchAndGetRange(t *testing.T) {
	store := NewRangeSeriesStore()
	ctx := context.Background()

	batch := []*domain.SnapshotSummary{
		summary(300, 30),
		summary(100, 10),
		summary(200, 20),
	}
	if err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := store.GetRange(ctx, 100, 250)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].TargetBlock != 100 || got[1].TargetBlock != 200 {
		t.Errorf("expected blocks [100 200], got [%d %d]", got[0].TargetBlock, got[1].TargetBlock)
	}
}

func TestRangeSeriesStore_ReinsertReplaces(t *testing.T) {
	store := NewRangeSeriesStore()
	ctx := context.Background()

	if err := store.InsertBatch(ctx, []*domain.SnapshotSummary{summary(100, 10)}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := store.InsertBatch(ctx, []*domain.SnapshotSummary{summary(100, 55)}); err != nil {
		t.Fatalf("re-insert failed: %v", err)
	}

	got, err := store.GetRange(ctx, 100, 100)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(got))
	}
	if got[0].TotalAssetsUSD != 55 {
		t.Errorf("expected replaced value 55, got %v", got[0].TotalAssetsUSD)
	}
}

func TestRangeSeriesStore_InvalidInput(t *testing.T) {
	store := NewRangeSeriesStore()

	err := store.InsertBatch(context.Background(), []*domain.SnapshotSummary{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
