package memory

import (
	"context"
	"errors"
	"testing"

	"lending-risk-monitor/internal/domain"
	"lending-risk-monitor/internal/storage"
)

func summary(block int64, assets float64) *domain.SnapshotSummary {
	return &domain.SnapshotSummary{
		TargetBlock:         block,
		TotalAssetsUSD:      assets,
		SuccessfulSnapshots: 1,
		PricesBlock:         block - 5,
	}
}

func TestSummaryArchiveStore_InsertAndGet(t *testing.T) {
	store := NewSummaryArchiveStore()
	ctx := context.Background()

	if err := store.Insert(ctx, summary(100, 14.0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByBlock(ctx, 100)
	if err != nil {
		t.Fatalf("GetByBlock failed: %v", err)
	}
	if got.TotalAssetsUSD != 14.0 {
		t.Errorf("TotalAssetsUSD mismatch: got %v, want 14.0", got.TotalAssetsUSD)
	}
	if got.PricesBlock != 95 {
		t.Errorf("PricesBlock mismatch: got %d, want 95", got.PricesBlock)
	}
}

func TestSummaryArchiveStore_DuplicateKey(t *testing.T) {
	store := NewSummaryArchiveStore()
	ctx := context.Background()

	if err := store.Insert(ctx, summary(100, 14.0)); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, summary(100, 99.0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSummaryArchiveStore_NotFound(t *testing.T) {
	store := NewSummaryArchiveStore()

	_, err := store.GetByBlock(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryArchiveStore_InvalidInput(t *testing.T) {
	store := NewSummaryArchiveStore()

	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(context.Background(), summary(0, 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero block, got %v", err)
	}
}

func TestSummaryArchiveStore_GetRange(t *testing.T) {
	store := NewSummaryArchiveStore()
	ctx := context.Background()

	for _, block := range []int64{300, 100, 200, 400} {
		if err := store.Insert(ctx, summary(block, float64(block))); err != nil {
			t.Fatalf("Insert %d failed: %v", block, err)
		}
	}

	got, err := store.GetRange(ctx, 100, 300)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	for i, want := range []int64{100, 200, 300} {
		if got[i].TargetBlock != want {
			t.Errorf("position %d: got block %d, want %d", i, got[i].TargetBlock, want)
		}
	}
}

func TestSummaryArchiveStore_GetLatest(t *testing.T) {
	store := NewSummaryArchiveStore()
	ctx := context.Background()

	for _, block := range []int64{100, 300, 200} {
		if err := store.Insert(ctx, summary(block, 0)); err != nil {
			t.Fatalf("Insert %d failed: %v", block, err)
		}
	}

	got, err := store.GetLatest(ctx, 2)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].TargetBlock != 300 || got[1].TargetBlock != 200 {
		t.Errorf("expected blocks [300 200], got [%d %d]", got[0].TargetBlock, got[1].TargetBlock)
	}
}

func TestSummaryArchiveStore_CopyOnRead(t *testing.T) {
	store := NewSummaryArchiveStore()
	ctx := context.Background()

	if err := store.Insert(ctx, summary(100, 14.0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByBlock(ctx, 100)
	got.TotalAssetsUSD = 999

	again, _ := store.GetByBlock(ctx, 100)
	if again.TotalAssetsUSD != 14.0 {
		t.Errorf("stored summary mutated through returned copy")
	}
}
