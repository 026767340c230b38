package repos

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

func testRepo(t *testing.T) *KitRepo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := NewKitRepo(db, logger.NewNop())
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func sampleKit() kit.Kit {
	return kit.Kit{
		ModuleID:        "mod-1",
		Title:           "Handen wassen",
		ProtocolUsed:    "procedural-skill",
		GroundingScore:  0.95,
		GroundTruthHash: "hash-1",
		BuiltAt:         time.Now().UTC(),
		QuickStart: kit.QuickStart{
			OneLiner:       "Leer de wasprocedure",
			TimeAllocation: kit.TimeAllocation{Start: 10, Core: 35, Closing: 5},
		},
	}
}

func TestKitRepoSaveGetRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, sampleKit()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "mod-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Title != "Handen wassen" || got.GroundTruthHash != "hash-1" {
		t.Fatalf("round trip = %+v", got)
	}

	// Upsert replaces the stored record.
	updated := sampleKit()
	updated.GroundTruthHash = "hash-2"
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = repo.Get(ctx, "mod-1")
	if err != nil || got.GroundTruthHash != "hash-2" {
		t.Fatalf("after upsert: %+v, %v", got, err)
	}

	missing, err := repo.Get(ctx, "unknown")
	if err != nil || missing != nil {
		t.Fatalf("missing module: %+v, %v", missing, err)
	}
}

func TestKitRepoShouldRebuild(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	// No record yet.
	rebuild, err := repo.ShouldRebuild(ctx, "mod-1", "hash-1", 0.8)
	if err != nil || !rebuild {
		t.Fatalf("missing record: rebuild=%v err=%v", rebuild, err)
	}

	if err := repo.Save(ctx, sampleKit()); err != nil {
		t.Fatalf("save: %v", err)
	}

	rebuild, err = repo.ShouldRebuild(ctx, "mod-1", "hash-1", 0.8)
	if err != nil || rebuild {
		t.Fatalf("fresh record: rebuild=%v err=%v", rebuild, err)
	}

	rebuild, err = repo.ShouldRebuild(ctx, "mod-1", "hash-other", 0.8)
	if err != nil || !rebuild {
		t.Fatalf("hash mismatch: rebuild=%v err=%v", rebuild, err)
	}

	flagged := sampleKit()
	flagged.NeedsReview = true
	if err := repo.Save(ctx, flagged); err != nil {
		t.Fatalf("save flagged: %v", err)
	}
	rebuild, err = repo.ShouldRebuild(ctx, "mod-1", "hash-1", 0.8)
	if err != nil || !rebuild {
		t.Fatalf("needsReview record: rebuild=%v err=%v", rebuild, err)
	}
}
