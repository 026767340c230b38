package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

// KitRecord is the persisted form of one built kit, keyed by module. The kit
// body is stored as a JSON column; the staleness-relevant fields are lifted
// into columns so ShouldRebuild can be answered without decoding.
type KitRecord struct {
	ModuleID        string         `gorm:"primaryKey;column:module_id"`
	GroundTruthHash string         `gorm:"column:ground_truth_hash;index"`
	ProtocolUsed    string         `gorm:"column:protocol_used"`
	GroundingScore  float64        `gorm:"column:grounding_score"`
	NeedsReview     bool           `gorm:"column:needs_review"`
	Payload         datatypes.JSON `gorm:"column:payload"`
	BuiltAt         time.Time      `gorm:"column:built_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (KitRecord) TableName() string { return "kits" }

// KitRepo stores built kits and hosts the store-backed cache contract.
type KitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKitRepo(db *gorm.DB, log *logger.Logger) (*KitRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := db.AutoMigrate(&KitRecord{}); err != nil {
		return nil, fmt.Errorf("migrate kits: %w", err)
	}
	return &KitRepo{db: db, log: log.With("service", "KitRepo")}, nil
}

// Save upserts the kit for its module.
func (r *KitRepo) Save(ctx context.Context, k kit.Kit) error {
	payload, err := k.Encode()
	if err != nil {
		return fmt.Errorf("encode kit: %w", err)
	}
	rec := KitRecord{
		ModuleID:        k.ModuleID,
		GroundTruthHash: k.GroundTruthHash,
		ProtocolUsed:    k.ProtocolUsed,
		GroundingScore:  k.GroundingScore,
		NeedsReview:     k.NeedsReview,
		Payload:         datatypes.JSON(payload),
		BuiltAt:         k.BuiltAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "module_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

// Get loads the stored kit for a module, or (nil, nil) when none exists.
func (r *KitRepo) Get(ctx context.Context, moduleID string) (*kit.Kit, error) {
	var rec KitRecord
	err := r.db.WithContext(ctx).First(&rec, "module_id = ?", moduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	k, err := kit.Decode(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode stored kit: %w", err)
	}
	return &k, nil
}

// ShouldRebuild answers the cache contract against the stored record. A
// missing record always rebuilds.
func (r *KitRepo) ShouldRebuild(ctx context.Context, moduleID, currentSourceHash string, minGrounding float64) (bool, error) {
	var rec KitRecord
	err := r.db.WithContext(ctx).
		Select("module_id", "ground_truth_hash", "grounding_score", "needs_review").
		First(&rec, "module_id = ?", moduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	stored := kit.Kit{
		GroundTruthHash: rec.GroundTruthHash,
		GroundingScore:  rec.GroundingScore,
		NeedsReview:     rec.NeedsReview,
	}
	return kit.ShouldRebuild(&stored, currentSourceHash, minGrounding), nil
}

// Delete removes the stored kit for a module.
func (r *KitRepo) Delete(ctx context.Context, moduleID string) error {
	return r.db.WithContext(ctx).Delete(&KitRecord{}, "module_id = ?", moduleID).Error
}
