package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

type ArtifactPostgreSQL struct {
	db *gorm.DB
}

func NewArtifactPostgreSQL(db *gorm.DB) *ArtifactPostgreSQL {
	return &ArtifactPostgreSQL{db: db}
}

func (r *ArtifactPostgreSQL) Create(ctx context.Context, tx *gorm.DB, artifacts []*models.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Create(&artifacts).Error; err != nil {
		return fmt.Errorf("failed to record artifacts: %w", err)
	}
	return nil
}

func (r *ArtifactPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Artifact, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var artifacts []*models.Artifact
	if err := db.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("id ASC").Find(&artifacts).Error; err != nil {
		return nil, fmt.Errorf("failed to get artifacts: %w", err)
	}
	return artifacts, nil
}
