package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

type FollowingRepository struct {
	db *gorm.DB
}

func NewFollowingRepository(db *gorm.DB) *FollowingRepository {
	return &FollowingRepository{db: db}
}

func (r *FollowingRepository) Create(ctx context.Context, following domain.Following) (domain.Following, error) {
	row := models.Following{
		EntityID: following.EntityID,
		Identity: following.Identity,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.Following{}, domain.NotUniqueError{Resource: "following"}
	}
	if err != nil {
		return domain.Following{}, err
	}
	return followingToDomain(row), nil
}

func (r *FollowingRepository) Get(ctx context.Context, entityID, id int64) (domain.Following, error) {
	var row models.Following
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND id = ?", entityID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Following{}, domain.NotFoundError{Resource: "following"}
	}
	if err != nil {
		return domain.Following{}, err
	}
	return followingToDomain(row), nil
}

func (r *FollowingRepository) List(ctx context.Context, entityID int64) ([]domain.Following, error) {
	var rows []models.Following
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	followings := make([]domain.Following, 0, len(rows))
	for _, row := range rows {
		followings = append(followings, followingToDomain(row))
	}
	return followings, nil
}

func (r *FollowingRepository) Delete(ctx context.Context, entityID, id int64) error {
	result := r.db.WithContext(ctx).
		Where("entity_id = ? AND id = ?", entityID, id).
		Delete(&models.Following{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "following"}
	}
	return nil
}

func followingToDomain(row models.Following) domain.Following {
	return domain.Following{
		ID:        row.ID,
		EntityID:  row.EntityID,
		Identity:  row.Identity,
		CreatedAt: row.CDate,
	}
}
