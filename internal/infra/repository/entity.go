package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) Create(ctx context.Context, name string) (domain.Entity, error) {
	entity := models.Entity{Name: name}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.Entity{}, domain.NotUniqueError{Resource: "entity"}
	}
	if err != nil {
		return domain.Entity{}, err
	}
	return domain.Entity{ID: entity.ID, Name: entity.Name}, nil
}

func (r *EntityRepository) GetByName(ctx context.Context, name string) (domain.Entity, error) {
	var entity models.Entity
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Entity{}, domain.NotFoundError{Resource: "entity"}
	}
	if err != nil {
		return domain.Entity{}, err
	}
	return domain.Entity{ID: entity.ID, Name: entity.Name}, nil
}

func (r *EntityRepository) List(ctx context.Context) ([]domain.Entity, error) {
	var rows []models.Entity
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	entities := make([]domain.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, domain.Entity{ID: row.ID, Name: row.Name})
	}
	return entities, nil
}

// Delete removes an entity and everything it owns in a fixed order:
// profiles, posts (mentions, versions), followers (keypairs), followings,
// groups, notifications. One transaction, so a failure leaves the entity
// intact.
func (r *EntityRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity models.Entity
		err := tx.Where("id = ?", id).Take(&entity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "entity"}
		}
		if err != nil {
			return err
		}

		if err := tx.Where("entity_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}

		postIDs := tx.Model(&models.Post{}).Select("id").Where("entity_id = ?", id)
		versionIDs := tx.Model(&models.Version{}).Select("id").Where("post_id IN (?)", postIDs)
		if err := tx.Where("version_id IN (?)", versionIDs).Delete(&models.Mention{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entity_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}

		followerIDs := tx.Model(&models.Follower{}).Select("id").Where("entity_id = ?", id)
		if err := tx.Where("follower_id IN (?)", followerIDs).Delete(&models.KeyPair{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entity_id = ?", id).Delete(&models.Follower{}).Error; err != nil {
			return err
		}

		if err := tx.Where("entity_id = ?", id).Delete(&models.Following{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entity_id = ?", id).Delete(&models.Group{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entity_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Entity{}, "id = ?", id).Error
	})
}
