package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group domain.Group) (domain.Group, error) {
	row := models.Group{
		EntityID: group.EntityID,
		Name:     group.Name,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.Group{}, domain.NotUniqueError{Resource: "group"}
	}
	if err != nil {
		return domain.Group{}, err
	}
	return groupToDomain(row), nil
}

func (r *GroupRepository) Get(ctx context.Context, entityID int64, name string) (domain.Group, error) {
	var row models.Group
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND name = ?", entityID, name).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	if err != nil {
		return domain.Group{}, err
	}
	return groupToDomain(row), nil
}

func (r *GroupRepository) List(ctx context.Context, entityID int64) ([]domain.Group, error) {
	var rows []models.Group
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, groupToDomain(row))
	}
	return groups, nil
}

// Rename changes a group's name, keeping (entity, name) unique.
func (r *GroupRepository) Rename(ctx context.Context, entityID int64, name, newName string) (domain.Group, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Group{}).
		Where("entity_id = ? AND name = ?", entityID, name).
		Update("name", newName)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return domain.Group{}, domain.NotUniqueError{Resource: "group"}
	}
	if result.Error != nil {
		return domain.Group{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	return r.Get(ctx, entityID, newName)
}

func (r *GroupRepository) Delete(ctx context.Context, entityID int64, name string) error {
	result := r.db.WithContext(ctx).
		Where("entity_id = ? AND name = ?", entityID, name).
		Delete(&models.Group{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "group"}
	}
	return nil
}

func groupToDomain(row models.Group) domain.Group {
	return domain.Group{
		ID:        row.ID,
		EntityID:  row.EntityID,
		Name:      row.Name,
		CreatedAt: row.CDate,
	}
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification domain.Notification) (domain.Notification, error) {
	row := models.Notification{
		EntityID:   notification.EntityID,
		PostID:     notification.PostID,
		ReceivedAt: notification.ReceivedAt,
	}
	if row.ReceivedAt.IsZero() {
		row.ReceivedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{
		ID:         row.ID,
		EntityID:   row.EntityID,
		PostID:     row.PostID,
		ReceivedAt: row.ReceivedAt,
	}, nil
}

func (r *NotificationRepository) List(ctx context.Context, entityID int64) ([]domain.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("received_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	notifications := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, domain.Notification{
			ID:         row.ID,
			EntityID:   row.EntityID,
			PostID:     row.PostID,
			ReceivedAt: row.ReceivedAt,
		})
	}
	return notifications, nil
}
