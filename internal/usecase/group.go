package usecase

import (
	"context"

	"github.com/tentd/tentd/internal/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, group domain.Group) (domain.Group, error)
	Get(ctx context.Context, entityID int64, name string) (domain.Group, error)
	List(ctx context.Context, entityID int64) ([]domain.Group, error)
	Rename(ctx context.Context, entityID int64, name, newName string) (domain.Group, error)
	Delete(ctx context.Context, entityID int64, name string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) (domain.Notification, error)
	List(ctx context.Context, entityID int64) ([]domain.Notification, error)
}

type GroupUsecase struct {
	repo GroupRepository
}

func NewGroupUsecase(repo GroupRepository) *GroupUsecase {
	return &GroupUsecase{repo: repo}
}

func (u *GroupUsecase) Create(ctx context.Context, entity domain.Entity, name string) (domain.Group, error) {
	if name == "" {
		return domain.Group{}, domain.BadRequestError{Reason: "groups must have a name"}
	}
	return u.repo.Create(ctx, domain.Group{EntityID: entity.ID, Name: name})
}

func (u *GroupUsecase) Get(ctx context.Context, entity domain.Entity, name string) (domain.Group, error) {
	return u.repo.Get(ctx, entity.ID, name)
}

func (u *GroupUsecase) List(ctx context.Context, entity domain.Entity) ([]domain.Group, error) {
	return u.repo.List(ctx, entity.ID)
}

func (u *GroupUsecase) Rename(ctx context.Context, entity domain.Entity, name, newName string) (domain.Group, error) {
	if newName == "" {
		return domain.Group{}, domain.BadRequestError{Reason: "groups must have a name"}
	}
	return u.repo.Rename(ctx, entity.ID, name, newName)
}

func (u *GroupUsecase) Delete(ctx context.Context, entity domain.Entity, name string) error {
	return u.repo.Delete(ctx, entity.ID, name)
}

type NotificationUsecase struct {
	repo NotificationRepository
}

func NewNotificationUsecase(repo NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{repo: repo}
}

// Record stores an inbound notification delivered by a followed server.
func (u *NotificationUsecase) Record(ctx context.Context, entity domain.Entity, postID string) (domain.Notification, error) {
	return u.repo.Create(ctx, domain.Notification{
		EntityID: entity.ID,
		PostID:   postID,
	})
}

func (u *NotificationUsecase) List(ctx context.Context, entity domain.Entity) ([]domain.Notification, error) {
	return u.repo.List(ctx, entity.ID)
}
