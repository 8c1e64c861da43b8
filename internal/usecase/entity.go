package usecase

import (
	"context"
	"strings"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

type EntityRepository interface {
	Create(ctx context.Context, name string) (domain.Entity, error)
	GetByName(ctx context.Context, name string) (domain.Entity, error)
	List(ctx context.Context) ([]domain.Entity, error)
	Delete(ctx context.Context, id int64) error
}

type EntityUsecase struct {
	repo      EntityRepository
	profiles  ProfileRepository
	publicURL string
}

func NewEntityUsecase(repo EntityRepository, profiles ProfileRepository, publicURL string) *EntityUsecase {
	return &EntityUsecase{
		repo:      repo,
		profiles:  profiles,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// IdentityFor is the canonical identity URI served for a local entity.
func (u *EntityUsecase) IdentityFor(name string) string {
	return u.publicURL + "/" + name
}

// ProfileURLFor is where the entity's profile document is served.
func (u *EntityUsecase) ProfileURLFor(name string) string {
	return u.IdentityFor(name) + "/profile"
}

// Create registers a new local entity and seeds its core profile so the
// entity is discoverable immediately.
func (u *EntityUsecase) Create(ctx context.Context, name string) (domain.Entity, error) {
	if name == "" || strings.ContainsAny(name, "/ ") {
		return domain.Entity{}, domain.BadRequestError{Reason: "invalid entity name"}
	}

	entity, err := u.repo.Create(ctx, name)
	if err != nil {
		return domain.Entity{}, err
	}

	identity := u.IdentityFor(name)
	core := domain.Profile{
		EntityID: entity.ID,
		Schema:   tent.CoreProfileSchema,
		Kind:     domain.ProfileCore,
		Content:  domain.CoreProfileContent(identity, []string{identity}),
	}
	if _, err := u.profiles.Create(ctx, core); err != nil {
		return domain.Entity{}, err
	}

	return entity, nil
}

func (u *EntityUsecase) Get(ctx context.Context, name string) (domain.Entity, error) {
	return u.repo.GetByName(ctx, name)
}

func (u *EntityUsecase) List(ctx context.Context) ([]domain.Entity, error) {
	return u.repo.List(ctx)
}

// Delete removes the entity and everything it owns.
func (u *EntityUsecase) Delete(ctx context.Context, name string) error {
	entity, err := u.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return u.repo.Delete(ctx, entity.ID)
}
