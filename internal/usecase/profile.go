package usecase

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

type ProfileRepository interface {
	GetAll(ctx context.Context, entityID int64) (tent.ProfileDocument, error)
	Get(ctx context.Context, entityID int64, schema string) (domain.Profile, error)
	Create(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	Update(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	Delete(ctx context.Context, entityID int64, schema string) error
}

type ProfileUsecase struct {
	repo ProfileRepository
}

func NewProfileUsecase(repo ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{repo: repo}
}

// GetDocument assembles the full profile document keyed by schema URI.
func (u *ProfileUsecase) GetDocument(ctx context.Context, entity domain.Entity) (tent.ProfileDocument, error) {
	return u.repo.GetAll(ctx, entity.ID)
}

func (u *ProfileUsecase) Get(ctx context.Context, entity domain.Entity, schema string) (domain.Profile, error) {
	return u.repo.Get(ctx, entity.ID, schema)
}

// Identity reads the canonical identity URI out of the entity's core profile.
func (u *ProfileUsecase) Identity(ctx context.Context, entity domain.Entity) (string, error) {
	core, err := u.repo.Get(ctx, entity.ID, tent.CoreProfileSchema)
	if err != nil {
		return "", errors.Wrap(err, "entity has no core profile")
	}
	return core.Identity(), nil
}

// Put creates or replaces the profile stored under schema. The core
// profile must keep the entity discoverable: a body that omits the
// entity or server list falls back to the stored core values.
func (u *ProfileUsecase) Put(ctx context.Context, entity domain.Entity, schema string, content map[string]any) (domain.Profile, error) {
	profile, err := domain.NewProfile(entity.ID, schema, content)
	if err != nil {
		return domain.Profile{}, err
	}

	existing, err := u.repo.Get(ctx, entity.ID, schema)
	if err == nil {
		if profile.Kind == domain.ProfileCore {
			if profile.Identity() == "" {
				profile.Content["entity"] = existing.Identity()
			}
			if _, ok := profile.Content["servers"]; !ok {
				profile.Content["servers"] = existing.Content["servers"]
			}
		}
		profile.ID = existing.ID
		return u.repo.Update(ctx, profile)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{}, err
	}
	if profile.Kind == domain.ProfileCore && profile.Identity() == "" {
		return domain.Profile{}, domain.BadRequestError{Reason: "a core profile must declare its entity"}
	}
	return u.repo.Create(ctx, profile)
}

// Delete removes a profile variant. The core profile cannot be deleted
// because discovery depends on it.
func (u *ProfileUsecase) Delete(ctx context.Context, entity domain.Entity, schema string) error {
	if schema == tent.CoreProfileSchema {
		return domain.BadRequestError{Reason: "the core profile cannot be deleted"}
	}
	return u.repo.Delete(ctx, entity.ID, schema)
}
