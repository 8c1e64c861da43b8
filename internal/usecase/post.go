package usecase

import (
	"context"
	"time"

	"github.com/tentd/tentd/internal/domain"
)

type PostRepository interface {
	Create(ctx context.Context, post domain.Post) (domain.Post, error)
	Get(ctx context.Context, entityID, id int64) (domain.Post, error)
	List(ctx context.Context, entityID int64, limit int) ([]domain.Post, error)
	AddVersion(ctx context.Context, postID int64, version domain.Version) error
	DeleteVersion(ctx context.Context, versionID int64) error
	Delete(ctx context.Context, entityID, id int64) error
}

// Broadcaster fans a freshly published post out to the entity's followers.
// Implementations must return without blocking on remote servers.
type Broadcaster interface {
	Broadcast(entity domain.Entity, post map[string]any)
}

const maxPostPage = 200

// PostRequest is the body for publishing a post. ReceivedAt is decoded only
// so that callers trying to set it can be rejected.
type PostRequest struct {
	Type        string           `json:"type"`
	Content     map[string]any   `json:"content"`
	PublishedAt *time.Time       `json:"published_at"`
	ReceivedAt  *time.Time       `json:"received_at"`
	Mentions    []domain.Mention `json:"mentions"`
}

// VersionRequest is the body for appending a version to an existing post.
type VersionRequest struct {
	Content     map[string]any   `json:"content"`
	PublishedAt *time.Time       `json:"published_at"`
	Mentions    []domain.Mention `json:"mentions"`
}

type PostUsecase struct {
	repo        PostRepository
	profiles    *ProfileUsecase
	broadcaster Broadcaster
}

func NewPostUsecase(repo PostRepository, profiles *ProfileUsecase, broadcaster Broadcaster) *PostUsecase {
	return &PostUsecase{
		repo:        repo,
		profiles:    profiles,
		broadcaster: broadcaster,
	}
}

// Create publishes a new post and kicks off delivery to followers.
func (u *PostUsecase) Create(ctx context.Context, entity domain.Entity, req PostRequest) (map[string]any, error) {
	if req.Type == "" {
		return nil, domain.BadRequestError{Reason: "posts must declare a type"}
	}
	if req.ReceivedAt != nil {
		return nil, domain.BadRequestError{Reason: "received_at is assigned by the server"}
	}

	now := time.Now().UTC()
	publishedAt := now
	if req.PublishedAt != nil {
		publishedAt = *req.PublishedAt
	}

	post := domain.Post{
		EntityID: entity.ID,
		Schema:   req.Type,
	}
	post.AddVersion(domain.Version{
		Content:     req.Content,
		PublishedAt: publishedAt,
		ReceivedAt:  now,
		Mentions:    req.Mentions,
	})

	created, err := u.repo.Create(ctx, post)
	if err != nil {
		return nil, err
	}

	representation, err := u.represent(ctx, entity, created)
	if err != nil {
		return nil, err
	}
	if u.broadcaster != nil {
		u.broadcaster.Broadcast(entity, representation)
	}
	return representation, nil
}

func (u *PostUsecase) Get(ctx context.Context, entity domain.Entity, id int64) (map[string]any, error) {
	post, err := u.repo.Get(ctx, entity.ID, id)
	if err != nil {
		return nil, err
	}
	return u.represent(ctx, entity, post)
}

func (u *PostUsecase) List(ctx context.Context, entity domain.Entity, limit int) ([]map[string]any, error) {
	if limit <= 0 || limit > maxPostPage {
		limit = maxPostPage
	}
	posts, err := u.repo.List(ctx, entity.ID, limit)
	if err != nil {
		return nil, err
	}
	identity, err := u.profiles.Identity(ctx, entity)
	if err != nil {
		return nil, err
	}
	representations := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		representations = append(representations, post.Representation(identity))
	}
	return representations, nil
}

// NewVersion appends a version to a post. The post's representation always
// reflects the newest published_at, whichever order versions arrived in.
func (u *PostUsecase) NewVersion(ctx context.Context, entity domain.Entity, id int64, req VersionRequest) (map[string]any, error) {
	post, err := u.repo.Get(ctx, entity.ID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	publishedAt := now
	if req.PublishedAt != nil {
		publishedAt = *req.PublishedAt
	}
	version := domain.Version{
		Content:     req.Content,
		PublishedAt: publishedAt,
		ReceivedAt:  now,
		Mentions:    req.Mentions,
	}
	if err := u.repo.AddVersion(ctx, post.ID, version); err != nil {
		return nil, err
	}
	return u.Get(ctx, entity, id)
}

func (u *PostUsecase) Versions(ctx context.Context, entity domain.Entity, id int64) ([]domain.Version, error) {
	post, err := u.repo.Get(ctx, entity.ID, id)
	if err != nil {
		return nil, err
	}
	return post.Versions, nil
}

func (u *PostUsecase) Mentions(ctx context.Context, entity domain.Entity, id int64) ([]domain.Mention, error) {
	post, err := u.repo.Get(ctx, entity.ID, id)
	if err != nil {
		return nil, err
	}
	mentions := post.Latest().Mentions
	if mentions == nil {
		mentions = []domain.Mention{}
	}
	return mentions, nil
}

// Delete removes the whole post, or a single version when one is named.
// A post always keeps at least one version.
func (u *PostUsecase) Delete(ctx context.Context, entity domain.Entity, id int64, version *int) error {
	post, err := u.repo.Get(ctx, entity.ID, id)
	if err != nil {
		return err
	}
	if version == nil {
		return u.repo.Delete(ctx, entity.ID, id)
	}
	if *version < 0 || *version >= len(post.Versions) {
		return domain.BadRequestError{Reason: "no such version"}
	}
	if len(post.Versions) == 1 {
		return domain.BadRequestError{Reason: "a post cannot lose its last version"}
	}
	return u.repo.DeleteVersion(ctx, post.Versions[*version].ID)
}

func (u *PostUsecase) represent(ctx context.Context, entity domain.Entity, post domain.Post) (map[string]any, error) {
	identity, err := u.profiles.Identity(ctx, entity)
	if err != nil {
		return nil, err
	}
	return post.Representation(identity), nil
}
