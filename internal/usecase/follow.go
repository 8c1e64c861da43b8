package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/mac"
)

type FollowerRepository interface {
	Create(ctx context.Context, follower domain.Follower) (domain.Follower, error)
	Get(ctx context.Context, entityID, id int64) (domain.Follower, error)
	List(ctx context.Context, entityID int64) ([]domain.Follower, error)
	Update(ctx context.Context, follower domain.Follower) (domain.Follower, error)
	Delete(ctx context.Context, entityID, id int64) error
}

type FollowingRepository interface {
	Create(ctx context.Context, following domain.Following) (domain.Following, error)
	Get(ctx context.Context, entityID, id int64) (domain.Following, error)
	List(ctx context.Context, entityID int64) ([]domain.Following, error)
	Delete(ctx context.Context, entityID, id int64) error
}

// Discoverer resolves a remote identity to its profile document.
type Discoverer interface {
	Discover(ctx context.Context, identity string) (tent.ProfileDocument, error)
}

// Notifier performs the notification-path handshake against a remote server
// and reports the status code it answered with.
type Notifier interface {
	Notify(ctx context.Context, apiRoot, path string) (int, error)
}

// FollowRequest is the body a remote server posts to start following us.
type FollowRequest struct {
	Entity           string          `json:"entity"`
	Licences         json.RawMessage `json:"licences"`
	Types            json.RawMessage `json:"types"`
	NotificationPath string          `json:"notification_path"`
}

// FollowerUpdate carries the fields a follower may change after the fact.
// Nil pointers and nil slices mean "leave as is".
type FollowerUpdate struct {
	Entity           *string         `json:"entity"`
	Permissions      json.RawMessage `json:"permissions"`
	Licenses         json.RawMessage `json:"licenses"`
	Types            json.RawMessage `json:"types"`
	NotificationPath *string         `json:"notification_path"`
}

type FollowUsecase struct {
	followers  FollowerRepository
	followings FollowingRepository
	discoverer Discoverer
	notifier   Notifier
}

func NewFollowUsecase(followers FollowerRepository, followings FollowingRepository, discoverer Discoverer, notifier Notifier) *FollowUsecase {
	return &FollowUsecase{
		followers:  followers,
		followings: followings,
		discoverer: discoverer,
		notifier:   notifier,
	}
}

func (u *FollowUsecase) discover(ctx context.Context, identity string) (tent.CoreProfile, error) {
	document, err := u.discoverer.Discover(ctx, identity)
	if err != nil {
		return tent.CoreProfile{}, err
	}
	core, err := document.Core()
	if err != nil {
		return tent.CoreProfile{}, domain.DiscoveryError{Reason: identity + ": " + err.Error()}
	}
	if len(core.Servers) == 0 {
		return tent.CoreProfile{}, domain.DiscoveryError{Reason: identity + " lists no servers"}
	}
	return core, nil
}

// StartFollowing runs the follow handshake. The remote server is discovered,
// its notification path is pinged, and only a 200 answer lets the follower
// and its credentials be persisted.
func (u *FollowUsecase) StartFollowing(ctx context.Context, entity domain.Entity, req FollowRequest) (domain.Follower, error) {
	var missing []string
	if req.Entity == "" {
		missing = append(missing, "entity")
	}
	if req.Licences == nil {
		missing = append(missing, "licences")
	}
	if req.Types == nil {
		missing = append(missing, "types")
	}
	if req.NotificationPath == "" {
		missing = append(missing, "notification_path")
	}
	if len(missing) > 0 {
		return domain.Follower{}, domain.BadRequestError{Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	core, err := u.discover(ctx, req.Entity)
	if err != nil {
		return domain.Follower{}, err
	}

	status, err := u.notifier.Notify(ctx, core.Servers[0], req.NotificationPath)
	if err != nil {
		return domain.Follower{}, domain.NotificationError{Identity: core.Entity, Path: req.NotificationPath}
	}
	if status != 200 {
		return domain.Follower{}, domain.NotificationError{Identity: core.Entity, Path: req.NotificationPath, Status: status}
	}

	macID, macKey, err := mac.GenerateKeyPair()
	if err != nil {
		return domain.Follower{}, err
	}

	follower := domain.Follower{
		EntityID:         entity.ID,
		Identity:         core.Entity,
		Servers:          core.Servers,
		NotificationPath: req.NotificationPath,
		Licenses:         req.Licences,
		Types:            req.Types,
		KeyPair: domain.KeyPair{
			MacID:        macID,
			MacKey:       macKey,
			MacAlgorithm: mac.Algorithm,
		},
	}
	return u.followers.Create(ctx, follower)
}

func (u *FollowUsecase) GetFollower(ctx context.Context, entity domain.Entity, id int64) (domain.Follower, error) {
	return u.followers.Get(ctx, entity.ID, id)
}

func (u *FollowUsecase) ListFollowers(ctx context.Context, entity domain.Entity) ([]domain.Follower, error) {
	return u.followers.List(ctx, entity.ID)
}

// UpdateFollower applies a partial update. Changing the identity triggers a
// fresh discovery so the stored server list stays truthful.
func (u *FollowUsecase) UpdateFollower(ctx context.Context, entity domain.Entity, id int64, update FollowerUpdate) (domain.Follower, error) {
	follower, err := u.followers.Get(ctx, entity.ID, id)
	if err != nil {
		return domain.Follower{}, err
	}

	if update.Entity != nil {
		core, err := u.discover(ctx, *update.Entity)
		if err != nil {
			return domain.Follower{}, err
		}
		follower.Identity = core.Entity
		follower.Servers = core.Servers
	}
	if update.Permissions != nil {
		follower.Permissions = update.Permissions
	}
	if update.Licenses != nil {
		follower.Licenses = update.Licenses
	}
	if update.Types != nil {
		follower.Types = update.Types
	}
	if update.NotificationPath != nil {
		follower.NotificationPath = *update.NotificationPath
	}

	return u.followers.Update(ctx, follower)
}

func (u *FollowUsecase) StopFollowing(ctx context.Context, entity domain.Entity, id int64) error {
	return u.followers.Delete(ctx, entity.ID, id)
}

// Follow records a remote entity this entity follows. The identity is
// discovered first so the canonical form is what gets stored.
func (u *FollowUsecase) Follow(ctx context.Context, entity domain.Entity, identity string) (domain.Following, error) {
	if identity == "" {
		return domain.Following{}, domain.BadRequestError{Reason: "missing required fields: entity"}
	}
	core, err := u.discover(ctx, identity)
	if err != nil {
		return domain.Following{}, err
	}
	return u.followings.Create(ctx, domain.Following{
		EntityID: entity.ID,
		Identity: core.Entity,
	})
}

func (u *FollowUsecase) GetFollowing(ctx context.Context, entity domain.Entity, id int64) (domain.Following, error) {
	return u.followings.Get(ctx, entity.ID, id)
}

func (u *FollowUsecase) ListFollowings(ctx context.Context, entity domain.Entity) ([]domain.Following, error) {
	return u.followings.List(ctx, entity.ID)
}

func (u *FollowUsecase) Unfollow(ctx context.Context, entity domain.Entity, id int64) error {
	return u.followings.Delete(ctx, entity.ID, id)
}
