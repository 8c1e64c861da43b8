package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tentd/tentd/internal/domain"
)

type FollowerSource interface {
	List(ctx context.Context, entityID int64) ([]domain.Follower, error)
}

type Deliverer interface {
	DeliverPost(ctx context.Context, apiRoot, notificationPath string, post map[string]any) error
}

// NotifierService pushes published posts to every follower's notification
// path. Deliveries run in the background on a bounded pool so publishing
// never waits on a slow remote server.
type NotifierService struct {
	deliverer Deliverer
	followers FollowerSource
	signal    *SignalService
	sem       chan struct{}
	timeout   time.Duration
}

// NewNotifierService builds a notifier with at most workers in-flight
// deliveries. signal may be nil when realtime events are disabled.
func NewNotifierService(deliverer Deliverer, followers FollowerSource, signal *SignalService, workers int, timeout time.Duration) *NotifierService {
	if workers <= 0 {
		workers = 1
	}
	return &NotifierService{
		deliverer: deliverer,
		followers: followers,
		signal:    signal,
		sem:       make(chan struct{}, workers),
		timeout:   timeout,
	}
}

// Broadcast returns as soon as the follower list is read. Each delivery gets
// its own deadline, detached from the request that published the post.
func (s *NotifierService) Broadcast(entity domain.Entity, post map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	followers, err := s.followers.List(ctx, entity.ID)
	cancel()
	if err != nil {
		slog.Error("failed to list followers for delivery", "entity", entity.Name, "error", err)
		return
	}

	if s.signal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.signal.PublishPost(ctx, entity.Name, post); err != nil {
			slog.Error("failed to publish post event", "entity", entity.Name, "error", err)
		}
		cancel()
	}

	go func() {
		for _, follower := range followers {
			if len(follower.Servers) == 0 {
				continue
			}
			s.sem <- struct{}{}
			go func(follower domain.Follower) {
				defer func() { <-s.sem }()
				s.deliver(follower, post)
			}(follower)
		}
	}()
}

func (s *NotifierService) deliver(follower domain.Follower, post map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.deliverer.DeliverPost(ctx, follower.Servers[0], follower.NotificationPath, post)
	if err != nil {
		slog.Warn("post delivery failed",
			"follower", follower.Identity,
			"path", follower.NotificationPath,
			"error", err,
		)
		return
	}
	slog.Debug("post delivered", "follower", follower.Identity)
}
