package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// SignalService relays post events through redis pubsub so every server
// process can feed its websocket subscribers.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func channelFor(entityName string) string {
	return "tentd:posts:" + entityName
}

func (s *SignalService) PublishPost(ctx context.Context, entityName string, post map[string]any) error {
	jsonstr, err := json.Marshal(post)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, channelFor(entityName), jsonstr).Err()
}

// Subscribe streams raw post payloads for an entity until ctx is cancelled.
func (s *SignalService) Subscribe(ctx context.Context, entityName string) (<-chan []byte, func()) {
	pubsub := s.rdb.Subscribe(ctx, channelFor(entityName))
	out := make(chan []byte)

	go func() {
		defer close(out)
		for {
			message, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			select {
			case out <- []byte(message.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { pubsub.Close() }
}
