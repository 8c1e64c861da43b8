package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/mac"
)

var tracer = otel.Tracer("service")

// ErrInvalidCredentials is returned for any authentication failure. Callers
// must not leak which check failed.
var ErrInvalidCredentials = errors.New("invalid MAC credentials")

const nonceWindow = 5 * time.Minute

type KeyPairSource interface {
	GetKeyPairByMacID(ctx context.Context, macID string) (domain.KeyPair, error)
}

type AuthService struct {
	keypairs KeyPairSource
	rdb      *redis.Client
}

// NewAuthService wires MAC verification over the stored follower keypairs.
// redisClient may be nil, which disables nonce replay tracking.
func NewAuthService(keypairs KeyPairSource, redisClient *redis.Client) *AuthService {
	return &AuthService{
		keypairs: keypairs,
		rdb:      redisClient,
	}
}

// Authenticate verifies the Authorization header on r and returns the keypair
// that signed it.
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (domain.KeyPair, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Authenticate")
	defer span.End()

	header, err := mac.ParseHeader(r.Header.Get("Authorization"))
	if err != nil {
		span.RecordError(err)
		return domain.KeyPair{}, ErrInvalidCredentials
	}

	keypair, err := s.keypairs.GetKeyPairByMacID(ctx, header.ID)
	if err != nil {
		span.RecordError(err)
		return domain.KeyPair{}, ErrInvalidCredentials
	}

	if !mac.Verify(r, header, keypair.MacKey) {
		span.RecordError(fmt.Errorf("signature mismatch for %s", header.ID))
		return domain.KeyPair{}, ErrInvalidCredentials
	}

	if err := s.checkNonce(ctx, header); err != nil {
		span.RecordError(err)
		return domain.KeyPair{}, ErrInvalidCredentials
	}

	return keypair, nil
}

func (s *AuthService) checkNonce(ctx context.Context, header mac.Header) error {
	if s.rdb == nil {
		return nil
	}
	key := fmt.Sprintf("tentd:nonce:%s:%s:%s", header.ID, header.TS, header.Nonce)
	fresh, err := s.rdb.SetNX(ctx, key, 1, nonceWindow).Result()
	if err != nil {
		return errors.Wrap(err, "nonce store unavailable")
	}
	if !fresh {
		return fmt.Errorf("nonce replayed: %s", key)
	}
	return nil
}
