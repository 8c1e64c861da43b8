package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

type mockFollowerRepo struct {
	followers map[int64]domain.Follower
	nextID    int64
}

func newMockFollowerRepo() *mockFollowerRepo {
	return &mockFollowerRepo{followers: map[int64]domain.Follower{}, nextID: 1}
}

func (m *mockFollowerRepo) Create(ctx context.Context, follower domain.Follower) (domain.Follower, error) {
	follower.ID = m.nextID
	follower.KeyPair.FollowerID = follower.ID
	m.nextID++
	m.followers[follower.ID] = follower
	return follower, nil
}

func (m *mockFollowerRepo) Get(ctx context.Context, entityID, id int64) (domain.Follower, error) {
	follower, ok := m.followers[id]
	if !ok || follower.EntityID != entityID {
		return domain.Follower{}, domain.NotFoundError{Resource: "follower"}
	}
	return follower, nil
}

func (m *mockFollowerRepo) List(ctx context.Context, entityID int64) ([]domain.Follower, error) {
	var out []domain.Follower
	for _, follower := range m.followers {
		if follower.EntityID == entityID {
			out = append(out, follower)
		}
	}
	return out, nil
}

func (m *mockFollowerRepo) Update(ctx context.Context, follower domain.Follower) (domain.Follower, error) {
	if _, ok := m.followers[follower.ID]; !ok {
		return domain.Follower{}, domain.NotFoundError{Resource: "follower"}
	}
	m.followers[follower.ID] = follower
	return follower, nil
}

func (m *mockFollowerRepo) Delete(ctx context.Context, entityID, id int64) error {
	if _, ok := m.followers[id]; !ok {
		return domain.NotFoundError{Resource: "follower"}
	}
	delete(m.followers, id)
	return nil
}

type mockFollowingRepo struct {
	followings []domain.Following
}

func (m *mockFollowingRepo) Create(ctx context.Context, following domain.Following) (domain.Following, error) {
	following.ID = int64(len(m.followings) + 1)
	m.followings = append(m.followings, following)
	return following, nil
}

func (m *mockFollowingRepo) Get(ctx context.Context, entityID, id int64) (domain.Following, error) {
	for _, following := range m.followings {
		if following.ID == id && following.EntityID == entityID {
			return following, nil
		}
	}
	return domain.Following{}, domain.NotFoundError{Resource: "following"}
}

func (m *mockFollowingRepo) List(ctx context.Context, entityID int64) ([]domain.Following, error) {
	return m.followings, nil
}

func (m *mockFollowingRepo) Delete(ctx context.Context, entityID, id int64) error {
	for i, following := range m.followings {
		if following.ID == id {
			m.followings = append(m.followings[:i], m.followings[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Resource: "following"}
}

type mockDiscoverer struct {
	profiles map[string]tent.ProfileDocument
	calls    int
}

func (m *mockDiscoverer) Discover(ctx context.Context, identity string) (tent.ProfileDocument, error) {
	m.calls++
	document, ok := m.profiles[identity]
	if !ok {
		return nil, domain.DiscoveryError{Reason: identity + " unreachable"}
	}
	return document, nil
}

type mockNotifier struct {
	status int
	err    error
	calls  int
	paths  []string
}

func (m *mockNotifier) Notify(ctx context.Context, apiRoot, path string) (int, error) {
	m.calls++
	m.paths = append(m.paths, path)
	return m.status, m.err
}

func discoveredProfile(t *testing.T, identity string, servers []string) tent.ProfileDocument {
	t.Helper()
	core, err := json.Marshal(map[string]any{
		"entity":  identity,
		"servers": servers,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tent.ProfileDocument{tent.CoreProfileSchema: core}
}

func validFollowRequest() FollowRequest {
	return FollowRequest{
		Entity:           "https://alice.example.com",
		Licences:         json.RawMessage(`[]`),
		Types:            json.RawMessage(`["all"]`),
		NotificationPath: "notifications",
	}
}

func TestStartFollowing(t *testing.T) {
	followers := newMockFollowerRepo()
	discoverer := &mockDiscoverer{profiles: map[string]tent.ProfileDocument{
		"https://alice.example.com": discoveredProfile(t, "https://alice.example.com", []string{"https://alice.example.com/tent"}),
	}}
	notifier := &mockNotifier{status: 200}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, discoverer, notifier)

	follower, err := uc.StartFollowing(context.Background(), domain.Entity{ID: 1, Name: "bob"}, validFollowRequest())
	if err != nil {
		t.Fatalf("start following: %v", err)
	}

	if notifier.calls != 1 {
		t.Errorf("notifier called %d times, want 1", notifier.calls)
	}
	if notifier.paths[0] != "notifications" {
		t.Errorf("notified path %q", notifier.paths[0])
	}
	if follower.Identity != "https://alice.example.com" {
		t.Errorf("identity %q", follower.Identity)
	}
	if len(follower.Servers) != 1 || follower.Servers[0] != "https://alice.example.com/tent" {
		t.Errorf("servers %v", follower.Servers)
	}
	if follower.KeyPair.MacID == "" || follower.KeyPair.MacKey == "" {
		t.Error("follower has no credentials")
	}
	if follower.KeyPair.MacAlgorithm != "hmac-sha-256" {
		t.Errorf("algorithm %q", follower.KeyPair.MacAlgorithm)
	}
}

func TestStartFollowingRejectsIncompleteRequest(t *testing.T) {
	followers := newMockFollowerRepo()
	discoverer := &mockDiscoverer{}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, discoverer, &mockNotifier{status: 200})

	req := validFollowRequest()
	req.NotificationPath = ""
	_, err := uc.StartFollowing(context.Background(), domain.Entity{ID: 1}, req)
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}
	if discoverer.calls != 0 {
		t.Error("discovery attempted for an invalid request")
	}
}

func TestStartFollowingFailedNotificationPersistsNothing(t *testing.T) {
	followers := newMockFollowerRepo()
	discoverer := &mockDiscoverer{profiles: map[string]tent.ProfileDocument{
		"https://alice.example.com": discoveredProfile(t, "https://alice.example.com", []string{"https://alice.example.com/tent"}),
	}}
	notifier := &mockNotifier{status: 404}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, discoverer, notifier)

	_, err := uc.StartFollowing(context.Background(), domain.Entity{ID: 1}, validFollowRequest())

	var notificationErr domain.NotificationError
	if !errors.As(err, &notificationErr) {
		t.Fatalf("want notification error, got %v", err)
	}
	if notificationErr.Status != 404 {
		t.Errorf("status %d, want 404", notificationErr.Status)
	}
	if len(followers.followers) != 0 {
		t.Errorf("%d followers persisted after failed handshake", len(followers.followers))
	}
}

func TestStartFollowingUndiscoverableEntity(t *testing.T) {
	followers := newMockFollowerRepo()
	notifier := &mockNotifier{status: 200}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, &mockDiscoverer{}, notifier)

	_, err := uc.StartFollowing(context.Background(), domain.Entity{ID: 1}, validFollowRequest())
	var discoveryErr domain.DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("want discovery error, got %v", err)
	}
	if notifier.calls != 0 {
		t.Error("notification attempted without discovery")
	}
	if len(followers.followers) != 0 {
		t.Error("follower persisted without discovery")
	}
}

func TestUpdateFollowerPartial(t *testing.T) {
	followers := newMockFollowerRepo()
	discoverer := &mockDiscoverer{profiles: map[string]tent.ProfileDocument{
		"https://alice.example.com": discoveredProfile(t, "https://alice.example.com", []string{"https://alice.example.com/tent"}),
	}}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, discoverer, &mockNotifier{status: 200})

	entity := domain.Entity{ID: 1}
	created, err := uc.StartFollowing(context.Background(), entity, validFollowRequest())
	if err != nil {
		t.Fatal(err)
	}

	types := json.RawMessage(`["https://tent.io/types/post/status/v0.1.0"]`)
	updated, err := uc.UpdateFollower(context.Background(), entity, created.ID, FollowerUpdate{Types: types})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if string(updated.Types) != string(types) {
		t.Errorf("types %s", updated.Types)
	}
	if updated.Identity != created.Identity {
		t.Error("identity changed on a partial update")
	}
	if updated.NotificationPath != created.NotificationPath {
		t.Error("notification path changed on a partial update")
	}
	if discoverer.calls != 1 {
		t.Errorf("discovery ran %d times, want 1 (create only)", discoverer.calls)
	}
}

func TestUpdateFollowerEntityTriggersDiscovery(t *testing.T) {
	followers := newMockFollowerRepo()
	discoverer := &mockDiscoverer{profiles: map[string]tent.ProfileDocument{
		"https://alice.example.com": discoveredProfile(t, "https://alice.example.com", []string{"https://alice.example.com/tent"}),
		"https://carol.example.com": discoveredProfile(t, "https://carol.example.com", []string{"https://carol.example.com/api"}),
	}}
	uc := NewFollowUsecase(followers, &mockFollowingRepo{}, discoverer, &mockNotifier{status: 200})

	entity := domain.Entity{ID: 1}
	created, err := uc.StartFollowing(context.Background(), entity, validFollowRequest())
	if err != nil {
		t.Fatal(err)
	}

	identity := "https://carol.example.com"
	updated, err := uc.UpdateFollower(context.Background(), entity, created.ID, FollowerUpdate{Entity: &identity})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Identity != identity {
		t.Errorf("identity %q", updated.Identity)
	}
	if len(updated.Servers) != 1 || updated.Servers[0] != "https://carol.example.com/api" {
		t.Errorf("servers %v not refreshed", updated.Servers)
	}
}

func TestFollowStoresCanonicalIdentity(t *testing.T) {
	followings := &mockFollowingRepo{}
	discoverer := &mockDiscoverer{profiles: map[string]tent.ProfileDocument{
		"https://alice.example.com": discoveredProfile(t, "https://alice.example.com/", []string{"https://alice.example.com/tent"}),
	}}
	uc := NewFollowUsecase(newMockFollowerRepo(), followings, discoverer, &mockNotifier{status: 200})

	following, err := uc.Follow(context.Background(), domain.Entity{ID: 1}, "https://alice.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if following.Identity != "https://alice.example.com/" {
		t.Errorf("stored identity %q, want the discovered canonical form", following.Identity)
	}
}
