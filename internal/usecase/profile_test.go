package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

func TestProfilePutCreatesThenReplaces(t *testing.T) {
	repo := newMockProfileRepo()
	uc := NewProfileUsecase(repo)
	entity := domain.Entity{ID: 1, Name: "bob"}

	schema := "https://tent.io/types/info/basic/v0.1.0"
	created, err := uc.Put(context.Background(), entity, schema, map[string]any{"name": "Bob"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if created.Kind != domain.ProfileBasic {
		t.Errorf("kind %v", created.Kind)
	}

	replaced, err := uc.Put(context.Background(), entity, schema, map[string]any{"name": "Robert"})
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if replaced.ID != created.ID {
		t.Error("replace allocated a new profile")
	}
	if replaced.Content["name"] != "Robert" {
		t.Errorf("content %v", replaced.Content)
	}
	if len(repo.profiles) != 1 {
		t.Fatalf("%d profiles stored, want 1", len(repo.profiles))
	}
}

func TestProfilePutCoreKeepsIdentity(t *testing.T) {
	repo := newMockProfileRepo()
	uc := NewProfileUsecase(repo)
	entity := domain.Entity{ID: 1, Name: "bob"}

	if _, err := repo.Create(context.Background(), domain.Profile{
		EntityID: 1,
		Schema:   tent.CoreProfileSchema,
		Kind:     domain.ProfileCore,
		Content:  domain.CoreProfileContent("https://bob.example.com", []string{"https://bob.example.com"}),
	}); err != nil {
		t.Fatal(err)
	}

	// Replacing the core body without an entity field must not strip the
	// canonical identity or the server list.
	replaced, err := uc.Put(context.Background(), entity, tent.CoreProfileSchema, map[string]any{
		"licences": []any{"http://creativecommons.org/licenses/by/3.0/"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if replaced.Identity() != "https://bob.example.com" {
		t.Errorf("identity %q after core replace", replaced.Identity())
	}
	if servers := replaced.Servers(); len(servers) != 1 || servers[0] != "https://bob.example.com" {
		t.Errorf("servers %v after core replace", servers)
	}

	identity, err := uc.Identity(context.Background(), entity)
	if err != nil {
		t.Fatal(err)
	}
	if identity != "https://bob.example.com" {
		t.Errorf("stored identity %q", identity)
	}

	// An explicit entity still wins.
	moved, err := uc.Put(context.Background(), entity, tent.CoreProfileSchema, map[string]any{
		"entity": "https://robert.example.com",
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if moved.Identity() != "https://robert.example.com" {
		t.Errorf("identity %q after explicit entity", moved.Identity())
	}
}

func TestProfilePutCoreRequiresIdentity(t *testing.T) {
	uc := NewProfileUsecase(newMockProfileRepo())

	// There is no stored core to fall back on, so the body must name one.
	_, err := uc.Put(context.Background(), domain.Entity{ID: 1}, tent.CoreProfileSchema, map[string]any{
		"servers": []any{"https://bob.example.com"},
	})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}
}

func TestProfilePutRejectsRelativeSchema(t *testing.T) {
	uc := NewProfileUsecase(newMockProfileRepo())
	_, err := uc.Put(context.Background(), domain.Entity{ID: 1}, "not-a-uri", map[string]any{})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}
}

func TestProfileDeleteProtectsCore(t *testing.T) {
	repo := newMockProfileRepo()
	uc := NewProfileUsecase(repo)
	entity := domain.Entity{ID: 1}

	if _, err := repo.Create(context.Background(), domain.Profile{
		EntityID: 1,
		Schema:   tent.CoreProfileSchema,
		Kind:     domain.ProfileCore,
		Content:  domain.CoreProfileContent("https://bob.example.com", nil),
	}); err != nil {
		t.Fatal(err)
	}

	err := uc.Delete(context.Background(), entity, tent.CoreProfileSchema)
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("want bad request, got %v", err)
	}
	if len(repo.profiles) != 1 {
		t.Error("core profile was deleted")
	}
}

func TestProfileDocument(t *testing.T) {
	repo := newMockProfileRepo()
	uc := NewProfileUsecase(repo)
	entity := domain.Entity{ID: 1}

	if _, err := repo.Create(context.Background(), domain.Profile{
		EntityID: 1,
		Schema:   tent.CoreProfileSchema,
		Kind:     domain.ProfileCore,
		Content:  domain.CoreProfileContent("https://bob.example.com", []string{"https://bob.example.com"}),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Put(context.Background(), entity, tent.BasicProfileSchema, map[string]any{"name": "Bob"}); err != nil {
		t.Fatal(err)
	}

	document, err := uc.GetDocument(context.Background(), entity)
	if err != nil {
		t.Fatal(err)
	}
	if len(document) != 2 {
		t.Fatalf("%d profiles in document, want 2", len(document))
	}
	core, err := document.Core()
	if err != nil {
		t.Fatal(err)
	}
	if core.Entity != "https://bob.example.com" {
		t.Errorf("core entity %q", core.Entity)
	}

	identity, err := uc.Identity(context.Background(), entity)
	if err != nil {
		t.Fatal(err)
	}
	if identity != "https://bob.example.com" {
		t.Errorf("identity %q", identity)
	}
}
