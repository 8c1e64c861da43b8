package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

// mockEntity serves the discovery sequence for a single identity: a HEAD
// with a profile Link header, and the profile document itself.
func mockEntity(t *testing.T, identity *string, coreBody func() map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", tent.FormatProfileLink(server.URL+"/profile"))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			tent.CoreProfileSchema: coreBody(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	})

	*identity = server.URL
	return server
}

func TestDiscoverRoundTrip(t *testing.T) {
	var identity string
	mockEntity(t, &identity, func() map[string]any {
		return map[string]any{
			"entity":  identity,
			"servers": []string{identity + "/tentd"},
		}
	})

	c := New()
	profile, err := c.Discover(context.Background(), identity)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	core, err := profile.Core()
	if err != nil {
		t.Fatalf("core failed: %v", err)
	}
	if core.Entity != identity {
		t.Fatalf("expected identity %s got %s", identity, core.Entity)
	}
	if len(core.Servers) != 1 || core.Servers[0] != identity+"/tentd" {
		t.Fatalf("unexpected servers %v", core.Servers)
	}
}

func TestDiscoverIsIdempotent(t *testing.T) {
	var identity string
	mockEntity(t, &identity, func() map[string]any {
		return map[string]any{"entity": identity, "servers": []string{identity}}
	})

	c := New()

	first, err := c.Discover(context.Background(), identity)
	if err != nil {
		t.Fatalf("first discover failed: %v", err)
	}
	second, err := c.Discover(context.Background(), identity)
	if err != nil {
		t.Fatalf("second discover failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical profiles, got %s and %s", a, b)
	}
}

func TestDiscoverWithoutLinkHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := New().Discover(context.Background(), server.URL)
	if !errors.Is(err, domain.ErrDiscovery) {
		t.Fatalf("expected a discovery error, got %v", err)
	}
}

func TestDiscoverWithoutCoreProfile(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", tent.FormatProfileLink(server.URL+"/profile"))
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"https://example.com/other/schema":{}}`)
	})

	_, err := New().Discover(context.Background(), server.URL)
	if !errors.Is(err, domain.ErrDiscovery) {
		t.Fatalf("expected a discovery error, got %v", err)
	}
}

func TestDiscoverUnreachable(t *testing.T) {
	_, err := New().Discover(context.Background(), "http://127.0.0.1:1/nobody")
	if !errors.Is(err, domain.ErrDiscovery) {
		t.Fatalf("expected a discovery error, got %v", err)
	}
}

func TestNotifyReportsStatus(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/tentd/notification" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status, err := New().Notify(context.Background(), server.URL+"/tentd/", "notification")
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one notify call, got %d", calls)
	}
}

func TestDeliverPost(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
	}))
	defer server.Close()

	post := map[string]any{"id": "1", "type": "https://tent.io/types/post/status/v0.1.0"}
	if err := New().DeliverPost(context.Background(), server.URL, "notification", post); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if received["type"] != post["type"] {
		t.Fatalf("unexpected delivered body %v", received)
	}
}
