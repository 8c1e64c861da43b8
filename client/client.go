// Package client talks to other Tent servers: entity discovery, the
// follow-handshake notification, and post delivery.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
)

const (
	defaultTimeout  = 3 * time.Second
	defaultCacheTTL = 10 * time.Minute
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
}

type Option func(*Client)

// WithTimeout bounds every outbound request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithUserAgent sets the User-Agent sent on outbound requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(opts ...Option) *Client {
	httpClient := &http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    httpClient,
		cache:     cache.New(defaultCacheTTL, 15*time.Minute),
		userAgent: "tentd/" + tent.Version,
	}
	httpClient.Transport = c

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Discover resolves an identity URL to that server's profile document:
// HEAD the identity, follow the profile Link header, GET the profile. The
// result must contain a core profile. Purely a query; results are cached.
func (c *Client) Discover(ctx context.Context, identity string) (tent.ProfileDocument, error) {
	cacheKey := "profile:" + identity
	if x, found := c.cache.Get(cacheKey); found {
		return x.(tent.ProfileDocument), nil
	}

	profileURL, err := c.discoverProfileURL(ctx, identity)
	if err != nil {
		return nil, err
	}

	profile, err := c.fetchProfile(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	if _, ok := profile[tent.CoreProfileSchema]; !ok {
		return nil, domain.DiscoveryError{
			Reason: "entity has no core profile",
			Status: http.StatusNotFound,
		}
	}

	c.cache.Set(cacheKey, profile, cache.DefaultExpiration)

	return profile, nil
}

func (c *Client) discoverProfileURL(ctx context.Context, identity string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, identity, nil)
	if err != nil {
		return "", domain.DiscoveryError{Reason: err.Error(), Status: http.StatusNotFound}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.DiscoveryError{
			Reason: fmt.Sprintf("could not reach %s: %v", identity, err),
			Status: http.StatusNotFound,
		}
	}
	defer resp.Body.Close()

	link := resp.Header.Get("Link")
	if link == "" {
		return "", domain.DiscoveryError{
			Reason: "entity has no 'Link' header",
			Status: http.StatusNotFound,
		}
	}

	profileURL, err := tent.ParseProfileLink(link)
	if err != nil {
		return "", domain.DiscoveryError{
			Reason: "entity has no profile link",
			Status: http.StatusNotFound,
		}
	}
	return profileURL, nil
}

func (c *Client) fetchProfile(ctx context.Context, profileURL string) (tent.ProfileDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, domain.DiscoveryError{Reason: err.Error(), Status: http.StatusNotFound}
	}
	req.Header.Set("Accept", tent.MediaType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.DiscoveryError{
			Reason: fmt.Sprintf("could not fetch entity profile: %v", err),
			Status: http.StatusNotFound,
		}
	}
	defer resp.Body.Close()

	var profile tent.ProfileDocument
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, domain.DiscoveryError{
			Reason: fmt.Sprintf("could not parse entity profile: %v", err),
			Status: http.StatusBadRequest,
		}
	}
	return profile, nil
}

// Notify performs the follow-handshake GET against a follower's
// notification endpoint. Anything but 200 fails the handshake.
func (c *Client) Notify(ctx context.Context, apiRoot, notificationPath string) (int, error) {
	url := tent.NotificationURL(apiRoot, notificationPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// DeliverPost POSTs a post's wire representation to a follower's
// notification endpoint.
func (c *Client) DeliverPost(ctx context.Context, apiRoot, notificationPath string, post map[string]any) error {
	body, err := json.Marshal(post)
	if err != nil {
		return err
	}

	url := tent.NotificationURL(apiRoot, notificationPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", tent.MediaType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
