package domain

import (
	"strconv"
	"time"
)

// Mention identifies another entity (and optionally one of its posts)
// referenced by a post version.
type Mention struct {
	Entity string `json:"entity"`
	Post   string `json:"post,omitempty"`
}

// Version is one immutable revision of a post. Edits append versions, they
// never mutate history.
type Version struct {
	ID          int64          `json:"-"`
	Content     map[string]any `json:"content"`
	PublishedAt time.Time      `json:"published_at"`
	ReceivedAt  time.Time      `json:"received_at"`
	Mentions    []Mention      `json:"mentions"`
}

// Post is an append-only content item owned by an entity. Versions are
// ordered newest-first by published_at; a post always has at least one.
type Post struct {
	ID       int64     `json:"id,string"`
	EntityID int64     `json:"-"`
	Schema   string    `json:"type"`
	Versions []Version `json:"-"`
}

// Latest returns the most recently published version.
func (p *Post) Latest() Version {
	return p.Versions[0]
}

// AddVersion inserts a version keeping the newest-first ordering.
func (p *Post) AddVersion(v Version) {
	at := len(p.Versions)
	for i, existing := range p.Versions {
		if v.PublishedAt.After(existing.PublishedAt) {
			at = i
			break
		}
	}
	p.Versions = append(p.Versions, Version{})
	copy(p.Versions[at+1:], p.Versions[at:])
	p.Versions[at] = v
}

// Representation merges post-level fields with the latest version into the
// wire form served over HTTP. identity is the owning entity's canonical
// identity URL. Resource ids are serialized as strings, like follower and
// following ids.
func (p *Post) Representation(identity string) map[string]any {
	latest := p.Latest()
	return map[string]any{
		"id":           strconv.FormatInt(p.ID, 10),
		"type":         p.Schema,
		"entity":       identity,
		"version":      len(p.Versions),
		"content":      latest.Content,
		"published_at": latest.PublishedAt,
		"received_at":  latest.ReceivedAt,
		"mentions":     latest.Mentions,
	}
}
