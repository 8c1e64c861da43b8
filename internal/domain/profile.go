package domain

import (
	"encoding/json"
	"net/url"

	"github.com/tentd/tentd"
)

// ProfileKind tags the variant a profile schema dispatches to.
type ProfileKind string

const (
	ProfileCore    ProfileKind = "core"
	ProfileBasic   ProfileKind = "basic"
	ProfileGeneric ProfileKind = "generic"
)

// KindForSchema maps a schema URL to its profile variant.
func KindForSchema(schema string) ProfileKind {
	switch schema {
	case tent.CoreProfileSchema:
		return ProfileCore
	case tent.BasicProfileSchema:
		return ProfileBasic
	default:
		return ProfileGeneric
	}
}

// Profile is a typed document describing entity metadata, uniquely keyed by
// (entity, schema).
type Profile struct {
	ID       int64          `json:"-"`
	EntityID int64          `json:"-"`
	Schema   string         `json:"schema"`
	Kind     ProfileKind    `json:"-"`
	Content  map[string]any `json:"content"`
}

// NewProfile is the factory for profile variants. Unknown schemas become
// Generic profiles and must be syntactically well-formed absolute URIs.
func NewProfile(entityID int64, schema string, content map[string]any) (Profile, error) {
	kind := KindForSchema(schema)

	if kind == ProfileGeneric {
		u, err := url.Parse(schema)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return Profile{}, BadRequestError{Reason: "invalid profile type"}
		}
	}

	if content == nil {
		content = map[string]any{}
	}

	return Profile{
		EntityID: entityID,
		Schema:   schema,
		Kind:     kind,
		Content:  content,
	}, nil
}

// Identity returns the canonical identity URL of a core profile.
func (p Profile) Identity() string {
	identity, _ := p.Content["entity"].(string)
	return identity
}

// Servers returns the API roots listed in a core profile.
func (p Profile) Servers() []string {
	raw, ok := p.Content["servers"].([]any)
	if !ok {
		return nil
	}
	servers := make([]string, 0, len(raw))
	for _, s := range raw {
		if str, ok := s.(string); ok {
			servers = append(servers, str)
		}
	}
	return servers
}

// CoreProfileContent builds the body of a core profile document.
func CoreProfileContent(identity string, servers []string) map[string]any {
	serverList := make([]any, len(servers))
	for i, s := range servers {
		serverList[i] = s
	}
	return map[string]any{
		"entity":       identity,
		"licences":     []any{},
		"servers":      serverList,
		"tent_version": tent.Version,
	}
}

// MarshalJSON serializes a profile as its bare content body, which is how
// profiles appear inside the schema-keyed profile document.
func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Content)
}
