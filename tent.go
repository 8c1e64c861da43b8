package tent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	Version = "0.2"

	CoreProfileSchema  string = "https://tent.io/types/info/core/v0.1.0"
	BasicProfileSchema string = "https://tent.io/types/info/basic/v0.1.0"

	ProfileRel string = "https://tent.io/rels/profile"

	MediaType string = "application/vnd.tent.v0+json"
)

// ProfileDocument is the machine-readable profile for an entity: a map from
// schema URL to that profile's body, as served at /{entity}/profile.
type ProfileDocument map[string]json.RawMessage

// CoreProfile is the body stored under CoreProfileSchema. Every entity
// carries exactly one.
type CoreProfile struct {
	Entity      string   `json:"entity"`
	Licences    []string `json:"licences"`
	Servers     []string `json:"servers"`
	TentVersion string   `json:"tent_version,omitempty"`
}

// Core extracts the core profile from a profile document.
func (d ProfileDocument) Core() (CoreProfile, error) {
	raw, ok := d[CoreProfileSchema]
	if !ok {
		return CoreProfile{}, fmt.Errorf("entity has no core profile")
	}
	var core CoreProfile
	if err := json.Unmarshal(raw, &core); err != nil {
		return CoreProfile{}, fmt.Errorf("invalid core profile: %v", err)
	}
	return core, nil
}

var profileLinkPattern = regexp.MustCompile(`^<(.+)>; rel="` + ProfileRel + `"$`)

// FormatProfileLink renders the Link header advertised on HEAD requests
// against an entity's API root.
func FormatProfileLink(profileURL string) string {
	return fmt.Sprintf(`<%s>; rel="%s"`, profileURL, ProfileRel)
}

// ParseProfileLink extracts the profile URL from a Link header.
func ParseProfileLink(header string) (string, error) {
	m := profileLinkPattern.FindStringSubmatch(header)
	if m == nil {
		return "", fmt.Errorf("no profile link in header")
	}
	return m[1], nil
}

// NotificationURL joins an API root and a notification path with exactly
// one slash between them.
func NotificationURL(apiRoot, path string) string {
	return strings.TrimSuffix(apiRoot, "/") + "/" + strings.TrimPrefix(path, "/")
}
