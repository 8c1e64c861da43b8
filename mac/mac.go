// Package mac implements the MAC request authentication scheme from the
// IETF HTTP MAC draft (draft-ietf-oauth-v2-http-mac-01), as used to sign
// requests between Tent servers.
package mac

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Algorithm is the only MAC algorithm issued for follower keypairs.
const Algorithm = "hmac-sha-256"

// Header holds the fields of a MAC-scheme Authorization header.
type Header struct {
	ID    string
	TS    string
	Nonce string
	MAC   string
	Ext   string
}

// ParseHeader parses an Authorization header of the form
// `MAC id="...",ts="...",nonce="...",mac="..."`.
func ParseHeader(authorization string) (Header, error) {
	if !strings.HasPrefix(authorization, "MAC ") {
		return Header{}, fmt.Errorf("authorization header is not MAC scheme")
	}

	var h Header
	for _, pair := range strings.Split(authorization[4:], ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return Header{}, fmt.Errorf("malformed authorization field %q", pair)
		}
		value = strings.Trim(value, `"`)

		switch key {
		case "id":
			h.ID = value
		case "ts":
			h.TS = value
		case "nonce":
			h.Nonce = value
		case "mac":
			h.MAC = value
		case "ext":
			h.Ext = value
		}
	}

	if h.ID == "" || h.MAC == "" {
		return Header{}, fmt.Errorf("authorization header is missing id or mac")
	}

	return h, nil
}

// String renders the header back into Authorization form.
func (h Header) String() string {
	s := fmt.Sprintf(`MAC id="%s",ts="%s",nonce="%s",mac="%s"`, h.ID, h.TS, h.Nonce, h.MAC)
	if h.Ext != "" {
		s += fmt.Sprintf(`,ext="%s"`, h.Ext)
	}
	return s
}

// Normalize builds the canonical signing string for a request:
// ts, nonce, method, path?query, host, port and ext joined by newlines.
func Normalize(r *http.Request, h Header) string {
	fullPath := r.URL.Path
	if r.URL.RawQuery != "" {
		fullPath += "?" + r.URL.RawQuery
	}

	host, port := hostPort(r)

	return strings.Join([]string{
		h.TS, h.Nonce, r.Method, fullPath, host, port, h.Ext,
	}, "\n")
}

func hostPort(r *http.Request) (string, string) {
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if i := strings.LastIndex(host, ":"); i != -1 && !strings.HasSuffix(host, "]") {
		return host[:i], host[i+1:]
	}
	if r.TLS != nil || r.URL.Scheme == "https" {
		return host, "443"
	}
	return host, "80"
}

// Sign computes the base64 HMAC-SHA256 signature of the normalized request.
func Sign(r *http.Request, h Header, key string) string {
	m := hmac.New(sha256.New, []byte(key))
	m.Write([]byte(Normalize(r, h)))
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}

// Verify reports whether the header's mac field matches the request
// signature under the given key. The comparison is constant time.
func Verify(r *http.Request, h Header, key string) bool {
	expected := Sign(r, h, key)
	return hmac.Equal([]byte(expected), []byte(h.MAC))
}

// GenerateKeyPair provisions a MAC credential for a new follower: a 128-bit
// hex identifier and a 256-bit hex signing secret.
func GenerateKeyPair() (id string, key string, err error) {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", "", err
	}
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(idBytes), hex.EncodeToString(keyBytes), nil
}
