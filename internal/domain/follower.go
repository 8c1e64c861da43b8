package domain

import (
	"encoding/json"
	"time"
)

// KeyPair is the MAC credential a follower uses to authenticate requests
// it makes back to this server. It lives and dies with its follower.
type KeyPair struct {
	ID           int64  `json:"-"`
	FollowerID   int64  `json:"-"`
	MacID        string `json:"mac_id"`
	MacKey       string `json:"mac_key"`
	MacAlgorithm string `json:"mac_algorithm"`
}

// Follower is a remote entity subscribed to a local entity's posts.
type Follower struct {
	ID               int64           `json:"id,string"`
	EntityID         int64           `json:"-"`
	Identity         string          `json:"identity"`
	Servers          []string        `json:"servers,omitempty"`
	NotificationPath string          `json:"notification_path"`
	Permissions      json.RawMessage `json:"permissions,omitempty"`
	Licenses         json.RawMessage `json:"licenses,omitempty"`
	Types            json.RawMessage `json:"types,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	KeyPair KeyPair `json:"-"`
}

// Following is the mirror relation: a remote entity a local entity follows.
type Following struct {
	ID        int64     `json:"id,string"`
	EntityID  int64     `json:"-"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}
