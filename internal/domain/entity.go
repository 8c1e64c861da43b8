package domain

import "time"

// Entity is a local Tent user. The name is the API-root key under which all
// owned documents are served.
type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Group is a named tag an entity defines over other entities.
type Group struct {
	ID        int64     `json:"id"`
	EntityID  int64     `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification records that a remote post mentioned this entity.
type Notification struct {
	ID         int64     `json:"id"`
	EntityID   int64     `json:"-"`
	PostID     string    `json:"post_id"`
	ReceivedAt time.Time `json:"received_at"`
}
