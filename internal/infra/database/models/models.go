// Package models holds the storage schema. Every owned row carries an
// entity foreign key with a cascade constraint; deletion order is still
// orchestrated explicitly in the entity repository.
package models

import (
	"time"
)

type Entity struct {
	ID    int64     `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	CDate time.Time `gorm:"autoCreateTime"`
}

type Profile struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	EntityID int64  `gorm:"not null;uniqueIndex:idx_profile_entity_schema"`
	Entity   Entity `gorm:"constraint:OnDelete:CASCADE;"`
	Schema   string `gorm:"type:text;not null;uniqueIndex:idx_profile_entity_schema"`
	// Content is the profile body as JSON.
	Content string    `gorm:"type:text;not null"`
	CDate   time.Time `gorm:"autoCreateTime"`
	MDate   time.Time `gorm:"autoUpdateTime"`
}

type Follower struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	EntityID int64  `gorm:"not null;uniqueIndex:idx_follower_entity_identity"`
	Entity   Entity `gorm:"constraint:OnDelete:CASCADE;"`
	Identity string `gorm:"type:text;not null;uniqueIndex:idx_follower_entity_identity"`
	// Servers, Permissions, Licenses and Types are stored as JSON.
	Servers          string    `gorm:"type:text"`
	NotificationPath string    `gorm:"type:text"`
	Permissions      string    `gorm:"type:text"`
	Licenses         string    `gorm:"type:text"`
	Types            string    `gorm:"type:text"`
	CDate            time.Time `gorm:"autoCreateTime"`
	MDate            time.Time `gorm:"autoUpdateTime"`
}

type KeyPair struct {
	ID           int64    `gorm:"primaryKey;autoIncrement"`
	FollowerID   int64    `gorm:"not null;uniqueIndex"`
	Follower     Follower `gorm:"constraint:OnDelete:CASCADE;"`
	MacID        string   `gorm:"type:varchar(32);not null;uniqueIndex"`
	MacKey       string   `gorm:"type:varchar(64);not null"`
	MacAlgorithm string   `gorm:"type:varchar(15);not null"`
}

type Following struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	EntityID int64     `gorm:"not null;uniqueIndex:idx_following_entity_identity"`
	Entity   Entity    `gorm:"constraint:OnDelete:CASCADE;"`
	Identity string    `gorm:"type:text;not null;uniqueIndex:idx_following_entity_identity"`
	CDate    time.Time `gorm:"autoCreateTime"`
}

type Post struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	EntityID int64  `gorm:"not null;index"`
	Entity   Entity `gorm:"constraint:OnDelete:CASCADE;"`
	Schema   string `gorm:"type:text;not null;index"`
	CDate    time.Time `gorm:"autoCreateTime"`
}

type Version struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	PostID int64 `gorm:"not null;index"`
	Post   Post  `gorm:"constraint:OnDelete:CASCADE;"`
	// Content is the version body as JSON.
	Content     string    `gorm:"type:text;not null"`
	PublishedAt time.Time `gorm:"not null;index"`
	ReceivedAt  time.Time `gorm:"not null"`
}

type Mention struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	VersionID int64   `gorm:"not null;index"`
	Version   Version `gorm:"constraint:OnDelete:CASCADE;"`
	Entity    string  `gorm:"type:text;not null"`
	Post      string  `gorm:"type:text"`
}

type Group struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	EntityID int64     `gorm:"not null;uniqueIndex:idx_group_entity_name"`
	Entity   Entity    `gorm:"constraint:OnDelete:CASCADE;"`
	Name     string    `gorm:"type:text;not null;uniqueIndex:idx_group_entity_name"`
	CDate    time.Time `gorm:"autoCreateTime"`
}

type Notification struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	EntityID   int64     `gorm:"not null;index"`
	Entity     Entity    `gorm:"constraint:OnDelete:CASCADE;"`
	PostID     string    `gorm:"type:text;not null"`
	ReceivedAt time.Time `gorm:"not null"`
}
