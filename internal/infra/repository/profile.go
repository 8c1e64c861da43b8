package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"github.com/tentd/tentd"
	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

const profileCacheTTL = 60 // seconds

type ProfileRepository struct {
	db *gorm.DB
	mc *memcache.Client // optional read-through cache of profile documents
}

func NewProfileRepository(db *gorm.DB, mc *memcache.Client) *ProfileRepository {
	return &ProfileRepository{db: db, mc: mc}
}

func profileCacheKey(entityID int64) string {
	return fmt.Sprintf("tentd:profiles:%d", entityID)
}

// GetAll returns the full profile document for an entity, a map from
// schema URL to profile body.
func (r *ProfileRepository) GetAll(ctx context.Context, entityID int64) (tent.ProfileDocument, error) {
	if r.mc != nil {
		if item, err := r.mc.Get(profileCacheKey(entityID)); err == nil {
			var doc tent.ProfileDocument
			if err := json.Unmarshal(item.Value, &doc); err == nil {
				return doc, nil
			}
		}
	}

	var rows []models.Profile
	if err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).Find(&rows).Error; err != nil {
		return nil, err
	}

	doc := make(tent.ProfileDocument, len(rows))
	for _, row := range rows {
		doc[row.Schema] = json.RawMessage(row.Content)
	}

	if r.mc != nil {
		if serialized, err := json.Marshal(doc); err == nil {
			r.mc.Set(&memcache.Item{
				Key:        profileCacheKey(entityID),
				Value:      serialized,
				Expiration: profileCacheTTL,
			})
		}
	}

	return doc, nil
}

func (r *ProfileRepository) Get(ctx context.Context, entityID int64, schema string) (domain.Profile, error) {
	var row models.Profile
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND schema = ?", entityID, schema).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Profile{}, domain.NotFoundError{Resource: "profile"}
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return profileToDomain(row)
}

func (r *ProfileRepository) Create(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	content, err := json.Marshal(profile.Content)
	if err != nil {
		return domain.Profile{}, err
	}

	row := models.Profile{
		EntityID: profile.EntityID,
		Schema:   profile.Schema,
		Content:  string(content),
	}
	err = r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.Profile{}, domain.NotUniqueError{Resource: "profile"}
	}
	if err != nil {
		return domain.Profile{}, err
	}

	r.invalidate(profile.EntityID)

	profile.ID = row.ID
	return profile, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	content, err := json.Marshal(profile.Content)
	if err != nil {
		return domain.Profile{}, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("entity_id = ? AND schema = ?", profile.EntityID, profile.Schema).
		Update("content", string(content))
	if result.Error != nil {
		return domain.Profile{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Profile{}, domain.NotFoundError{Resource: "profile"}
	}

	r.invalidate(profile.EntityID)

	return profile, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, entityID int64, schema string) error {
	result := r.db.WithContext(ctx).
		Where("entity_id = ? AND schema = ?", entityID, schema).
		Delete(&models.Profile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "profile"}
	}

	r.invalidate(entityID)
	return nil
}

func (r *ProfileRepository) invalidate(entityID int64) {
	if r.mc != nil {
		r.mc.Delete(profileCacheKey(entityID))
	}
}

func profileToDomain(row models.Profile) (domain.Profile, error) {
	var content map[string]any
	if err := json.Unmarshal([]byte(row.Content), &content); err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{
		ID:       row.ID,
		EntityID: row.EntityID,
		Schema:   row.Schema,
		Kind:     domain.KindForSchema(row.Schema),
		Content:  content,
	}, nil
}
