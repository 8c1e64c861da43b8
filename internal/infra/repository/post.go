package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create persists a post together with its first version and that
// version's mentions, atomically.
func (r *PostRepository) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	row := models.Post{
		EntityID: post.EntityID,
		Schema:   post.Schema,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, version := range post.Versions {
			if err := createVersion(tx, row.ID, version); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Post{}, err
	}

	return r.Get(ctx, post.EntityID, row.ID)
}

func (r *PostRepository) Get(ctx context.Context, entityID, id int64) (domain.Post, error) {
	var row models.Post
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND id = ?", entityID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Post{}, domain.NotFoundError{Resource: "post"}
	}
	if err != nil {
		return domain.Post{}, err
	}

	return r.loadPost(ctx, row)
}

func (r *PostRepository) List(ctx context.Context, entityID int64, limit int) ([]domain.Post, error) {
	var rows []models.Post
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		post, err := r.loadPost(ctx, row)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// AddVersion appends a version (and its mentions) to an existing post.
func (r *PostRepository) AddVersion(ctx context.Context, postID int64, version domain.Version) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createVersion(tx, postID, version)
	})
}

// DeleteVersion removes a single version and its mentions. The last-version
// invariant is enforced by the caller, which sees the loaded post.
func (r *PostRepository) DeleteVersion(ctx context.Context, versionID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", versionID).Delete(&models.Mention{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Version{}, "id = ?", versionID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError{Resource: "version"}
		}
		return nil
	})
}

// Delete removes a post with all its versions and mentions.
func (r *PostRepository) Delete(ctx context.Context, entityID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Post
		err := tx.Where("entity_id = ? AND id = ?", entityID, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "post"}
		}
		if err != nil {
			return err
		}

		versionIDs := tx.Model(&models.Version{}).Select("id").Where("post_id = ?", row.ID)
		if err := tx.Where("version_id IN (?)", versionIDs).Delete(&models.Mention{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", row.ID).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", row.ID).Error
	})
}

func (r *PostRepository) loadPost(ctx context.Context, row models.Post) (domain.Post, error) {
	var versionRows []models.Version
	err := r.db.WithContext(ctx).
		Where("post_id = ?", row.ID).
		Order("published_at DESC").
		Find(&versionRows).Error
	if err != nil {
		return domain.Post{}, err
	}

	post := domain.Post{
		ID:       row.ID,
		EntityID: row.EntityID,
		Schema:   row.Schema,
		Versions: make([]domain.Version, 0, len(versionRows)),
	}

	for _, versionRow := range versionRows {
		var content map[string]any
		if err := json.Unmarshal([]byte(versionRow.Content), &content); err != nil {
			return domain.Post{}, err
		}

		var mentionRows []models.Mention
		err := r.db.WithContext(ctx).
			Where("version_id = ?", versionRow.ID).
			Order("id ASC").
			Find(&mentionRows).Error
		if err != nil {
			return domain.Post{}, err
		}

		mentions := make([]domain.Mention, 0, len(mentionRows))
		for _, m := range mentionRows {
			mentions = append(mentions, domain.Mention{Entity: m.Entity, Post: m.Post})
		}

		post.Versions = append(post.Versions, domain.Version{
			ID:          versionRow.ID,
			Content:     content,
			PublishedAt: versionRow.PublishedAt,
			ReceivedAt:  versionRow.ReceivedAt,
			Mentions:    mentions,
		})
	}

	return post, nil
}

func createVersion(tx *gorm.DB, postID int64, version domain.Version) error {
	content, err := json.Marshal(version.Content)
	if err != nil {
		return err
	}

	row := models.Version{
		PostID:      postID,
		Content:     string(content),
		PublishedAt: version.PublishedAt,
		ReceivedAt:  version.ReceivedAt,
	}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}

	for _, mention := range version.Mentions {
		m := models.Mention{
			VersionID: row.ID,
			Entity:    mention.Entity,
			Post:      mention.Post,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
	}
	return nil
}
