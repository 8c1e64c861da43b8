package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tentd/tentd/internal/domain"
	"github.com/tentd/tentd/internal/infra/database/models"
)

type FollowerRepository struct {
	db *gorm.DB
}

func NewFollowerRepository(db *gorm.DB) *FollowerRepository {
	return &FollowerRepository{db: db}
}

// Create persists a follower and its keypair in one transaction, so a
// failed handshake can never leave either behind.
func (r *FollowerRepository) Create(ctx context.Context, follower domain.Follower) (domain.Follower, error) {
	row, err := followerToModel(follower)
	if err != nil {
		return domain.Follower{}, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.NotUniqueError{Resource: "follower"}
			}
			return err
		}

		keypair := models.KeyPair{
			FollowerID:   row.ID,
			MacID:        follower.KeyPair.MacID,
			MacKey:       follower.KeyPair.MacKey,
			MacAlgorithm: follower.KeyPair.MacAlgorithm,
		}
		return tx.Create(&keypair).Error
	})
	if err != nil {
		return domain.Follower{}, err
	}

	return r.Get(ctx, follower.EntityID, row.ID)
}

func (r *FollowerRepository) Get(ctx context.Context, entityID, id int64) (domain.Follower, error) {
	var row models.Follower
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND id = ?", entityID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Follower{}, domain.NotFoundError{Resource: "follower"}
	}
	if err != nil {
		return domain.Follower{}, err
	}

	follower, err := followerToDomain(row)
	if err != nil {
		return domain.Follower{}, err
	}

	var keypair models.KeyPair
	if err := r.db.WithContext(ctx).Where("follower_id = ?", row.ID).Take(&keypair).Error; err == nil {
		follower.KeyPair = domain.KeyPair{
			ID:           keypair.ID,
			FollowerID:   keypair.FollowerID,
			MacID:        keypair.MacID,
			MacKey:       keypair.MacKey,
			MacAlgorithm: keypair.MacAlgorithm,
		}
	}

	return follower, nil
}

func (r *FollowerRepository) List(ctx context.Context, entityID int64) ([]domain.Follower, error) {
	var rows []models.Follower
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	followers := make([]domain.Follower, 0, len(rows))
	for _, row := range rows {
		follower, err := followerToDomain(row)
		if err != nil {
			return nil, err
		}
		followers = append(followers, follower)
	}
	return followers, nil
}

func (r *FollowerRepository) Update(ctx context.Context, follower domain.Follower) (domain.Follower, error) {
	row, err := followerToModel(follower)
	if err != nil {
		return domain.Follower{}, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Follower{}).
		Where("entity_id = ? AND id = ?", follower.EntityID, follower.ID).
		Updates(map[string]any{
			"identity":          row.Identity,
			"servers":           row.Servers,
			"notification_path": row.NotificationPath,
			"permissions":       row.Permissions,
			"licenses":          row.Licenses,
			"types":             row.Types,
			"m_date":            time.Now(),
		})
	if result.Error != nil {
		return domain.Follower{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Follower{}, domain.NotFoundError{Resource: "follower"}
	}

	return r.Get(ctx, follower.EntityID, follower.ID)
}

// Delete removes a follower and its keypair.
func (r *FollowerRepository) Delete(ctx context.Context, entityID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Follower
		err := tx.Where("entity_id = ? AND id = ?", entityID, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "follower"}
		}
		if err != nil {
			return err
		}

		if err := tx.Where("follower_id = ?", row.ID).Delete(&models.KeyPair{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Follower{}, "id = ?", row.ID).Error
	})
}

// GetKeyPairByMacID looks up the credential presented in a MAC
// Authorization header.
func (r *FollowerRepository) GetKeyPairByMacID(ctx context.Context, macID string) (domain.KeyPair, error) {
	var row models.KeyPair
	err := r.db.WithContext(ctx).
		Where("mac_id = ?", macID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.KeyPair{}, domain.NotFoundError{Resource: "keypair"}
	}
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{
		ID:           row.ID,
		FollowerID:   row.FollowerID,
		MacID:        row.MacID,
		MacKey:       row.MacKey,
		MacAlgorithm: row.MacAlgorithm,
	}, nil
}

// CountKeyPairs reports how many keypairs exist. Used by tests to assert
// handshake atomicity.
func (r *FollowerRepository) CountKeyPairs(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.KeyPair{}).Count(&count).Error
	return count, err
}

func followerToModel(f domain.Follower) (models.Follower, error) {
	servers, err := json.Marshal(f.Servers)
	if err != nil {
		return models.Follower{}, err
	}
	return models.Follower{
		ID:               f.ID,
		EntityID:         f.EntityID,
		Identity:         f.Identity,
		Servers:          string(servers),
		NotificationPath: f.NotificationPath,
		Permissions:      string(f.Permissions),
		Licenses:         string(f.Licenses),
		Types:            string(f.Types),
	}, nil
}

func followerToDomain(row models.Follower) (domain.Follower, error) {
	var servers []string
	if row.Servers != "" {
		if err := json.Unmarshal([]byte(row.Servers), &servers); err != nil {
			return domain.Follower{}, err
		}
	}
	return domain.Follower{
		ID:               row.ID,
		EntityID:         row.EntityID,
		Identity:         row.Identity,
		Servers:          servers,
		NotificationPath: row.NotificationPath,
		Permissions:      rawMessage(row.Permissions),
		Licenses:         rawMessage(row.Licenses),
		Types:            rawMessage(row.Types),
		CreatedAt:        row.CDate,
		UpdatedAt:        row.MDate,
	}, nil
}

func rawMessage(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}
