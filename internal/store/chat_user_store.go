// Package store persists the tenant-scoped mapping between internal users and
// their chat-platform identities.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ELEVATE-Project/chat-communications/internal/model"
	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"github.com/ELEVATE-Project/chat-communications/prometheus"
	"gorm.io/gorm"
)

// ChatUserStore provides tenant-scoped access to chat user mapping records.
// Every lookup filters on tenant_code; a record is never visible outside its
// tenant. Soft-deleted rows are excluded by gorm's DeletedAt handling.
type ChatUserStore struct {
	db *gorm.DB
}

// New creates a ChatUserStore backed by the given database handle
func New(db *gorm.DB) *ChatUserStore {
	return &ChatUserStore{db: db}
}

// Create inserts a new mapping record. The composite unique index on
// (user_id, tenant_code) makes this the single enforcement point for
// concurrent duplicate signups; the loser gets ErrDuplicateKey.
func (s *ChatUserStore) Create(ctx context.Context, user *model.ChatUser) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return platform.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindByUserID returns the mapping record for (userID, tenantCode)
func (s *ChatUserStore) FindByUserID(ctx context.Context, userID, tenantCode string) (*model.ChatUser, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.ChatUser
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND tenant_code = ?", userID, tenantCode).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platform.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByExternalID returns the mapping record holding the given
// platform-assigned user ID within the tenant. The lookup runs against the
// materialized external_user_id column, not the user_info blob, so the
// predicate stays parameterized.
func (s *ChatUserStore) FindByExternalID(ctx context.Context, externalUserID, tenantCode string) (*model.ChatUser, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.ChatUser
	err := s.db.WithContext(ctx).
		Where("external_user_id = ? AND tenant_code = ?", externalUserID, tenantCode).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platform.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update applies patch to the record for (userID, tenantCode) and returns the
// number of affected rows
func (s *ChatUserStore) Update(ctx context.Context, userID, tenantCode string, patch map[string]interface{}) (int64, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).
		Model(&model.ChatUser{}).
		Where("user_id = ? AND tenant_code = ?", userID, tenantCode).
		Updates(patch)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
