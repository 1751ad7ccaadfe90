package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ChatUser maps an internal user to its chat-platform identity, scoped by tenant.
// The composite unique index on (user_id, tenant_code) is what guarantees at most
// one live mapping per internal user per tenant, including under concurrent signup.
type ChatUser struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         string         `json:"user_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_chat_users_user_tenant"`
	TenantCode     string         `json:"tenant_code" gorm:"type:varchar(100);not null;uniqueIndex:idx_chat_users_user_tenant"`
	ExternalUserID string         `json:"external_user_id" gorm:"type:varchar(255);index"`
	UserInfo       string         `json:"user_info" gorm:"type:jsonb"`
	IsAdmin        bool           `json:"is_admin" gorm:"default:false"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserInfoData is the structure serialized into the user_info jsonb column.
// ExternalUserID is duplicated into its own indexed column so lookups never
// have to build predicates against the blob.
type UserInfoData struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
}

// SetUserInfo serializes info into the user_info column and keeps the
// materialized external_user_id column in sync.
func (u *ChatUser) SetUserInfo(info UserInfoData) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	u.UserInfo = string(raw)
	u.ExternalUserID = info.ExternalUserID
	return nil
}

// GetUserInfo deserializes the user_info column
func (u *ChatUser) GetUserInfo() (UserInfoData, error) {
	var info UserInfoData
	if u.UserInfo == "" {
		return info, nil
	}
	err := json.Unmarshal([]byte(u.UserInfo), &info)
	return info, err
}
