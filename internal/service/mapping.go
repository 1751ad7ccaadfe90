// Package service orchestrates the hasher, the identity store and the platform
// adapter into the chat bridge operations. It holds no state of its own beyond
// what the store persists.
package service

import (
	"context"
	"fmt"

	"github.com/ELEVATE-Project/chat-communications/internal/hash"
	"github.com/ELEVATE-Project/chat-communications/internal/model"
	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"go.uber.org/zap"
)

// UserStore is the persistence contract the mapping service depends on
type UserStore interface {
	Create(ctx context.Context, user *model.ChatUser) error
	FindByUserID(ctx context.Context, userID, tenantCode string) (*model.ChatUser, error)
	FindByExternalID(ctx context.Context, externalUserID, tenantCode string) (*model.ChatUser, error)
	Update(ctx context.Context, userID, tenantCode string, patch map[string]interface{}) (int64, error)
}

// MappingService implements the chat bridge operations, all tenant-scoped
type MappingService struct {
	store   UserStore
	adapter platform.Adapter
	hasher  *hash.Hasher
	log     *zap.Logger
}

// New creates a MappingService
func New(store UserStore, adapter platform.Adapter, hasher *hash.Hasher, log *zap.Logger) *MappingService {
	return &MappingService{
		store:   store,
		adapter: adapter,
		hasher:  hasher,
		log:     log,
	}
}

// SignupInput carries the fields of a signup request
type SignupInput struct {
	UserID     string
	Name       string
	Email      string
	ImageURL   string
	TenantCode string
	IsAdmin    bool
}

// Mapping is the external-to-internal identity pair returned by UserMapping
type Mapping struct {
	UserID         string `json:"user_id"`
	ExternalUserID string `json:"external_user_id"`
}

// credentials derives the platform username/password pair for an internal
// user ID. Never persisted; recomputed on every operation.
func (s *MappingService) credentials(userID string) (username, password string, err error) {
	username, err = s.hasher.Digest(hash.KindUsername, userID)
	if err != nil {
		return "", "", err
	}
	password, err = s.hasher.Digest(hash.KindPassword, userID)
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

// Signup registers the user on the platform and persists the identity mapping.
// Idempotent: an existing record, including one created by a concurrent
// signup, is returned as success. The remote signup runs before the local
// persist, so a local write failure can leave an orphaned remote account;
// there is no automatic reconciliation for that case.
func (s *MappingService) Signup(ctx context.Context, in SignupInput) (*model.ChatUser, error) {
	existing, err := s.store.FindByUserID(ctx, in.UserID, in.TenantCode)
	if err == nil {
		s.log.Info("Signup for already-registered user, returning existing mapping",
			zap.String("user_id", in.UserID),
			zap.String("tenant_code", in.TenantCode))
		return existing, nil
	}
	if !platform.IsUserNotFound(err) {
		return nil, err
	}

	username, password, err := s.credentials(in.UserID)
	if err != nil {
		return nil, err
	}

	externalUserID, err := s.adapter.Signup(ctx, in.Name, username, password, in.Email)
	if err != nil {
		return nil, err
	}

	user := &model.ChatUser{
		UserID:     in.UserID,
		TenantCode: in.TenantCode,
		IsAdmin:    in.IsAdmin,
	}
	if err := user.SetUserInfo(model.UserInfoData{
		ExternalUserID: externalUserID,
		Username:       username,
		Name:           in.Name,
		Email:          in.Email,
	}); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, user); err != nil {
		if platform.IsDuplicateKey(err) {
			// A concurrent signup won the insert; return the winner's record.
			winner, findErr := s.store.FindByUserID(ctx, in.UserID, in.TenantCode)
			if findErr != nil {
				return nil, findErr
			}
			s.log.Info("Concurrent signup detected, returning winner's mapping",
				zap.String("user_id", in.UserID),
				zap.String("tenant_code", in.TenantCode))
			return winner, nil
		}
		return nil, err
	}

	if in.ImageURL != "" {
		if err := s.adapter.SetAvatar(ctx, username, in.ImageURL); err != nil {
			// Avatar is cosmetic; the signup itself already succeeded.
			s.log.Warn("Failed to set avatar during signup",
				zap.String("user_id", in.UserID),
				zap.Error(err))
		}
	}

	s.log.Info("Chat user registered",
		zap.String("user_id", in.UserID),
		zap.String("tenant_code", in.TenantCode),
		zap.String("external_user_id", externalUserID))
	return user, nil
}

// Login derives the user's credentials and opens a platform session
func (s *MappingService) Login(ctx context.Context, userID string) (*platform.Session, error) {
	username, password, err := s.credentials(userID)
	if err != nil {
		return nil, err
	}
	return s.adapter.Login(ctx, username, password)
}

// LogoutInput carries the fields of a logout request. Token and
// ExternalUserID select the direct path; without them the service resolves
// the local record and obtains a fresh session.
type LogoutInput struct {
	UserID         string
	TenantCode     string
	Token          string
	ExternalUserID string
}

// Logout ends the user's platform sessions. With an explicit token the given
// session is logged out directly. Otherwise the local record must exist, a
// fresh session is opened and other clients are revoked before the final
// logout; revoke-others has to precede the final logout because it needs an
// active session to act on.
func (s *MappingService) Logout(ctx context.Context, in LogoutInput) error {
	if in.Token != "" {
		return s.adapter.Logout(ctx, &platform.Session{UserID: in.ExternalUserID, Token: in.Token})
	}

	if _, err := s.store.FindByUserID(ctx, in.UserID, in.TenantCode); err != nil {
		return err
	}

	session, err := s.Login(ctx, in.UserID)
	if err != nil {
		return err
	}

	if err := s.adapter.LogoutOtherClients(ctx, session); err != nil {
		return err
	}
	return s.adapter.Logout(ctx, session)
}

// CreateRoom opens a direct-message room between two internal users and sends
// the initial message as the first user
func (s *MappingService) CreateRoom(ctx context.Context, userIDs [2]string, initialMessage string) (string, error) {
	usernameA, passwordA, err := s.credentials(userIDs[0])
	if err != nil {
		return "", err
	}
	usernameB, err := s.hasher.Digest(hash.KindUsername, userIDs[1])
	if err != nil {
		return "", err
	}

	roomID, err := s.adapter.InitiateRoom(ctx, [2]string{usernameA, usernameB})
	if err != nil {
		return "", err
	}

	if initialMessage != "" {
		if err := s.adapter.SendMessage(ctx, usernameA, passwordA, roomID, initialMessage); err != nil {
			return "", err
		}
	}

	return roomID, nil
}

// UpdateAvatar sets the user's platform avatar from an image URL. No local
// record is needed; the platform username is derivable from the user ID alone.
func (s *MappingService) UpdateAvatar(ctx context.Context, userID, imageURL string) error {
	username, err := s.hasher.Digest(hash.KindUsername, userID)
	if err != nil {
		return err
	}
	return s.adapter.SetAvatar(ctx, username, imageURL)
}

// RemoveAvatar resets the user's platform avatar
func (s *MappingService) RemoveAvatar(ctx context.Context, userID, tenantCode string) error {
	user, err := s.store.FindByUserID(ctx, userID, tenantCode)
	if err != nil {
		return err
	}
	return s.adapter.ResetAvatar(ctx, user.ExternalUserID)
}

// UpdateUser updates the user's platform display name
func (s *MappingService) UpdateUser(ctx context.Context, userID, tenantCode, name string) error {
	user, err := s.store.FindByUserID(ctx, userID, tenantCode)
	if err != nil {
		return err
	}
	if err := s.adapter.UpdateUser(ctx, user.ExternalUserID, name); err != nil {
		return err
	}

	info, err := user.GetUserInfo()
	if err != nil {
		return err
	}
	info.Name = name
	updated := &model.ChatUser{}
	if err := updated.SetUserInfo(info); err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, userID, tenantCode, map[string]interface{}{
		"user_info": updated.UserInfo,
	}); err != nil {
		// The remote rename already happened; the stale local display name
		// gets rewritten on the next update.
		s.log.Warn("Failed to persist updated display name",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return nil
}

// UserMapping resolves a platform user ID back to the internal user within
// the tenant
func (s *MappingService) UserMapping(ctx context.Context, externalUserID, tenantCode string) (*Mapping, error) {
	user, err := s.store.FindByExternalID(ctx, externalUserID, tenantCode)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		UserID:         user.UserID,
		ExternalUserID: user.ExternalUserID,
	}, nil
}

// SetActiveStatus toggles the platform user's active state
func (s *MappingService) SetActiveStatus(ctx context.Context, userID, tenantCode string, active, confirmRelinquish bool) error {
	user, err := s.store.FindByUserID(ctx, userID, tenantCode)
	if err != nil {
		return err
	}
	if user.ExternalUserID == "" {
		return fmt.Errorf("%w: mapping has no external user id", platform.ErrUserNotFound)
	}
	return s.adapter.SetActiveStatus(ctx, user.ExternalUserID, active, confirmRelinquish)
}
