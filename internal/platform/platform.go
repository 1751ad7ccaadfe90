// Package platform defines the chat-platform adapter contract and the domain
// error taxonomy shared by the bridge.
package platform

import "context"

// Session is a platform-issued token pair for user-scoped calls.
type Session struct {
	UserID string
	Token  string
}

// Adapter is the stateless client contract against a chat platform's REST API.
// One implementation exists per platform; the variant is selected from
// configuration and injected at startup.
type Adapter interface {
	// Signup registers a new platform user and returns its platform-assigned ID.
	Signup(ctx context.Context, name, username, password, email string) (string, error)

	// Login authenticates with derived credentials and returns a session.
	Login(ctx context.Context, username, password string) (*Session, error)

	// Logout invalidates the given session.
	Logout(ctx context.Context, session *Session) error

	// LogoutOtherClients invalidates every session of the user except the
	// given one.
	LogoutOtherClients(ctx context.Context, session *Session) error

	// InitiateRoom creates a direct-message room between two platform usernames
	// and returns the room ID.
	InitiateRoom(ctx context.Context, usernames [2]string) (string, error)

	// SendMessage posts text to a room as the given user. Composite operation:
	// login, post, open room, logout. A login failure fails the whole call
	// without attempting the send.
	SendMessage(ctx context.Context, username, password, roomID, text string) error

	// SetAvatar downloads the image server-side and uploads it as the user's
	// avatar.
	SetAvatar(ctx context.Context, username, imageURL string) error

	// ResetAvatar removes the user's avatar.
	ResetAvatar(ctx context.Context, externalUserID string) error

	// SetActiveStatus activates or deactivates the platform user.
	SetActiveStatus(ctx context.Context, externalUserID string, active, confirmRelinquish bool) error

	// UpdateUser updates the platform user's display name.
	UpdateUser(ctx context.Context, externalUserID, name string) error
}
