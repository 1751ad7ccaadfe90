package platform

import "errors"

// Domain errors for the chat bridge. Remote adapter failures are translated
// into this fixed set at the adapter boundary so callers never see
// transport-level detail.
var (
	// ErrUnauthorized means the remote platform rejected the presented
	// credentials or token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidUser means the remote platform rejected the user data
	// (400-class invalid-user response).
	ErrInvalidUser = errors.New("invalid user")
	// ErrUserNotFound means no local mapping record exists for the user.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateKey means a non-deleted record already exists for the
	// (user_id, tenant_code) pair.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrTimeout means an outbound call exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrSendFailed means the composite send-message operation failed before
	// or during the send.
	ErrSendFailed = errors.New("message send failed")
	// ErrAvatarFailed means either the avatar download or the upload leg failed.
	ErrAvatarFailed = errors.New("avatar update failed")
	// ErrRemote is the unclassified passthrough for any other remote failure.
	ErrRemote = errors.New("remote platform error")
)

// IsUnauthorized reports whether err is a credential/token rejection
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidUser reports whether err is a remote invalid-user rejection
func IsInvalidUser(err error) bool {
	return errors.Is(err, ErrInvalidUser)
}

// IsUserNotFound reports whether err means the local mapping is absent
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsDuplicateKey reports whether err is a unique-constraint violation
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsTimeout reports whether err is an outbound call deadline failure
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
