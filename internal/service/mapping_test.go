package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ELEVATE-Project/chat-communications/internal/hash"
	"github.com/ELEVATE-Project/chat-communications/internal/model"
	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"github.com/ELEVATE-Project/chat-communications/pkg/config"
	"go.uber.org/zap"
)

// In-memory UserStore for testing
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*model.ChatUser
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.ChatUser)}
}

func storeKey(userID, tenantCode string) string {
	return userID + "|" + tenantCode
}

func (s *fakeStore) Create(ctx context.Context, user *model.ChatUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(user.UserID, user.TenantCode)
	if _, exists := s.users[key]; exists {
		return platform.ErrDuplicateKey
	}
	copied := *user
	s.users[key] = &copied
	return nil
}

func (s *fakeStore) FindByUserID(ctx context.Context, userID, tenantCode string) (*model.ChatUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[storeKey(userID, tenantCode)]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, platform.ErrUserNotFound
}

func (s *fakeStore) FindByExternalID(ctx context.Context, externalUserID, tenantCode string) (*model.ChatUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ExternalUserID == externalUserID && user.TenantCode == tenantCode {
			copied := *user
			return &copied, nil
		}
	}
	return nil, platform.ErrUserNotFound
}

func (s *fakeStore) Update(ctx context.Context, userID, tenantCode string, patch map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[storeKey(userID, tenantCode)]
	if !ok {
		return 0, nil
	}
	if info, ok := patch["user_info"].(string); ok {
		user.UserInfo = info
	}
	return 1, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Call-recording Adapter for testing
type fakeAdapter struct {
	mu    sync.Mutex
	calls []string

	loginErr    error
	signupErr   error
	roomErr     error
	sendErr     error
	avatarErr   error
	activeCalls []struct {
		ExternalUserID    string
		Active            bool
		ConfirmRelinquish bool
	}
}

func (a *fakeAdapter) record(call string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
}

func (a *fakeAdapter) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeAdapter) Signup(ctx context.Context, name, username, password, email string) (string, error) {
	a.record("signup")
	if a.signupErr != nil {
		return "", a.signupErr
	}
	return "ext-" + username, nil
}

func (a *fakeAdapter) Login(ctx context.Context, username, password string) (*platform.Session, error) {
	a.record("login")
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return &platform.Session{UserID: "ext-" + username, Token: "token-" + username}, nil
}

func (a *fakeAdapter) Logout(ctx context.Context, session *platform.Session) error {
	a.record("logout")
	return nil
}

func (a *fakeAdapter) LogoutOtherClients(ctx context.Context, session *platform.Session) error {
	a.record("logoutOtherClients")
	return nil
}

func (a *fakeAdapter) InitiateRoom(ctx context.Context, usernames [2]string) (string, error) {
	a.record("initiateRoom")
	if a.roomErr != nil {
		return "", a.roomErr
	}
	return "room-1", nil
}

func (a *fakeAdapter) SendMessage(ctx context.Context, username, password, roomID, text string) error {
	a.record("sendMessage")
	return a.sendErr
}

func (a *fakeAdapter) SetAvatar(ctx context.Context, username, imageURL string) error {
	a.record("setAvatar")
	return a.avatarErr
}

func (a *fakeAdapter) ResetAvatar(ctx context.Context, externalUserID string) error {
	a.record("resetAvatar")
	return a.avatarErr
}

func (a *fakeAdapter) SetActiveStatus(ctx context.Context, externalUserID string, active, confirmRelinquish bool) error {
	a.record("setActiveStatus")
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeCalls = append(a.activeCalls, struct {
		ExternalUserID    string
		Active            bool
		ConfirmRelinquish bool
	}{externalUserID, active, confirmRelinquish})
	return nil
}

func (a *fakeAdapter) UpdateUser(ctx context.Context, externalUserID, name string) error {
	a.record("updateUser")
	return nil
}

func newTestService(t *testing.T, store UserStore, adapter platform.Adapter) *MappingService {
	t.Helper()
	hasher, err := hash.New(config.HashConfig{
		UsernameSalt:   "username-salt",
		UsernameLength: 8,
		PasswordSalt:   "password-salt",
		PasswordLength: 12,
	})
	if err != nil {
		t.Fatalf("hash.New failed: %v", err)
	}
	return New(store, adapter, hasher, zap.NewNop())
}

func TestSignupIdempotent(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	in := SignupInput{UserID: "u1", Name: "Alice", Email: "a@x.com", TenantCode: "t1"}

	first, err := svc.Signup(ctx, in)
	if err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if first.ExternalUserID == "" {
		t.Fatal("first signup produced no external user id")
	}

	second, err := svc.Signup(ctx, in)
	if err != nil {
		t.Fatalf("second signup failed: %v", err)
	}
	if second.ExternalUserID != first.ExternalUserID {
		t.Errorf("second signup returned different external id: %q != %q",
			second.ExternalUserID, first.ExternalUserID)
	}
	if store.count() != 1 {
		t.Errorf("expected exactly one record, got %d", store.count())
	}

	// The remote signup must have run exactly once
	signups := 0
	for _, call := range adapter.recorded() {
		if call == "signup" {
			signups++
		}
	}
	if signups != 1 {
		t.Errorf("expected 1 remote signup, got %d", signups)
	}
}

func TestSignupConcurrent(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Signup(ctx, SignupInput{
				UserID: "u1", Name: "Alice", TenantCode: "t1",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d failed: %v", i, err)
		}
	}
	if store.count() != 1 {
		t.Errorf("expected exactly one record after concurrent signup, got %d", store.count())
	}
}

func TestSignupTenantIsolation(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{UserID: "u1", Name: "Alice", TenantCode: "t1"}); err != nil {
		t.Fatalf("signup in t1 failed: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{UserID: "u1", Name: "Alice", TenantCode: "t2"}); err != nil {
		t.Fatalf("signup in t2 failed: %v", err)
	}
	if store.count() != 2 {
		t.Errorf("same user in two tenants should produce two records, got %d", store.count())
	}
}

func TestSignupAvatarFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{avatarErr: platform.ErrAvatarFailed}
	svc := newTestService(t, store, adapter)

	user, err := svc.Signup(context.Background(), SignupInput{
		UserID: "u1", Name: "Alice", TenantCode: "t1", ImageURL: "http://img.example/a.png",
	})
	if err != nil {
		t.Fatalf("signup should succeed despite avatar failure: %v", err)
	}
	if user.ExternalUserID == "" {
		t.Error("signup returned no external user id")
	}
}

func TestLoginUnknownUserMapsToUnauthorized(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{loginErr: platform.ErrUnauthorized}
	svc := newTestService(t, store, adapter)

	_, err := svc.Login(context.Background(), "never-signed-up")
	if !platform.IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestLoginDerivesDeterministicCredentials(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	first, err := svc.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	second, err := svc.Login(ctx, "u1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if first.UserID != second.UserID {
		t.Errorf("re-derived credentials resolved different users: %q != %q",
			first.UserID, second.UserID)
	}
}

func TestLogoutWithoutTokenRevokesOthersFirst(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{UserID: "u1", Name: "Alice", TenantCode: "t1"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	adapter.calls = nil

	if err := svc.Logout(ctx, LogoutInput{UserID: "u1", TenantCode: "t1"}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	want := []string{"login", "logoutOtherClients", "logout"}
	got := adapter.recorded()
	if len(got) != len(want) {
		t.Fatalf("unexpected call sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected call sequence %v, want %v", got, want)
		}
	}
}

func TestLogoutWithExplicitToken(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)

	err := svc.Logout(context.Background(), LogoutInput{
		Token:          "session-token",
		ExternalUserID: "ext-1",
	})
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	got := adapter.recorded()
	if len(got) != 1 || got[0] != "logout" {
		t.Errorf("explicit-token logout should call logout directly, got %v", got)
	}
}

func TestLogoutUnknownUser(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)

	err := svc.Logout(context.Background(), LogoutInput{UserID: "ghost", TenantCode: "t1"})
	if !platform.IsUserNotFound(err) {
		t.Errorf("expected user not found, got %v", err)
	}
	if len(adapter.recorded()) != 0 {
		t.Errorf("no remote call should happen when the record is missing, got %v", adapter.recorded())
	}
}

func TestCreateRoomSendsInitialMessage(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)

	roomID, err := svc.CreateRoom(context.Background(), [2]string{"u1", "u2"}, "hello")
	if err != nil {
		t.Fatalf("createRoom failed: %v", err)
	}
	if roomID != "room-1" {
		t.Errorf("unexpected room id %q", roomID)
	}

	want := []string{"initiateRoom", "sendMessage"}
	got := adapter.recorded()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("unexpected call sequence %v, want %v", got, want)
	}
}

func TestCreateRoomInvalidUserPropagatesTyped(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{roomErr: platform.ErrInvalidUser}
	svc := newTestService(t, store, adapter)

	_, err := svc.CreateRoom(context.Background(), [2]string{"u1", "ghost"}, "hello")
	if !platform.IsInvalidUser(err) {
		t.Errorf("expected invalid user, got %v", err)
	}
}

func TestUserMappingRoundTrip(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{UserID: "u1", Name: "Alice", TenantCode: "t1"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	mapping, err := svc.UserMapping(ctx, user.ExternalUserID, "t1")
	if err != nil {
		t.Fatalf("userMapping failed: %v", err)
	}
	if mapping.UserID != "u1" {
		t.Errorf("round trip returned user %q, want u1", mapping.UserID)
	}

	// The mapping must not leak across tenants
	if _, err := svc.UserMapping(ctx, user.ExternalUserID, "t2"); !platform.IsUserNotFound(err) {
		t.Errorf("mapping visible outside its tenant: %v", err)
	}
}

func TestUpdateUserRequiresRecord(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)

	err := svc.UpdateUser(context.Background(), "ghost", "t1", "New Name")
	if !platform.IsUserNotFound(err) {
		t.Errorf("expected user not found, got %v", err)
	}
}

func TestSetActiveStatusUsesExternalID(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{UserID: "u1", Name: "Alice", TenantCode: "t1"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if err := svc.SetActiveStatus(ctx, "u1", "t1", false, true); err != nil {
		t.Fatalf("setActiveStatus failed: %v", err)
	}

	if len(adapter.activeCalls) != 1 {
		t.Fatalf("expected one setActiveStatus call, got %d", len(adapter.activeCalls))
	}
	call := adapter.activeCalls[0]
	if call.ExternalUserID != user.ExternalUserID {
		t.Errorf("setActiveStatus used %q, want %q", call.ExternalUserID, user.ExternalUserID)
	}
	if call.Active || !call.ConfirmRelinquish {
		t.Errorf("setActiveStatus flags not forwarded: %+v", call)
	}
}

func TestRemoveAvatarRequiresRecord(t *testing.T) {
	store := newFakeStore()
	adapter := &fakeAdapter{}
	svc := newTestService(t, store, adapter)

	if err := svc.RemoveAvatar(context.Background(), "ghost", "t1"); !platform.IsUserNotFound(err) {
		t.Errorf("expected user not found, got %v", err)
	}
}
