// Package rocketchat implements the platform.Adapter contract against the
// Rocket.Chat REST API.
package rocketchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/ELEVATE-Project/chat-communications/internal/platform"
	"github.com/ELEVATE-Project/chat-communications/pkg/config"
	"github.com/ELEVATE-Project/chat-communications/prometheus"
)

const apiPrefix = "/api/v1"

// Client is a stateless Rocket.Chat REST client. Administrative calls carry the
// service-account header pair; user-scoped calls carry a session's pair.
type Client struct {
	BaseURL     string
	AdminUserID string
	AdminToken  string
	HTTPClient  *http.Client
}

// New creates a Rocket.Chat client from chat configuration
func New(cfg config.ChatConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:     cfg.BaseURL,
		AdminUserID: cfg.AdminUserID,
		AdminToken:  cfg.AdminToken,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

// errorResponse is the error envelope Rocket.Chat returns on failures
type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

type registerResponse struct {
	Success bool `json:"success"`
	User    struct {
		ID string `json:"_id"`
	} `json:"user"`
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		UserID    string `json:"userId"`
		AuthToken string `json:"authToken"`
	} `json:"data"`
}

type roomResponse struct {
	Success bool `json:"success"`
	Room    struct {
		ID string `json:"_id"`
	} `json:"room"`
}

// Signup registers a new user and returns the platform-assigned user ID
func (c *Client) Signup(ctx context.Context, name, username, password, email string) (string, error) {
	payload := map[string]string{
		"name":     name,
		"username": username,
		"pass":     password,
		"email":    email,
	}

	body, err := c.postJSON(ctx, "/users.register", payload, nil)
	if err != nil {
		return "", err
	}

	var resp registerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding signup response: %v", platform.ErrRemote, err)
	}
	if resp.User.ID == "" {
		return "", fmt.Errorf("%w: signup response missing user id", platform.ErrRemote)
	}
	return resp.User.ID, nil
}

// Login authenticates with the derived credentials and returns a session
func (c *Client) Login(ctx context.Context, username, password string) (*platform.Session, error) {
	payload := map[string]string{
		"user":     username,
		"password": password,
	}

	body, err := c.postJSON(ctx, "/login", payload, nil)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding login response: %v", platform.ErrRemote, err)
	}
	if resp.Data.AuthToken == "" {
		return nil, fmt.Errorf("%w: login response missing auth token", platform.ErrRemote)
	}
	return &platform.Session{UserID: resp.Data.UserID, Token: resp.Data.AuthToken}, nil
}

// Logout invalidates the given session
func (c *Client) Logout(ctx context.Context, session *platform.Session) error {
	_, err := c.postJSON(ctx, "/logout", map[string]string{}, session)
	return err
}

// LogoutOtherClients invalidates all sessions of the user except the given one
func (c *Client) LogoutOtherClients(ctx context.Context, session *platform.Session) error {
	_, err := c.postJSON(ctx, "/users.logoutOtherClients", map[string]string{}, session)
	return err
}

// InitiateRoom creates a direct-message room between two usernames
func (c *Client) InitiateRoom(ctx context.Context, usernames [2]string) (string, error) {
	payload := map[string]string{
		"usernames": usernames[0] + "," + usernames[1],
	}

	body, err := c.postJSON(ctx, "/im.create", payload, c.adminSession())
	if err != nil {
		return "", err
	}

	var resp roomResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding room response: %v", platform.ErrRemote, err)
	}
	if resp.Room.ID == "" {
		return "", fmt.Errorf("%w: room response missing room id", platform.ErrRemote)
	}
	return resp.Room.ID, nil
}

// SendMessage posts text to a room as the given user. The composite runs
// login, post, open room, logout; a login failure fails the whole operation
// without attempting the send.
func (c *Client) SendMessage(ctx context.Context, username, password, roomID, text string) error {
	session, err := c.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("%w: login: %v", platform.ErrSendFailed, err)
	}

	payload := map[string]string{
		"roomId": roomID,
		"text":   text,
	}
	if _, err := c.postJSON(ctx, "/chat.postMessage", payload, session); err != nil {
		return fmt.Errorf("%w: post: %v", platform.ErrSendFailed, err)
	}

	if _, err := c.postJSON(ctx, "/im.open", map[string]string{"roomId": roomID}, session); err != nil {
		return fmt.Errorf("%w: open room: %v", platform.ErrSendFailed, err)
	}

	return c.Logout(ctx, session)
}

// SetAvatar downloads the image from imageURL and uploads it as the user's
// avatar via multipart form data. Either leg failing maps to ErrAvatarFailed.
func (c *Client) SetAvatar(ctx context.Context, username, imageURL string) error {
	defer prometheus.TrackRemoteCall("/users.setAvatar")(time.Now())

	image, contentType, err := c.downloadImage(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("%w: download: %v", platform.ErrAvatarFailed, err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="avatar"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("%w: building form: %v", platform.ErrAvatarFailed, err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("%w: building form: %v", platform.ErrAvatarFailed, err)
	}
	if err := writer.WriteField("username", username); err != nil {
		return fmt.Errorf("%w: building form: %v", platform.ErrAvatarFailed, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: building form: %v", platform.ErrAvatarFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiPrefix+"/users.setAvatar", &form)
	if err != nil {
		return fmt.Errorf("%w: %v", platform.ErrAvatarFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeaders(req, c.adminSession())

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("%w: upload: %v", platform.ErrAvatarFailed, err)
	}
	return nil
}

// ResetAvatar removes the user's avatar
func (c *Client) ResetAvatar(ctx context.Context, externalUserID string) error {
	payload := map[string]string{"userId": externalUserID}
	if _, err := c.postJSON(ctx, "/users.resetAvatar", payload, c.adminSession()); err != nil {
		return fmt.Errorf("%w: reset: %v", platform.ErrAvatarFailed, err)
	}
	return nil
}

// SetActiveStatus activates or deactivates the platform user
func (c *Client) SetActiveStatus(ctx context.Context, externalUserID string, active, confirmRelinquish bool) error {
	payload := map[string]interface{}{
		"userId":            externalUserID,
		"activeStatus":      active,
		"confirmRelinquish": confirmRelinquish,
	}
	_, err := c.postJSON(ctx, "/users.setActiveStatus", payload, c.adminSession())
	return err
}

// UpdateUser updates the platform user's display name
func (c *Client) UpdateUser(ctx context.Context, externalUserID, name string) error {
	payload := map[string]interface{}{
		"userId": externalUserID,
		"data":   map[string]string{"name": name},
	}
	_, err := c.postJSON(ctx, "/users.update", payload, c.adminSession())
	return err
}

// adminSession returns the service-account header pair as a session
func (c *Client) adminSession() *platform.Session {
	return &platform.Session{UserID: c.AdminUserID, Token: c.AdminToken}
}

// postJSON issues a JSON POST against the API prefix. A nil session sends the
// request unauthenticated (signup, login).
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, session *platform.Session) ([]byte, error) {
	defer prometheus.TrackRemoteCall(path)(time.Now())

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", platform.ErrRemote, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiPrefix+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req, session)

	return c.do(req)
}

// setAuthHeaders applies the Rocket.Chat token header pair
func (c *Client) setAuthHeaders(req *http.Request, session *platform.Session) {
	if session == nil {
		return
	}
	req.Header.Set("X-Auth-Token", session.Token)
	req.Header.Set("X-User-Id", session.UserID)
}

// do executes the request and translates transport and HTTP failures into the
// domain error taxonomy.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", platform.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", platform.ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", platform.ErrRemote, err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		message := string(body)
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Error != "" {
				message = errResp.Error
			} else if errResp.Message != "" {
				message = errResp.Message
			}
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", platform.ErrUnauthorized, message)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("%w: %s", platform.ErrInvalidUser, message)
		default:
			return nil, fmt.Errorf("%w: %d %s", platform.ErrRemote, resp.StatusCode, message)
		}
	}

	return body, nil
}

// downloadImage fetches the avatar image bytes server-side
func (c *Client) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, "", fmt.Errorf("%w: %v", platform.ErrTimeout, err)
		}
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return image, contentType, nil
}

// isTimeout reports whether err is a deadline or client timeout failure
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
