// Package api is an HTTP client for the eventhub REST API. Protected calls
// rejected for a missing, invalid or expired access token are retried once
// after refreshing it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/client/models"
	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/netx"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrUnavailable wraps transport failures (server down, timeouts).
	ErrUnavailable = errors.New("server unavailable")
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode    int
	Message       string
	MissingFields []string
	InvalidFields []string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.MissingFields) > 0 {
		msg += ": " + strings.Join(e.MissingFields, ", ")
	}
	if len(e.InvalidFields) > 0 {
		msg += ": " + strings.Join(e.InvalidFields, ", ")
	}
	return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
}

// TokenSink is notified when the session changes. Save receives the full
// pair after login or register, Refreshed only the new access token, and
// Clear is called on logout or when the refresh token is rejected.
type TokenSink interface {
	Save(ctx context.Context, t models.Tokens, email string) error
	SaveAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL string
	http    *http.Client
	sink    TokenSink

	mu     sync.Mutex
	tokens models.Tokens
	email  string
}

// New returns a client for baseURL. sink may be nil.
func New(baseURL string, timeout time.Duration, sink TokenSink) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		sink:    sink,
	}
}

// Restore installs a previously saved session.
func (c *Client) Restore(t models.Tokens, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
	c.email = email
}

func (c *Client) Tokens() models.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Client) Email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.email
}

func (c *Client) LoggedIn() bool {
	return !c.Tokens().Empty()
}

type RegisterRequest struct {
	Name      string  `json:"name,omitempty"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Gender    *string `json:"gender,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
}

type EventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Date        string  `json:"date"`
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*models.User, error) {
	var out sessionResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", "", jsonBody(in), &out); err != nil {
		return nil, err
	}
	return c.startSession(ctx, out)
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	in := map[string]string{"email": email, "password": password}
	var out sessionResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", "", jsonBody(in), &out); err != nil {
		return nil, err
	}
	return c.startSession(ctx, out)
}

func (c *Client) startSession(ctx context.Context, s sessionResponse) (*models.User, error) {
	t := models.Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	c.Restore(t, s.User.Email)
	if c.sink != nil {
		if err := c.sink.Save(ctx, t, s.User.Email); err != nil {
			return &s.User, fmt.Errorf("save session: %w", err)
		}
	}
	return &s.User, nil
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh token ends the session.
func (c *Client) Refresh(ctx context.Context) error {
	rt := c.Tokens().RefreshToken
	if rt == "" {
		return ErrNotLoggedIn
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.call(ctx, http.MethodPost, "/api/auth/refresh", "", jsonBody(map[string]string{"refreshToken": rt}), &out)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			c.forget(ctx)
		}
		return err
	}

	c.mu.Lock()
	c.tokens.AccessToken = out.AccessToken
	c.mu.Unlock()
	if c.sink != nil {
		if err := c.sink.SaveAccessToken(ctx, out.AccessToken); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

// Logout revokes the refresh tokens server-side and forgets the session
// locally even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.authed(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.forget(ctx)
	return err
}

func (c *Client) forget(ctx context.Context) {
	c.Restore(models.Tokens{}, "")
	if c.sink != nil {
		_ = c.sink.Clear(ctx)
	}
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.authed(ctx, http.MethodGet, "/api/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListEvents lists events. page 0 lists all of them.
func (c *Client) ListEvents(ctx context.Context, page, limit int) ([]models.Event, error) {
	path := "/api/events"
	if page > 0 {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		path += "?" + q.Encode()
	}
	var out []models.Event
	if err := c.authed(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventRequest) (*models.Event, error) {
	var e models.Event
	if err := c.authed(ctx, http.MethodPost, "/api/events", jsonBody(in), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UploadImage attaches an image to an event and returns its URL.
func (c *Client) UploadImage(ctx context.Context, eventID int64, filename string, data []byte) (string, error) {
	body := func() (io.Reader, string, error) {
		return netx.MultipartFile("image", filename, data)
	}
	var out struct {
		ImageURL string `json:"image_url"`
	}
	path := "/api/events/" + strconv.FormatInt(eventID, 10) + "/image"
	if err := c.authed(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}

// bodyFunc builds a fresh request body, so a retried request can resend it.
type bodyFunc func() (io.Reader, string, error)

func jsonBody(v any) bodyFunc {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func (c *Client) authed(ctx context.Context, method, path string, body bodyFunc, out any) error {
	token := c.Tokens().AccessToken
	if token == "" {
		return ErrNotLoggedIn
	}

	err := c.call(ctx, method, path, token, body, out)
	if !staleToken(err) {
		return err
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		return fmt.Errorf("%w (refresh failed: %v)", err, rerr)
	}
	return c.call(ctx, method, path, c.Tokens().AccessToken, body, out)
}

// staleToken reports whether the server rejected the access token itself.
// Other 403s, such as editing someone else's profile, are final.
func staleToken(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return apiErr.Message == common.ErrInvalidToken.Error() ||
			apiErr.Message == common.ErrTokenExpired.Error()
	}
	return false
}

func (c *Client) call(ctx context.Context, method, path, token string, body bodyFunc, out any) error {
	var (
		rdr io.Reader
		ct  string
	)
	if body != nil {
		var err error
		if rdr, ct, err = body(); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return toAPIError(err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func toAPIError(err error) error {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return err
	}
	apiErr := &Error{StatusCode: se.StatusCode}
	var body struct {
		Message       string   `json:"message"`
		MissingFields []string `json:"missingFields"`
		InvalidFields []string `json:"invalidFields"`
	}
	if json.Unmarshal([]byte(se.Body), &body) == nil {
		apiErr.Message = body.Message
		apiErr.MissingFields = body.MissingFields
		apiErr.InvalidFields = body.InvalidFields
	}
	return apiErr
}
