// Package remote implements storage.Provider against a `tally serve` instance.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

// Client talks to the tally HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// errorBody mirrors the server's JSON error shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New returns a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// Init checks that the server is reachable.
func (c *Client) Init() error {
	return c.health(context.Background())
}

// Load checks that the server is reachable.
func (c *Client) Load() error {
	return c.health(context.Background())
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Location returns the server URL.
func (c *Client) Location() string {
	return c.baseURL.String()
}

func (c *Client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health", nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server %s unreachable: %w", c.Location(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server %s unhealthy: %s", c.Location(), resp.Status)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return storage.NewError(storage.KindInternal, "failed to encode request", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return storage.NewError(storage.KindInternal, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return storage.NewError(storage.KindUnavailable, "Could not reach the server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return storage.NewError(storage.KindInternal, "failed to decode response", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Code == "" {
		eb.Message = strings.TrimSpace(string(raw))
		if eb.Message == "" {
			eb.Message = resp.Status
		}
	}
	kind := kindFor(resp.StatusCode, eb.Code)
	logger.Debug("Server returned error", "status", resp.StatusCode, "code", eb.Code)
	return storage.NewError(kind, eb.Message, fmt.Errorf("server returned %s", resp.Status))
}

// kindFor trusts the body code when it names a known kind, else the status.
func kindFor(status int, code string) storage.Kind {
	switch k := storage.Kind(code); k {
	case storage.KindDuplicate, storage.KindNotFound, storage.KindUnauthorized,
		storage.KindInvalid, storage.KindUnavailable, storage.KindInternal:
		return k
	}
	switch status {
	case http.StatusConflict:
		return storage.KindDuplicate
	case http.StatusNotFound:
		return storage.KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return storage.KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return storage.KindInvalid
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return storage.KindUnavailable
	default:
		return storage.KindInternal
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "",
		map[string]string{"email": email, "password": password}, &session)
	return session, err
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, "",
		map[string]string{"email": email, "password": password}, &session)
	return session, err
}

func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/authorize", nil, "",
		map[string]string{"provider": provider, "redirect_to": redirectTo}, &out)
	return out.URL, err
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (models.Session, error) {
	var session models.Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}}, "",
		map[string]string{"refresh_token": refreshToken}, &session)
	return session, err
}

func (c *Client) SignOut(ctx context.Context, session models.Session) error {
	var body interface{}
	if session.RefreshToken != "" {
		body = map[string]string{"refresh_token": session.RefreshToken}
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, session.AccessToken, body, nil)
}

func (c *Client) VerifyAccessToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, storage.NewError(storage.KindUnauthorized, storage.MsgSessionMissing, nil)
	}
	var user models.User
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, token, nil, &user)
	return user, err
}

func (c *Client) ListHabits(ctx context.Context, session models.Session) ([]models.Habit, error) {
	habits := []models.Habit{}
	err := c.do(ctx, http.MethodGet, "/rest/v1/habits", nil, session.AccessToken, nil, &habits)
	return habits, err
}

func (c *Client) GetHabit(ctx context.Context, session models.Session, id string) (models.Habit, error) {
	var habit models.Habit
	err := c.do(ctx, http.MethodGet, "/rest/v1/habits/"+url.PathEscape(id), nil, session.AccessToken, nil, &habit)
	return habit, err
}

func (c *Client) InsertHabit(ctx context.Context, session models.Session, habit models.NewHabit) (models.Habit, error) {
	var created models.Habit
	err := c.do(ctx, http.MethodPost, "/rest/v1/habits", nil, session.AccessToken, habit, &created)
	return created, err
}

func (c *Client) UpdateHabit(ctx context.Context, session models.Session, id string, update models.HabitUpdate) (models.Habit, error) {
	var habit models.Habit
	err := c.do(ctx, http.MethodPatch, "/rest/v1/habits/"+url.PathEscape(id), nil, session.AccessToken, update, &habit)
	return habit, err
}

func (c *Client) DeleteHabit(ctx context.Context, session models.Session, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/habits/"+url.PathEscape(id), nil, session.AccessToken, nil, nil)
}

func (c *Client) UpsertProfile(ctx context.Context, session models.Session, profile models.Profile) error {
	return c.do(ctx, http.MethodPut, "/rest/v1/profiles", nil, session.AccessToken, profile, nil)
}

func (c *Client) InsertHabitLog(ctx context.Context, session models.Session, log models.NewHabitLog) (models.HabitLog, error) {
	var entry models.HabitLog
	err := c.do(ctx, http.MethodPost, "/rest/v1/habit_logs", nil, session.AccessToken, log, &entry)
	return entry, err
}

func (c *Client) ListHabitLogs(ctx context.Context, session models.Session, since time.Time) ([]models.HabitLog, error) {
	logs := []models.HabitLog{}
	var q url.Values
	if !since.IsZero() {
		q = url.Values{"since": {since.UTC().Format(time.RFC3339Nano)}}
	}
	err := c.do(ctx, http.MethodGet, "/rest/v1/habit_logs", q, session.AccessToken, nil, &logs)
	return logs, err
}
