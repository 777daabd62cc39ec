package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNotFound reports that the remote calendar or event is already absent.
// Callers treat it as success during teardown: the end state is achieved.
var ErrNotFound = errors.New("gcal: not found")

const (
	defaultBaseURL  = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Credential identifies one user's access to the calendar provider. It is
// threaded explicitly through every call; the client holds no ambient user
// state.
type Credential struct {
	RefreshToken string
}

// googleColorIDs maps course colors to Google Calendar color ids.
var googleColorIDs = map[string]string{
	"cardinal": "11", // Tomato
	"purple":   "9",  // Grape
	"blue":     "7",  // Peacock
	"red":      "11", // Tomato
	"green":    "10", // Basil
	"orange":   "6",  // Tangerine
	"pink":     "4",  // Flamingo
	"indigo":   "2",  // Lavender
	"teal":     "3",  // Sage
}

// ColorID returns the provider color id for a course color, defaulting to
// Peacock blue.
func ColorID(color string) string {
	if id, ok := googleColorIDs[color]; ok {
		return id
	}
	return "7"
}

// EventTime is either a whole date (all-day) or a zoned dateTime.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Reminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type Reminders struct {
	UseDefault bool       `json:"useDefault"`
	Overrides  []Reminder `json:"overrides,omitempty"`
}

// Event is the remote provider's event shape.
type Event struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// Client talks to the Google Calendar REST API on behalf of per-call
// credentials, exchanging refresh tokens for short-lived access tokens.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokenURL     string
	httpClient   *http.Client

	mu     sync.Mutex
	tokens map[string]cachedToken // refresh token -> cached access token
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		tokens:       make(map[string]cachedToken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if OAuth client credentials are set.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// CreateCalendar creates a dedicated calendar and returns its id.
func (c *Client) CreateCalendar(ctx context.Context, cred Credential, summary, description, timeZone string) (string, error) {
	payload := map[string]string{
		"summary":     summary,
		"description": description,
		"timeZone":    timeZone,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, cred, "POST", "/calendars", payload, &out); err != nil {
		return "", fmt.Errorf("create calendar: %w", err)
	}
	return out.ID, nil
}

// SetCalendarColor patches the calendar's color in the user's calendar list.
func (c *Client) SetCalendarColor(ctx context.Context, cred Credential, calendarID, colorID string) error {
	payload := map[string]string{"colorId": colorID}
	if err := c.doJSON(ctx, cred, "PATCH", "/users/me/calendarList/"+url.PathEscape(calendarID), payload, nil); err != nil {
		return fmt.Errorf("set calendar color: %w", err)
	}
	return nil
}

// DeleteCalendar removes a calendar. Returns ErrNotFound when it is already gone.
func (c *Client) DeleteCalendar(ctx context.Context, cred Credential, calendarID string) error {
	if err := c.doJSON(ctx, cred, "DELETE", "/calendars/"+url.PathEscape(calendarID), nil, nil); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return nil
}

// CreateEvent inserts an event and returns the remote event id.
func (c *Client) CreateEvent(ctx context.Context, cred Credential, calendarID string, ev *Event) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, cred, "POST", "/calendars/"+url.PathEscape(calendarID)+"/events", ev, &out); err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return out.ID, nil
}

// DeleteEvent removes an event. Returns ErrNotFound when it is already gone.
func (c *Client) DeleteEvent(ctx context.Context, cred Credential, calendarID, eventID string) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	if err := c.doJSON(ctx, cred, "DELETE", path, nil, nil); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// accessToken exchanges the refresh token for an access token, caching it
// until shortly before expiry.
func (c *Client) accessToken(ctx context.Context, cred Credential) (string, error) {
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("missing refresh token")
	}

	c.mu.Lock()
	if tok, ok := c.tokens[cred.RefreshToken]; ok && time.Now().Before(tok.expiresAt) {
		c.mu.Unlock()
		return tok.accessToken, nil
	}
	c.mu.Unlock()

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange: status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}

	c.mu.Lock()
	c.tokens[cred.RefreshToken] = cachedToken{
		accessToken: out.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute),
	}
	c.mu.Unlock()

	return out.AccessToken, nil
}

func (c *Client) doJSON(ctx context.Context, cred Credential, method, path string, payload, out any) error {
	token, err := c.accessToken(ctx, cred)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("calendar API status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode calendar API response: %w", err)
	}
	return nil
}
