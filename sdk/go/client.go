package mistletoesdk

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
)

// Client is a minimal Mistletoe HTTP API client.
type Client struct {
	BaseURL     string
	ExchangeID  string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, exchangeID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		ExchangeID: exchangeID,
		Timeout:    10 * time.Second,
	}
}

// Exchange represents the API exchange model.
type Exchange struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Matrix is row-major: Matrix[i][j] allows participant i to give to j.
type Matrix [][]bool

type MatrixView struct {
	Names  []string `json:"names"`
	Matrix Matrix   `json:"matrix"`
	Saved  bool     `json:"saved"`
}

// Participant is one drawn record.
type Participant struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Target   string `json:"target"`
}

// DrawResult is the batch returned by a draw.
type DrawResult struct {
	ID           string        `json:"id"`
	ExchangeID   string        `json:"exchange_id"`
	CreatedAt    string        `json:"created_at"`
	Participants []Participant `json:"participants"`
}

// ExportEntry is one value of an export document.
type ExportEntry struct {
	Password string `json:"password"`
	Target   string `json:"target"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ExchangeID string         `json:"exchange_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses. Code is the error envelope code when
// the body carried one.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges the admin password for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", map[string]any{"password": password}, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

// CreateExchange creates an exchange and makes it the client's current one.
func (c *Client) CreateExchange(ctx context.Context, id, description string) (Exchange, error) {
	body := map[string]any{"id": id}
	if description != "" {
		body["description"] = description
	}
	var resp Exchange
	if err := c.do(ctx, http.MethodPost, "v0/exchanges", body, &resp); err != nil {
		return resp, err
	}
	c.ExchangeID = resp.ID
	return resp, nil
}

// SetNames replaces the roster.
func (c *Client) SetNames(ctx context.Context, names []string) ([]string, error) {
	var resp struct {
		Names []string `json:"names"`
	}
	err := c.do(ctx, http.MethodPut, c.exchangePath("names"), map[string]any{"names": names}, &resp)
	return resp.Names, err
}

// Roster returns the public list of names.
func (c *Client) Roster(ctx context.Context) ([]string, error) {
	var resp struct {
		Names []string `json:"names"`
	}
	err := c.do(ctx, http.MethodGet, c.exchangePath("roster"), nil, &resp)
	return resp.Names, err
}

func (c *Client) Matrix(ctx context.Context) (MatrixView, error) {
	var resp MatrixView
	err := c.do(ctx, http.MethodGet, c.exchangePath("matrix"), nil, &resp)
	return resp, err
}

func (c *Client) SetMatrix(ctx context.Context, m Matrix) (MatrixView, error) {
	var resp MatrixView
	err := c.do(ctx, http.MethodPut, c.exchangePath("matrix"), map[string]any{"matrix": m}, &resp)
	return resp, err
}

// Draw runs a draw; maxTries <= 0 uses the server default.
func (c *Client) Draw(ctx context.Context, maxTries int) (DrawResult, error) {
	body := map[string]any{}
	if maxTries > 0 {
		body["max_tries"] = maxTries
	}
	var resp DrawResult
	err := c.do(ctx, http.MethodPost, c.exchangePath("draw"), body, &resp)
	return resp, err
}

func (c *Client) Participants(ctx context.Context) ([]Participant, error) {
	var resp []Participant
	err := c.do(ctx, http.MethodGet, c.exchangePath("participants"), nil, &resp)
	return resp, err
}

func (c *Client) Export(ctx context.Context) (map[string]ExportEntry, error) {
	var resp map[string]ExportEntry
	err := c.do(ctx, http.MethodGet, c.exchangePath("export"), nil, &resp)
	return resp, err
}

// Reveal returns the recipient for name. No credentials are needed beyond the password.
func (c *Client) Reveal(ctx context.Context, name, password string) (string, error) {
	var resp struct {
		Target string `json:"target"`
	}
	err := c.do(ctx, http.MethodPost, c.exchangePath("reveal"), map[string]any{"name": name, "password": password}, &resp)
	return resp.Target, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := c.exchangePath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) exchangePath(p string) string {
	exchange := url.PathEscape(c.ExchangeID)
	return fmt.Sprintf("v0/exchanges/%s/%s", exchange, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
