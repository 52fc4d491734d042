// Package grapeiq is a Go SDK for the GrapeIQ analytics API: login, the
// per-tenant analytics and list endpoints, and the forecast job endpoints.
package grapeiq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"grapeiq/internal/session"
	"grapeiq/internal/util"
)

// Endpoint paths, relative to the base URL. Analytics and list endpoints get
// the tenant id appended as the final path segment.
const (
	EndpointLogin               = "/auth/login"
	EndpointTotalSales          = "/data/analytics/total_sales"
	EndpointTotalInventory      = "/data/analytics/total_inventory"
	EndpointTotalInventoryValue = "/data/analytics/total_inventory_value"
	EndpointSalesByChannel      = "/data/analytics/sales_by_channel"
	EndpointSales               = "/data/sales"
	EndpointProducts            = "/data/products"
	EndpointInventory           = "/data/inventory"
	EndpointForecastRun         = "/forecast/run"
	EndpointForecastResults     = "/forecast/results"
	EndpointForecastFromFile    = "/forecast/from-file"
)

// Client talks to one GrapeIQ API root.
type Client struct {
	baseURL        string
	tenantID       string
	forecastSecret string
	httpClient     *http.Client
	limiter        *util.RateLimiter
	log            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTenant fixes the tenant id. Without it the tenant is taken from the
// session token's tenant_id claim.
func WithTenant(id string) Option {
	return func(c *Client) { c.tenantID = id }
}

// WithForecastSecret sets the shared secret some older backends still
// require on the forecast endpoints. It is sent in addition to the bearer
// token.
func WithForecastSecret(secret string) Option {
	return func(c *Client) { c.forecastSecret = secret }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit caps outgoing requests at perMinute per minute, allowing
// bursts of up to burst requests. Zero disables the limit.
func WithRateLimit(perMinute, burst int) Option {
	return func(c *Client) { c.limiter = util.NewRateLimiter(perMinute, burst) }
}

// WithLogger sets the logger used for swallowed fetch failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new GrapeIQ API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends req once the rate limiter allows it.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Tenant returns the tenant used for sess.
func (c *Client) Tenant(sess *session.Session) string {
	if c.tenantID != "" {
		return c.tenantID
	}
	return sess.TenantID()
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// Login exchanges credentials for a session. Every failure wraps
// ErrAuthFailed.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrAuthFailed)
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decoding token: %v", ErrAuthFailed, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access_token", ErrAuthFailed)
	}

	return session.New(tr.AccessToken), nil
}

// ---------------------------------------------------------------------------
// Data fetcher
// ---------------------------------------------------------------------------

// GetJSON issues GET <base><endpoint>/<tenant> with the session's bearer
// token and decodes the JSON body into out. Failures are *FetchError.
func (c *Client) GetJSON(ctx context.Context, sess *session.Session, endpoint string, out any) error {
	u := c.baseURL + endpoint + "/" + url.PathEscape(c.Tenant(sess))
	return c.getJSON(ctx, sess, endpoint, u, out)
}

// Fetch is GetJSON with failures logged and swallowed: it reports whether
// out was filled. On false, out is left untouched so callers fall back to
// their zero/empty defaults.
func (c *Client) Fetch(ctx context.Context, sess *session.Session, endpoint string, out any) bool {
	if err := c.GetJSON(ctx, sess, endpoint, out); err != nil {
		c.log.Error("fetch failed", "endpoint", endpoint, "error", err)
		return false
	}
	return true
}

func (c *Client) getJSON(ctx context.Context, sess *session.Session, endpoint, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	c.authorize(req, sess)

	resp, err := c.do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	// A syntactically broken body must not touch out.
	if !json.Valid(raw) {
		return &FetchError{Endpoint: endpoint, Err: errors.New("decoding body: invalid JSON")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("decoding body: %w", err)}
	}
	return nil
}

func (c *Client) authorize(req *http.Request, sess *session.Session) {
	if tok := sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

// --- typed getters (default-on-missing-data) ---

// TotalSales returns Σ(qty×price) over all sales, or 0.
func (c *Client) TotalSales(ctx context.Context, sess *session.Session) float64 {
	var r totalSalesResponse
	c.Fetch(ctx, sess, EndpointTotalSales, &r)
	return r.TotalSales
}

// TotalInventory returns the total units in stock, or 0.
func (c *Client) TotalInventory(ctx context.Context, sess *session.Session) int64 {
	var r totalInventoryResponse
	c.Fetch(ctx, sess, EndpointTotalInventory, &r)
	return r.TotalInventory
}

// TotalInventoryValue returns the monetary value of the stock, or 0.
func (c *Client) TotalInventoryValue(ctx context.Context, sess *session.Session) float64 {
	var r totalInventoryValueResponse
	c.Fetch(ctx, sess, EndpointTotalInventoryValue, &r)
	return r.TotalInventoryValue
}

// SalesByChannel returns the server's per-channel figures; never nil.
func (c *Client) SalesByChannel(ctx context.Context, sess *session.Session) map[string]float64 {
	var r salesByChannelResponse
	c.Fetch(ctx, sess, EndpointSalesByChannel, &r)
	if r.SalesByChannel == nil {
		return map[string]float64{}
	}
	return r.SalesByChannel
}

// Sales returns all sale lines; never nil.
func (c *Client) Sales(ctx context.Context, sess *session.Session) []SalesRecord {
	return fetchList[SalesRecord](ctx, c, sess, EndpointSales)
}

// Products returns the catalogue; never nil.
func (c *Client) Products(ctx context.Context, sess *session.Session) []ProductRecord {
	return fetchList[ProductRecord](ctx, c, sess, EndpointProducts)
}

// Inventory returns the stock lines; never nil.
func (c *Client) Inventory(ctx context.Context, sess *session.Session) []InventoryRecord {
	return fetchList[InventoryRecord](ctx, c, sess, EndpointInventory)
}

func fetchList[T any](ctx context.Context, c *Client, sess *session.Session, endpoint string) []T {
	var r listResponse[T]
	c.Fetch(ctx, sess, endpoint, &r)
	if r.Data == nil {
		return []T{}
	}
	return r.Data
}

// ---------------------------------------------------------------------------
// Forecast
// ---------------------------------------------------------------------------

// RunForecast asks the backend to start a forecast job for the tenant. It
// returns once the job has been accepted, not when it has finished.
func (c *Client) RunForecast(ctx context.Context, sess *session.Session) error {
	q := url.Values{}
	q.Set("tenant_id", c.Tenant(sess))
	if c.forecastSecret != "" {
		q.Set("secret", c.forecastSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointForecastRun+"?"+q.Encode(), nil)
	if err != nil {
		return &FetchError{Endpoint: EndpointForecastRun, Err: err}
	}
	c.authorize(req, sess)

	resp, err := c.do(req)
	if err != nil {
		return &FetchError{Endpoint: EndpointForecastRun, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Endpoint: EndpointForecastRun, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return nil
}

// ForecastResults returns the current forecast rows for the tenant.
func (c *Client) ForecastResults(ctx context.Context, sess *session.Session) ([]ForecastPoint, error) {
	u := c.baseURL + EndpointForecastResults + "/" + url.PathEscape(c.Tenant(sess))
	if c.forecastSecret != "" {
		u += "?" + url.Values{"secret": {c.forecastSecret}}.Encode()
	}

	var points []ForecastPoint
	if err := c.getJSON(ctx, sess, EndpointForecastResults, u, &points); err != nil {
		return nil, err
	}
	if points == nil {
		points = []ForecastPoint{}
	}
	return points, nil
}

// UploadDataset posts a sales dataset (.csv/.xlsx/.xls) to the ingestion
// endpoint as multipart field "file".
func (c *Client) UploadDataset(ctx context.Context, sess *session.Session, filename string, r io.Reader) error {
	name := filepath.Base(filename)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if tenant := c.Tenant(sess); tenant != "" {
		if err := mw.WriteField("tenant_id", tenant); err != nil {
			return &UploadError{File: name, Err: err}
		}
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return &UploadError{File: name, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return &UploadError{File: name, Err: fmt.Errorf("reading dataset: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return &UploadError{File: name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointForecastFromFile, &body)
	if err != nil {
		return &UploadError{File: name, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req, sess)

	resp, err := c.do(req)
	if err != nil {
		return &UploadError{File: name, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UploadError{File: name, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return nil
}
