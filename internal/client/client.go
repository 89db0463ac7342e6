// Package client talks to the admin JSON API on behalf of an employee.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dbgen "github.com/codr1/StaycationHaven/internal/db/generated"
	"github.com/codr1/StaycationHaven/internal/deliverables"
	"github.com/codr1/StaycationHaven/internal/listing"
	dashboardtempl "github.com/codr1/StaycationHaven/internal/templates/components/dashboard"
)

const (
	defaultTimeout = 10 * time.Second
	employeeHeader = "X-Employee-ID"
	maxErrorBody   = 4 << 10
)

// APIError is a non-2xx response. Message is the plain-text body.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

type Client struct {
	baseURL    string
	employeeID int64
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client acting as employeeID against the server at baseURL.
func New(baseURL string, employeeID int64, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		employeeID: employeeID,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.employeeID > 0 {
		req.Header.Set(employeeHeader, strconv.FormatInt(c.employeeID, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// listAll walks every page of a listing endpoint.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", strconv.Itoa(listing.MaxPerPage))

	var rows []T
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))
		var resp listing.Page[T]
		if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
			return nil, err
		}
		rows = append(rows, resp.Rows...)
		if page >= resp.TotalPages {
			return rows, nil
		}
	}
}

// ListDeliverables returns every add-on item, or one booking's when bookingID > 0.
func (c *Client) ListDeliverables(ctx context.Context, bookingID int64) ([]dbgen.ListDeliverablesRow, error) {
	query := url.Values{}
	if bookingID > 0 {
		query.Set("booking_id", strconv.FormatInt(bookingID, 10))
	}
	return listAll[dbgen.ListDeliverablesRow](ctx, c, "/api/admin/deliverables", query)
}

// UpdateDeliverableStatus moves one item and returns it as stored.
func (c *Client) UpdateDeliverableStatus(ctx context.Context, id int64, status deliverables.Status) (dbgen.Deliverable, error) {
	var out dbgen.Deliverable
	path := "/api/admin/deliverables/" + strconv.FormatInt(id, 10)
	err := c.do(ctx, http.MethodPatch, path, nil, map[string]string{"status": string(status)}, &out)
	return out, err
}

// BatchResult mirrors the batch status change response.
type BatchResult struct {
	Status  deliverables.Status  `json:"status"`
	Changed []int64              `json:"changed"`
	Skipped []int64              `json:"skipped"`
	Groups  []deliverables.Group `json:"groups"`
}

// UpdateGroupStatus moves every item of a booking's group in one request.
func (c *Client) UpdateGroupStatus(ctx context.Context, bookingID int64, name string, status deliverables.Status) (BatchResult, error) {
	var out BatchResult
	body := map[string]any{"booking_id": bookingID, "name": name, "status": string(status)}
	err := c.do(ctx, http.MethodPatch, "/api/admin/deliverables", nil, body, &out)
	return out, err
}

type Notifications struct {
	Rows        []dbgen.Notification `json:"rows"`
	UnreadCount int64                `json:"unread_count"`
	ServerTime  time.Time            `json:"server_time"`
}

// ListNotifications returns notifications newer than since. A zero since
// returns the most recent ones.
func (c *Client) ListNotifications(ctx context.Context, since time.Time, unreadOnly bool) (Notifications, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	if unreadOnly {
		query.Set("unread", "true")
	}
	var out Notifications
	err := c.do(ctx, http.MethodGet, "/api/admin/notifications", query, nil, &out)
	return out, err
}

// MarkNotificationsRead marks ids read, or everything when ids is empty.
func (c *Client) MarkNotificationsRead(ctx context.Context, ids []int64) (int64, error) {
	body := map[string]any{"ids": ids}
	if len(ids) == 0 {
		body = map[string]any{"all": true}
	}
	var out struct {
		Marked int64 `json:"marked"`
	}
	err := c.do(ctx, http.MethodPost, "/api/admin/notifications/read", nil, body, &out)
	return out.Marked, err
}

func (c *Client) DashboardSummary(ctx context.Context) (dashboardtempl.Summary, error) {
	var out dashboardtempl.Summary
	err := c.do(ctx, http.MethodGet, "/api/admin/dashboard/summary", nil, nil, &out)
	return out, err
}

type BookingRow struct {
	dbgen.ListBookingsRow
	BalanceCents int64 `json:"balance_cents"`
}

// ListBookings returns one page of bookings for the given listing query.
func (c *Client) ListBookings(ctx context.Context, query url.Values) (listing.Page[BookingRow], error) {
	var out listing.Page[BookingRow]
	err := c.do(ctx, http.MethodGet, "/api/admin/bookings", query, nil, &out)
	return out, err
}

type InventoryItem struct {
	dbgen.InventoryItem
	LowStock bool `json:"low_stock"`
}

func (c *Client) ListInventory(ctx context.Context, lowStockOnly bool) ([]InventoryItem, error) {
	query := url.Values{}
	if lowStockOnly {
		query.Set("low_stock", "true")
	}
	return listAll[InventoryItem](ctx, c, "/api/inventory", query)
}
