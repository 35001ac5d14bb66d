// Package client implements the terminal-side runtime shared by the table,
// staff and admin views: an HTTP API client with an explicit auth context,
// the draft cart, the polling synchronizer, the payment session and the
// per-role projections over the polled snapshot.
//
// Nothing in this package is authoritative. Every structure it holds is a
// disposable projection of server state, valid only until the next
// successful poll.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tableside/venue-app/models"
)

var (
	// ErrAuthFailed means the server rejected the session. The caller
	// routes back to login; no partial session state survives.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrInvalidTransition mirrors the server's transition rejection,
	// including lost races. The remedy is a re-read, never a blind retry.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
)

// NetworkError wraps transport failures. Reads retry naturally on the next
// poll tick; mutating calls are reported failed and left to the user.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthContext holds the session credentials for one client instance. It is
// passed to whatever needs it rather than living in a package global, and
// has a defined lifecycle: set on login/QR success, cleared on logout or
// rejection.
type AuthContext struct {
	mu          sync.RWMutex
	token       string
	role        models.Role
	tableNumber *int
}

func (a *AuthContext) set(token string, role models.Role, tableNumber *int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.role = role
	a.tableNumber = tableNumber
}

func (a *AuthContext) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.role = ""
	a.tableNumber = nil
}

func (a *AuthContext) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *AuthContext) Role() models.Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.role
}

func (a *AuthContext) TableNumber() *int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tableNumber
}

func (a *AuthContext) Authenticated() bool {
	return a.Token() != ""
}

// Client talks to the venue API. The zero HTTP client is replaced with one
// carrying a timeout so a hung fetch cannot outlive several poll periods.
type Client struct {
	BaseURL string
	Auth    *AuthContext
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Auth:    &AuthContext{},
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	Role        models.Role `json:"role"`
	TableNumber *int        `json:"table_number"`
}

// Login authenticates with username/password and stores the session in the
// auth context.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var session sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &session)
	if err != nil {
		return err
	}
	c.Auth.set(session.AccessToken, session.Role, session.TableNumber)
	return nil
}

// QRAuth authenticates a table terminal with a scanned single-use token.
func (c *Client) QRAuth(ctx context.Context, tableNumber int, token string) error {
	var session sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/qr", map[string]interface{}{
		"tableNumber": tableNumber,
		"token":       token,
	}, &session)
	if err != nil {
		return err
	}
	c.Auth.set(session.AccessToken, session.Role, session.TableNumber)
	return nil
}

func (c *Client) Logout() {
	c.Auth.Clear()
}

func (c *Client) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	var menu []models.MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu", nil, &menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// GetOrders fetches the caller's orders. Scoping by role/table happens
// server-side; the client never re-derives it.
func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderItemPayload is the wire shape for a draft line: id and quantity
// only. Prices and names are recomputed server-side.
type OrderItemPayload struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

func (c *Client) CreateOrder(ctx context.Context, items []OrderItemPayload) (*models.Order, error) {
	var order models.Order
	err := c.do(ctx, http.MethodPost, "/orders", map[string]interface{}{
		"items": items,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	var order models.Order
	path := fmt.Sprintf("/orders/%d/status", orderID)
	err := c.do(ctx, http.MethodPut, path, map[string]string{
		"status": status,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type errorEnvelope struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) mapError(resp *http.Response) error {
	var envelope errorEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		// The session is no longer valid; drop it entirely.
		c.Auth.Clear()
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		if envelope.Message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, envelope.Message)
		}
		return ErrInvalidTransition
	default:
		if envelope.Message != "" {
			return errors.New(envelope.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
}
