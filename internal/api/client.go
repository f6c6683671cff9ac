// Package api implements the HTTP contract of the ledger backend: groups,
// users, the flattened activity feed, expense submission, and per-group
// balances and settlements. All amounts crossing this boundary are integers
// in minor currency units.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"splitview/internal/core"
)

var (
	// ErrLoad wraps any failed read from the backend. A failed join of
	// concurrent loads surfaces as ErrLoad as a whole.
	ErrLoad = errors.New("load from ledger backend failed")

	// ErrSubmit wraps any failed create call. Submissions are never retried
	// automatically.
	ErrSubmit = errors.New("submit to ledger backend failed")

	// ErrNotFound reports a referenced entity the backend does not know.
	ErrNotFound = errors.New("not found")
)

// Client is a thin JSON client for the ledger backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Groups(ctx context.Context) ([]core.Group, error) {
	return getJSON[[]core.Group](ctx, c, "/groups")
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) CreateGroup(ctx context.Context, name, description string) (core.Group, error) {
	return postJSON[createGroupRequest, core.Group](ctx, c, "/groups",
		createGroupRequest{Name: name, Description: description})
}

func (c *Client) Users(ctx context.Context) ([]core.User, error) {
	return getJSON[[]core.User](ctx, c, "/users")
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	return postJSON[createUserRequest, core.User](ctx, c, "/users",
		createUserRequest{Name: name, Email: email})
}

// Activities returns the flattened expense feed across all groups.
func (c *Client) Activities(ctx context.Context) ([]core.Activity, error) {
	return getJSON[[]core.Activity](ctx, c, "/activities")
}

func (c *Client) Balances(ctx context.Context, groupID int64) ([]core.Balance, error) {
	return getJSON[[]core.Balance](ctx, c, fmt.Sprintf("/groups/%d/balances", groupID))
}

func (c *Client) Settlements(ctx context.Context, groupID int64) ([]core.Settlement, error) {
	return getJSON[[]core.Settlement](ctx, c, fmt.Sprintf("/groups/%d/settlements", groupID))
}

// ExpenseRequest is the expense creation payload. Splits is the allocator's
// output and must sum exactly to Amount.
type ExpenseRequest struct {
	PayerID     int64        `json:"payer_id"`
	Amount      int64        `json:"amount"`
	Description string       `json:"description"`
	Splits      []core.Split `json:"splits"`
}

func (c *Client) AddExpense(ctx context.Context, groupID int64, req ExpenseRequest) (core.Activity, error) {
	return postJSON[ExpenseRequest, core.Activity](ctx, c,
		fmt.Sprintf("/groups/%d/expenses", groupID), req)
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return out, fmt.Errorf("%w: build request: %v", ErrLoad, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: GET %s: %v", ErrLoad, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("%w: GET %s: %s", ErrLoad, path, statusDetail(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: GET %s: decode response: %v", ErrLoad, path, err)
	}
	return out, nil
}

func postJSON[Req, Resp any](ctx context.Context, c *Client, path string, body Req) (Resp, error) {
	var out Resp
	payload, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("%w: encode request: %v", ErrSubmit, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("%w: build request: %v", ErrSubmit, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: POST %s: %v", ErrSubmit, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("%w: POST %s: %s", ErrSubmit, path, statusDetail(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%w: POST %s: decode response: %v", ErrSubmit, path, err)
	}
	return out, nil
}

// statusDetail renders a non-2xx response as "status: body snippet" for
// error messages, keeping the body short.
func statusDetail(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	body := strings.TrimSpace(string(snippet))
	if body == "" {
		return resp.Status
	}
	return resp.Status + ": " + body
}
