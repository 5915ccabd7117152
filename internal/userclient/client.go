// Package userclient calls the user service to validate bearer tokens before
// cards and loans are issued. Any failure is reported as a denial.
package userclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bankledger/internal/apperrors"
)

const (
	DefaultTimeout = 5 * time.Second
	validatePath   = "/users/internal/validate"
)

type Validation struct {
	Valid    bool   `json:"valid"`
	OwnerID  string `json:"id"`
	Username string `json:"username,omitempty"`
	Active   bool   `json:"active"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// Validate resolves token to its owner. The call is bounded by the client
// timeout even when ctx has no deadline.
func (c *Client) Validate(ctx context.Context, token string) (Validation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+validatePath, nil)
	if err != nil {
		return Validation{}, apperrors.Wrap(apperrors.ErrAuthValidationFailed, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Validation{}, apperrors.Wrap(apperrors.ErrAuthValidationFailed, "user service unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Validation{}, apperrors.Wrap(apperrors.ErrAuthValidationFailed, "user service returned %d", resp.StatusCode)
	}
	var v Validation
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Validation{}, apperrors.Wrap(apperrors.ErrAuthValidationFailed, "decode validation: %v", err)
	}
	return v, nil
}
