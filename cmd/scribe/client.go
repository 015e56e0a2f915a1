package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/config"
)

// tokenTTL bounds the lifetime of tokens the CLI mints for its own requests
const tokenTTL = 5 * time.Minute

// client talks to the daemon on behalf of the configured learner
type client struct {
	baseURL    string
	learnerID  string
	signer     *auth.JWTAuthenticator
	httpClient *http.Client
}

func newClient(cfg *config.Config) *client {
	c := &client{
		baseURL:    cfg.Daemon.URL(),
		learnerID:  cfg.MCP.LearnerID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.Auth.Mode == auth.ModeJWT {
		c.signer = auth.NewJWT([]byte(cfg.Auth.Secret), cfg.Auth.Issuer)
	}
	return c
}

func (c *client) do(method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.signer != nil {
		token, err := c.signer.Issue(c.learnerID, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set(auth.LearnerHeader, c.learnerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *client) getJSON(path string, out interface{}) error {
	return c.sendJSON(http.MethodGet, path, nil, out)
}

func (c *client) sendJSON(method, path string, body, out interface{}) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// apiError is the daemon's JSON error body
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details"`
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("daemon returned %s", resp.Status)
	}
	return apiErr
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
