// Package porkbun is a minimal client for the two read endpoints of the Porkbun API
// used to mirror a registrar account.
package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of createDate and expireDate. Values carry no zone and are UTC.
const DateLayout = "2006-01-02 15:04:05"

const (
	DefaultBaseURL = "https://api.porkbun.com/api/json/v3"
	// pageSize is the number of domains listAll returns per request.
	pageSize   = 1000
	statusOK   = "SUCCESS"
	maxBodyLen = 4 << 20
)

var ErrMissingCredentials = errors.New("porkbun api key and secret api key are required")

type Config struct {
	BaseURL      string
	APIKey       string
	SecretAPIKey string
	Timeout      time.Duration
}

// ConfigFromEnv reads PORKBUN_API_KEY and PORKBUN_SECRET_API_KEY.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:      DefaultBaseURL,
		APIKey:       os.Getenv("PORKBUN_API_KEY"),
		SecretAPIKey: os.Getenv("PORKBUN_SECRET_API_KEY"),
		Timeout:      30 * time.Second,
	}
	if cfg.APIKey == "" || cfg.SecretAPIKey == "" {
		return cfg, ErrMissingCredentials
	}
	return cfg, nil
}

// APIError is a non-SUCCESS response or a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("porkbun: %s (http %d): %s", e.Status, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("porkbun: %s (http %d)", e.Status, e.StatusCode)
}

// Flag decodes the API's boolean fields, which arrive as "1"/"0" strings or as numbers.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	switch raw {
	case "1", "true":
		*f = true
	case "", "0", "false", "null":
		*f = false
	default:
		if _, err := strconv.Atoi(raw); err != nil {
			return fmt.Errorf("porkbun: invalid flag %s", data)
		}
		*f = false
	}
	return nil
}

// Domain is one entry of listAll as returned by the API.
type Domain struct {
	Domain       string `json:"domain"`
	Status       string `json:"status"`
	TLD          string `json:"tld"`
	CreateDate   string `json:"createDate"`
	ExpireDate   string `json:"expireDate"`
	SecurityLock Flag   `json:"securityLock"`
	WhoisPrivacy Flag   `json:"whoisPrivacy"`
	AutoRenew    Flag   `json:"autoRenew"`
	NotLocal     Flag   `json:"notLocal"`
}

// ParseDate parses a createDate or expireDate value.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("porkbun: invalid date %q: %w", value, err)
	}
	return t, nil
}

type Client struct {
	baseURL      string
	apiKey       string
	secretAPIKey string
	http         *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" || cfg.SecretAPIKey == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		secretAPIKey: cfg.SecretAPIKey,
		http:         httpClient,
	}, nil
}

type listAllRequest struct {
	SecretAPIKey string `json:"secretapikey"`
	APIKey       string `json:"apikey"`
	Start        string `json:"start"`
}

type listAllResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Domains []Domain `json:"domains"`
}

// ListDomains returns every domain of the account, following pagination.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	var all []Domain
	for start := 0; ; start += pageSize {
		var resp listAllResponse
		err := c.post(ctx, "/domain/listAll", listAllRequest{
			SecretAPIKey: c.secretAPIKey,
			APIKey:       c.apiKey,
			Start:        strconv.Itoa(start),
		}, &resp)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Domains...)
		if len(resp.Domains) < pageSize {
			return all, nil
		}
	}
}

type credentials struct {
	SecretAPIKey string `json:"secretapikey"`
	APIKey       string `json:"apikey"`
}

type getNsResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	NS      []string `json:"ns"`
}

// GetNameservers returns the authoritative nameservers set at the registrar for domain.
func (c *Client) GetNameservers(ctx context.Context, domain string) ([]string, error) {
	var resp getNsResponse
	err := c.post(ctx, "/domain/getNs/"+url.PathEscape(domain), credentials{
		SecretAPIKey: c.secretAPIKey,
		APIKey:       c.apiKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.NS, nil
}

// statusEnvelope is decoded first so every endpoint reports failures the same way.
type statusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("porkbun %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLen))
	if err != nil {
		return fmt.Errorf("porkbun %s: reading response: %w", path, err)
	}

	var envelope statusEnvelope
	_ = json.Unmarshal(data, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || envelope.Status != statusOK {
		status := envelope.Status
		if status == "" {
			status = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Status: status, Message: envelope.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("porkbun %s: decoding response: %w", path, err)
	}
	return nil
}
