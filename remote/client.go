// Package remote implements the HTTP client for the remote collection
// service (Kinto protocol): collection metadata, record listings, records
// timestamps and metadata patches.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/sigwatch-dev/sigwatch/collection/entities"
	"github.com/sigwatch-dev/sigwatch/collection/values"
	"github.com/sigwatch-dev/sigwatch/netutil"
)

// Client talks to one server. It implements ports.RemoteClient.
type Client struct {
	serverURL  string
	httpClient *http.Client
	user       string
	secret     string
	userAgent  string
	maxBody    int64
}

// Error is a non-2xx response from the remote service.
type Error struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// ServerInfo is the root document of the remote service.
type ServerInfo struct {
	ProjectName    string `json:"project_name"`
	ProjectVersion string `json:"project_version"`
	HTTPAPIVersion string `json:"http_api_version"`
}

// NewClient creates a client for a server root URL (including the API
// prefix, e.g. https://settings.example.com/v1).
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.timeout,
			Transport: &netutil.RetryTransport{
				MaxRetries:     cfg.maxRetries,
				InitialBackoff: cfg.initialBackoff,
				OnRetry: func(attempt int, wait time.Duration, status int) {
					logger.Warn("retrying request", "attempt", attempt, "wait", wait, "status", status)
				},
			},
		}
	}

	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: httpClient,
		user:       cfg.user,
		secret:     cfg.secret,
		userAgent:  cfg.userAgent,
		maxBody:    cfg.maxBodySize,
	}, nil
}

// ServerURL returns the configured server root, safe for logging.
func (c *Client) ServerURL() string {
	return netutil.StripCredentials(c.serverURL)
}

// GetCollection fetches the authoritative metadata of a collection.
func (c *Client) GetCollection(ctx context.Context, ref values.CollectionRef) (entities.CollectionMetadata, error) {
	var envelope struct {
		Data collectionData `json:"data"`
	}
	if err := c.getJSON(ctx, ref.Endpoint(), &envelope); err != nil {
		return entities.CollectionMetadata{}, err
	}
	return envelope.Data.metadata(), nil
}

// GetCollectionRaw fetches collection metadata as the raw server
// document, including server-defined fields outside CollectionMetadata
// (e.g. record schemas).
func (c *Client) GetCollectionRaw(ctx context.Context, ref values.CollectionRef) (map[string]any, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, ref.Endpoint(), &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// ListRecords fetches a collection's records in the given sort order.
// An empty sort uses the server default.
func (c *Client) ListRecords(ctx context.Context, ref values.CollectionRef, sort string) ([]entities.Record, error) {
	endpoint := ref.Endpoint() + "/records"
	if sort != "" {
		endpoint += "?_sort=" + sort
	}

	var envelope struct {
		Data []entities.Record `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// RecordsTimestamp fetches the authoritative timestamp of a collection's
// record set from the ETag of its records endpoint, independent of any
// listing.
func (c *Client) RecordsTimestamp(ctx context.Context, ref values.CollectionRef) (values.Timestamp, error) {
	endpoint := ref.Endpoint() + "/records"
	req, err := c.newRequest(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &Error{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return 0, fmt.Errorf("HEAD %s: no ETag in response", endpoint)
	}

	ts, err := values.ParseTimestamp(etag)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: malformed ETag %q: %w", endpoint, etag, err)
	}
	return ts, nil
}

// PatchCollection updates metadata fields of a collection and returns the
// resulting metadata. Requires credentials.
func (c *Client) PatchCollection(ctx context.Context, ref values.CollectionRef, data map[string]any) (entities.CollectionMetadata, error) {
	if c.user == "" {
		return entities.CollectionMetadata{}, fmt.Errorf("patching %s requires credentials", ref)
	}

	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return entities.CollectionMetadata{}, fmt.Errorf("encoding patch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, ref.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return entities.CollectionMetadata{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var envelope struct {
		Data collectionData `json:"data"`
	}
	if err := c.doJSON(req, &envelope); err != nil {
		return entities.CollectionMetadata{}, err
	}
	return envelope.Data.metadata(), nil
}

// ServerInfo fetches the root document of the server.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	if err := c.getJSON(ctx, "/", &info); err != nil {
		return ServerInfo{}, err
	}
	return info, nil
}

// CheckServerVersion fetches the server info and verifies its project
// version against a semver constraint (e.g. ">= 3.0.0"). Servers that do
// not report a parseable version fail the check.
func (c *Client) CheckServerVersion(ctx context.Context, constraint string) error {
	check, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	info, err := c.ServerInfo(ctx)
	if err != nil {
		return err
	}

	version, err := semver.NewVersion(info.ProjectVersion)
	if err != nil {
		return fmt.Errorf("server reports unparseable version %q: %w", info.ProjectVersion, err)
	}

	if !check.Check(version) {
		return fmt.Errorf("server version %s does not satisfy %q", version, constraint)
	}
	return nil
}

// collectionData is the wire form of collection metadata.
type collectionData struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	LastModified int64            `json:"last_modified"`
	Signature    values.Signature `json:"signature"`
}

func (d collectionData) metadata() entities.CollectionMetadata {
	return entities.CollectionMetadata{
		ID:           d.ID,
		Status:       d.Status,
		LastModified: values.Timestamp(d.LastModified),
		Signature:    d.Signature,
	}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.secret)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	endpoint := strings.TrimPrefix(req.URL.Path, "/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(netutil.NewLimitedReader(resp.Body, c.maxBody))
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", req.Method, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Body:       excerpt(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", req.Method, endpoint, err)
	}
	return nil
}

func excerpt(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (" + strconv.Itoa(len(s)) + " bytes)"
	}
	return s
}
