package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Client provides HTTP client functionality to communicate with the jobseek server
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL  string
	APIKey   string // only needed for agent operations (SyncJobs, ReportAgentStatus)
	Timeout  time.Duration
	Logger   *slog.Logger // Optional logger for client operations
	TLS      *TLSClientConfig
	Insecure bool // Skip TLS verification
}

// TLSClientConfig holds TLS configuration for client
type TLSClientConfig struct {
	Enabled    bool   // Enable TLS
	CACert     string // CA certificate file path
	ClientCert string // Client certificate file
	ClientKey  string // Client private key file
	ServerName string // Server name for verification
	SkipVerify bool   // Skip certificate verification
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new jobseek API client with TLS support
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Setup HTTP transport with TLS configuration
	transport := &http.Transport{}

	if config.TLS != nil && config.TLS.Enabled || config.Insecure {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		logger:  config.Logger,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the API base URL the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// IsReachable checks if the server is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/health", nil, &out); err != nil {
		c.logger.Debug("server unreachable", "error", err)
		return false
	}
	return true
}

// GetJobs lists jobs with filters, sorting, and paging
func (c *Client) GetJobs(ctx context.Context, q JobsQuery) (JobsPage, error) {
	var page JobsPage
	u := c.baseURL + "/jobs?" + encodeJobsQuery(q)
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
		return JobsPage{}, err
	}
	return page, nil
}

// GetJob fetches a single job by id
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var j Job
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/jobs/"+url.PathEscape(id), nil, &j); err != nil {
		return Job{}, err
	}
	return j, nil
}

// GetStats fetches dashboard statistics
func (c *Client) GetStats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/jobs/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateJobStatus moves a job to a new pipeline status
func (c *Client) UpdateJobStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	u := c.baseURL + "/jobs/" + url.PathEscape(id) + "/status"
	return c.doJSON(ctx, http.MethodPatch, u, body, nil)
}

// GetSettings fetches the current search settings
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/settings", nil, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// SaveSettings replaces the search settings
func (c *Client) SaveSettings(ctx context.Context, s Settings) error {
	return c.doJSON(ctx, http.MethodPut, c.baseURL+"/settings", s, nil)
}

// GetAgentStatus fetches the scraping agent's last report
func (c *Client) GetAgentStatus(ctx context.Context) (AgentStatus, error) {
	var st AgentStatus
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/agent/status", nil, &st); err != nil {
		return AgentStatus{}, err
	}
	return st, nil
}

// SyncJobs ingests a batch of scraped jobs (requires APIKey)
func (c *Client) SyncJobs(ctx context.Context, req SyncRequest) (SyncResult, error) {
	var res SyncResult
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/jobs/sync", req, &res); err != nil {
		return SyncResult{}, err
	}
	return res, nil
}

// ReportAgentStatus pushes a new agent status report (requires APIKey)
func (c *Client) ReportAgentStatus(ctx context.Context, st AgentStatus) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/agent/status", st, nil)
}

func encodeJobsQuery(q JobsQuery) string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Source != "" {
		v.Set("source", q.Source)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MinScore > 0 {
		v.Set("min_score", strconv.FormatFloat(q.MinScore, 'f', -1, 64))
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if !q.SortDesc {
		v.Set("sort_dir", "asc")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v.Encode()
}

// setupClientTLS configures TLS settings for HTTP client
func setupClientTLS(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	// Handle insecure mode (skip verification)
	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}

	if config.TLS != nil {
		if config.TLS.SkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}
		if config.TLS.ServerName != "" {
			tlsConfig.ServerName = config.TLS.ServerName
		}
		if config.TLS.CACert != "" {
			if err := loadCACert(tlsConfig, config.TLS.CACert); err != nil {
				return nil, fmt.Errorf("failed to load CA certificate: %w", err)
			}
		}
		if config.TLS.ClientCert != "" && config.TLS.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(config.TLS.ClientCert, config.TLS.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	return tlsConfig, nil
}

// loadCACert loads CA certificate from file and adds it to TLS config
func loadCACert(tlsConfig *tls.Config, caCertPath string) error {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}

	tlsConfig.RootCAs = caCertPool
	return nil
}

// doJSON performs an HTTP request, optionally marshaling body and
// decoding the response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var rdr *bytes.Reader
	var req *http.Request
	var err error
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("marshal request: %w", merr)
		}
		rdr = bytes.NewReader(data)
		req, err = http.NewRequestWithContext(ctx, method, url, rdr)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Debug("failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	c.logger.Debug("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
