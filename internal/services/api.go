// Authenticated HTTP client for the paired Conductor backend.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/shared"
)

// Sample dataset routes served by the desktop backend.
const (
	SampleDataPath   = "/api/mobile/data/sample"
	HarmonyChatsPath = "/api/mobile/data/harmony-chats"
	KPIDataPath      = "/api/mobile/data/kpis"
)

// APIService makes authenticated requests against a paired backend.
type APIService struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *log.Logger
	logTraffic bool
}

// Option configures an [APIService].
type Option func(*APIService)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *APIService) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithLogger sets the logger used for network logging.
func WithLogger(logger *log.Logger) Option {
	return func(a *APIService) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithNetworkLogging enables per-request logging of method, path, status
// and duration.
func WithNetworkLogging(enabled bool) Option {
	return func(a *APIService) { a.logTraffic = enabled }
}

// NewAPIService creates a client for the given session.
func NewAPIService(session models.SessionDetails, opts ...Option) *APIService {
	a := &APIService{
		baseURL:    strings.TrimRight(session.APIURL, "/"),
		token:      session.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// APIResponse is a raw response with status, headers and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs an authenticated GET and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs an authenticated POST with a JSON body and returns the raw
// response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if a.logTraffic {
			a.logger.Warnf("%s %s failed after %s: %v", method, path, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if a.logTraffic {
		a.logger.Infof("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// FetchSampleData retrieves the activity/tasks/podcasts dataset.
func (a *APIService) FetchSampleData(ctx context.Context) (*models.SampleData, error) {
	var data models.SampleData
	if err := a.getJSON(ctx, SampleDataPath, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FetchHarmonyChats retrieves the sample chat dataset.
func (a *APIService) FetchHarmonyChats(ctx context.Context) (*models.HarmonyChats, error) {
	var data models.HarmonyChats
	if err := a.getJSON(ctx, HarmonyChatsPath, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FetchKPIData retrieves the KPI dashboard dataset.
func (a *APIService) FetchKPIData(ctx context.Context) (*models.KPIData, error) {
	var data models.KPIData
	if err := a.getJSON(ctx, KPIDataPath, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (a *APIService) getJSON(ctx context.Context, path string, out any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: the backend rejected the session token", shared.ErrNotConnected)
	case !resp.OK():
		return fmt.Errorf("%w: unexpected status %d", shared.ErrTransport, resp.StatusCode)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return nil
}
