package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/shared"
)

// DefaultTimeout bounds a connection attempt unless the caller overrides it.
const DefaultTimeout = 10 * time.Second

// ConnectPath is the pairing endpoint relative to the normalized base URL.
const ConnectPath = "/api/mobile/connect"

// RejectionError is returned when the backend explicitly refuses a code.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap lets callers match the category with errors.Is(err, shared.ErrRejected).
func (e *RejectionError) Unwrap() error {
	return shared.ErrRejected
}

// Client exchanges a connection code for session details.
type Client struct {
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a pairing client. The HTTP client defaults to
// [http.DefaultClient] and the logger to a stderr logger.
func NewClient(client *http.Client, logger *log.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{httpClient: client, logger: logger}
}

// Connect POSTs the code to <baseURL>/api/mobile/connect and returns the
// resulting session details.
//
// The attempt is raced against timeout (DefaultTimeout when zero); on expiry
// the in-flight request is cancelled and the call fails with
// [shared.ErrTimeout]. The returned details carry baseURL as their APIURL,
// never a URL echoed by the server.
func (c *Client) Connect(ctx context.Context, baseURL, code string, timeout time.Duration) (*models.SessionDetails, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+ConnectPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", shared.ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", shared.ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTransport, err)
	}

	sanitized := SanitizeBody(string(raw))

	var parsed map[string]any
	parsedOK := false
	if sanitized != "" {
		if err := json.Unmarshal([]byte(sanitized), &parsed); err == nil {
			parsedOK = true
		}
	}

	c.logger.Debugf("connect response status=%d parsed=%v", resp.StatusCode, parsedOK)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rejection(resp.StatusCode, parsed)
	}

	// A successful status must carry a parseable body.
	if !parsedOK || parsed == nil {
		return nil, shared.ErrInvalidResponse
	}

	details, err := detailsFromResponse(baseURL, parsed)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// SanitizeBody strips a leading UTF-8 BOM and the JSON-hijacking guard
// prefixes some deployments emit ("while(1);" and ")]}',").
func SanitizeBody(body string) string {
	body = strings.TrimPrefix(body, "\uFEFF")
	body = hijackWhile.ReplaceAllString(body, "")
	body = hijackParen.ReplaceAllString(body, "")
	return strings.TrimSpace(body)
}

var (
	hijackWhile = regexp.MustCompile(`(?i)^while\s*\(1\);\s*`)
	hijackParen = regexp.MustCompile(`^\)\]\}',?\s*`)
)

// rejection builds the error for a non-2xx status, preferring a human message
// from the body. 401 is the canonical expired-or-invalid signal even without
// a body.
func rejection(status int, body map[string]any) error {
	message := stringField(body, "error")
	if message == "" {
		message = stringField(body, "message")
	}
	if message == "" {
		if status == http.StatusUnauthorized {
			message = "Expired or invalid connection code."
		} else {
			message = "Unable to connect with the provided code."
		}
	}
	return &RejectionError{Status: status, Message: message}
}

// detailsFromResponse validates an accepted 2xx body and assembles session
// details around the request's own base URL.
func detailsFromResponse(baseURL string, body map[string]any) (*models.SessionDetails, error) {
	success, _ := body["success"].(bool)

	token := stringField(body, "token")
	username := stringField(body, "username")
	displayName := stringField(body, "displayName")
	if displayName == "" {
		displayName = stringField(body, "name")
	}
	email := stringField(body, "email")

	complete := token != "" && username != "" && displayName != "" && email != ""
	if !success && !complete {
		return nil, shared.ErrInvalidResponse
	}

	details := &models.SessionDetails{
		Token:       token,
		APIURL:      baseURL,
		Username:    username,
		DisplayName: displayName,
		Email:       email,
	}
	if err := details.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return details, nil
}

func stringField(body map[string]any, key string) string {
	value, _ := body[key].(string)
	return strings.TrimSpace(value)
}
